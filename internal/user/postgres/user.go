package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	datamodel "github.com/accessly/lock-management/internal/core/datamodel/user"
	"github.com/accessly/lock-management/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User) error {
	m := user.ToDataModel(u)
	if err := r.db.Create(m).Error; err != nil {
		return err
	}
	u.ID = m.ID
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var m datamodel.User
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.FromDataModel(&m), nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var m datamodel.User
	if err := r.db.Where("email = ?", email).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.FromDataModel(&m), nil
}

func (r *UserRepository) List() ([]*user.User, error) {
	var ms []*datamodel.User
	if err := r.db.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(ms), nil
}

func (r *UserRepository) Update(u *user.User) error {
	return r.db.Save(user.ToDataModel(u)).Error
}

func (r *UserRepository) Delete(id int64) (bool, error) {
	result := r.db.Delete(&datamodel.User{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *UserRepository) CreateGroup(g *user.Group) error {
	m := &datamodel.Group{Name: g.Name}
	if err := r.db.Create(m).Error; err != nil {
		return err
	}
	g.ID = m.ID
	g.CreatedAt = m.CreatedAt
	return nil
}

func (r *UserRepository) GetGroupByID(id int64) (*user.Group, error) {
	var m datamodel.Group
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.GroupFromDataModel(&m), nil
}

func (r *UserRepository) ListGroups() ([]*user.Group, error) {
	var ms []*datamodel.Group
	if err := r.db.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	groups := make([]*user.Group, 0, len(ms))
	for _, m := range ms {
		groups = append(groups, user.GroupFromDataModel(m))
	}
	return groups, nil
}

func (r *UserRepository) DeleteGroup(id int64) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&datamodel.UserGroup{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&datamodel.Group{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserRepository) AddGroupMember(groupID, userID int64) error {
	m := &datamodel.UserGroup{GroupID: groupID, UserID: userID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *UserRepository) RemoveGroupMember(groupID, userID int64) (bool, error) {
	result := r.db.
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&datamodel.UserGroup{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *UserRepository) GroupMemberIDs(groupID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&datamodel.UserGroup{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *UserRepository) GroupIDsForUser(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&datamodel.UserGroup{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	return ids, err
}

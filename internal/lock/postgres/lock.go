package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	datamodel "github.com/accessly/lock-management/internal/core/datamodel/lock"
	"github.com/accessly/lock-management/internal/lock"
)

type LockRepository struct {
	db *gorm.DB
}

func NewLockRepository(db *gorm.DB) *LockRepository {
	return &LockRepository{db: db}
}

func (r *LockRepository) Create(l *lock.Lock) error {
	m := l.ToDataModel()
	if err := r.db.Create(m).Error; err != nil {
		return err
	}
	l.ID = m.ID
	l.CreatedAt = m.CreatedAt
	l.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *LockRepository) GetByID(id int64) (*lock.Lock, error) {
	var m datamodel.Lock
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return lock.FromDataModel(&m), nil
}

func (r *LockRepository) List() ([]*lock.Lock, error) {
	var ms []*datamodel.Lock
	if err := r.db.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	return lock.FromDataModelSlice(ms), nil
}

func (r *LockRepository) ListReservable() ([]*lock.Lock, error) {
	var ms []*datamodel.Lock
	if err := r.db.Where("is_reservable = ?", true).Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	return lock.FromDataModelSlice(ms), nil
}

func (r *LockRepository) Update(l *lock.Lock) error {
	return r.db.Save(l.ToDataModel()).Error
}

func (r *LockRepository) Delete(id int64) (bool, error) {
	result := r.db.Delete(&datamodel.Lock{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *LockRepository) CreateGroup(g *lock.LockGroup) error {
	m := &datamodel.LockGroup{Name: g.Name}
	if err := r.db.Create(m).Error; err != nil {
		return err
	}
	g.ID = m.ID
	g.CreatedAt = m.CreatedAt
	return nil
}

func (r *LockRepository) GetGroupByID(id int64) (*lock.LockGroup, error) {
	var m datamodel.LockGroup
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return lock.GroupFromDataModel(&m), nil
}

func (r *LockRepository) ListGroups() ([]*lock.LockGroup, error) {
	var ms []*datamodel.LockGroup
	if err := r.db.Order("name").Find(&ms).Error; err != nil {
		return nil, err
	}
	groups := make([]*lock.LockGroup, 0, len(ms))
	for _, m := range ms {
		groups = append(groups, lock.GroupFromDataModel(m))
	}
	return groups, nil
}

func (r *LockRepository) DeleteGroup(id int64) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lock_group_id = ?", id).Delete(&datamodel.LockGroupMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&datamodel.LockGroup{}, id)
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

func (r *LockRepository) AddGroupMember(groupID, lockID int64) error {
	m := &datamodel.LockGroupMember{LockGroupID: groupID, LockID: lockID}
	// repeated adds are no-ops
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *LockRepository) RemoveGroupMember(groupID, lockID int64) (bool, error) {
	result := r.db.
		Where("lock_group_id = ? AND lock_id = ?", groupID, lockID).
		Delete(&datamodel.LockGroupMember{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *LockRepository) GroupMemberIDs(groupID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&datamodel.LockGroupMember{}).
		Where("lock_group_id = ?", groupID).
		Pluck("lock_id", &ids).Error
	return ids, err
}

func (r *LockRepository) GroupIDsForLock(lockID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&datamodel.LockGroupMember{}).
		Where("lock_id = ?", lockID).
		Pluck("lock_group_id", &ids).Error
	return ids, err
}

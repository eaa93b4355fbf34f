package user

import (
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	List() ([]*User, error)
	Update(u *User) error
	Delete(id int64) (bool, error)

	CreateGroup(g *Group) error
	GetGroupByID(id int64) (*Group, error)
	ListGroups() ([]*Group, error)
	DeleteGroup(id int64) (bool, error)
	AddGroupMember(groupID, userID int64) error
	RemoveGroupMember(groupID, userID int64) (bool, error)
	GroupMemberIDs(groupID int64) ([]int64, error)
	GroupIDsForUser(userID int64) ([]int64, error)
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, bcryptCost: bcryptCost, logger: logger}
}

func (s *Service) Create(dto CreateDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(dto.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrInvalidUser)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		IsActive:     true,
		IsAdmin:      dto.IsAdmin,
	}
	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "email", u.Email)
	return u, nil
}

func (s *Service) GetByID(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) GetByEmail(email string) (*User, error) {
	u, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) List() ([]*User, error) {
	return s.repo.List()
}

func (s *Service) Update(id int64, dto UpdateDTO) (*User, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	dto.Apply(u)
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(id int64) error {
	deleted, err := s.repo.Delete(id)
	if err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *Service) CreateGroup(dto GroupDTO) (*Group, error) {
	if dto.Name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidUser)
	}
	g := &Group{Name: dto.Name}
	if err := s.repo.CreateGroup(g); err != nil {
		s.logger.Error("failed to create group", "error", err, "name", dto.Name)
		return nil, err
	}
	s.logger.Info("group created", "group_id", g.ID, "name", g.Name)
	return g, nil
}

func (s *Service) ListGroups() ([]*Group, error) {
	return s.repo.ListGroups()
}

func (s *Service) DeleteGroup(id int64) error {
	deleted, err := s.repo.DeleteGroup(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrGroupNotFound
	}
	return nil
}

func (s *Service) AddGroupMember(groupID, userID int64) error {
	g, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGroupNotFound
	}
	if _, err := s.GetByID(userID); err != nil {
		return err
	}
	if err := s.repo.AddGroupMember(groupID, userID); err != nil {
		return err
	}
	s.logger.Info("user added to group", "group_id", groupID, "user_id", userID)
	return nil
}

func (s *Service) RemoveGroupMember(groupID, userID int64) error {
	removed, err := s.repo.RemoveGroupMember(groupID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrGroupNotFound
	}
	return nil
}

func (s *Service) GroupMembers(groupID int64) ([]*User, error) {
	g, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	ids, err := s.repo.GroupMemberIDs(groupID)
	if err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		u, err := s.repo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// GroupIDsForUser feeds the authorization resolver's subject expansion.
func (s *Service) GroupIDsForUser(userID int64) ([]int64, error) {
	return s.repo.GroupIDsForUser(userID)
}

package lock

import (
	"fmt"
	"log/slog"
	"time"
)

type Repository interface {
	Create(l *Lock) error
	GetByID(id int64) (*Lock, error)
	List() ([]*Lock, error)
	ListReservable() ([]*Lock, error)
	Update(l *Lock) error
	Delete(id int64) (bool, error)

	CreateGroup(g *LockGroup) error
	GetGroupByID(id int64) (*LockGroup, error)
	ListGroups() ([]*LockGroup, error)
	DeleteGroup(id int64) (bool, error)
	AddGroupMember(groupID, lockID int64) error
	RemoveGroupMember(groupID, lockID int64) (bool, error)
	GroupMemberIDs(groupID int64) ([]int64, error)
	GroupIDsForLock(lockID int64) ([]int64, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(dto CreateDTO) (*Lock, error) {
	l := dto.ToLock()
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(l); err != nil {
		s.logger.Error("failed to create lock", "error", err, "name", l.Name)
		return nil, err
	}
	s.logger.Info("lock created", "lock_id", l.ID, "name", l.Name)
	return l, nil
}

func (s *Service) GetByID(id int64) (*Lock, error) {
	l, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLockNotFound
	}
	return l, nil
}

func (s *Service) List() ([]*Lock, error) {
	return s.repo.List()
}

func (s *Service) ListReservable() ([]*Lock, error) {
	return s.repo.ListReservable()
}

func (s *Service) Update(id int64, dto UpdateDTO) (*Lock, error) {
	l, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	dto.Apply(l)
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(l); err != nil {
		s.logger.Error("failed to update lock", "error", err, "lock_id", id)
		return nil, err
	}
	return l, nil
}

func (s *Service) Delete(id int64) error {
	deleted, err := s.repo.Delete(id)
	if err != nil {
		s.logger.Error("failed to delete lock", "error", err, "lock_id", id)
		return err
	}
	if !deleted {
		return ErrLockNotFound
	}
	s.logger.Info("lock deleted", "lock_id", id)
	return nil
}

// ReportStatus records a connectivity report from the device gateway.
// A connected report also stamps last_connection.
func (s *Service) ReportStatus(id int64, dto StatusReportDTO) (*Lock, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	l, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	l.Status = Status(dto.Status)
	if l.Status == StatusConnected {
		now := time.Now()
		l.LastConnection = &now
	}

	if err := s.repo.Update(l); err != nil {
		s.logger.Error("failed to record lock status", "error", err, "lock_id", id)
		return nil, err
	}

	s.logger.Info("lock status reported", "lock_id", id, "status", l.Status)
	return l, nil
}

func (s *Service) CreateGroup(dto GroupDTO) (*LockGroup, error) {
	if dto.Name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidLock)
	}
	g := &LockGroup{Name: dto.Name}
	if err := s.repo.CreateGroup(g); err != nil {
		s.logger.Error("failed to create lock group", "error", err, "name", dto.Name)
		return nil, err
	}
	s.logger.Info("lock group created", "lock_group_id", g.ID, "name", g.Name)
	return g, nil
}

func (s *Service) ListGroups() ([]*LockGroup, error) {
	return s.repo.ListGroups()
}

func (s *Service) DeleteGroup(id int64) error {
	deleted, err := s.repo.DeleteGroup(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrLockGroupNotFound
	}
	return nil
}

func (s *Service) AddGroupMember(groupID, lockID int64) error {
	g, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrLockGroupNotFound
	}
	if _, err := s.GetByID(lockID); err != nil {
		return err
	}
	if err := s.repo.AddGroupMember(groupID, lockID); err != nil {
		return err
	}
	s.logger.Info("lock added to group", "lock_group_id", groupID, "lock_id", lockID)
	return nil
}

func (s *Service) RemoveGroupMember(groupID, lockID int64) error {
	removed, err := s.repo.RemoveGroupMember(groupID, lockID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrLockGroupNotFound
	}
	return nil
}

func (s *Service) GroupMembers(groupID int64) ([]*Lock, error) {
	g, err := s.repo.GetGroupByID(groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrLockGroupNotFound
	}
	ids, err := s.repo.GroupMemberIDs(groupID)
	if err != nil {
		return nil, err
	}
	locks := make([]*Lock, 0, len(ids))
	for _, id := range ids {
		l, err := s.repo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if l != nil {
			locks = append(locks, l)
		}
	}
	return locks, nil
}

// LockGroupIDsForLock feeds the authorization resolver's target
// expansion.
func (s *Service) LockGroupIDsForLock(lockID int64) ([]int64, error) {
	return s.repo.GroupIDsForLock(lockID)
}

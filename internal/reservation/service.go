package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/accessly/lock-management/internal/core/common/interval"
	"github.com/accessly/lock-management/internal/core/events"
	"github.com/accessly/lock-management/internal/permission"
)

type Repository interface {
	Create(r *Reservation) error
	GetByID(id int64) (*Reservation, error)
	ListForUser(userID int64) ([]*Reservation, error)
	ListAll(status string) ([]*Reservation, error)
	ForLockDate(lockID int64, date time.Time, statuses []string) ([]*Reservation, error)
	ActiveForDate(date time.Time) ([]*Reservation, error)
	// Approve re-checks the slot and writes the approved status in one
	// transaction. Returns ErrSlotConflict when another approved
	// reservation for the lock and day overlaps the slot.
	Approve(r *Reservation) error
	UpdateStatus(id int64, status Status) error
}

// Granter is the slice of the permission service the bridge drives:
// idempotent creation on approval, exact-window removal on revocation.
type Granter interface {
	GetOrCreateGrant(item permission.GrantItemDTO) (*permission.Grant, bool, error)
	DeleteGrantIfExists(item permission.GrantItemDTO) error
}

type LockSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LockDirectory answers which locks can be reserved at all.
type LockDirectory interface {
	ReservableState(lockID int64) (exists bool, reservable bool, err error)
	ReservableLocks() ([]LockSummary, error)
}

type Service struct {
	repo   Repository
	grants Granter
	locks  LockDirectory
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, grants Granter, locks LockDirectory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		grants: grants,
		locks:  locks,
		bus:    bus,
		logger: logger,
	}
}

// Create files a pending reservation. The lock must be reservable and no
// approved reservation may already hold an overlapping slot on that day.
func (s *Service) Create(userID int64, dto CreateDTO) (*Reservation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r := dto.ToReservation(userID)
	if err := r.Validate(); err != nil {
		return nil, err
	}

	exists, reservable, err := s.locks.ReservableState(r.LockID)
	if err != nil {
		return nil, fmt.Errorf("check lock: %w", err)
	}
	if !exists {
		return nil, ErrLockNotFound
	}
	if !reservable {
		return nil, ErrNotReservable
	}

	conflict, err := s.hasConflict(r, 0)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}

	if err := s.repo.Create(r); err != nil {
		s.logger.Error("failed to create reservation", "error", err,
			"user_id", userID, "lock_id", r.LockID)
		return nil, err
	}

	s.logger.Info("reservation created",
		"reservation_id", r.ID,
		"user_id", userID,
		"lock_id", r.LockID,
		"date", dto.Date)
	return r, nil
}

// UpdateStatus drives the state machine. Approval materializes the grant
// first, then flips the status through Repository.Approve, whose
// transactional re-check serializes concurrent approvals of the same lock
// and day. Losing that race revokes the grant the approval just created.
// Moving away from approved removes the grant the approval created.
func (s *Service) UpdateStatus(ctx context.Context, id int64, dto StatusDTO) (*Reservation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	next := Status(dto.Status)

	r, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrReservationNotFound
	}

	if r.Status == next {
		// repeating the current status is a no-op, not an error
		return r, nil
	}
	if !r.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}

	wasApproved := r.Status == StatusApproved

	if next == StatusApproved {
		conflict, err := s.hasConflict(r, r.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, ErrSlotConflict
		}

		item := s.grantItem(r)
		grant, created, err := s.grants.GetOrCreateGrant(item)
		if err != nil {
			return nil, fmt.Errorf("materialize grant: %w", err)
		}

		if err := s.repo.Approve(r); err != nil {
			if errors.Is(err, ErrSlotConflict) && created {
				if revokeErr := s.grants.DeleteGrantIfExists(item); revokeErr != nil {
					s.logger.Error("failed to revoke grant after lost approval",
						"reservation_id", r.ID, "error", revokeErr)
				}
			}
			return nil, err
		}
		r.Status = next

		s.logger.Info("reservation approved",
			"reservation_id", r.ID,
			"grant_id", grant.ID,
			"grant_created", created)
		s.bus.Publish(ctx, events.NewReservationApprovedEvent(r.ID, r.UserID, r.LockID, grant.ID))
		return r, nil
	}

	// rejection; revoke the grant first when one was materialized
	if wasApproved {
		if err := s.grants.DeleteGrantIfExists(s.grantItem(r)); err != nil {
			return nil, fmt.Errorf("revoke grant: %w", err)
		}
	}

	if err := s.repo.UpdateStatus(r.ID, next); err != nil {
		return nil, err
	}
	r.Status = next

	s.logger.Info("reservation rejected",
		"reservation_id", r.ID,
		"grant_revoked", wasApproved)
	if wasApproved {
		s.bus.Publish(ctx, events.NewReservationRevokedEvent(r.ID, r.UserID, r.LockID))
	}
	return r, nil
}

func (s *Service) GetByID(id int64) (*Reservation, error) {
	r, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrReservationNotFound
	}
	return r, nil
}

func (s *Service) ListForUser(userID int64) ([]*Reservation, error) {
	return s.repo.ListForUser(userID)
}

func (s *Service) ListAll(status string) ([]*Reservation, error) {
	return s.repo.ListAll(status)
}

// AvailableLocks lists the reservable locks with no pending or approved
// reservation overlapping the requested slot.
func (s *Service) AvailableLocks(dto AvailabilityDTO) ([]LockSummary, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	date, _ := time.Parse(dateLayout, dto.Date)

	requested := &Reservation{Date: date, StartTime: dto.StartTime, EndTime: dto.EndTime}
	reqStart, reqEnd, err := requested.Window()
	if err != nil {
		return nil, err
	}

	locks, err := s.locks.ReservableLocks()
	if err != nil {
		return nil, fmt.Errorf("list reservable locks: %w", err)
	}

	taken := make(map[int64]bool)
	active, err := s.repo.ActiveForDate(date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	for _, r := range active {
		start, end, err := r.Window()
		if err != nil {
			s.logger.Warn("skipping reservation with bad slot",
				"reservation_id", r.ID, "error", err)
			continue
		}
		if interval.Overlaps(&start, &end, &reqStart, &reqEnd) {
			taken[r.LockID] = true
		}
	}

	available := make([]LockSummary, 0, len(locks))
	for _, l := range locks {
		if !taken[l.ID] {
			available = append(available, l)
		}
	}
	return available, nil
}

// hasConflict reports whether another approved reservation for the same
// lock and date overlaps r's slot. excludeID skips r itself on re-check.
func (s *Service) hasConflict(r *Reservation, excludeID int64) (bool, error) {
	start, end, err := r.Window()
	if err != nil {
		return false, err
	}

	approved, err := s.repo.ForLockDate(r.LockID, r.Date, []string{string(StatusApproved)})
	if err != nil {
		return false, fmt.Errorf("list approved reservations: %w", err)
	}

	for _, other := range approved {
		if other.ID == excludeID {
			continue
		}
		otherStart, otherEnd, err := other.Window()
		if err != nil {
			s.logger.Warn("skipping reservation with bad slot",
				"reservation_id", other.ID, "error", err)
			continue
		}
		if interval.Overlaps(&start, &end, &otherStart, &otherEnd) {
			return true, nil
		}
	}
	return false, nil
}

// grantItem maps a reservation to the exact-window grant it carries.
func (s *Service) grantItem(r *Reservation) permission.GrantItemDTO {
	start, end, _ := r.Window()
	return permission.GrantItemDTO{
		User:      &r.UserID,
		Lock:      &r.LockID,
		StartDate: &start,
		EndDate:   &end,
	}
}

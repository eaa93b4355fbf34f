package reservation

import (
	"errors"
	"fmt"
	"time"

	datamodel "github.com/accessly/lock-management/internal/core/datamodel/reservation"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotReservable       = errors.New("lock is not reservable")
	ErrSlotConflict        = errors.New("an approved reservation already holds this slot")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidSlot         = errors.New("invalid reservation slot")
	ErrLockNotFound        = errors.New("lock not found")
)

// Reservation is a time-boxed request for exclusive use of one lock on
// one day. The times are wall-clock HH:MM within Date.
type Reservation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	LockID    int64     `json:"lock_id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// parseClock validates an HH:MM value and returns it as a duration past
// midnight.
func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalidSlot, v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Window materializes the reservation's slot as two absolute instants on
// its date. This is the window the permission grant carries once the
// reservation is approved.
func (r *Reservation) Window() (start, end time.Time, err error) {
	startOfs, err := parseClock(r.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endOfs, err := parseClock(r.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, r.Date.Location())
	return day.Add(startOfs), day.Add(endOfs), nil
}

func (r *Reservation) Validate() error {
	startOfs, err := parseClock(r.StartTime)
	if err != nil {
		return err
	}
	endOfs, err := parseClock(r.EndTime)
	if err != nil {
		return err
	}
	if endOfs <= startOfs {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidSlot)
	}
	return nil
}

// CanTransitionTo encodes the state machine: pending moves to approved
// or rejected, approved may only be rejected. Rejected is terminal.
func (r *Reservation) CanTransitionTo(next Status) bool {
	switch r.Status {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusRejected
	default:
		return false
	}
}

func (r *Reservation) ToDataModel() *datamodel.Reservation {
	return &datamodel.Reservation{
		ID:        r.ID,
		UserID:    r.UserID,
		LockID:    r.LockID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Status:    string(r.Status),
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func FromDataModel(m *datamodel.Reservation) *Reservation {
	return &Reservation{
		ID:        m.ID,
		UserID:    m.UserID,
		LockID:    m.LockID,
		Date:      m.Date,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Status:    Status(m.Status),
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func FromDataModelSlice(ms []*datamodel.Reservation) []*Reservation {
	out := make([]*Reservation, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromDataModel(m))
	}
	return out
}

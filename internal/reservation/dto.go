package reservation

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type CreateDTO struct {
	LockID    int64  `json:"lock_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes,omitempty"`
}

func (d *CreateDTO) Validate() error {
	if d.LockID <= 0 {
		return fmt.Errorf("%w: lock_id is required", ErrInvalidSlot)
	}
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		return fmt.Errorf("%w: bad date %q, expected YYYY-MM-DD", ErrInvalidSlot, d.Date)
	}
	return nil
}

// ToReservation builds the pending reservation for userID. Validate must
// have passed.
func (d *CreateDTO) ToReservation(userID int64) *Reservation {
	date, _ := time.Parse(dateLayout, d.Date)
	return &Reservation{
		UserID:    userID,
		LockID:    d.LockID,
		Date:      date,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Status:    StatusPending,
		Notes:     d.Notes,
	}
}

type StatusDTO struct {
	Status string `json:"status"`
}

func (d *StatusDTO) Validate() error {
	switch Status(d.Status) {
	case StatusApproved, StatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: status must be approved or rejected", ErrInvalidTransition)
	}
}

type AvailabilityDTO struct {
	Date      string
	StartTime string
	EndTime   string
}

func (d *AvailabilityDTO) Validate() error {
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		return fmt.Errorf("%w: bad date %q, expected YYYY-MM-DD", ErrInvalidSlot, d.Date)
	}
	if _, err := parseClock(d.StartTime); err != nil {
		return err
	}
	if _, err := parseClock(d.EndTime); err != nil {
		return err
	}
	return nil
}

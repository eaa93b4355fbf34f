package lock

import "fmt"

type CreateDTO struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	IsReservable  bool   `json:"is_reservable"`
	KeypadEnabled *bool  `json:"keypad_enabled,omitempty"`
	BadgeEnabled  *bool  `json:"badge_enabled,omitempty"`
}

func (d *CreateDTO) ToLock() *Lock {
	l := &Lock{
		Name:          d.Name,
		Description:   d.Description,
		Status:        StatusDisconnected,
		IsReservable:  d.IsReservable,
		KeypadEnabled: true,
		BadgeEnabled:  true,
	}
	if d.KeypadEnabled != nil {
		l.KeypadEnabled = *d.KeypadEnabled
	}
	if d.BadgeEnabled != nil {
		l.BadgeEnabled = *d.BadgeEnabled
	}
	return l
}

type UpdateDTO struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	IsReservable  *bool   `json:"is_reservable,omitempty"`
	KeypadEnabled *bool   `json:"keypad_enabled,omitempty"`
	BadgeEnabled  *bool   `json:"badge_enabled,omitempty"`
}

func (d *UpdateDTO) Apply(l *Lock) {
	if d.Name != nil {
		l.Name = *d.Name
	}
	if d.Description != nil {
		l.Description = *d.Description
	}
	if d.IsReservable != nil {
		l.IsReservable = *d.IsReservable
	}
	if d.KeypadEnabled != nil {
		l.KeypadEnabled = *d.KeypadEnabled
	}
	if d.BadgeEnabled != nil {
		l.BadgeEnabled = *d.BadgeEnabled
	}
}

// StatusReportDTO is what the device gateway posts about connectivity.
type StatusReportDTO struct {
	Status string `json:"status"`
}

func (d *StatusReportDTO) Validate() error {
	switch Status(d.Status) {
	case StatusConnected, StatusDisconnected, StatusError:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidLock, d.Status)
	}
}

type GroupDTO struct {
	Name string `json:"name"`
}

type GroupMemberDTO struct {
	LockID int64 `json:"lock_id"`
}

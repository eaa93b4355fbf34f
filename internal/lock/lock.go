package lock

import (
	"errors"
	"fmt"
	"time"

	datamodel "github.com/accessly/lock-management/internal/core/datamodel/lock"
)

type Status string

const (
	StatusConnected    Status = datamodel.StatusConnected
	StatusDisconnected Status = datamodel.StatusDisconnected
	StatusError        Status = datamodel.StatusError
)

var (
	ErrLockNotFound      = errors.New("lock not found")
	ErrLockGroupNotFound = errors.New("lock group not found")
	ErrInvalidLock       = errors.New("invalid lock")
)

// Lock is a physical door controller. Connectivity status is reported by
// an external collaborator; this service only stores it.
type Lock struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	LastConnection *time.Time `json:"last_connection,omitempty"`
	IsReservable   bool       `json:"is_reservable"`
	KeypadEnabled  bool       `json:"keypad_enabled"`
	BadgeEnabled   bool       `json:"badge_enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (l *Lock) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLock)
	}
	switch l.Status {
	case StatusConnected, StatusDisconnected, StatusError:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidLock, l.Status)
	}
}

type LockGroup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Lock) ToDataModel() *datamodel.Lock {
	return &datamodel.Lock{
		ID:             l.ID,
		Name:           l.Name,
		Description:    l.Description,
		Status:         string(l.Status),
		LastConnection: l.LastConnection,
		IsReservable:   l.IsReservable,
		KeypadEnabled:  l.KeypadEnabled,
		BadgeEnabled:   l.BadgeEnabled,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func FromDataModel(m *datamodel.Lock) *Lock {
	return &Lock{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		Status:         Status(m.Status),
		LastConnection: m.LastConnection,
		IsReservable:   m.IsReservable,
		KeypadEnabled:  m.KeypadEnabled,
		BadgeEnabled:   m.BadgeEnabled,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func FromDataModelSlice(ms []*datamodel.Lock) []*Lock {
	out := make([]*Lock, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromDataModel(m))
	}
	return out
}

func GroupFromDataModel(m *datamodel.LockGroup) *LockGroup {
	return &LockGroup{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt}
}

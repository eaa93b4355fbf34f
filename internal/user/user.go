package user

import (
	"errors"
	"time"

	datamodel "github.com/accessly/lock-management/internal/core/datamodel/user"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrInvalidUser   = errors.New("invalid user")
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsActiveUser() bool {
	return u.IsActive
}

type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func ToDataModel(u *User) *datamodel.User {
	return &datamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(m *datamodel.User) *User {
	return &User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		IsAdmin:      m.IsAdmin,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func FromDataModelSlice(ms []*datamodel.User) []*User {
	out := make([]*User, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromDataModel(m))
	}
	return out
}

func GroupFromDataModel(m *datamodel.Group) *Group {
	return &Group{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt}
}

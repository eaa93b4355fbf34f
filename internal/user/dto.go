package user

import (
	"fmt"
	"net/mail"
)

type CreateDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

func (d *CreateDTO) Validate() error {
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return fmt.Errorf("%w: bad email %q", ErrInvalidUser, d.Email)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	if len(d.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidUser)
	}
	return nil
}

type UpdateDTO struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
}

func (d *UpdateDTO) Apply(u *User) {
	if d.Name != nil {
		u.Name = *d.Name
	}
	if d.IsActive != nil {
		u.IsActive = *d.IsActive
	}
	if d.IsAdmin != nil {
		u.IsAdmin = *d.IsAdmin
	}
}

type GroupDTO struct {
	Name string `json:"name"`
}

type GroupMemberDTO struct {
	UserID int64 `json:"user_id"`
}

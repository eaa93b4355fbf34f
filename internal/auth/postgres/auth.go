package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/accessly/lock-management/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPasswordForEmail(email string) (string, int64, bool, error) {
	var (
		passwordHash string
		userID       int64
		active       bool
	)
	query := `SELECT id, password_hash, is_active FROM users WHERE email = ?`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, false, fmt.Errorf("user not found")
		}
		return "", 0, false, err
	}
	return passwordHash, userID, active, nil
}

func (r *Repository) GetUserByID(userID int64) (*auth.User, error) {
	var u auth.User
	query := `SELECT id, email, name, is_admin FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

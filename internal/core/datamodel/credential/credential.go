package credential

import "time"

// Credential stores the salted hash of a user's physical access code.
// One row per (user, method); rotating a code replaces the hash in place.
type Credential struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_credentials_user_method,unique"`
	Method    string    `gorm:"column:method;not null;index:idx_credentials_user_method,unique;index:idx_credentials_method"`
	CodeHash  string    `gorm:"column:code_hash;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Credential) TableName() string {
	return "credentials"
}

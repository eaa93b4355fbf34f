package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	IsAdmin      bool      `gorm:"column:is_admin;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type Group struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Group) TableName() string {
	return "groups"
}

// UserGroup is the membership edge between users and groups.
type UserGroup struct {
	ID      int64 `gorm:"primaryKey"`
	UserID  int64 `gorm:"column:user_id;not null;index:idx_user_groups_pair,unique"`
	GroupID int64 `gorm:"column:group_id;not null;index:idx_user_groups_pair,unique"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}

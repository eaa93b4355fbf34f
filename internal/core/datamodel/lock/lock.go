package lock

import "time"

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

type Lock struct {
	ID             int64      `gorm:"primaryKey"`
	Name           string     `gorm:"column:name;not null"`
	Description    string     `gorm:"column:description"`
	Status         string     `gorm:"column:status;default:disconnected"`
	LastConnection *time.Time `gorm:"column:last_connection"`
	IsReservable   bool       `gorm:"column:is_reservable;default:false"`
	KeypadEnabled  bool       `gorm:"column:keypad_enabled;default:true"`
	BadgeEnabled   bool       `gorm:"column:badge_enabled;default:true"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Lock) TableName() string {
	return "locks"
}

type LockGroup struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (LockGroup) TableName() string {
	return "lock_groups"
}

// LockGroupMember is the membership edge between locks and lock groups.
type LockGroupMember struct {
	ID          int64 `gorm:"primaryKey"`
	LockID      int64 `gorm:"column:lock_id;not null;index:idx_lock_group_members_pair,unique"`
	LockGroupID int64 `gorm:"column:lock_group_id;not null;index:idx_lock_group_members_pair,unique"`
}

func (LockGroupMember) TableName() string {
	return "lock_group_members"
}

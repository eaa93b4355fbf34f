package permission

import "time"

// Grant holds one permission row. Exactly one of UserID/GroupID and exactly
// one of LockID/LockGroupID is non-nil; the domain layer enforces this
// before any row reaches the store. Open window sides stay NULL.
type Grant struct {
	ID          int64      `gorm:"primaryKey"`
	UserID      *int64     `gorm:"column:user_id;index:idx_grants_user_lock"`
	GroupID     *int64     `gorm:"column:group_id;index:idx_grants_group_lock"`
	LockID      *int64     `gorm:"column:lock_id;index:idx_grants_user_lock;index:idx_grants_group_lock"`
	LockGroupID *int64     `gorm:"column:lock_group_id"`
	StartDate   *time.Time `gorm:"column:start_date"`
	EndDate     *time.Time `gorm:"column:end_date"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Grant) TableName() string {
	return "lock_permissions"
}

package reservation

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Reservation struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;index"`
	LockID    int64     `gorm:"column:lock_id;not null;index:idx_reservations_lock_date"`
	Date      time.Time `gorm:"column:date;type:date;not null;index:idx_reservations_lock_date"`
	StartTime string    `gorm:"column:start_time;not null"`
	EndTime   string    `gorm:"column:end_time;not null"`
	Status    string    `gorm:"column:status;default:pending"`
	Notes     string    `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Reservation) TableName() string {
	return "reservations"
}

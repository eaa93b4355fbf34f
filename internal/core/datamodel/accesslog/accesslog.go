package accesslog

import "time"

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Entry is an append-only audit row. The lock name is snapshotted at write
// time so deleting a lock does not erase history.
type Entry struct {
	ID         int64     `gorm:"primaryKey"`
	Method     string    `gorm:"column:method;not null"`
	UserID     *int64    `gorm:"column:user_id;index"`
	FailedCode string    `gorm:"column:failed_code"`
	LockID     int64     `gorm:"column:lock_id;index"`
	LockName   string    `gorm:"column:lock_name"`
	Result     string    `gorm:"column:result;not null"`
	Timestamp  time.Time `gorm:"column:timestamp;autoCreateTime;index:idx_access_logs_timestamp,sort:desc"`
}

func (Entry) TableName() string {
	return "access_logs"
}

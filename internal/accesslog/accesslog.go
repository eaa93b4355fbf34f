package accesslog

import (
	"errors"
	"time"

	accesslogDatamodel "github.com/accessly/lock-management/internal/core/datamodel/accesslog"
)

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Entry is one authorization attempt. Exactly one of UserID/FailedCode is
// meaningful: the resolved user when the credential matched, the raw
// offending code when it did not. When a known user is denied, FailedCode
// carries their display name instead of a secret.
type Entry struct {
	ID         int64     `json:"id"`
	Method     string    `json:"method"`
	UserID     *int64    `json:"user_id,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	FailedCode string    `json:"failed_code,omitempty"`
	LockID     int64     `json:"lock_id"`
	LockName   string    `json:"lock_name"`
	Result     string    `json:"result"`
	Timestamp  time.Time `json:"timestamp"`
}

var ErrInvalidResult = errors.New("result must be success or failed")

func (e *Entry) Validate() error {
	if e.Result != ResultSuccess && e.Result != ResultFailed {
		return ErrInvalidResult
	}
	return nil
}

func ToDataModel(e *Entry) *accesslogDatamodel.Entry {
	return &accesslogDatamodel.Entry{
		ID:         e.ID,
		Method:     e.Method,
		UserID:     e.UserID,
		FailedCode: e.FailedCode,
		LockID:     e.LockID,
		LockName:   e.LockName,
		Result:     e.Result,
		Timestamp:  e.Timestamp,
	}
}

func FromDataModel(row *accesslogDatamodel.Entry) *Entry {
	return &Entry{
		ID:         row.ID,
		Method:     row.Method,
		UserID:     row.UserID,
		FailedCode: row.FailedCode,
		LockID:     row.LockID,
		LockName:   row.LockName,
		Result:     row.Result,
		Timestamp:  row.Timestamp,
	}
}

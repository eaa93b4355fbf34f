package access

import (
	"errors"

	"github.com/accessly/lock-management/internal/credential"
)

// AttemptDTO is the inbound authorization request from a lock reader or
// the physical-login endpoint.
type AttemptDTO struct {
	Method  string `json:"method"`
	RawCode string `json:"raw_code"`
	LockID  int64  `json:"lock_id"`
}

func (d AttemptDTO) Validate() error {
	if _, err := credential.ParseMethod(d.Method); err != nil {
		return err
	}
	if d.RawCode == "" {
		return ErrMissingCode
	}
	if d.LockID <= 0 {
		return ErrMissingLock
	}
	return nil
}

// AttemptResult is all the caller learns. A denial never reveals whether
// the code was wrong or the resolved user lacked a grant.
type AttemptResult struct {
	Granted  bool                 `json:"granted"`
	Identity *credential.Identity `json:"identity,omitempty"`
}

// LockInfo is the slice of lock state the decision needs.
type LockInfo struct {
	ID            int64
	Name          string
	KeypadEnabled bool
	BadgeEnabled  bool
}

func (l LockInfo) MethodEnabled(m credential.Method) bool {
	switch m {
	case credential.MethodKeypad:
		return l.KeypadEnabled
	case credential.MethodBadge:
		return l.BadgeEnabled
	}
	return false
}

var (
	ErrMissingCode  = errors.New("raw_code is required")
	ErrMissingLock  = errors.New("lock_id is required")
	ErrLockNotFound = errors.New("lock not found")
)

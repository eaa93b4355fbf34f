package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccessAttempted     = "access.attempted"
	EventTypeReservationApproved = "reservation.approved"
	EventTypeReservationRevoked  = "reservation.revoked"
)

// AccessAttemptedEvent is published for every authorization attempt,
// successful or not. The audit recorder subscribes to it.
type AccessAttemptedEvent struct {
	BaseEvent
	Method      string `json:"method"`
	UserID      *int64 `json:"user_id,omitempty"`
	FailureCode string `json:"failure_code,omitempty"`
	LockID      int64  `json:"lock_id"`
	LockName    string `json:"lock_name"`
	Granted     bool   `json:"granted"`
}

func NewAccessAttemptedEvent(method string, userID *int64, failureCode string, lockID int64, lockName string, granted bool) *AccessAttemptedEvent {
	return &AccessAttemptedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessAttempted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"method":    method,
				"lock_id":   lockID,
				"lock_name": lockName,
				"granted":   granted,
			},
		},
		Method:      method,
		UserID:      userID,
		FailureCode: failureCode,
		LockID:      lockID,
		LockName:    lockName,
		Granted:     granted,
	}
}

// ReservationApprovedEvent is published after an approval materializes a
// permission grant.
type ReservationApprovedEvent struct {
	BaseEvent
	ReservationID int64 `json:"reservation_id"`
	UserID        int64 `json:"user_id"`
	LockID        int64 `json:"lock_id"`
	GrantID       int64 `json:"grant_id"`
}

func NewReservationApprovedEvent(reservationID, userID, lockID, grantID int64) *ReservationApprovedEvent {
	return &ReservationApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReservationApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reservation_id": reservationID,
				"user_id":        userID,
				"lock_id":        lockID,
				"grant_id":       grantID,
			},
		},
		ReservationID: reservationID,
		UserID:        userID,
		LockID:        lockID,
		GrantID:       grantID,
	}
}

// ReservationRevokedEvent is published when a previously approved
// reservation is rejected and its grant removed.
type ReservationRevokedEvent struct {
	BaseEvent
	ReservationID int64 `json:"reservation_id"`
	UserID        int64 `json:"user_id"`
	LockID        int64 `json:"lock_id"`
}

func NewReservationRevokedEvent(reservationID, userID, lockID int64) *ReservationRevokedEvent {
	return &ReservationRevokedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReservationRevoked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reservation_id": reservationID,
				"user_id":        userID,
				"lock_id":        lockID,
			},
		},
		ReservationID: reservationID,
		UserID:        userID,
		LockID:        lockID,
	}
}

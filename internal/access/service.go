package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/accessly/lock-management/internal/core/events"
	"github.com/accessly/lock-management/internal/credential"
)

// CredentialResolver maps a raw code to its owning identity, or nil.
type CredentialResolver interface {
	Resolve(method credential.Method, rawCode string) (*credential.Identity, error)
}

// Authorizer answers the point-in-time access query.
type Authorizer interface {
	HasAccess(userID, lockID int64, at time.Time) (bool, error)
}

// LockReader loads the lock state the decision depends on.
type LockReader interface {
	LockInfo(lockID int64) (*LockInfo, error)
}

type Service struct {
	credentials CredentialResolver
	authorizer  Authorizer
	locks       LockReader
	bus         *events.EventBus
	logger      *slog.Logger

	// now is swapped in tests to pin the decision instant.
	now func() time.Time
}

func NewService(credentials CredentialResolver, authorizer Authorizer, locks LockReader, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		credentials: credentials,
		authorizer:  authorizer,
		locks:       locks,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

// Attempt runs the full decision: resolve the credential, check the
// grant, and record the outcome. Every attempt produces exactly one audit
// entry, enqueued before the result is returned; the decision itself
// never waits on log durability.
func (s *Service) Attempt(ctx context.Context, dto AttemptDTO) (AttemptResult, error) {
	if err := dto.Validate(); err != nil {
		return AttemptResult{}, err
	}
	method := credential.Method(dto.Method)

	lock, err := s.locks.LockInfo(dto.LockID)
	if err != nil {
		return AttemptResult{}, err
	}
	if lock == nil {
		return AttemptResult{}, ErrLockNotFound
	}

	if !lock.MethodEnabled(method) {
		s.logger.Warn("access attempt on disabled method",
			"method", method, "lock_id", lock.ID)
		s.record(ctx, method, nil, dto.RawCode, lock, false)
		return AttemptResult{Granted: false}, nil
	}

	identity, err := s.credentials.Resolve(method, dto.RawCode)
	if err != nil {
		return AttemptResult{}, fmt.Errorf("resolve credential: %w", err)
	}

	if identity == nil {
		// unknown code: the raw value is the failure token
		s.record(ctx, method, nil, dto.RawCode, lock, false)
		return AttemptResult{Granted: false}, nil
	}

	granted, err := s.authorizer.HasAccess(identity.ID, lock.ID, s.now())
	if err != nil {
		return AttemptResult{}, fmt.Errorf("authorization check: %w", err)
	}

	if !granted {
		// known user, no grant: log the name, never the code
		s.record(ctx, method, identity, identity.Name, lock, false)
		return AttemptResult{Granted: false}, nil
	}

	s.record(ctx, method, identity, "", lock, true)
	s.logger.Info("access granted",
		"method", method,
		"user_id", identity.ID,
		"lock_id", lock.ID)

	return AttemptResult{Granted: true, Identity: identity}, nil
}

func (s *Service) record(ctx context.Context, method credential.Method, identity *credential.Identity, failureToken string, lock *LockInfo, granted bool) {
	var userID *int64
	if identity != nil {
		userID = &identity.ID
	}

	event := events.NewAccessAttemptedEvent(string(method), userID, failureToken, lock.ID, lock.Name, granted)

	// Sync publish: the subscriber only enqueues into the audit writer,
	// so the attempt is on record before the caller sees the decision.
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.logger.Error("failed to publish access attempt", "error", err, "lock_id", lock.ID)
	}
}

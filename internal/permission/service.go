package permission

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/accessly/lock-management/internal/core/common/interval"
)

// Repository is the persistence surface for grants. CreateGrant and
// GetOrCreateGrant run the overlap check and the insert inside one
// transaction so concurrent writers cannot violate the invariant.
type Repository interface {
	CreateGrant(g *Grant) error
	GetOrCreateGrant(g *Grant) (*Grant, bool, error)
	DeleteGrantExact(subject Subject, target Target, window TimeWindow) (bool, error)
	GrantsForSubject(s Subject) ([]*Grant, error)
	GrantsForTarget(t Target) ([]*Grant, error)
	AllGrants() ([]*Grant, error)
	MatchingGrants(userID int64, groupIDs []int64, lockID int64, lockGroupIDs []int64) ([]*Grant, error)
}

// EntityChecker verifies that the entities a grant references exist, so
// batch items naming unknown ids fail individually instead of writing
// dangling rows.
type EntityChecker interface {
	SubjectExists(s Subject) (bool, error)
	TargetExists(t Target) (bool, error)
}

// MembershipReader exposes the group memberships the resolver expands.
type MembershipReader interface {
	GroupIDsForUser(userID int64) ([]int64, error)
	LockGroupIDsForLock(lockID int64) ([]int64, error)
}

type Service struct {
	repo       Repository
	entities   EntityChecker
	membership MembershipReader
	logger     *slog.Logger
}

func NewService(repo Repository, entities EntityChecker, membership MembershipReader, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		entities:   entities,
		membership: membership,
		logger:     logger,
	}
}

// CreateGrant validates an item and writes it, failing with
// ErrWindowOverlap when the new window intersects an existing grant for
// the same subject and target.
func (s *Service) CreateGrant(item GrantItemDTO) (*Grant, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	g := item.ToGrant()
	if err := s.checkEntities(g); err != nil {
		return nil, err
	}

	if err := s.repo.CreateGrant(g); err != nil {
		if err == ErrWindowOverlap {
			s.logger.Warn("grant rejected: window overlap",
				"subject", g.Subject.String(),
				"target", g.Target.String())
		} else {
			s.logger.Error("failed to create grant", "error", err,
				"subject", g.Subject.String(),
				"target", g.Target.String())
		}
		return nil, err
	}

	s.logger.Info("grant created",
		"grant_id", g.ID,
		"subject", g.Subject.String(),
		"target", g.Target.String())

	return g, nil
}

// GetOrCreateGrant is the idempotent write used by the reservation bridge:
// an exact (subject, target, window) match returns the existing grant.
func (s *Service) GetOrCreateGrant(item GrantItemDTO) (*Grant, bool, error) {
	if err := item.Validate(); err != nil {
		return nil, false, err
	}

	g := item.ToGrant()
	existing, created, err := s.repo.GetOrCreateGrant(g)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.logger.Debug("grant already present, reusing",
			"grant_id", existing.ID,
			"subject", existing.Subject.String())
	}
	return existing, created, nil
}

// DeleteGrant removes the grant exactly matching the item's subject,
// target and window. Grants sharing subject and target with a different
// window are untouched.
func (s *Service) DeleteGrant(item GrantItemDTO) error {
	if err := item.Validate(); err != nil {
		return err
	}

	g := item.ToGrant()
	deleted, err := s.repo.DeleteGrantExact(g.Subject, g.Target, g.Window)
	if err != nil {
		s.logger.Error("failed to delete grant", "error", err,
			"subject", g.Subject.String(),
			"target", g.Target.String())
		return err
	}
	if !deleted {
		return ErrGrantNotFound
	}

	s.logger.Info("grant deleted",
		"subject", g.Subject.String(),
		"target", g.Target.String())
	return nil
}

// DeleteGrantIfExists is DeleteGrant without the not-found error, used by
// the reservation bridge where the grant may already be gone.
func (s *Service) DeleteGrantIfExists(item GrantItemDTO) error {
	err := s.DeleteGrant(item)
	if err == ErrGrantNotFound {
		return nil
	}
	return err
}

// ApplyBatch processes additions and removals independently: a failing
// item is reported in the result and does not roll back the others.
func (s *Service) ApplyBatch(dto BatchMutationDTO) (BatchResult, error) {
	if err := dto.Validate(); err != nil {
		return BatchResult{}, err
	}

	var result BatchResult

	for i, item := range dto.ToAdd {
		g, err := s.CreateGrant(item)
		if err != nil {
			result.Errors = append(result.Errors, BatchItemError{
				Op:      "add",
				Index:   i,
				Message: err.Error(),
			})
			continue
		}
		result.Added = append(result.Added, g)
	}

	for i, item := range dto.ToRemove {
		if err := s.DeleteGrant(item); err != nil {
			result.Errors = append(result.Errors, BatchItemError{
				Op:      "remove",
				Index:   i,
				Message: err.Error(),
			})
			continue
		}
		result.Removed++
	}

	s.logger.Info("grant batch applied",
		"added", len(result.Added),
		"removed", result.Removed,
		"failed", len(result.Errors))

	return result, nil
}

func (s *Service) GrantsForSubject(subject Subject) ([]*Grant, error) {
	return s.repo.GrantsForSubject(subject)
}

func (s *Service) GrantsForTarget(target Target) ([]*Grant, error) {
	return s.repo.GrantsForTarget(target)
}

func (s *Service) AllGrants() ([]*Grant, error) {
	return s.repo.AllGrants()
}

// HasAccess answers the point-in-time access query. The subject set is the
// user plus the user's groups; the target set is the lock plus its lock
// groups. Any structurally matching grant whose window contains the
// instant suffices; a direct user grant and a group grant carry equal
// weight. Absence of a match is a plain false, not an error.
func (s *Service) HasAccess(userID, lockID int64, at time.Time) (bool, error) {
	groupIDs, err := s.membership.GroupIDsForUser(userID)
	if err != nil {
		return false, fmt.Errorf("expand user groups: %w", err)
	}

	lockGroupIDs, err := s.membership.LockGroupIDsForLock(lockID)
	if err != nil {
		return false, fmt.Errorf("expand lock groups: %w", err)
	}

	grants, err := s.repo.MatchingGrants(userID, groupIDs, lockID, lockGroupIDs)
	if err != nil {
		return false, fmt.Errorf("query matching grants: %w", err)
	}

	for _, g := range grants {
		if interval.Contains(g.Window.Start, g.Window.End, at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) checkEntities(g *Grant) error {
	ok, err := s.entities.SubjectExists(g.Subject)
	if err != nil {
		return fmt.Errorf("check subject: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", g.Subject.String(), ErrUnknownEntity)
	}

	ok, err = s.entities.TargetExists(g.Target)
	if err != nil {
		return fmt.Errorf("check target: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", g.Target.String(), ErrUnknownEntity)
	}
	return nil
}

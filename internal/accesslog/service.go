package accesslog

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// ListFilter narrows a log query. Nil filters match everything.
type ListFilter struct {
	UserID *int64
	LockID *int64
	Limit  int
	Offset int
}

// Repository is append-plus-read: entries are never updated or deleted.
type Repository interface {
	Append(e *Entry) error
	List(filter ListFilter) ([]*Entry, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Record appends one entry, stamping the time if the producer did not.
func (s *Service) Record(e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	if err := s.repo.Append(e); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}

	s.logger.Debug("access attempt recorded",
		"method", e.Method,
		"lock_id", e.LockID,
		"result", e.Result)
	return nil
}

// List returns the most recent entries first.
func (s *Service) List(filter ListFilter) ([]*Entry, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = defaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(filter)
}

package accesslog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/accessly/lock-management/internal/core/events"
)

// EventHandler bridges access-attempt events into the audit writer.
type EventHandler struct {
	writer *Writer
	logger *slog.Logger
}

func NewEventHandler(writer *Writer, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		writer: writer,
		logger: logger,
	}
}

func (h *EventHandler) HandleAccessAttempted(ctx context.Context, event events.Event) error {
	attempt, ok := event.(*events.AccessAttemptedEvent)
	if !ok {
		h.logger.Error("invalid event type for access attempted handler", "event_type", event.EventType())
		return fmt.Errorf("expected AccessAttemptedEvent, got %T", event)
	}

	result := ResultFailed
	if attempt.Granted {
		result = ResultSuccess
	}

	h.writer.Enqueue(&Entry{
		Method:     attempt.Method,
		UserID:     attempt.UserID,
		FailedCode: attempt.FailureCode,
		LockID:     attempt.LockID,
		LockName:   attempt.LockName,
		Result:     result,
		Timestamp:  attempt.OccurredAt(),
	})
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeAccessAttempted, h.HandleAccessAttempted)

	h.logger.Info("access log event handlers registered",
		"handlers", []string{events.EventTypeAccessAttempted})
}

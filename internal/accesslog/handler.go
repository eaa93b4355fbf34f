package accesslog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/accessly/lock-management/internal/transport"
	"github.com/accessly/lock-management/pkg/logger"
)

type ServiceAPI interface {
	List(filter ListFilter) ([]*Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// GetLogs lists access attempts, most recent first, optionally filtered
// by user_id or lock_id.
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter

	if userIDStr := r.URL.Query().Get("user_id"); userIDStr != "" {
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid user_id parameter")
			return
		}
		filter.UserID = &userID
	}

	if lockIDStr := r.URL.Query().Get("lock_id"); lockIDStr != "" {
		lockID, err := strconv.ParseInt(lockIDStr, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid lock_id parameter")
			return
		}
		filter.LockID = &lockID
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	entries, err := h.Service.List(filter)
	if err != nil {
		h.Logger.Error("GetLogs: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to fetch access logs")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}

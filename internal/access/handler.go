package access

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/accessly/lock-management/internal/credential"
	"github.com/accessly/lock-management/internal/transport"
	"github.com/accessly/lock-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

type attemptResponse struct {
	Granted  bool   `json:"granted"`
	UserID   *int64 `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// AttemptAccess decides a single keypad or badge attempt. The response
// is always 200 with a granted flag; only malformed requests and
// unknown locks are HTTP errors.
func (h *Handler) AttemptAccess(w http.ResponseWriter, r *http.Request) {
	var dto AttemptDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("AttemptAccess: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Attempt(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrLockNotFound):
			h.WriteError(w, http.StatusNotFound, "lock not found")
		case errors.Is(err, ErrMissingCode), errors.Is(err, ErrMissingLock), errors.Is(err, credential.ErrUnknownMethod):
			h.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.Logger.Error("AttemptAccess: decision failed", "error", err, "lock_id", dto.LockID)
			h.WriteError(w, http.StatusInternalServerError, "failed to process access attempt")
		}
		return
	}

	resp := attemptResponse{Granted: result.Granted}
	if result.Identity != nil {
		resp.UserID = &result.Identity.ID
		resp.UserName = result.Identity.Name
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

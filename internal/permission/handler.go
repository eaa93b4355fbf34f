package permission

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/accessly/lock-management/internal/transport"
	"github.com/accessly/lock-management/pkg/logger"
)

type ServiceAPI interface {
	ApplyBatch(dto BatchMutationDTO) (BatchResult, error)
	GrantsForSubject(subject Subject) ([]*Grant, error)
	GrantsForTarget(target Target) ([]*Grant, error)
	AllGrants() ([]*Grant, error)
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

// GetGrants lists grants filtered by the `type` query parameter: user,
// group, lock, lock_group or all. The id parameter names the entity for
// everything except all.
func (h *Handler) GetGrants(w http.ResponseWriter, r *http.Request) {
	queryType := r.URL.Query().Get("type")

	var (
		grants []*Grant
		err    error
	)

	switch queryType {
	case "all":
		grants, err = h.Service.AllGrants()
	case "user", "group":
		id, ok := h.idParam(w, r)
		if !ok {
			return
		}
		subject := UserSubject(id)
		if queryType == "group" {
			subject = GroupSubject(id)
		}
		grants, err = h.Service.GrantsForSubject(subject)
	case "lock", "lock_group":
		id, ok := h.idParam(w, r)
		if !ok {
			return
		}
		target := LockTarget(id)
		if queryType == "lock_group" {
			target = LockGroupTarget(id)
		}
		grants, err = h.Service.GrantsForTarget(target)
	default:
		h.WriteError(w, http.StatusBadRequest, "invalid type parameter; valid options: user, group, lock, lock_group, all")
		return
	}

	if err != nil {
		h.Logger.Error("GetGrants: service error", "error", err, "type", queryType)
		h.WriteError(w, http.StatusInternalServerError, "failed to fetch grants")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"grants": grants})
}

// MutateGrants applies a toAdd/toRemove batch. Items fail independently;
// the response reports which ones did and why.
func (h *Handler) MutateGrants(w http.ResponseWriter, r *http.Request) {
	var dto BatchMutationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("MutateGrants: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.ApplyBatch(dto)
	if err != nil {
		h.Logger.Error("MutateGrants: batch rejected", "error", err)
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if result.HasErrors() {
		// partial success still applies the good items
		status = http.StatusMultiStatus
	}
	h.WriteJSON(w, status, result)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, "missing required query parameter: id")
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid id parameter")
		return 0, false
	}
	return id, true
}

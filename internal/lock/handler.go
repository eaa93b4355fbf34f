package lock

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

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

func (h *Handler) CreateLock(w http.ResponseWriter, r *http.Request) {
	var dto CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := h.Service.Create(dto)
	if err != nil {
		h.writeServiceError(w, err, "CreateLock")
		return
	}
	h.WriteJSON(w, http.StatusCreated, l)
}

func (h *Handler) GetLock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	l, err := h.Service.GetByID(id)
	if err != nil {
		h.writeServiceError(w, err, "GetLock")
		return
	}
	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) ListLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := h.Service.List()
	if err != nil {
		h.writeServiceError(w, err, "ListLocks")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"locks": locks})
}

func (h *Handler) UpdateLock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := h.Service.Update(id, dto)
	if err != nil {
		h.writeServiceError(w, err, "UpdateLock")
		return
	}
	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) DeleteLock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(id); err != nil {
		h.writeServiceError(w, err, "DeleteLock")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReportStatus ingests a connectivity report from the device gateway.
func (h *Handler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto StatusReportDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := h.Service.ReportStatus(id, dto)
	if err != nil {
		h.writeServiceError(w, err, "ReportStatus")
		return
	}
	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var dto GroupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := h.Service.CreateGroup(dto)
	if err != nil {
		h.writeServiceError(w, err, "CreateGroup")
		return
	}
	h.WriteJSON(w, http.StatusCreated, g)
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Service.ListGroups()
	if err != nil {
		h.writeServiceError(w, err, "ListGroups")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"lock_groups": groups})
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteGroup(id); err != nil {
		h.writeServiceError(w, err, "DeleteGroup")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GroupMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	locks, err := h.Service.GroupMembers(id)
	if err != nil {
		h.writeServiceError(w, err, "GroupMembers")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"locks": locks})
}

func (h *Handler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto GroupMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Service.AddGroupMember(id, dto.LockID); err != nil {
		h.writeServiceError(w, err, "AddGroupMember")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	lockID, ok := h.pathID(w, r, "lockID")
	if !ok {
		return
	}
	if err := h.Service.RemoveGroupMember(id, lockID); err != nil {
		h.writeServiceError(w, err, "RemoveGroupMember")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid "+param+" parameter")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrLockNotFound), errors.Is(err, ErrLockGroupNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidLock):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error(op+": service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

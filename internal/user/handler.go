package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/accessly/lock-management/internal"
	"github.com/accessly/lock-management/internal/credential"
	"github.com/accessly/lock-management/internal/transport"
	"github.com/accessly/lock-management/pkg/logger"
)

// CredentialRotator issues fresh keypad codes and badge tokens.
type CredentialRotator interface {
	RotateCode(userID int64, method credential.Method) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     *Service
	Credentials CredentialRotator
}

func NewHandler(service *Service, credentials CredentialRotator) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Credentials: credentials,
	}
}

// GetCurrentUser returns the authenticated user's own record.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	u, err := h.Service.GetByID(userID)
	if err != nil {
		h.writeServiceError(w, err, "GetCurrentUser")
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.Service.Create(dto)
	if err != nil {
		h.writeServiceError(w, err, "CreateUser")
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Service.GetByID(id)
	if err != nil {
		h.writeServiceError(w, err, "GetUser")
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List()
	if err != nil {
		h.writeServiceError(w, err, "ListUsers")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.Service.Update(id, dto)
	if err != nil {
		h.writeServiceError(w, err, "UpdateUser")
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(id); err != nil {
		h.writeServiceError(w, err, "DeleteUser")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RotateCredential issues a fresh code for the user. The raw value
// appears in this response and nowhere else.
func (h *Handler) RotateCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	method, err := credential.ParseMethod(chi.URLParam(r, "method"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := h.Credentials.RotateCode(id, method)
	if err != nil {
		if errors.Is(err, credential.ErrUserNotFound) {
			h.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.Logger.Error("RotateCredential: service error", "error", err, "user_id", id, "method", method)
		h.WriteError(w, http.StatusInternalServerError, "failed to rotate credential")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": id,
		"method":  method,
		"code":    raw,
	})
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
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
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
	users, err := h.Service.GroupMembers(id)
	if err != nil {
		h.writeServiceError(w, err, "GroupMembers")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
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
	if err := h.Service.AddGroupMember(id, dto.UserID); err != nil {
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
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.Service.RemoveGroupMember(id, userID); err != nil {
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
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrGroupNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidUser):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error(op+": service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

package reservation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/accessly/lock-management/internal"
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

// CreateReservation files a reservation for the authenticated user.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var dto CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateReservation: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.Create(userID, dto)
	if err != nil {
		h.writeServiceError(w, err, "CreateReservation")
		return
	}
	h.WriteJSON(w, http.StatusCreated, res)
}

// MyReservations lists the authenticated user's reservations.
func (h *Handler) MyReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.Service.ListForUser(userID)
	if err != nil {
		h.Logger.Error("MyReservations: service error", "error", err, "user_id", userID)
		h.WriteError(w, http.StatusInternalServerError, "failed to fetch reservations")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"reservations": list})
}

// ListReservations is the admin view, optionally filtered by status.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListAll(r.URL.Query().Get("status"))
	if err != nil {
		h.Logger.Error("ListReservations: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to fetch reservations")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"reservations": list})
}

// UpdateStatus approves or rejects a reservation.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	var dto StatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateStatus: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.writeServiceError(w, err, "UpdateStatus")
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// AvailableLocks lists reservable locks free for a slot.
func (h *Handler) AvailableLocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dto := AvailabilityDTO{
		Date:      q.Get("date"),
		StartTime: q.Get("start_time"),
		EndTime:   q.Get("end_time"),
	}

	locks, err := h.Service.AvailableLocks(dto)
	if err != nil {
		h.writeServiceError(w, err, "AvailableLocks")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"locks": locks})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrSlotConflict):
		h.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrLockNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotReservable), errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrInvalidTransition):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error(op+": service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

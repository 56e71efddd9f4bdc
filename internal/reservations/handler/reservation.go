package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"reservations/internal/coordinator"
	"reservations/internal/notification"
	apperrors "reservations/pkg/errors"
	httputil "reservations/pkg/http"
	"reservations/pkg/logger"
	"reservations/pkg/middleware"
	"reservations/pkg/model"
	"reservations/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

const HeaderPendingCancellations = "X-Pending-Cancellations"

type ReservationService interface {
	Submit(ctx context.Context, req model.ReservationRequest) model.Outcome
	Release(ctx context.Context, facility, bookingID string) error
	Booking(facility, bookingID string) (model.Booking, error)
	Facilities() []coordinator.FacilityStatus
	SubscribeCancellations(userID string) *notification.Subscription
}

type ReservationHandler struct {
	service         ReservationService
	longPollTimeout time.Duration
	log             *logger.Logger
}

func NewReservationHandler(service ReservationService, longPollTimeout time.Duration, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:         service,
		longPollTimeout: longPollTimeout,
		log:             log,
	}
}

// Create submits a reservation. Admitted outcomes answer 201; rejected ones
// carry the outcome with the status of its error (409 capacity, 400 invalid).
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReservationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	req.UserID = sanitizer.NormalizeUserID(req.UserID)
	if req.UserID == "" {
		req.UserID = sanitizer.NormalizeUserID(r.Header.Get(middleware.HeaderUserID))
	}
	req.Facilities = sanitizer.NormalizeFacilities(req.Facilities)

	outcome := h.service.Submit(r.Context(), req)

	status := http.StatusCreated
	if !outcome.IsAdmitted() {
		status = apperrors.AsAppError(outcome.Err()).StatusCode()
	}
	if err := httputil.WriteJSON(w, status, outcome); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", err)
	}
}

func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Release(r.Context(), ps.ByName("facility"), ps.ByName("id")); err != nil {
		h.writeError(w, "Release", err)
		return
	}
	httputil.WriteNoContent(w)
}

// Booking reports a held booking, Active or Cancelled. Released bookings, and
// cancelled ones whose range has ended, are 404.
func (h *ReservationHandler) Booking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	b, err := h.service.Booking(ps.ByName("facility"), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Booking", err)
		return
	}
	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "Booking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Facilities(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, h.service.Facilities()); err != nil {
		h.log.Error("failed to write success response", "handler", "Facilities", "operation", "WriteSuccess", "error", err)
	}
}

// Cancellations long-polls the user's mailbox: 200 with the next
// notification and the number still queued in X-Pending-Cancellations, or 204
// when none arrived within the long-poll timeout.
func (h *ReservationHandler) Cancellations(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := sanitizer.NormalizeUserID(ps.ByName("id"))
	if userID == "" {
		h.writeError(w, "Cancellations", apperrors.InvalidInput("user id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.longPollTimeout)
	defer cancel()

	sub := h.service.SubscribeCancellations(userID)
	defer sub.Close()

	n, err := sub.Next(ctx)
	switch {
	case err == nil:
		w.Header().Set(HeaderPendingCancellations, strconv.Itoa(sub.Pending()))
		if err := httputil.WriteSuccess(w, n); err != nil {
			h.log.Error("failed to write success response", "handler", "Cancellations", "operation", "WriteSuccess", "error", err)
		}
	case errors.Is(err, context.DeadlineExceeded):
		httputil.WriteNoContent(w)
	case errors.Is(err, notification.ErrChannelClosed):
		h.writeError(w, "Cancellations", apperrors.Unavailable("notification channel"))
	case errors.Is(err, context.Canceled):
		h.log.Debug("Cancellation poll abandoned by client",
			"request_id", middleware.RequestID(r.Context()),
			"user_id", userID,
		)
	default:
		h.writeError(w, "Cancellations", apperrors.Internal("failed to read cancellations", err))
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/reservations", h.Create)
	router.GET("/facilities", h.Facilities)
	router.GET("/facilities/:facility/bookings/:id", h.Booking)
	router.DELETE("/facilities/:facility/bookings/:id", h.Release)
	router.GET("/users/:id/cancellations", h.Cancellations)
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

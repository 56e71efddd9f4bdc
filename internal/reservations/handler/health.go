package handler

import (
	"net/http"

	httputil "reservations/pkg/http"
	"reservations/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type HealthResponse struct {
	Status         string `json:"status"`
	Notifications  string `json:"notifications,omitempty"`
	DeliveryFaults int64  `json:"delivery_faults"`
}

type ReadinessChecker interface {
	Closed() bool
	DeliveryFaults() int64
}

type HealthHandler struct {
	checker ReadinessChecker
	log     *logger.Logger
}

func NewHealthHandler(checker ReadinessChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		log:     log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready fails once the notification channel is closed. Delivery faults are
// reported but never make the service unready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	faults := h.checker.DeliveryFaults()

	if h.checker.Closed() {
		h.log.Warn("Readiness check failed",
			"reason", "notification channel closed",
			"path", r.URL.Path,
		)
		if err := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:         "unavailable",
			Notifications:  "closed",
			DeliveryFaults: faults,
		}); err != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:         "ready",
		Notifications:  "ok",
		DeliveryFaults: faults,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/services"
)

// Dispatcher handles one inbound chat event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev models.Event)
}

type EventsHandler struct {
	router    Dispatcher
	validator *services.ValidationHelper
	log       *logger.Logger
}

func NewEventsHandler(router Dispatcher, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		router:    router,
		validator: services.NewValidationHelper(),
		log:       log.With("handler", "EventsHandler"),
	}
}

// Receive accepts one event from the chat gateway
// @Summary Receive chat event
// @Description Deliver one inbound chat event. The event is handled before the response is written, so a gateway that waits for each response keeps per-user order.
// @Tags events
// @Accept json
// @Produce json
// @Param X-Webhook-Secret header string true "Shared webhook secret"
// @Param request body models.Event true "Inbound event"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /events [post]
func (h *EventsHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var ev models.Event
	if err := services.DecodeJSONBody(w, r, &ev); err != nil {
		h.log.Warn("event rejected", "error", err)
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&ev); err != nil {
		h.log.Warn("event failed validation", "kind", ev.Kind, "error", err)
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	h.router.Dispatch(r.Context(), ev)
	services.WriteJSON(w, map[string]string{"status": "ok"})
}

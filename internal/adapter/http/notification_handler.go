package http

import (
	"net/http"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
)

type NotificationHandler struct {
	service interfaces.NotificationService
	logger  logger.Logger
}

func NewNotificationHandler(service interfaces.NotificationService, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	n, err := h.service.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"unread": n,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), actor.UserID); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

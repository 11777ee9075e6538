package http

import (
	"net/http"
	"strings"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

type TrackingHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *TrackingHandler) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetOrderStatus(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if !canView(actor, result.Order) {
		respondError(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	respondJSON(w, http.StatusOK, newTrackingResponse(result))
}

func (h *TrackingHandler) GetWorkOrderByNumber(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	number := strings.TrimSpace(r.URL.Query().Get("number"))
	if number == "" {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "number", Message: "number is required"}})
		return
	}

	result, err := h.service.GetOrderByNumber(r.Context(), number)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if !canView(actor, result.Order) {
		respondError(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	respondJSON(w, http.StatusOK, newTrackingResponse(result))
}

func (h *TrackingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}

	history, err := h.service.GetOrderHistory(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]StatusLogResponse, len(history))
	for i, l := range history {
		resp[i] = newStatusLogResponse(l)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	statuses, err := h.service.GetAvailableActions(r.Context(), orderID, actor.Role)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	actions := make([]string, len(statuses))
	for i, s := range statuses {
		actions[i] = string(s)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
	})
}

func (h *TrackingHandler) GetSubStatusOptions(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(strings.ToUpper(r.URL.Query().Get("status")))
	if !status.Valid() {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "status", Message: "unknown status"}})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"options": subStatusStrings(domain.SubStatusOptions(status)),
	})
}

func (h *TrackingHandler) GetComplianceReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	var clientID *uuid.UUID
	switch actor.Role {
	case domain.RoleClient:
		clientID = &actor.UserID
	case domain.RoleAdmin, domain.RoleManager, domain.RoleFinance:
		if raw := r.URL.Query().Get("client_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "client_id", Message: "invalid uuid"}})
				return
			}
			clientID = &id
		}
	default:
		respondError(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	summary, err := h.service.GetComplianceReport(r.Context(), clientID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newComplianceReportResponse(summary))
}

// visibleOrder resolves the path id and, for clients and technicians,
// checks the order is theirs.
func (h *TrackingHandler) visibleOrder(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return uuid.Nil, false
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if actor.Role != domain.RoleClient && actor.Role != domain.RoleTechnician {
		return orderID, true
	}

	result, err := h.service.GetOrderStatus(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return uuid.Nil, false
	}
	if !canView(actor, result.Order) {
		respondError(w, "Forbidden", http.StatusForbidden, nil)
		return uuid.Nil, false
	}
	return orderID, true
}

// Clients see their own orders, technicians the ones assigned to them.
func canView(actor domain.Actor, order *domain.WorkOrder) bool {
	switch actor.Role {
	case domain.RoleClient:
		return order.ClientID == actor.UserID
	case domain.RoleTechnician:
		return order.IsAssignedTo(actor.UserID)
	}
	return true
}

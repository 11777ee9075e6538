package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

type WorkOrderHandler struct {
	service interfaces.WorkOrderService
	logger  logger.Logger
}

func NewWorkOrderHandler(service interfaces.WorkOrderService, logger logger.Logger) *WorkOrderHandler {
	return &WorkOrderHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WorkOrderHandler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req CreateWorkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if validationErrors := validateCreateWorkOrderRequest(req); len(validationErrors) > 0 {
		h.logger.Debug("validation_failed", "Work order validation failed", RequestIDFromContext(r.Context()), map[string]interface{}{
			"errors": validationErrors,
		})
		respondError(w, "Validation failed", http.StatusBadRequest, validationErrors)
		return
	}

	cmd := interfaces.CreateWorkOrderCommand{
		Actor:         actor,
		ContractID:    req.ContractID,
		Category:      domain.Category(strings.ToUpper(req.Category)),
		Priority:      domain.Priority(strings.ToUpper(req.Priority)),
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		SiteLatitude:  req.SiteLatitude,
		SiteLongitude: req.SiteLongitude,
	}
	if req.ClientID != nil {
		cmd.ClientID = *req.ClientID
	}

	order, err := h.service.CreateWorkOrder(r.Context(), cmd)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, newWorkOrderResponse(order))
}

func validateCreateWorkOrderRequest(req CreateWorkOrderRequest) []ValidationError {
	var errors []ValidationError

	if !domain.Category(strings.ToUpper(req.Category)).Valid() {
		errors = append(errors, ValidationError{
			Field:   "category",
			Message: "category must be one of: ELECTRICAL, MECHANICAL, HVAC, PLUMBING, CIVIL, OTHER",
		})
	}
	if !domain.Priority(strings.ToUpper(req.Priority)).Valid() {
		errors = append(errors, ValidationError{
			Field:   "priority",
			Message: "priority must be one of: NORMAL, URGENT, EMERGENCY",
		})
	}

	title := strings.TrimSpace(req.Title)
	if len(title) < 1 {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if len(title) > 200 {
		errors = append(errors, ValidationError{Field: "title", Message: "title must not exceed 200 characters"})
	}

	if (req.SiteLatitude == nil) != (req.SiteLongitude == nil) {
		errors = append(errors, ValidationError{
			Field:   "site_latitude",
			Message: "site latitude and longitude must be given together",
		})
	}
	if req.SiteLatitude != nil && (*req.SiteLatitude < -90 || *req.SiteLatitude > 90) {
		errors = append(errors, ValidationError{Field: "site_latitude", Message: "latitude must be between -90 and 90"})
	}
	if req.SiteLongitude != nil && (*req.SiteLongitude < -180 || *req.SiteLongitude > 180) {
		errors = append(errors, ValidationError{Field: "site_longitude", Message: "longitude must be between -180 and 180"})
	}

	return errors
}

func (h *WorkOrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	to := domain.Status(strings.ToUpper(req.To))
	if !to.Valid() {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "to", Message: "unknown status"}})
		return
	}

	cmd := interfaces.TransitionCommand{
		OrderID: orderID,
		To:      to,
		Actor:   actor,
		Data:    req.data(),
	}
	if req.ExpectedFrom != "" {
		from := domain.Status(strings.ToUpper(req.ExpectedFrom))
		if !from.Valid() {
			respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "expected_from", Message: "unknown status"}})
			return
		}
		cmd.ExpectedFrom = &from
	}

	order, err := h.service.Transition(r.Context(), cmd)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newWorkOrderResponse(order))
}

func (h *WorkOrderHandler) AssignTechnician(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TechnicianID == uuid.Nil {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "technician_id", Message: "technician is required"}})
		return
	}

	order, err := h.service.AssignTechnician(r.Context(), interfaces.AssignTechnicianCommand{
		OrderID:       orderID,
		Actor:         actor,
		TechnicianID:  req.TechnicianID,
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newWorkOrderResponse(order))
}

func (h *WorkOrderHandler) UnassignTechnician(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.UnassignTechnician(r.Context(), orderID, actor)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newWorkOrderResponse(order))
}

func (h *WorkOrderHandler) AttachContract(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	var req AttachContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContractID == uuid.Nil {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{{Field: "contract_id", Message: "contract is required"}})
		return
	}

	order, err := h.service.AttachContract(r.Context(), orderID, req.ContractID, actor)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newWorkOrderResponse(order))
}

func (h *WorkOrderHandler) SetSubStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	var req SubStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	order, err := h.service.SetSubStatus(r.Context(), orderID, subStatusPtr(req.SubStatus), actor)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newWorkOrderResponse(order))
}

func (h *WorkOrderHandler) DeleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteWorkOrder(r.Context(), orderID, actor); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func actorOrUnauthorized(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return actor, ok
}

func pathOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, "Invalid work order id", http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

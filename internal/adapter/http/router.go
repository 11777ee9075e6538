package http

import (
	"net/http"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
)

// NewRouter wires every route behind logging and recovery. Everything but
// /health requires a bearer token.
func NewRouter(
	workOrders *WorkOrderHandler,
	tracking *TrackingHandler,
	notifications *NotificationHandler,
	jwtSecret []byte,
	logger logger.Logger,
) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /work-orders", workOrders.CreateWorkOrder)
	api.HandleFunc("GET /work-orders/{id}", tracking.GetWorkOrder)
	api.HandleFunc("DELETE /work-orders/{id}", workOrders.DeleteWorkOrder)
	api.HandleFunc("GET /work-orders", tracking.GetWorkOrderByNumber)

	api.HandleFunc("POST /work-orders/{id}/transitions", workOrders.Transition)
	api.HandleFunc("GET /work-orders/{id}/actions", tracking.GetActions)
	api.HandleFunc("GET /work-orders/{id}/history", tracking.GetHistory)

	api.HandleFunc("PUT /work-orders/{id}/assignment", workOrders.AssignTechnician)
	api.HandleFunc("DELETE /work-orders/{id}/assignment", workOrders.UnassignTechnician)
	api.HandleFunc("PUT /work-orders/{id}/contract", workOrders.AttachContract)
	api.HandleFunc("PUT /work-orders/{id}/sub-status", workOrders.SetSubStatus)

	api.HandleFunc("GET /sub-status-options", tracking.GetSubStatusOptions)
	api.HandleFunc("GET /reports/sla-compliance", tracking.GetComplianceReport)

	api.HandleFunc("GET /notifications/unread-count", notifications.UnreadCount)
	api.HandleFunc("POST /notifications/read", notifications.MarkRead)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/", AuthMiddleware(jwtSecret, logger)(api))

	return LoggingMiddleware(logger)(RecoveryMiddleware(logger)(root))
}

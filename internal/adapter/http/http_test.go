package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/adapter/memory"
	"github.com/YelzhanWeb/fieldops/internal/app/notification"
	"github.com/YelzhanWeb/fieldops/internal/app/tracking"
	"github.com/YelzhanWeb/fieldops/internal/app/workorder"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type testServer struct {
	handler    http.Handler
	orders     *workorder.Service
	manager    domain.Actor
	client     domain.Actor
	otherUser  domain.Actor
	technician domain.Actor
	contractID uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	users := memory.NewUserRepository()
	contracts := memory.NewContractRepository()
	orderRepo := memory.NewWorkOrderRepository()

	ts := &testServer{
		manager:    domain.Actor{UserID: uuid.New(), Role: domain.RoleManager},
		client:     domain.Actor{UserID: uuid.New(), Role: domain.RoleClient},
		otherUser:  domain.Actor{UserID: uuid.New(), Role: domain.RoleClient},
		technician: domain.Actor{UserID: uuid.New(), Role: domain.RoleTechnician},
	}
	for _, a := range []domain.Actor{ts.manager, ts.client, ts.otherUser, ts.technician} {
		require.NoError(t, users.Create(ctx, &domain.User{ID: a.UserID, Name: string(a.Role), Role: a.Role, Active: true}))
	}

	ts.contractID = uuid.New()
	require.NoError(t, contracts.Create(ctx, &domain.Contract{
		ID: ts.contractID, ClientID: ts.client.UserID, Active: true,
		Policies: []domain.SLAPolicy{{Priority: domain.PriorityEmergency, FirstResponseMinutes: 15, OnSiteMinutes: 60, ResolutionMinutes: 240}},
	}))

	notifier := notification.NewService(memory.NewOutbox(), users, memory.NewCounterStore(), log)
	ts.orders = workorder.NewService(orderRepo, contracts, users, notifier, log)
	trackingService := tracking.NewService(orderRepo, log, nil)

	ts.handler = NewRouter(
		NewWorkOrderHandler(ts.orders, log),
		NewTrackingHandler(trackingService, log),
		NewNotificationHandler(notifier, log),
		testSecret,
		log,
	)
	return ts
}

func (ts *testServer) do(t *testing.T, actor *domain.Actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		token, err := SignToken(testSecret, *actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (ts *testServer) createOrder(t *testing.T) WorkOrderResponse {
	t.Helper()
	rec := ts.do(t, &ts.client, http.MethodPost, "/work-orders", CreateWorkOrderRequest{
		ContractID: &ts.contractID,
		Category:   "hvac",
		Priority:   "EMERGENCY",
		Title:      "Chiller sin presión",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[WorkOrderResponse](t, rec)
}

func TestHealth_NoAuth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestAuth_Rejects(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, nil, http.MethodGet, "/reports/sla-compliance", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := SignToken([]byte("other-secret"), ts.manager, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/reports/sla-compliance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := SignToken(testSecret, ts.manager, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/reports/sla-compliance", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseBearer(t *testing.T) {
	actor := domain.Actor{UserID: uuid.New(), Role: domain.RoleTechnician}
	token, err := SignToken(testSecret, actor, time.Hour)
	require.NoError(t, err)

	got, err := parseBearer("Bearer "+token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, actor, got)

	_, err = parseBearer(token, testSecret)
	assert.Error(t, err)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "JANITOR",
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
	})
	signed, err := unknownRole.SignedString(testSecret)
	require.NoError(t, err)
	_, err = parseBearer("Bearer "+signed, testSecret)
	assert.ErrorIs(t, err, domain.ErrValidation)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"},
	})
	signed, err = badSubject.SignedString(testSecret)
	require.NoError(t, err)
	_, err = parseBearer("Bearer "+signed, testSecret)
	assert.Error(t, err)
}

func TestCreateWorkOrder(t *testing.T) {
	ts := newTestServer(t)
	order := ts.createOrder(t)

	assert.Equal(t, "WO-00000001", order.Number)
	assert.Equal(t, "REQUESTED", order.Status)
	assert.Equal(t, "HVAC", order.Category)
	assert.Equal(t, ts.client.UserID, order.ClientID)
	require.NotNil(t, order.SLADeadlines.FirstResponse)
	assert.Equal(t, 15*time.Minute, order.SLADeadlines.FirstResponse.Sub(order.CreatedAt))
	assert.Equal(t, 240*time.Minute, order.SLADeadlines.Resolution.Sub(order.CreatedAt))
}

func TestCreateWorkOrder_Validation(t *testing.T) {
	ts := newTestServer(t)
	lat := 95.0

	rec := ts.do(t, &ts.client, http.MethodPost, "/work-orders", CreateWorkOrderRequest{
		Category:     "GARDEN",
		Priority:     "LOW",
		SiteLatitude: &lat,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	fields := map[string]bool{}
	for _, e := range resp.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["category"])
	assert.True(t, fields["priority"])
	assert.True(t, fields["title"])
	assert.True(t, fields["site_latitude"])

	rec = ts.do(t, &domain.Actor{UserID: uuid.New(), Role: domain.RoleHR}, http.MethodPost, "/work-orders", CreateWorkOrderRequest{
		Category: "CIVIL", Priority: "NORMAL", Title: "Grieta",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransition_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	order := ts.createOrder(t)
	base := "/work-orders/" + order.ID.String()
	when := time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)

	rec := ts.do(t, &ts.manager, http.MethodPost, base+"/transitions", TransitionRequest{To: "SCHEDULED"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ReasonPrecondition, decode[ErrorResponse](t, rec).Reason)

	rec = ts.do(t, &ts.manager, http.MethodPost, base+"/transitions", TransitionRequest{
		To: "SCHEDULED", ExpectedFrom: "REQUESTED", TechnicianID: &ts.technician.UserID, ScheduledDate: &when,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SCHEDULED", decode[WorkOrderResponse](t, rec).Status)

	// stale expectation
	rec = ts.do(t, &ts.client, http.MethodPost, base+"/transitions", TransitionRequest{To: "CANCELLED", ExpectedFrom: "REQUESTED"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ReasonStaleStatus, decode[ErrorResponse](t, rec).Reason)

	rec = ts.do(t, &ts.otherUser, http.MethodPost, base+"/transitions", TransitionRequest{To: "CANCELLED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &ts.technician, http.MethodGet, base+"/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"IN_PROGRESS"}, decode[map[string]interface{}](t, rec)["actions"])

	sub := "en_sitio"
	lat, lon := 4.65, -74.05
	rec = ts.do(t, &ts.technician, http.MethodPost, base+"/transitions", TransitionRequest{
		To: "IN_PROGRESS", CheckInAt: &when, SubStatus: &sub, Latitude: &lat, Longitude: &lon,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[WorkOrderResponse](t, rec)
	require.NotNil(t, got.SubStatus)
	assert.Equal(t, "en_sitio", *got.SubStatus)

	rec = ts.do(t, &ts.client, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]StatusLogResponse](t, rec)
	require.Len(t, history, 3)
	assert.Nil(t, history[0].PreviousStatus)
	assert.Equal(t, "IN_PROGRESS", history[2].NewStatus)

	rec = ts.do(t, &ts.otherUser, http.MethodGet, base+"/history", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.orders.Wait()
}

func TestTransition_BadInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &ts.manager, http.MethodPost, "/work-orders/not-a-uuid/transitions", TransitionRequest{To: "SCHEDULED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodPost, "/work-orders/"+uuid.NewString()+"/transitions", TransitionRequest{To: "SCHEDULED"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodPost, "/work-orders/"+uuid.NewString()+"/transitions", TransitionRequest{To: "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWorkOrder_Tracking(t *testing.T) {
	ts := newTestServer(t)
	order := ts.createOrder(t)

	rec := ts.do(t, &ts.client, http.MethodGet, "/work-orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[TrackingResponse](t, rec)
	assert.Equal(t, order.Number, resp.Order.Number)
	require.NotNil(t, resp.SLA.Resolution)
	assert.Equal(t, "OK", resp.SLA.Resolution.Status)
	require.NotNil(t, resp.SLA.FirstResponse)
	assert.Equal(t, "CRITICAL", resp.SLA.FirstResponse.Status)
	assert.Equal(t, []*string{nil}, resp.SubStatusOptions)

	rec = ts.do(t, &ts.manager, http.MethodGet, "/work-orders?number="+order.Number, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.ID, decode[TrackingResponse](t, rec).Order.ID)

	rec = ts.do(t, &ts.otherUser, http.MethodGet, "/work-orders/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodGet, "/work-orders?number=WO-99999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.orders.Wait()
}

func TestGetWorkOrder_TechnicianScope(t *testing.T) {
	ts := newTestServer(t)
	order := ts.createOrder(t)
	base := "/work-orders/" + order.ID.String()

	rec := ts.do(t, &ts.technician, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, &ts.technician, http.MethodGet, base+"/history", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, &ts.technician, http.MethodGet, "/work-orders?number="+order.Number, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodPut, base+"/assignment", AssignRequest{TechnicianID: ts.technician.UserID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, &ts.technician, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, &ts.technician, http.MethodGet, base+"/history", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.orders.Wait()
}

func TestEditPaths(t *testing.T) {
	ts := newTestServer(t)
	order := ts.createOrder(t)
	base := "/work-orders/" + order.ID.String()

	rec := ts.do(t, &ts.client, http.MethodPut, base+"/assignment", AssignRequest{TechnicianID: ts.technician.UserID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodPut, base+"/assignment", AssignRequest{TechnicianID: ts.technician.UserID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ts.technician.UserID, *decode[WorkOrderResponse](t, rec).TechnicianID)

	rec = ts.do(t, &ts.manager, http.MethodDelete, base+"/assignment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[WorkOrderResponse](t, rec).TechnicianID)

	rec = ts.do(t, &ts.manager, http.MethodPut, base+"/contract", AttachContractRequest{ContractID: ts.contractID})
	assert.Equal(t, http.StatusOK, rec.Code)

	sub := "en_sitio"
	rec = ts.do(t, &ts.manager, http.MethodPut, base+"/sub-status", SubStatusRequest{SubStatus: &sub})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
	rec = ts.do(t, &admin, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, &admin, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.orders.Wait()
}

func TestSubStatusOptions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &ts.technician, http.MethodGet, "/sub-status-options?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "PENDING", resp["status"])
	assert.Equal(t, []interface{}{"esperando_aprobacion", "esperando_repuesto", "esperando_cliente"}, resp["options"])

	rec = ts.do(t, &ts.technician, http.MethodGet, "/sub-status-options?status=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplianceReport(t *testing.T) {
	ts := newTestServer(t)
	ts.createOrder(t)

	rec := ts.do(t, &ts.client, http.MethodGet, "/reports/sla-compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[ComplianceReportResponse](t, rec).Orders)

	rec = ts.do(t, &ts.manager, http.MethodGet, "/reports/sla-compliance?client_id="+ts.otherUser.UserID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[ComplianceReportResponse](t, rec).Orders)

	rec = ts.do(t, &ts.technician, http.MethodGet, "/reports/sla-compliance", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.orders.Wait()
}

func TestNotifications_UnreadCount(t *testing.T) {
	ts := newTestServer(t)
	ts.createOrder(t)
	ts.orders.Wait()

	rec := ts.do(t, &ts.manager, http.MethodGet, "/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, rec)["unread"])

	rec = ts.do(t, &ts.manager, http.MethodPost, "/notifications/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, &ts.manager, http.MethodGet, "/notifications/unread-count", nil)
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, rec)["unread"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

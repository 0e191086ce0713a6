package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockComplianceService struct {
	MockSubmitErasureRequest func(actor domain.Actor, kind domain.ErasureType, justification *string) (domain.ErasureRequest, error)
	MockUpdateErasureRequest func(actor domain.Actor, id domain.ErasureId, update domain.ErasureUpdate) (domain.ErasureRequest, error)
	MockDeleteErasureRequest func(actor domain.Actor, id domain.ErasureId) error
	MockGetErasureRequest    func(actor domain.Actor, id domain.ErasureId, withDeleted bool) (domain.ErasureRequest, error)
	MockListErasureRequests  func(actor domain.Actor, status *domain.ErasureStatus, filter domain.ListFilter) ([]domain.ErasureRequest, error)
	MockRecordEvent          func(actor domain.Actor, input service.NewComplianceEvent) (domain.ComplianceEvent, error)
	MockResolveEvent         func(actor domain.Actor, id domain.EventId) (domain.ComplianceEvent, error)
	MockListEvents           func(actor domain.Actor, status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error)
	MockRequestDashboard     func(actor domain.Actor) (domain.PrivacyDashboard, error)
	MockUpdateDashboard      func(actor domain.Actor, id domain.DashboardId, update domain.DashboardUpdate) (domain.PrivacyDashboard, error)
	MockGetDashboard         func(actor domain.Actor, id domain.DashboardId, withDeleted bool) (domain.PrivacyDashboard, error)
	MockDeleteDashboard      func(actor domain.Actor, id domain.DashboardId) error
}

func (m *MockComplianceService) SubmitErasureRequest(ctx context.Context, actor domain.Actor, kind domain.ErasureType, justification *string) (domain.ErasureRequest, error) {
	if m.MockSubmitErasureRequest != nil {
		return m.MockSubmitErasureRequest(actor, kind, justification)
	}
	return domain.ErasureRequest{}, nil
}

func (m *MockComplianceService) UpdateErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId, update domain.ErasureUpdate) (domain.ErasureRequest, error) {
	if m.MockUpdateErasureRequest != nil {
		return m.MockUpdateErasureRequest(actor, id, update)
	}
	return domain.ErasureRequest{}, nil
}

func (m *MockComplianceService) DeleteErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId) error {
	if m.MockDeleteErasureRequest != nil {
		return m.MockDeleteErasureRequest(actor, id)
	}
	return nil
}

func (m *MockComplianceService) GetErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId, withDeleted bool) (domain.ErasureRequest, error) {
	if m.MockGetErasureRequest != nil {
		return m.MockGetErasureRequest(actor, id, withDeleted)
	}
	return domain.ErasureRequest{}, nil
}

func (m *MockComplianceService) ListErasureRequests(ctx context.Context, actor domain.Actor, status *domain.ErasureStatus, filter domain.ListFilter) ([]domain.ErasureRequest, error) {
	if m.MockListErasureRequests != nil {
		return m.MockListErasureRequests(actor, status, filter)
	}
	return nil, nil
}

func (m *MockComplianceService) RecordEvent(ctx context.Context, actor domain.Actor, input service.NewComplianceEvent) (domain.ComplianceEvent, error) {
	if m.MockRecordEvent != nil {
		return m.MockRecordEvent(actor, input)
	}
	return domain.ComplianceEvent{}, nil
}

func (m *MockComplianceService) ResolveEvent(ctx context.Context, actor domain.Actor, id domain.EventId) (domain.ComplianceEvent, error) {
	if m.MockResolveEvent != nil {
		return m.MockResolveEvent(actor, id)
	}
	return domain.ComplianceEvent{}, nil
}

func (m *MockComplianceService) ListEvents(ctx context.Context, actor domain.Actor, status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error) {
	if m.MockListEvents != nil {
		return m.MockListEvents(actor, status, filter)
	}
	return nil, nil
}

func (m *MockComplianceService) RequestDashboard(ctx context.Context, actor domain.Actor) (domain.PrivacyDashboard, error) {
	if m.MockRequestDashboard != nil {
		return m.MockRequestDashboard(actor)
	}
	return domain.PrivacyDashboard{}, nil
}

func (m *MockComplianceService) UpdateDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId, update domain.DashboardUpdate) (domain.PrivacyDashboard, error) {
	if m.MockUpdateDashboard != nil {
		return m.MockUpdateDashboard(actor, id, update)
	}
	return domain.PrivacyDashboard{}, nil
}

func (m *MockComplianceService) GetDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId, withDeleted bool) (domain.PrivacyDashboard, error) {
	if m.MockGetDashboard != nil {
		return m.MockGetDashboard(actor, id, withDeleted)
	}
	return domain.PrivacyDashboard{}, nil
}

func (m *MockComplianceService) DeleteDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId) error {
	if m.MockDeleteDashboard != nil {
		return m.MockDeleteDashboard(actor, id)
	}
	return nil
}

func setupComplianceRouter(actor domain.Actor, compliance *MockComplianceService) *chi.Mux {
	h := &Handler{compliance: compliance, cfg: testConfig()}
	return withActor(actor, func(r chi.Router) {
		r.Post("/v1/compliance/erasure-requests", h.SubmitErasureRequest)
		r.Get("/v1/compliance/erasure-requests", h.ListErasureRequests)
		r.Get("/v1/compliance/erasure-requests/{requestId}", h.GetErasureRequest)
		r.Delete("/v1/compliance/erasure-requests/{requestId}", h.DeleteErasureRequest)
		r.Patch("/v1/admin/compliance/erasure-requests/{requestId}", h.UpdateErasureRequest)
		r.Post("/v1/admin/compliance/events", h.RecordEvent)
		r.Get("/v1/admin/compliance/events", h.ListEvents)
		r.Post("/v1/admin/compliance/events/{eventId}/resolve", h.ResolveEvent)
		r.Post("/v1/compliance/dashboards", h.RequestDashboard)
		r.Get("/v1/compliance/dashboards/{dashboardId}", h.GetDashboard)
		r.Delete("/v1/compliance/dashboards/{dashboardId}", h.DeleteDashboard)
		r.Patch("/v1/admin/compliance/dashboards/{dashboardId}", h.UpdateDashboard)
	})
}

func TestSubmitErasureRequestHandler(t *testing.T) {
	router := setupComplianceRouter(memberActor(), &MockComplianceService{
		MockSubmitErasureRequest: func(actor domain.Actor, kind domain.ErasureType, justification *string) (domain.ErasureRequest, error) {
			assert.Equal(t, domain.ErasureGDPR, kind)
			assert.Nil(t, justification)
			return domain.ErasureRequest{Id: uuid.New(), AccountId: actor.AccountId(), Type: kind, Status: domain.ErasurePending}, nil
		},
	})

	rr := serve(router, createRequest(t, http.MethodPost, "/v1/compliance/erasure-requests", []byte(`{"type":"gdpr_erasure"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(router, createRequest(t, http.MethodPost, "/v1/compliance/erasure-requests", []byte(`{"type":"forget_me"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateErasureRequestHandler(t *testing.T) {
	id := uuid.New()

	router := setupComplianceRouter(adminActor(), &MockComplianceService{
		MockUpdateErasureRequest: func(actor domain.Actor, requestId domain.ErasureId, update domain.ErasureUpdate) (domain.ErasureRequest, error) {
			require.NotNil(t, update.Status)
			assert.Equal(t, domain.ErasureCompleted, *update.Status)
			require.NotNil(t, update.RegulatorReference)
			assert.Equal(t, "ICO-7", *update.RegulatorReference)
			return domain.ErasureRequest{}, internal_errors.InvalidTransition("erasure request", domain.ErasurePending, *update.Status)
		},
	})

	rr := serve(router, createRequest(t, http.MethodPatch, "/v1/admin/compliance/erasure-requests/"+id.String(), []byte(`{"status":"completed","regulator_reference":"ICO-7"}`)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestComplianceEventHandlers(t *testing.T) {
	accountId := uuid.New()
	eventId := uuid.New()

	router := setupComplianceRouter(adminActor(), &MockComplianceService{
		MockRecordEvent: func(actor domain.Actor, input service.NewComplianceEvent) (domain.ComplianceEvent, error) {
			require.NotNil(t, input.AccountId)
			assert.Equal(t, accountId, *input.AccountId)
			return domain.ComplianceEvent{Id: eventId, EventType: input.EventType, Status: domain.ComplianceOpen}, nil
		},
		MockResolveEvent: func(actor domain.Actor, id domain.EventId) (domain.ComplianceEvent, error) {
			return domain.ComplianceEvent{Id: id, Status: domain.ComplianceResolved}, nil
		},
		MockListEvents: func(actor domain.Actor, status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error) {
			require.NotNil(t, status)
			assert.Equal(t, domain.ComplianceOpen, *status)
			return nil, nil
		},
	})

	rr := serve(router, createRequest(t, http.MethodPost, "/v1/admin/compliance/events", []byte(`{"account_id":"`+accountId.String()+`","event_type":"breach_notice","details":"x"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(router, createRequest(t, http.MethodPost, "/v1/admin/compliance/events/"+eventId.String()+"/resolve", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"resolved"`)

	rr = serve(router, createRequest(t, http.MethodGet, "/v1/admin/compliance/events?status=open", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPrivacyDashboardHandlers(t *testing.T) {
	id := uuid.New()
	member := memberActor()

	router := setupComplianceRouter(member, &MockComplianceService{
		MockRequestDashboard: func(actor domain.Actor) (domain.PrivacyDashboard, error) {
			return domain.PrivacyDashboard{Id: id, AccountId: actor.AccountId(), Status: domain.DashboardRequested}, nil
		},
		MockGetDashboard: func(actor domain.Actor, dashboardId domain.DashboardId, withDeleted bool) (domain.PrivacyDashboard, error) {
			return domain.PrivacyDashboard{}, internal_errors.NotFound("privacy dashboard")
		},
		MockUpdateDashboard: func(actor domain.Actor, dashboardId domain.DashboardId, update domain.DashboardUpdate) (domain.PrivacyDashboard, error) {
			return domain.PrivacyDashboard{}, internal_errors.Forbidden("administrator role required")
		},
		MockDeleteDashboard: func(actor domain.Actor, dashboardId domain.DashboardId) error {
			assert.Equal(t, id, dashboardId)
			return nil
		},
	})

	rr := serve(router, createRequest(t, http.MethodPost, "/v1/compliance/dashboards", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), member.AccountId().String())

	rr = serve(router, createRequest(t, http.MethodGet, "/v1/compliance/dashboards/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(router, createRequest(t, http.MethodPatch, "/v1/admin/compliance/dashboards/"+id.String(), []byte(`{"status":"ready"}`)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(router, createRequest(t, http.MethodDelete, "/v1/compliance/dashboards/"+id.String(), nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

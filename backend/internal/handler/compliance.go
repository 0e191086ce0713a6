package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// SubmitErasureRequest handles POST /v1/compliance/erasure-requests
func (h *Handler) SubmitErasureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.SubmitErasureRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	request, err := h.compliance.SubmitErasureRequest(r.Context(), actor, domain.ErasureType(body.Type), body.Justification)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewErasureRequest(request))
}

// UpdateErasureRequest handles PATCH /v1/admin/compliance/erasure-requests/{requestId}
func (h *Handler) UpdateErasureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "requestId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.UpdateErasureRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	request, err := h.compliance.UpdateErasureRequest(r.Context(), actor, id, domain.ErasureUpdate{
		Status:             enumPtr[domain.ErasureStatus](body.Status),
		VerifierId:         body.VerifierId,
		ResponsePayload:    body.ResponsePayload,
		RegulatorReference: body.RegulatorReference,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewErasureRequest(request))
}

// DeleteErasureRequest handles DELETE /v1/compliance/erasure-requests/{requestId}
func (h *Handler) DeleteErasureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "requestId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.compliance.DeleteErasureRequest(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetErasureRequest handles GET /v1/compliance/erasure-requests/{requestId}
func (h *Handler) GetErasureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "requestId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	request, err := h.compliance.GetErasureRequest(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewErasureRequest(request))
}

// ListErasureRequests handles GET /v1/compliance/erasure-requests?status=
func (h *Handler) ListErasureRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	requests, err := h.compliance.ListErasureRequests(r.Context(), actor, enumQuery[domain.ErasureStatus](r, "status"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(requests, api.NewErasureRequest))
}

// RecordEvent handles POST /v1/admin/compliance/events
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.RecordEventRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	event, err := h.compliance.RecordEvent(r.Context(), actor, service.NewComplianceEvent{
		AccountId:        body.AccountId,
		ErasureRequestId: body.ErasureRequestId,
		EventType:        body.EventType,
		Details:          body.Details,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewComplianceEvent(event))
}

// ResolveEvent handles POST /v1/admin/compliance/events/{eventId}/resolve
func (h *Handler) ResolveEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "eventId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	event, err := h.compliance.ResolveEvent(r.Context(), actor, id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewComplianceEvent(event))
}

// ListEvents handles GET /v1/admin/compliance/events?status=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	events, err := h.compliance.ListEvents(r.Context(), actor, enumQuery[domain.ComplianceEventStatus](r, "status"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(events, api.NewComplianceEvent))
}

// RequestDashboard handles POST /v1/compliance/dashboards
func (h *Handler) RequestDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	dashboard, err := h.compliance.RequestDashboard(r.Context(), actor)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewPrivacyDashboard(dashboard))
}

// UpdateDashboard handles PATCH /v1/admin/compliance/dashboards/{dashboardId}
func (h *Handler) UpdateDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "dashboardId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.UpdateDashboardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	dashboard, err := h.compliance.UpdateDashboard(r.Context(), actor, id, domain.DashboardUpdate{
		Status:  enumPtr[domain.DashboardStatus](body.Status),
		Payload: body.Payload,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewPrivacyDashboard(dashboard))
}

// GetDashboard handles GET /v1/compliance/dashboards/{dashboardId}
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "dashboardId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	dashboard, err := h.compliance.GetDashboard(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewPrivacyDashboard(dashboard))
}

// DeleteDashboard handles DELETE /v1/compliance/dashboards/{dashboardId}
func (h *Handler) DeleteDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "dashboardId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.compliance.DeleteDashboard(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

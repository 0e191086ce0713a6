package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// SubmitReport handles POST /v1/reports
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.SubmitReportRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	report, err := h.reports.Submit(r.Context(), actor, service.NewReport{
		PostId:    body.PostId,
		CommentId: body.CommentId,
		Reason:    body.Reason,
		Details:   body.Details,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewFlagReport(report))
}

// ReviewReport handles POST /v1/reports/{reportId}/review
func (h *Handler) ReviewReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "reportId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.ReviewReportRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	report, err := h.reports.Review(r.Context(), actor, id, domain.ReportStatus(body.Status), body.ActionId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewFlagReport(report))
}

// DeleteReport handles DELETE /v1/reports/{reportId}
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "reportId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.reports.Delete(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetReport handles GET /v1/reports/{reportId}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "reportId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	report, err := h.reports.Get(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewFlagReport(report))
}

// ListReports handles GET /v1/reports?status=
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	reports, err := h.reports.List(r.Context(), actor, enumQuery[domain.ReportStatus](r, "status"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(reports, api.NewFlagReport))
}

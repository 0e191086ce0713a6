package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// FileAppeal handles POST /v1/appeals
func (h *Handler) FileAppeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.FileAppealRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	appeal, err := h.appeals.File(r.Context(), actor, service.NewAppeal{
		ActionId: body.ActionId,
		ReportId: body.ReportId,
		Reason:   body.Reason,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewAppeal(appeal))
}

// TransitionAppeal handles POST /v1/appeals/{appealId}/transition
func (h *Handler) TransitionAppeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "appealId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.AppealTransitionRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	appeal, err := h.appeals.Transition(r.Context(), actor, id, domain.AppealStatus(body.Status), body.Comment)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewAppeal(appeal))
}

// WithdrawAppeal handles DELETE /v1/appeals/{appealId}
func (h *Handler) WithdrawAppeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "appealId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.appeals.Withdraw(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAppeal handles GET /v1/appeals/{appealId}
func (h *Handler) GetAppeal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "appealId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	appeal, err := h.appeals.Get(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewAppeal(appeal))
}

// ListAppeals handles GET /v1/appeals?status=
func (h *Handler) ListAppeals(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	appeals, err := h.appeals.List(r.Context(), actor, enumQuery[domain.AppealStatus](r, "status"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(appeals, api.NewAppeal))
}

package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// CreateMember handles POST /v1/admin/members
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.CreateMemberRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	member, err := h.members.Create(r.Context(), actor, body.AccountId, body.Nickname)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewMember(member))
}

// GetMember handles GET /v1/members/{memberId}
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "memberId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	member, err := h.members.Get(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMember(member))
}

// ListMembers handles GET /v1/members?status=
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	members, err := h.members.List(r.Context(), actor, enumQuery[domain.MemberStatus](r, "status"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(members, api.NewMember))
}

// SetMemberStatus handles PUT /v1/members/{memberId}/status
func (h *Handler) SetMemberStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "memberId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.SetMemberStatusRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	member, err := h.members.SetStatus(r.Context(), actor, id, domain.MemberStatus(body.Status))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewMember(member))
}

// DeleteMember handles DELETE /v1/admin/members/{memberId}
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "memberId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.members.Delete(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

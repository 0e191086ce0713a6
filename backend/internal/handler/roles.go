package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// EscalateRole handles POST /v1/roles
func (h *Handler) EscalateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.EscalateRoleRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	assignment, err := h.roles.Escalate(r.Context(), actor, body.MemberId, domain.Role(body.Role))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewRoleAssignment(assignment))
}

// ReactivateRole handles POST /v1/roles/{assignmentId}/reactivate
func (h *Handler) ReactivateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "assignmentId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	assignment, err := h.roles.Reactivate(r.Context(), actor, id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewRoleAssignment(assignment))
}

// RevokeRole handles DELETE /v1/roles/{assignmentId}
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "assignmentId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	assignment, err := h.roles.Revoke(r.Context(), actor, id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewRoleAssignment(assignment))
}

// GetRole handles GET /v1/roles/{assignmentId}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "assignmentId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	assignment, err := h.roles.Get(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewRoleAssignment(assignment))
}

// ListRoles handles GET /v1/roles?role=
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	assignments, err := h.roles.List(r.Context(), actor, enumQuery[domain.Role](r, "role"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(assignments, api.NewRoleAssignment))
}

package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

func (h *Handler) projectAction(a domain.ModerationAction) api.ModerationAction {
	return api.NewModerationAction(a, h.render)
}

// CreateAction handles POST /v1/moderation/actions
func (h *Handler) CreateAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.CreateActionRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	action, err := h.moderation.CreateAction(r.Context(), actor, service.NewAction{
		Target: domain.ActionTarget{
			MemberId:  body.Target.MemberId,
			PostId:    body.Target.PostId,
			CommentId: body.Target.CommentId,
		},
		Type:      domain.ActionType(body.Type),
		Reason:    body.Reason,
		Narrative: body.Narrative,
		Status:    enumPtr[domain.ActionStatus](body.Status),
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, h.projectAction(action))
}

// UpdateAction handles PATCH /v1/moderation/actions/{actionId}
func (h *Handler) UpdateAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "actionId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.UpdateActionRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	action, err := h.moderation.UpdateAction(r.Context(), actor, id, domain.ActionUpdate{
		Type:        enumPtr[domain.ActionType](body.Type),
		Reason:      body.Reason,
		Narrative:   body.Narrative,
		Status:      enumPtr[domain.ActionStatus](body.Status),
		AppealId:    body.AppealId,
		ClearAppeal: body.ClearAppeal,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, h.projectAction(action))
}

// DeleteAction handles DELETE /v1/moderation/actions/{actionId}
func (h *Handler) DeleteAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "actionId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.moderation.DeleteAction(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HardDeleteAction handles DELETE /v1/admin/moderation/actions/{actionId}
func (h *Handler) HardDeleteAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "actionId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.moderation.HardDeleteAction(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAction handles GET /v1/moderation/actions/{actionId}
func (h *Handler) GetAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "actionId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	action, err := h.moderation.GetAction(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, h.projectAction(action))
}

// ListActions handles GET /v1/moderation/actions?member_id=&post_id=&comment_id=
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var target domain.ActionTarget
	if target.MemberId, err = optionalUUIDQuery(r, "member_id"); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if target.PostId, err = optionalUUIDQuery(r, "post_id"); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if target.CommentId, err = optionalUUIDQuery(r, "comment_id"); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	actions, err := h.moderation.ListActions(r.Context(), actor, target, filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(actions, h.projectAction))
}

// AppendLog handles POST /v1/moderation/actions/{actionId}/logs
func (h *Handler) AppendLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	actionId, err := uuidParam(r, "actionId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.AppendLogRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	log, err := h.moderation.AppendLog(r.Context(), actor, actionId, service.NewLog{
		EventType:       body.EventType,
		Details:         body.Details,
		RelatedAppealId: body.RelatedAppealId,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewModerationLog(log))
}

// ListLogs handles GET /v1/moderation/actions/{actionId}/logs
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	actionId, err := uuidParam(r, "actionId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	logs, err := h.moderation.ListLogs(r.Context(), actor, actionId, filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(logs, api.NewModerationLog))
}

// UpdateLog handles PATCH /v1/moderation/logs/{logId}
func (h *Handler) UpdateLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "logId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.UpdateLogRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	log, err := h.moderation.UpdateLog(r.Context(), actor, id, body.Details)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewModerationLog(log))
}

// DeleteLog handles DELETE /v1/moderation/logs/{logId}
func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "logId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.moderation.DeleteLog(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

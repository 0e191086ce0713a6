package api

import "github.com/google/uuid"

// Request DTOs for the policy endpoints. Optional fields are pointers so that an
// omitted field and an empty one can be told apart.

type CreateMemberRequest struct {
	AccountId uuid.UUID `json:"account_id" validate:"required"`
	Nickname  string    `json:"nickname" validate:"required,max=64"`
}

type SetMemberStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended locked banned"`
}

type EscalateRoleRequest struct {
	MemberId uuid.UUID `json:"member_id" validate:"required"`
	Role     string    `json:"role" validate:"required,oneof=moderator administrator"`
}

type ActionTarget struct {
	MemberId  *uuid.UUID `json:"member_id,omitempty"`
	PostId    *uuid.UUID `json:"post_id,omitempty"`
	CommentId *uuid.UUID `json:"comment_id,omitempty"`
}

type CreateActionRequest struct {
	Target    ActionTarget `json:"target"`
	Type      string       `json:"type" validate:"required"`
	Reason    string       `json:"reason" validate:"required,max=2000"`
	Narrative *string      `json:"narrative,omitempty" validate:"omitempty,max=20000"`
	Status    *string      `json:"status,omitempty"`
}

// UpdateActionRequest only has fields that may change after creation.
type UpdateActionRequest struct {
	Type        *string    `json:"type,omitempty"`
	Reason      *string    `json:"reason,omitempty" validate:"omitempty,max=2000"`
	Narrative   *string    `json:"narrative,omitempty" validate:"omitempty,max=20000"`
	Status      *string    `json:"status,omitempty"`
	AppealId    *uuid.UUID `json:"appeal_id,omitempty"`
	ClearAppeal bool       `json:"clear_appeal,omitempty"`
}

type AppendLogRequest struct {
	EventType       string     `json:"event_type" validate:"required,max=64"`
	Details         string     `json:"details" validate:"max=4000"`
	RelatedAppealId *uuid.UUID `json:"related_appeal_id,omitempty"`
}

type UpdateLogRequest struct {
	Details string `json:"details" validate:"max=4000"`
}

type FileAppealRequest struct {
	ActionId *uuid.UUID `json:"action_id,omitempty"`
	ReportId *uuid.UUID `json:"report_id,omitempty"`
	Reason   string     `json:"reason" validate:"required,max=4000"`
}

type AppealTransitionRequest struct {
	Status  string  `json:"status" validate:"required,oneof=in_review escalated resolved rejected"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=4000"`
}

type SubmitReportRequest struct {
	PostId    *uuid.UUID `json:"post_id,omitempty"`
	CommentId *uuid.UUID `json:"comment_id,omitempty"`
	Reason    string     `json:"reason" validate:"required,max=200"`
	Details   *string    `json:"details,omitempty" validate:"omitempty,max=4000"`
}

type ReviewReportRequest struct {
	Status   string     `json:"status" validate:"required,oneof=under_review accepted dismissed escalated"`
	ActionId *uuid.UUID `json:"action_id,omitempty"`
}

type CreatePostRequest struct {
	Title string `json:"title" validate:"required,max=300"`
	Body  string `json:"body" validate:"required,max=40000"`
}

type CreateCommentRequest struct {
	ParentId *uuid.UUID `json:"parent_id,omitempty"`
	Body     string     `json:"body" validate:"required,max=10000"`
}

type SubmitErasureRequest struct {
	Type          string  `json:"type" validate:"required,oneof=gdpr_erasure ccpa_deletion data_access"`
	Justification *string `json:"justification,omitempty" validate:"omitempty,max=4000"`
}

type UpdateErasureRequest struct {
	Status             *string    `json:"status,omitempty"`
	VerifierId         *uuid.UUID `json:"verifier_id,omitempty"`
	ResponsePayload    *string    `json:"response_payload,omitempty"`
	RegulatorReference *string    `json:"regulator_reference,omitempty"`
}

type RecordEventRequest struct {
	AccountId        *uuid.UUID `json:"account_id,omitempty"`
	ErasureRequestId *uuid.UUID `json:"erasure_request_id,omitempty"`
	EventType        string     `json:"event_type" validate:"required,max=64"`
	Details          string     `json:"details" validate:"max=4000"`
}

type UpdateDashboardRequest struct {
	Status  *string `json:"status,omitempty"`
	Payload *string `json:"payload,omitempty"`
}

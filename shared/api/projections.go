package api

import (
	"time"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

// Response projections. Timestamps are RFC 3339 in UTC; nullable fields are always
// present and null when unset.

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timestamp(*t)
	return &s
}

type Member struct {
	Id        domain.MemberId     `json:"id"`
	AccountId domain.AccountId    `json:"account_id"`
	Nickname  string              `json:"nickname"`
	Status    domain.MemberStatus `json:"status"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
	DeletedAt *string             `json:"deleted_at"`
}

func NewMember(m domain.Member) Member {
	return Member{
		Id:        m.Id,
		AccountId: m.AccountId,
		Nickname:  m.Nickname,
		Status:    m.Status,
		CreatedAt: timestamp(m.CreatedAt),
		UpdatedAt: timestamp(m.UpdatedAt),
		DeletedAt: optionalTimestamp(m.DeletedAt),
	}
}

type RoleAssignment struct {
	Id         domain.AssignmentId     `json:"id"`
	MemberId   domain.MemberId         `json:"member_id"`
	Role       domain.Role             `json:"role"`
	AssignedBy *domain.MemberId        `json:"assigned_by"`
	AssignedAt string                  `json:"assigned_at"`
	Status     domain.AssignmentStatus `json:"status"`
	RevokedAt  *string                 `json:"revoked_at"`
	DeletedAt  *string                 `json:"deleted_at"`
}

func NewRoleAssignment(r domain.RoleAssignment) RoleAssignment {
	return RoleAssignment{
		Id:         r.Id,
		MemberId:   r.MemberId,
		Role:       r.Role,
		AssignedBy: r.AssignedBy,
		AssignedAt: timestamp(r.AssignedAt),
		Status:     r.Status,
		RevokedAt:  optionalTimestamp(r.RevokedAt),
		DeletedAt:  optionalTimestamp(r.DeletedAt),
	}
}

// Renderer turns a markdown narrative into safe HTML.
type Renderer func(markdown string) string

type ModerationAction struct {
	Id            domain.ActionId     `json:"id"`
	ModeratorId   domain.MemberId     `json:"moderator_id"`
	Target        ActionTarget        `json:"target"`
	Type          domain.ActionType   `json:"type"`
	Reason        string              `json:"reason"`
	Narrative     *string             `json:"narrative"`
	NarrativeHTML *string             `json:"narrative_html"`
	Status        domain.ActionStatus `json:"status"`
	AppealId      *domain.AppealId    `json:"appeal_id"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
	DeletedAt     *string             `json:"deleted_at"`
}

func NewModerationAction(a domain.ModerationAction, render Renderer) ModerationAction {
	out := ModerationAction{
		Id:          a.Id,
		ModeratorId: a.ModeratorId,
		Target:      ActionTarget{MemberId: a.Target.MemberId, PostId: a.Target.PostId, CommentId: a.Target.CommentId},
		Type:        a.Type,
		Reason:      a.Reason,
		Narrative:   a.Narrative,
		Status:      a.Status,
		AppealId:    a.AppealId,
		CreatedAt:   timestamp(a.CreatedAt),
		UpdatedAt:   timestamp(a.UpdatedAt),
		DeletedAt:   optionalTimestamp(a.DeletedAt),
	}
	if a.Narrative != nil && render != nil {
		rendered := render(*a.Narrative)
		out.NarrativeHTML = &rendered
	}
	return out
}

type ModerationLog struct {
	Id              domain.LogId     `json:"id"`
	ActionId        domain.ActionId  `json:"action_id"`
	ActorId         domain.MemberId  `json:"actor_id"`
	EventType       string           `json:"event_type"`
	Details         string           `json:"details"`
	RelatedAppealId *domain.AppealId `json:"related_appeal_id"`
	CreatedAt       string           `json:"created_at"`
	DeletedAt       *string          `json:"deleted_at"`
}

func NewModerationLog(l domain.ModerationLog) ModerationLog {
	return ModerationLog{
		Id:              l.Id,
		ActionId:        l.ActionId,
		ActorId:         l.ActorId,
		EventType:       l.EventType,
		Details:         l.Details,
		RelatedAppealId: l.RelatedAppealId,
		CreatedAt:       timestamp(l.CreatedAt),
		DeletedAt:       optionalTimestamp(l.DeletedAt),
	}
}

type Appeal struct {
	Id                domain.AppealId     `json:"id"`
	AppellantId       domain.MemberId     `json:"appellant_id"`
	ActionId          *domain.ActionId    `json:"action_id"`
	ReportId          *domain.ReportId    `json:"report_id"`
	Reason            string              `json:"reason"`
	Status            domain.AppealStatus `json:"status"`
	ReviewerId        *domain.MemberId    `json:"reviewer_id"`
	ResolutionComment *string             `json:"resolution_comment"`
	ResolvedAt        *string             `json:"resolved_at"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
	DeletedAt         *string             `json:"deleted_at"`
}

func NewAppeal(a domain.Appeal) Appeal {
	return Appeal{
		Id:                a.Id,
		AppellantId:       a.AppellantId,
		ActionId:          a.ActionId,
		ReportId:          a.ReportId,
		Reason:            a.Reason,
		Status:            a.Status,
		ReviewerId:        a.ReviewerId,
		ResolutionComment: a.ResolutionComment,
		ResolvedAt:        optionalTimestamp(a.ResolvedAt),
		CreatedAt:         timestamp(a.CreatedAt),
		UpdatedAt:         timestamp(a.UpdatedAt),
		DeletedAt:         optionalTimestamp(a.DeletedAt),
	}
}

type FlagReport struct {
	Id                 domain.ReportId     `json:"id"`
	ReporterId         domain.MemberId     `json:"reporter_id"`
	PostId             *domain.PostId      `json:"post_id"`
	CommentId          *domain.CommentId   `json:"comment_id"`
	Reason             string              `json:"reason"`
	Details            *string             `json:"details"`
	Status             domain.ReportStatus `json:"status"`
	ModerationActionId *domain.ActionId    `json:"moderation_action_id"`
	ReviewedBy         *domain.MemberId    `json:"reviewed_by"`
	CreatedAt          string              `json:"created_at"`
	UpdatedAt          string              `json:"updated_at"`
	DeletedAt          *string             `json:"deleted_at"`
}

func NewFlagReport(r domain.FlagReport) FlagReport {
	return FlagReport{
		Id:                 r.Id,
		ReporterId:         r.ReporterId,
		PostId:             r.PostId,
		CommentId:          r.CommentId,
		Reason:             r.Reason,
		Details:            r.Details,
		Status:             r.Status,
		ModerationActionId: r.ModerationActionId,
		ReviewedBy:         r.ReviewedBy,
		CreatedAt:          timestamp(r.CreatedAt),
		UpdatedAt:          timestamp(r.UpdatedAt),
		DeletedAt:          optionalTimestamp(r.DeletedAt),
	}
}

type Post struct {
	Id        domain.PostId   `json:"id"`
	AuthorId  domain.MemberId `json:"author_id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	CreatedAt string          `json:"created_at"`
	DeletedAt *string         `json:"deleted_at"`
}

func NewPost(p domain.Post) Post {
	return Post{
		Id:        p.Id,
		AuthorId:  p.AuthorId,
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: timestamp(p.CreatedAt),
		DeletedAt: optionalTimestamp(p.DeletedAt),
	}
}

type Comment struct {
	Id        domain.CommentId  `json:"id"`
	PostId    domain.PostId     `json:"post_id"`
	AuthorId  domain.MemberId   `json:"author_id"`
	ParentId  *domain.CommentId `json:"parent_id"`
	Depth     int               `json:"depth"`
	Body      string            `json:"body"`
	CreatedAt string            `json:"created_at"`
	DeletedAt *string           `json:"deleted_at"`
}

func NewComment(c domain.Comment) Comment {
	return Comment{
		Id:        c.Id,
		PostId:    c.PostId,
		AuthorId:  c.AuthorId,
		ParentId:  c.ParentId,
		Depth:     c.Depth,
		Body:      c.Body,
		CreatedAt: timestamp(c.CreatedAt),
		DeletedAt: optionalTimestamp(c.DeletedAt),
	}
}

type ErasureRequest struct {
	Id                 domain.ErasureId     `json:"id"`
	AccountId          domain.AccountId     `json:"account_id"`
	Type               domain.ErasureType   `json:"type"`
	Justification      *string              `json:"justification"`
	Status             domain.ErasureStatus `json:"status"`
	SubmittedAt        string               `json:"submitted_at"`
	ProcessedAt        *string              `json:"processed_at"`
	VerifierId         *domain.MemberId     `json:"verifier_id"`
	VerifiedAt         *string              `json:"verified_at"`
	ResponsePayload    *string              `json:"response_payload"`
	RegulatorReference *string              `json:"regulator_reference"`
	DeletedAt          *string              `json:"deleted_at"`
}

func NewErasureRequest(r domain.ErasureRequest) ErasureRequest {
	return ErasureRequest{
		Id:                 r.Id,
		AccountId:          r.AccountId,
		Type:               r.Type,
		Justification:      r.Justification,
		Status:             r.Status,
		SubmittedAt:        timestamp(r.SubmittedAt),
		ProcessedAt:        optionalTimestamp(r.ProcessedAt),
		VerifierId:         r.VerifierId,
		VerifiedAt:         optionalTimestamp(r.VerifiedAt),
		ResponsePayload:    r.ResponsePayload,
		RegulatorReference: r.RegulatorReference,
		DeletedAt:          optionalTimestamp(r.DeletedAt),
	}
}

type ComplianceEvent struct {
	Id               domain.EventId               `json:"id"`
	AccountId        *domain.AccountId            `json:"account_id"`
	ErasureRequestId *domain.ErasureId            `json:"erasure_request_id"`
	EventType        string                       `json:"event_type"`
	Details          string                       `json:"details"`
	Status           domain.ComplianceEventStatus `json:"status"`
	OccurredAt       string                       `json:"occurred_at"`
	ResolvedAt       *string                      `json:"resolved_at"`
	DeletedAt        *string                      `json:"deleted_at"`
}

func NewComplianceEvent(e domain.ComplianceEvent) ComplianceEvent {
	return ComplianceEvent{
		Id:               e.Id,
		AccountId:        e.AccountId,
		ErasureRequestId: e.ErasureRequestId,
		EventType:        e.EventType,
		Details:          e.Details,
		Status:           e.Status,
		OccurredAt:       timestamp(e.OccurredAt),
		ResolvedAt:       optionalTimestamp(e.ResolvedAt),
		DeletedAt:        optionalTimestamp(e.DeletedAt),
	}
}

type PrivacyDashboard struct {
	Id          domain.DashboardId     `json:"id"`
	AccountId   domain.AccountId       `json:"account_id"`
	Status      domain.DashboardStatus `json:"status"`
	RequestedAt string                 `json:"requested_at"`
	ProcessedAt *string                `json:"processed_at"`
	Payload     *string                `json:"payload"`
	DeletedAt   *string                `json:"deleted_at"`
}

func NewPrivacyDashboard(d domain.PrivacyDashboard) PrivacyDashboard {
	return PrivacyDashboard{
		Id:          d.Id,
		AccountId:   d.AccountId,
		Status:      d.Status,
		RequestedAt: timestamp(d.RequestedAt),
		ProcessedAt: optionalTimestamp(d.ProcessedAt),
		Payload:     d.Payload,
		DeletedAt:   optionalTimestamp(d.DeletedAt),
	}
}

type AuditEntry struct {
	Id         domain.AuditId   `json:"id"`
	ActorId    *domain.MemberId `json:"actor_id"`
	EntityType string           `json:"entity_type"`
	EntityId   string           `json:"entity_id"`
	Event      string           `json:"event"`
	Details    string           `json:"details"`
	CreatedAt  string           `json:"created_at"`
}

func NewAuditEntry(e domain.AuditEntry) AuditEntry {
	return AuditEntry{
		Id:         e.Id,
		ActorId:    e.ActorId,
		EntityType: e.EntityType,
		EntityId:   e.EntityId,
		Event:      e.Event,
		Details:    e.Details,
		CreatedAt:  timestamp(e.CreatedAt),
	}
}

// Map projects every item of a listing.
func Map[T, R any](items []T, project func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, project(item))
	}
	return out
}

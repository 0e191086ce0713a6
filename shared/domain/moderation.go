package domain

import "time"

type ActionType string

const (
	ActionWarn     ActionType = "warn"
	ActionMute     ActionType = "mute"
	ActionRemove   ActionType = "remove"
	ActionEdit     ActionType = "edit"
	ActionRestrict ActionType = "restrict"
	ActionRestore  ActionType = "restore"
	ActionEscalate ActionType = "escalate"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionWarn, ActionMute, ActionRemove, ActionEdit, ActionRestrict, ActionRestore, ActionEscalate:
		return true
	}
	return false
}

type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionApplied  ActionStatus = "applied"
	ActionReversed ActionStatus = "reversed"
)

func (s ActionStatus) Valid() bool {
	return s == ActionPending || s == ActionApplied || s == ActionReversed
}

// ActionTarget names what a moderation action is aimed at. Any combination may be set;
// existence is the caller's concern.
type ActionTarget struct {
	MemberId  *MemberId
	PostId    *PostId
	CommentId *CommentId
}

type ModerationAction struct {
	Id          ActionId
	ModeratorId MemberId // member holding the moderator/administrator role
	Target      ActionTarget
	Type        ActionType
	Reason      string
	Narrative   *string
	Status      ActionStatus
	AppealId    *AppealId
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tombstone
}

// ActionUpdate lists the only fields of an action that can change after creation.
// Nil means unchanged. ClearAppeal unlinks the appeal.
type ActionUpdate struct {
	Type        *ActionType
	Reason      *string
	Narrative   *string
	Status      *ActionStatus
	AppealId    *AppealId
	ClearAppeal bool
}

func (u ActionUpdate) Apply(a *ModerationAction, now time.Time) {
	if u.Type != nil {
		a.Type = *u.Type
	}
	if u.Reason != nil {
		a.Reason = *u.Reason
	}
	if u.Narrative != nil {
		a.Narrative = u.Narrative
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.ClearAppeal {
		a.AppealId = nil
	} else if u.AppealId != nil {
		a.AppealId = u.AppealId
	}
	a.UpdatedAt = now
}

// ModerationLog is an append-only entry in an action's audit chain.
type ModerationLog struct {
	Id              LogId
	ActionId        ActionId
	ActorId         MemberId
	EventType       string
	Details         string
	RelatedAppealId *AppealId
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Tombstone
}

// AuditEntry is the board-wide append-only trail for role changes, hard deletes,
// post deletions and compliance record removals.
type AuditEntry struct {
	Id         AuditId
	ActorId    *MemberId
	EntityType string
	EntityId   string
	Event      string
	Details    string
	CreatedAt  time.Time
}

const (
	AuditRoleEscalated       = "role_escalated"
	AuditRoleReactivated     = "role_reactivated"
	AuditRoleRevoked         = "role_revoked"
	AuditMemberStatusChanged = "member_status_changed"
	AuditMemberDeleted       = "member_deleted"
	AuditActionHardDeleted   = "moderation_action_hard_deleted"
	AuditPostDeleted         = "post_deleted"
	AuditErasureDeleted      = "erasure_request_deleted"
	AuditErasureCompleted    = "erasure_request_completed"
	AuditDashboardDeleted    = "privacy_dashboard_deleted"
)

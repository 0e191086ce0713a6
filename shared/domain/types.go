package domain

import "github.com/google/uuid"

type (
	Email    = string
	Password = string

	AccountId    = uuid.UUID
	MemberId     = uuid.UUID
	AssignmentId = uuid.UUID
	ActionId     = uuid.UUID
	LogId        = uuid.UUID
	AppealId     = uuid.UUID
	ReportId     = uuid.UUID
	PostId       = uuid.UUID
	CommentId    = uuid.UUID
	ErasureId    = uuid.UUID
	EventId      = uuid.UUID
	DashboardId  = uuid.UUID
	AuditId      = uuid.UUID
	SessionId    = uuid.UUID
)

// Role is an escalation level above a plain member.
type Role string

const (
	RoleMember        Role = "member"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleModerator, RoleAdministrator:
		return true
	}
	return false
}

// Assignable reports whether r can be held as a role-assignment record.
func (r Role) Assignable() bool {
	return r == RoleModerator || r == RoleAdministrator
}

// ListFilter is shared by every listing operation.
type ListFilter struct {
	IncludeDeleted bool
	Limit          int
	Offset         int
}

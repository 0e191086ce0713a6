package service

import (
	"context"
	"time"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

// Store runs fn inside one storage transaction. A non-nil error from fn rolls
// everything back, so a policy operation either applies completely or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the storage view available inside a transaction. Get methods return a
// NotFound policy error for missing rows and, unless includeDeleted is set, for
// tombstoned ones.
type Tx interface {
	AccountStore
	MemberStore
	RoleStore
	ModerationStore
	AppealStore
	ReportStore
	PostStore
	ComplianceStore
	AuditStore
	SessionStore
}

type AccountStore interface {
	CreateAccount(account domain.Account) error
	GetAccount(id domain.AccountId) (domain.Account, error)
	GetAccountByEmailHash(hash []byte) (domain.Account, error)
	UpdateAccount(account domain.Account) error
	SaveConfirmationData(data domain.ConfirmationData) error
	GetConfirmationData(accountId domain.AccountId) (domain.ConfirmationData, error)
	DeleteConfirmationData(accountId domain.AccountId) error
}

type MemberStore interface {
	CreateMember(member domain.Member) error
	GetMember(id domain.MemberId, includeDeleted bool) (domain.Member, error)
	GetMemberByAccount(accountId domain.AccountId) (domain.Member, error)
	UpdateMember(member domain.Member) error
	ListMembers(status *domain.MemberStatus, filter domain.ListFilter) ([]domain.Member, error)
}

type RoleStore interface {
	CreateAssignment(assignment domain.RoleAssignment) error
	GetAssignment(id domain.AssignmentId, includeDeleted bool) (domain.RoleAssignment, error)
	// FindAssignment returns the single record for the pair, revoked or not.
	FindAssignment(memberId domain.MemberId, role domain.Role) (domain.RoleAssignment, error)
	UpdateAssignment(assignment domain.RoleAssignment) error
	HasActiveRole(memberId domain.MemberId, role domain.Role) (bool, error)
	// LockActiveAdministrators locks every active administrator record until the
	// transaction ends and returns their ids.
	LockActiveAdministrators() ([]domain.AssignmentId, error)
	ListAssignments(role *domain.Role, filter domain.ListFilter) ([]domain.RoleAssignment, error)
}

type ModerationStore interface {
	CreateAction(action domain.ModerationAction) error
	GetAction(id domain.ActionId, includeDeleted bool) (domain.ModerationAction, error)
	UpdateAction(action domain.ModerationAction) error
	HardDeleteAction(id domain.ActionId) error
	ListActions(target domain.ActionTarget, filter domain.ListFilter) ([]domain.ModerationAction, error)

	CreateLog(log domain.ModerationLog) error
	GetLog(id domain.LogId, includeDeleted bool) (domain.ModerationLog, error)
	UpdateLog(log domain.ModerationLog) error
	ListLogs(actionId domain.ActionId, filter domain.ListFilter) ([]domain.ModerationLog, error)
}

type AppealStore interface {
	CreateAppeal(appeal domain.Appeal) error
	GetAppeal(id domain.AppealId, includeDeleted bool) (domain.Appeal, error)
	UpdateAppeal(appeal domain.Appeal) error
	ListAppeals(status *domain.AppealStatus, filter domain.ListFilter) ([]domain.Appeal, error)
	// OpenAppealsForAction counts visible, non-terminal appeals against the action.
	OpenAppealsForAction(actionId domain.ActionId) (int, error)
	OpenAppealsForReport(reportId domain.ReportId) (int, error)
	// OpenAppealsForActionLogs counts open appeals referenced by any log of the
	// action, deleted logs included.
	OpenAppealsForActionLogs(actionId domain.ActionId) (int, error)
}

type ReportStore interface {
	CreateReport(report domain.FlagReport) error
	GetReport(id domain.ReportId, includeDeleted bool) (domain.FlagReport, error)
	UpdateReport(report domain.FlagReport) error
	ListReports(status *domain.ReportStatus, filter domain.ListFilter) ([]domain.FlagReport, error)
}

type PostStore interface {
	CreatePost(post domain.Post) error
	GetPost(id domain.PostId, includeDeleted bool) (domain.Post, error)
	UpdatePost(post domain.Post) error
	CreateComment(comment domain.Comment) error
	GetComment(id domain.CommentId, includeDeleted bool) (domain.Comment, error)
	UpdateComment(comment domain.Comment) error
	// SoftDeleteComments tombstones every visible comment of the post and returns how
	// many were affected.
	SoftDeleteComments(postId domain.PostId, now time.Time) (int64, error)
	ListComments(postId domain.PostId, filter domain.ListFilter) ([]domain.Comment, error)
}

type ComplianceStore interface {
	CreateErasureRequest(request domain.ErasureRequest) error
	GetErasureRequest(id domain.ErasureId, includeDeleted bool) (domain.ErasureRequest, error)
	UpdateErasureRequest(request domain.ErasureRequest) error
	ListErasureRequests(status *domain.ErasureStatus, filter domain.ListFilter) ([]domain.ErasureRequest, error)

	CreateComplianceEvent(event domain.ComplianceEvent) error
	GetComplianceEvent(id domain.EventId, includeDeleted bool) (domain.ComplianceEvent, error)
	UpdateComplianceEvent(event domain.ComplianceEvent) error
	ListComplianceEvents(status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error)

	CreateDashboard(dashboard domain.PrivacyDashboard) error
	GetDashboard(id domain.DashboardId, includeDeleted bool) (domain.PrivacyDashboard, error)
	UpdateDashboard(dashboard domain.PrivacyDashboard) error
}

type AuditStore interface {
	AppendAudit(entry domain.AuditEntry) error
	ListAudit(entityType string, filter domain.ListFilter) ([]domain.AuditEntry, error)
}

type SessionStore interface {
	CreateSession(session domain.Session) error
	// LockSessionByHash loads the session and holds its row lock until the
	// transaction ends.
	LockSessionByHash(tokenHash string) (domain.Session, error)
	UpdateSession(session domain.Session) error
	RevokeSessions(accountId domain.AccountId, now time.Time) error
}

package service

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
)

// fakeStore keeps every table in maps. InTx serializes transactions and restores
// a snapshot when fn fails, which is enough to observe all-or-nothing behaviour.
type fakeStore struct {
	mu sync.Mutex
	data
	failOn map[string]error
}

type data struct {
	accounts      map[domain.AccountId]domain.Account
	confirmations map[domain.AccountId]domain.ConfirmationData
	members       map[domain.MemberId]domain.Member
	assignments   map[domain.AssignmentId]domain.RoleAssignment
	actions       map[domain.ActionId]domain.ModerationAction
	logs          map[domain.LogId]domain.ModerationLog
	appeals       map[domain.AppealId]domain.Appeal
	reports       map[domain.ReportId]domain.FlagReport
	posts         map[domain.PostId]domain.Post
	comments      map[domain.CommentId]domain.Comment
	erasures      map[domain.ErasureId]domain.ErasureRequest
	events        map[domain.EventId]domain.ComplianceEvent
	dashboards    map[domain.DashboardId]domain.PrivacyDashboard
	sessions      map[domain.SessionId]domain.Session
	audit         []domain.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: data{
			accounts:      map[domain.AccountId]domain.Account{},
			confirmations: map[domain.AccountId]domain.ConfirmationData{},
			members:       map[domain.MemberId]domain.Member{},
			assignments:   map[domain.AssignmentId]domain.RoleAssignment{},
			actions:       map[domain.ActionId]domain.ModerationAction{},
			logs:          map[domain.LogId]domain.ModerationLog{},
			appeals:       map[domain.AppealId]domain.Appeal{},
			reports:       map[domain.ReportId]domain.FlagReport{},
			posts:         map[domain.PostId]domain.Post{},
			comments:      map[domain.CommentId]domain.Comment{},
			erasures:      map[domain.ErasureId]domain.ErasureRequest{},
			events:        map[domain.EventId]domain.ComplianceEvent{},
			dashboards:    map[domain.DashboardId]domain.PrivacyDashboard{},
			sessions:      map[domain.SessionId]domain.Session{},
		},
		failOn: map[string]error{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d data) clone() data {
	return data{
		accounts:      cloneMap(d.accounts),
		confirmations: cloneMap(d.confirmations),
		members:       cloneMap(d.members),
		assignments:   cloneMap(d.assignments),
		actions:       cloneMap(d.actions),
		logs:          cloneMap(d.logs),
		appeals:       cloneMap(d.appeals),
		reports:       cloneMap(d.reports),
		posts:         cloneMap(d.posts),
		comments:      cloneMap(d.comments),
		erasures:      cloneMap(d.erasures),
		events:        cloneMap(d.events),
		dashboards:    cloneMap(d.dashboards),
		sessions:      cloneMap(d.sessions),
		audit:         append([]domain.AuditEntry(nil), d.audit...),
	}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&fakeTx{s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *fakeStore) findAssignment(memberId domain.MemberId, role domain.Role) (domain.RoleAssignment, error) {
	return (&fakeTx{s}).FindAssignment(memberId, role)
}

// fail makes the named Tx method return err from now on.
func (s *fakeStore) fail(method string, err error) {
	s.failOn[method] = err
}

type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) injected(method string) error {
	return t.s.failOn[method]
}

type visible interface{ Visible() bool }

func getRow[K comparable, V visible](m map[K]V, id K, includeDeleted bool, entity string) (V, error) {
	v, ok := m[id]
	if !ok || (!includeDeleted && !v.Visible()) {
		var zero V
		return zero, errors.NotFound(entity)
	}
	return v, nil
}

func updateRow[K comparable, V any](m map[K]V, id K, v V, entity string) error {
	if _, ok := m[id]; !ok {
		return errors.NotFound(entity)
	}
	m[id] = v
	return nil
}

func listRows[K comparable, V visible](m map[K]V, filter domain.ListFilter, keep func(V) bool, created func(V) time.Time) []V {
	var out []V
	for _, v := range m {
		if !filter.IncludeDeleted && !v.Visible() {
			continue
		}
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return created(out[i]).Before(created(out[j])) })
	if filter.Offset >= len(out) {
		return nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// accounts

func (t *fakeTx) CreateAccount(a domain.Account) error {
	for _, existing := range t.s.accounts {
		if a.EmailHash != nil && bytes.Equal(existing.EmailHash, a.EmailHash) {
			return errors.New(errors.KindConflict, "email is already registered")
		}
	}
	t.s.accounts[a.Id] = a
	return nil
}

func (t *fakeTx) GetAccount(id domain.AccountId) (domain.Account, error) {
	return getRow(t.s.accounts, id, true, "account")
}

func (t *fakeTx) GetAccountByEmailHash(hash []byte) (domain.Account, error) {
	for _, a := range t.s.accounts {
		if a.Visible() && hash != nil && bytes.Equal(a.EmailHash, hash) {
			return a, nil
		}
	}
	return domain.Account{}, errors.NotFound("account")
}

func (t *fakeTx) UpdateAccount(a domain.Account) error {
	return updateRow(t.s.accounts, a.Id, a, "account")
}

func (t *fakeTx) SaveConfirmationData(d domain.ConfirmationData) error {
	t.s.confirmations[d.AccountId] = d
	return nil
}

func (t *fakeTx) GetConfirmationData(id domain.AccountId) (domain.ConfirmationData, error) {
	d, ok := t.s.confirmations[id]
	if !ok {
		return d, errors.NotFound("confirmation data")
	}
	return d, nil
}

func (t *fakeTx) DeleteConfirmationData(id domain.AccountId) error {
	delete(t.s.confirmations, id)
	return nil
}

// members

func (t *fakeTx) CreateMember(m domain.Member) error {
	for _, existing := range t.s.members {
		if existing.AccountId == m.AccountId {
			return errors.New(errors.KindConflict, "account already has a member")
		}
	}
	t.s.members[m.Id] = m
	return nil
}

func (t *fakeTx) GetMember(id domain.MemberId, includeDeleted bool) (domain.Member, error) {
	return getRow(t.s.members, id, includeDeleted, "member")
}

func (t *fakeTx) GetMemberByAccount(id domain.AccountId) (domain.Member, error) {
	for _, m := range t.s.members {
		if m.AccountId == id && m.Visible() {
			return m, nil
		}
	}
	return domain.Member{}, errors.NotFound("member")
}

func (t *fakeTx) UpdateMember(m domain.Member) error {
	return updateRow(t.s.members, m.Id, m, "member")
}

func (t *fakeTx) ListMembers(status *domain.MemberStatus, filter domain.ListFilter) ([]domain.Member, error) {
	return listRows(t.s.members, filter, func(m domain.Member) bool {
		return status == nil || m.Status == *status
	}, func(m domain.Member) time.Time { return m.CreatedAt }), nil
}

// roles

func (t *fakeTx) CreateAssignment(r domain.RoleAssignment) error {
	if err := t.injected("CreateAssignment"); err != nil {
		return err
	}
	for _, existing := range t.s.assignments {
		if existing.MemberId == r.MemberId && existing.Role == r.Role {
			return errors.New(errors.KindAlreadyAssigned, "duplicate assignment")
		}
	}
	t.s.assignments[r.Id] = r
	return nil
}

func (t *fakeTx) GetAssignment(id domain.AssignmentId, includeDeleted bool) (domain.RoleAssignment, error) {
	return getRow(t.s.assignments, id, includeDeleted, "role assignment")
}

func (t *fakeTx) FindAssignment(memberId domain.MemberId, role domain.Role) (domain.RoleAssignment, error) {
	for _, r := range t.s.assignments {
		if r.MemberId == memberId && r.Role == role {
			return r, nil
		}
	}
	return domain.RoleAssignment{}, errors.NotFound("role assignment")
}

func (t *fakeTx) UpdateAssignment(r domain.RoleAssignment) error {
	return updateRow(t.s.assignments, r.Id, r, "role assignment")
}

// holderVisible mirrors the member and account joins of the role queries.
func (t *fakeTx) holderVisible(memberId domain.MemberId) bool {
	m, ok := t.s.members[memberId]
	if !ok || !m.Visible() {
		return false
	}
	a, ok := t.s.accounts[m.AccountId]
	return ok && a.Visible()
}

func (t *fakeTx) HasActiveRole(memberId domain.MemberId, role domain.Role) (bool, error) {
	for _, r := range t.s.assignments {
		if r.MemberId == memberId && r.Role == role && r.Active() && t.holderVisible(memberId) {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) LockActiveAdministrators() ([]domain.AssignmentId, error) {
	var ids []domain.AssignmentId
	for _, r := range t.s.assignments {
		if r.Role == domain.RoleAdministrator && r.Active() && t.holderVisible(r.MemberId) {
			ids = append(ids, r.Id)
		}
	}
	return ids, nil
}

func (t *fakeTx) ListAssignments(role *domain.Role, filter domain.ListFilter) ([]domain.RoleAssignment, error) {
	return listRows(t.s.assignments, filter, func(r domain.RoleAssignment) bool {
		return (role == nil || r.Role == *role) && (filter.IncludeDeleted || r.Active())
	}, func(r domain.RoleAssignment) time.Time { return r.CreatedAt }), nil
}

// moderation

func (t *fakeTx) CreateAction(a domain.ModerationAction) error {
	t.s.actions[a.Id] = a
	return nil
}

func (t *fakeTx) GetAction(id domain.ActionId, includeDeleted bool) (domain.ModerationAction, error) {
	return getRow(t.s.actions, id, includeDeleted, "moderation action")
}

func (t *fakeTx) UpdateAction(a domain.ModerationAction) error {
	return updateRow(t.s.actions, a.Id, a, "moderation action")
}

func (t *fakeTx) HardDeleteAction(id domain.ActionId) error {
	if _, ok := t.s.actions[id]; !ok {
		return errors.NotFound("moderation action")
	}
	delete(t.s.actions, id)
	for logId, l := range t.s.logs {
		if l.ActionId == id {
			delete(t.s.logs, logId)
		}
	}
	return nil
}

func (t *fakeTx) ListActions(target domain.ActionTarget, filter domain.ListFilter) ([]domain.ModerationAction, error) {
	return listRows(t.s.actions, filter, func(a domain.ModerationAction) bool {
		return matches(target.MemberId, a.Target.MemberId) && matches(target.PostId, a.Target.PostId) && matches(target.CommentId, a.Target.CommentId)
	}, func(a domain.ModerationAction) time.Time { return a.CreatedAt }), nil
}

func matches[T comparable](want, got *T) bool {
	return want == nil || (got != nil && *got == *want)
}

func (t *fakeTx) CreateLog(l domain.ModerationLog) error {
	t.s.logs[l.Id] = l
	return nil
}

func (t *fakeTx) GetLog(id domain.LogId, includeDeleted bool) (domain.ModerationLog, error) {
	return getRow(t.s.logs, id, includeDeleted, "moderation log")
}

func (t *fakeTx) UpdateLog(l domain.ModerationLog) error {
	return updateRow(t.s.logs, l.Id, l, "moderation log")
}

func (t *fakeTx) ListLogs(actionId domain.ActionId, filter domain.ListFilter) ([]domain.ModerationLog, error) {
	return listRows(t.s.logs, filter, func(l domain.ModerationLog) bool { return l.ActionId == actionId },
		func(l domain.ModerationLog) time.Time { return l.CreatedAt }), nil
}

// appeals and reports

func (t *fakeTx) CreateAppeal(a domain.Appeal) error {
	t.s.appeals[a.Id] = a
	return nil
}

func (t *fakeTx) GetAppeal(id domain.AppealId, includeDeleted bool) (domain.Appeal, error) {
	return getRow(t.s.appeals, id, includeDeleted, "appeal")
}

func (t *fakeTx) UpdateAppeal(a domain.Appeal) error {
	return updateRow(t.s.appeals, a.Id, a, "appeal")
}

func (t *fakeTx) ListAppeals(status *domain.AppealStatus, filter domain.ListFilter) ([]domain.Appeal, error) {
	return listRows(t.s.appeals, filter, func(a domain.Appeal) bool { return status == nil || a.Status == *status },
		func(a domain.Appeal) time.Time { return a.CreatedAt }), nil
}

func (t *fakeTx) OpenAppealsForAction(id domain.ActionId) (int, error) {
	n := 0
	for _, a := range t.s.appeals {
		if a.Open() && a.ActionId != nil && *a.ActionId == id {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) OpenAppealsForActionLogs(id domain.ActionId) (int, error) {
	open := map[domain.AppealId]bool{}
	for _, l := range t.s.logs {
		if l.ActionId != id || l.RelatedAppealId == nil {
			continue
		}
		if a, ok := t.s.appeals[*l.RelatedAppealId]; ok && a.Open() {
			open[a.Id] = true
		}
	}
	return len(open), nil
}

func (t *fakeTx) OpenAppealsForReport(id domain.ReportId) (int, error) {
	n := 0
	for _, a := range t.s.appeals {
		if a.Open() && a.ReportId != nil && *a.ReportId == id {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) CreateReport(r domain.FlagReport) error {
	t.s.reports[r.Id] = r
	return nil
}

func (t *fakeTx) GetReport(id domain.ReportId, includeDeleted bool) (domain.FlagReport, error) {
	return getRow(t.s.reports, id, includeDeleted, "report")
}

func (t *fakeTx) UpdateReport(r domain.FlagReport) error {
	return updateRow(t.s.reports, r.Id, r, "report")
}

func (t *fakeTx) ListReports(status *domain.ReportStatus, filter domain.ListFilter) ([]domain.FlagReport, error) {
	return listRows(t.s.reports, filter, func(r domain.FlagReport) bool { return status == nil || r.Status == *status },
		func(r domain.FlagReport) time.Time { return r.CreatedAt }), nil
}

// posts

func (t *fakeTx) CreatePost(p domain.Post) error {
	t.s.posts[p.Id] = p
	return nil
}

func (t *fakeTx) GetPost(id domain.PostId, includeDeleted bool) (domain.Post, error) {
	return getRow(t.s.posts, id, includeDeleted, "post")
}

func (t *fakeTx) UpdatePost(p domain.Post) error {
	return updateRow(t.s.posts, p.Id, p, "post")
}

func (t *fakeTx) CreateComment(c domain.Comment) error {
	t.s.comments[c.Id] = c
	return nil
}

func (t *fakeTx) GetComment(id domain.CommentId, includeDeleted bool) (domain.Comment, error) {
	return getRow(t.s.comments, id, includeDeleted, "comment")
}

func (t *fakeTx) UpdateComment(c domain.Comment) error {
	return updateRow(t.s.comments, c.Id, c, "comment")
}

func (t *fakeTx) SoftDeleteComments(postId domain.PostId, now time.Time) (int64, error) {
	if err := t.injected("SoftDeleteComments"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range t.s.comments {
		if c.PostId == postId && c.Visible() {
			_ = c.SoftDelete(now)
			t.s.comments[id] = c
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) ListComments(postId domain.PostId, filter domain.ListFilter) ([]domain.Comment, error) {
	return listRows(t.s.comments, filter, func(c domain.Comment) bool { return c.PostId == postId },
		func(c domain.Comment) time.Time { return c.CreatedAt }), nil
}

// compliance

func (t *fakeTx) CreateErasureRequest(r domain.ErasureRequest) error {
	t.s.erasures[r.Id] = r
	return nil
}

func (t *fakeTx) GetErasureRequest(id domain.ErasureId, includeDeleted bool) (domain.ErasureRequest, error) {
	return getRow(t.s.erasures, id, includeDeleted, "erasure request")
}

func (t *fakeTx) UpdateErasureRequest(r domain.ErasureRequest) error {
	return updateRow(t.s.erasures, r.Id, r, "erasure request")
}

func (t *fakeTx) ListErasureRequests(status *domain.ErasureStatus, filter domain.ListFilter) ([]domain.ErasureRequest, error) {
	return listRows(t.s.erasures, filter, func(r domain.ErasureRequest) bool { return status == nil || r.Status == *status },
		func(r domain.ErasureRequest) time.Time { return r.CreatedAt }), nil
}

func (t *fakeTx) CreateComplianceEvent(e domain.ComplianceEvent) error {
	t.s.events[e.Id] = e
	return nil
}

func (t *fakeTx) GetComplianceEvent(id domain.EventId, includeDeleted bool) (domain.ComplianceEvent, error) {
	return getRow(t.s.events, id, includeDeleted, "compliance event")
}

func (t *fakeTx) UpdateComplianceEvent(e domain.ComplianceEvent) error {
	return updateRow(t.s.events, e.Id, e, "compliance event")
}

func (t *fakeTx) ListComplianceEvents(status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error) {
	return listRows(t.s.events, filter, func(e domain.ComplianceEvent) bool { return status == nil || e.Status == *status },
		func(e domain.ComplianceEvent) time.Time { return e.CreatedAt }), nil
}

func (t *fakeTx) CreateDashboard(d domain.PrivacyDashboard) error {
	t.s.dashboards[d.Id] = d
	return nil
}

func (t *fakeTx) GetDashboard(id domain.DashboardId, includeDeleted bool) (domain.PrivacyDashboard, error) {
	return getRow(t.s.dashboards, id, includeDeleted, "privacy dashboard")
}

func (t *fakeTx) UpdateDashboard(d domain.PrivacyDashboard) error {
	return updateRow(t.s.dashboards, d.Id, d, "privacy dashboard")
}

// audit

func (t *fakeTx) AppendAudit(e domain.AuditEntry) error {
	if err := t.injected("AppendAudit"); err != nil {
		return err
	}
	t.s.audit = append(t.s.audit, e)
	return nil
}

func (t *fakeTx) ListAudit(entityType string, filter domain.ListFilter) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range t.s.audit {
		if entityType == "" || e.EntityType == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

// sessions

func (t *fakeTx) CreateSession(s domain.Session) error {
	t.s.sessions[s.Id] = s
	return nil
}

func (t *fakeTx) LockSessionByHash(hash string) (domain.Session, error) {
	for _, s := range t.s.sessions {
		if s.TokenHash == hash {
			return s, nil
		}
	}
	return domain.Session{}, errors.NotFound("session")
}

func (t *fakeTx) UpdateSession(s domain.Session) error {
	return updateRow(t.s.sessions, s.Id, s, "session")
}

func (t *fakeTx) RevokeSessions(accountId domain.AccountId, now time.Time) error {
	for id, s := range t.s.sessions {
		if s.AccountId == accountId && s.RevokedAt == nil {
			stamp := now
			s.RevokedAt = &stamp
			t.s.sessions[id] = s
		}
	}
	return nil
}

var _ Tx = (*fakeTx)(nil)

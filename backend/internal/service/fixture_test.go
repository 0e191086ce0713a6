package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Public {
	cfg := &config.Public{
		JwtTTL:     15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	cfg.Defaults()
	return cfg
}

// fixedClock returns a Clock reading *t, so tests can move time forward.
func fixedClock(t *time.Time) Clock {
	return func() time.Time { return *t }
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *fakeStore
	cfg   *config.Public
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), store: newFakeStore(), cfg: testConfig(), now: testNow}
}

func (f *fixture) clock() Clock {
	return fixedClock(&f.now)
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// seed runs fn in a transaction and fails the test on error.
func (f *fixture) seed(fn func(tx Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.store.InTx(f.ctx, fn))
}

// member creates a verified account with a member in the given status.
func (f *fixture) member(status domain.MemberStatus) domain.Member {
	f.t.Helper()
	account := domain.Account{
		Id:            uuid.New(),
		EmailHash:     []byte(uuid.NewString()),
		EmailVerified: true,
		CreatedAt:     f.now,
		UpdatedAt:     f.now,
	}
	member := domain.Member{
		Id:        uuid.New(),
		AccountId: account.Id,
		Nickname:  "member-" + account.Id.String()[:8],
		Status:    status,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.seed(func(tx Tx) error {
		if err := tx.CreateAccount(account); err != nil {
			return err
		}
		return tx.CreateMember(member)
	})
	return member
}

func (f *fixture) grant(memberId domain.MemberId, role domain.Role) domain.RoleAssignment {
	f.t.Helper()
	assignment := domain.RoleAssignment{
		Id:         uuid.New(),
		MemberId:   memberId,
		Role:       role,
		AssignedAt: f.now,
		Status:     domain.AssignmentActive,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.seed(func(tx Tx) error { return tx.CreateAssignment(assignment) })
	return assignment
}

func actorOf(m domain.Member, role domain.Role) domain.Actor {
	a, err := domain.NewActor(role, m.AccountId, m.Id)
	if err != nil {
		panic(err)
	}
	return a
}

func (f *fixture) plainActor() (domain.Actor, domain.Member) {
	m := f.member(domain.MemberActive)
	return actorOf(m, domain.RoleMember), m
}

func (f *fixture) moderator() (domain.Actor, domain.Member) {
	m := f.member(domain.MemberActive)
	f.grant(m.Id, domain.RoleModerator)
	return actorOf(m, domain.RoleModerator), m
}

func (f *fixture) admin() (domain.Actor, domain.Member) {
	m := f.member(domain.MemberActive)
	f.grant(m.Id, domain.RoleAdministrator)
	return actorOf(m, domain.RoleAdministrator), m
}

func (f *fixture) post(author domain.Member) domain.Post {
	f.t.Helper()
	post := domain.Post{Id: uuid.New(), AuthorId: author.Id, Title: "title", Body: "body", CreatedAt: f.now, UpdatedAt: f.now}
	f.seed(func(tx Tx) error { return tx.CreatePost(post) })
	return post
}

func (f *fixture) auditEvents() []string {
	var events []string
	for _, e := range f.store.audit {
		events = append(events, e.Event)
	}
	return events
}

// passthroughSanitizer keeps input as is.
type passthroughSanitizer struct{}

func (passthroughSanitizer) PlainText(s string) string { return s }

func (passthroughSanitizer) PlainTextPtr(s *string) *string { return s }

type mockSanctionCache struct {
	SetFunc func(memberId domain.MemberId, sanctioned bool)
	calls   map[domain.MemberId]bool
}

func (m *mockSanctionCache) Set(memberId domain.MemberId, sanctioned bool) {
	if m.calls == nil {
		m.calls = map[domain.MemberId]bool{}
	}
	m.calls[memberId] = sanctioned
	if m.SetFunc != nil {
		m.SetFunc(memberId, sanctioned)
	}
}

func requireKind(t *testing.T, err error, kind internal_errors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind.String(), internal_errors.KindOf(err).String(), "error: %v", err)
}

package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportsFixture(t *testing.T) (*moderationFixture, *Reports) {
	f := newModerationFixture(t)
	svc := NewReports(f.store, passthroughSanitizer{}, f.cfg)
	svc.now = f.clock()
	return f, svc
}

func TestFlagReportLifecycle(t *testing.T) {
	f, svc := newReportsFixture(t)
	reporter, _ := f.plainActor()
	post := f.post(f.member(domain.MemberActive))
	input := NewReport{PostId: &post.Id, Reason: "spam", Details: ptr("same link everywhere")}

	first, err := svc.Submit(f.ctx, reporter, input)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, first.Status)

	require.NoError(t, svc.Delete(f.ctx, reporter, first.Id))
	deleted := f.store.reports[first.Id]
	assert.Equal(t, domain.ReportPending, deleted.Status)
	assert.Nil(t, deleted.ModerationActionId)
	assert.False(t, deleted.Visible())

	second, err := svc.Submit(f.ctx, reporter, input)
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)

	err = svc.Delete(f.ctx, reporter, first.Id)
	requireKind(t, err, internal_errors.KindNotFound)
}

func TestReportDeleteRules(t *testing.T) {
	t.Run("only the reporter", func(t *testing.T) {
		f, svc := newReportsFixture(t)
		reporter, _ := f.plainActor()
		other, _ := f.plainActor()
		post := f.post(f.member(domain.MemberActive))
		report, err := svc.Submit(f.ctx, reporter, NewReport{PostId: &post.Id, Reason: "x"})
		require.NoError(t, err)

		err = svc.Delete(f.ctx, other, report.Id)
		requireKind(t, err, internal_errors.KindForbidden)
	})

	t.Run("locked once an action is linked", func(t *testing.T) {
		f, svc := newReportsFixture(t)
		reporter, _ := f.plainActor()
		mod, _ := f.moderator()
		author := f.member(domain.MemberActive)
		post := f.post(author)
		report, err := svc.Submit(f.ctx, reporter, NewReport{PostId: &post.Id, Reason: "x"})
		require.NoError(t, err)
		action := f.action(mod, author)

		_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportUnderReview, &action.Id)
		require.NoError(t, err)

		err = svc.Delete(f.ctx, reporter, report.Id)
		requireKind(t, err, internal_errors.KindReportLocked)
	})

	t.Run("locked once decided", func(t *testing.T) {
		f, svc := newReportsFixture(t)
		reporter, _ := f.plainActor()
		mod, _ := f.moderator()
		post := f.post(f.member(domain.MemberActive))
		report, err := svc.Submit(f.ctx, reporter, NewReport{PostId: &post.Id, Reason: "x"})
		require.NoError(t, err)

		_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportUnderReview, nil)
		require.NoError(t, err)
		_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportAccepted, nil)
		require.NoError(t, err)

		err = svc.Delete(f.ctx, reporter, report.Id)
		requireKind(t, err, internal_errors.KindReportLocked)
	})
}

func TestReportReview(t *testing.T) {
	f, svc := newReportsFixture(t)
	reporter, _ := f.plainActor()
	mod, modMember := f.moderator()
	admin, _ := f.admin()
	post := f.post(f.member(domain.MemberActive))
	report, err := svc.Submit(f.ctx, reporter, NewReport{PostId: &post.Id, Reason: "x"})
	require.NoError(t, err)

	_, err = svc.Review(f.ctx, reporter, report.Id, domain.ReportUnderReview, nil)
	requireKind(t, err, internal_errors.KindForbidden)

	_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportAccepted, nil)
	requireKind(t, err, internal_errors.KindInvalidTransition)

	got, err := svc.Review(f.ctx, mod, report.Id, domain.ReportUnderReview, nil)
	require.NoError(t, err)
	assert.Equal(t, modMember.Id, *got.ReviewedBy)

	_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportEscalated, nil)
	require.NoError(t, err)
	_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportDismissed, nil)
	requireKind(t, err, internal_errors.KindForbidden)

	_, err = svc.Review(f.ctx, mod, report.Id, domain.ReportUnderReview, ptr(uuid.New()))
	requireKind(t, err, internal_errors.KindInvalidTransition)

	_, err = svc.Review(f.ctx, admin, report.Id, domain.ReportDismissed, ptr(uuid.New()))
	requireKind(t, err, internal_errors.KindNotFound)

	got, err = svc.Review(f.ctx, admin, report.Id, domain.ReportDismissed, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportDismissed, got.Status)
}

func TestSubmitReport(t *testing.T) {
	t.Run("deleted target", func(t *testing.T) {
		f, svc := newReportsFixture(t)
		reporter, _ := f.plainActor()
		post := f.post(f.member(domain.MemberActive))
		f.store.posts[post.Id] = func(p domain.Post) domain.Post { _ = p.SoftDelete(testNow); return p }(post)

		_, err := svc.Submit(f.ctx, reporter, NewReport{PostId: &post.Id, Reason: "x"})
		requireKind(t, err, internal_errors.KindNotFound)
	})

	t.Run("exactly one target", func(t *testing.T) {
		f, svc := newReportsFixture(t)
		reporter, _ := f.plainActor()
		_, err := svc.Submit(f.ctx, reporter, NewReport{PostId: ptr(uuid.New()), CommentId: ptr(uuid.New()), Reason: "x"})
		requireKind(t, err, internal_errors.KindValidation)
	})

	t.Run("reporter sees own report only", func(t *testing.T) {
		f, svc := newReportsFixture(t)
		reporter, _ := f.plainActor()
		other, _ := f.plainActor()
		post := f.post(f.member(domain.MemberActive))
		report, err := svc.Submit(f.ctx, reporter, NewReport{PostId: &post.Id, Reason: "x"})
		require.NoError(t, err)

		_, err = svc.Get(f.ctx, reporter, report.Id, false)
		require.NoError(t, err)
		_, err = svc.Get(f.ctx, other, report.Id, false)
		requireKind(t, err, internal_errors.KindNotFound)
	})
}

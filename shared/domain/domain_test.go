package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTombstone(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("soft delete hides the entity", func(t *testing.T) {
		post := Post{Id: uuid.New()}
		require.True(t, post.Visible())

		require.NoError(t, post.SoftDelete(now))
		assert.False(t, post.Visible())
		assert.Equal(t, now, *post.DeletedAt)
	})

	t.Run("second soft delete keeps the first stamp", func(t *testing.T) {
		post := Post{Id: uuid.New()}
		require.NoError(t, post.SoftDelete(now))

		err := post.SoftDelete(now.Add(time.Hour))
		assert.True(t, errors.Is(err, internal_errors.ErrAlreadyDeleted))
		assert.Equal(t, now, *post.DeletedAt)
	})
}

func TestRoleAssignmentLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	admin := uuid.New()
	r := RoleAssignment{Id: uuid.New(), Role: RoleModerator, Status: AssignmentActive, AssignedAt: now}
	require.True(t, r.Active())

	require.NoError(t, r.Revoke(now.Add(time.Minute)))
	assert.False(t, r.Active())
	assert.Equal(t, AssignmentRevoked, r.Status)
	require.NotNil(t, r.RevokedAt)
	require.NotNil(t, r.DeletedAt)

	assert.Error(t, r.Revoke(now.Add(2*time.Minute)))

	r.Reactivate(&admin, now.Add(3*time.Minute))
	assert.True(t, r.Active())
	assert.Nil(t, r.RevokedAt)
	assert.Nil(t, r.DeletedAt)
	assert.Equal(t, admin, *r.AssignedBy)
}

func TestStateMachines(t *testing.T) {
	t.Run("appeal", func(t *testing.T) {
		assert.True(t, AppealPending.CanTransition(AppealInReview))
		assert.False(t, AppealPending.CanTransition(AppealResolved))
		assert.True(t, AppealInReview.CanTransition(AppealEscalated))
		assert.True(t, AppealEscalated.CanTransition(AppealRejected))
		assert.False(t, AppealResolved.CanTransition(AppealInReview))
		assert.True(t, AppealRejected.Terminal())
		assert.False(t, AppealEscalated.Terminal())
	})

	t.Run("report", func(t *testing.T) {
		assert.True(t, ReportPending.CanTransition(ReportUnderReview))
		assert.False(t, ReportPending.CanTransition(ReportAccepted))
		assert.True(t, ReportUnderReview.CanTransition(ReportEscalated))
		assert.True(t, ReportUnderReview.Withdrawable())
		assert.False(t, ReportEscalated.Withdrawable())
	})

	t.Run("member", func(t *testing.T) {
		assert.True(t, MemberPending.CanTransition(MemberActive))
		assert.True(t, MemberActive.CanTransition(MemberBanned))
		assert.False(t, MemberBanned.CanTransition(MemberSuspended))
		assert.True(t, MemberLocked.Sanctioned())
		assert.False(t, MemberPending.Sanctioned())
	})

	t.Run("erasure", func(t *testing.T) {
		assert.True(t, ErasurePending.CanTransition(ErasureInProgress))
		assert.False(t, ErasurePending.CanTransition(ErasureCompleted))
		assert.False(t, ErasureCompleted.CanTransition(ErasureRejected))
	})
}

func TestPostWithinWindow(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	post := Post{CreatedAt: created}
	window := 30 * time.Minute

	assert.True(t, post.WithinWindow(created, window))
	assert.True(t, post.WithinWindow(created.Add(window), window))
	assert.False(t, post.WithinWindow(created.Add(window+time.Second), window))
}

func TestErasureUpdateKeepsIdentity(t *testing.T) {
	now := time.Now().UTC()
	req := ErasureRequest{Id: uuid.New(), AccountId: uuid.New(), Type: ErasureGDPR, Status: ErasurePending, SubmittedAt: now}
	before := req

	status := ErasureInProgress
	ref := "REG-1"
	ErasureUpdate{Status: &status, RegulatorReference: &ref}.Apply(&req, now.Add(time.Minute))

	assert.Equal(t, before.Id, req.Id)
	assert.Equal(t, before.AccountId, req.AccountId)
	assert.Equal(t, before.Type, req.Type)
	assert.Equal(t, before.SubmittedAt, req.SubmittedAt)
	assert.Equal(t, ErasureInProgress, req.Status)
	assert.Equal(t, "REG-1", *req.RegulatorReference)
}

func TestNewActor(t *testing.T) {
	account, member := uuid.New(), uuid.New()

	a, err := NewActor(RoleModerator, account, member)
	require.NoError(t, err)
	_, ok := a.(ModeratorActor)
	assert.True(t, ok)
	assert.Equal(t, member, a.MemberId())

	_, err = NewActor("owner", account, member)
	assert.Error(t, err)

	_, err = NewActor(RoleMember, account, uuid.Nil)
	assert.Error(t, err)
}

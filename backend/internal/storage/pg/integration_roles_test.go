package pg

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAssignments(t *testing.T) {
	t.Run("one record per member and role", func(t *testing.T) {
		member := seedMember(t)
		seedAssignment(t, member.Id, domain.RoleModerator)

		err := inTx(t, func(tx service.Tx) error {
			return tx.CreateAssignment(domain.RoleAssignment{
				Id: uuid.New(), MemberId: member.Id, Role: domain.RoleModerator,
				Status: domain.AssignmentActive, AssignedAt: stamp(), CreatedAt: stamp(), UpdatedAt: stamp(),
			})
		})
		assert.Equal(t, internal_errors.KindAlreadyAssigned, internal_errors.KindOf(err))

		// A different role for the same member is a separate record.
		seedAssignment(t, member.Id, domain.RoleAdministrator)
	})

	t.Run("revoked record is found and hidden", func(t *testing.T) {
		member := seedMember(t)
		a := seedAssignment(t, member.Id, domain.RoleModerator)
		require.NoError(t, a.Revoke(stamp()))
		mustTx(t, func(tx service.Tx) error { return tx.UpdateAssignment(a) })

		mustTx(t, func(tx service.Tx) error {
			found, err := tx.FindAssignment(member.Id, domain.RoleModerator)
			require.NoError(t, err)
			assert.Equal(t, a.Id, found.Id)
			assert.Equal(t, domain.AssignmentRevoked, found.Status)
			require.NotNil(t, found.RevokedAt)

			has, err := tx.HasActiveRole(member.Id, domain.RoleModerator)
			require.NoError(t, err)
			assert.False(t, has)

			_, err = tx.GetAssignment(a.Id, false)
			assert.True(t, internal_errors.IsNotFound(err))
			_, err = tx.GetAssignment(a.Id, true)
			assert.NoError(t, err)
			return nil
		})

		role := domain.RoleModerator
		mustTx(t, func(tx service.Tx) error {
			list, err := tx.ListAssignments(&role, domain.ListFilter{})
			require.NoError(t, err)
			for _, item := range list {
				assert.NotEqual(t, a.Id, item.Id)
			}
			return nil
		})
	})

	t.Run("reactivation keeps the record", func(t *testing.T) {
		member := seedMember(t)
		a := seedAssignment(t, member.Id, domain.RoleModerator)
		require.NoError(t, a.Revoke(stamp()))
		mustTx(t, func(tx service.Tx) error { return tx.UpdateAssignment(a) })

		a.Reactivate(nil, stamp())
		mustTx(t, func(tx service.Tx) error { return tx.UpdateAssignment(a) })
		mustTx(t, func(tx service.Tx) error {
			has, err := tx.HasActiveRole(member.Id, domain.RoleModerator)
			require.NoError(t, err)
			assert.True(t, has)
			return nil
		})
	})

	t.Run("tombstoned holder is not an active administrator", func(t *testing.T) {
		member := seedMember(t)
		a := seedAssignment(t, member.Id, domain.RoleAdministrator)
		require.NoError(t, member.SoftDelete(stamp()))
		mustTx(t, func(tx service.Tx) error { return tx.UpdateMember(member) })

		mustTx(t, func(tx service.Tx) error {
			has, err := tx.HasActiveRole(member.Id, domain.RoleAdministrator)
			require.NoError(t, err)
			assert.False(t, has)

			ids, err := tx.LockActiveAdministrators()
			require.NoError(t, err)
			assert.NotContains(t, ids, a.Id)
			return nil
		})
	})
}

// Two transactions each try to revoke a different administrator while exactly two
// remain. The row locks serialize them, so exactly one succeeds.
func TestLockActiveAdministratorsSerializesRevocations(t *testing.T) {
	// Retire every administrator other tests left behind.
	mustTx(t, func(tx service.Tx) error {
		ids, err := tx.LockActiveAdministrators()
		if err != nil {
			return err
		}
		for _, id := range ids {
			a, err := tx.GetAssignment(id, false)
			if err != nil {
				return err
			}
			if err := a.Revoke(stamp()); err != nil {
				return err
			}
			if err := tx.UpdateAssignment(a); err != nil {
				return err
			}
		}
		return nil
	})

	first := seedAssignment(t, seedMember(t).Id, domain.RoleAdministrator)
	second := seedAssignment(t, seedMember(t).Id, domain.RoleAdministrator)

	revoke := func(target domain.AssignmentId) error {
		return inTx(t, func(tx service.Tx) error {
			ids, err := tx.LockActiveAdministrators()
			if err != nil {
				return err
			}
			if len(ids) <= 1 {
				return internal_errors.New(internal_errors.KindLastAdminProtection, "last administrator")
			}
			a, err := tx.GetAssignment(target, false)
			if err != nil {
				return err
			}
			if err := a.Revoke(stamp()); err != nil {
				return err
			}
			return tx.UpdateAssignment(a)
		})
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []domain.AssignmentId{first.Id, second.Id} {
		wg.Add(1)
		go func(i int, id domain.AssignmentId) {
			defer wg.Done()
			errs[i] = revoke(id)
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.Equal(t, internal_errors.KindLastAdminProtection, internal_errors.KindOf(err))
		}
	}
	assert.Equal(t, 1, failures)

	mustTx(t, func(tx service.Tx) error {
		ids, err := tx.LockActiveAdministrators()
		require.NoError(t, err)
		assert.Len(t, ids, 1)
		return nil
	})
}

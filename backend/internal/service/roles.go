package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

type RolesService interface {
	Escalate(ctx context.Context, actor domain.Actor, memberId domain.MemberId, role domain.Role) (domain.RoleAssignment, error)
	Reactivate(ctx context.Context, actor domain.Actor, id domain.AssignmentId) (domain.RoleAssignment, error)
	Revoke(ctx context.Context, actor domain.Actor, id domain.AssignmentId) (domain.RoleAssignment, error)
	Get(ctx context.Context, actor domain.Actor, id domain.AssignmentId, withDeleted bool) (domain.RoleAssignment, error)
	List(ctx context.Context, actor domain.Actor, role *domain.Role, filter domain.ListFilter) ([]domain.RoleAssignment, error)
	Bootstrap(ctx context.Context, memberId domain.MemberId) (domain.RoleAssignment, error)
}

type Roles struct {
	store Store
	cfg   *config.Public
	now   Clock
	log   *slog.Logger
}

func NewRoles(store Store, cfg *config.Public) *Roles {
	return &Roles{store: store, cfg: cfg, now: systemClock, log: logger.Component("roles")}
}

const entityRoleAssignment = "role_assignment"

// Escalate gives a member a moderator or administrator role. A previously revoked
// record for the same pair is reactivated in place.
func (s *Roles) Escalate(ctx context.Context, actor domain.Actor, memberId domain.MemberId, role domain.Role) (result domain.RoleAssignment, err error) {
	defer func() { observe("roles.escalate", err) }()

	if !role.Assignable() {
		return result, errors.New(errors.KindValidation, "role %q cannot be assigned", role)
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		if err := checkEligible(tx, memberId); err != nil {
			return err
		}

		now := s.now()
		existing, err := tx.FindAssignment(memberId, role)
		switch {
		case err == nil:
			if existing.Active() {
				return errors.New(errors.KindAlreadyAssigned, "member already holds the %s role", role)
			}
			existing.Reactivate(memberRef(actor), now)
			if err := tx.UpdateAssignment(existing); err != nil {
				return err
			}
			result = existing
			return audit(tx, now, memberRef(actor), entityRoleAssignment, existing.Id, domain.AuditRoleReactivated, string(role))
		case errors.IsNotFound(err):
			result = domain.RoleAssignment{
				Id:         uuid.New(),
				MemberId:   memberId,
				Role:       role,
				AssignedBy: memberRef(actor),
				AssignedAt: now,
				Status:     domain.AssignmentActive,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.CreateAssignment(result); err != nil {
				return err
			}
			return audit(tx, now, memberRef(actor), entityRoleAssignment, result.Id, domain.AuditRoleEscalated, string(role))
		default:
			return err
		}
	})
	if err != nil {
		return domain.RoleAssignment{}, err
	}

	s.log.Info("role assigned", "member_id", memberId, "role", role, "by", actor.MemberId())
	return result, nil
}

// checkEligible requires an active member whose account is verified and not suspended.
func checkEligible(tx Tx, memberId domain.MemberId) error {
	member, err := tx.GetMember(memberId, false)
	if err != nil {
		return err
	}
	if member.Status != domain.MemberActive {
		return errors.New(errors.KindInvalidTransition, "member is %s, only active members can be escalated", member.Status)
	}
	account, err := tx.GetAccount(member.AccountId)
	if err != nil {
		return err
	}
	if !account.Active() || !account.EmailVerified {
		return errors.New(errors.KindInvalidTransition, "account must be active and verified")
	}
	return nil
}

// Reactivate is idempotent: an active record is returned as is.
func (s *Roles) Reactivate(ctx context.Context, actor domain.Actor, id domain.AssignmentId) (result domain.RoleAssignment, err error) {
	defer func() { observe("roles.reactivate", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		assignment, err := tx.GetAssignment(id, true)
		if err != nil {
			return err
		}
		if assignment.Active() {
			result = assignment
			return nil
		}
		if err := checkEligible(tx, assignment.MemberId); err != nil {
			return err
		}

		now := s.now()
		assignment.Reactivate(memberRef(actor), now)
		if err := tx.UpdateAssignment(assignment); err != nil {
			return err
		}
		result = assignment
		return audit(tx, now, memberRef(actor), entityRoleAssignment, assignment.Id, domain.AuditRoleReactivated, string(assignment.Role))
	})
	if err != nil {
		return domain.RoleAssignment{}, err
	}
	return result, nil
}

// Revoke ends an active assignment. Revoking a record that is already revoked is
// NotFound. The last active administrator can never be revoked: all active
// administrator rows are locked before counting, so two concurrent revokes
// cannot both pass the check.
func (s *Roles) Revoke(ctx context.Context, actor domain.Actor, id domain.AssignmentId) (result domain.RoleAssignment, err error) {
	defer func() { observe("roles.revoke", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		assignment, err := tx.GetAssignment(id, false)
		if err != nil {
			return err
		}
		if !assignment.Active() {
			return errors.NotFound("role assignment")
		}

		if assignment.Role == domain.RoleAdministrator {
			if err := otherAdminRemains(tx, assignment.Id); err != nil {
				return err
			}
			// re-read under the lock, a concurrent revoke may have won
			if assignment, err = tx.GetAssignment(id, false); err != nil {
				return err
			}
			if !assignment.Active() {
				return errors.NotFound("role assignment")
			}
		}

		now := s.now()
		if err := assignment.Revoke(now); err != nil {
			return err
		}
		if err := tx.UpdateAssignment(assignment); err != nil {
			return err
		}
		result = assignment
		return audit(tx, now, memberRef(actor), entityRoleAssignment, assignment.Id, domain.AuditRoleRevoked, string(assignment.Role))
	})
	if err != nil {
		return domain.RoleAssignment{}, err
	}

	s.log.Info("role revoked", "assignment_id", id, "by", actor.MemberId())
	return result, nil
}

func (s *Roles) Get(ctx context.Context, actor domain.Actor, id domain.AssignmentId, withDeleted bool) (result domain.RoleAssignment, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		result, err = tx.GetAssignment(id, inc)
		return err
	})
	return result, err
}

// List returns active assignments, or every record when the filter asks for
// deleted ones.
func (s *Roles) List(ctx context.Context, actor domain.Actor, role *domain.Role, filter domain.ListFilter) (result []domain.RoleAssignment, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListAssignments(role, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

// Bootstrap makes the first administrator. It refuses once any administrator is
// active, so it cannot be used to bypass Escalate.
func (s *Roles) Bootstrap(ctx context.Context, memberId domain.MemberId) (result domain.RoleAssignment, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		admins, err := tx.LockActiveAdministrators()
		if err != nil {
			return err
		}
		if len(admins) > 0 {
			return errors.New(errors.KindConflict, "an administrator already exists")
		}
		if err := checkEligible(tx, memberId); err != nil {
			return err
		}

		now := s.now()
		existing, err := tx.FindAssignment(memberId, domain.RoleAdministrator)
		if err == nil {
			existing.Reactivate(nil, now)
			result = existing
			if err := tx.UpdateAssignment(existing); err != nil {
				return err
			}
		} else if errors.IsNotFound(err) {
			result = domain.RoleAssignment{
				Id:         uuid.New(),
				MemberId:   memberId,
				Role:       domain.RoleAdministrator,
				AssignedAt: now,
				Status:     domain.AssignmentActive,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.CreateAssignment(result); err != nil {
				return err
			}
		} else {
			return err
		}
		return audit(tx, now, nil, entityRoleAssignment, result.Id, domain.AuditRoleEscalated, fmt.Sprintf("bootstrap %s", domain.RoleAdministrator))
	})
	return result, err
}

// otherAdminRemains locks the active administrators and fails unless one of them
// is not the given assignment.
func otherAdminRemains(tx Tx, assignmentId domain.AssignmentId) error {
	locked, err := tx.LockActiveAdministrators()
	if err != nil {
		return err
	}
	for _, id := range locked {
		if id != assignmentId {
			return nil
		}
	}
	return errors.New(errors.KindLastAdminProtection, "cannot revoke the last active administrator")
}

// revokeMemberRoles revokes every role the member still holds, keeping the last
// administrator in place.
func revokeMemberRoles(tx Tx, memberId domain.MemberId, now time.Time, by *domain.MemberId) error {
	for _, role := range []domain.Role{domain.RoleAdministrator, domain.RoleModerator} {
		assignment, err := tx.FindAssignment(memberId, role)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if !assignment.Active() {
			continue
		}
		if role == domain.RoleAdministrator {
			if err := otherAdminRemains(tx, assignment.Id); err != nil {
				return err
			}
		}
		if err := assignment.Revoke(now); err != nil {
			return err
		}
		if err := tx.UpdateAssignment(assignment); err != nil {
			return err
		}
		if err := audit(tx, now, by, entityRoleAssignment, assignment.Id, domain.AuditRoleRevoked, string(role)); err != nil {
			return err
		}
	}
	return nil
}

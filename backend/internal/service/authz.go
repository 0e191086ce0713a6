package service

import (
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
)

// loadActor checks that the actor still maps to a visible, active member of its
// own account. Tokens outlive status changes, so this runs inside every
// mutating transaction.
func loadActor(tx Tx, actor domain.Actor) (domain.Member, error) {
	if actor == nil {
		return domain.Member{}, errors.New(errors.KindUnauthorized, "sign-in required")
	}
	member, err := tx.GetMember(actor.MemberId(), false)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.Member{}, errors.New(errors.KindUnauthorized, "member no longer exists")
		}
		return domain.Member{}, err
	}
	if member.AccountId != actor.AccountId() {
		return domain.Member{}, errors.New(errors.KindUnauthorized, "token does not match member")
	}
	if member.Status != domain.MemberActive {
		return domain.Member{}, errors.Forbidden("member is %s", member.Status)
	}
	return member, nil
}

// verifiedRole re-reads the role the actor claims. It returns RoleMember for plain
// members and an error when a claimed escalation is no longer active.
func verifiedRole(tx Tx, actor domain.Actor) (domain.Role, error) {
	if _, err := loadActor(tx, actor); err != nil {
		return "", err
	}

	var claimed domain.Role
	switch a := actor.(type) {
	case domain.MemberActor:
		return domain.RoleMember, nil
	case domain.ModeratorActor:
		claimed = a.Role()
	case domain.AdministratorActor:
		claimed = a.Role()
	default:
		return "", errors.New(errors.KindUnauthorized, "unknown actor")
	}

	ok, err := tx.HasActiveRole(actor.MemberId(), claimed)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Forbidden("%s role is no longer active", claimed)
	}
	return claimed, nil
}

// requireStaff admits active moderators and administrators.
func requireStaff(tx Tx, actor domain.Actor) (domain.Role, error) {
	role, err := verifiedRole(tx, actor)
	if err != nil {
		return "", err
	}
	if domain.Rank(role) < domain.Rank(domain.RoleModerator) {
		return "", errors.Forbidden("moderator role required")
	}
	return role, nil
}

func requireAdmin(tx Tx, actor domain.Actor) error {
	role, err := verifiedRole(tx, actor)
	if err != nil {
		return err
	}
	if role != domain.RoleAdministrator {
		return errors.Forbidden("administrator role required")
	}
	return nil
}

// includeDeleted only honours the flag for administrators.
func includeDeleted(tx Tx, actor domain.Actor, requested bool) (bool, error) {
	if !requested {
		return false, nil
	}
	if err := requireAdmin(tx, actor); err != nil {
		return false, err
	}
	return true, nil
}

package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Actor is the identity a policy operation runs on behalf of. It is a closed set:
// MemberActor, ModeratorActor and AdministratorActor are the only implementations.
type Actor interface {
	AccountId() AccountId
	MemberId() MemberId
	Role() Role
	sealed()
}

type MemberActor struct {
	Account AccountId
	Member  MemberId
}

type ModeratorActor struct {
	Account AccountId
	Member  MemberId
}

type AdministratorActor struct {
	Account AccountId
	Member  MemberId
}

func (a MemberActor) AccountId() AccountId { return a.Account }
func (a MemberActor) MemberId() MemberId   { return a.Member }
func (MemberActor) Role() Role             { return RoleMember }
func (MemberActor) sealed()                {}

func (a ModeratorActor) AccountId() AccountId { return a.Account }
func (a ModeratorActor) MemberId() MemberId   { return a.Member }
func (ModeratorActor) Role() Role             { return RoleModerator }
func (ModeratorActor) sealed()                {}

func (a AdministratorActor) AccountId() AccountId { return a.Account }
func (a AdministratorActor) MemberId() MemberId   { return a.Member }
func (AdministratorActor) Role() Role             { return RoleAdministrator }
func (AdministratorActor) sealed()                {}

// NewActor builds the actor variant for a role claim.
func NewActor(role Role, account AccountId, member MemberId) (Actor, error) {
	if member == uuid.Nil {
		return nil, fmt.Errorf("actor without member id")
	}
	switch role {
	case RoleMember:
		return MemberActor{Account: account, Member: member}, nil
	case RoleModerator:
		return ModeratorActor{Account: account, Member: member}, nil
	case RoleAdministrator:
		return AdministratorActor{Account: account, Member: member}, nil
	}
	return nil, fmt.Errorf("unknown role %q", role)
}

// Rank orders roles for "at least" checks.
func Rank(r Role) int {
	switch r {
	case RoleAdministrator:
		return 2
	case RoleModerator:
		return 1
	}
	return 0
}

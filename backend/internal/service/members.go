package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

type MembersService interface {
	Create(ctx context.Context, actor domain.Actor, accountId domain.AccountId, nickname string) (domain.Member, error)
	SetStatus(ctx context.Context, actor domain.Actor, memberId domain.MemberId, status domain.MemberStatus) (domain.Member, error)
	Delete(ctx context.Context, actor domain.Actor, memberId domain.MemberId) error
	Get(ctx context.Context, actor domain.Actor, memberId domain.MemberId, withDeleted bool) (domain.Member, error)
	List(ctx context.Context, actor domain.Actor, status *domain.MemberStatus, filter domain.ListFilter) ([]domain.Member, error)
}

// SanctionCache is told about status changes made by this process.
type SanctionCache interface {
	Set(memberId domain.MemberId, sanctioned bool)
}

type Members struct {
	store     Store
	sanctions SanctionCache
	cfg       *config.Public
	now       Clock
	log       *slog.Logger
}

func NewMembers(store Store, sanctions SanctionCache, cfg *config.Public) *Members {
	return &Members{store: store, sanctions: sanctions, cfg: cfg, now: systemClock, log: logger.Component("members")}
}

const entityMember = "member"

// Create makes an active member for an existing account.
func (s *Members) Create(ctx context.Context, actor domain.Actor, accountId domain.AccountId, nickname string) (result domain.Member, err error) {
	defer func() { observe("members.create", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		if _, err := tx.GetAccount(accountId); err != nil {
			return err
		}
		if _, err := tx.GetMemberByAccount(accountId); err == nil {
			return errors.New(errors.KindConflict, "account already has a member")
		} else if !errors.IsNotFound(err) {
			return err
		}

		now := s.now()
		result = domain.Member{
			Id:        uuid.New(),
			AccountId: accountId,
			Nickname:  nickname,
			Status:    domain.MemberActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.CreateMember(result)
	})
	return result, err
}

// SetStatus moves a member through its status machine. Moderators may suspend,
// lock and lift those; banning, unbanning, activating pending members and
// touching staff members needs an administrator.
func (s *Members) SetStatus(ctx context.Context, actor domain.Actor, memberId domain.MemberId, status domain.MemberStatus) (result domain.Member, err error) {
	defer func() { observe("members.set_status", err) }()

	if !status.Valid() {
		return result, errors.New(errors.KindValidation, "unknown member status %q", status)
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := requireStaff(tx, actor)
		if err != nil {
			return err
		}
		if memberId == actor.MemberId() {
			return errors.Forbidden("cannot change own status")
		}
		member, err := tx.GetMember(memberId, false)
		if err != nil {
			return err
		}
		if !member.Status.CanTransition(status) {
			return errors.InvalidTransition("member", member.Status, status)
		}

		if role != domain.RoleAdministrator {
			if status == domain.MemberBanned || member.Status == domain.MemberBanned || member.Status == domain.MemberPending {
				return errors.Forbidden("administrator role required")
			}
			staff, err := holdsAnyRole(tx, memberId)
			if err != nil {
				return err
			}
			if staff {
				return errors.Forbidden("only administrators can sanction staff")
			}
		}

		now := s.now()
		from := member.Status
		member.Status = status
		member.UpdatedAt = now
		if err := tx.UpdateMember(member); err != nil {
			return err
		}
		if status.Sanctioned() {
			if err := tx.RevokeSessions(member.AccountId, now); err != nil {
				return err
			}
		}
		result = member
		return audit(tx, now, memberRef(actor), entityMember, member.Id, domain.AuditMemberStatusChanged, fmt.Sprintf("%s -> %s", from, status))
	})
	if err != nil {
		return domain.Member{}, err
	}

	s.sanctions.Set(memberId, status.Sanctioned())
	s.log.Info("member status changed", "member_id", memberId, "status", status, "by", actor.MemberId())
	return result, nil
}

func holdsAnyRole(tx Tx, memberId domain.MemberId) (bool, error) {
	for _, role := range []domain.Role{domain.RoleModerator, domain.RoleAdministrator} {
		ok, err := tx.HasActiveRole(memberId, role)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Delete tombstones a member. Active role assignments must be revoked first so
// the administrator invariant is only ever enforced in one place.
func (s *Members) Delete(ctx context.Context, actor domain.Actor, memberId domain.MemberId) (err error) {
	defer func() { observe("members.delete", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		member, err := tx.GetMember(memberId, false)
		if err != nil {
			return err
		}
		staff, err := holdsAnyRole(tx, memberId)
		if err != nil {
			return err
		}
		if staff {
			return errors.New(errors.KindInvalidTransition, "revoke the member's roles before deleting it")
		}

		now := s.now()
		if err := member.SoftDelete(now); err != nil {
			return err
		}
		member.UpdatedAt = now
		if err := tx.UpdateMember(member); err != nil {
			return err
		}
		if err := tx.RevokeSessions(member.AccountId, now); err != nil {
			return err
		}
		return audit(tx, now, memberRef(actor), entityMember, member.Id, domain.AuditMemberDeleted, member.Nickname)
	})
	if err != nil {
		return err
	}
	s.sanctions.Set(memberId, true)
	return nil
}

func (s *Members) Get(ctx context.Context, actor domain.Actor, memberId domain.MemberId, withDeleted bool) (result domain.Member, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		result, err = tx.GetMember(memberId, inc)
		return err
	})
	return result, err
}

func (s *Members) List(ctx context.Context, actor domain.Actor, status *domain.MemberStatus, filter domain.ListFilter) (result []domain.Member, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListMembers(status, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

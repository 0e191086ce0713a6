package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
)

type AppealsService interface {
	File(ctx context.Context, actor domain.Actor, input NewAppeal) (domain.Appeal, error)
	Transition(ctx context.Context, actor domain.Actor, id domain.AppealId, to domain.AppealStatus, comment *string) (domain.Appeal, error)
	Withdraw(ctx context.Context, actor domain.Actor, id domain.AppealId) error
	Get(ctx context.Context, actor domain.Actor, id domain.AppealId, withDeleted bool) (domain.Appeal, error)
	List(ctx context.Context, actor domain.Actor, status *domain.AppealStatus, filter domain.ListFilter) ([]domain.Appeal, error)
}

// NewAppeal contests exactly one of an action or a report.
type NewAppeal struct {
	ActionId *domain.ActionId
	ReportId *domain.ReportId
	Reason   string
}

type Appeals struct {
	store     Store
	sanitizer Sanitizer
	cfg       *config.Public
	now       Clock
}

func NewAppeals(store Store, sanitizer Sanitizer, cfg *config.Public) *Appeals {
	return &Appeals{store: store, sanitizer: sanitizer, cfg: cfg, now: systemClock}
}

// File opens an appeal by the affected member: the target of an action, or the
// reporter once a report has been decided. A target can carry one open appeal
// at a time.
func (s *Appeals) File(ctx context.Context, actor domain.Actor, input NewAppeal) (result domain.Appeal, err error) {
	defer func() { observe("appeals.file", err) }()

	if (input.ActionId == nil) == (input.ReportId == nil) {
		return result, errors.New(errors.KindValidation, "appeal must reference exactly one action or report")
	}
	reason := s.sanitizer.PlainText(input.Reason)
	if reason == "" {
		return result, errors.New(errors.KindValidation, "reason is required")
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}

		var action *domain.ModerationAction
		var open int
		if input.ActionId != nil {
			a, err := tx.GetAction(*input.ActionId, false)
			if err != nil {
				return err
			}
			if a.Target.MemberId == nil || *a.Target.MemberId != actor.MemberId() {
				return errors.Forbidden("only the affected member can appeal an action")
			}
			if open, err = tx.OpenAppealsForAction(a.Id); err != nil {
				return err
			}
			action = &a
		} else {
			report, err := tx.GetReport(*input.ReportId, false)
			if err != nil {
				return err
			}
			if report.ReporterId != actor.MemberId() {
				return errors.Forbidden("only the reporter can appeal a report outcome")
			}
			if !report.Status.Decided() {
				return errors.New(errors.KindInvalidTransition, "report is %s, only decided reports can be appealed", report.Status)
			}
			if open, err = tx.OpenAppealsForReport(report.Id); err != nil {
				return err
			}
		}
		if open > 0 {
			return errors.New(errors.KindInvalidTransition, "an appeal is already open")
		}

		now := s.now()
		result = domain.Appeal{
			Id:          uuid.New(),
			AppellantId: actor.MemberId(),
			ActionId:    input.ActionId,
			ReportId:    input.ReportId,
			Reason:      reason,
			Status:      domain.AppealPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateAppeal(result); err != nil {
			return err
		}

		if action != nil {
			domain.ActionUpdate{AppealId: &result.Id}.Apply(action, now)
			if err := tx.UpdateAction(*action); err != nil {
				return err
			}
			return appendLog(tx, now, action.Id, actor.MemberId(), LogAppealFiled, reason, &result.Id)
		}
		return nil
	})
	if err != nil {
		return domain.Appeal{}, err
	}
	return result, nil
}

// Transition moves an appeal through review. Escalated appeals are decided by
// administrators, and a moderator never reviews an appeal against their own action.
func (s *Appeals) Transition(ctx context.Context, actor domain.Actor, id domain.AppealId, to domain.AppealStatus, comment *string) (result domain.Appeal, err error) {
	defer func() { observe("appeals.transition", err) }()

	if !to.Valid() {
		return result, errors.New(errors.KindValidation, "unknown appeal status %q", to)
	}
	comment = s.sanitizer.PlainTextPtr(comment)

	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := requireStaff(tx, actor)
		if err != nil {
			return err
		}
		appeal, err := tx.GetAppeal(id, false)
		if err != nil {
			return err
		}
		if !appeal.Status.CanTransition(to) {
			return errors.InvalidTransition("appeal", appeal.Status, to)
		}
		if appeal.Status == domain.AppealEscalated && role != domain.RoleAdministrator {
			return errors.Forbidden("escalated appeals are decided by administrators")
		}

		var action *domain.ModerationAction
		if appeal.ActionId != nil {
			a, err := tx.GetAction(*appeal.ActionId, true)
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			if err == nil {
				if a.ModeratorId == actor.MemberId() && role != domain.RoleAdministrator {
					return errors.Forbidden("cannot review an appeal against your own action")
				}
				action = &a
			}
		}

		now := s.now()
		appeal.Status = to
		appeal.ReviewerId = memberRef(actor)
		appeal.UpdatedAt = now
		if to.Terminal() {
			appeal.ResolvedAt = &now
			appeal.ResolutionComment = comment
		}
		if err := tx.UpdateAppeal(appeal); err != nil {
			return err
		}
		result = appeal

		if action != nil && action.Visible() {
			details := string(to)
			if comment != nil {
				details += ": " + *comment
			}
			return appendLog(tx, now, action.Id, actor.MemberId(), LogAppealDecided, details, &appeal.Id)
		}
		return nil
	})
	if err != nil {
		return domain.Appeal{}, err
	}
	return result, nil
}

// Withdraw lets the appellant drop an appeal nobody has picked up yet.
func (s *Appeals) Withdraw(ctx context.Context, actor domain.Actor, id domain.AppealId) (err error) {
	defer func() { observe("appeals.withdraw", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		appeal, err := tx.GetAppeal(id, false)
		if err != nil {
			return err
		}
		if appeal.AppellantId != actor.MemberId() {
			return errors.Forbidden("only the appellant can withdraw an appeal")
		}
		if appeal.Status != domain.AppealPending {
			return errors.New(errors.KindInvalidTransition, "appeal is already %s", appeal.Status)
		}

		now := s.now()
		if err := appeal.SoftDelete(now); err != nil {
			return err
		}
		appeal.UpdatedAt = now
		if err := tx.UpdateAppeal(appeal); err != nil {
			return err
		}

		if appeal.ActionId != nil {
			action, err := tx.GetAction(*appeal.ActionId, false)
			if errors.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			if action.AppealId != nil && *action.AppealId == appeal.Id {
				domain.ActionUpdate{ClearAppeal: true}.Apply(&action, now)
				return tx.UpdateAction(action)
			}
		}
		return nil
	})
}

// Get is open to the appellant and to staff.
func (s *Appeals) Get(ctx context.Context, actor domain.Actor, id domain.AppealId, withDeleted bool) (result domain.Appeal, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		appeal, err := tx.GetAppeal(id, inc)
		if err != nil {
			return err
		}
		if role == domain.RoleMember && appeal.AppellantId != actor.MemberId() {
			return errors.NotFound("appeal")
		}
		result = appeal
		return nil
	})
	return result, err
}

func (s *Appeals) List(ctx context.Context, actor domain.Actor, status *domain.AppealStatus, filter domain.ListFilter) (result []domain.Appeal, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListAppeals(status, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

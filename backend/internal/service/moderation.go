package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

type ModerationService interface {
	CreateAction(ctx context.Context, actor domain.Actor, input NewAction) (domain.ModerationAction, error)
	UpdateAction(ctx context.Context, actor domain.Actor, id domain.ActionId, update domain.ActionUpdate) (domain.ModerationAction, error)
	DeleteAction(ctx context.Context, actor domain.Actor, id domain.ActionId) error
	HardDeleteAction(ctx context.Context, actor domain.Actor, id domain.ActionId) error
	GetAction(ctx context.Context, actor domain.Actor, id domain.ActionId, withDeleted bool) (domain.ModerationAction, error)
	ListActions(ctx context.Context, actor domain.Actor, target domain.ActionTarget, filter domain.ListFilter) ([]domain.ModerationAction, error)

	AppendLog(ctx context.Context, actor domain.Actor, actionId domain.ActionId, input NewLog) (domain.ModerationLog, error)
	UpdateLog(ctx context.Context, actor domain.Actor, id domain.LogId, details string) (domain.ModerationLog, error)
	DeleteLog(ctx context.Context, actor domain.Actor, id domain.LogId) error
	ListLogs(ctx context.Context, actor domain.Actor, actionId domain.ActionId, filter domain.ListFilter) ([]domain.ModerationLog, error)
}

// Sanitizer strips markup from free text before it is stored.
type Sanitizer interface {
	PlainText(s string) string
	PlainTextPtr(s *string) *string
}

type NewAction struct {
	Target    domain.ActionTarget
	Type      domain.ActionType
	Reason    string
	Narrative *string
	Status    *domain.ActionStatus // applied when nil
}

type NewLog struct {
	EventType       string
	Details         string
	RelatedAppealId *domain.AppealId
}

const (
	LogActionCreated  = "action_created"
	LogActionUpdated  = "action_updated"
	LogActionDeleted  = "action_deleted"
	LogAppealFiled    = "appeal_filed"
	LogAppealDecided  = "appeal_decided"
	entityModerAction = "moderation_action"
)

type Moderation struct {
	store     Store
	sanitizer Sanitizer
	cfg       *config.Public
	now       Clock
	log       *slog.Logger
}

func NewModeration(store Store, sanitizer Sanitizer, cfg *config.Public) *Moderation {
	return &Moderation{store: store, sanitizer: sanitizer, cfg: cfg, now: systemClock, log: logger.Component("moderation")}
}

// CreateAction records a moderator intervention and opens its log chain. Whether the
// target exists is the caller's concern.
func (s *Moderation) CreateAction(ctx context.Context, actor domain.Actor, input NewAction) (result domain.ModerationAction, err error) {
	defer func() { observe("moderation.create_action", err) }()

	if !input.Type.Valid() {
		return result, errors.New(errors.KindValidation, "unknown action type %q", input.Type)
	}
	if input.Target.MemberId == nil && input.Target.PostId == nil && input.Target.CommentId == nil {
		return result, errors.New(errors.KindValidation, "action needs a target")
	}
	status := domain.ActionApplied
	if input.Status != nil {
		if !input.Status.Valid() {
			return result, errors.New(errors.KindValidation, "unknown action status %q", *input.Status)
		}
		status = *input.Status
	}
	reason := s.sanitizer.PlainText(input.Reason)
	if reason == "" {
		return result, errors.New(errors.KindValidation, "reason is required")
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}

		now := s.now()
		result = domain.ModerationAction{
			Id:          uuid.New(),
			ModeratorId: actor.MemberId(),
			Target:      input.Target,
			Type:        input.Type,
			Reason:      reason,
			Narrative:   s.sanitizer.PlainTextPtr(input.Narrative),
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateAction(result); err != nil {
			return err
		}
		return appendLog(tx, now, result.Id, actor.MemberId(), LogActionCreated, fmt.Sprintf("%s: %s", result.Type, result.Reason), nil)
	})
	if err != nil {
		return domain.ModerationAction{}, err
	}

	s.log.Info("moderation action created", "action_id", result.Id, "type", result.Type, "by", actor.MemberId())
	return result, nil
}

func appendLog(tx Tx, now time.Time, actionId domain.ActionId, actorId domain.MemberId, event, details string, appealId *domain.AppealId) error {
	return tx.CreateLog(domain.ModerationLog{
		Id:              uuid.New(),
		ActionId:        actionId,
		ActorId:         actorId,
		EventType:       event,
		Details:         details,
		RelatedAppealId: appealId,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// ownAction lets moderators change only their own actions. Administrators may
// change any.
func ownAction(role domain.Role, actor domain.Actor, action domain.ModerationAction) error {
	if role != domain.RoleAdministrator && action.ModeratorId != actor.MemberId() {
		return errors.Forbidden("action belongs to another moderator")
	}
	return nil
}

func (s *Moderation) UpdateAction(ctx context.Context, actor domain.Actor, id domain.ActionId, update domain.ActionUpdate) (result domain.ModerationAction, err error) {
	defer func() { observe("moderation.update_action", err) }()

	if update.Type != nil && !update.Type.Valid() {
		return result, errors.New(errors.KindValidation, "unknown action type %q", *update.Type)
	}
	if update.Status != nil && !update.Status.Valid() {
		return result, errors.New(errors.KindValidation, "unknown action status %q", *update.Status)
	}
	if update.Reason != nil {
		update.Reason = s.sanitizer.PlainTextPtr(update.Reason)
		if *update.Reason == "" {
			return result, errors.New(errors.KindValidation, "reason cannot be empty")
		}
	}
	update.Narrative = s.sanitizer.PlainTextPtr(update.Narrative)

	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := requireStaff(tx, actor)
		if err != nil {
			return err
		}
		action, err := tx.GetAction(id, false)
		if err != nil {
			return err
		}
		if err := ownAction(role, actor, action); err != nil {
			return err
		}
		if update.AppealId != nil && !update.ClearAppeal {
			if _, err := tx.GetAppeal(*update.AppealId, false); err != nil {
				return err
			}
		}

		now := s.now()
		update.Apply(&action, now)
		if err := tx.UpdateAction(action); err != nil {
			return err
		}
		result = action
		return appendLog(tx, now, action.Id, actor.MemberId(), LogActionUpdated, describeUpdate(update), nil)
	})
	if err != nil {
		return domain.ModerationAction{}, err
	}
	return result, nil
}

func describeUpdate(u domain.ActionUpdate) string {
	var fields []string
	if u.Type != nil {
		fields = append(fields, "type="+string(*u.Type))
	}
	if u.Status != nil {
		fields = append(fields, "status="+string(*u.Status))
	}
	if u.Reason != nil {
		fields = append(fields, "reason")
	}
	if u.Narrative != nil {
		fields = append(fields, "narrative")
	}
	if u.ClearAppeal {
		fields = append(fields, "appeal=none")
	} else if u.AppealId != nil {
		fields = append(fields, "appeal="+u.AppealId.String())
	}
	if len(fields) == 0 {
		return "no changes"
	}
	return "changed " + strings.Join(fields, ", ")
}

// actionProtected fails while any open appeal contests the action.
func actionProtected(tx Tx, action domain.ModerationAction) error {
	open, err := tx.OpenAppealsForAction(action.Id)
	if err != nil {
		return err
	}
	if open > 0 {
		return errors.New(errors.KindProtectedByAppeal, "action is contested by an open appeal")
	}
	if action.AppealId != nil {
		appeal, err := tx.GetAppeal(*action.AppealId, true)
		if err != nil && !errors.IsNotFound(err) {
			return err
		}
		if err == nil && appeal.Open() {
			return errors.New(errors.KindProtectedByAppeal, "action is linked to an open appeal")
		}
	}
	return nil
}

// DeleteAction soft-deletes an action that no open appeal references.
func (s *Moderation) DeleteAction(ctx context.Context, actor domain.Actor, id domain.ActionId) (err error) {
	defer func() { observe("moderation.delete_action", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		role, err := requireStaff(tx, actor)
		if err != nil {
			return err
		}
		action, err := tx.GetAction(id, false)
		if err != nil {
			return err
		}
		if err := ownAction(role, actor, action); err != nil {
			return err
		}
		if err := actionProtected(tx, action); err != nil {
			return err
		}

		now := s.now()
		if err := action.SoftDelete(now); err != nil {
			return err
		}
		action.UpdatedAt = now
		if err := tx.UpdateAction(action); err != nil {
			return err
		}
		return appendLog(tx, now, action.Id, actor.MemberId(), LogActionDeleted, "", nil)
	})
}

// HardDeleteAction permanently removes an action and its log chain. It is the
// compliance path, so it also works on tombstoned actions, but it still respects
// open appeals and leaves an audit entry behind.
func (s *Moderation) HardDeleteAction(ctx context.Context, actor domain.Actor, id domain.ActionId) (err error) {
	defer func() { observe("moderation.hard_delete_action", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		action, err := tx.GetAction(id, true)
		if err != nil {
			return err
		}
		if err := actionProtected(tx, action); err != nil {
			return err
		}
		// the log chain goes with the action
		linked, err := tx.OpenAppealsForActionLogs(action.Id)
		if err != nil {
			return err
		}
		if linked > 0 {
			return errors.New(errors.KindProtectedByAppeal, "a log of this action is referenced by an open appeal")
		}
		if err := tx.HardDeleteAction(action.Id); err != nil {
			return err
		}
		details := fmt.Sprintf("type=%s moderator=%s", action.Type, action.ModeratorId)
		return audit(tx, s.now(), memberRef(actor), entityModerAction, action.Id, domain.AuditActionHardDeleted, details)
	})
	if err != nil {
		return err
	}
	s.log.Info("moderation action hard deleted", "action_id", id, "by", actor.MemberId())
	return nil
}

// GetAction is open to staff and to the member the action targets.
func (s *Moderation) GetAction(ctx context.Context, actor domain.Actor, id domain.ActionId, withDeleted bool) (result domain.ModerationAction, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		action, err := tx.GetAction(id, inc)
		if err != nil {
			return err
		}
		if role == domain.RoleMember {
			if action.Target.MemberId == nil || *action.Target.MemberId != actor.MemberId() {
				return errors.NotFound("moderation action")
			}
		}
		result = action
		return nil
	})
	return result, err
}

func (s *Moderation) ListActions(ctx context.Context, actor domain.Actor, target domain.ActionTarget, filter domain.ListFilter) (result []domain.ModerationAction, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListActions(target, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

// AppendLog adds an entry to an action's chain. Entries are never rewritten except
// for their details.
func (s *Moderation) AppendLog(ctx context.Context, actor domain.Actor, actionId domain.ActionId, input NewLog) (result domain.ModerationLog, err error) {
	defer func() { observe("moderation.append_log", err) }()

	if input.EventType == "" {
		return result, errors.New(errors.KindValidation, "event type is required")
	}
	details := s.sanitizer.PlainText(input.Details)

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if _, err := tx.GetAction(actionId, false); err != nil {
			return err
		}
		if input.RelatedAppealId != nil {
			if _, err := tx.GetAppeal(*input.RelatedAppealId, false); err != nil {
				return err
			}
		}

		now := s.now()
		result = domain.ModerationLog{
			Id:              uuid.New(),
			ActionId:        actionId,
			ActorId:         actor.MemberId(),
			EventType:       input.EventType,
			Details:         details,
			RelatedAppealId: input.RelatedAppealId,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.CreateLog(result)
	})
	if err != nil {
		return domain.ModerationLog{}, err
	}
	return result, nil
}

func (s *Moderation) UpdateLog(ctx context.Context, actor domain.Actor, id domain.LogId, details string) (result domain.ModerationLog, err error) {
	defer func() { observe("moderation.update_log", err) }()

	details = s.sanitizer.PlainText(details)
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		entry, err := tx.GetLog(id, false)
		if err != nil {
			return err
		}
		entry.Details = details
		entry.UpdatedAt = s.now()
		if err := tx.UpdateLog(entry); err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return domain.ModerationLog{}, err
	}
	return result, nil
}

// DeleteLog soft-deletes a log entry unless the appeal it points to is still open.
func (s *Moderation) DeleteLog(ctx context.Context, actor domain.Actor, id domain.LogId) (err error) {
	defer func() { observe("moderation.delete_log", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		entry, err := tx.GetLog(id, false)
		if err != nil {
			return err
		}
		if entry.RelatedAppealId != nil {
			appeal, err := tx.GetAppeal(*entry.RelatedAppealId, true)
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			if err == nil && appeal.Open() {
				return errors.New(errors.KindProtectedByAppeal, "log entry is referenced by an open appeal")
			}
		}

		now := s.now()
		if err := entry.SoftDelete(now); err != nil {
			return err
		}
		entry.UpdatedAt = now
		return tx.UpdateLog(entry)
	})
}

func (s *Moderation) ListLogs(ctx context.Context, actor domain.Actor, actionId domain.ActionId, filter domain.ListFilter) (result []domain.ModerationLog, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		if _, err := tx.GetAction(actionId, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListLogs(actionId, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

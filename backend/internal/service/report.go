package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
)

type ReportsService interface {
	Submit(ctx context.Context, actor domain.Actor, input NewReport) (domain.FlagReport, error)
	Review(ctx context.Context, actor domain.Actor, id domain.ReportId, to domain.ReportStatus, actionId *domain.ActionId) (domain.FlagReport, error)
	Delete(ctx context.Context, actor domain.Actor, id domain.ReportId) error
	Get(ctx context.Context, actor domain.Actor, id domain.ReportId, withDeleted bool) (domain.FlagReport, error)
	List(ctx context.Context, actor domain.Actor, status *domain.ReportStatus, filter domain.ListFilter) ([]domain.FlagReport, error)
}

// NewReport flags exactly one post or comment.
type NewReport struct {
	PostId    *domain.PostId
	CommentId *domain.CommentId
	Reason    string
	Details   *string
}

type Reports struct {
	store     Store
	sanitizer Sanitizer
	cfg       *config.Public
	now       Clock
}

func NewReports(store Store, sanitizer Sanitizer, cfg *config.Public) *Reports {
	return &Reports{store: store, sanitizer: sanitizer, cfg: cfg, now: systemClock}
}

// Submit files a report. Identical reports are allowed.
func (s *Reports) Submit(ctx context.Context, actor domain.Actor, input NewReport) (result domain.FlagReport, err error) {
	defer func() { observe("reports.submit", err) }()

	if (input.PostId == nil) == (input.CommentId == nil) {
		return result, errors.New(errors.KindValidation, "report must reference exactly one post or comment")
	}
	reason := s.sanitizer.PlainText(input.Reason)
	if reason == "" {
		return result, errors.New(errors.KindValidation, "reason is required")
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		if input.PostId != nil {
			if _, err := tx.GetPost(*input.PostId, false); err != nil {
				return err
			}
		} else if _, err := tx.GetComment(*input.CommentId, false); err != nil {
			return err
		}

		now := s.now()
		result = domain.FlagReport{
			Id:         uuid.New(),
			ReporterId: actor.MemberId(),
			PostId:     input.PostId,
			CommentId:  input.CommentId,
			Reason:     reason,
			Details:    s.sanitizer.PlainTextPtr(input.Details),
			Status:     domain.ReportPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.CreateReport(result)
	})
	if err != nil {
		return domain.FlagReport{}, err
	}
	return result, nil
}

// Review moves a report through moderation. Linking an action locks the report
// against withdrawal.
func (s *Reports) Review(ctx context.Context, actor domain.Actor, id domain.ReportId, to domain.ReportStatus, actionId *domain.ActionId) (result domain.FlagReport, err error) {
	defer func() { observe("reports.review", err) }()

	if !to.Valid() {
		return result, errors.New(errors.KindValidation, "unknown report status %q", to)
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := requireStaff(tx, actor)
		if err != nil {
			return err
		}
		report, err := tx.GetReport(id, false)
		if err != nil {
			return err
		}
		if !report.Status.CanTransition(to) {
			return errors.InvalidTransition("report", report.Status, to)
		}
		if report.Status == domain.ReportEscalated && role != domain.RoleAdministrator {
			return errors.Forbidden("escalated reports are decided by administrators")
		}
		if actionId != nil {
			if _, err := tx.GetAction(*actionId, false); err != nil {
				return err
			}
			report.ModerationActionId = actionId
		}

		report.Status = to
		report.ReviewedBy = memberRef(actor)
		report.UpdatedAt = s.now()
		if err := tx.UpdateReport(report); err != nil {
			return err
		}
		result = report
		return nil
	})
	if err != nil {
		return domain.FlagReport{}, err
	}
	return result, nil
}

// Delete withdraws a report. Only the reporter can do it, and only while the report
// is pending or under review with no action attached.
func (s *Reports) Delete(ctx context.Context, actor domain.Actor, id domain.ReportId) (err error) {
	defer func() { observe("reports.delete", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		report, err := tx.GetReport(id, false)
		if err != nil {
			return err
		}
		if report.ReporterId != actor.MemberId() {
			return errors.Forbidden("only the reporter can delete a report")
		}
		if !report.Status.Withdrawable() || report.ModerationActionId != nil {
			return errors.New(errors.KindReportLocked, "report is %s and can no longer be deleted", report.Status)
		}

		now := s.now()
		if err := report.SoftDelete(now); err != nil {
			return err
		}
		report.UpdatedAt = now
		return tx.UpdateReport(report)
	})
}

// Get is open to the reporter and to staff.
func (s *Reports) Get(ctx context.Context, actor domain.Actor, id domain.ReportId, withDeleted bool) (result domain.FlagReport, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		report, err := tx.GetReport(id, inc)
		if err != nil {
			return err
		}
		if role == domain.RoleMember && report.ReporterId != actor.MemberId() {
			return errors.NotFound("report")
		}
		result = report
		return nil
	})
	return result, err
}

func (s *Reports) List(ctx context.Context, actor domain.Actor, status *domain.ReportStatus, filter domain.ListFilter) (result []domain.FlagReport, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := requireStaff(tx, actor); err != nil {
			return err
		}
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListReports(status, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

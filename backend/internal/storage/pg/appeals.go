package pg

import (
	"fmt"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

// =========================================================================
// Appeals
// =========================================================================

const appealColumns = `id, appellant_id, action_id, report_id, reason, status, reviewer_id,
	resolution_comment, resolved_at, created_at, updated_at, deleted_at`

func scanAppeal(row scanner) (domain.Appeal, error) {
	var a domain.Appeal
	err := row.Scan(&a.Id, &a.AppellantId, &a.ActionId, &a.ReportId, &a.Reason, &a.Status, &a.ReviewerId,
		&a.ResolutionComment, &a.ResolvedAt, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	a.ResolvedAt, a.DeletedAt = utc(a.ResolvedAt), utc(a.DeletedAt)
	return a, err
}

func (t *txStore) CreateAppeal(a domain.Appeal) error {
	_, err := t.q.Exec(`
		INSERT INTO appeals (`+appealColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.Id, a.AppellantId, a.ActionId, a.ReportId, a.Reason, a.Status, a.ReviewerId,
		a.ResolutionComment, a.ResolvedAt, a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appeal: %w", err)
	}
	return nil
}

func (t *txStore) GetAppeal(id domain.AppealId, includeDeleted bool) (domain.Appeal, error) {
	a, err := scanAppeal(t.q.QueryRow(`
		SELECT `+appealColumns+`
		FROM appeals
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.Appeal{}, notFound(err, "appeal")
	}
	return a, nil
}

func (t *txStore) UpdateAppeal(a domain.Appeal) error {
	result, err := t.q.Exec(`
		UPDATE appeals
		SET status = $2, reviewer_id = $3, resolution_comment = $4, resolved_at = $5, updated_at = $6, deleted_at = $7
		WHERE id = $1`,
		a.Id, a.Status, a.ReviewerId, a.ResolutionComment, a.ResolvedAt, a.UpdatedAt, a.DeletedAt,
	)
	return affected(result, err, "appeal")
}

func (t *txStore) ListAppeals(status *domain.AppealStatus, filter domain.ListFilter) ([]domain.Appeal, error) {
	args := []any{filter.IncludeDeleted, status}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+appealColumns+`
		FROM appeals
		WHERE ($1 OR deleted_at IS NULL) AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "appeals", scanAppeal)
}

const openAppeal = `deleted_at IS NULL AND status NOT IN ('resolved', 'rejected')`

func (t *txStore) OpenAppealsForAction(actionId domain.ActionId) (int, error) {
	var n int
	if err := t.q.QueryRow(`SELECT COUNT(*) FROM appeals WHERE action_id = $1 AND `+openAppeal, actionId).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count open appeals: %w", err)
	}
	return n, nil
}

// OpenAppealsForActionLogs counts open appeals that a log of the action points at,
// tombstoned logs included.
func (t *txStore) OpenAppealsForActionLogs(actionId domain.ActionId) (int, error) {
	var n int
	err := t.q.QueryRow(`
		SELECT COUNT(DISTINCT appeals.id)
		FROM moderation_logs l
		JOIN appeals ON appeals.id = l.related_appeal_id
		WHERE l.action_id = $1
		  AND appeals.deleted_at IS NULL AND appeals.status NOT IN ('resolved', 'rejected')`, actionId,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count open appeals of action logs: %w", err)
	}
	return n, nil
}

func (t *txStore) OpenAppealsForReport(reportId domain.ReportId) (int, error) {
	var n int
	if err := t.q.QueryRow(`SELECT COUNT(*) FROM appeals WHERE report_id = $1 AND `+openAppeal, reportId).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count open appeals: %w", err)
	}
	return n, nil
}

// =========================================================================
// Flag reports
// =========================================================================

const reportColumns = `id, reporter_id, post_id, comment_id, reason, details, status,
	moderation_action_id, reviewed_by, created_at, updated_at, deleted_at`

func scanReport(row scanner) (domain.FlagReport, error) {
	var r domain.FlagReport
	err := row.Scan(&r.Id, &r.ReporterId, &r.PostId, &r.CommentId, &r.Reason, &r.Details, &r.Status,
		&r.ModerationActionId, &r.ReviewedBy, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	r.CreatedAt, r.UpdatedAt, r.DeletedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC(), utc(r.DeletedAt)
	return r, err
}

func (t *txStore) CreateReport(r domain.FlagReport) error {
	_, err := t.q.Exec(`
		INSERT INTO flag_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.Id, r.ReporterId, r.PostId, r.CommentId, r.Reason, r.Details, r.Status,
		r.ModerationActionId, r.ReviewedBy, r.CreatedAt, r.UpdatedAt, r.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (t *txStore) GetReport(id domain.ReportId, includeDeleted bool) (domain.FlagReport, error) {
	r, err := scanReport(t.q.QueryRow(`
		SELECT `+reportColumns+`
		FROM flag_reports
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.FlagReport{}, notFound(err, "report")
	}
	return r, nil
}

func (t *txStore) UpdateReport(r domain.FlagReport) error {
	result, err := t.q.Exec(`
		UPDATE flag_reports
		SET status = $2, moderation_action_id = $3, reviewed_by = $4, updated_at = $5, deleted_at = $6
		WHERE id = $1`,
		r.Id, r.Status, r.ModerationActionId, r.ReviewedBy, r.UpdatedAt, r.DeletedAt,
	)
	return affected(result, err, "report")
}

func (t *txStore) ListReports(status *domain.ReportStatus, filter domain.ListFilter) ([]domain.FlagReport, error) {
	args := []any{filter.IncludeDeleted, status}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+reportColumns+`
		FROM flag_reports
		WHERE ($1 OR deleted_at IS NULL) AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "reports", scanReport)
}

package pg

import (
	"fmt"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

// =========================================================================
// Moderation actions
// =========================================================================

const actionColumns = `id, moderator_id, target_member_id, target_post_id, target_comment_id,
	type, reason, narrative, status, appeal_id, created_at, updated_at, deleted_at`

func scanAction(row scanner) (domain.ModerationAction, error) {
	var a domain.ModerationAction
	err := row.Scan(&a.Id, &a.ModeratorId, &a.Target.MemberId, &a.Target.PostId, &a.Target.CommentId,
		&a.Type, &a.Reason, &a.Narrative, &a.Status, &a.AppealId, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	a.CreatedAt, a.UpdatedAt, a.DeletedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC(), utc(a.DeletedAt)
	return a, err
}

func (t *txStore) CreateAction(a domain.ModerationAction) error {
	_, err := t.q.Exec(`
		INSERT INTO moderation_actions (`+actionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.Id, a.ModeratorId, a.Target.MemberId, a.Target.PostId, a.Target.CommentId,
		a.Type, a.Reason, a.Narrative, a.Status, a.AppealId, a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert moderation action: %w", err)
	}
	return nil
}

func (t *txStore) GetAction(id domain.ActionId, includeDeleted bool) (domain.ModerationAction, error) {
	a, err := scanAction(t.q.QueryRow(`
		SELECT `+actionColumns+`
		FROM moderation_actions
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.ModerationAction{}, notFound(err, "moderation action")
	}
	return a, nil
}

// UpdateAction never writes moderator_id, the target or created_at.
func (t *txStore) UpdateAction(a domain.ModerationAction) error {
	result, err := t.q.Exec(`
		UPDATE moderation_actions
		SET type = $2, reason = $3, narrative = $4, status = $5, appeal_id = $6, updated_at = $7, deleted_at = $8
		WHERE id = $1`,
		a.Id, a.Type, a.Reason, a.Narrative, a.Status, a.AppealId, a.UpdatedAt, a.DeletedAt,
	)
	return affected(result, err, "moderation action")
}

// HardDeleteAction removes the row; its log chain goes with it through the
// ON DELETE CASCADE foreign key.
func (t *txStore) HardDeleteAction(id domain.ActionId) error {
	result, err := t.q.Exec(`DELETE FROM moderation_actions WHERE id = $1`, id)
	return affected(result, err, "moderation action")
}

func (t *txStore) ListActions(target domain.ActionTarget, filter domain.ListFilter) ([]domain.ModerationAction, error) {
	args := []any{filter.IncludeDeleted, target.MemberId, target.PostId, target.CommentId}
	page, args := pageClause(filter, 5, args)
	rows, err := t.q.Query(`
		SELECT `+actionColumns+`
		FROM moderation_actions
		WHERE ($1 OR deleted_at IS NULL)
		  AND ($2::uuid IS NULL OR target_member_id = $2)
		  AND ($3::uuid IS NULL OR target_post_id = $3)
		  AND ($4::uuid IS NULL OR target_comment_id = $4)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "moderation actions", scanAction)
}

// =========================================================================
// Moderation logs
// =========================================================================

const logColumns = `id, action_id, actor_id, event_type, details, related_appeal_id, created_at, updated_at, deleted_at`

func scanLog(row scanner) (domain.ModerationLog, error) {
	var l domain.ModerationLog
	err := row.Scan(&l.Id, &l.ActionId, &l.ActorId, &l.EventType, &l.Details, &l.RelatedAppealId, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt)
	l.CreatedAt, l.UpdatedAt, l.DeletedAt = l.CreatedAt.UTC(), l.UpdatedAt.UTC(), utc(l.DeletedAt)
	return l, err
}

func (t *txStore) CreateLog(l domain.ModerationLog) error {
	_, err := t.q.Exec(`
		INSERT INTO moderation_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.Id, l.ActionId, l.ActorId, l.EventType, l.Details, l.RelatedAppealId, l.CreatedAt, l.UpdatedAt, l.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert moderation log: %w", err)
	}
	return nil
}

func (t *txStore) GetLog(id domain.LogId, includeDeleted bool) (domain.ModerationLog, error) {
	l, err := scanLog(t.q.QueryRow(`
		SELECT `+logColumns+`
		FROM moderation_logs
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.ModerationLog{}, notFound(err, "moderation log")
	}
	return l, nil
}

// UpdateLog only rewrites details and the tombstone.
func (t *txStore) UpdateLog(l domain.ModerationLog) error {
	result, err := t.q.Exec(`
		UPDATE moderation_logs SET details = $2, updated_at = $3, deleted_at = $4 WHERE id = $1`,
		l.Id, l.Details, l.UpdatedAt, l.DeletedAt,
	)
	return affected(result, err, "moderation log")
}

func (t *txStore) ListLogs(actionId domain.ActionId, filter domain.ListFilter) ([]domain.ModerationLog, error) {
	args := []any{actionId, filter.IncludeDeleted}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+logColumns+`
		FROM moderation_logs
		WHERE action_id = $1 AND ($2 OR deleted_at IS NULL)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "moderation logs", scanLog)
}

package pg

import (
	"fmt"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

func (t *txStore) AppendAudit(e domain.AuditEntry) error {
	_, err := t.q.Exec(`
		INSERT INTO audit_log (id, actor_id, entity_type, entity_id, event, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Id, e.ActorId, e.EntityType, e.EntityId, e.Event, e.Details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns entries oldest first. An empty entityType lists everything.
func (t *txStore) ListAudit(entityType string, filter domain.ListFilter) ([]domain.AuditEntry, error) {
	args := []any{entityType}
	page, args := pageClause(filter, 2, args)
	rows, err := t.q.Query(`
		SELECT id, actor_id, entity_type, entity_id, event, details, created_at
		FROM audit_log
		WHERE ($1 = '' OR entity_type = $1)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "audit entries", func(row scanner) (domain.AuditEntry, error) {
		var e domain.AuditEntry
		err := row.Scan(&e.Id, &e.ActorId, &e.EntityType, &e.EntityId, &e.Event, &e.Details, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
}

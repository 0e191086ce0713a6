package pg

import (
	"fmt"

	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	shared_pg "github.com/itchan-dev/modpolicy/shared/storage/pg"
)

const assignmentColumns = `id, member_id, role, assigned_by, assigned_at, status, revoked_at, created_at, updated_at, deleted_at`

func scanAssignment(row scanner) (domain.RoleAssignment, error) {
	var r domain.RoleAssignment
	err := row.Scan(&r.Id, &r.MemberId, &r.Role, &r.AssignedBy, &r.AssignedAt, &r.Status, &r.RevokedAt, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	r.AssignedAt, r.CreatedAt, r.UpdatedAt = r.AssignedAt.UTC(), r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	r.RevokedAt, r.DeletedAt = utc(r.RevokedAt), utc(r.DeletedAt)
	return r, err
}

func (t *txStore) CreateAssignment(r domain.RoleAssignment) error {
	_, err := t.q.Exec(`
		INSERT INTO role_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.Id, r.MemberId, r.Role, r.AssignedBy, r.AssignedAt, r.Status, r.RevokedAt, r.CreatedAt, r.UpdatedAt, r.DeletedAt,
	)
	if shared_pg.IsUniqueViolation(err, "role_assignments_member_role_key") {
		return internal_errors.New(internal_errors.KindAlreadyAssigned, "member already has a %s record", r.Role)
	}
	if err != nil {
		return fmt.Errorf("failed to insert role assignment: %w", err)
	}
	return nil
}

func (t *txStore) GetAssignment(id domain.AssignmentId, includeDeleted bool) (domain.RoleAssignment, error) {
	r, err := scanAssignment(t.q.QueryRow(`
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.RoleAssignment{}, notFound(err, "role assignment")
	}
	return r, nil
}

// FindAssignment locks the pair's record so a concurrent escalate waits for us.
func (t *txStore) FindAssignment(memberId domain.MemberId, role domain.Role) (domain.RoleAssignment, error) {
	r, err := scanAssignment(t.q.QueryRow(`
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE member_id = $1 AND role = $2
		FOR UPDATE`, memberId, role))
	if err != nil {
		return domain.RoleAssignment{}, notFound(err, "role assignment")
	}
	return r, nil
}

func (t *txStore) UpdateAssignment(r domain.RoleAssignment) error {
	result, err := t.q.Exec(`
		UPDATE role_assignments
		SET assigned_by = $2, assigned_at = $3, status = $4, revoked_at = $5, updated_at = $6, deleted_at = $7
		WHERE id = $1`,
		r.Id, r.AssignedBy, r.AssignedAt, r.Status, r.RevokedAt, r.UpdatedAt, r.DeletedAt,
	)
	return affected(result, err, "role assignment")
}

func (t *txStore) HasActiveRole(memberId domain.MemberId, role domain.Role) (bool, error) {
	var exists bool
	err := t.q.QueryRow(`
		SELECT EXISTS(
			SELECT 1
			FROM role_assignments ra
			JOIN members m ON m.id = ra.member_id
			JOIN accounts a ON a.id = m.account_id
			WHERE ra.member_id = $1 AND ra.role = $2
			  AND ra.status = 'active' AND ra.revoked_at IS NULL AND ra.deleted_at IS NULL
			  AND m.deleted_at IS NULL AND a.deleted_at IS NULL
		)`, memberId, role,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}

// LockActiveAdministrators takes row locks on every active administrator record
// whose member and account are still visible. A concurrent revoke blocks here
// until we commit, then re-reads the rows and no longer sees the one we revoked.
func (t *txStore) LockActiveAdministrators() ([]domain.AssignmentId, error) {
	rows, err := t.q.Query(`
		SELECT ra.id
		FROM role_assignments ra
		JOIN members m ON m.id = ra.member_id
		JOIN accounts a ON a.id = m.account_id
		WHERE ra.role = 'administrator' AND ra.status = 'active'
		  AND ra.revoked_at IS NULL AND ra.deleted_at IS NULL
		  AND m.deleted_at IS NULL AND a.deleted_at IS NULL
		ORDER BY ra.id
		FOR UPDATE OF ra`)
	return collect(rows, err, "administrators", func(row scanner) (domain.AssignmentId, error) {
		var id domain.AssignmentId
		err := row.Scan(&id)
		return id, err
	})
}

// ListAssignments returns active records unless the filter includes deleted ones,
// in which case revoked records are returned too.
func (t *txStore) ListAssignments(role *domain.Role, filter domain.ListFilter) ([]domain.RoleAssignment, error) {
	args := []any{filter.IncludeDeleted, role}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE ($1 OR (deleted_at IS NULL AND status = 'active'))
		  AND ($2::text IS NULL OR role = $2)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "role assignments", scanAssignment)
}

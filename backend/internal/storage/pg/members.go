package pg

import (
	"fmt"

	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	shared_pg "github.com/itchan-dev/modpolicy/shared/storage/pg"
)

const memberColumns = `id, account_id, nickname, status, created_at, updated_at, deleted_at`

func scanMember(row scanner) (domain.Member, error) {
	var m domain.Member
	err := row.Scan(&m.Id, &m.AccountId, &m.Nickname, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	m.CreatedAt, m.UpdatedAt, m.DeletedAt = m.CreatedAt.UTC(), m.UpdatedAt.UTC(), utc(m.DeletedAt)
	return m, err
}

func (t *txStore) CreateMember(m domain.Member) error {
	_, err := t.q.Exec(`
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.Id, m.AccountId, m.Nickname, m.Status, m.CreatedAt, m.UpdatedAt, m.DeletedAt,
	)
	if shared_pg.IsUniqueViolation(err, "members_account_id_key") {
		return internal_errors.New(internal_errors.KindConflict, "account already has a member")
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func (t *txStore) GetMember(id domain.MemberId, includeDeleted bool) (domain.Member, error) {
	m, err := scanMember(t.q.QueryRow(`
		SELECT `+memberColumns+`
		FROM members
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.Member{}, notFound(err, "member")
	}
	return m, nil
}

func (t *txStore) GetMemberByAccount(accountId domain.AccountId) (domain.Member, error) {
	m, err := scanMember(t.q.QueryRow(`
		SELECT `+memberColumns+`
		FROM members
		WHERE account_id = $1 AND deleted_at IS NULL`, accountId))
	if err != nil {
		return domain.Member{}, notFound(err, "member")
	}
	return m, nil
}

func (t *txStore) UpdateMember(m domain.Member) error {
	result, err := t.q.Exec(`
		UPDATE members
		SET nickname = $2, status = $3, updated_at = $4, deleted_at = $5
		WHERE id = $1`,
		m.Id, m.Nickname, m.Status, m.UpdatedAt, m.DeletedAt,
	)
	return affected(result, err, "member")
}

func (t *txStore) ListMembers(status *domain.MemberStatus, filter domain.ListFilter) ([]domain.Member, error) {
	args := []any{filter.IncludeDeleted, status}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+memberColumns+`
		FROM members
		WHERE ($1 OR deleted_at IS NULL) AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "members", scanMember)
}

package pg

import (
	"fmt"
	"time"

	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	shared_pg "github.com/itchan-dev/modpolicy/shared/storage/pg"
)

// =========================================================================
// Accounts
// =========================================================================

const accountColumns = `id, email_hash, email_cipher, password_hash, email_verified, suspended, created_at, updated_at, deleted_at`

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.Id, &a.EmailHash, &a.EmailCipher, &a.PassHash, &a.EmailVerified, &a.Suspended, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	a.CreatedAt, a.UpdatedAt, a.DeletedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC(), utc(a.DeletedAt)
	return a, err
}

func (t *txStore) CreateAccount(a domain.Account) error {
	_, err := t.q.Exec(`
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.Id, nullBytes(a.EmailHash), nullBytes(a.EmailCipher), a.PassHash, a.EmailVerified, a.Suspended, a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
	if shared_pg.IsUniqueViolation(err, "accounts_email_hash_key") {
		return internal_errors.New(internal_errors.KindConflict, "email is already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount returns tombstoned accounts too: erased accounts still own their
// requests and members.
func (t *txStore) GetAccount(id domain.AccountId) (domain.Account, error) {
	a, err := scanAccount(t.q.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return domain.Account{}, notFound(err, "account")
	}
	return a, nil
}

func (t *txStore) GetAccountByEmailHash(hash []byte) (domain.Account, error) {
	a, err := scanAccount(t.q.QueryRow(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email_hash = $1 AND deleted_at IS NULL`, hash))
	if err != nil {
		return domain.Account{}, notFound(err, "account")
	}
	return a, nil
}

func (t *txStore) UpdateAccount(a domain.Account) error {
	result, err := t.q.Exec(`
		UPDATE accounts
		SET email_hash = $2, email_cipher = $3, password_hash = $4, email_verified = $5,
		    suspended = $6, updated_at = $7, deleted_at = $8
		WHERE id = $1`,
		a.Id, nullBytes(a.EmailHash), nullBytes(a.EmailCipher), a.PassHash, a.EmailVerified, a.Suspended, a.UpdatedAt, a.DeletedAt,
	)
	return affected(result, err, "account")
}

// =========================================================================
// Confirmation data
// =========================================================================

func (t *txStore) SaveConfirmationData(data domain.ConfirmationData) error {
	_, err := t.q.Exec(`
		INSERT INTO confirmation_data (account_id, email, confirmation_code_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			confirmation_code_hash = EXCLUDED.confirmation_code_hash,
			expires_at = EXCLUDED.expires_at`,
		data.AccountId, data.Email, data.ConfirmationCodeHash, data.Expires,
	)
	if err != nil {
		return fmt.Errorf("failed to save confirmation data: %w", err)
	}
	return nil
}

func (t *txStore) GetConfirmationData(accountId domain.AccountId) (domain.ConfirmationData, error) {
	var data domain.ConfirmationData
	err := t.q.QueryRow(`
		SELECT account_id, email, confirmation_code_hash, expires_at
		FROM confirmation_data WHERE account_id = $1`, accountId,
	).Scan(&data.AccountId, &data.Email, &data.ConfirmationCodeHash, &data.Expires)
	if err != nil {
		return domain.ConfirmationData{}, notFound(err, "confirmation data")
	}
	data.Expires = data.Expires.UTC()
	return data, nil
}

func (t *txStore) DeleteConfirmationData(accountId domain.AccountId) error {
	if _, err := t.q.Exec(`DELETE FROM confirmation_data WHERE account_id = $1`, accountId); err != nil {
		return fmt.Errorf("failed to delete confirmation data: %w", err)
	}
	return nil
}

// =========================================================================
// Sessions
// =========================================================================

func (t *txStore) CreateSession(s domain.Session) error {
	_, err := t.q.Exec(`
		INSERT INTO sessions (id, account_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.Id, s.AccountId, s.TokenHash, s.ExpiresAt, s.RevokedAt, s.ReplacedBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (t *txStore) LockSessionByHash(tokenHash string) (domain.Session, error) {
	var s domain.Session
	err := t.q.QueryRow(`
		SELECT id, account_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM sessions
		WHERE token_hash = $1
		FOR UPDATE`, tokenHash,
	).Scan(&s.Id, &s.AccountId, &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.ReplacedBy, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, notFound(err, "session")
	}
	s.ExpiresAt, s.CreatedAt, s.RevokedAt = s.ExpiresAt.UTC(), s.CreatedAt.UTC(), utc(s.RevokedAt)
	return s, nil
}

func (t *txStore) UpdateSession(s domain.Session) error {
	result, err := t.q.Exec(`
		UPDATE sessions SET revoked_at = $2, replaced_by = $3 WHERE id = $1`,
		s.Id, s.RevokedAt, s.ReplacedBy,
	)
	return affected(result, err, "session")
}

func (t *txStore) RevokeSessions(accountId domain.AccountId, now time.Time) error {
	_, err := t.q.Exec(`
		UPDATE sessions SET revoked_at = $2
		WHERE account_id = $1 AND revoked_at IS NULL`,
		accountId, now,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

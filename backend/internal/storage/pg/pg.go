package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
	shared_pg "github.com/itchan-dev/modpolicy/shared/storage/pg"
)

// Querier is the transaction-agnostic query surface shared with the pg package.
type Querier = shared_pg.Querier

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type Storage struct {
	db  *sql.DB
	cfg *config.Config
}

func New(cfg *config.Config) (*Storage, error) {
	logger.Log.Info("connecting to database", "host", cfg.Private.Pg.Host, "dbname", cfg.Private.Pg.Dbname)
	db, err := shared_pg.Connect(cfg, shared_pg.DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	logger.Log.Info("successfully connected to database")
	return &Storage{db: db, cfg: cfg}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

// Ping is used by the health endpoint.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =========================================================================
// Transactions
// =========================================================================

// InTx runs fn inside one database transaction. Returning an error from fn rolls
// every statement back.
func (s *Storage) InTx(ctx context.Context, fn func(tx service.Tx) error) error {
	return shared_pg.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&txStore{q: tx})
	})
}

// txStore implements service.Tx on top of a Querier. Every method is written
// against Querier, so tests can run the same code on a bare *sql.Tx.
type txStore struct {
	q Querier
}

var _ service.Store = (*Storage)(nil)
var _ service.Tx = (*txStore)(nil)

// =========================================================================
// Sanction cache source
// =========================================================================

// RecentlySanctionedMembers lists members that are sanctioned or deleted and whose
// row changed since the given time.
func (s *Storage) RecentlySanctionedMembers(ctx context.Context, since time.Time) ([]domain.MemberId, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM members
		WHERE (status IN ('suspended', 'locked', 'banned') OR deleted_at IS NOT NULL)
		  AND updated_at >= $1`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sanctioned members: %w", err)
	}
	defer rows.Close()

	var ids []domain.MemberId
	for rows.Next() {
		var id domain.MemberId
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sanctioned member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sanctioned members: %w", err)
	}
	return ids, nil
}

// =========================================================================
// Helpers
// =========================================================================

// notFound maps sql.ErrNoRows to the policy NotFound error and wraps anything else.
func notFound(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return internal_errors.NotFound(entity)
	}
	return fmt.Errorf("failed to query %s: %w", entity, err)
}

// affected turns a zero-row UPDATE into NotFound.
func affected(result sql.Result, err error, entity string) error {
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for %s: %w", entity, err)
	}
	if n == 0 {
		return internal_errors.NotFound(entity)
	}
	return nil
}

// pageClause appends LIMIT/OFFSET placeholders starting at argument n.
func pageClause(filter domain.ListFilter, n int, args []any) (string, []any) {
	clause := ""
	if filter.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}
	return clause, args
}

// collect scans every row with scan and closes rows.
func collect[T any](rows *sql.Rows, err error, entity string, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entity, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", entity, err)
	}
	return out, nil
}

// utc normalizes timestamps read back from TIMESTAMPTZ columns.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// nullBytes sends a nil slice as NULL rather than an empty bytea, which matters for
// the unique email hash of erased accounts.
func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

package service

import (
	"context"

	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
)

// AuditService reads the board-wide audit trail. Entries are only ever written by
// the other services, inside the transaction of the change they describe.
type AuditService interface {
	List(ctx context.Context, actor domain.Actor, entityType string, filter domain.ListFilter) ([]domain.AuditEntry, error)
}

type Audit struct {
	store Store
	cfg   *config.Public
}

func NewAudit(store Store, cfg *config.Public) *Audit {
	return &Audit{store: store, cfg: cfg}
}

// List is restricted to administrators. An empty entityType lists every entry.
func (s *Audit) List(ctx context.Context, actor domain.Actor, entityType string, filter domain.ListFilter) (result []domain.AuditEntry, err error) {
	defer func() { observe("audit.list", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		result, err = tx.ListAudit(entityType, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

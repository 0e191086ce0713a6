package domain

import (
	"time"

	"github.com/itchan-dev/modpolicy/shared/errors"
)

// Tombstone is embedded in every mutable entity. A set DeletedAt hides the entity from
// default reads while keeping the row for audit.
type Tombstone struct {
	DeletedAt *time.Time
}

func (t Tombstone) Visible() bool {
	return t.DeletedAt == nil
}

// SoftDelete stamps the entity as deleted. It never moves an existing stamp.
func (t *Tombstone) SoftDelete(now time.Time) error {
	if t.DeletedAt != nil {
		return errors.ErrAlreadyDeleted
	}
	stamp := now.UTC()
	t.DeletedAt = &stamp
	return nil
}

func (t *Tombstone) Restore() {
	t.DeletedAt = nil
}

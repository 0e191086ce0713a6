package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/domain"
)

// Clock is injected so time-window rules can be tested.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// page clamps a caller supplied filter to the configured page size.
func page(filter domain.ListFilter, pageSize int) domain.ListFilter {
	if filter.Limit <= 0 || filter.Limit > pageSize {
		filter.Limit = pageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

func audit(tx Tx, now time.Time, actor *domain.MemberId, entityType string, entityId uuid.UUID, event, details string) error {
	return tx.AppendAudit(domain.AuditEntry{
		Id:         uuid.New(),
		ActorId:    actor,
		EntityType: entityType,
		EntityId:   entityId.String(),
		Event:      event,
		Details:    details,
		CreatedAt:  now,
	})
}

func memberRef(actor domain.Actor) *domain.MemberId {
	id := actor.MemberId()
	return &id
}

func ptr[T any](v T) *T {
	return &v
}

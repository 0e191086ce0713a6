package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

type ComplianceService interface {
	SubmitErasureRequest(ctx context.Context, actor domain.Actor, kind domain.ErasureType, justification *string) (domain.ErasureRequest, error)
	UpdateErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId, update domain.ErasureUpdate) (domain.ErasureRequest, error)
	DeleteErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId) error
	GetErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId, withDeleted bool) (domain.ErasureRequest, error)
	ListErasureRequests(ctx context.Context, actor domain.Actor, status *domain.ErasureStatus, filter domain.ListFilter) ([]domain.ErasureRequest, error)

	RecordEvent(ctx context.Context, actor domain.Actor, input NewComplianceEvent) (domain.ComplianceEvent, error)
	ResolveEvent(ctx context.Context, actor domain.Actor, id domain.EventId) (domain.ComplianceEvent, error)
	ListEvents(ctx context.Context, actor domain.Actor, status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error)

	RequestDashboard(ctx context.Context, actor domain.Actor) (domain.PrivacyDashboard, error)
	UpdateDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId, update domain.DashboardUpdate) (domain.PrivacyDashboard, error)
	GetDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId, withDeleted bool) (domain.PrivacyDashboard, error)
	DeleteDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId) error
}

type NewComplianceEvent struct {
	AccountId        *domain.AccountId
	ErasureRequestId *domain.ErasureId
	EventType        string
	Details          string
}

const (
	EventErasureSubmitted = "erasure_request_submitted"
	EventErasureCompleted = "erasure_request_completed"
	EventErasureRejected  = "erasure_request_rejected"

	entityErasure   = "erasure_request"
	entityDashboard = "privacy_dashboard"
)

type Compliance struct {
	store     Store
	sanitizer Sanitizer
	sanctions SanctionCache
	cfg       *config.Public
	now       Clock
	log       *slog.Logger
}

func NewCompliance(store Store, sanitizer Sanitizer, sanctions SanctionCache, cfg *config.Public) *Compliance {
	return &Compliance{store: store, sanitizer: sanitizer, sanctions: sanctions, cfg: cfg, now: systemClock, log: logger.Component("compliance")}
}

// SubmitErasureRequest files a regulatory request for the actor's own account.
func (s *Compliance) SubmitErasureRequest(ctx context.Context, actor domain.Actor, kind domain.ErasureType, justification *string) (result domain.ErasureRequest, err error) {
	defer func() { observe("compliance.submit_erasure", err) }()

	if !kind.Valid() {
		return result, errors.New(errors.KindValidation, "unknown request type %q", kind)
	}
	justification = s.sanitizer.PlainTextPtr(justification)

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		now := s.now()
		result = domain.ErasureRequest{
			Id:            uuid.New(),
			AccountId:     actor.AccountId(),
			Type:          kind,
			Justification: justification,
			Status:        domain.ErasurePending,
			SubmittedAt:   now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.CreateErasureRequest(result); err != nil {
			return err
		}
		return recordEvent(tx, now, &result.AccountId, &result.Id, EventErasureSubmitted, string(kind), domain.ComplianceOpen)
	})
	if err != nil {
		return domain.ErasureRequest{}, err
	}
	return result, nil
}

func recordEvent(tx Tx, now time.Time, accountId *domain.AccountId, requestId *domain.ErasureId, eventType, details string, status domain.ComplianceEventStatus) error {
	event := domain.ComplianceEvent{
		Id:               uuid.New(),
		AccountId:        accountId,
		ErasureRequestId: requestId,
		EventType:        eventType,
		Details:          details,
		Status:           status,
		OccurredAt:       now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if status == domain.ComplianceResolved {
		event.ResolvedAt = &now
	}
	return tx.CreateComplianceEvent(event)
}

// UpdateErasureRequest changes the processing fields of a request. The update type
// has no identity fields, so id, account, type and submission time never change.
// Completing an erasure or deletion request wipes the account's personal data in
// the same transaction.
func (s *Compliance) UpdateErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId, update domain.ErasureUpdate) (result domain.ErasureRequest, err error) {
	defer func() { observe("compliance.update_erasure", err) }()

	update.ResponsePayload = s.sanitizer.PlainTextPtr(update.ResponsePayload)
	update.RegulatorReference = s.sanitizer.PlainTextPtr(update.RegulatorReference)

	var erased *domain.MemberId
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		request, err := tx.GetErasureRequest(id, false)
		if err != nil {
			return err
		}

		now := s.now()
		if update.Status != nil && *update.Status != request.Status {
			to := *update.Status
			if !to.Valid() {
				return errors.New(errors.KindValidation, "unknown request status %q", to)
			}
			if !request.Status.CanTransition(to) {
				return errors.InvalidTransition("erasure request", request.Status, to)
			}
			if update.ProcessedAt == nil && request.ProcessedAt == nil {
				update.ProcessedAt = &now
			}
			if to == domain.ErasureCompleted && update.VerifierId == nil && request.VerifierId == nil {
				update.VerifierId = memberRef(actor)
				update.VerifiedAt = &now
			}
		} else {
			update.Status = nil
		}
		if update.VerifierId != nil {
			if _, err := tx.GetMember(*update.VerifierId, false); err != nil {
				if errors.IsNotFound(err) {
					return errors.New(errors.KindValidation, "verifier %s is not a member", *update.VerifierId)
				}
				return err
			}
		}
		if update.VerifierId != nil && update.VerifiedAt == nil {
			update.VerifiedAt = &now
		}

		update.Apply(&request, now)
		if err := tx.UpdateErasureRequest(request); err != nil {
			return err
		}
		result = request

		if update.Status == nil {
			return nil
		}
		switch request.Status {
		case domain.ErasureCompleted:
			if request.Type.Erases() {
				if erased, err = eraseAccount(tx, request.AccountId, now, memberRef(actor)); err != nil {
					return err
				}
			}
			if err := audit(tx, now, memberRef(actor), entityErasure, request.Id, domain.AuditErasureCompleted, string(request.Type)); err != nil {
				return err
			}
			return recordEvent(tx, now, &request.AccountId, &request.Id, EventErasureCompleted, string(request.Type), domain.ComplianceResolved)
		case domain.ErasureRejected:
			return recordEvent(tx, now, &request.AccountId, &request.Id, EventErasureRejected, string(request.Type), domain.ComplianceResolved)
		}
		return nil
	})
	if err != nil {
		return domain.ErasureRequest{}, err
	}

	if erased != nil {
		s.sanctions.Set(*erased, true)
		s.log.Info("account personal data erased", "request_id", id, "member_id", *erased)
	}
	return result, nil
}

// eraseAccount anonymizes the member and drops the account's email and password.
// The rows stay so moderation history keeps its references. Roles are revoked
// first, so an erased administrator never counts toward the active ones.
func eraseAccount(tx Tx, accountId domain.AccountId, now time.Time, by *domain.MemberId) (*domain.MemberId, error) {
	member, err := tx.GetMemberByAccount(accountId)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	hasMember := err == nil
	if hasMember {
		if err := revokeMemberRoles(tx, member.Id, now, by); err != nil {
			return nil, err
		}
	}

	account, err := tx.GetAccount(accountId)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if err == nil {
		account.Email = ""
		account.EmailCipher = nil
		account.EmailHash = nil
		account.PassHash = ""
		account.Suspended = true
		account.UpdatedAt = now
		if err := tombstone(&account.Tombstone, now); err != nil {
			return nil, err
		}
		if err := tx.UpdateAccount(account); err != nil {
			return nil, err
		}
		if err := tx.RevokeSessions(accountId, now); err != nil {
			return nil, err
		}
	}

	if !hasMember {
		return nil, nil
	}
	member.Nickname = fmt.Sprintf("deleted-%s", member.Id.String()[:8])
	member.UpdatedAt = now
	if err := tombstone(&member.Tombstone, now); err != nil {
		return nil, err
	}
	if err := tx.UpdateMember(member); err != nil {
		return nil, err
	}
	return &member.Id, nil
}

// tombstone soft-deletes unless the row already carries a tombstone.
func tombstone(t *domain.Tombstone, now time.Time) error {
	if !t.Visible() {
		return nil
	}
	return t.SoftDelete(now)
}

// DeleteErasureRequest tombstones the tracking record only. The removal itself is
// audited.
func (s *Compliance) DeleteErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId) (err error) {
	defer func() { observe("compliance.delete_erasure", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		request, err := tx.GetErasureRequest(id, false)
		if err != nil {
			return err
		}
		now := s.now()
		if err := request.SoftDelete(now); err != nil {
			return err
		}
		request.UpdatedAt = now
		if err := tx.UpdateErasureRequest(request); err != nil {
			return err
		}
		details := fmt.Sprintf("type=%s status=%s", request.Type, request.Status)
		return audit(tx, now, memberRef(actor), entityErasure, request.Id, domain.AuditErasureDeleted, details)
	})
}

// GetErasureRequest is open to the requesting account and to administrators.
func (s *Compliance) GetErasureRequest(ctx context.Context, actor domain.Actor, id domain.ErasureId, withDeleted bool) (result domain.ErasureRequest, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		request, err := tx.GetErasureRequest(id, inc)
		if err != nil {
			return err
		}
		if role != domain.RoleAdministrator && request.AccountId != actor.AccountId() {
			return errors.NotFound("erasure request")
		}
		result = request
		return nil
	})
	return result, err
}

func (s *Compliance) ListErasureRequests(ctx context.Context, actor domain.Actor, status *domain.ErasureStatus, filter domain.ListFilter) (result []domain.ErasureRequest, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		result, err = tx.ListErasureRequests(status, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

func (s *Compliance) RecordEvent(ctx context.Context, actor domain.Actor, input NewComplianceEvent) (result domain.ComplianceEvent, err error) {
	if input.EventType == "" {
		return result, errors.New(errors.KindValidation, "event type is required")
	}
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		if input.ErasureRequestId != nil {
			if _, err := tx.GetErasureRequest(*input.ErasureRequestId, true); err != nil {
				return err
			}
		}
		now := s.now()
		result = domain.ComplianceEvent{
			Id:               uuid.New(),
			AccountId:        input.AccountId,
			ErasureRequestId: input.ErasureRequestId,
			EventType:        input.EventType,
			Details:          s.sanitizer.PlainText(input.Details),
			Status:           domain.ComplianceOpen,
			OccurredAt:       now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return tx.CreateComplianceEvent(result)
	})
	if err != nil {
		return domain.ComplianceEvent{}, err
	}
	return result, nil
}

func (s *Compliance) ResolveEvent(ctx context.Context, actor domain.Actor, id domain.EventId) (result domain.ComplianceEvent, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		event, err := tx.GetComplianceEvent(id, false)
		if err != nil {
			return err
		}
		if event.Status != domain.ComplianceOpen {
			return errors.InvalidTransition("compliance event", event.Status, domain.ComplianceResolved)
		}
		now := s.now()
		event.Status = domain.ComplianceResolved
		event.ResolvedAt = &now
		event.UpdatedAt = now
		if err := tx.UpdateComplianceEvent(event); err != nil {
			return err
		}
		result = event
		return nil
	})
	if err != nil {
		return domain.ComplianceEvent{}, err
	}
	return result, nil
}

func (s *Compliance) ListEvents(ctx context.Context, actor domain.Actor, status *domain.ComplianceEventStatus, filter domain.ListFilter) (result []domain.ComplianceEvent, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		result, err = tx.ListComplianceEvents(status, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}

// RequestDashboard asks for an export of the actor's own data.
func (s *Compliance) RequestDashboard(ctx context.Context, actor domain.Actor) (result domain.PrivacyDashboard, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		now := s.now()
		result = domain.PrivacyDashboard{
			Id:          uuid.New(),
			AccountId:   actor.AccountId(),
			Status:      domain.DashboardRequested,
			RequestedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.CreateDashboard(result)
	})
	if err != nil {
		return domain.PrivacyDashboard{}, err
	}
	return result, nil
}

// UpdateDashboard only touches status and payload.
func (s *Compliance) UpdateDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId, update domain.DashboardUpdate) (result domain.PrivacyDashboard, err error) {
	defer func() { observe("compliance.update_dashboard", err) }()

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		dashboard, err := tx.GetDashboard(id, false)
		if err != nil {
			return err
		}

		now := s.now()
		if update.Status != nil && *update.Status != dashboard.Status {
			if !dashboard.Status.CanTransition(*update.Status) {
				return errors.InvalidTransition("privacy dashboard", dashboard.Status, *update.Status)
			}
			dashboard.Status = *update.Status
			if dashboard.Status == domain.DashboardReady {
				dashboard.ProcessedAt = &now
			}
		}
		if update.Payload != nil {
			dashboard.Payload = update.Payload
		}
		dashboard.UpdatedAt = now
		if err := tx.UpdateDashboard(dashboard); err != nil {
			return err
		}
		result = dashboard
		return nil
	})
	if err != nil {
		return domain.PrivacyDashboard{}, err
	}
	return result, nil
}

func (s *Compliance) GetDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId, withDeleted bool) (result domain.PrivacyDashboard, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		dashboard, err := tx.GetDashboard(id, inc)
		if err != nil {
			return err
		}
		if role != domain.RoleAdministrator && dashboard.AccountId != actor.AccountId() {
			return errors.NotFound("privacy dashboard")
		}
		result = dashboard
		return nil
	})
	return result, err
}

func (s *Compliance) DeleteDashboard(ctx context.Context, actor domain.Actor, id domain.DashboardId) (err error) {
	defer func() { observe("compliance.delete_dashboard", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		if err := requireAdmin(tx, actor); err != nil {
			return err
		}
		dashboard, err := tx.GetDashboard(id, false)
		if err != nil {
			return err
		}
		now := s.now()
		if err := dashboard.SoftDelete(now); err != nil {
			return err
		}
		dashboard.UpdatedAt = now
		if err := tx.UpdateDashboard(dashboard); err != nil {
			return err
		}
		return audit(tx, now, memberRef(actor), entityDashboard, dashboard.Id, domain.AuditDashboardDeleted, string(dashboard.Status))
	})
}

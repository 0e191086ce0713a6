package pg

import (
	"fmt"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

// =========================================================================
// Erasure requests
// =========================================================================

const erasureColumns = `id, account_id, type, justification, status, submitted_at, processed_at,
	verifier_id, verified_at, response_payload, regulator_reference, created_at, updated_at, deleted_at`

func scanErasure(row scanner) (domain.ErasureRequest, error) {
	var r domain.ErasureRequest
	err := row.Scan(&r.Id, &r.AccountId, &r.Type, &r.Justification, &r.Status, &r.SubmittedAt, &r.ProcessedAt,
		&r.VerifierId, &r.VerifiedAt, &r.ResponsePayload, &r.RegulatorReference, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	r.SubmittedAt, r.CreatedAt, r.UpdatedAt = r.SubmittedAt.UTC(), r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	r.ProcessedAt, r.VerifiedAt, r.DeletedAt = utc(r.ProcessedAt), utc(r.VerifiedAt), utc(r.DeletedAt)
	return r, err
}

func (t *txStore) CreateErasureRequest(r domain.ErasureRequest) error {
	_, err := t.q.Exec(`
		INSERT INTO erasure_requests (`+erasureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.Id, r.AccountId, r.Type, r.Justification, r.Status, r.SubmittedAt, r.ProcessedAt,
		r.VerifierId, r.VerifiedAt, r.ResponsePayload, r.RegulatorReference, r.CreatedAt, r.UpdatedAt, r.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert erasure request: %w", err)
	}
	return nil
}

func (t *txStore) GetErasureRequest(id domain.ErasureId, includeDeleted bool) (domain.ErasureRequest, error) {
	r, err := scanErasure(t.q.QueryRow(`
		SELECT `+erasureColumns+`
		FROM erasure_requests
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.ErasureRequest{}, notFound(err, "erasure request")
	}
	return r, nil
}

// UpdateErasureRequest leaves account_id, type and submitted_at untouched.
func (t *txStore) UpdateErasureRequest(r domain.ErasureRequest) error {
	result, err := t.q.Exec(`
		UPDATE erasure_requests
		SET justification = $2, status = $3, processed_at = $4, verifier_id = $5, verified_at = $6,
		    response_payload = $7, regulator_reference = $8, updated_at = $9, deleted_at = $10
		WHERE id = $1`,
		r.Id, r.Justification, r.Status, r.ProcessedAt, r.VerifierId, r.VerifiedAt,
		r.ResponsePayload, r.RegulatorReference, r.UpdatedAt, r.DeletedAt,
	)
	return affected(result, err, "erasure request")
}

func (t *txStore) ListErasureRequests(status *domain.ErasureStatus, filter domain.ListFilter) ([]domain.ErasureRequest, error) {
	args := []any{filter.IncludeDeleted, status}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+erasureColumns+`
		FROM erasure_requests
		WHERE ($1 OR deleted_at IS NULL) AND ($2::text IS NULL OR status = $2)
		ORDER BY submitted_at, id`+page, args...)
	return collect(rows, err, "erasure requests", scanErasure)
}

// =========================================================================
// Compliance events
// =========================================================================

const eventColumns = `id, account_id, erasure_request_id, event_type, details, status,
	occurred_at, resolved_at, created_at, updated_at, deleted_at`

func scanEvent(row scanner) (domain.ComplianceEvent, error) {
	var e domain.ComplianceEvent
	err := row.Scan(&e.Id, &e.AccountId, &e.ErasureRequestId, &e.EventType, &e.Details, &e.Status,
		&e.OccurredAt, &e.ResolvedAt, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	e.OccurredAt, e.CreatedAt, e.UpdatedAt = e.OccurredAt.UTC(), e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	e.ResolvedAt, e.DeletedAt = utc(e.ResolvedAt), utc(e.DeletedAt)
	return e, err
}

func (t *txStore) CreateComplianceEvent(e domain.ComplianceEvent) error {
	_, err := t.q.Exec(`
		INSERT INTO compliance_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.Id, e.AccountId, e.ErasureRequestId, e.EventType, e.Details, e.Status,
		e.OccurredAt, e.ResolvedAt, e.CreatedAt, e.UpdatedAt, e.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert compliance event: %w", err)
	}
	return nil
}

func (t *txStore) GetComplianceEvent(id domain.EventId, includeDeleted bool) (domain.ComplianceEvent, error) {
	e, err := scanEvent(t.q.QueryRow(`
		SELECT `+eventColumns+`
		FROM compliance_events
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.ComplianceEvent{}, notFound(err, "compliance event")
	}
	return e, nil
}

func (t *txStore) UpdateComplianceEvent(e domain.ComplianceEvent) error {
	result, err := t.q.Exec(`
		UPDATE compliance_events
		SET details = $2, status = $3, resolved_at = $4, updated_at = $5, deleted_at = $6
		WHERE id = $1`,
		e.Id, e.Details, e.Status, e.ResolvedAt, e.UpdatedAt, e.DeletedAt,
	)
	return affected(result, err, "compliance event")
}

func (t *txStore) ListComplianceEvents(status *domain.ComplianceEventStatus, filter domain.ListFilter) ([]domain.ComplianceEvent, error) {
	args := []any{filter.IncludeDeleted, status}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+eventColumns+`
		FROM compliance_events
		WHERE ($1 OR deleted_at IS NULL) AND ($2::text IS NULL OR status = $2)
		ORDER BY occurred_at, id`+page, args...)
	return collect(rows, err, "compliance events", scanEvent)
}

// =========================================================================
// Privacy dashboards
// =========================================================================

const dashboardColumns = `id, account_id, status, requested_at, processed_at, payload, created_at, updated_at, deleted_at`

func scanDashboard(row scanner) (domain.PrivacyDashboard, error) {
	var d domain.PrivacyDashboard
	err := row.Scan(&d.Id, &d.AccountId, &d.Status, &d.RequestedAt, &d.ProcessedAt, &d.Payload, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	d.RequestedAt, d.CreatedAt, d.UpdatedAt = d.RequestedAt.UTC(), d.CreatedAt.UTC(), d.UpdatedAt.UTC()
	d.ProcessedAt, d.DeletedAt = utc(d.ProcessedAt), utc(d.DeletedAt)
	return d, err
}

func (t *txStore) CreateDashboard(d domain.PrivacyDashboard) error {
	_, err := t.q.Exec(`
		INSERT INTO privacy_dashboards (`+dashboardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.Id, d.AccountId, d.Status, d.RequestedAt, d.ProcessedAt, d.Payload, d.CreatedAt, d.UpdatedAt, d.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert privacy dashboard: %w", err)
	}
	return nil
}

func (t *txStore) GetDashboard(id domain.DashboardId, includeDeleted bool) (domain.PrivacyDashboard, error) {
	d, err := scanDashboard(t.q.QueryRow(`
		SELECT `+dashboardColumns+`
		FROM privacy_dashboards
		WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.PrivacyDashboard{}, notFound(err, "privacy dashboard")
	}
	return d, nil
}

func (t *txStore) UpdateDashboard(d domain.PrivacyDashboard) error {
	result, err := t.q.Exec(`
		UPDATE privacy_dashboards
		SET status = $2, processed_at = $3, payload = $4, updated_at = $5, deleted_at = $6
		WHERE id = $1`,
		d.Id, d.Status, d.ProcessedAt, d.Payload, d.UpdatedAt, d.DeletedAt,
	)
	return affected(result, err, "privacy dashboard")
}

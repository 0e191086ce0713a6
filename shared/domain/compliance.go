package domain

import "time"

type ErasureType string

const (
	ErasureGDPR       ErasureType = "gdpr_erasure"
	ErasureCCPA       ErasureType = "ccpa_deletion"
	ErasureDataAccess ErasureType = "data_access"
)

func (t ErasureType) Valid() bool {
	return t == ErasureGDPR || t == ErasureCCPA || t == ErasureDataAccess
}

// Erases reports whether completing a request of this type wipes personal data.
func (t ErasureType) Erases() bool {
	return t == ErasureGDPR || t == ErasureCCPA
}

type ErasureStatus string

const (
	ErasurePending    ErasureStatus = "pending"
	ErasureInProgress ErasureStatus = "in_progress"
	ErasureCompleted  ErasureStatus = "completed"
	ErasureRejected   ErasureStatus = "rejected"
)

var erasureTransitions = map[ErasureStatus][]ErasureStatus{
	ErasurePending:    {ErasureInProgress, ErasureRejected},
	ErasureInProgress: {ErasureCompleted, ErasureRejected},
	ErasureCompleted:  nil,
	ErasureRejected:   nil,
}

func (s ErasureStatus) Valid() bool {
	_, ok := erasureTransitions[s]
	return ok
}

func (s ErasureStatus) CanTransition(to ErasureStatus) bool {
	return contains(erasureTransitions[s], to)
}

// ErasureRequest tracks a regulatory data request. Id, AccountId, Type and SubmittedAt
// are fixed at submission.
type ErasureRequest struct {
	Id                 ErasureId
	AccountId          AccountId
	Type               ErasureType
	Justification      *string
	Status             ErasureStatus
	SubmittedAt        time.Time
	ProcessedAt        *time.Time
	VerifierId         *MemberId
	VerifiedAt         *time.Time
	ResponsePayload    *string
	RegulatorReference *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Tombstone
}

// ErasureUpdate has no field for the immutable part of a request, so an update can
// never change it.
type ErasureUpdate struct {
	Status             *ErasureStatus
	ProcessedAt        *time.Time
	VerifierId         *MemberId
	VerifiedAt         *time.Time
	ResponsePayload    *string
	RegulatorReference *string
}

func (u ErasureUpdate) Apply(r *ErasureRequest, now time.Time) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.ProcessedAt != nil {
		r.ProcessedAt = u.ProcessedAt
	}
	if u.VerifierId != nil {
		r.VerifierId = u.VerifierId
	}
	if u.VerifiedAt != nil {
		r.VerifiedAt = u.VerifiedAt
	}
	if u.ResponsePayload != nil {
		r.ResponsePayload = u.ResponsePayload
	}
	if u.RegulatorReference != nil {
		r.RegulatorReference = u.RegulatorReference
	}
	r.UpdatedAt = now
}

type ComplianceEventStatus string

const (
	ComplianceOpen     ComplianceEventStatus = "open"
	ComplianceResolved ComplianceEventStatus = "resolved"
)

type ComplianceEvent struct {
	Id               EventId
	AccountId        *AccountId
	ErasureRequestId *ErasureId
	EventType        string
	Details          string
	Status           ComplianceEventStatus
	OccurredAt       time.Time
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Tombstone
}

type DashboardStatus string

const (
	DashboardRequested  DashboardStatus = "requested"
	DashboardGenerating DashboardStatus = "generating"
	DashboardReady      DashboardStatus = "ready"
	DashboardExpired    DashboardStatus = "expired"
)

var dashboardTransitions = map[DashboardStatus][]DashboardStatus{
	DashboardRequested:  {DashboardGenerating, DashboardExpired},
	DashboardGenerating: {DashboardReady, DashboardExpired},
	DashboardReady:      {DashboardExpired},
	DashboardExpired:    nil,
}

func (s DashboardStatus) CanTransition(to DashboardStatus) bool {
	return contains(dashboardTransitions[s], to)
}

type PrivacyDashboard struct {
	Id          DashboardId
	AccountId   AccountId
	Status      DashboardStatus
	RequestedAt time.Time
	ProcessedAt *time.Time
	Payload     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tombstone
}

type DashboardUpdate struct {
	Status  *DashboardStatus
	Payload *string
}

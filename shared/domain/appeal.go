package domain

import "time"

type AppealStatus string

const (
	AppealPending   AppealStatus = "pending"
	AppealInReview  AppealStatus = "in_review"
	AppealEscalated AppealStatus = "escalated"
	AppealResolved  AppealStatus = "resolved"
	AppealRejected  AppealStatus = "rejected"
)

var appealTransitions = map[AppealStatus][]AppealStatus{
	AppealPending:   {AppealInReview},
	AppealInReview:  {AppealEscalated, AppealResolved, AppealRejected},
	AppealEscalated: {AppealResolved, AppealRejected},
	AppealResolved:  nil,
	AppealRejected:  nil,
}

func (s AppealStatus) Valid() bool {
	_, ok := appealTransitions[s]
	return ok
}

func (s AppealStatus) CanTransition(to AppealStatus) bool {
	return contains(appealTransitions[s], to)
}

// Terminal appeals no longer protect the logs and actions they reference.
func (s AppealStatus) Terminal() bool {
	return s == AppealResolved || s == AppealRejected
}

type Appeal struct {
	Id                AppealId
	AppellantId       MemberId
	ActionId          *ActionId
	ReportId          *ReportId
	Reason            string
	Status            AppealStatus
	ReviewerId        *MemberId
	ResolutionComment *string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Tombstone
}

// Open reports whether the appeal still blocks deletion of what it references.
func (a Appeal) Open() bool {
	return a.Visible() && !a.Status.Terminal()
}

type ReportStatus string

const (
	ReportPending     ReportStatus = "pending"
	ReportUnderReview ReportStatus = "under_review"
	ReportAccepted    ReportStatus = "accepted"
	ReportDismissed   ReportStatus = "dismissed"
	ReportEscalated   ReportStatus = "escalated"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportPending:     {ReportUnderReview},
	ReportUnderReview: {ReportAccepted, ReportDismissed, ReportEscalated},
	ReportEscalated:   {ReportAccepted, ReportDismissed},
	ReportAccepted:    nil,
	ReportDismissed:   nil,
}

func (s ReportStatus) Valid() bool {
	_, ok := reportTransitions[s]
	return ok
}

func (s ReportStatus) CanTransition(to ReportStatus) bool {
	return contains(reportTransitions[s], to)
}

// Withdrawable statuses allow the reporter to delete the report.
func (s ReportStatus) Withdrawable() bool {
	return s == ReportPending || s == ReportUnderReview
}

func (s ReportStatus) Decided() bool {
	return s == ReportAccepted || s == ReportDismissed
}

type FlagReport struct {
	Id                 ReportId
	ReporterId         MemberId
	PostId             *PostId
	CommentId          *CommentId
	Reason             string
	Details            *string
	Status             ReportStatus
	ModerationActionId *ActionId
	ReviewedBy         *MemberId
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Tombstone
}

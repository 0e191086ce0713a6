package errors

import (
	stderrors "errors"
	"fmt"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// Kind classifies a policy rejection. The HTTP boundary decides the status code for each kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyDeleted
	KindAlreadyAssigned
	KindAlreadyRevoked
	KindForbidden
	KindProtectedByAppeal
	KindLastAdminProtection
	KindWindowExpired
	KindInvalidTransition
	KindReportLocked
	KindValidation
	KindUnauthorized
	KindConflict
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindNotFound:            "NotFound",
	KindAlreadyDeleted:      "AlreadyDeleted",
	KindAlreadyAssigned:     "AlreadyAssigned",
	KindAlreadyRevoked:      "AlreadyRevoked",
	KindForbidden:           "Forbidden",
	KindProtectedByAppeal:   "ProtectedByAppeal",
	KindLastAdminProtection: "LastAdminProtection",
	KindWindowExpired:       "WindowExpired",
	KindInvalidTransition:   "InvalidTransition",
	KindReportLocked:        "ReportLocked",
	KindValidation:          "Validation",
	KindUnauthorized:        "Unauthorized",
	KindConflict:            "Conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// PolicyError is returned by every policy operation that rejects a request.
type PolicyError struct {
	Kind    Kind
	Message string
}

func (e *PolicyError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches any PolicyError of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *PolicyError) Is(target error) bool {
	t, ok := target.(*PolicyError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound            = &PolicyError{Kind: KindNotFound}
	ErrAlreadyDeleted      = &PolicyError{Kind: KindAlreadyDeleted}
	ErrAlreadyAssigned     = &PolicyError{Kind: KindAlreadyAssigned}
	ErrAlreadyRevoked      = &PolicyError{Kind: KindAlreadyRevoked}
	ErrForbidden           = &PolicyError{Kind: KindForbidden}
	ErrProtectedByAppeal   = &PolicyError{Kind: KindProtectedByAppeal}
	ErrLastAdminProtection = &PolicyError{Kind: KindLastAdminProtection}
	ErrWindowExpired       = &PolicyError{Kind: KindWindowExpired}
	ErrInvalidTransition   = &PolicyError{Kind: KindInvalidTransition}
	ErrReportLocked        = &PolicyError{Kind: KindReportLocked}
	ErrValidation          = &PolicyError{Kind: KindValidation}
	ErrUnauthorized        = &PolicyError{Kind: KindUnauthorized}
	ErrConflict            = &PolicyError{Kind: KindConflict}
)

func New(kind Kind, format string, args ...any) error {
	return &PolicyError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string) error {
	return &PolicyError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", entity)}
}

func Forbidden(format string, args ...any) error {
	return New(KindForbidden, format, args...)
}

func InvalidTransition(entity string, from, to any) error {
	return &PolicyError{Kind: KindInvalidTransition, Message: fmt.Sprintf("%s cannot move from %v to %v", entity, from, to)}
}

// KindOf returns the kind of the first PolicyError in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var pe *PolicyError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

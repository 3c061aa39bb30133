package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers deciding between retry, fix and give-up.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindConflict         Kind = "CONFLICT"
	KindAuthorization    Kind = "AUTHORIZATION"
	KindNotFound         Kind = "NOT_FOUND"
	KindGateway          Kind = "GATEWAY"
	KindGatewayRejection Kind = "GATEWAY_REJECTION"
)

// Error is the shared failure envelope. Conflict errors carry the overlapping
// day range so callers can offer alternative dates.
type Error struct {
	Kind          Kind
	Message       string
	ConflictStart string
	ConflictEnd   string
	Cause         error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf reports a date-overlap failure together with the contested range.
func Conflictf(startKey, endKey, format string, args ...any) *Error {
	return &Error{
		Kind:          KindConflict,
		Message:       fmt.Sprintf(format, args...),
		ConflictStart: startKey,
		ConflictEnd:   endKey,
	}
}

func Authorizationf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Gateway wraps a transient provider failure; retrying with the same order is safe.
func Gateway(message string, cause error) *Error {
	return &Error{Kind: KindGateway, Message: message, Cause: cause}
}

// Rejection marks a terminal provider decline for the current order.
func Rejection(message string, cause error) *Error {
	return &Error{Kind: KindGatewayRejection, Message: message, Cause: cause}
}

// KindOf extracts the classification, or "" for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the caller may safely repeat the operation.
func IsRetryable(err error) bool {
	return KindOf(err) == KindGateway
}

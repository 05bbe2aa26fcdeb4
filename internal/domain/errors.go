// Package domain defines the error taxonomy shared by the lifecycle engine,
// the invite ledger and the HTTP layer. Guard violations surface as typed
// errors and are never retried automatically.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is a typed domain error with a stable machine code and optional
// details (e.g. a validation.Violations map).
type Error struct {
	Kind    Kind
	Code    string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func Unauthenticated(code string) *Error { return &Error{Kind: KindUnauthenticated, Code: code} }
func Forbidden(code string) *Error       { return &Error{Kind: KindForbidden, Code: code} }
func NotFound(code string) *Error        { return &Error{Kind: KindNotFound, Code: code} }
func Conflict(code string) *Error        { return &Error{Kind: KindConflict, Code: code} }

func Validation(code string, details any) *Error {
	return &Error{Kind: KindValidation, Code: code, Details: details}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

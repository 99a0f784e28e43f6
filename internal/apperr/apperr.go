// Package apperr defines the error kinds shared by the fetch, normalise and
// sync paths. Each kind maps to exactly one HTTP status in the api package.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindRemoteUnavailable    Kind = "remote_unavailable"
	KindMalformedResponse    Kind = "malformed_response"
	KindRequiredFieldMissing Kind = "missing_required_field"
	KindStoreUnavailable     Kind = "store_unavailable"
	KindDuplicateKeyRace     Kind = "duplicate_key_race"
	KindNotFound             Kind = "not_found"
)

// Sentinels for errors.Is checks against a bare kind.
var (
	ErrRemoteUnavailable    = &Error{Kind: KindRemoteUnavailable, Msg: "remote unavailable"}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse, Msg: "malformed response"}
	ErrRequiredFieldMissing = &Error{Kind: KindRequiredFieldMissing, Msg: "required field missing"}
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable, Msg: "store unavailable"}
	ErrDuplicateKeyRace     = &Error{Kind: KindDuplicateKeyRace, Msg: "duplicate key race"}
	ErrNotFound             = &Error{Kind: KindNotFound, Msg: "not found"}
)

// Error is a classified error wrapping an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err returns nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or "" when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Missing reports a required field that was absent or malformed.
func Missing(field string) *Error {
	return New(KindRequiredFieldMissing, "required field %q missing", field)
}

package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed auth operation. The transport maps it to a status code.
type ErrorKind int

const (
	KindConflict ErrorKind = iota + 1
	KindInvalidCredentials
	KindBadRequest
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindBadRequest:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Reason tells guard failures apart. It is empty for non-guard errors.
type Reason string

const (
	ReasonMissingToken Reason = "missing_token"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonUserNotFound Reason = "user_not_found"
	ReasonNotSuperuser Reason = "not_superuser"
)

const (
	detailAccountExists      = "account already exists"
	detailInvalidCredentials = "invalid name or password"
	detailRefreshRequired    = "refresh token required"
	detailRefreshFailed      = "could not refresh access token"
	detailNotAuthenticated   = "not authenticated"
	detailUserGone           = "user no longer exists"
	detailTokenInvalid       = "token invalid or expired"
	detailNotSuperuser       = "not a superuser"
)

// Error is the single error type returned by AuthService for expected failures.
type Error struct {
	Kind   ErrorKind
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidCredentials is the one error returned for both unknown names and
// wrong passwords.
var ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Detail: detailInvalidCredentials}

// KindOf returns the ErrorKind carried by err, or 0 for unexpected errors.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return 0
}

// ReasonOf returns the guard Reason carried by err, if any.
func ReasonOf(err error) Reason {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Reason
	}
	return ""
}

func unauthorized(reason Reason, detail string, err error) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Detail: detail, Err: err}
}

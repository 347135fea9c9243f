// Package domainerrors defines the error codes surfaced by services and the
// translation of those codes into error kinds and HTTP statuses.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors from this package. Transport layers only ever look
// at the code.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

// Lending codes. These values are part of the public API and must not change.
const (
	CodeUnknownMember         Code = "UnknownMember"
	CodeMemberInactive        Code = "MemberInactive"
	CodeTitleNotLendable      Code = "TitleNotLendable"
	CodeVolumeMismatch        Code = "VolumeMismatch"
	CodeBadQuantity           Code = "BadQuantity"
	CodeInsufficientInventory Code = "InsufficientInventory"
	CodeDueDateInvalid        Code = "DueDateInvalid"
	CodeAgeRestricted         Code = "AgeRestricted"
	CodeDuplicateSubmission   Code = "DuplicateSubmission"
	CodeIllegalTransition     Code = "IllegalTransition"
	CodeTimeout               Code = "Timeout"
)

// Ambient codes shared by every module.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "NotFound"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeRateLimited        Code = "rate_limited"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Kind groups codes by how callers are expected to react.
type Kind string

const (
	KindInputValidation    Kind = "input-validation"
	KindPolicyDenial       Kind = "policy-denial"
	KindResourceContention Kind = "resource-contention"
	KindStateError         Kind = "state-error"
	KindNotFound           Kind = "not-found"
	KindIntegrity          Kind = "integrity"
	KindTransient          Kind = "transient"
	KindAuth               Kind = "auth"
	KindInternal           Kind = "internal"
)

var codeKinds = map[Code]Kind{
	CodeUnknownMember:         KindNotFound,
	CodeMemberInactive:        KindPolicyDenial,
	CodeTitleNotLendable:      KindPolicyDenial,
	CodeVolumeMismatch:        KindIntegrity,
	CodeBadQuantity:           KindInputValidation,
	CodeInsufficientInventory: KindResourceContention,
	CodeDueDateInvalid:        KindInputValidation,
	CodeAgeRestricted:         KindPolicyDenial,
	CodeDuplicateSubmission:   KindPolicyDenial,
	CodeIllegalTransition:     KindStateError,
	CodeTimeout:               KindTransient,

	CodeBadRequest:         KindInputValidation,
	CodeValidation:         KindInputValidation,
	CodeInvalidInput:       KindInputValidation,
	CodeNotFound:           KindNotFound,
	CodeConflict:           KindStateError,
	CodeUnauthorized:       KindAuth,
	CodeForbidden:          KindAuth,
	CodeRateLimited:        KindTransient,
	CodeInvariantViolation: KindIntegrity,
	CodeInternal:           KindInternal,
}

// Kind returns the taxonomy bucket of the code. Unknown codes are internal.
func (c Code) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindInternal
}

// Error is a coded domain error. Field names the offending request field when
// the failure can be attributed to one.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error carrying the code and a human-readable message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewField is New with the offending field attached.
func NewField(code Code, field, msg string) error {
	return &Error{Code: code, Message: msg, Field: field}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost *Error from the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in the chain has the code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the status returned to HTTP clients.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeBadQuantity, CodeDueDateInvalid:
		return http.StatusBadRequest
	case CodeVolumeMismatch, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeNotFound, CodeUnknownMember:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeMemberInactive, CodeAgeRestricted, CodeTitleNotLendable:
		return http.StatusForbidden
	case CodeConflict, CodeInsufficientInventory, CodeIllegalTransition, CodeDuplicateSubmission:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

package errs

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure so that callers can decide whether to retry,
// surface, or translate it, without string matching.
type Kind int

const (
	// KindValidation — caller's fault, rejected before any ledger call.
	KindValidation Kind = iota
	// KindConflict — the operation contradicts current persisted state
	// (escrow already exists, escrow no longer pending, wallet already bound).
	KindConflict
	// KindNotFound — the referenced record or mapping does not exist.
	KindNotFound
	// KindChainUnavailable — transient RPC/network failure; the identical
	// logical call is safe to retry.
	KindChainUnavailable
	// KindChainReverted — the ledger rejected the transaction; fatal for
	// the operation, local state stays as it was.
	KindChainReverted
	// KindIndeterminate — transaction submitted but confirmation timed out;
	// the caller should poll status rather than resubmit.
	KindIndeterminate
	// KindInternal — anything else.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindChainUnavailable:
		return "chain_unavailable"
	case KindChainReverted:
		return "chain_reverted"
	case KindIndeterminate:
		return "indeterminate"
	default:
		return "internal"
	}
}

// Error carries a kind plus a human message, with optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: err.Error(), Err: errors.Unwrap(err)}
}

func Validationf(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

func Unavailablef(format string, args ...any) error {
	return newf(KindChainUnavailable, format, args...)
}

func Revertedf(format string, args ...any) error {
	return newf(KindChainReverted, format, args...)
}

func Indeterminatef(format string, args ...any) error {
	return newf(KindIndeterminate, format, args...)
}

// KindOf returns the kind of err, unwrapping as needed. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

func IsValidation(err error) bool { return Is(err, KindValidation) }
func IsConflict(err error) bool   { return Is(err, KindConflict) }
func IsNotFound(err error) bool   { return Is(err, KindNotFound) }

// HTTPStatus maps an error kind to a response status. Presentation concern,
// used only by handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	case KindNotFound:
		return fiber.StatusNotFound
	case KindChainUnavailable:
		return fiber.StatusBadGateway
	case KindChainReverted:
		return fiber.StatusUnprocessableEntity
	case KindIndeterminate:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

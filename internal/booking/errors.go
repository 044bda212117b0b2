package booking

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("booking not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("actor not a party to this booking")

	// ErrStaleState is returned by guarded repository updates when the row
	// no longer matches the expected state (a racing writer got there first).
	ErrStaleState = errors.New("booking state changed concurrently")
)

// ValidationKind categorizes a pre-persistence rejection. Keep stable;
// handlers map these onto response payloads.
type ValidationKind string

const (
	ValidationPastTime     ValidationKind = "past_time"
	ValidationMissingField ValidationKind = "missing_field"
	ValidationBadDuration  ValidationKind = "bad_duration"
	ValidationBadLink      ValidationKind = "bad_link"
	ValidationBadTime      ValidationKind = "bad_time"
)

// ValidationError rejects a booking request before any persistence call.
// No state is mutated when one is returned.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed (%s): %s: %s", e.Kind, e.Field, e.Msg)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Msg)
}

func validationErr(kind ValidationKind, field, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Msg: msg}
}

// IllegalTransitionError rejects an action not in the allowed set for the
// booking's current state. The attempted mutation is never applied.
type IllegalTransitionError struct {
	From   State
	Action Action
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: action %q not allowed from status=%s payment_status=%s",
		e.Action, e.From.Status, e.From.PaymentStatus)
}

// PaymentValidationError reports a failed verification of a submitted
// payment proof. The booking has already been reverted to pending_payment
// by the time this error reaches the caller; it is never fatal to the
// booking record.
type PaymentValidationError struct {
	BookingID       string
	TransactionHash string
	Attempts        int
	Cause           error
}

func (e *PaymentValidationError) Error() string {
	return fmt.Sprintf("payment validation failed for booking %s (attempt %d): %v", e.BookingID, e.Attempts, e.Cause)
}

func (e *PaymentValidationError) Unwrap() error { return e.Cause }

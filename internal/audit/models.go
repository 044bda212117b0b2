package audit

import "time"

// Event is an immutable, append-only audit log record for booking
// lifecycle activity.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor capture is best-effort; do not block booking flows on audit failures.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	BookingID string `json:"booking_id,omitempty" db:"booking_id"`

	// FromState/ToState record the transition as status/payment_status/call_status.
	FromState string `json:"from_state,omitempty" db:"from_state"`
	ToState   string `json:"to_state,omitempty" db:"to_state"`

	// TransactionHash is set for payment-confirmation events.
	TransactionHash string `json:"transaction_hash,omitempty" db:"transaction_hash"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeBookingCreated    EventType = "booking_created"
	EventTypeBookingTransition EventType = "booking_transition"
	EventTypePaymentAttempt    EventType = "payment_attempt"
)

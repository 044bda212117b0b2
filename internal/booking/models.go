package booking

import "time"

// Booking is the sole entity with lifecycle semantics.
// Amounts are expressed in minor units (e.g., cents) using int64.
//
// Money invariant: amount_minor is fixed at creation (hourly rate x duration)
// and never recomputed afterward.
type Booking struct {
	ID string `json:"id" db:"id"`

	// Parties.
	CustomerID  string `json:"customer_id" db:"customer_id"`
	DeveloperID string `json:"developer_id" db:"developer_id"`

	// Schedule. BookingTime is an absolute instant; DurationMinutes is
	// quantized to 30-minute multiples in [30, 240].
	BookingTime     time.Time `json:"booking_time" db:"booking_time"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`

	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// Status and PaymentStatus move on independent axes but are correlated
	// by the service (e.g., cancelling sets both to cancelled).
	Status        Status        `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`

	// CallStatus is empty until the scheduled call concludes.
	CallStatus CallStatus `json:"call_status,omitempty" db:"call_status"`

	// CallLink is the generated meeting-room URL, assigned at creation.
	CallLink string `json:"call_link" db:"call_link"`

	Project ProjectDetails `json:"project_details"`

	// Payment-proof fields, populated only during payment confirmation.
	TransactionHash     string     `json:"transaction_hash,omitempty" db:"transaction_hash"`
	ValidationAttempts  int        `json:"validation_attempts" db:"validation_attempts"`
	ValidationTimestamp *time.Time `json:"validation_timestamp,omitempty" db:"validation_timestamp"`
	PaymentValidated    bool       `json:"payment_validated" db:"payment_validated"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectDetails is free-form structured text supplied by the customer.
// Immutable after creation.
type ProjectDetails struct {
	Title        string `json:"title" db:"project_title"`
	Description  string `json:"description" db:"project_description"`
	Requirements string `json:"requirements" db:"project_requirements"`
	Goals        string `json:"goals" db:"project_goals"`

	// MeetingLink is an external meeting URL provided by the customer,
	// distinct from the generated CallLink.
	MeetingLink string `json:"meeting_link" db:"meeting_link"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "pending"
	PaymentValidating     PaymentStatus = "validating"
	PaymentPendingPayment PaymentStatus = "pending_payment"
	PaymentPaid           PaymentStatus = "paid"
	PaymentCancelled      PaymentStatus = "cancelled"
)

type CallStatus string

const (
	CallNone      CallStatus = ""
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// State is the transition-relevant slice of a booking.
type State struct {
	Status        Status
	PaymentStatus PaymentStatus
	CallStatus    CallStatus
}

func (b Booking) State() State {
	return State{Status: b.Status, PaymentStatus: b.PaymentStatus, CallStatus: b.CallStatus}
}

// Action names a requested lifecycle transition.
type Action string

const (
	ActionCancel            Action = "cancel"
	ActionMarkCallCompleted Action = "mark_call_completed"
	ActionMarkCallFailed    Action = "mark_call_failed"

	// Payment-axis actions used by the three-phase confirmation flow.
	ActionBeginPaymentValidation Action = "begin_payment_validation"
	ActionCommitPayment          Action = "commit_payment"
	ActionRevertPayment          Action = "revert_payment"
)

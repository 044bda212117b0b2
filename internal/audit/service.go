package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SomuG25/devcall/internal/booking"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByBooking(ctx context.Context, bookingID string) ([]Event, error)
}

// Service records booking lifecycle activity for internal ops.
// Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.BookingID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCreated records a new booking.
func (s *Service) LogCreated(ctx context.Context, b booking.Booking, actorUserID, actorRole string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeBookingCreated,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		BookingID:   b.ID,
		ToState:     formatState(b.State()),
		Message:     "booking created",
	})
}

// LogTransition records a lifecycle move (cancel, call outcome).
func (s *Service) LogTransition(ctx context.Context, bookingID string, from, to booking.State, actorUserID, actorRole string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeBookingTransition,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		BookingID:   bookingID,
		FromState:   formatState(from),
		ToState:     formatState(to),
	})
}

// LogPaymentAttempt records a payment confirmation, successful or not.
func (s *Service) LogPaymentAttempt(ctx context.Context, b booking.Booking, actorUserID string, verified bool) error {
	msg := "payment verification failed"
	if verified {
		msg = "payment verified"
	}
	return s.Append(ctx, Event{
		Type:            EventTypePaymentAttempt,
		ActorUserID:     actorUserID,
		BookingID:       b.ID,
		ToState:         formatState(b.State()),
		TransactionHash: b.TransactionHash,
		Message:         msg,
	})
}

func (s *Service) Trail(ctx context.Context, bookingID string) ([]Event, error) {
	if bookingID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListByBooking(ctx, bookingID)
}

func formatState(st booking.State) string {
	call := string(st.CallStatus)
	if call == "" {
		call = "-"
	}
	return fmt.Sprintf("%s/%s/%s", st.Status, st.PaymentStatus, call)
}

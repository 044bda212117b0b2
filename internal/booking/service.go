package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository abstracts booking persistence.
//
// Guarded updates take the expected current state and must mutate the row
// only when it still matches; otherwise they return ErrStaleState. This is
// the compare-and-set that keeps the transition table honest under racing
// writers without a version column.
type Repository interface {
	Insert(ctx context.Context, b Booking) error
	Get(ctx context.Context, id string) (Booking, error)
	ListByDeveloper(ctx context.Context, developerID string) ([]Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Booking, error)

	// ApplyState writes status/payment_status/call_status guarded on from.
	ApplyState(ctx context.Context, id string, from, to State, now time.Time) (Booking, error)

	// BeginPaymentValidation is phase 1 of payment confirmation: guarded on
	// payment_status=pending_payment, it records the transaction hash and a
	// validation timestamp, increments validation_attempts, and moves the
	// payment axis to validating. The write is durable before verification
	// starts.
	BeginPaymentValidation(ctx context.Context, id, txHash string, now time.Time) (Booking, error)

	// FinishPaymentValidation is phase 3: guarded on payment_status=validating.
	// On verified=true it commits paid/completed/payment_validated; otherwise
	// it reverts to pending_payment, keeping the incremented attempt counter.
	FinishPaymentValidation(ctx context.Context, id string, verified bool, now time.Time) (Booking, error)
}

// PartyDirectory resolves the booking's parties from the profile store.
// The developer's rate read here is the one the amount is fixed from.
type PartyDirectory interface {
	BookingParties(ctx context.Context, customerID, developerID string) (Parties, error)
}

type Parties struct {
	CustomerName    string
	DeveloperName   string
	DeveloperEmail  string
	HourlyRateMinor int64
	Currency        string
}

// PaymentVerifier confirms a submitted payment proof. Implementations may
// consult a ledger; the three-phase protocol around it does not care how.
type PaymentVerifier interface {
	Verify(ctx context.Context, proof PaymentProof) error
}

type PaymentProof struct {
	BookingID       string
	TransactionHash string
	AmountMinor     int64
	Currency        string
}

// Notifier publishes booking change events to the realtime channel.
// Delivery is best effort; failures never affect the committed booking.
type Notifier interface {
	BookingCreated(ctx context.Context, b Booking) error
	BookingUpdated(ctx context.Context, b Booking) error
}

// Mailer sends the fire-and-forget booking notice to the developer.
type Mailer interface {
	SendBookingNotice(ctx context.Context, n BookingNotice) error
}

type BookingNotice struct {
	BookingID       string
	DeveloperEmail  string
	DeveloperName   string
	CustomerName    string
	ProjectTitle    string
	BookingTime     time.Time
	DurationMinutes int
	AmountMinor     int64
	Currency        string
}

// Service orchestrates the booking lifecycle: create, cancel, call outcome,
// and the three-phase payment confirmation. No business rule lives here
// beyond ordering; admissibility is decided by the validator and enforced
// again by guarded repository updates.
type Service struct {
	repo      Repository
	validator *Validator
	parties   PartyDirectory
	verifier  PaymentVerifier
	notifier  Notifier
	mailer    Mailer
	log       *slog.Logger

	clock func() time.Time
}

func NewService(repo Repository, validator *Validator, parties PartyDirectory, verifier PaymentVerifier, notifier Notifier, mailer Mailer, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		parties:   parties,
		verifier:  verifier,
		notifier:  notifier,
		mailer:    mailer,
		log:       log,
		clock:     time.Now,
	}
}

// Create validates and persists a new booking on behalf of a customer.
// The email notice is best effort: its failure is logged and swallowed,
// never rolling back the booking.
func (s *Service) Create(ctx context.Context, in NewBookingInput) (Booking, error) {
	if in.CustomerID == "" || in.DeveloperID == "" {
		return Booking{}, ErrInvalidArgument
	}

	parties, err := s.parties.BookingParties(ctx, in.CustomerID, in.DeveloperID)
	if err != nil {
		return Booking{}, err
	}
	in.HourlyRateMinor = parties.HourlyRateMinor
	in.Currency = parties.Currency

	norm, err := s.validator.ValidateNewBooking(in)
	if err != nil {
		return Booking{}, err
	}

	now := s.clock().UTC()
	b := Booking{
		ID:              uuid.NewString(),
		CustomerID:      in.CustomerID,
		DeveloperID:     in.DeveloperID,
		BookingTime:     norm.BookingTime,
		DurationMinutes: norm.DurationMinutes,
		AmountMinor:     norm.AmountMinor,
		Currency:        norm.Currency,
		Status:          StatusUpcoming,
		PaymentStatus:   PaymentPending,
		CallLink:        norm.CallLink,
		Project:         in.Project,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		return Booking{}, err
	}

	s.sendNoticeBestEffort(ctx, b, parties)
	s.publishCreated(ctx, b)
	return b, nil
}

// Get returns a booking to one of its parties.
func (s *Service) Get(ctx context.Context, id, actorID string) (Booking, error) {
	if id == "" || actorID == "" {
		return Booking{}, ErrInvalidArgument
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.CustomerID != actorID && b.DeveloperID != actorID {
		return Booking{}, ErrForbidden
	}
	return b, nil
}

func (s *Service) ListForDeveloper(ctx context.Context, developerID string) ([]Booking, error) {
	if developerID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByDeveloper(ctx, developerID)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	if customerID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// Cancel moves an upcoming booking to cancelled on both axes. Either party
// may cancel; the other party learns of it through the change feed.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (Booking, error) {
	return s.transition(ctx, id, actorID, ActionCancel)
}

// MarkCallCompleted records the call outcome once the session concludes:
// the booking completes and the payment axis opens for confirmation.
func (s *Service) MarkCallCompleted(ctx context.Context, id, actorID string) (Booking, error) {
	return s.transition(ctx, id, actorID, ActionMarkCallCompleted)
}

// MarkCallFailed records a failed call. Only call_status moves; the booking
// stays upcoming so the parties can rebook or cancel.
func (s *Service) MarkCallFailed(ctx context.Context, id, actorID string) (Booking, error) {
	return s.transition(ctx, id, actorID, ActionMarkCallFailed)
}

func (s *Service) transition(ctx context.Context, id, actorID string, action Action) (Booking, error) {
	cur, err := s.Get(ctx, id, actorID)
	if err != nil {
		return Booking{}, err
	}
	next, err := ValidateTransition(cur.State(), action)
	if err != nil {
		return Booking{}, err
	}
	updated, err := s.repo.ApplyState(ctx, id, cur.State(), next, s.clock().UTC())
	if errors.Is(err, ErrStaleState) {
		// A racing writer moved the row. Re-read and report the transition
		// against what is actually there now.
		fresh, gerr := s.repo.Get(ctx, id)
		if gerr != nil {
			return Booking{}, gerr
		}
		return Booking{}, &IllegalTransitionError{From: fresh.State(), Action: action}
	}
	if err != nil {
		return Booking{}, err
	}

	s.publishUpdated(ctx, updated)
	return updated, nil
}

// ConfirmPayment runs the three-phase confirmation protocol:
//
//  1. durably mark the booking validating, recording the transaction hash
//     and bumping the attempt counter, before any verification starts;
//  2. verify the proof;
//  3. commit paid/completed on success, or revert to pending_payment on
//     failure, keeping the incremented attempt counter.
//
// The booking is never left in validating on the caller's view: a failed
// or panicking verification still reaches phase 3b before the error is
// propagated. Concurrent duplicate submissions are not deduplicated; the
// guard on phase 1 makes the loser fail with an illegal transition.
func (s *Service) ConfirmPayment(ctx context.Context, id, actorID, txHash string) (Booking, error) {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return Booking{}, validationErr(ValidationMissingField, "transaction_hash", "required")
	}

	cur, err := s.Get(ctx, id, actorID)
	if err != nil {
		return Booking{}, err
	}
	if cur.CustomerID != actorID {
		return Booking{}, ErrForbidden
	}
	if _, err := ValidateTransition(cur.State(), ActionBeginPaymentValidation); err != nil {
		return Booking{}, err
	}

	marked, err := s.repo.BeginPaymentValidation(ctx, id, txHash, s.clock().UTC())
	if errors.Is(err, ErrStaleState) {
		fresh, gerr := s.repo.Get(ctx, id)
		if gerr != nil {
			return Booking{}, gerr
		}
		return Booking{}, &IllegalTransitionError{From: fresh.State(), Action: ActionBeginPaymentValidation}
	}
	if err != nil {
		return Booking{}, err
	}
	s.publishUpdated(ctx, marked)

	verr := s.verify(ctx, PaymentProof{
		BookingID:       marked.ID,
		TransactionHash: txHash,
		AmountMinor:     marked.AmountMinor,
		Currency:        marked.Currency,
	})

	final, err := s.repo.FinishPaymentValidation(ctx, id, verr == nil, s.clock().UTC())
	if err != nil {
		return Booking{}, err
	}
	s.publishUpdated(ctx, final)

	if verr != nil {
		return final, &PaymentValidationError{
			BookingID:       id,
			TransactionHash: txHash,
			Attempts:        final.ValidationAttempts,
			Cause:           verr,
		}
	}
	return final, nil
}

// verify shields the protocol from a panicking verifier so phase 3b always
// runs.
func (s *Service) verify(ctx context.Context, proof PaymentProof) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PaymentValidationError{BookingID: proof.BookingID, TransactionHash: proof.TransactionHash,
				Cause: errors.New("verifier panicked")}
		}
	}()
	return s.verifier.Verify(ctx, proof)
}

func (s *Service) sendNoticeBestEffort(ctx context.Context, b Booking, p Parties) {
	if s.mailer == nil || p.DeveloperEmail == "" {
		return
	}
	n := BookingNotice{
		BookingID:       b.ID,
		DeveloperEmail:  p.DeveloperEmail,
		DeveloperName:   p.DeveloperName,
		CustomerName:    p.CustomerName,
		ProjectTitle:    b.Project.Title,
		BookingTime:     b.BookingTime,
		DurationMinutes: b.DurationMinutes,
		AmountMinor:     b.AmountMinor,
		Currency:        b.Currency,
	}
	if err := s.mailer.SendBookingNotice(ctx, n); err != nil {
		s.log.Warn("booking notice not delivered", "booking_id", b.ID, "error", err)
	}
}

func (s *Service) publishCreated(ctx context.Context, b Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingCreated(ctx, b); err != nil {
		s.log.Warn("booking created event not published", "booking_id", b.ID, "error", err)
	}
}

func (s *Service) publishUpdated(ctx context.Context, b Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingUpdated(ctx, b); err != nil {
		s.log.Warn("booking updated event not published", "booking_id", b.ID, "error", err)
	}
}

package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type stubParties struct {
	parties Parties
	err     error
}

func (s *stubParties) BookingParties(ctx context.Context, customerID, developerID string) (Parties, error) {
	return s.parties, s.err
}

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Verify(ctx context.Context, proof PaymentProof) error {
	s.calls++
	return s.err
}

type recordNotifier struct {
	created []Booking
	updated []Booking
	err     error
}

func (n *recordNotifier) BookingCreated(ctx context.Context, b Booking) error {
	n.created = append(n.created, b)
	return n.err
}

func (n *recordNotifier) BookingUpdated(ctx context.Context, b Booking) error {
	n.updated = append(n.updated, b)
	return n.err
}

type recordMailer struct {
	notices []BookingNotice
	err     error
}

func (m *recordMailer) SendBookingNotice(ctx context.Context, n BookingNotice) error {
	m.notices = append(m.notices, n)
	return m.err
}

type testEnv struct {
	svc      *Service
	repo     *MemoryRepo
	verifier *stubVerifier
	notifier *recordNotifier
	mailer   *recordMailer
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	verifier := &stubVerifier{}
	notifier := &recordNotifier{}
	mailer := &recordMailer{}
	parties := &stubParties{parties: Parties{
		CustomerName:    "Asha",
		DeveloperName:   "Ravi",
		DeveloperEmail:  "ravi@example.com",
		HourlyRateMinor: 15000,
		Currency:        "USD",
	}}

	v := fixedValidator(now)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(repo, v, parties, verifier, notifier, mailer, log)
	svc.clock = func() time.Time { return now }

	return &testEnv{svc: svc, repo: repo, verifier: verifier, notifier: notifier, mailer: mailer, now: now}
}

func (e *testEnv) mustCreate(t *testing.T) Booking {
	t.Helper()
	b, err := e.svc.Create(context.Background(), validInput(e.now))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return b
}

func TestCreate_PersistsAndNotifies(t *testing.T) {
	env := newTestEnv(t)

	b := env.mustCreate(t)

	if b.Status != StatusUpcoming || b.PaymentStatus != PaymentPending {
		t.Fatalf("unexpected initial state: %s/%s", b.Status, b.PaymentStatus)
	}
	if b.AmountMinor != 30000 {
		t.Fatalf("expected amount 30000, got %d", b.AmountMinor)
	}

	stored, err := env.repo.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.AmountMinor != 30000 || stored.CallLink == "" {
		t.Fatalf("stored booking incomplete: %+v", stored)
	}

	if len(env.mailer.notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(env.mailer.notices))
	}
	n := env.mailer.notices[0]
	if n.DeveloperEmail != "ravi@example.com" || n.AmountMinor != 30000 || n.DurationMinutes != 120 {
		t.Fatalf("unexpected notice: %+v", n)
	}
	if len(env.notifier.created) != 1 {
		t.Fatalf("expected 1 created event, got %d", len(env.notifier.created))
	}
}

func TestCreate_MailFailureDoesNotRollBack(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	b := env.mustCreate(t)

	if _, err := env.repo.Get(context.Background(), b.ID); err != nil {
		t.Fatalf("booking should be persisted despite mail failure: %v", err)
	}
}

func TestCreate_RejectsPastBookingWithoutPersisting(t *testing.T) {
	env := newTestEnv(t)

	in := validInput(env.now)
	in.Date = env.now.Add(-24 * time.Hour).Format("2006-01-02")

	_, err := env.svc.Create(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, _ := env.repo.ListByCustomer(context.Background(), "cust-1"); len(got) != 0 {
		t.Fatalf("nothing should be persisted, got %d rows", len(got))
	}
	if len(env.mailer.notices) != 0 || len(env.notifier.created) != 0 {
		t.Fatalf("no side effects expected on validation failure")
	}
}

func TestCancel_FromUpcomingThenIdempotentFailure(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	got, err := env.svc.Cancel(context.Background(), b.ID, b.DeveloperID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled || got.PaymentStatus != PaymentCancelled {
		t.Fatalf("expected cancelled/cancelled, got %s/%s", got.Status, got.PaymentStatus)
	}

	_, err = env.svc.Cancel(context.Background(), b.ID, b.DeveloperID)
	var terr *IllegalTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("second cancel must fail with IllegalTransitionError, got %v", err)
	}
}

func TestCancel_RejectsStranger(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	if _, err := env.svc.Cancel(context.Background(), b.ID, "someone-else"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestMarkCallCompleted_OpensPaymentAxis(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	got, err := env.svc.MarkCallCompleted(context.Background(), b.ID, b.CustomerID)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if got.Status != StatusCompleted || got.CallStatus != CallCompleted || got.PaymentStatus != PaymentPendingPayment {
		t.Fatalf("unexpected state: %s/%s/%s", got.Status, got.PaymentStatus, got.CallStatus)
	}
}

func TestMarkCallFailed_KeepsBookingUpcoming(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	got, err := env.svc.MarkCallFailed(context.Background(), b.ID, b.DeveloperID)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if got.Status != StatusUpcoming || got.CallStatus != CallFailed {
		t.Fatalf("unexpected state: %s/%s", got.Status, got.CallStatus)
	}
}

func TestConfirmPayment_Success(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)
	if _, err := env.svc.MarkCallCompleted(context.Background(), b.ID, b.CustomerID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "0xabc")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.PaymentStatus != PaymentPaid || got.Status != StatusCompleted || !got.PaymentValidated {
		t.Fatalf("unexpected final state: %+v", got)
	}
	if got.TransactionHash != "0xabc" || got.ValidationAttempts != 1 {
		t.Fatalf("proof fields not recorded: hash=%q attempts=%d", got.TransactionHash, got.ValidationAttempts)
	}
	if got.ValidationTimestamp == nil {
		t.Fatalf("expected validation timestamp")
	}
	if env.verifier.calls != 1 {
		t.Fatalf("expected 1 verification, got %d", env.verifier.calls)
	}

	// The amount never moves, regardless of later operations.
	stored, _ := env.repo.Get(context.Background(), b.ID)
	if stored.AmountMinor != 30000 {
		t.Fatalf("amount mutated to %d", stored.AmountMinor)
	}
}

func TestConfirmPayment_PublishesValidatingThenPaid(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)
	if _, err := env.svc.MarkCallCompleted(context.Background(), b.ID, b.CustomerID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	env.notifier.updated = nil

	if _, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "0xabc"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The in-flight marker is observable before the commit.
	if len(env.notifier.updated) != 2 {
		t.Fatalf("expected 2 update events, got %d", len(env.notifier.updated))
	}
	if env.notifier.updated[0].PaymentStatus != PaymentValidating {
		t.Fatalf("first event should be validating, got %s", env.notifier.updated[0].PaymentStatus)
	}
	if env.notifier.updated[1].PaymentStatus != PaymentPaid {
		t.Fatalf("second event should be paid, got %s", env.notifier.updated[1].PaymentStatus)
	}
}

func TestConfirmPayment_FailureRevertsAndCountsAttempts(t *testing.T) {
	env := newTestEnv(t)
	env.verifier.err = errors.New("hash not found on ledger")

	b := env.mustCreate(t)
	if _, err := env.svc.MarkCallCompleted(context.Background(), b.ID, b.CustomerID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	_, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "0xbad")
	var perr *PaymentValidationError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PaymentValidationError, got %v", err)
	}
	if perr.Attempts != 1 {
		t.Fatalf("expected attempt 1, got %d", perr.Attempts)
	}

	stored, _ := env.repo.Get(context.Background(), b.ID)
	if stored.PaymentStatus != PaymentPendingPayment {
		t.Fatalf("expected revert to pending_payment, got %s", stored.PaymentStatus)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("status must not change on failed validation, got %s", stored.Status)
	}
	if stored.ValidationAttempts != 1 || stored.PaymentValidated {
		t.Fatalf("attempt bookkeeping wrong: %+v", stored)
	}

	// A second failed attempt bumps the counter again.
	_, err = env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "0xbad2")
	if !errors.As(err, &perr) {
		t.Fatalf("expected PaymentValidationError, got %v", err)
	}
	stored, _ = env.repo.Get(context.Background(), b.ID)
	if stored.ValidationAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", stored.ValidationAttempts)
	}
}

func TestConfirmPayment_RequiresSettledCall(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	_, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "0xabc")
	var terr *IllegalTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected IllegalTransitionError while payment is pending, got %v", err)
	}
}

func TestConfirmPayment_OnlyCustomerMaySubmit(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)
	if _, err := env.svc.MarkCallCompleted(context.Background(), b.ID, b.CustomerID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if _, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.DeveloperID, "0xabc"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConfirmPayment_RejectsEmptyHash(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	_, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "   ")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != ValidationMissingField {
		t.Fatalf("expected missing-field error, got %v", err)
	}
}

func TestConfirmPayment_VerifierPanicStillReverts(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)
	if _, err := env.svc.MarkCallCompleted(context.Background(), b.ID, b.CustomerID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	env.svc.verifier = panicVerifier{}

	_, err := env.svc.ConfirmPayment(context.Background(), b.ID, b.CustomerID, "0xabc")
	var perr *PaymentValidationError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PaymentValidationError, got %v", err)
	}
	stored, _ := env.repo.Get(context.Background(), b.ID)
	if stored.PaymentStatus != PaymentPendingPayment {
		t.Fatalf("booking stuck in %s", stored.PaymentStatus)
	}
}

type panicVerifier struct{}

func (panicVerifier) Verify(ctx context.Context, proof PaymentProof) error {
	panic("ledger client blew up")
}

func TestListScopesByParty(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustCreate(t)

	devRows, err := env.svc.ListForDeveloper(context.Background(), b.DeveloperID)
	if err != nil || len(devRows) != 1 {
		t.Fatalf("developer list: %v (%d rows)", err, len(devRows))
	}
	custRows, err := env.svc.ListForCustomer(context.Background(), b.CustomerID)
	if err != nil || len(custRows) != 1 {
		t.Fatalf("customer list: %v (%d rows)", err, len(custRows))
	}
	none, err := env.svc.ListForDeveloper(context.Background(), "dev-other")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %v (%d rows)", err, len(none))
	}
}

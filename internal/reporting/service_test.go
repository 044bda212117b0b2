package reporting

import (
	"context"
	"errors"
	"testing"

	"github.com/SomuG25/devcall/internal/booking"
)

func seedBookings(t *testing.T) *booking.MemoryRepo {
	t.Helper()
	repo := booking.NewMemoryRepo()

	rows := []booking.Booking{
		{ID: "b1", DeveloperID: "dev-1", CustomerID: "cust-1", AmountMinor: 30000, Currency: "USD",
			Status: booking.StatusCompleted, PaymentStatus: booking.PaymentPaid, CallStatus: booking.CallCompleted, DurationMinutes: 120},
		{ID: "b2", DeveloperID: "dev-1", CustomerID: "cust-1", AmountMinor: 15000, Currency: "USD",
			Status: booking.StatusCompleted, PaymentStatus: booking.PaymentPendingPayment, CallStatus: booking.CallCompleted, DurationMinutes: 60},
		{ID: "b3", DeveloperID: "dev-1", CustomerID: "cust-2", AmountMinor: 7500, Currency: "USD",
			Status: booking.StatusUpcoming, PaymentStatus: booking.PaymentPending, DurationMinutes: 30},
		{ID: "b4", DeveloperID: "dev-1", CustomerID: "cust-2", AmountMinor: 7500, Currency: "USD",
			Status: booking.StatusCancelled, PaymentStatus: booking.PaymentCancelled, DurationMinutes: 30},
		{ID: "b5", DeveloperID: "dev-1", CustomerID: "cust-1", AmountMinor: 15000, Currency: "USD",
			Status: booking.StatusUpcoming, PaymentStatus: booking.PaymentPending, CallStatus: booking.CallFailed, DurationMinutes: 60},
		{ID: "b6", DeveloperID: "dev-2", CustomerID: "cust-1", AmountMinor: 99999, Currency: "USD",
			Status: booking.StatusCompleted, PaymentStatus: booking.PaymentPaid, DurationMinutes: 60},
	}
	for _, b := range rows {
		if err := repo.Insert(context.Background(), b); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo
}

func TestDeveloperSummary(t *testing.T) {
	svc := NewService(seedBookings(t))

	got, err := svc.DeveloperSummary(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if got.TotalBookings != 5 {
		t.Fatalf("total = %d, want 5", got.TotalBookings)
	}
	if got.UpcomingBookings != 2 || got.CompletedBookings != 2 || got.CancelledBookings != 1 {
		t.Fatalf("counts wrong: %+v", got)
	}
	if got.FailedCalls != 1 {
		t.Fatalf("failed calls = %d, want 1", got.FailedCalls)
	}
	if got.EarnedMinor != 30000 {
		t.Fatalf("earned = %d, want 30000", got.EarnedMinor)
	}
	if got.OutstandingMinor != 15000 {
		t.Fatalf("outstanding = %d, want 15000", got.OutstandingMinor)
	}
	if got.TotalBookedMinutes != 180 {
		t.Fatalf("booked minutes = %d, want 180", got.TotalBookedMinutes)
	}
	if got.Currency != "USD" {
		t.Fatalf("currency = %q", got.Currency)
	}
}

func TestCustomerSummary(t *testing.T) {
	svc := NewService(seedBookings(t))

	got, err := svc.CustomerSummary(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalBookings != 4 {
		t.Fatalf("total = %d, want 4", got.TotalBookings)
	}
	if got.SpentMinor != 30000+99999 {
		t.Fatalf("spent = %d", got.SpentMinor)
	}
	if got.UpcomingBookings != 1 {
		t.Fatalf("upcoming = %d, want 1", got.UpcomingBookings)
	}
}

func TestSummary_RejectsEmptyID(t *testing.T) {
	svc := NewService(seedBookings(t))

	if _, err := svc.DeveloperSummary(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.CustomerSummary(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SomuG25/devcall/internal/booking"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulatedVerifier_AcceptsAfterDelay(t *testing.T) {
	v := NewSimulatedVerifier(time.Millisecond, testLogger())

	err := v.Verify(context.Background(), booking.PaymentProof{
		BookingID:       "b1",
		TransactionHash: "0xabc",
		AmountMinor:     30000,
		Currency:        "USD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSimulatedVerifier_RejectsMalformedProof(t *testing.T) {
	v := NewSimulatedVerifier(time.Millisecond, testLogger())

	err := v.Verify(context.Background(), booking.PaymentProof{BookingID: "b1", AmountMinor: 100})
	if !errors.Is(err, ErrMalformedProof) {
		t.Fatalf("expected ErrMalformedProof, got %v", err)
	}

	err = v.Verify(context.Background(), booking.PaymentProof{BookingID: "b1", TransactionHash: "0xabc"})
	if !errors.Is(err, ErrMalformedProof) {
		t.Fatalf("expected ErrMalformedProof for zero amount, got %v", err)
	}
}

func TestSimulatedVerifier_HonorsCancellation(t *testing.T) {
	v := NewSimulatedVerifier(time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := v.Verify(ctx, booking.PaymentProof{
		BookingID:       "b1",
		TransactionHash: "0xabc",
		AmountMinor:     100,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

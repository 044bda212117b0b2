package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SomuG25/devcall/internal/booking"
)

// SimulatedVerifier stands in for a real ledger lookup. It accepts any
// well-formed proof after a fixed delay. A production verifier would
// confirm the transaction on chain, matching sender, recipient, and
// amount; the surrounding confirmation protocol does not change when
// this implementation is swapped out.
type SimulatedVerifier struct {
	delay time.Duration
	log   *slog.Logger
}

func NewSimulatedVerifier(delay time.Duration, log *slog.Logger) *SimulatedVerifier {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &SimulatedVerifier{delay: delay, log: log}
}

var ErrMalformedProof = errors.New("malformed payment proof")

func (v *SimulatedVerifier) Verify(ctx context.Context, proof booking.PaymentProof) error {
	if strings.TrimSpace(proof.TransactionHash) == "" || proof.AmountMinor <= 0 {
		return ErrMalformedProof
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(v.delay):
	}

	v.log.Info("payment proof accepted",
		"booking_id", proof.BookingID,
		"transaction_hash", proof.TransactionHash,
		"amount_minor", proof.AmountMinor,
	)
	return nil
}

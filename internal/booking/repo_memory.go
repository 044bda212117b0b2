package booking

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development. It honors the same guarded-update contract as the Postgres
// implementation.
type MemoryRepo struct {
	mu       sync.Mutex
	bookings map[string]Booking
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bookings: make(map[string]Booking)}
}

func (r *MemoryRepo) Insert(ctx context.Context, b Booking) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) ListByDeveloper(ctx context.Context, developerID string) ([]Booking, error) {
	return r.listWhere(ctx, func(b Booking) bool { return b.DeveloperID == developerID })
}

func (r *MemoryRepo) ListByCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	return r.listWhere(ctx, func(b Booking) bool { return b.CustomerID == customerID })
}

func (r *MemoryRepo) listWhere(ctx context.Context, match func(Booking) bool) ([]Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTime.After(out[j].BookingTime) })
	return out, nil
}

func (r *MemoryRepo) ApplyState(ctx context.Context, id string, from, to State, now time.Time) (Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if b.State() != from {
		return Booking{}, ErrStaleState
	}
	b.Status = to.Status
	b.PaymentStatus = to.PaymentStatus
	b.CallStatus = to.CallStatus
	b.UpdatedAt = now
	r.bookings[id] = b
	return b, nil
}

func (r *MemoryRepo) BeginPaymentValidation(ctx context.Context, id, txHash string, now time.Time) (Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if b.PaymentStatus != PaymentPendingPayment {
		return Booking{}, ErrStaleState
	}
	b.PaymentStatus = PaymentValidating
	b.TransactionHash = txHash
	ts := now
	b.ValidationTimestamp = &ts
	b.ValidationAttempts++
	b.UpdatedAt = now
	r.bookings[id] = b
	return b, nil
}

func (r *MemoryRepo) FinishPaymentValidation(ctx context.Context, id string, verified bool, now time.Time) (Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if b.PaymentStatus != PaymentValidating {
		return Booking{}, ErrStaleState
	}
	if verified {
		b.PaymentStatus = PaymentPaid
		b.Status = StatusCompleted
		b.PaymentValidated = true
	} else {
		b.PaymentStatus = PaymentPendingPayment
		b.PaymentValidated = false
	}
	b.UpdatedAt = now
	r.bookings[id] = b
	return b, nil
}

package reporting

import (
	"context"
	"errors"

	"github.com/SomuG25/devcall/internal/booking"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// BookingSource abstracts read access to bookings. The booking repository
// satisfies this directly.
type BookingSource interface {
	ListByDeveloper(ctx context.Context, developerID string) ([]booking.Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]booking.Booking, error)
}

type Service struct {
	src BookingSource
}

func NewService(src BookingSource) *Service { return &Service{src: src} }

func (s *Service) DeveloperSummary(ctx context.Context, developerID string) (DeveloperSummary, error) {
	if developerID == "" {
		return DeveloperSummary{}, ErrInvalidRequest
	}
	if s.src == nil {
		return DeveloperSummary{}, errors.New("reporting: booking source not configured")
	}

	rows, err := s.src.ListByDeveloper(ctx, developerID)
	if err != nil {
		return DeveloperSummary{}, err
	}

	out := DeveloperSummary{DeveloperID: developerID}
	for _, b := range rows {
		out.TotalBookings++
		if out.Currency == "" {
			out.Currency = b.Currency
		}
		switch b.Status {
		case booking.StatusUpcoming, booking.StatusPending:
			out.UpcomingBookings++
		case booking.StatusCompleted:
			out.CompletedBookings++
			out.TotalBookedMinutes += b.DurationMinutes
		case booking.StatusCancelled:
			out.CancelledBookings++
		}
		if b.CallStatus == booking.CallFailed {
			out.FailedCalls++
		}
		switch b.PaymentStatus {
		case booking.PaymentPaid:
			out.EarnedMinor += b.AmountMinor
		case booking.PaymentPendingPayment, booking.PaymentValidating:
			out.OutstandingMinor += b.AmountMinor
		}
	}
	return out, nil
}

func (s *Service) CustomerSummary(ctx context.Context, customerID string) (CustomerSummary, error) {
	if customerID == "" {
		return CustomerSummary{}, ErrInvalidRequest
	}
	if s.src == nil {
		return CustomerSummary{}, errors.New("reporting: booking source not configured")
	}

	rows, err := s.src.ListByCustomer(ctx, customerID)
	if err != nil {
		return CustomerSummary{}, err
	}

	out := CustomerSummary{CustomerID: customerID}
	for _, b := range rows {
		out.TotalBookings++
		if out.Currency == "" {
			out.Currency = b.Currency
		}
		if b.Status == booking.StatusUpcoming || b.Status == booking.StatusPending {
			out.UpcomingBookings++
		}
		if b.PaymentStatus == booking.PaymentPaid {
			out.SpentMinor += b.AmountMinor
		}
	}
	return out, nil
}

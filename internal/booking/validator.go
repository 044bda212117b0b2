package booking

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Duration bounds in minutes, quantized to half-hour steps.
	minDurationMinutes  = 30
	maxDurationMinutes  = 240
	durationStepMinutes = 30

	dateLayout = "2006-01-02"
	// Wall-clock input arrives in 12-hour form and is converted to an
	// absolute instant in the configured location.
	timeLayout = "3:04 PM"
)

// Validator decides whether a proposed booking is admissible before any
// persistence call. It is pure apart from the injectable clock.
type Validator struct {
	loc         *time.Location
	meetBaseURL string
	clock       func() time.Time
}

func NewValidator(loc *time.Location, meetBaseURL string) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{loc: loc, meetBaseURL: strings.TrimRight(meetBaseURL, "/"), clock: time.Now}
}

// NewBookingInput carries the raw customer submission.
type NewBookingInput struct {
	CustomerID  string `json:"customer_id"`
	DeveloperID string `json:"developer_id"`

	Date            string `json:"date"`        // calendar date, YYYY-MM-DD
	TimeOfDay       string `json:"time"`        // 12-hour wall clock, e.g. "2:30 PM"
	DurationMinutes int    `json:"duration_minutes"`

	// HourlyRateMinor is the developer's rate at submission time; the
	// amount is fixed from it and never recomputed.
	HourlyRateMinor int64  `json:"-"`
	Currency        string `json:"-"`

	Project ProjectDetails `json:"project_details"`
}

// NormalizedBooking is the validated, priced form of a submission.
type NormalizedBooking struct {
	BookingTime     time.Time
	DurationMinutes int
	AmountMinor     int64
	Currency        string
	CallLink        string
}

// ValidateNewBooking normalizes and prices a submission. On success the
// returned booking carries the computed amount and a freshly generated
// meeting-room link.
func (v *Validator) ValidateNewBooking(in NewBookingInput) (NormalizedBooking, error) {
	for _, f := range []struct{ name, val string }{
		{"project_details.title", in.Project.Title},
		{"project_details.description", in.Project.Description},
		{"project_details.requirements", in.Project.Requirements},
		{"project_details.goals", in.Project.Goals},
	} {
		if strings.TrimSpace(f.val) == "" {
			return NormalizedBooking{}, validationErr(ValidationMissingField, f.name, "required")
		}
	}
	if err := validateMeetingLink(in.Project.MeetingLink); err != nil {
		return NormalizedBooking{}, err
	}

	if in.DurationMinutes < minDurationMinutes || in.DurationMinutes > maxDurationMinutes ||
		in.DurationMinutes%durationStepMinutes != 0 {
		return NormalizedBooking{}, validationErr(ValidationBadDuration, "duration_minutes",
			"must be between 30 minutes and 4 hours in half-hour steps")
	}

	at, err := v.parseInstant(in.Date, in.TimeOfDay)
	if err != nil {
		return NormalizedBooking{}, err
	}
	if !at.After(v.clock()) {
		return NormalizedBooking{}, validationErr(ValidationPastTime, "booking_time", "must be strictly in the future")
	}

	if in.HourlyRateMinor <= 0 {
		return NormalizedBooking{}, ErrInvalidArgument
	}

	return NormalizedBooking{
		BookingTime:     at,
		DurationMinutes: in.DurationMinutes,
		AmountMinor:     priceMinor(in.HourlyRateMinor, in.DurationMinutes),
		Currency:        in.Currency,
		CallLink:        v.meetBaseURL + "/" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}, nil
}

// priceMinor converts an hourly rate to the booked amount, rounding
// half up. An odd-cent rate over a half-hour step lands on a half cent;
// the customer pays the extra cent rather than the developer losing it.
func priceMinor(rateMinor int64, minutes int) int64 {
	return (rateMinor*int64(minutes) + 30) / 60
}

func (v *Validator) parseInstant(date, tod string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), v.loc)
	if err != nil {
		return time.Time{}, validationErr(ValidationBadTime, "date", "expected YYYY-MM-DD")
	}
	t, err := time.Parse(timeLayout, strings.ToUpper(strings.TrimSpace(tod)))
	if err != nil {
		return time.Time{}, validationErr(ValidationBadTime, "time", "expected 12-hour clock, e.g. 2:30 PM")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, v.loc), nil
}

func validateMeetingLink(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return validationErr(ValidationMissingField, "project_details.meeting_link", "required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationErr(ValidationBadLink, "project_details.meeting_link", "must be a valid http(s) URL")
	}
	return nil
}

// ValidateTransition decides whether the requested action is legal from
// the current state and, if so, returns the next state. The status and
// payment axes move independently: completed/cancelled bookings accept no
// further status actions, but the payment axis may still advance through
// the confirmation flow.
func ValidateTransition(cur State, action Action) (State, error) {
	next := cur
	switch action {
	case ActionCancel:
		if cur.Status != StatusUpcoming {
			return cur, &IllegalTransitionError{From: cur, Action: action}
		}
		next.Status = StatusCancelled
		next.PaymentStatus = PaymentCancelled
		return next, nil

	case ActionMarkCallCompleted:
		if cur.Status != StatusUpcoming {
			return cur, &IllegalTransitionError{From: cur, Action: action}
		}
		next.Status = StatusCompleted
		next.CallStatus = CallCompleted
		next.PaymentStatus = PaymentPendingPayment
		return next, nil

	case ActionMarkCallFailed:
		if cur.Status != StatusUpcoming {
			return cur, &IllegalTransitionError{From: cur, Action: action}
		}
		next.CallStatus = CallFailed
		return next, nil

	case ActionBeginPaymentValidation:
		if cur.PaymentStatus != PaymentPendingPayment {
			return cur, &IllegalTransitionError{From: cur, Action: action}
		}
		next.PaymentStatus = PaymentValidating
		return next, nil

	case ActionCommitPayment:
		if cur.PaymentStatus != PaymentValidating {
			return cur, &IllegalTransitionError{From: cur, Action: action}
		}
		next.PaymentStatus = PaymentPaid
		next.Status = StatusCompleted
		return next, nil

	case ActionRevertPayment:
		if cur.PaymentStatus != PaymentValidating {
			return cur, &IllegalTransitionError{From: cur, Action: action}
		}
		next.PaymentStatus = PaymentPendingPayment
		return next, nil

	default:
		return cur, &IllegalTransitionError{From: cur, Action: action}
	}
}

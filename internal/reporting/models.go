package reporting

// DeveloperSummary aggregates a developer's bookings and earnings.
// Earnings count only paid bookings; OutstandingMinor is work delivered
// but not yet paid (pending_payment or validating).

type DeveloperSummary struct {
	DeveloperID string `json:"developer_id"`

	TotalBookings     int `json:"total_bookings"`
	UpcomingBookings  int `json:"upcoming_bookings"`
	CompletedBookings int `json:"completed_bookings"`
	CancelledBookings int `json:"cancelled_bookings"`
	FailedCalls       int `json:"failed_calls"`

	EarnedMinor      int64  `json:"earned_minor"`
	OutstandingMinor int64  `json:"outstanding_minor"`
	Currency         string `json:"currency"`

	TotalBookedMinutes int `json:"total_booked_minutes"`
}

// CustomerSummary aggregates a customer's bookings and spend.

type CustomerSummary struct {
	CustomerID string `json:"customer_id"`

	TotalBookings    int `json:"total_bookings"`
	UpcomingBookings int `json:"upcoming_bookings"`

	SpentMinor int64  `json:"spent_minor"`
	Currency   string `json:"currency"`
}

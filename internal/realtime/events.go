package realtime

import "github.com/SomuG25/devcall/internal/booking"

// Event is the change notification pushed to subscribed parties.
// Delivery is at-most-once best effort with no replay; a missed event is
// recovered by the next full list fetch.
type Event struct {
	Event EventType       `json:"event"`
	Table string          `json:"table"`
	Row   booking.Booking `json:"row"`
}

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

const bookingsTable = "bookings"

// Filter scopes a subscription to one party's bookings. A zero filter
// matches nothing; every subscription must be scoped.
type Filter struct {
	DeveloperID string
	CustomerID  string
}

func (f Filter) Match(b booking.Booking) bool {
	if f.DeveloperID != "" && b.DeveloperID == f.DeveloperID {
		return true
	}
	if f.CustomerID != "" && b.CustomerID == f.CustomerID {
		return true
	}
	return false
}

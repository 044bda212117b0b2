package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/SomuG25/devcall/internal/booking"

	"github.com/redis/go-redis/v9"
)

const bookingsChannel = "devcall.bookings.changes"

// Publisher pushes booking change events into the Redis channel.
// It satisfies the booking service's notifier contract.
type Publisher struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewPublisher(rdb *redis.Client, log *slog.Logger) *Publisher {
	return &Publisher{rdb: rdb, log: log}
}

func (p *Publisher) BookingCreated(ctx context.Context, b booking.Booking) error {
	return p.publish(ctx, EventInsert, b)
}

func (p *Publisher) BookingUpdated(ctx context.Context, b booking.Booking) error {
	return p.publish(ctx, EventUpdate, b)
}

func (p *Publisher) publish(ctx context.Context, typ EventType, b booking.Booking) error {
	payload, err := json.Marshal(Event{Event: typ, Table: bookingsTable, Row: b})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, bookingsChannel, payload).Err()
}

// Subscriber fans booking change events out to scoped consumers.
type Subscriber struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewSubscriber(rdb *redis.Client, log *slog.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, log: log}
}

// Subscribe returns a stream of events matching the filter. The stream
// closes when ctx is cancelled or the Redis subscription drops. A slow
// consumer loses events rather than blocking the fan-out.
func (s *Subscriber) Subscribe(ctx context.Context, f Filter) (<-chan Event, error) {
	sub := s.rdb.Subscribe(ctx, bookingsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.log.Warn("dropping malformed change event", "error", err)
					continue
				}
				if !f.Match(ev.Row) {
					continue
				}
				select {
				case out <- ev:
				default:
					s.log.Warn("dropping change event for slow subscriber", "booking_id", ev.Row.ID)
				}
			}
		}
	}()
	return out, nil
}

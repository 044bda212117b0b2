package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo stores audit events in an INSERT-only table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, actor_role, booking_id, from_state, to_state,
  transaction_hash, message, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.BookingID,
		e.FromState,
		e.ToState,
		e.TransactionHash,
		e.Message,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByBooking(ctx context.Context, bookingID string) ([]Event, error) {
	const q = `
SELECT id, type, actor_user_id, actor_role, booking_id, from_state, to_state,
       transaction_hash, message, created_at
FROM audit_events
WHERE booking_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.ActorUserID,
			&e.ActorRole,
			&e.BookingID,
			&e.FromState,
			&e.ToState,
			&e.TransactionHash,
			&e.Message,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

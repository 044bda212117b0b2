package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SomuG25/devcall/pkg/utils"
)

// PostgresRepo persists bookings in the bookings table. Guarded updates
// carry the expected state in the WHERE clause; zero rows affected means
// ErrStaleState. Every call retries transient connectivity failures with
// bounded backoff before surfacing the error.
type PostgresRepo struct {
	db    *sql.DB
	retry utils.RetryPolicy
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const bookingColumns = `
id, customer_id, developer_id, booking_time, duration_minutes, amount_minor, currency,
status, payment_status, call_status, call_link,
project_title, project_description, project_requirements, project_goals, meeting_link,
transaction_hash, validation_attempts, validation_timestamp, payment_validated,
created_at, updated_at`

func (r *PostgresRepo) Insert(ctx context.Context, b Booking) error {
	const q = `
INSERT INTO bookings (` + bookingColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
`
	return utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, q,
			b.ID,
			b.CustomerID,
			b.DeveloperID,
			b.BookingTime,
			b.DurationMinutes,
			b.AmountMinor,
			b.Currency,
			b.Status,
			b.PaymentStatus,
			b.CallStatus,
			b.CallLink,
			b.Project.Title,
			b.Project.Description,
			b.Project.Requirements,
			b.Project.Goals,
			b.Project.MeetingLink,
			b.TransactionHash,
			b.ValidationAttempts,
			nullTime(b.ValidationTimestamp),
			b.PaymentValidated,
			b.CreatedAt,
			b.UpdatedAt,
		)
		return err
	})
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Booking, error) {
	const q = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = $1
`
	var b Booking
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return scanBooking(r.db.QueryRowContext(ctx, q, id), &b)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	return b, nil
}

func (r *PostgresRepo) ListByDeveloper(ctx context.Context, developerID string) ([]Booking, error) {
	const q = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE developer_id = $1
ORDER BY booking_time DESC
`
	return r.list(ctx, q, developerID)
}

func (r *PostgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	const q = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE customer_id = $1
ORDER BY booking_time DESC
`
	return r.list(ctx, q, customerID)
}

func (r *PostgresRepo) list(ctx context.Context, q string, arg string) ([]Booking, error) {
	var out []Booking
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, q, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var b Booking
			if err := scanBooking(rows, &b); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) ApplyState(ctx context.Context, id string, from, to State, now time.Time) (Booking, error) {
	const q = `
UPDATE bookings
SET status = $1, payment_status = $2, call_status = $3, updated_at = $4
WHERE id = $5 AND status = $6 AND payment_status = $7 AND call_status = $8
RETURNING ` + bookingColumns + `
`
	var b Booking
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return scanBooking(r.db.QueryRowContext(ctx, q,
			to.Status, to.PaymentStatus, to.CallStatus, now,
			id, from.Status, from.PaymentStatus, from.CallStatus,
		), &b)
	})
	if err != nil {
		return Booking{}, r.guardErr(ctx, id, err)
	}
	return b, nil
}

func (r *PostgresRepo) BeginPaymentValidation(ctx context.Context, id, txHash string, now time.Time) (Booking, error) {
	const q = `
UPDATE bookings
SET payment_status = 'validating',
    transaction_hash = $1,
    validation_timestamp = $2,
    validation_attempts = validation_attempts + 1,
    updated_at = $2
WHERE id = $3 AND payment_status = 'pending_payment'
RETURNING ` + bookingColumns + `
`
	var b Booking
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return scanBooking(r.db.QueryRowContext(ctx, q, txHash, now, id), &b)
	})
	if err != nil {
		return Booking{}, r.guardErr(ctx, id, err)
	}
	return b, nil
}

func (r *PostgresRepo) FinishPaymentValidation(ctx context.Context, id string, verified bool, now time.Time) (Booking, error) {
	// The revert branch keeps the incremented attempt counter.
	const q = `
UPDATE bookings
SET payment_status = CASE WHEN $1 THEN 'paid' ELSE 'pending_payment' END,
    status = CASE WHEN $1 THEN 'completed' ELSE status END,
    payment_validated = $1,
    updated_at = $2
WHERE id = $3 AND payment_status = 'validating'
RETURNING ` + bookingColumns + `
`
	var b Booking
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return scanBooking(r.db.QueryRowContext(ctx, q, verified, now, id), &b)
	})
	if err != nil {
		return Booking{}, r.guardErr(ctx, id, err)
	}
	return b, nil
}

// guardErr distinguishes a missing row from a failed state guard.
func (r *PostgresRepo) guardErr(ctx context.Context, id string, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	const q = `SELECT 1 FROM bookings WHERE id = $1`
	var one int
	if probeErr := r.db.QueryRowContext(ctx, q, id).Scan(&one); probeErr != nil {
		if errors.Is(probeErr, sql.ErrNoRows) {
			return ErrNotFound
		}
		return probeErr
	}
	return ErrStaleState
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner, b *Booking) error {
	var (
		callStatus  sql.NullString
		txHash      sql.NullString
		validatedAt sql.NullTime
	)
	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.DeveloperID,
		&b.BookingTime,
		&b.DurationMinutes,
		&b.AmountMinor,
		&b.Currency,
		&b.Status,
		&b.PaymentStatus,
		&callStatus,
		&b.CallLink,
		&b.Project.Title,
		&b.Project.Description,
		&b.Project.Requirements,
		&b.Project.Goals,
		&b.Project.MeetingLink,
		&txHash,
		&b.ValidationAttempts,
		&validatedAt,
		&b.PaymentValidated,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	b.CallStatus = CallStatus(callStatus.String)
	b.TransactionHash = txHash.String
	if validatedAt.Valid {
		t := validatedAt.Time
		b.ValidationTimestamp = &t
	} else {
		b.ValidationTimestamp = nil
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

package profile

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/SomuG25/devcall/pkg/utils"
)

// PostgresRepo persists users, roles, and profiles. Skills are stored as
// a comma-separated text column to keep the schema driver-neutral.
type PostgresRepo struct {
	db    *sql.DB
	retry utils.RetryPolicy
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateUser(ctx context.Context, u User) error {
	return utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
			const q = `
INSERT INTO users (id, email, password_hash, primary_role, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
			if _, err := tx.ExecContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.PrimaryRole, u.CreatedAt, u.UpdatedAt); err != nil {
				return err
			}
			const rq = `
INSERT INTO user_roles (user_id, role, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, role) DO NOTHING
`
			for _, role := range u.Roles {
				if _, err := tx.ExecContext(ctx, rq, u.ID, role, u.CreatedAt); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (r *PostgresRepo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, password_hash, primary_role, created_at, updated_at
FROM users
WHERE email = $1
`
	return r.getUser(ctx, q, email)
}

func (r *PostgresRepo) GetUserByID(ctx context.Context, id string) (User, error) {
	const q = `
SELECT id, email, password_hash, primary_role, created_at, updated_at
FROM users
WHERE id = $1
`
	return r.getUser(ctx, q, id)
}

func (r *PostgresRepo) getUser(ctx context.Context, q, arg string) (User, error) {
	var u User
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		if err := r.db.QueryRowContext(ctx, q, arg).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.PrimaryRole, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return err
		}

		const rq = `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`
		rows, err := r.db.QueryContext(ctx, rq, u.ID)
		if err != nil {
			return err
		}
		defer rows.Close()

		u.Roles = u.Roles[:0]
		for rows.Next() {
			var role string
			if err := rows.Scan(&role); err != nil {
				return err
			}
			u.Roles = append(u.Roles, role)
		}
		return rows.Err()
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) AddRole(ctx context.Context, userID, role string) error {
	const q = `
INSERT INTO user_roles (user_id, role, created_at)
VALUES ($1,$2,now())
ON CONFLICT (user_id, role) DO NOTHING
`
	return utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, q, userID, role)
		return err
	})
}

const developerColumns = `
user_id, full_name, bio, hourly_rate_minor, currency, location, education,
github_url, linkedin_url, wallet_address, profile_picture, is_available, skills,
created_at, updated_at`

func (r *PostgresRepo) UpsertDeveloperProfile(ctx context.Context, p DeveloperProfile) error {
	const q = `
INSERT INTO developer_profiles (` + developerColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (user_id)
DO UPDATE SET full_name = EXCLUDED.full_name,
              bio = EXCLUDED.bio,
              hourly_rate_minor = EXCLUDED.hourly_rate_minor,
              currency = EXCLUDED.currency,
              location = EXCLUDED.location,
              education = EXCLUDED.education,
              github_url = EXCLUDED.github_url,
              linkedin_url = EXCLUDED.linkedin_url,
              wallet_address = EXCLUDED.wallet_address,
              profile_picture = EXCLUDED.profile_picture,
              is_available = EXCLUDED.is_available,
              skills = EXCLUDED.skills,
              updated_at = EXCLUDED.updated_at
`
	return utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, q,
			p.UserID, p.FullName, p.Bio, p.HourlyRateMinor, p.Currency,
			p.Location, p.Education, p.GitHub, p.LinkedIn, p.WalletAddress,
			p.ProfilePicture, p.IsAvailable, joinSkills(p.Skills),
			p.CreatedAt, p.UpdatedAt,
		)
		return err
	})
}

func (r *PostgresRepo) GetDeveloperProfile(ctx context.Context, userID string) (DeveloperProfile, error) {
	const q = `
SELECT ` + developerColumns + `
FROM developer_profiles
WHERE user_id = $1
`
	var p DeveloperProfile
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return scanDeveloper(r.db.QueryRowContext(ctx, q, userID), &p)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DeveloperProfile{}, ErrNotFound
		}
		return DeveloperProfile{}, err
	}
	return p, nil
}

func (r *PostgresRepo) ListAvailableDevelopers(ctx context.Context) ([]DeveloperProfile, error) {
	const q = `
SELECT ` + developerColumns + `
FROM developer_profiles
WHERE is_available AND hourly_rate_minor > 0
ORDER BY hourly_rate_minor ASC, full_name ASC
`
	var out []DeveloperProfile
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var p DeveloperProfile
			if err := scanDeveloper(rows, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) UpsertCustomerProfile(ctx context.Context, p CustomerProfile) error {
	const q = `
INSERT INTO customer_profiles (user_id, full_name, organization, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id)
DO UPDATE SET full_name = EXCLUDED.full_name,
              organization = EXCLUDED.organization,
              updated_at = EXCLUDED.updated_at
`
	return utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, q, p.UserID, p.FullName, p.Organization, p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (r *PostgresRepo) GetCustomerProfile(ctx context.Context, userID string) (CustomerProfile, error) {
	const q = `
SELECT user_id, full_name, organization, created_at, updated_at
FROM customer_profiles
WHERE user_id = $1
`
	var p CustomerProfile
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, q, userID).Scan(
			&p.UserID, &p.FullName, &p.Organization, &p.CreatedAt, &p.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CustomerProfile{}, ErrNotFound
		}
		return CustomerProfile{}, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeveloper(row rowScanner, p *DeveloperProfile) error {
	var skills string
	err := row.Scan(
		&p.UserID, &p.FullName, &p.Bio, &p.HourlyRateMinor, &p.Currency,
		&p.Location, &p.Education, &p.GitHub, &p.LinkedIn, &p.WalletAddress,
		&p.ProfilePicture, &p.IsAvailable, &skills,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.Skills = splitSkills(skills)
	return nil
}

func joinSkills(skills []string) string {
	var kept []string
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ",")
}

func splitSkills(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

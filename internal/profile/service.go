package profile

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/SomuG25/devcall/internal/auth"
	"github.com/SomuG25/devcall/internal/booking"
	"github.com/SomuG25/devcall/internal/rbac"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("profile not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotBookable        = errors.New("developer is not available for booking")
)

// Repository abstracts account and profile persistence.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	// AddRole is idempotent: granting a role the user already holds is a no-op.
	AddRole(ctx context.Context, userID, role string) error

	UpsertDeveloperProfile(ctx context.Context, p DeveloperProfile) error
	GetDeveloperProfile(ctx context.Context, userID string) (DeveloperProfile, error)
	ListAvailableDevelopers(ctx context.Context) ([]DeveloperProfile, error)

	UpsertCustomerProfile(ctx context.Context, p CustomerProfile) error
	GetCustomerProfile(ctx context.Context, userID string) (CustomerProfile, error)
}

// Service owns accounts, roles, and the two profile kinds. It also
// resolves booking parties for the booking service.
type Service struct {
	repo   Repository
	tokens *auth.Manager
	clock  func() time.Time
}

func NewService(repo Repository, tokens *auth.Manager) *Service {
	return &Service{repo: repo, tokens: tokens, clock: time.Now}
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

type AuthResult struct {
	User   User           `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// SignUp registers an account with one primary role and the matching
// profile skeleton. Developers start unavailable until they publish a rate.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, ErrInvalidArgument
	}
	if len(in.Password) < 8 {
		return AuthResult{}, ErrInvalidArgument
	}
	if !rbac.IsValidRole(in.Role) {
		return AuthResult{}, ErrInvalidArgument
	}
	if strings.TrimSpace(in.FullName) == "" {
		return AuthResult{}, ErrInvalidArgument
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.clock().UTC()
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		PrimaryRole:  in.Role,
		Roles:        []string{in.Role},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return AuthResult{}, err
	}

	switch in.Role {
	case rbac.RoleDeveloper:
		err = s.repo.UpsertDeveloperProfile(ctx, DeveloperProfile{
			UserID:    u.ID,
			FullName:  strings.TrimSpace(in.FullName),
			Currency:  "USD",
			CreatedAt: now,
			UpdatedAt: now,
		})
	case rbac.RoleCustomer:
		err = s.repo.UpsertCustomerProfile(ctx, CustomerProfile{
			UserID:    u.ID,
			FullName:  strings.TrimSpace(in.FullName),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return AuthResult{}, err
	}

	pair, err := s.tokens.IssuePair(now, u.ID, u.PrimaryRole, u.Roles)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Tokens: pair}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(s.clock().UTC(), u.ID, u.PrimaryRole, u.Roles)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Tokens: pair}, nil
}

// Refresh exchanges a valid refresh token for a fresh pair, re-reading the
// role set so grants made since login take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	now := s.clock().UTC()
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh, now)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	pair, err := s.tokens.IssuePair(now, u.ID, u.PrimaryRole, u.Roles)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Tokens: pair}, nil
}

// BecomeCustomer grants the customer role to a developer account so they
// can book sessions themselves. Repeated calls are no-ops. The customer
// profile is created lazily on first grant.
func (s *Service) BecomeCustomer(ctx context.Context, userID string) (User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if rbac.FromSlice(u.Roles, u.PrimaryRole).Has(rbac.RoleCustomer) {
		return u, nil
	}

	if err := s.repo.AddRole(ctx, userID, rbac.RoleCustomer); err != nil {
		return User{}, err
	}

	if _, err := s.repo.GetCustomerProfile(ctx, userID); errors.Is(err, ErrNotFound) {
		name := u.Email
		if dp, derr := s.repo.GetDeveloperProfile(ctx, userID); derr == nil {
			name = dp.FullName
		}
		now := s.clock().UTC()
		if err := s.repo.UpsertCustomerProfile(ctx, CustomerProfile{
			UserID:    userID,
			FullName:  name,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return User{}, err
		}
	} else if err != nil {
		return User{}, err
	}

	return s.repo.GetUserByID(ctx, userID)
}

type DeveloperProfileInput struct {
	FullName        string   `json:"full_name"`
	Bio             string   `json:"bio"`
	HourlyRateMinor int64    `json:"hourly_rate_minor"`
	Location        string   `json:"location"`
	Education       string   `json:"education"`
	GitHub          string   `json:"github"`
	LinkedIn        string   `json:"linkedin"`
	WalletAddress   string   `json:"wallet_address"`
	ProfilePicture  string   `json:"profile_picture"`
	IsAvailable     bool     `json:"is_available"`
	Skills          []string `json:"skills"`
}

// UpdateDeveloperProfile replaces the developer's listing. An available
// listing must carry a positive rate.
func (s *Service) UpdateDeveloperProfile(ctx context.Context, userID string, in DeveloperProfileInput) (DeveloperProfile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return DeveloperProfile{}, err
	}
	if !rbac.FromSlice(u.Roles, u.PrimaryRole).Has(rbac.RoleDeveloper) {
		return DeveloperProfile{}, ErrInvalidArgument
	}
	if strings.TrimSpace(in.FullName) == "" {
		return DeveloperProfile{}, ErrInvalidArgument
	}
	if in.HourlyRateMinor < 0 {
		return DeveloperProfile{}, ErrInvalidArgument
	}
	if in.IsAvailable && in.HourlyRateMinor <= 0 {
		return DeveloperProfile{}, ErrInvalidArgument
	}

	existing, err := s.repo.GetDeveloperProfile(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return DeveloperProfile{}, err
	}

	now := s.clock().UTC()
	p := DeveloperProfile{
		UserID:          userID,
		FullName:        strings.TrimSpace(in.FullName),
		Bio:             in.Bio,
		HourlyRateMinor: in.HourlyRateMinor,
		Currency:        "USD",
		Location:        in.Location,
		Education:       in.Education,
		GitHub:          in.GitHub,
		LinkedIn:        in.LinkedIn,
		WalletAddress:   in.WalletAddress,
		ProfilePicture:  in.ProfilePicture,
		IsAvailable:     in.IsAvailable,
		Skills:          in.Skills,
		CreatedAt:       existing.CreatedAt,
		UpdatedAt:       now,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if err := s.repo.UpsertDeveloperProfile(ctx, p); err != nil {
		return DeveloperProfile{}, err
	}
	return p, nil
}

func (s *Service) GetDeveloperProfile(ctx context.Context, userID string) (DeveloperProfile, error) {
	return s.repo.GetDeveloperProfile(ctx, userID)
}

func (s *Service) GetCustomerProfile(ctx context.Context, userID string) (CustomerProfile, error) {
	return s.repo.GetCustomerProfile(ctx, userID)
}

type CustomerProfileInput struct {
	FullName     string `json:"full_name"`
	Organization string `json:"organization"`
}

// UpdateCustomerProfile replaces the caller's customer profile.
func (s *Service) UpdateCustomerProfile(ctx context.Context, userID string, in CustomerProfileInput) (CustomerProfile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return CustomerProfile{}, err
	}
	if !rbac.FromSlice(u.Roles, u.PrimaryRole).Has(rbac.RoleCustomer) {
		return CustomerProfile{}, ErrInvalidArgument
	}
	if strings.TrimSpace(in.FullName) == "" {
		return CustomerProfile{}, ErrInvalidArgument
	}

	existing, err := s.repo.GetCustomerProfile(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return CustomerProfile{}, err
	}

	now := s.clock().UTC()
	p := CustomerProfile{
		UserID:       userID,
		FullName:     strings.TrimSpace(in.FullName),
		Organization: strings.TrimSpace(in.Organization),
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    now,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if err := s.repo.UpsertCustomerProfile(ctx, p); err != nil {
		return CustomerProfile{}, err
	}
	return p, nil
}

// Account is the caller's own view: the user record plus whichever
// profiles their roles carry.
type Account struct {
	User      User              `json:"user"`
	Developer *DeveloperProfile `json:"developer_profile,omitempty"`
	Customer  *CustomerProfile  `json:"customer_profile,omitempty"`
}

func (s *Service) Account(ctx context.Context, userID string) (Account, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	out := Account{User: u}

	if dp, err := s.repo.GetDeveloperProfile(ctx, userID); err == nil {
		out.Developer = &dp
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}
	if cp, err := s.repo.GetCustomerProfile(ctx, userID); err == nil {
		out.Customer = &cp
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}
	return out, nil
}

// DisplayNames resolves user ids to profile names for list views. An
// id with no profile resolves to the empty string rather than failing
// the whole list.
func (s *Service) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done || id == "" {
			continue
		}
		out[id] = ""
		if dp, err := s.repo.GetDeveloperProfile(ctx, id); err == nil {
			out[id] = dp.FullName
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if cp, err := s.repo.GetCustomerProfile(ctx, id); err == nil {
			out[id] = cp.FullName
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return out, nil
}

// ListAvailableDevelopers returns bookable listings, cheapest first.
func (s *Service) ListAvailableDevelopers(ctx context.Context) ([]DeveloperProfile, error) {
	out, err := s.repo.ListAvailableDevelopers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HourlyRateMinor < out[j].HourlyRateMinor
	})
	return out, nil
}

// BookingParties resolves both sides of a prospective booking. The
// developer must be available with a published rate; the rate returned
// here is the one the booking amount is fixed from.
func (s *Service) BookingParties(ctx context.Context, customerID, developerID string) (booking.Parties, error) {
	dp, err := s.repo.GetDeveloperProfile(ctx, developerID)
	if err != nil {
		return booking.Parties{}, err
	}
	if !dp.IsAvailable || dp.HourlyRateMinor <= 0 {
		return booking.Parties{}, ErrNotBookable
	}

	du, err := s.repo.GetUserByID(ctx, developerID)
	if err != nil {
		return booking.Parties{}, err
	}

	cp, err := s.repo.GetCustomerProfile(ctx, customerID)
	if err != nil {
		return booking.Parties{}, err
	}

	return booking.Parties{
		CustomerName:    cp.FullName,
		DeveloperName:   dp.FullName,
		DeveloperEmail:  du.Email,
		HourlyRateMinor: dp.HourlyRateMinor,
		Currency:        dp.Currency,
	}, nil
}

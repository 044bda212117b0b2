package profile

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory repository for tests and early development.
type MemoryRepo struct {
	mu         sync.Mutex
	users      map[string]User
	byEmail    map[string]string
	developers map[string]DeveloperProfile
	customers  map[string]CustomerProfile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:      make(map[string]User),
		byEmail:    make(map[string]string),
		developers: make(map[string]DeveloperProfile),
		customers:  make(map[string]CustomerProfile),
	}
}

func (r *MemoryRepo) CreateUser(ctx context.Context, u User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	r.users[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *MemoryRepo) GetUserByID(ctx context.Context, id string) (User, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) AddRole(ctx context.Context, userID, role string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, have := range u.Roles {
		if have == role {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	r.users[userID] = u
	return nil
}

func (r *MemoryRepo) UpsertDeveloperProfile(ctx context.Context, p DeveloperProfile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.developers[p.UserID] = p
	return nil
}

func (r *MemoryRepo) GetDeveloperProfile(ctx context.Context, userID string) (DeveloperProfile, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.developers[userID]
	if !ok {
		return DeveloperProfile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) ListAvailableDevelopers(ctx context.Context) ([]DeveloperProfile, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DeveloperProfile
	for _, p := range r.developers {
		if p.IsAvailable && p.HourlyRateMinor > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HourlyRateMinor != out[j].HourlyRateMinor {
			return out[i].HourlyRateMinor < out[j].HourlyRateMinor
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

func (r *MemoryRepo) UpsertCustomerProfile(ctx context.Context, p CustomerProfile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[p.UserID] = p
	return nil
}

func (r *MemoryRepo) GetCustomerProfile(ctx context.Context, userID string) (CustomerProfile, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.customers[userID]
	if !ok {
		return CustomerProfile{}, ErrNotFound
	}
	return p, nil
}

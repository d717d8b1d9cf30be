package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo keeps users in process memory. Username and email are unique,
// checked and written under one lock.
type UsersRepo struct {
	mu         sync.RWMutex
	items      map[string]user.User // {"id": user}
	byEmail    map[string]string    // {"email": id}
	byUsername map[string]string    // {"username": id}
	now        func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:      make(map[string]user.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, emailTaken := r.byEmail[nu.Email]
	_, nameTaken := r.byUsername[nu.Username]

	if emailTaken || nameTaken {
		return user.User{}, user.ErrAlreadyExists
	}

	now := r.now()
	u := user.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID
	r.byUsername[u.Username] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.items[id], nil
}

// List orders by (created_at, id) ascending, the same keyset the SQL stores use.
func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) (user.Page, error) {
	if err := ctx.Err(); err != nil {
		return user.Page{}, err
	}

	r.mu.RLock()
	all := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	out := make([]user.User, 0, filter.Limit)
	hasMore := false

	for _, u := range all {
		if filter.AfterCreatedAt != nil && filter.AfterID != nil && !after(u, *filter.AfterCreatedAt, *filter.AfterID) {
			continue
		}
		if len(out) == filter.Limit {
			hasMore = true
			break
		}
		out = append(out, u)
	}

	return user.Page{Items: out, HasMore: hasMore}, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func after(u user.User, createdAt time.Time, id string) bool {
	if u.CreatedAt.Equal(createdAt) {
		return u.ID > id
	}
	return u.CreatedAt.After(createdAt)
}

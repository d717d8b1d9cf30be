package user

import (
	"context"
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public is the outward projection of a user. It is the only user shape
// handlers write to a response.
type Public struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Public() Public {
	return Public{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// NewUser is the write model handed to a Repository. The store assigns the
// id and timestamps.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
}

// with pointers if optional, it will be nil
type ListFilter struct {
	AfterCreatedAt *time.Time
	AfterID        *string
	Limit          int
}

type Page struct {
	Items   []User
	HasMore bool
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user with this email or username already exists")
)

// Repository is the persistence collaborator for users. Implementations must
// enforce uniqueness of username and email and report violations as
// ErrAlreadyExists.
type Repository interface {
	Create(ctx context.Context, nu NewUser) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, filter ListFilter) (Page, error)
	Ping(ctx context.Context) error
}

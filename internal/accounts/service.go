package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID, username, email string) (string, time.Time, error)
}

type Deps struct {
	Users    user.Repository
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Notifier notifications.Notifier // optional
	Log      *slog.Logger
	Prom     *observability.Prom // optional
	CacheTTL time.Duration
}

// Service owns the account flows behind the auth routes. It holds no
// per-request state.
type Service struct {
	users    user.Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier notifications.Notifier
	log      *slog.Logger
	prom     *observability.Prom
	profiles *cache.Cache[user.Public]
	tracer   trace.Tracer
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		users:    d.Users,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		notifier: d.Notifier,
		log:      log,
		prom:     d.Prom,
		profiles: cache.New[user.Public](d.CacheTTL),
		tracer:   otel.Tracer("github.com/geocoder89/authhub/internal/accounts"),
	}
}

// Register persists a validated signup. A uniqueness violation comes back as
// user.ErrAlreadyExists; any other store failure is returned wrapped and is
// not retried.
func (s *Service) Register(ctx context.Context, p user.RegisterPayload) (user.Public, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Register")
	defer span.End()

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		s.prom.ObserveAuth("register", "error")
		span.SetStatus(codes.Error, "hash password")
		return user.Public{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.NewUser{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			s.prom.ObserveAuth("register", "conflict")
			return user.Public{}, err
		}

		s.prom.ObserveAuth("register", "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "create user")
		return user.Public{}, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	s.prom.ObserveAuth("register", "ok")

	s.sendWelcome(ctx, u)

	return u.Public(), nil
}

// sendWelcome is best effort: a failed notification never fails a signup.
func (s *Service) sendWelcome(ctx context.Context, u user.User) {
	if s.notifier == nil {
		return
	}

	err := s.notifier.SendWelcome(ctx, notifications.WelcomeInput{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	})
	if err != nil {
		s.log.WarnContext(ctx, "welcome notification failed", "user_id", u.ID, "err", err)
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      user.Public `json:"user"`
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Login")
	defer span.End()

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.prom.ObserveAuth("login", "invalid")
			return LoginResult{}, ErrInvalidCredentials
		}
		s.prom.ObserveAuth("login", "error")
		return LoginResult{}, fmt.Errorf("get user by email: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		s.prom.ObserveAuth("login", "invalid")
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(u.ID, u.Username, u.Email)
	if err != nil {
		s.prom.ObserveAuth("login", "error")
		return LoginResult{}, fmt.Errorf("generate access token: %w", err)
	}

	s.prom.ObserveAuth("login", "ok")

	return LoginResult{Token: token, ExpiresAt: expiresAt, User: u.Public()}, nil
}

// Authenticated resolves the caller of a verified token. Profiles are cached
// briefly since users are never mutated by this service.
func (s *Service) Authenticated(ctx context.Context, id string) (user.Public, error) {
	if p, ok := s.profiles.Get(id); ok {
		return p, nil
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return user.Public{}, err
	}

	p := u.Public()
	s.profiles.Set(id, p)

	return p, nil
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListResult struct {
	Items      []user.Public `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
	HasMore    bool          `json:"hasMore"`
}

// List returns one page of users ordered by creation. An empty cursor starts
// from the beginning; a malformed one yields utils.ErrInvalidCursor.
func (s *Service) List(ctx context.Context, cursor string, limit int) (ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	filter := user.ListFilter{Limit: limit}

	if cursor != "" {
		c, err := utils.DecodeUserCursor(cursor)
		if err != nil {
			return ListResult{}, err
		}
		filter.AfterCreatedAt = &c.CreatedAt
		filter.AfterID = &c.ID
	}

	page, err := s.users.List(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list users: %w", err)
	}

	out := ListResult{
		Items:   make([]user.Public, 0, len(page.Items)),
		HasMore: page.HasMore,
	}
	for _, u := range page.Items {
		out.Items = append(out.Items, u.Public())
	}

	if page.HasMore && len(page.Items) > 0 {
		last := page.Items[len(page.Items)-1]
		next, err := utils.EncodeUserCursor(last.CreatedAt, last.ID)
		if err != nil {
			return ListResult{}, fmt.Errorf("encode cursor: %w", err)
		}
		out.NextCursor = next
	}

	return out, nil
}

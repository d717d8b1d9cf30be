package db

import (
	"context"
	"errors"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type passwordHasher interface {
	Hash(plain string) (string, error)
}

// EnsureSeedUser creates the configured bootstrap user unless it exists.
// It runs the seed credentials through the same validation as signups.
func EnsureSeedUser(ctx context.Context, users user.Repository, hasher passwordHasher, cfg config.Config) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	payload, err := user.ValidateRegistration(user.RegisterRequest{
		Username: &cfg.SeedUsername,
		Email:    &cfg.SeedEmail,
		Password: &cfg.SeedPassword,
	})
	if err != nil {
		return err
	}

	// check if the user exists

	_, err = users.GetByEmail(ctx, payload.Email)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(payload.Password)

	if err != nil {
		return err
	}

	_, err = users.Create(ctx, user.NewUser{
		Username:     payload.Username,
		Email:        payload.Email,
		PasswordHash: hash,
	})

	// another instance may have seeded concurrently
	if errors.Is(err, user.ErrAlreadyExists) {
		return nil
	}

	return err
}

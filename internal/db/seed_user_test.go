package db

import (
	"context"
	"testing"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureSeedUser(t *testing.T) {
	repo := memory.NewUsersRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	ctx := context.Background()

	cfg := config.Config{
		SeedUsername: "admin",
		SeedEmail:    "Admin@Example.com",
		SeedPassword: "password123",
	}

	if err := EnsureSeedUser(ctx, repo, hasher, cfg); err != nil {
		t.Fatalf("EnsureSeedUser: %v", err)
	}

	// second run is a no-op
	if err := EnsureSeedUser(ctx, repo, hasher, cfg); err != nil {
		t.Fatalf("EnsureSeedUser (again): %v", err)
	}

	u, err := repo.GetByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if err := hasher.Compare(u.PasswordHash, "password123"); err != nil {
		t.Fatalf("stored hash does not match seed password: %v", err)
	}
}

func TestEnsureSeedUser_DisabledWithoutCredentials(t *testing.T) {
	repo := memory.NewUsersRepo()

	err := EnsureSeedUser(context.Background(), repo, security.NewBcryptHasher(bcrypt.MinCost), config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, _ := repo.List(context.Background(), user.ListFilter{Limit: 10})
	if len(page.Items) != 0 {
		t.Fatalf("expected no users, got %d", len(page.Items))
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"hospital-admin/internal/hashing"
	"hospital-admin/internal/models"
	"hospital-admin/internal/repository"
	"hospital-admin/internal/util"
)

// SeedAdminUsers provisions the default admin accounts when they are
// missing. The password comes from SEED_ADMIN_PASSWORD; seeding is
// skipped for any account that already exists.
func SeedAdminUsers(ctx context.Context, store repository.Store, hasher *hashing.Hasher) error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD is required to seed admin users")
	}

	hash, err := hasher.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	seeds := []models.User{
		{Email: "admin@hospital.local", Name: "Hospital Admin", Role: models.RoleAdmin},
		{Email: "superadmin@hospital.local", Name: "Hospital Super Admin", Role: models.RoleSuperAdmin},
	}

	now := time.Now().UTC()
	for _, seed := range seeds {
		_, err := store.Users().GetByEmail(ctx, seed.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check seed user %s: %w", seed.Email, err)
		}

		user := models.User{
			ID:                uuid.NewString(),
			Email:             seed.Email,
			Name:              seed.Name,
			Role:              seed.Role,
			Status:            models.StatusActive,
			PasswordHash:      hash,
			PasswordChangedAt: now,
		}
		if err := store.Users().Create(ctx, &user); err != nil {
			return fmt.Errorf("failed to create seed user %s: %w", seed.Email, err)
		}

		util.Info("Seeded admin user",
			util.String("email", seed.Email),
			util.String("role", seed.Role),
		)
	}

	return nil
}

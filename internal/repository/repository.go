package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"hospital-admin/internal/models"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("record not found")

// Store aggregates the entity repositories over one persistence backend.
// Transaction runs fn against a store bound to a single transaction;
// any error rolls the whole batch back.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Otps() OtpRepository
	Audit() AuditRepository
	Transaction(ctx context.Context, fn func(Store) error) error
	HealthCheck(ctx context.Context) error
}

// UserRepository reads and writes identity records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

// SessionRepository manages live session rows.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Session, error)
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// OtpRepository manages the single live OTP row per user.
type OtpRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.OtpRequest, error)
	// Replace atomically removes any existing row for the user and
	// inserts the new one; the unique index on user_id serializes
	// concurrent issuers.
	Replace(ctx context.Context, otp *models.OtpRequest) error
	IncrementAttempts(ctx context.Context, userID string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditRepository appends to the immutable history tables. Nothing here
// updates or deletes except the retention prune.
type AuditRepository interface {
	AppendAuthLog(ctx context.Context, entry *models.AuthLog) error
	AppendAuthLogs(ctx context.Context, entries []models.AuthLog) error
	AppendSessionLog(ctx context.Context, entry *models.SessionLog) error
	AppendSessionLogs(ctx context.Context, entries []models.SessionLog) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospital-admin/internal/config"
	"hospital-admin/internal/models"
)

func newCleanupFixture(t *testing.T) (*CleanupService, *sessionFixture) {
	t.Helper()
	f := newSessionFixture(t)
	cleanup := NewCleanupService(f.store, config.CleanupConfig{
		Interval:     time.Hour,
		LogRetention: 180 * 24 * time.Hour,
	})
	cleanup.now = f.clock.Now
	return cleanup, f
}

func TestCleanupSweepsExpiredSessions(t *testing.T) {
	cleanup, f := newCleanupFixture(t)
	user := f.seedUser("usr_1")
	live := f.seedSession(user.ID, time.Hour, 8*time.Hour)
	expired1 := f.seedSession(user.ID, 10*time.Hour, 8*time.Hour)
	expired2 := f.seedSession(user.ID, 30*time.Hour, 24*time.Hour)

	report, err := cleanup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.ExpiredSessions)

	_, ok := f.store.Session(live.ID)
	assert.True(t, ok)
	_, ok = f.store.Session(expired1.ID)
	assert.False(t, ok)
	_, ok = f.store.Session(expired2.ID)
	assert.False(t, ok)

	logs := f.store.SessionLogs()
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.NotNil(t, l.ExpiredAt)
		assert.Nil(t, l.RevokedAt)
	}
	assert.Len(t, f.store.AuthLogs(models.ActionSessionExpired), 2)
}

func TestCleanupSweepsExpiredOtps(t *testing.T) {
	cleanup, f := newCleanupFixture(t)
	f.seedUser("usr_1")
	f.seedUser("usr_2")
	now := f.clock.Now()

	require.NoError(t, f.store.Otps().Replace(context.Background(), &models.OtpRequest{
		ID: uuid.New(), UserID: "usr_1", OtpHash: "x",
		ExpiresAt: now.Add(-time.Minute), LastSentAt: now.Add(-6 * time.Minute),
	}))
	require.NoError(t, f.store.Otps().Replace(context.Background(), &models.OtpRequest{
		ID: uuid.New(), UserID: "usr_2", OtpHash: "y",
		ExpiresAt: now.Add(4 * time.Minute), LastSentAt: now.Add(-time.Minute),
	}))

	report, err := cleanup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ExpiredOtpRequests)

	_, ok := f.store.Otp("usr_1")
	assert.False(t, ok)
	_, ok = f.store.Otp("usr_2")
	assert.True(t, ok)
}

func TestCleanupPrunesOldLogs(t *testing.T) {
	cleanup, f := newCleanupFixture(t)
	now := f.clock.Now()
	ctx := context.Background()

	old := now.Add(-181 * 24 * time.Hour)
	recent := now.Add(-time.Hour)
	require.NoError(t, f.store.Audit().AppendAuthLogs(ctx, []models.AuthLog{
		{ID: uuid.New(), UserID: "usr_1", Action: models.ActionLogin, Timestamp: old},
		{ID: uuid.New(), UserID: "usr_1", Action: models.ActionLogin, Timestamp: recent},
	}))
	require.NoError(t, f.store.Audit().AppendSessionLogs(ctx, []models.SessionLog{
		{ID: uuid.New(), SessionID: uuid.NewString(), UserID: "usr_1", CreatedAt: old, RevokedAt: &old},
		{ID: uuid.New(), SessionID: uuid.NewString(), UserID: "usr_1", CreatedAt: recent, RevokedAt: &recent},
	}))

	report, err := cleanup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.PrunedLogs)

	assert.Len(t, f.store.AuthLogs(""), 1)
	assert.Len(t, f.store.SessionLogs(), 1)
}

func TestCleanupIsIdempotent(t *testing.T) {
	cleanup, f := newCleanupFixture(t)
	user := f.seedUser("usr_1")
	f.seedSession(user.ID, 10*time.Hour, 8*time.Hour)

	first, err := cleanup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ExpiredSessions)

	second, err := cleanup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.ExpiredSessions)
	assert.Equal(t, int64(0), second.ExpiredOtpRequests)

	// No duplicate termination records from the second pass.
	assert.Len(t, f.store.SessionLogs(), 1)
	assert.Len(t, f.store.AuthLogs(models.ActionSessionExpired), 1)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospital-admin/internal/models"
	"hospital-admin/internal/testutil"
)

type sessionFixture struct {
	sessions *SessionService
	store    *testutil.MemStore
	clock    *testutil.Clock
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	store := testutil.NewMemStore()
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	audit := NewRecorder(store, nil)
	audit.now = clock.Now
	sessions := NewSessionService(store, audit)
	sessions.now = clock.Now

	return &sessionFixture{sessions: sessions, store: store, clock: clock}
}

func (f *sessionFixture) seedUser(id string) *models.User {
	user := models.User{
		ID:           id,
		Email:        id + "@hospital.local",
		Name:         "Test Admin",
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
		PasswordHash: testutil.Hash("pass-1234"),
	}
	f.store.AddUser(user)
	return &user
}

func (f *sessionFixture) seedSession(userID string, age, lifetime time.Duration) *models.Session {
	created := f.clock.Now().Add(-age)
	sess := models.Session{
		ID:             uuid.New(),
		UserID:         userID,
		CreatedAt:      created,
		ExpiresAt:      created.Add(lifetime),
		LastActivityAt: created,
		IPAddress:      "10.0.0.9",
		UserAgent:      "seed-agent",
		Browser:        "Firefox 121",
		OS:             "Windows 11",
		DeviceType:     "desktop",
	}
	f.store.AddSession(sess)
	return &sess
}

func TestSessionDurationExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cases := map[string]time.Duration{
		"1h":  time.Hour,
		"8h":  8 * time.Hour,
		"24h": 24 * time.Hour,
		"7d":  168 * time.Hour,
	}
	for label, want := range cases {
		sess := newSession("usr_1", label, testDevice, now)
		assert.Equal(t, now.Add(want), sess.ExpiresAt, label)
		assert.False(t, sess.Expired(now.Add(want-time.Second)), label)
		assert.True(t, sess.Expired(now.Add(want)), label)
	}
}

func TestResolveTouchesActivity(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	sess := f.seedSession(user.ID, time.Hour, 8*time.Hour)

	f.clock.Advance(time.Minute)
	gotUser, gotSess, err := f.sessions.Resolve(context.Background(), sess.ID.String(), testDevice)
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Equal(t, sess.ID, gotSess.ID)
	assert.Equal(t, f.clock.Now(), gotSess.LastActivityAt)

	stored, _ := f.store.Session(sess.ID)
	assert.Equal(t, f.clock.Now(), stored.LastActivityAt)
	// Expiry never moves.
	assert.Equal(t, sess.ExpiresAt, stored.ExpiresAt)
}

func TestResolveRejectsMalformedToken(t *testing.T) {
	f := newSessionFixture(t)

	for _, token := range []string{"", "not-a-uuid", "1234", "usr_1"} {
		_, _, err := f.sessions.Resolve(context.Background(), token, testDevice)
		assert.ErrorIs(t, err, ErrSessionInvalid, token)
	}
}

func TestResolveExpiredSessionAuditedNotDeleted(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	sess := f.seedSession(user.ID, 9*time.Hour, 8*time.Hour)

	_, _, err := f.sessions.Resolve(context.Background(), sess.ID.String(), testDevice)
	require.ErrorIs(t, err, ErrSessionInvalid)

	// Row survives for the cleanup job.
	_, ok := f.store.Session(sess.ID)
	assert.True(t, ok)

	entries := f.store.AuthLogs(models.ActionSessionExpiredClientCheck)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].SessionID)
	assert.Equal(t, sess.ID.String(), *entries[0].SessionID)
}

func TestResolveSuspendedUserRejected(t *testing.T) {
	f := newSessionFixture(t)
	user := models.User{
		ID:           "usr_s",
		Email:        "s@hospital.local",
		Status:       models.StatusSuspended,
		PasswordHash: testutil.Hash("pass-1234"),
	}
	f.store.AddUser(user)
	sess := f.seedSession(user.ID, time.Hour, 8*time.Hour)

	_, _, err := f.sessions.Resolve(context.Background(), sess.ID.String(), testDevice)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestLogoutIsFinal(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	sess := f.seedSession(user.ID, time.Hour, 8*time.Hour)

	require.NoError(t, f.sessions.Logout(context.Background(), sess, testDevice))

	_, ok := f.store.Session(sess.ID)
	assert.False(t, ok)

	logs := f.store.SessionLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, sess.ID.String(), logs[0].SessionID)
	require.NotNil(t, logs[0].RevokedAt)
	assert.Nil(t, logs[0].ExpiredAt)
	assert.Equal(t, sess.CreatedAt, logs[0].CreatedAt)

	entries := f.store.AuthLogs(models.ActionLogoutSelf)
	require.Len(t, entries, 1)

	_, _, err := f.sessions.Resolve(context.Background(), sess.ID.String(), testDevice)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestRevokeOtherChecksOwnershipAndTarget(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	stranger := f.seedUser("usr_2")
	current := f.seedSession(user.ID, time.Hour, 8*time.Hour)
	other := f.seedSession(user.ID, 2*time.Hour, 24*time.Hour)
	foreign := f.seedSession(stranger.ID, time.Hour, 8*time.Hour)
	ctx := context.Background()

	err := f.sessions.RevokeOther(ctx, user, current, uuid.New(), testDevice)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = f.sessions.RevokeOther(ctx, user, current, foreign.ID, testDevice)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, ok := f.store.Session(foreign.ID)
	assert.True(t, ok, "foreign session must be untouched")

	err = f.sessions.RevokeOther(ctx, user, current, current.ID, testDevice)
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, f.sessions.RevokeOther(ctx, user, current, other.ID, testDevice))
	_, ok = f.store.Session(other.ID)
	assert.False(t, ok)
	_, ok = f.store.Session(current.ID)
	assert.True(t, ok)

	entries := f.store.AuthLogs(models.ActionLogoutOther)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ActingSessionID)
	assert.Equal(t, current.ID.String(), *entries[0].ActingSessionID)
	assert.Equal(t, other.ID.String(), *entries[0].SessionID)
}

func TestRevokeByIDSelfTargetActsAsLogout(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	current := f.seedSession(user.ID, time.Hour, 8*time.Hour)

	require.NoError(t, f.sessions.RevokeByID(context.Background(), user, current, current.ID, testDevice))

	_, ok := f.store.Session(current.ID)
	assert.False(t, ok)
	assert.Len(t, f.store.AuthLogs(models.ActionLogoutSelf), 1)
	assert.Empty(t, f.store.AuthLogs(models.ActionLogoutOther))
}

func TestRevokeAllCountsAndActing(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	stranger := f.seedUser("usr_2")
	current := f.seedSession(user.ID, time.Hour, 8*time.Hour)
	f.seedSession(user.ID, 2*time.Hour, 24*time.Hour)
	f.seedSession(user.ID, 3*time.Hour, 168*time.Hour)
	foreign := f.seedSession(stranger.ID, time.Hour, 8*time.Hour)

	count, err := f.sessions.RevokeAll(context.Background(), user, current, testDevice)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, 1, f.store.SessionCount())
	_, ok := f.store.Session(foreign.ID)
	assert.True(t, ok, "other user's session must survive")

	entries := f.store.AuthLogs(models.ActionLogoutAll)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.NotNil(t, e.ActingSessionID)
		assert.Equal(t, current.ID.String(), *e.ActingSessionID)
	}
	assert.Len(t, f.store.SessionLogs(), 3)
}

func TestListSessionsFlagsCurrentAndSkipsExpired(t *testing.T) {
	f := newSessionFixture(t)
	user := f.seedUser("usr_1")
	current := f.seedSession(user.ID, time.Hour, 8*time.Hour)
	newer := f.seedSession(user.ID, 10*time.Minute, 24*time.Hour)
	f.seedSession(user.ID, 9*time.Hour, 8*time.Hour) // already expired

	views, err := f.sessions.List(context.Background(), user.ID, current.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, newer.ID.String(), views[0].ID, "newest first")
	assert.False(t, views[0].IsCurrent)
	assert.Equal(t, current.ID.String(), views[1].ID)
	assert.True(t, views[1].IsCurrent)
}

// Package testutil provides in-memory doubles for the persistence and
// hashing layers so service and handler tests run without Postgres.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hospital-admin/internal/models"
	"hospital-admin/internal/repository"
)

// MemStore is a map-backed repository.Store. Transaction applies fn
// directly against the store; tests that need rollback behavior assert
// through error returns instead.
type MemStore struct {
	mu sync.Mutex

	users       map[string]*models.User
	sessions    map[uuid.UUID]*models.Session
	otps        map[string]*models.OtpRequest
	authLogs    []models.AuthLog
	sessionLogs []models.SessionLog
}

var _ repository.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[string]*models.User),
		sessions: make(map[uuid.UUID]*models.Session),
		otps:     make(map[string]*models.OtpRequest),
	}
}

func (s *MemStore) Users() repository.UserRepository       { return &memUsers{s} }
func (s *MemStore) Sessions() repository.SessionRepository { return &memSessions{s} }
func (s *MemStore) Otps() repository.OtpRepository         { return &memOtps{s} }
func (s *MemStore) Audit() repository.AuditRepository      { return &memAudit{s} }

func (s *MemStore) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

func (s *MemStore) HealthCheck(ctx context.Context) error { return nil }

// AddUser seeds a user directly.
func (s *MemStore) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// AddSession seeds a session directly.
func (s *MemStore) AddSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sess
}

// Session returns a copy of the stored session, if present.
func (s *MemStore) Session(id uuid.UUID) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *sess, true
}

// SessionCount reports how many live session rows exist.
func (s *MemStore) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Otp returns a copy of the user's OTP row, if present.
func (s *MemStore) Otp(userID string) (models.OtpRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	otp, ok := s.otps[userID]
	if !ok {
		return models.OtpRequest{}, false
	}
	return *otp, true
}

// AuthLogs returns the recorded audit rows, optionally filtered by action.
func (s *MemStore) AuthLogs(action string) []models.AuthLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if action == "" {
		return append([]models.AuthLog(nil), s.authLogs...)
	}
	var out []models.AuthLog
	for _, l := range s.authLogs {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out
}

// SessionLogs returns the recorded termination rows.
func (s *MemStore) SessionLogs() []models.SessionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SessionLog(nil), s.sessionLogs...)
}

type memUsers struct{ s *MemStore }

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := *user
	r.s.users[u.ID] = &u
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Phone != nil && *u.Phone == phone {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = changedAt
	return nil
}

type memSessions struct{ s *MemStore }

func (r *memSessions) Create(ctx context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess := *session
	r.s.sessions[sess.ID] = &sess
	return nil
}

func (r *memSessions) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (r *memSessions) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r *memSessions) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.ExpiresAt.After(now) {
			out = append(out, *sess)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r *memSessions) ListExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Session
	for _, sess := range r.s.sessions {
		if !sess.ExpiresAt.After(now) {
			out = append(out, *sess)
		}
	}
	sortSessions(out)
	return out, nil
}

func (r *memSessions) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sess.LastActivityAt = at
	return nil
}

func (r *memSessions) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r *memSessions) DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.s.sessions[id]; ok {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

type memOtps struct{ s *MemStore }

func (r *memOtps) GetByUser(ctx context.Context, userID string) (*models.OtpRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	otp, ok := r.s.otps[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *otp
	return &out, nil
}

func (r *memOtps) Replace(ctx context.Context, otp *models.OtpRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o := *otp
	r.s.otps[o.UserID] = &o
	return nil
}

func (r *memOtps) IncrementAttempts(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	otp, ok := r.s.otps[userID]
	if !ok {
		return repository.ErrNotFound
	}
	otp.Attempts++
	return nil
}

func (r *memOtps) DeleteByUser(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.otps, userID)
	return nil
}

func (r *memOtps) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for userID, otp := range r.s.otps {
		if !otp.ExpiresAt.After(now) {
			delete(r.s.otps, userID)
			n++
		}
	}
	return n, nil
}

type memAudit struct{ s *MemStore }

func (r *memAudit) AppendAuthLog(ctx context.Context, entry *models.AuthLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.authLogs = append(r.s.authLogs, *entry)
	return nil
}

func (r *memAudit) AppendAuthLogs(ctx context.Context, entries []models.AuthLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.authLogs = append(r.s.authLogs, entries...)
	return nil
}

func (r *memAudit) AppendSessionLog(ctx context.Context, entry *models.SessionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessionLogs = append(r.s.sessionLogs, *entry)
	return nil
}

func (r *memAudit) AppendSessionLogs(ctx context.Context, entries []models.SessionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessionLogs = append(r.s.sessionLogs, entries...)
	return nil
}

func (r *memAudit) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64

	kept := r.s.authLogs[:0]
	for _, l := range r.s.authLogs {
		if l.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.s.authLogs = kept

	keptSL := r.s.sessionLogs[:0]
	for _, l := range r.s.sessionLogs {
		terminated := l.CreatedAt
		if l.RevokedAt != nil {
			terminated = *l.RevokedAt
		} else if l.ExpiredAt != nil {
			terminated = *l.ExpiredAt
		}
		if terminated.Before(cutoff) {
			n++
			continue
		}
		keptSL = append(keptSL, l)
	}
	r.s.sessionLogs = keptSL

	return n, nil
}

func sortSessions(sessions []models.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}

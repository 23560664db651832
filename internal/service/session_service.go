package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hospital-admin/internal/models"
	"hospital-admin/internal/repository"
	"hospital-admin/internal/util"
)

// sessionDurations maps the client-facing duration labels to lifetimes.
var sessionDurations = map[string]time.Duration{
	"1h":  time.Hour,
	"8h":  8 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  168 * time.Hour,
}

// newSession builds a session row for the given lifetime label. The
// expiry is fixed here and never extended afterwards.
func newSession(userID, duration string, device DeviceInfo, now time.Time) *models.Session {
	return &models.Session{
		ID:             uuid.New(),
		UserID:         userID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(sessionDurations[duration]),
		LastActivityAt: now,
		IPAddress:      device.IPAddress,
		UserAgent:      device.UserAgent,
		Browser:        device.Browser,
		OS:             device.OS,
		DeviceType:     device.DeviceType,
	}
}

// SessionService resolves session cookies and manages the multi-device
// revocation surface.
type SessionService struct {
	store repository.Store
	audit *Recorder
	now   func() time.Time
}

func NewSessionService(store repository.Store, audit *Recorder) *SessionService {
	return &SessionService{store: store, audit: audit, now: time.Now}
}

// SessionView is the device summary returned to the sessions list.
type SessionView struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	IPAddress      string    `json:"ipAddress"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	DeviceType     string    `json:"deviceType"`
	IsCurrent      bool      `json:"isCurrent"`
}

// Resolve authenticates a raw session token. An expired session is
// reported invalid and audited, but its row is left for the cleanup job.
func (s *SessionService) Resolve(ctx context.Context, token string, device DeviceInfo) (*models.User, *models.Session, error) {
	if !util.IsValidSessionToken(token) {
		return nil, nil, ErrSessionInvalid
	}
	id, err := uuid.Parse(token)
	if err != nil {
		return nil, nil, ErrSessionInvalid
	}

	session, err := s.store.Sessions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	if session.Expired(now) {
		sid := session.ID.String()
		entry := WithDetails(
			NewAuthLog(session.UserID, models.ActionSessionExpiredClientCheck, device),
			map[string]any{"expiresAt": session.ExpiresAt},
		)
		entry.SessionID = &sid
		s.audit.Record(ctx, entry)
		return nil, nil, ErrSessionInvalid
	}

	user, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if user.Status != models.StatusActive {
		return nil, nil, ErrSessionInvalid
	}

	if err := s.store.Sessions().TouchActivity(ctx, session.ID, now); err != nil {
		util.Warn("failed to touch session activity",
			util.String("session_id", session.ID.String()),
			util.ErrorField(err),
		)
	} else {
		session.LastActivityAt = now
	}
	return user, session, nil
}

// List returns the user's live sessions, newest first, flagging the one
// backing the current request.
func (s *SessionService) List(ctx context.Context, userID string, currentID uuid.UUID) ([]SessionView, error) {
	sessions, err := s.store.Sessions().ListActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, SessionView{
			ID:             sess.ID.String(),
			CreatedAt:      sess.CreatedAt,
			ExpiresAt:      sess.ExpiresAt,
			LastActivityAt: sess.LastActivityAt,
			IPAddress:      sess.IPAddress,
			Browser:        sess.Browser,
			OS:             sess.OS,
			DeviceType:     sess.DeviceType,
			IsCurrent:      sess.ID == currentID,
		})
	}
	return views, nil
}

// Logout terminates the caller's own session.
func (s *SessionService) Logout(ctx context.Context, session *models.Session, device DeviceInfo) error {
	now := s.now()
	sid := session.ID.String()

	sessionLog := sessionLogFor(session, uuid.New())
	sessionLog.RevokedAt = &now

	entry := NewAuthLog(session.UserID, models.ActionLogoutSelf, device)
	entry.SessionID = &sid
	entry.ActingSessionID = &sid
	entry.Timestamp = now

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Sessions().Delete(ctx, session.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := tx.Audit().AppendSessionLog(ctx, &sessionLog); err != nil {
			return err
		}
		return tx.Audit().AppendAuthLog(ctx, entry)
	})
	if err != nil {
		return err
	}
	s.audit.Mirror(ctx, entry)
	return nil
}

// RevokeOther terminates one of the caller's other sessions. The current
// session is not a valid target here.
func (s *SessionService) RevokeOther(ctx context.Context, user *models.User, current *models.Session, targetID uuid.UUID, device DeviceInfo) error {
	if targetID == current.ID {
		return ErrInvalidInput
	}
	return s.revokeTarget(ctx, user, current, targetID, device)
}

// RevokeByID terminates a single session by id with an ownership check.
// Targeting the current session behaves like a plain logout.
func (s *SessionService) RevokeByID(ctx context.Context, user *models.User, current *models.Session, targetID uuid.UUID, device DeviceInfo) error {
	if targetID == current.ID {
		return s.Logout(ctx, current, device)
	}
	return s.revokeTarget(ctx, user, current, targetID, device)
}

func (s *SessionService) revokeTarget(ctx context.Context, user *models.User, current *models.Session, targetID uuid.UUID, device DeviceInfo) error {
	target, err := s.store.Sessions().GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("load target session: %w", err)
	}
	if target.UserID != user.ID {
		return ErrUnauthorized
	}

	now := s.now()
	targetSID := target.ID.String()
	actingSID := current.ID.String()

	sessionLog := sessionLogFor(target, uuid.New())
	sessionLog.RevokedAt = &now

	entry := WithDetails(
		NewAuthLog(user.ID, models.ActionLogoutOther, device),
		map[string]any{
			"targetBrowser":    target.Browser,
			"targetOs":         target.OS,
			"targetDeviceType": target.DeviceType,
			"targetIpAddress":  target.IPAddress,
		},
	)
	entry.SessionID = &targetSID
	entry.ActingSessionID = &actingSID
	entry.Timestamp = now

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Sessions().Delete(ctx, target.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := tx.Audit().AppendSessionLog(ctx, &sessionLog); err != nil {
			return err
		}
		return tx.Audit().AppendAuthLog(ctx, entry)
	})
	if err != nil {
		return err
	}
	s.audit.Mirror(ctx, entry)
	return nil
}

// RevokeAll terminates every session of the user, the other devices
// first and the caller's own last, and reports how many were removed.
func (s *SessionService) RevokeAll(ctx context.Context, user *models.User, current *models.Session, device DeviceInfo) (int, error) {
	sessions, err := s.store.Sessions().ListByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	now := s.now()
	actingSID := current.ID.String()

	others := make([]uuid.UUID, 0, len(sessions))
	sessionLogs := make([]models.SessionLog, 0, len(sessions))
	authLogs := make([]models.AuthLog, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		if sess.ID != current.ID {
			others = append(others, sess.ID)
		}

		slog := sessionLogFor(sess, uuid.New())
		slog.RevokedAt = &now
		sessionLogs = append(sessionLogs, slog)

		sid := sess.ID.String()
		entry := NewAuthLog(user.ID, models.ActionLogoutAll, device)
		entry.SessionID = &sid
		entry.ActingSessionID = &actingSID
		entry.Timestamp = now
		authLogs = append(authLogs, *entry)
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if len(others) > 0 {
			if _, err := tx.Sessions().DeleteBatch(ctx, others); err != nil {
				return fmt.Errorf("delete sessions: %w", err)
			}
		}
		if err := tx.Sessions().Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("delete current session: %w", err)
		}
		if err := tx.Audit().AppendSessionLogs(ctx, sessionLogs); err != nil {
			return err
		}
		return tx.Audit().AppendAuthLogs(ctx, authLogs)
	})
	if err != nil {
		return 0, err
	}

	for i := range authLogs {
		s.audit.Mirror(ctx, &authLogs[i])
	}
	util.Info("all sessions revoked",
		util.String("user_id", user.ID),
		util.Int("count", len(sessions)),
	)
	return len(sessions), nil
}

// sessionLogFor copies the identity and device metadata of a session
// into its termination record.
func sessionLogFor(sess *models.Session, id uuid.UUID) models.SessionLog {
	return models.SessionLog{
		ID:         id,
		SessionID:  sess.ID.String(),
		UserID:     sess.UserID,
		CreatedAt:  sess.CreatedAt,
		IPAddress:  sess.IPAddress,
		UserAgent:  sess.UserAgent,
		Browser:    sess.Browser,
		OS:         sess.OS,
		DeviceType: sess.DeviceType,
	}
}

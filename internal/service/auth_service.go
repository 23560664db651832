package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"hospital-admin/internal/config"
	"hospital-admin/internal/models"
	"hospital-admin/internal/notify"
	"hospital-admin/internal/ratelimit"
	"hospital-admin/internal/repository"
	"hospital-admin/internal/util"
)

// PasswordHasher is the credential/OTP digest surface the auth flow
// depends on. Satisfied by hashing.Hasher.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password, digest string) bool
	CompareDummy(password string) bool
	HashOTP(otp string) (string, error)
	CompareOTP(otp, digest string) bool
}

// AuthService implements the two-step login: issue an OTP against valid
// credentials, then exchange credentials + OTP for a session.
type AuthService struct {
	store    repository.Store
	hasher   PasswordHasher
	limiter  ratelimit.Limiter
	sender   notify.Sender
	sessions *SessionService
	audit    *Recorder

	authCfg config.AuthConfig
	otpCfg  config.OTPConfig

	now func() time.Time
}

func NewAuthService(
	store repository.Store,
	hasher PasswordHasher,
	limiter ratelimit.Limiter,
	sender notify.Sender,
	sessions *SessionService,
	audit *Recorder,
	authCfg config.AuthConfig,
	otpCfg config.OTPConfig,
) *AuthService {
	return &AuthService{
		store:    store,
		hasher:   hasher,
		limiter:  limiter,
		sender:   sender,
		sessions: sessions,
		audit:    audit,
		authCfg:  authCfg,
		otpCfg:   otpCfg,
		now:      time.Now,
	}
}

// LoginResult is the outcome of a successful OTP verification.
type LoginResult struct {
	User    *models.User
	Session *models.Session
}

// RequestOTP validates credentials and issues a fresh one-time code to
// the account's email. A failed delivery removes the issued code so the
// user is never left with an undeliverable OTP.
func (s *AuthService) RequestOTP(ctx context.Context, identifier, password string, device DeviceInfo) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return ErrInvalidInput
	}

	if err := s.checkLimit(ctx, "otp_req:ip:"+device.IPAddress, s.authCfg.OTPRequestMaxPerIP, s.authCfg.OTPRequestWindow); err != nil {
		return err
	}

	user, err := s.verifyCredentials(ctx, identifier, password)
	if err != nil {
		return err
	}

	if err := s.checkLimit(ctx, "otp_req:user:"+user.ID, s.authCfg.OTPRequestMaxPerUser, s.authCfg.OTPRequestWindow); err != nil {
		return err
	}

	now := s.now()
	cooldown := time.Duration(s.otpCfg.CooldownSeconds) * time.Second
	if existing, err := s.store.Otps().GetByUser(ctx, user.ID); err == nil {
		if elapsed := now.Sub(existing.LastSentAt); elapsed < cooldown {
			return &RateLimitError{RetryAfter: cooldown - elapsed}
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load otp: %w", err)
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	otpHash, err := s.hasher.HashOTP(code)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	otp := &models.OtpRequest{
		ID:         uuid.New(),
		UserID:     user.ID,
		OtpHash:    otpHash,
		ExpiresAt:  now.Add(s.otpCfg.Expiry),
		Attempts:   0,
		LastSentAt: now,
	}
	if err := s.store.Otps().Replace(ctx, otp); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	expiresMinutes := int(s.otpCfg.Expiry / time.Minute)
	if err := s.sender.SendOTP(ctx, user.Email, code, expiresMinutes); err != nil {
		if delErr := s.store.Otps().DeleteByUser(ctx, user.ID); delErr != nil {
			util.Error("failed to remove otp after delivery failure",
				util.String("user_id", user.ID),
				util.ErrorField(delErr),
			)
		}
		s.audit.Record(ctx, WithDetails(
			NewAuthLog(user.ID, models.ActionOtpSendFailedEmail, device),
			map[string]any{"reason": err.Error()},
		))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.audit.Record(ctx, NewAuthLog(user.ID, models.ActionOtpRequestedEmail, device))
	return nil
}

// VerifyOTP re-checks credentials, consumes the OTP and creates the
// session. The OTP delete, session insert and login audit rows commit
// in one transaction.
func (s *AuthService) VerifyOTP(ctx context.Context, identifier, password, code, duration string, device DeviceInfo) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if !util.IsValidOTP(code) {
		return nil, ErrInvalidInput
	}
	if _, ok := sessionDurations[duration]; !ok {
		return nil, ErrInvalidInput
	}

	if err := s.checkLimit(ctx, "otp_verify:ip:"+device.IPAddress, s.authCfg.OTPVerifyMax, s.authCfg.OTPVerifyWindow); err != nil {
		return nil, err
	}

	user, err := s.verifyCredentials(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	otp, err := s.store.Otps().GetByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, fmt.Errorf("load otp: %w", err)
	}

	now := s.now()
	if !otp.ExpiresAt.After(now) {
		if err := s.store.Otps().DeleteByUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("remove expired otp: %w", err)
		}
		return nil, ErrOtpExpired
	}
	if otp.Attempts >= s.otpCfg.MaxAttempts {
		if err := s.store.Otps().DeleteByUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("remove exhausted otp: %w", err)
		}
		return nil, ErrOtpExhausted
	}

	if !s.hasher.CompareOTP(code, otp.OtpHash) {
		if err := s.store.Otps().IncrementAttempts(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("count otp attempt: %w", err)
		}
		remaining := s.otpCfg.MaxAttempts - otp.Attempts - 1
		s.audit.Record(ctx, WithDetails(
			NewAuthLog(user.ID, models.ActionOtpVerifyFailed, device),
			map[string]any{"remainingAttempts": remaining},
		))
		return nil, &OtpAttemptError{Remaining: remaining}
	}

	session := newSession(user.ID, duration, device, now)
	sessionID := session.ID.String()

	method := "email_otp"
	if util.IsValidPhone(identifier) {
		method = "phone_otp"
	}
	loginLog := WithDetails(
		NewAuthLog(user.ID, models.ActionLogin, device),
		map[string]any{"method": method, "sessionDuration": duration},
	)
	loginLog.SessionID = &sessionID
	loginLog.Timestamp = now
	createdLog := WithDetails(
		NewAuthLog(user.ID, models.ActionSessionCreated, device),
		map[string]any{"sessionDuration": duration, "expiresAt": session.ExpiresAt},
	)
	createdLog.SessionID = &sessionID
	createdLog.Timestamp = now

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Otps().DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("consume otp: %w", err)
		}
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return tx.Audit().AppendAuthLogs(ctx, []models.AuthLog{*loginLog, *createdLog})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Mirror(ctx, loginLog)
	s.audit.Mirror(ctx, createdLog)

	util.Info("user logged in",
		util.String("user_id", user.ID),
		util.String("session_id", sessionID),
		util.String("device_type", device.DeviceType),
	)
	return &LoginResult{User: user, Session: session}, nil
}

// verifyCredentials resolves the identifier to a user and checks the
// password. The password comparison runs on every path, against the
// dummy digest when no usable account exists, so latency does not leak
// account existence. Suspension only surfaces after a correct password.
func (s *AuthService) verifyCredentials(ctx context.Context, identifier, password string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case util.IsValidEmail(identifier):
		user, err = s.store.Users().GetByEmail(ctx, util.NormalizeEmail(identifier))
	case util.IsValidPhone(identifier):
		user, err = s.store.Users().GetByPhone(ctx, identifier)
	default:
		return nil, ErrInvalidInput
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.ComparePassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	switch user.Status {
	case models.StatusActive:
		return user, nil
	case models.StatusSuspended:
		return nil, ErrAccountSuspended
	default:
		return nil, ErrInvalidCredentials
	}
}

// VerifyPassword re-checks the password of an already-resolved user.
// Used by the session-revocation endpoints.
func (s *AuthService) VerifyPassword(user *models.User, password string) error {
	if password == "" {
		return ErrInvalidInput
	}
	if !s.hasher.ComparePassword(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) checkLimit(ctx context.Context, key string, max int, window time.Duration) error {
	res, err := s.limiter.Check(ctx, key, max, window)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !res.Allowed {
		return &RateLimitError{RetryAfter: res.RetryAfter(s.now())}
	}
	return nil
}

// generateOTP draws a uniform 6-digit code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

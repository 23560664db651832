package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User statuses. Users are never physically deleted; StatusDeleted is a
// tombstone that behaves like "not found" during authentication.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// User roles.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// AuthLog action tags.
const (
	ActionLogin                      = "LOGIN"
	ActionLogoutSelf                 = "LOGOUT_SELF"
	ActionLogoutOther                = "LOGOUT_OTHER"
	ActionLogoutAll                  = "LOGOUT_ALL"
	ActionSessionCreated             = "SESSION_CREATED"
	ActionSessionExpired             = "SESSION_EXPIRED"
	ActionSessionExpiredClientCheck  = "SESSION_EXPIRED_CLIENT_VALIDATE"
	ActionOtpRequestedEmail          = "OTP_REQUESTED_EMAIL"
	ActionOtpSendFailedEmail         = "OTP_SEND_FAILED_EMAIL"
	ActionOtpVerifyFailed            = "OTP_VERIFY_FAILED"
)

// User is a staff identity record. Exactly one of email or phone is
// needed to authenticate; status gates every auth flow.
type User struct {
	ID                string    `gorm:"type:text;primaryKey" json:"id"`
	Email             string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Name              string    `gorm:"type:text;not null" json:"name"`
	Phone             *string   `gorm:"type:text;uniqueIndex" json:"phone,omitempty"`
	Role              string    `gorm:"type:text;not null;default:ADMIN" json:"role"`
	Status            string    `gorm:"type:text;not null;default:active;index" json:"status"`
	PasswordHash      string    `gorm:"type:text;not null" json:"-"`
	PasswordChangedAt time.Time `gorm:"not null" json:"passwordChangedAt"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Session is one logged-in device. ExpiresAt is fixed at creation and
// never extended; LastActivityAt is a cosmetic "last seen" marker.
type Session struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string    `gorm:"type:text;not null;index" json:"userId"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
	ExpiresAt      time.Time `gorm:"not null;index" json:"expiresAt"`
	LastActivityAt time.Time `gorm:"not null" json:"lastActivityAt"`
	IPAddress      string    `gorm:"type:text" json:"ipAddress"`
	UserAgent      string    `gorm:"type:text" json:"userAgent"`
	Browser        string    `gorm:"type:text" json:"browser"`
	OS             string    `gorm:"type:text" json:"os"`
	DeviceType     string    `gorm:"type:text" json:"deviceType"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
}

// Expired reports whether the session is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// OtpRequest is the single live OTP for a user. The unique index on
// UserID is what serializes two concurrent issuers.
type OtpRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:text;not null;uniqueIndex"`
	OtpHash    string    `gorm:"type:text;not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	Attempts   int       `gorm:"not null;default:0"`
	LastSentAt time.Time `gorm:"not null"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}

// SessionLog is the immutable record of a session that stopped being
// live. Exactly one of RevokedAt/ExpiredAt is set.
type SessionLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string     `gorm:"type:text;not null;index" json:"sessionId"`
	UserID     string     `gorm:"type:text;not null;index" json:"userId"`
	CreatedAt  time.Time  `gorm:"not null" json:"createdAt"`
	RevokedAt  *time.Time `gorm:"index" json:"revokedAt,omitempty"`
	ExpiredAt  *time.Time `gorm:"index" json:"expiredAt,omitempty"`
	IPAddress  string     `gorm:"type:text" json:"ipAddress"`
	UserAgent  string     `gorm:"type:text" json:"userAgent"`
	Browser    string     `gorm:"type:text" json:"browser"`
	OS         string     `gorm:"type:text" json:"os"`
	DeviceType string     `gorm:"type:text" json:"deviceType"`
}

// AuthLog is an append-only audit event. SessionID is the subject,
// ActingSessionID the actor (they differ for admin-style revocations).
type AuthLog struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string         `gorm:"type:text;not null;index" json:"userId"`
	SessionID       *string        `gorm:"type:text;index" json:"sessionId,omitempty"`
	ActingSessionID *string        `gorm:"type:text;index" json:"actingSessionId,omitempty"`
	Action          string         `gorm:"type:text;not null;index" json:"action"`
	IPAddress       string         `gorm:"type:text" json:"ipAddress"`
	UserAgent       string         `gorm:"type:text" json:"userAgent"`
	Browser         string         `gorm:"type:text" json:"browser"`
	OS              string         `gorm:"type:text" json:"os"`
	DeviceType      string         `gorm:"type:text" json:"deviceType"`
	Timestamp       time.Time      `gorm:"not null;index" json:"timestamp"`
	Details         datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
}

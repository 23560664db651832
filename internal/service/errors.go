package service

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the services. Handlers map these to HTTP
// statuses; anything not listed here surfaces as an internal error.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrRateLimited        = errors.New("rate limited")
	ErrOtpNotFound        = errors.New("otp not found")
	ErrOtpExpired         = errors.New("otp expired")
	ErrOtpExhausted       = errors.New("too many otp attempts")
	ErrOtpInvalid         = errors.New("invalid otp")
	ErrSessionInvalid     = errors.New("invalid session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrDeliveryFailed     = errors.New("otp delivery failed")
)

// RateLimitError carries how long the caller must wait before retrying.
// errors.Is(err, ErrRateLimited) holds for every instance.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// OtpAttemptError reports a wrong code together with how many attempts
// remain before the OTP is invalidated.
type OtpAttemptError struct {
	Remaining int
}

func (e *OtpAttemptError) Error() string {
	return fmt.Sprintf("invalid otp, %d attempts remaining", e.Remaining)
}

func (e *OtpAttemptError) Is(target error) bool {
	return target == ErrOtpInvalid
}

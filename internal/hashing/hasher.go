package hashing

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a real bcrypt digest of an unknowable random value. It is
// compared against on every negative lookup path so that response
// latency stays the same whether or not an account exists.
const dummyHash = "$2a$10$X5nZPJlcqNyZc4vZLHHkA.J8EWvLx3fBK7qGrq6KwP5X2HZLqY5HS"

// ErrHashFailed wraps bcrypt generation failures.
var ErrHashFailed = errors.New("failed to generate hash")

// Hasher produces and verifies bcrypt digests for passwords and OTP
// codes. The zero cost falls back to bcrypt.DefaultCost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// HashPassword digests a plaintext password.
func (h *Hasher) HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", ErrHashFailed
	}
	return string(digest), nil
}

// ComparePassword reports whether password matches digest.
func (h *Hasher) ComparePassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// CompareDummy burns one bcrypt comparison against the fixed dummy
// digest. It always returns false; callers invoke it on the
// user-not-found path to keep timing uniform.
func (h *Hasher) CompareDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
	return false
}

// HashOTP digests a one-time code. OTPs are short-lived so they share
// the password cost rather than carrying their own parameter set.
func (h *Hasher) HashOTP(otp string) (string, error) {
	return h.HashPassword(otp)
}

// CompareOTP reports whether otp matches digest.
func (h *Hasher) CompareOTP(otp, digest string) bool {
	return h.ComparePassword(otp, digest)
}

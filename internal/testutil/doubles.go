package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeHasher matches plaintext against a "hashed:" prefix and counts
// every comparison, so tests can assert that exactly one digest
// comparison runs per credential check regardless of outcome.
type FakeHasher struct {
	mu           sync.Mutex
	CompareCalls int
	DummyCalls   int
}

func (h *FakeHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *FakeHasher) ComparePassword(password, digest string) bool {
	h.mu.Lock()
	h.CompareCalls++
	h.mu.Unlock()
	return digest == "hashed:"+password
}

func (h *FakeHasher) CompareDummy(password string) bool {
	h.mu.Lock()
	h.DummyCalls++
	h.mu.Unlock()
	return false
}

func (h *FakeHasher) HashOTP(otp string) (string, error) {
	return h.HashPassword(otp)
}

func (h *FakeHasher) CompareOTP(otp, digest string) bool {
	return h.ComparePassword(otp, digest)
}

// Comparisons reports the total digest comparisons performed.
func (h *FakeHasher) Comparisons() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.CompareCalls + h.DummyCalls
}

// Hash returns the digest FakeHasher produces for a plaintext.
func Hash(plain string) string { return "hashed:" + plain }

// FakeSender records delivered codes and optionally fails.
type FakeSender struct {
	mu   sync.Mutex
	Sent []SentOTP
	Err  error
}

type SentOTP struct {
	To   string
	Code string
}

func (s *FakeSender) SendOTP(ctx context.Context, toEmail, code string, expiresMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentOTP{To: toEmail, Code: code})
	return nil
}

// LastCode returns the most recently delivered code, empty when none.
func (s *FakeSender) LastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return ""
	}
	return s.Sent[len(s.Sent)-1].Code
}

// Clock is a controllable time source for services that take a
// now func() time.Time.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("admin@hospital.local"))
	assert.True(t, IsValidEmail("a.b+c@example.co.in"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail(""))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("9876543210"))
	assert.False(t, IsValidPhone("98765"))
	assert.False(t, IsValidPhone("98765432101"))
	assert.False(t, IsValidPhone("98765abcde"))
}

func TestIsValidSessionToken(t *testing.T) {
	assert.True(t, IsValidSessionToken("2c3a4f90-8f7b-4a4e-9b61-1f2e3d4c5b6a"))
	assert.False(t, IsValidSessionToken("2c3a4f908f7b4a4e9b611f2e3d4c5b6a"))
	assert.False(t, IsValidSessionToken("../../etc/passwd"))
	assert.False(t, IsValidSessionToken(""))
}

func TestIsValidOTP(t *testing.T) {
	assert.True(t, IsValidOTP("123456"))
	assert.False(t, IsValidOTP("12345"))
	assert.False(t, IsValidOTP("1234567"))
	assert.False(t, IsValidOTP("12a456"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "admin@hospital.local", NormalizeEmail("  Admin@Hospital.LOCAL "))
}

func TestSanitizeForLogTrimsAndCaps(t *testing.T) {
	assert.Equal(t, "Mozilla/5.0", SanitizeForLog("  Mozilla/5.0\n", 100))
	long := strings.Repeat("x", 600)
	assert.Len(t, SanitizeForLog(long, 500), 500)
}

func TestExtractIPAddressPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"
	assert.Equal(t, "192.0.2.10", ExtractIPAddress(r))

	r.Header.Set("X-Real-Ip", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ExtractIPAddress(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.7")
	assert.Equal(t, "203.0.113.9", ExtractIPAddress(r))
}

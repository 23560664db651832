package util

import (
	"net/http"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)
	uuidRegex  = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	otpRegex   = regexp.MustCompile(`^[0-9]{6}$`)
)

// IsValidEmail reports whether s looks like a deliverable email address.
func IsValidEmail(s string) bool {
	return len(s) <= 254 && emailRegex.MatchString(s)
}

// IsValidPhone reports whether s is a 10-digit phone number.
func IsValidPhone(s string) bool {
	return phoneRegex.MatchString(s)
}

// IsValidSessionToken validates the UUID v4 shape of a session token
// before any storage lookup happens.
func IsValidSessionToken(s string) bool {
	return uuidRegex.MatchString(strings.ToLower(s))
}

// IsValidOTP reports whether s is a 6-digit numeric code.
func IsValidOTP(s string) bool {
	return otpRegex.MatchString(s)
}

// NormalizeEmail trims and lowercases an email identifier.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SanitizeForLog trims a value and caps its length so hostile
// user-agent strings cannot bloat audit rows.
func SanitizeForLog(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

// ExtractIPAddress pulls the client address out of proxy headers,
// falling back to the request's RemoteAddr.
func ExtractIPAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip != "" && len(ip) <= 45 {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-Ip")); real != "" && len(real) <= 45 {
		return real
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

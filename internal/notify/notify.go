package notify

import "context"

// Sender delivers one-time codes to a destination address. Delivery is
// hard-fail: callers roll back the issued code when Send returns an error.
type Sender interface {
	SendOTP(ctx context.Context, toEmail, code string, expiresMinutes int) error
}

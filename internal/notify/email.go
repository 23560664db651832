package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"hospital-admin/internal/config"
	"hospital-admin/internal/util"
)

// EmailSender sends transactional OTP mail through the MSG91 Email API v5.
type EmailSender struct {
	cfg    config.NotifyConfig
	client *http.Client
}

func NewEmailSender(cfg config.NotifyConfig) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type emailPayload struct {
	From    emailAddress   `json:"from"`
	To      []emailAddress `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"html"`
}

// SendOTP delivers the code as a short transactional HTML email.
func (s *EmailSender) SendOTP(ctx context.Context, toEmail, code string, expiresMinutes int) error {
	if s.cfg.AuthKey == "" {
		return fmt.Errorf("email sender: missing auth key")
	}
	if s.cfg.SenderEmail == "" {
		return fmt.Errorf("email sender: missing sender email")
	}

	payload := emailPayload{
		From:    emailAddress{Email: s.cfg.SenderEmail, Name: s.cfg.SenderName},
		To:      []emailAddress{{Email: toEmail}},
		Subject: "Your HospitalManage OTP",
		HTML:    otpBody(code, expiresMinutes),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("email sender: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email sender: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key "+s.cfg.AuthKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email sender: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		util.Warn("email provider rejected message",
			util.Int("status", resp.StatusCode),
			util.String("detail", util.SanitizeForLog(string(detail), 256)),
		)
		return fmt.Errorf("email sender: provider returned status %d", resp.StatusCode)
	}
	return nil
}

func otpBody(code string, expiresMinutes int) string {
	return fmt.Sprintf(`<div style="font-family: system-ui, -apple-system, Roboto, 'Segoe UI', 'Helvetica Neue', Arial; line-height:1.4; color:#111;">
  <h2 style="margin:0 0 8px 0">Your one-time code</h2>
  <p style="margin:0 0 12px 0">Use the code below to complete your login. This code will expire in %d minutes.</p>
  <div style="padding:12px 18px; display:inline-block; background:#f7f7f8; border-radius:6px; font-weight:700; font-size:20px; letter-spacing:4px;">%s</div>
  <p style="margin-top:16px;color:#666;font-size:13px">If you did not request this, please ignore this email.</p>
</div>`, expiresMinutes, code)
}

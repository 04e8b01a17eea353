// Package otpservice talks to the external email-delivery service that owns
// the OTP templates and the SMTP relay.
package otpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/neuroscan-api/internal/domain"
)

type sendRequest struct {
	Email        string `json:"email"`
	OTP          string `json:"otp"`
	TemplateType string `json:"templateType"`
}

type sendResponse struct {
	TestOTP string `json:"testOtp"`
}

// Client posts {email, otp, templateType} to the service. Only HTTP 200 counts
// as delivered.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

func (c *Client) SendOTP(ctx context.Context, email, code string, purpose domain.Purpose) error {
	body, err := json.Marshal(sendRequest{Email: email, OTP: code, TemplateType: string(purpose)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build otp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("otp service: %w", err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("otp service: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	// Test relays echo the code back instead of sending real mail.
	var out sendResponse
	if json.Unmarshal(raw, &out) == nil && out.TestOTP != "" {
		slog.Debug("otp service returned test code", "purpose", purpose, "test_otp", out.TestOTP)
	}
	return nil
}

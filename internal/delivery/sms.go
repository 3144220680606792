package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultSMSBaseURL = "https://www.smslocal.com/dev/bulkV2"
)

// SMSChannel sends codes through the SMS Local API (route=otp).
type SMSChannel struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSChannel returns a channel that uses the given API key and optional base URL and sender.
func NewSMSChannel(apiKey, baseURL, sender string) *SMSChannel {
	if baseURL == "" {
		baseURL = defaultSMSBaseURL
	}
	return &SMSChannel{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type smsRequest struct {
	Route     string `json:"route"`
	Numbers   string `json:"numbers"`
	Variables string `json:"variables"`
	Sender    string `json:"sender_id,omitempty"`
}

// Deliver posts the code to the phone number in identity. Non-digit characters are stripped
// from the number. The code is never logged.
func (c *SMSChannel) Deliver(ctx context.Context, identity, code string) error {
	if c.APIKey == "" {
		return sendFailed(fmt.Errorf("sms: API key not configured"))
	}
	phone := digitsOnly(identity)
	if phone == "" {
		return sendFailed(fmt.Errorf("sms: %q is not a phone number", identity))
	}
	raw, err := json.Marshal(smsRequest{
		Route:     "otp",
		Numbers:   phone,
		Variables: code,
		Sender:    c.Sender,
	})
	if err != nil {
		return sendFailed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return sendFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return sendFailed(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return sendFailed(fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b)))
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package delivery sends issued codes to the identity out of band (SMS, email, or the log in
// development). Failures are wrapped in ErrSendFailed so callers can tell them apart from
// verification errors.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrSendFailed wraps every delivery failure.
var ErrSendFailed = errors.New("delivery: send failed")

// Channel transmits a code to an identity.
type Channel interface {
	Deliver(ctx context.Context, identity, code string) error
}

// Channel names accepted by NewChannel.
const (
	ChannelLog   = "log"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Options configures NewChannel. Only the fields for the selected channel are read.
type Options struct {
	Name     string
	Validity time.Duration

	SMSAPIKey  string
	SMSBaseURL string
	SMSSender  string

	SMTP SMTPConfig

	Logger *slog.Logger
}

// NewChannel returns the channel named by opts.Name. An empty name selects the log channel.
func NewChannel(opts Options) (Channel, error) {
	switch opts.Name {
	case "", ChannelLog:
		return NewLogChannel(opts.Logger), nil
	case ChannelSMS:
		if opts.SMSAPIKey == "" {
			return nil, errors.New("delivery: sms channel requires an API key")
		}
		return NewSMSChannel(opts.SMSAPIKey, opts.SMSBaseURL, opts.SMSSender), nil
	case ChannelEmail:
		return NewEmailChannel(opts.SMTP, opts.Validity)
	default:
		return nil, fmt.Errorf("delivery: unknown channel %q", opts.Name)
	}
}

func sendFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrSendFailed, err)
}

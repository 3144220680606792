package delivery

import (
	"context"
	"log/slog"
)

// LogChannel writes the code to the logger instead of sending it. For local development only.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel returns a LogChannel. A nil logger uses slog.Default.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

// Deliver logs the code at warn level so it stands out in development output.
func (c *LogChannel) Deliver(ctx context.Context, identity, code string) error {
	c.logger.WarnContext(ctx, "DEV MODE ONLY: otp delivered to log", "identity", identity, "otp_code", code)
	return nil
}

package delivery

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig configures EmailChannel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailChannel sends codes as plain-text email over SMTP.
type EmailChannel struct {
	addr     string
	host     string
	from     string
	auth     smtp.Auth
	validity time.Duration
	timeout  time.Duration // one whole SMTP exchange, dial included

	// sendMail performs the SMTP exchange; replaced in tests.
	sendMail func(ctx context.Context, to string, msg []byte) error
}

// NewEmailChannel validates cfg and returns an SMTP-backed channel. validity is only used to
// word the message body.
func NewEmailChannel(cfg SMTPConfig, validity time.Duration) (*EmailChannel, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, errors.New("delivery: smtp host and port are required")
	}
	if cfg.From == "" {
		return nil, errors.New("delivery: smtp sender is required")
	}
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	c := &EmailChannel{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		from:     cfg.From,
		auth:     auth,
		validity: validity,
		timeout:  defaultTimeout,
	}
	c.sendMail = c.send
	return c, nil
}

// Deliver mails the code to identity. The exchange is abandoned when ctx is done or after the
// channel timeout, whichever comes first.
func (c *EmailChannel) Deliver(ctx context.Context, identity, code string) error {
	if err := ctx.Err(); err != nil {
		return sendFailed(err)
	}
	if !strings.Contains(identity, "@") {
		return sendFailed(fmt.Errorf("email: %q is not an email address", identity))
	}
	msg := buildEmail(c.from, identity, code, c.validity)
	if err := c.sendMail(ctx, identity, msg); err != nil {
		return sendFailed(err)
	}
	return nil
}

// send runs one SMTP transaction. It upgrades to TLS when the server offers STARTTLS and
// authenticates when credentials are set and the server offers AUTH.
func (c *EmailChannel) send(ctx context.Context, to string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		return fmt.Errorf("email: greeting: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
			return fmt.Errorf("email: starttls: %w", err)
		}
	}
	if c.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(c.auth); err != nil {
				return fmt.Errorf("email: auth: %w", err)
			}
		}
	}
	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("email: rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: end data: %w", err)
	}
	return client.Quit()
}

func buildEmail(from, to, code string, validity time.Duration) []byte {
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: Your one-time passcode",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	body := fmt.Sprintf("Your OTP code is: %s. Your code is valid for %s.", code, validityText(validity))
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

func validityText(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	s := int(d.Round(time.Second) / time.Second)
	if s == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", s)
}

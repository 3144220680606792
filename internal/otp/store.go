package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

const (
	// DefaultValidity is how long an issued code stays verifiable.
	DefaultValidity = 60 * time.Second
	// DefaultMaxAttempts is the number of wrong submissions a record tolerates.
	DefaultMaxAttempts = 10
)

// Config holds the store limits. Zero or negative values fall back to the defaults.
type Config struct {
	Validity    time.Duration
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.Validity <= 0 {
		c.Validity = DefaultValidity
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

type record struct {
	code     string
	issuedAt time.Time
	attempts int
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source. Used by tests to advance simulated time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowF = now
		}
	}
}

// WithGenerator replaces the code generator.
func WithGenerator(g Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.gen = g
		}
	}
}

// Store is an in-memory registry of pending codes, one per identity.
// A single mutex guards the map so every check-then-write sequence is atomic.
type Store struct {
	mu      sync.Mutex
	records map[string]*record

	// swept maps identities whose expired record was removed by Sweep to the sweep time, so
	// the next VerifyCode still reports ErrExpired. Sweep drops entries older than Validity.
	swept map[string]time.Time

	cfg  Config
	nowF func() time.Time
	gen  Generator
}

// NewStore returns an empty store using cfg limits.
func NewStore(cfg Config, opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*record),
		swept:   make(map[string]time.Time),
		cfg:     cfg.withDefaults(),
		nowF:    time.Now,
		gen:     RandomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective limits.
func (s *Store) Config() Config {
	return s.cfg
}

// IssueCode generates a new code for identity, replacing any pending one, and returns it.
// The caller delivers the code out of band.
func (s *Store) IssueCode(identity string) string {
	code := s.gen()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.swept, identity)
	s.records[identity] = &record{code: code, issuedAt: s.nowF(), attempts: 0}
	return code
}

// VerifyCode checks submitted against the pending code for identity. It returns nil on success
// and consumes the record. Checks run in a fixed order: missing record, expiry, exhausted
// attempts, then the comparison. A stale or exhausted record is evicted without ever reaching the
// comparison. A wrong guess costs one attempt and reports ErrMismatch. Once MaxAttempts wrong
// guesses are recorded, the next submission, even the correct code, evicts the record and reports
// ErrAttemptsExhausted.
func (s *Store) VerifyCode(identity, submitted string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[identity]
	if !ok {
		if _, gone := s.swept[identity]; gone {
			delete(s.swept, identity)
			return ErrExpired
		}
		return ErrNotFound
	}
	if s.nowF().Sub(r.issuedAt) > s.cfg.Validity {
		delete(s.records, identity)
		return ErrExpired
	}
	if r.attempts >= s.cfg.MaxAttempts {
		delete(s.records, identity)
		return ErrAttemptsExhausted
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(r.code)) == 1 {
		delete(s.records, identity)
		return nil
	}
	r.attempts++
	return ErrMismatch
}

// Len returns the number of pending records, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Sweep evicts every record older than the validity window and returns how many were removed.
// Evicted identities keep a tombstone for one more validity window, during which VerifyCode
// still reports ErrExpired. After that the identity reports ErrNotFound and holds no memory.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	for id, at := range s.swept {
		if now.Sub(at) > s.cfg.Validity {
			delete(s.swept, id)
		}
	}
	n := 0
	for id, r := range s.records {
		if now.Sub(r.issuedAt) > s.cfg.Validity {
			delete(s.records, id)
			s.swept[id] = now
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done. It returns immediately if interval
// is not positive.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(evicted int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

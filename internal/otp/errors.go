package otp

import "errors"

// Kind classifies a failed verification.
type Kind int

const (
	// KindNotFound means no pending code exists for the identity.
	KindNotFound Kind = iota + 1
	// KindMismatch means the submitted code did not match a live record.
	KindMismatch
	// KindAttemptsExhausted means the record ran out of attempts and was evicted.
	KindAttemptsExhausted
	// KindExpired means the record outlived its validity and was evicted.
	KindExpired
)

// String returns the kind name used in logs and metric attributes.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMismatch:
		return "mismatch"
	case KindAttemptsExhausted:
		return "attempts_exhausted"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerifyError is returned by Store.VerifyCode for every expected failure.
type VerifyError struct {
	Kind Kind
}

func (e *VerifyError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return "otp: not found"
	case KindMismatch:
		return "otp: mismatch"
	case KindAttemptsExhausted:
		return "otp: maximum number of attempts reached"
	case KindExpired:
		return "otp: expired"
	default:
		return "otp: verification failed"
	}
}

// Is reports whether target is a *VerifyError of the same kind, so the sentinels below match
// with errors.Is.
func (e *VerifyError) Is(target error) bool {
	t, ok := target.(*VerifyError)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound          = &VerifyError{Kind: KindNotFound}
	ErrMismatch          = &VerifyError{Kind: KindMismatch}
	ErrAttemptsExhausted = &VerifyError{Kind: KindAttemptsExhausted}
	ErrExpired           = &VerifyError{Kind: KindExpired}
)

// KindOf returns the Kind carried by err, or 0 if err is not a *VerifyError.
func KindOf(err error) Kind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}

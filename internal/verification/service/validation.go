package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"otp-verification-service/internal/otp"
)

// IdentityKind selects how identities are validated and normalized.
type IdentityKind int

const (
	// IdentityEmail accepts email addresses; they are lower-cased before use.
	IdentityEmail IdentityKind = iota
	// IdentityPhone accepts E.164 phone numbers (e.g. +6591234567).
	IdentityPhone
)

// Field names carried by ValidationError.
const (
	FieldIdentity = "identity"
	FieldCode     = "code"
)

// Validation messages shown to the end user.
const (
	MsgEmailRequired = "Email is required."
	MsgEmailInvalid  = "Invalid email format."
	MsgEmailDomain   = "Invalid email domain."
	MsgPhoneRequired = "Phone number is required."
	MsgPhoneInvalid  = "Invalid phone number format."
	MsgCodeRequired  = "OTP is required."
	MsgCodeFormat    = "OTP must be a 6-digit number."
)

// ValidationError reports a rejected input before the store is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Field + ": " + e.Message
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// codeTag is the validator tag for a well-formed code.
const codeTag = "otpcode"

type inputValidator struct {
	validate *validator.Validate
	kind     IdentityKind
	domains  map[string]struct{}
}

func newInputValidator(kind IdentityKind, allowedDomains []string) (*inputValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerCodeRule(v, codeTag); err != nil {
		return nil, err
	}
	var domains map[string]struct{}
	if len(allowedDomains) > 0 {
		domains = make(map[string]struct{}, len(allowedDomains))
		for _, d := range allowedDomains {
			domains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
	}
	return &inputValidator{validate: v, kind: kind, domains: domains}, nil
}

func registerCodeRule(v *validator.Validate, tag string) error {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return otp.IsWellFormed(fl.Field().String())
	})
	if err != nil {
		return fmt.Errorf("verification: register %q validation: %w", tag, err)
	}
	return nil
}

// identity normalizes and validates raw, returning the key used in the store.
func (iv *inputValidator) identity(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if iv.kind == IdentityPhone {
		if id == "" {
			return "", &ValidationError{Field: FieldIdentity, Message: MsgPhoneRequired}
		}
		if err := iv.validate.Var(id, "e164"); err != nil {
			return "", &ValidationError{Field: FieldIdentity, Message: MsgPhoneInvalid}
		}
		return id, nil
	}

	id = strings.ToLower(id)
	if id == "" {
		return "", &ValidationError{Field: FieldIdentity, Message: MsgEmailRequired}
	}
	if err := iv.validate.Var(id, "email"); err != nil {
		return "", &ValidationError{Field: FieldIdentity, Message: MsgEmailInvalid}
	}
	if iv.domains != nil {
		domain := id[strings.LastIndex(id, "@")+1:]
		if _, ok := iv.domains[domain]; !ok {
			return "", &ValidationError{Field: FieldIdentity, Message: MsgEmailDomain}
		}
	}
	return id, nil
}

// code validates a submitted code's format.
func (iv *inputValidator) code(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", &ValidationError{Field: FieldCode, Message: MsgCodeRequired}
	}
	if err := iv.validate.Var(code, codeTag); err != nil {
		return "", &ValidationError{Field: FieldCode, Message: MsgCodeFormat}
	}
	return code, nil
}

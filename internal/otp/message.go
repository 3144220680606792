package otp

// Messages shown to the end user. Callers must render these verbatim.
const (
	MsgInvalid           = "Invalid OTP. Please try again."
	MsgAttemptsExhausted = "Maximum number of attempts reached. Please try again later."
	MsgExpired           = "OTP has expired. Please request a new one."
	MsgSent              = "OTP has been sent successfully."
	MsgValid             = "OTP is valid!"
	MsgSendFailed        = "Failed to send OTP. Please try again later."
)

// UserMessage maps a VerifyCode error to its user-facing message. NotFound and Mismatch share a
// message so a caller cannot tell whether a code was ever issued. Errors that are not a
// *VerifyError map to MsgInvalid; a nil error maps to MsgValid.
func UserMessage(err error) string {
	if err == nil {
		return MsgValid
	}
	switch KindOf(err) {
	case KindAttemptsExhausted:
		return MsgAttemptsExhausted
	case KindExpired:
		return MsgExpired
	default:
		return MsgInvalid
	}
}

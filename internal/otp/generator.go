package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeDigits is the fixed width of every issued code.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// Generator returns a CodeDigits-wide numeric string.
type Generator func() string

// RandomCode returns a code drawn uniformly from 000000-999999 using crypto/rand.
// It panics only if the system entropy source fails.
func RandomCode() string {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		panic(fmt.Sprintf("otp: read random: %v", err))
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64())
}

// IsWellFormed reports whether code is exactly CodeDigits ASCII digits.
func IsWellFormed(code string) bool {
	if len(code) != CodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

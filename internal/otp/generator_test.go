package otp

import "testing"

func TestRandomCode_SixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := RandomCode()
		if !IsWellFormed(code) {
			t.Fatalf("RandomCode = %q, want 6 digits", code)
		}
	}
}

func TestRandomCode_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[RandomCode()] = true
	}
	// 100 draws from a million values; a handful of collisions would still be plausible,
	// a near-constant generator would not.
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes in 100 draws", len(seen))
	}
}

func TestIsWellFormed(t *testing.T) {
	cases := map[string]bool{
		"000000":  true,
		"123456":  true,
		"12345":   false,
		"1234567": false,
		"12345a":  false,
		"":        false,
		"12 456":  false,
	}
	for in, want := range cases {
		if got := IsWellFormed(in); got != want {
			t.Errorf("IsWellFormed(%q) = %v, want %v", in, got, want)
		}
	}
}

// Package otp issues and verifies short-lived numeric one-time passcodes keyed by identity.
//
// Store keeps at most one pending code per identity in memory. Expiry is evaluated lazily when a
// code is verified; Sweep and RunSweeper exist only to reclaim memory.
package otp

// errors.go: Error taxonomy for the vault pipeline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"errors"
	"fmt"
)

// Public standard errors. Every error returned by this package wraps exactly one
// of these so callers can classify failures with errors.Is.
var (
	// ErrIO is returned when an input or output file cannot be read or written.
	ErrIO = errors.New("vault: i/o error")

	// ErrCompression is returned when a compressed frame is corrupt or exceeds the size limit.
	ErrCompression = errors.New("vault: compression error")

	// ErrCapacityExceeded is returned when the container does not fit into the carrier.
	ErrCapacityExceeded = errors.New("vault: carrier capacity exceeded")

	// ErrCarrier is returned for unsupported or wrong-dimension carrier images.
	ErrCarrier = errors.New("vault: invalid carrier image")

	// ErrFormat is returned when a container or embedded stream is truncated or malformed.
	ErrFormat = errors.New("vault: malformed container")

	// ErrVersion is returned for unknown container versions. It wraps ErrFormat,
	// so an unknown version is also reported as a format failure.
	ErrVersion = fmt.Errorf("%w: unsupported container version", ErrFormat)

	// ErrAuthentication is returned when the AEAD tag does not verify. A wrong
	// password and tampered data are deliberately indistinguishable.
	ErrAuthentication = errors.New("vault: authentication failed")

	// ErrInvalidInput is returned for caller mistakes: empty passwords, bad
	// configuration values, wrong key or salt sizes.
	ErrInvalidInput = errors.New("vault: invalid input")

	// ErrRandom is returned when the system random source fails.
	ErrRandom = errors.New("vault: random generation error")
)

// Error codes for rich error handling
const (
	ErrCodeIO             = "VAULT_IO"
	ErrCodeCompression    = "VAULT_COMPRESSION"
	ErrCodeCapacity       = "VAULT_CAPACITY_EXCEEDED"
	ErrCodeCarrier        = "VAULT_CARRIER"
	ErrCodeFormat         = "VAULT_FORMAT"
	ErrCodeVersion        = "VAULT_VERSION"
	ErrCodeAuthentication = "VAULT_AUTH_FAILED"
	ErrCodeInvalidInput   = "VAULT_INVALID_INPUT"
	ErrCodeInvalidKey     = "VAULT_INVALID_KEY"
	ErrCodeNonceGen       = "VAULT_NONCE_GEN"
	ErrCodeSaltGen        = "VAULT_SALT_GEN"
	ErrCodeCipherInit     = "VAULT_CIPHER_INIT"
)

// CapacityError reports how many bytes an operation needed against what the
// carrier can hold. It unwraps to ErrCapacityExceeded.
type CapacityError struct {
	Required  int // bytes needed, including the length prefix
	Available int // bytes the carrier can hold
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: need %d bytes, carrier holds %d", ErrCapacityExceeded, e.Required, e.Available)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// IsCapacityError checks if an error is a capacity error and returns it.
func IsCapacityError(err error) (*CapacityError, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

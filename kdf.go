// kdf.go: Password-based key derivation using Argon2id.
//
// The tuning parameters are part of the container format: they are not stored
// per file, so changing them requires a new container version.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/argon2"
)

// Fixed Argon2id parameters shared by every supported container version.
const (
	// KDFTime is the number of Argon2id iterations.
	KDFTime = 2

	// KDFMemory is the Argon2id memory cost in MB.
	KDFMemory = 64

	// KDFThreads is the number of Argon2id lanes.
	KDFThreads = 4

	// KeySize is the derived key length in bytes (256-bit).
	KeySize = 32

	// SaltSize is the length of the random per-container salt.
	SaltSize = 16
)

// KDFParams describes an Argon2id configuration.
//
// Only DefaultKDFParams is used to derive container keys. The type exists so
// the active parameters can be reported (for instance by the CLI) without
// duplicating the constants.
type KDFParams struct {
	// Time is the number of iterations for Argon2id.
	Time uint32 `json:"time"`

	// Memory is the memory usage in MB for Argon2id.
	Memory uint32 `json:"memory"`

	// Threads is the number of lanes for Argon2id.
	Threads uint8 `json:"threads"`

	// KeyLen is the derived key length in bytes.
	KeyLen uint32 `json:"key_len"`
}

// DefaultKDFParams returns the Argon2id parameters of the container format.
//
// Parameters: Time=2, Memory=64MB, Threads=4, KeyLen=32
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:    KDFTime,
		Memory:  KDFMemory,
		Threads: KDFThreads,
		KeyLen:  KeySize,
	}
}

// DeriveKey derives a 32-byte key from a password and a 16-byte salt using Argon2id.
//
// The derivation is pure: identical (password, salt) pairs always produce the
// same key. There is no "wrong password" signal here; a wrong password simply
// yields a different key and is detected later by AEAD tag verification.
// Keys are never cached, each call runs the full memory-hard derivation.
//
// Parameters:
//   - password: The password to derive the key from (cannot be empty)
//   - salt: The container salt (must be exactly SaltSize bytes)
//
// Returns:
//   - The derived key as a byte slice of KeySize bytes
//   - An error wrapping ErrInvalidInput if the inputs are unusable
//
// Example:
//
//	salt, _ := vault.GenerateSalt()
//	key, err := vault.DeriveKey([]byte("Tr0ub4dor&3"), salt)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer vault.Zeroize(key)
func DeriveKey(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		richErr := goerrors.New(ErrCodeInvalidInput, "password cannot be empty")
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	if len(salt) != SaltSize {
		richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("salt must be %d bytes (got %d)", SaltSize, len(salt)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}

	p := DefaultKDFParams()
	key := argon2.IDKey(password, salt, p.Time, p.Memory*1024, p.Threads, p.KeyLen)
	return key, nil
}

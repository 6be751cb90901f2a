// keyutils.go: Random salt/nonce generation and key material hygiene.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"crypto/rand"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// randReader is the entropy source for salts and nonces. Tests replace it to
// exercise failure paths.
var randReader io.Reader = rand.Reader

// Zeroize securely wipes a byte slice from memory.
//
// The engine calls it on every derived key and decrypted intermediate once
// the operation no longer needs it.
//
// Example:
//
//	key, _ := vault.DeriveKey(password, salt)
//	defer vault.Zeroize(key)
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateSalt returns a fresh random salt of SaltSize bytes.
//
// Every encryption draws a new salt, so a derived key is never reused across
// two containers even when the password is.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeSaltGen, "failed to generate salt")
		return nil, fmt.Errorf("%w: %w", ErrRandom, richErr)
	}
	return salt, nil
}

// GenerateNonce generates a cryptographically secure random nonce of the given size.
//
// Parameters:
//   - size: The desired size of the nonce in bytes (must be positive)
//
// Returns:
//   - A byte slice containing the random nonce
//   - An error if nonce generation fails
//
// Example:
//
//	nonce, err := vault.GenerateNonce(vault.NonceSize)
//	if err != nil {
//		log.Fatal(err)
//	}
func GenerateNonce(size int) ([]byte, error) {
	if size <= 0 {
		richErr := goerrors.New(ErrCodeInvalidInput, "nonce size must be positive")
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	nonce := make([]byte, size)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeNonceGen, "failed to generate nonce")
		return nil, fmt.Errorf("%w: %w", ErrRandom, richErr)
	}
	return nonce, nil
}

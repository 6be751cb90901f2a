// aead.go: Authenticated encryption with an explicit nonce and detached tag.
//
// Two suites are supported, AES-256-GCM and ChaCha20-Poly1305. Both use a
// 12-byte nonce and a 16-byte tag, so they share one container layout.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// NonceSize is the AEAD nonce length shared by all suites.
	NonceSize = 12

	// TagSize is the AEAD authentication tag length shared by all suites.
	TagSize = 16
)

// CipherSuite identifies an AEAD construction.
type CipherSuite uint8

const (
	// SuiteAES256GCM is AES-256 in Galois/Counter Mode.
	SuiteAES256GCM CipherSuite = iota + 1

	// SuiteChaCha20Poly1305 is the IETF ChaCha20-Poly1305 construction.
	SuiteChaCha20Poly1305
)

// String returns the canonical suite name.
func (s CipherSuite) String() string {
	switch s {
	case SuiteAES256GCM:
		return "AES-256-GCM"
	case SuiteChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return fmt.Sprintf("CipherSuite(%d)", uint8(s))
	}
}

// ParseCipherSuite maps a user-facing name ("aes", "aes-256-gcm", "chacha20",
// "chacha20-poly1305") to a suite.
func ParseCipherSuite(name string) (CipherSuite, error) {
	switch name {
	case "aes", "aes-gcm", "aes-256-gcm", "AES-256-GCM":
		return SuiteAES256GCM, nil
	case "chacha", "chacha20", "chacha20-poly1305", "ChaCha20-Poly1305":
		return SuiteChaCha20Poly1305, nil
	}
	richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("unknown cipher suite %q", name))
	return 0, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
}

// Sealed is the output of Encrypt.
type Sealed struct {
	Nonce      []byte // NonceSize bytes, freshly drawn for this call
	Ciphertext []byte // same length as the plaintext
	Tag        []byte // TagSize bytes
}

// newAEAD builds the AEAD for a suite. Instances are never cached: every
// container derives its own key, so a cache would only retain key material.
func newAEAD(suite CipherSuite, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		richErr := goerrors.New(ErrCodeInvalidKey, fmt.Sprintf("invalid key size: must be %d bytes (got %d)", KeySize, len(key)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}

	switch suite {
	case SuiteAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			richErr := goerrors.Wrap(err, ErrCodeCipherInit, "failed to create AES cipher")
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			richErr := goerrors.Wrap(err, ErrCodeCipherInit, "failed to create GCM cipher")
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
		}
		return gcm, nil
	case SuiteChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			richErr := goerrors.Wrap(err, ErrCodeCipherInit, "failed to create ChaCha20-Poly1305 cipher")
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
		}
		return aead, nil
	default:
		richErr := goerrors.New(ErrCodeCipherInit, fmt.Sprintf("unsupported cipher suite %d", uint8(suite)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
}

// Encrypt seals plaintext under key with associated data.
//
// The nonce is generated inside this function from crypto/rand on every call;
// callers cannot supply one, so nonce reuse under a key cannot happen through
// this API. The tag is returned detached from the ciphertext.
//
// Parameters:
//   - suite: The AEAD construction to use
//   - key: The 32-byte key (see DeriveKey)
//   - plaintext: The data to encrypt (can be empty)
//   - aad: Additional Authenticated Data (authenticated but not encrypted, can be nil)
//
// Returns:
//   - The nonce, ciphertext and tag
//   - An error if the key is invalid or nonce generation fails
//
// Example:
//
//	sealed, err := vault.Encrypt(vault.SuiteAES256GCM, key, data, header)
//	if err != nil {
//		log.Fatal(err)
//	}
func Encrypt(suite CipherSuite, key, plaintext, aad []byte) (*Sealed, error) {
	aead, err := newAEAD(suite, key)
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateNonce(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	out := aead.Seal(nil, nonce, plaintext, aad) // #nosec G407 -- nonce is generated from crypto/rand, not hardcoded
	split := len(out) - aead.Overhead()
	return &Sealed{
		Nonce:      nonce,
		Ciphertext: out[:split:split],
		Tag:        out[split:],
	}, nil
}

// Decrypt verifies the tag and returns the plaintext.
//
// Any verification failure, whether caused by a wrong key, a modified
// ciphertext, nonce, tag or associated data, is reported as ErrAuthentication
// with no further detail.
//
// Parameters:
//   - suite: The AEAD construction used at encryption time
//   - key: The 32-byte key
//   - nonce: The NonceSize-byte nonce stored alongside the ciphertext
//   - ciphertext: The encrypted data
//   - tag: The TagSize-byte authentication tag
//   - aad: Additional Authenticated Data (must match encryption AAD)
//
// Returns:
//   - The decrypted plaintext
//   - An error wrapping ErrAuthentication if verification fails
func Decrypt(suite CipherSuite, key, nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	aead, err := newAEAD(suite, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() || len(tag) != aead.Overhead() {
		richErr := goerrors.New(ErrCodeAuthentication, "nonce or tag has wrong size")
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, richErr)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeAuthentication, "decryption failed (wrong password or tampered data)")
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, richErr)
	}
	return plaintext, nil
}

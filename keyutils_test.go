// keyutils_test.go: Test cases for salt/nonce generation and zeroization.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingReader always fails, simulating an exhausted entropy source.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

// withRandReader swaps the package entropy source for the duration of a test.
func withRandReader(t *testing.T, r io.Reader) {
	t.Helper()
	orig := randReader
	randReader = r
	t.Cleanup(func() { randReader = orig })
}

func TestGenerateSalt(t *testing.T) {
	s1, err := GenerateSalt()
	require.NoError(t, err)
	s2, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, s1, SaltSize)
	assert.False(t, bytes.Equal(s1, s2), "two salts should differ")
}

func TestGenerateNonce_ValidAndInvalid(t *testing.T) {
	nonce, err := GenerateNonce(NonceSize)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)

	_, err = GenerateNonce(0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = GenerateNonce(-5)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRandomFailure(t *testing.T) {
	withRandReader(t, failingReader{})

	_, err := GenerateSalt()
	assert.ErrorIs(t, err, ErrRandom)

	_, err = GenerateNonce(NonceSize)
	assert.ErrorIs(t, err, ErrRandom)
}

func TestZeroize(t *testing.T) {
	data := []byte("sensitive key material")
	Zeroize(data)
	assert.Equal(t, make([]byte, len(data)), data)

	// Must not panic on empty input
	Zeroize(nil)
	Zeroize([]byte{})
}

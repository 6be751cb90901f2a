// kdf_test.go: Test cases for key derivation utilities.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vault "github.com/agilira/aethervault"
)

var fixedSalt = []byte("0123456789abcdef")

// TestDeriveKey_Valid checks length and non-triviality of the derived key
func TestDeriveKey_Valid(t *testing.T) {
	key, err := vault.DeriveKey([]byte("Tr0ub4dor&3"), fixedSalt)
	require.NoError(t, err)
	defer vault.Zeroize(key)

	assert.Len(t, key, vault.KeySize)
	assert.NotEqual(t, make([]byte, vault.KeySize), key, "derived key should not be all zeros")
}

// TestDeriveKey_Deterministic checks that identical inputs give identical keys
func TestDeriveKey_Deterministic(t *testing.T) {
	k1, err := vault.DeriveKey([]byte("correct horse"), fixedSalt)
	require.NoError(t, err)
	k2, err := vault.DeriveKey([]byte("correct horse"), fixedSalt)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(k1, k2))
}

// TestDeriveKey_DifferentInputs checks that salt and password both influence the key
func TestDeriveKey_DifferentInputs(t *testing.T) {
	base, err := vault.DeriveKey([]byte("password"), fixedSalt)
	require.NoError(t, err)

	otherSalt := append([]byte(nil), fixedSalt...)
	otherSalt[0] ^= 1
	k1, err := vault.DeriveKey([]byte("password"), otherSalt)
	require.NoError(t, err)
	assert.NotEqual(t, base, k1, "different salts must give different keys")

	k2, err := vault.DeriveKey([]byte("passwore"), fixedSalt)
	require.NoError(t, err)
	assert.NotEqual(t, base, k2, "different passwords must give different keys")
}

// TestDeriveKey_InvalidInput checks rejected arguments
func TestDeriveKey_InvalidInput(t *testing.T) {
	testCases := []struct {
		name     string
		password []byte
		salt     []byte
	}{
		{"NilPassword", nil, fixedSalt},
		{"EmptyPassword", []byte{}, fixedSalt},
		{"NilSalt", []byte("pw"), nil},
		{"ShortSalt", []byte("pw"), []byte("short")},
		{"LongSalt", []byte("pw"), make([]byte, vault.SaltSize+1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := vault.DeriveKey(tc.password, tc.salt)
			assert.ErrorIs(t, err, vault.ErrInvalidInput)
			assert.Nil(t, key)
		})
	}
}

// TestDefaultKDFParams pins the parameters that are part of the container format
func TestDefaultKDFParams(t *testing.T) {
	p := vault.DefaultKDFParams()
	assert.Equal(t, uint32(2), p.Time)
	assert.Equal(t, uint32(64), p.Memory)
	assert.Equal(t, uint8(4), p.Threads)
	assert.Equal(t, uint32(32), p.KeyLen)
}

func BenchmarkDeriveKey(b *testing.B) {
	pw := []byte("benchmark password")
	for i := 0; i < b.N; i++ {
		key, err := vault.DeriveKey(pw, fixedSalt)
		if err != nil {
			b.Fatal(err)
		}
		vault.Zeroize(key)
	}
}

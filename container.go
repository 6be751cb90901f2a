// container.go: Versioned binary container for salt, nonce, tag and ciphertext.
//
// Layout (big-endian):
//
//	version(1) | salt(16) | nonce(12) | tag(16) | ciphertextLength(4) | ciphertext
//
// The version byte doubles as the format marker. It is a closed set: each
// known value has exactly one handler and every other value is rejected,
// never parsed on a best-effort basis.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"encoding/binary"
	"fmt"
	"math"

	goerrors "github.com/agilira/go-errors"
)

// Version identifies a container layout and the AEAD suite it was sealed with.
type Version uint8

const (
	// VersionAESGCM containers are sealed with AES-256-GCM.
	VersionAESGCM Version = 0x01

	// VersionChaCha20 containers are sealed with ChaCha20-Poly1305.
	VersionChaCha20 Version = 0x02
)

const (
	// ContainerHeaderSize is the size of the fixed header preceding the ciphertext.
	ContainerHeaderSize = 1 + SaltSize + NonceSize + TagSize + 4

	// MaxCiphertextSize is the largest ciphertext the length field can describe.
	MaxCiphertextSize = math.MaxUint32

	// associatedDataSize is version + salt + ciphertextLength.
	associatedDataSize = 1 + SaltSize + 4
)

// Suite returns the cipher suite bound to the version, or an error wrapping
// ErrVersion for any value outside the supported set.
func (v Version) Suite() (CipherSuite, error) {
	switch v {
	case VersionAESGCM:
		return SuiteAES256GCM, nil
	case VersionChaCha20:
		return SuiteChaCha20Poly1305, nil
	default:
		richErr := goerrors.New(ErrCodeVersion, fmt.Sprintf("unknown container version 0x%02x", uint8(v)))
		return 0, fmt.Errorf("%w: %w", ErrVersion, richErr)
	}
}

// VersionForSuite returns the container version that seals with suite.
func VersionForSuite(suite CipherSuite) (Version, error) {
	switch suite {
	case SuiteAES256GCM:
		return VersionAESGCM, nil
	case SuiteChaCha20Poly1305:
		return VersionChaCha20, nil
	default:
		richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("no container version for %s", suite))
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
}

// Container is the parsed form of a serialized container.
type Container struct {
	Version    Version
	Salt       []byte
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// ContainerSize returns the serialized size of a container holding
// ciphertextLen bytes of ciphertext.
func ContainerSize(ciphertextLen int) int {
	return ContainerHeaderSize + ciphertextLen
}

// associatedData returns the header fields authenticated by the AEAD: the
// version, the salt and the ciphertext length. The nonce and tag are bound by
// the AEAD itself.
func associatedData(version Version, salt []byte, ciphertextLen int) []byte {
	ad := make([]byte, associatedDataSize)
	ad[0] = byte(version)
	copy(ad[1:1+SaltSize], salt)
	binary.BigEndian.PutUint32(ad[1+SaltSize:], uint32(ciphertextLen)) // #nosec G115 -- bounded by MaxCiphertextSize in callers
	return ad
}

// AssociatedData returns the authenticated header bytes of the container.
func (c *Container) AssociatedData() []byte {
	return associatedData(c.Version, c.Salt, len(c.Ciphertext))
}

// Size returns the serialized size of the container.
func (c *Container) Size() int {
	return ContainerSize(len(c.Ciphertext))
}

// Serialize encodes the container fields into the fixed-header layout.
//
// Field sizes are validated; an unknown version is rejected with ErrVersion
// so this package never writes a container it could not read back.
func Serialize(version Version, salt, nonce, tag, ciphertext []byte) ([]byte, error) {
	if _, err := version.Suite(); err != nil {
		return nil, err
	}
	if len(salt) != SaltSize || len(nonce) != NonceSize || len(tag) != TagSize {
		richErr := goerrors.New(ErrCodeInvalidInput,
			fmt.Sprintf("field sizes salt=%d nonce=%d tag=%d do not match the layout", len(salt), len(nonce), len(tag)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	if uint64(len(ciphertext)) > MaxCiphertextSize {
		richErr := goerrors.New(ErrCodeInvalidInput, "ciphertext too large for the length field")
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}

	buf := make([]byte, ContainerSize(len(ciphertext)))
	off := 0
	buf[off] = byte(version)
	off++
	off += copy(buf[off:], salt)
	off += copy(buf[off:], nonce)
	off += copy(buf[off:], tag)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(ciphertext))) // #nosec G115 -- checked against MaxCiphertextSize above
	off += 4
	copy(buf[off:], ciphertext)
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Container) MarshalBinary() ([]byte, error) {
	return Serialize(c.Version, c.Salt, c.Nonce, c.Tag, c.Ciphertext)
}

// Parse decodes a serialized container.
//
// The version is checked first: unknown versions fail with ErrVersion before
// any other field is interpreted. A short header, or a total length that does
// not equal ContainerHeaderSize+ciphertextLength, fails with ErrFormat.
// The returned container owns copies of its fields.
func Parse(data []byte) (*Container, error) {
	if len(data) == 0 {
		richErr := goerrors.New(ErrCodeFormat, "empty container")
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}

	version := Version(data[0])
	if _, err := version.Suite(); err != nil {
		return nil, err
	}

	if len(data) < ContainerHeaderSize {
		richErr := goerrors.New(ErrCodeFormat, fmt.Sprintf("truncated header: %d of %d bytes", len(data), ContainerHeaderSize))
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}

	off := 1
	salt := data[off : off+SaltSize]
	off += SaltSize
	nonce := data[off : off+NonceSize]
	off += NonceSize
	tag := data[off : off+TagSize]
	off += TagSize
	ctLen := uint64(binary.BigEndian.Uint32(data[off:]))
	off += 4

	if uint64(len(data)-off) != ctLen {
		richErr := goerrors.New(ErrCodeFormat,
			fmt.Sprintf("ciphertext length field says %d bytes, container carries %d", ctLen, len(data)-off))
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}

	return &Container{
		Version:    version,
		Salt:       append([]byte(nil), salt...),
		Nonce:      append([]byte(nil), nonce...),
		Tag:        append([]byte(nil), tag...),
		Ciphertext: append([]byte{}, data[off:]...),
	}, nil
}

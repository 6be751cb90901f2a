// vault_test.go: End-to-end tests for the encode/decode pipeline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPassword = []byte("Tr0ub4dor&3")

// newTestEngine returns an engine with a silent logger. mutate may adjust the
// default configuration before validation.
func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Logger = logger
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

// reembed replaces the container hidden in c with container.
func reembed(t *testing.T, c *Carrier, container []byte) *Carrier {
	t.Helper()
	out, err := Embed(c, container)
	require.NoError(t, err)
	return out
}

func TestEngine_HelloWorld(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	img, err := e.Encode(ctx, Payload{Data: []byte("hello world")}, testPassword, nil)
	require.NoError(t, err)
	require.NoError(t, ValidateCarrier(img))

	payload, err := e.Decode(ctx, img, testPassword)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), payload.Data)
	assert.Empty(t, payload.Extension)

	_, err = e.Decode(ctx, img, []byte("wrong"))
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestEngine_RoundTripBothSuites(t *testing.T) {
	random := make([]byte, 50_000)
	_, err := rand.Read(random)
	require.NoError(t, err)

	for _, suite := range allSuites {
		t.Run(suite.String(), func(t *testing.T) {
			e := newTestEngine(t, func(c *Config) { c.Suite = suite })
			ctx := context.Background()

			for _, p := range []Payload{
				{Data: []byte{}},
				{Data: random, Extension: ".bin"},
				{Data: []byte("%PDF-1.7 ..."), Extension: ".pdf"},
			} {
				img, err := e.Encode(ctx, p, testPassword, nil)
				require.NoError(t, err)

				stream, err := Extract(img)
				require.NoError(t, err)
				want, _ := VersionForSuite(suite)
				assert.Equal(t, byte(want), stream[0])

				got, err := e.Decode(ctx, img, testPassword)
				require.NoError(t, err)
				assert.Equal(t, len(p.Data), len(got.Data))
				assert.Equal(t, p.Data, got.Data)
				assert.Equal(t, p.Extension, got.Extension)
			}
		})
	}
}

func TestEngine_DecodeAcceptsEveryVersion(t *testing.T) {
	aes := newTestEngine(t, nil)
	chacha := newTestEngine(t, func(c *Config) { c.Suite = SuiteChaCha20Poly1305 })
	ctx := context.Background()

	img, err := chacha.Encode(ctx, Payload{Data: []byte("cross engine")}, testPassword, nil)
	require.NoError(t, err)

	got, err := aes.Decode(ctx, img, testPassword)
	require.NoError(t, err)
	assert.Equal(t, []byte("cross engine"), got.Data)
}

func TestEngine_FreshSaltPerEncode(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	a, err := e.Encode(ctx, Payload{Data: []byte("same")}, testPassword, nil)
	require.NoError(t, err)
	b, err := e.Encode(ctx, Payload{Data: []byte("same")}, testPassword, nil)
	require.NoError(t, err)

	sa, err := Extract(a)
	require.NoError(t, err)
	sb, err := Extract(b)
	require.NoError(t, err)
	ca, err := Parse(sa)
	require.NoError(t, err)
	cb, err := Parse(sb)
	require.NoError(t, err)

	assert.NotEqual(t, ca.Salt, cb.Salt)
	assert.NotEqual(t, ca.Nonce, cb.Nonce)
}

func TestEngine_SourceCarrier(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	source := NewGradientCarrier(3)
	before := append([]byte(nil), source.Pix...)

	img, err := e.Encode(ctx, Payload{Data: []byte("on a photo")}, testPassword, source)
	require.NoError(t, err)
	assert.Equal(t, before, source.Pix, "source carrier must not be modified")

	got, err := e.Decode(ctx, img, testPassword)
	require.NoError(t, err)
	assert.Equal(t, []byte("on a photo"), got.Data)

	_, err = e.Encode(ctx, Payload{Data: []byte("x")}, testPassword, newCarrier(1920, 1080))
	assert.ErrorIs(t, err, ErrCarrier)
}

func TestEngine_Tamper(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	img, err := e.Encode(ctx, Payload{Data: []byte("tamper evident payload")}, testPassword, nil)
	require.NoError(t, err)
	container, err := Extract(img)
	require.NoError(t, err)

	// Stream bit positions: prefix, version, salt, nonce, tag, length, ciphertext
	bits := []int{
		5,
		32 + 7,
		32 + 8*1 + 3,
		32 + 8*17 + 1,
		32 + 8*29 + 6,
		32 + 8*48 + 7,
		32 + 8*49,
		32 + 8*(len(container)-1) + 7,
	}
	for _, bit := range bits {
		tampered := img.Clone()
		tampered.Pix[bit] ^= 1

		_, err := e.Decode(ctx, tampered, testPassword)
		require.Error(t, err, "bit %d", bit)
		assert.True(t, errors.Is(err, ErrAuthentication) || errors.Is(err, ErrFormat),
			"bit %d: unexpected error %v", bit, err)
	}
}

func TestEngine_HeaderTamperClassification(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	img, err := e.Encode(ctx, Payload{Data: []byte("classified")}, testPassword, nil)
	require.NoError(t, err)
	container, err := Extract(img)
	require.NoError(t, err)

	t.Run("UnknownVersion", func(t *testing.T) {
		c := append([]byte(nil), container...)
		c[0] = 0x03
		_, err := e.Decode(ctx, reembed(t, img, c), testPassword)
		assert.ErrorIs(t, err, ErrVersion)
	})

	t.Run("OtherKnownVersion", func(t *testing.T) {
		c := append([]byte(nil), container...)
		c[0] = byte(VersionChaCha20)
		_, err := e.Decode(ctx, reembed(t, img, c), testPassword)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("SaltChanged", func(t *testing.T) {
		c := append([]byte(nil), container...)
		c[1] ^= 0x80
		_, err := e.Decode(ctx, reembed(t, img, c), testPassword)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := e.Decode(ctx, reembed(t, img, container[:len(container)-1]), testPassword)
		assert.ErrorIs(t, err, ErrFormat)
		assert.NotErrorIs(t, err, ErrVersion)
	})
}

func TestEngine_VersionRejectedDespiteValidEncryption(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	// Build a container that would authenticate under version 0x01 if the
	// version byte were ignored, then relabel it.
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key, err := DeriveKey(testPassword, salt)
	require.NoError(t, err)
	frame, err := Compress([]byte{0, 'o', 'k'}, zstd.SpeedDefault)
	require.NoError(t, err)
	sealed, err := Encrypt(SuiteAES256GCM, key, frame, associatedData(VersionAESGCM, salt, len(frame)))
	require.NoError(t, err)
	container, err := Serialize(VersionAESGCM, salt, sealed.Nonce, sealed.Tag, sealed.Ciphertext)
	require.NoError(t, err)

	img := reembed(t, NewGradientCarrier(0), container)
	got, err := e.Decode(ctx, img, testPassword)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got.Data)

	container[0] = 0x42
	_, err = e.Decode(ctx, reembed(t, img, container), testPassword)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestEngine_CapacityBoundary(t *testing.T) {
	if testing.Short() {
		t.Skip("embeds a full 4K carrier")
	}
	e := newTestEngine(t, func(c *Config) { c.CompressionLevel = zstd.SpeedFastest })
	ctx := context.Background()

	// Random data stays stored: container = header + codec byte + extension length byte + data
	n := ContainerCapacity(NewGradientCarrier(0)) - ContainerHeaderSize - 2
	data := make([]byte, n+1)
	_, err := rand.Read(data)
	require.NoError(t, err)

	img, err := e.Encode(ctx, Payload{Data: data[:n]}, testPassword, nil)
	require.NoError(t, err, "a container of exactly the usable capacity fits")
	got, err := e.Decode(ctx, img, testPassword)
	require.NoError(t, err)
	assert.Equal(t, data[:n], got.Data)

	_, err = e.Encode(ctx, Payload{Data: data}, testPassword, nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	ce, ok := IsCapacityError(err)
	require.True(t, ok)
	assert.Equal(t, 3_110_401, ce.Required)
	assert.Equal(t, 3_110_400, ce.Available)
}

func TestEngine_InvalidInput(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Encode(ctx, Payload{Data: []byte("x")}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Encode(ctx, Payload{Data: []byte("x"), Extension: ".this-extension-is-far-too-long-to-store"}, testPassword, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Decode(ctx, NewGradientCarrier(0), []byte{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Decode(ctx, newCarrier(100, 100), testPassword)
	assert.ErrorIs(t, err, ErrCarrier)
}

func TestEngine_DecodePlainCarrier(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.Decode(context.Background(), NewGradientCarrier(1), testPassword)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat) || errors.Is(err, ErrAuthentication), "got %v", err)
}

func TestEngine_Canceled(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Encode(ctx, Payload{Data: []byte("x")}, testPassword, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.Decode(ctx, NewGradientCarrier(0), testPassword)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_LogsStages(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	e := newTestEngine(t, func(c *Config) { c.Logger = logger })

	img, err := e.Encode(context.Background(), Payload{Data: []byte("logged")}, testPassword, nil)
	require.NoError(t, err)
	_, err = e.Decode(context.Background(), img, testPassword)
	require.NoError(t, err)

	stages := map[string]bool{}
	for _, entry := range hook.AllEntries() {
		if s, ok := entry.Data["stage"].(string); ok {
			stages[s] = true
		}
		assert.NotContains(t, entry.Message, string(testPassword))
	}
	for _, s := range []string{"compress", "kdf", "serialize", "embed", "parse", "decompress"} {
		assert.True(t, stages[s], "missing %s stage log", s)
	}
}

func TestRecord(t *testing.T) {
	rec, err := encodeRecord(Payload{Data: []byte("abc"), Extension: ".txt"})
	require.NoError(t, err)
	assert.Equal(t, []byte{4, '.', 't', 'x', 't', 'a', 'b', 'c'}, rec)

	p, err := decodeRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, ".txt", p.Extension)
	assert.Equal(t, []byte("abc"), p.Data)

	for _, bad := range [][]byte{nil, {5, '.'}, {MaxExtensionLength + 1}, {2, 0xff, 0xfe}} {
		_, err := decodeRecord(bad)
		assert.ErrorIs(t, err, ErrFormat, "%v", bad)
	}
}

func TestEngine_EncodeWipesIntermediates(t *testing.T) {
	var wiped [][]byte
	orig := wipe
	wipe = func(b []byte) {
		orig(b)
		wiped = append(wiped, b)
	}
	t.Cleanup(func() { wipe = orig })

	e := newTestEngine(t, nil)
	data := []byte("plaintext that must not linger")
	_, err := e.Encode(context.Background(), Payload{Data: data, Extension: ".txt"}, testPassword, nil)
	require.NoError(t, err)

	require.Len(t, wiped, 2, "record and compressed frame")
	for _, b := range wiped {
		assert.Equal(t, make([]byte, len(b)), b)
	}
	assert.Equal(t, "plaintext that must not linger", string(data), "caller data is left alone")
}

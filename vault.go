// vault.go: Engine composing compression, key derivation, AEAD, container and
// LSB embedding into Encode and Decode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"context"
	"fmt"
	"unicode/utf8"

	goerrors "github.com/agilira/go-errors"
	"github.com/sirupsen/logrus"
)

// MaxExtensionLength bounds the file extension stored with a payload.
const MaxExtensionLength = 32

// wipe clears plaintext intermediates. Tests replace it to observe them.
var wipe = Zeroize

// Payload is the user data carried by a vault image.
type Payload struct {
	// Data is the file content.
	Data []byte

	// Extension is the original file extension including the dot (".pdf"),
	// empty when unknown.
	Extension string
}

// Engine runs encode and decode pipelines. It holds only read-only
// configuration and is safe for concurrent use.
type Engine struct {
	config  Config
	version Version
	log     *logrus.Logger
}

// New validates config and returns an Engine.
func New(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vault config: %w", err)
	}
	version, err := VersionForSuite(config.Suite)
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &Engine{config: config, version: version, log: config.Logger}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// checkpoint returns the context error, if any, tagged with the stage that
// was about to run.
func checkpoint(ctx context.Context, op, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s canceled before %s: %w", op, stage, err)
	}
	return nil
}

// encodeRecord prefixes data with its extension.
func encodeRecord(p Payload) ([]byte, error) {
	if len(p.Extension) > MaxExtensionLength || !utf8.ValidString(p.Extension) {
		richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("extension %q is not valid UTF-8 of at most %d bytes", p.Extension, MaxExtensionLength))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	record := make([]byte, 0, 1+len(p.Extension)+len(p.Data))
	record = append(record, byte(len(p.Extension)))
	record = append(record, p.Extension...)
	record = append(record, p.Data...)
	return record, nil
}

// decodeRecord splits a record into its extension and data.
func decodeRecord(record []byte) (Payload, error) {
	if len(record) == 0 {
		richErr := goerrors.New(ErrCodeFormat, "empty payload record")
		return Payload{}, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}
	n := int(record[0])
	if n > MaxExtensionLength || len(record) < 1+n || !utf8.Valid(record[1:1+n]) {
		richErr := goerrors.New(ErrCodeFormat, "invalid extension field in payload record")
		return Payload{}, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}
	return Payload{
		Extension: string(record[1 : 1+n]),
		Data:      record[1+n:],
	}, nil
}

// Encode hides payload in a 4K carrier protected by password.
//
// Stages run strictly in order: compress, draw salt, derive key, encrypt,
// serialize, acquire carrier, embed. Any failure aborts the operation with
// no partial result. The context is checked between stages; the memory-hard
// key derivation itself is not interruptible.
//
// source may be nil, in which case a gradient carrier is synthesized. A
// non-nil source must be exactly 3840x2160 and is left untouched: the result
// is always a new carrier.
func (e *Engine) Encode(ctx context.Context, payload Payload, password []byte, source *Carrier) (*Carrier, error) {
	if len(password) == 0 {
		richErr := goerrors.New(ErrCodeInvalidInput, "password cannot be empty")
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	if source != nil {
		if err := ValidateCarrier(source); err != nil {
			return nil, err
		}
	}
	log := e.log.WithFields(logrus.Fields{"op": "encode", "version": fmt.Sprintf("0x%02x", uint8(e.version))})

	if err := checkpoint(ctx, "encode", "compression"); err != nil {
		return nil, err
	}
	record, err := encodeRecord(payload)
	if err != nil {
		return nil, err
	}
	defer wipe(record)
	compressed, err := Compress(record, e.config.CompressionLevel)
	if err != nil {
		return nil, err
	}
	defer wipe(compressed)
	log.WithFields(logrus.Fields{"stage": "compress", "in": len(record), "out": len(compressed)}).Debug("payload compressed")

	// The ciphertext is as long as the plaintext for every suite, so the
	// final stream size is known before paying for key derivation.
	streamSize := StreamSize(ContainerSize(len(compressed)))
	available := CarrierWidth * CarrierHeight * CarrierChannels / 8
	if streamSize > available {
		return nil, &CapacityError{Required: streamSize, Available: available}
	}

	if err := checkpoint(ctx, "encode", "key derivation"); err != nil {
		return nil, err
	}
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	defer Zeroize(key)
	log.WithField("stage", "kdf").Debug("key derived")

	if err := checkpoint(ctx, "encode", "encryption"); err != nil {
		return nil, err
	}
	suite, err := e.version.Suite()
	if err != nil {
		return nil, err
	}
	sealed, err := Encrypt(suite, key, compressed, associatedData(e.version, salt, len(compressed)))
	if err != nil {
		return nil, err
	}

	container, err := Serialize(e.version, salt, sealed.Nonce, sealed.Tag, sealed.Ciphertext)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"stage": "serialize", "bytes": len(container)}).Debug("container built")

	if err := checkpoint(ctx, "encode", "embedding"); err != nil {
		return nil, err
	}
	carrier, err := AcquireCarrier(StreamSize(len(container)), source, e.config.Palette)
	if err != nil {
		return nil, err
	}
	out, err := Embed(carrier, container)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"stage":    "embed",
		"bytes":    StreamSize(len(container)),
		"capacity": Capacity(out),
	}).Debug("container embedded")

	return out, nil
}

// Decode recovers the payload hidden in carrier.
//
// Stages: extract, parse (unknown versions are rejected), derive key from the
// stored salt, decrypt, decompress. A wrong password and tampered data both
// fail with ErrAuthentication. The carrier is only read.
func (e *Engine) Decode(ctx context.Context, carrier *Carrier, password []byte) (Payload, error) {
	if len(password) == 0 {
		richErr := goerrors.New(ErrCodeInvalidInput, "password cannot be empty")
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	if err := ValidateCarrier(carrier); err != nil {
		return Payload{}, err
	}
	log := e.log.WithField("op", "decode")

	if err := checkpoint(ctx, "decode", "extraction"); err != nil {
		return Payload{}, err
	}
	stream, err := Extract(carrier)
	if err != nil {
		return Payload{}, err
	}

	container, err := Parse(stream)
	if err != nil {
		return Payload{}, err
	}
	suite, err := container.Version.Suite()
	if err != nil {
		return Payload{}, err
	}
	log = log.WithField("version", fmt.Sprintf("0x%02x", uint8(container.Version)))
	log.WithFields(logrus.Fields{"stage": "parse", "bytes": container.Size()}).Debug("container parsed")

	if err := checkpoint(ctx, "decode", "key derivation"); err != nil {
		return Payload{}, err
	}
	key, err := DeriveKey(password, container.Salt)
	if err != nil {
		return Payload{}, err
	}
	defer Zeroize(key)

	if err := checkpoint(ctx, "decode", "decryption"); err != nil {
		return Payload{}, err
	}
	compressed, err := Decrypt(suite, key, container.Nonce, container.Ciphertext, container.Tag, container.AssociatedData())
	if err != nil {
		log.WithField("stage", "decrypt").Debug("authentication failed")
		return Payload{}, err
	}

	if err := checkpoint(ctx, "decode", "decompression"); err != nil {
		return Payload{}, err
	}
	record, err := Decompress(compressed)
	wipe(compressed)
	if err != nil {
		return Payload{}, err
	}
	payload, err := decodeRecord(record)
	if err != nil {
		return Payload{}, err
	}
	log.WithFields(logrus.Fields{"stage": "decompress", "bytes": len(payload.Data)}).Debug("payload recovered")

	return payload, nil
}

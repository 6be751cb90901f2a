// compression.go: Lossless compression stage with a self-describing frame.
//
// A frame is one codec byte followed by the body. zstd is tried first and the
// body is stored verbatim when compression does not shrink it, so already
// compressed inputs (archives, media) never grow by more than one byte.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"github.com/klauspost/compress/zstd"
)

// Codec identifiers stored in the first byte of a frame.
const (
	codecStored byte = 0x00
	codecZstd   byte = 0x01
)

// MaxPayloadSize bounds the size of a payload before compression and after
// decompression. It caps the memory a crafted frame can make Decompress allocate.
const MaxPayloadSize = 256 << 20

// Compress compresses data into a frame.
//
// Decompress(Compress(x)) == x for every x, including the empty slice.
//
// Parameters:
//   - data: The bytes to compress (at most MaxPayloadSize)
//   - level: The zstd speed level
//
// Returns:
//   - The frame (codec byte + body)
//   - An error if data is too large or the encoder cannot be created
func Compress(data []byte, level zstd.EncoderLevel) ([]byte, error) {
	if len(data) > MaxPayloadSize {
		richErr := goerrors.New(ErrCodeCapacity, fmt.Sprintf("payload of %d bytes exceeds the %d byte limit", len(data), MaxPayloadSize))
		return nil, fmt.Errorf("%w: %w", ErrCapacityExceeded, richErr)
	}
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("invalid compression level %d", level))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}

	enc, err := getEncoder(level)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCompression, "failed to create zstd encoder")
		return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
	}
	frame := make([]byte, 1, len(data)+1)
	frame[0] = codecZstd
	frame = enc.EncodeAll(data, frame)
	putEncoder(level, enc)

	// Only use compression if it actually reduces size
	if len(frame) < len(data)+1 {
		return frame, nil
	}

	stored := make([]byte, len(data)+1)
	stored[0] = codecStored
	copy(stored[1:], data)
	return stored, nil
}

// Decompress reverses Compress.
//
// It never returns truncated data: an empty frame, an unknown codec byte, a
// corrupt zstd body or a body that expands beyond MaxPayloadSize all fail
// with ErrCompression.
func Decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		richErr := goerrors.New(ErrCodeCompression, "empty compressed frame")
		return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
	}

	body := frame[1:]
	switch frame[0] {
	case codecStored:
		if len(body) > MaxPayloadSize {
			richErr := goerrors.New(ErrCodeCompression, "stored body exceeds payload limit")
			return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
		}
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil

	case codecZstd:
		dec := getDecoder()
		if dec == nil {
			richErr := goerrors.New(ErrCodeCompression, "failed to create zstd decoder")
			return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
		}
		out, err := dec.DecodeAll(body, nil)
		putDecoder(dec)
		if err != nil {
			richErr := goerrors.Wrap(err, ErrCodeCompression, "corrupt zstd stream")
			return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
		}
		if len(out) > MaxPayloadSize {
			richErr := goerrors.New(ErrCodeCompression, "decompressed payload exceeds limit")
			return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
		}
		if out == nil {
			out = []byte{}
		}
		return out, nil

	default:
		richErr := goerrors.New(ErrCodeCompression, fmt.Sprintf("unknown codec 0x%02x", frame[0]))
		return nil, fmt.Errorf("%w: %w", ErrCompression, richErr)
	}
}

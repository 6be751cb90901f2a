// pool.go: Pooling of zstd encoders and decoders
//
// Creating a zstd encoder allocates its match tables and a decoder its
// history windows; both are sizeable. Batch runs compress and decompress many
// payloads concurrently, so instances are recycled through sync.Pool instead
// of being rebuilt for every file.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	// One encoder pool per zstd speed level, indexed by zstd.EncoderLevel.
	encoderPools [zstd.SpeedBestCompression + 1]sync.Pool

	// All decoders share the same limits, so a single pool suffices.
	decoderPool = sync.Pool{
		New: func() interface{} {
			dec, err := zstd.NewReader(nil,
				zstd.WithDecoderConcurrency(1),
				zstd.WithDecoderMaxMemory(uint64(MaxPayloadSize)),
			)
			if err != nil {
				return nil
			}
			return dec
		},
	}
)

// getEncoder retrieves an encoder for level, creating one if the pool is empty
func getEncoder(level zstd.EncoderLevel) (*zstd.Encoder, error) {
	if enc, ok := encoderPools[level].Get().(*zstd.Encoder); ok {
		return enc, nil
	}
	return zstd.NewWriter(nil,
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
	)
}

// putEncoder returns an encoder to the pool of its level
func putEncoder(level zstd.EncoderLevel, enc *zstd.Encoder) {
	if enc == nil {
		return
	}
	encoderPools[level].Put(enc)
}

// getDecoder retrieves a pooled decoder. It returns nil if one cannot be built.
func getDecoder() *zstd.Decoder {
	dec, _ := decoderPool.Get().(*zstd.Decoder)
	return dec
}

// putDecoder returns a decoder to the pool
func putDecoder(dec *zstd.Decoder) {
	if dec == nil {
		return
	}
	decoderPool.Put(dec)
}

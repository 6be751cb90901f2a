// config.go: Engine configuration.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"fmt"
	"runtime"

	goerrors "github.com/agilira/go-errors"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// Config is passed explicitly to New. Engines never read process-wide state,
// so several engines with different settings can coexist.
//
// The KDF parameters are deliberately absent: they are part of the container
// format (see DefaultKDFParams).
type Config struct {
	// Suite selects the AEAD and therefore the container version written by Encode.
	// Decode accepts every supported version regardless of this value.
	Suite CipherSuite

	// CompressionLevel is the zstd speed level used by Encode.
	CompressionLevel zstd.EncoderLevel

	// Palette selects the gradient used when Encode synthesizes a carrier.
	Palette int

	// Workers bounds the number of files ProcessBatch handles concurrently.
	Workers int

	// Logger receives structured pipeline events. Nil means logrus.New().
	Logger *logrus.Logger
}

// DefaultConfig returns AES-256-GCM, best zstd compression, the first palette
// and one batch worker per CPU.
func DefaultConfig() Config {
	return Config{
		Suite:            SuiteAES256GCM,
		CompressionLevel: zstd.SpeedBestCompression,
		Palette:          0,
		Workers:          runtime.NumCPU(),
	}
}

// Validate reports the first invalid field as ErrInvalidInput.
func (c Config) Validate() error {
	if _, err := VersionForSuite(c.Suite); err != nil {
		return err
	}
	if c.CompressionLevel < zstd.SpeedFastest || c.CompressionLevel > zstd.SpeedBestCompression {
		richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("compression level %d out of range", c.CompressionLevel))
		return fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	if c.Palette < 0 || c.Palette >= PaletteCount {
		richErr := goerrors.New(ErrCodeInvalidInput, fmt.Sprintf("palette %d out of range [0,%d)", c.Palette, PaletteCount))
		return fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	if c.Workers < 1 {
		richErr := goerrors.New(ErrCodeInvalidInput, "workers must be at least 1")
		return fmt.Errorf("%w: %w", ErrInvalidInput, richErr)
	}
	return nil
}

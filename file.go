// file.go: File-level encode/decode with atomic persistence.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	goerrors "github.com/agilira/go-errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	vaultSuffix      = "_VAULT"
	recoveredSuffix  = "_RECOVERED"
	defaultExtension = ".dat"
)

// VaultOutputPath returns the image path Encode output is written to:
// "<dir>/<stem>_VAULT.png" for "<dir>/<stem>.<ext>".
func VaultOutputPath(inputPath string) string {
	dir, name := filepath.Split(inputPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, stem+vaultSuffix+".png")
}

// RecoveredOutputPath returns the file path Decode output is written to:
// "<dir>/<stem>_RECOVERED<ext>", where stem is the image name without ".png"
// and without a trailing "_VAULT". An ext that is empty, does not start with
// a dot or contains a path separator falls back to ".dat".
func RecoveredOutputPath(imagePath, ext string) string {
	if !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
		ext = defaultExtension
	}
	return recoveredStem(imagePath) + ext
}

// recoveredStem is RecoveredOutputPath without the extension.
func recoveredStem(imagePath string) string {
	dir, name := filepath.Split(imagePath)
	stem := name
	if strings.EqualFold(filepath.Ext(stem), ".png") {
		stem = stem[:len(stem)-len(".png")]
	}
	stem = strings.TrimSuffix(stem, vaultSuffix)
	return filepath.Join(dir, stem+recoveredSuffix)
}

// writeFileAtomic streams write's output into a temporary file next to path
// and renames it into place only after write succeeds and the data is synced.
// On any failure, including cancellation, the temporary file is removed and
// path is left untouched.
func writeFileAtomic(ctx context.Context, path string, write func(w io.Writer) error) (err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmpPath := filepath.Join(dir, "."+name+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- temp path derived from the caller's destination
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to create temporary file for %s", path))
		return fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to write %s", tmpPath))
		return fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	if err = f.Sync(); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to sync %s", tmpPath))
		return fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	if err = f.Close(); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to close %s", tmpPath))
		return fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	if err = checkpoint(ctx, "write", "rename"); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to move output into %s", path))
		return fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	return nil
}

// readInput reads a whole input file, mapping failures to ErrIO.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the caller
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to read %s", path))
		return nil, fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	return data, nil
}

// EncodeFile encodes the file at inputPath and writes VaultOutputPath(inputPath).
//
// carrierPath is optional; when empty a gradient carrier is synthesized.
// The original file extension is stored so DecodeFile can restore it.
// Returns the path of the written image.
func (e *Engine) EncodeFile(ctx context.Context, inputPath string, password []byte, carrierPath string) (string, error) {
	data, err := readInput(inputPath)
	if err != nil {
		return "", err
	}

	var source *Carrier
	if carrierPath != "" {
		if source, err = LoadCarrier(carrierPath); err != nil {
			return "", err
		}
	}

	ext := filepath.Ext(inputPath)
	if len(ext) > MaxExtensionLength || !utf8.ValidString(ext) {
		ext = ""
	}
	out, err := e.Encode(ctx, Payload{Data: data, Extension: ext}, password, source)
	Zeroize(data)
	if err != nil {
		return "", err
	}

	outPath := VaultOutputPath(inputPath)
	if err := writeFileAtomic(ctx, outPath, out.WritePNG); err != nil {
		return "", err
	}
	e.log.WithFields(logrus.Fields{"op": "encode", "output": outPath}).Debug("vault image written")
	return outPath, nil
}

// DecodeFile decodes the vault image at imagePath and writes
// RecoveredOutputPath(imagePath, ext) using the stored extension.
// Returns the path of the written file.
func (e *Engine) DecodeFile(ctx context.Context, imagePath string, password []byte) (string, error) {
	carrier, err := LoadCarrier(imagePath)
	if err != nil {
		return "", err
	}

	payload, err := e.Decode(ctx, carrier, password)
	if err != nil {
		return "", err
	}
	defer Zeroize(payload.Data)

	outPath := RecoveredOutputPath(imagePath, payload.Extension)
	err = writeFileAtomic(ctx, outPath, func(w io.Writer) error {
		if _, err := w.Write(payload.Data); err != nil {
			richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to write %s", outPath))
			return fmt.Errorf("%w: %w", ErrIO, richErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	e.log.WithFields(logrus.Fields{"op": "decode", "output": outPath}).Debug("payload written")
	return outPath, nil
}

// Package vault hides an encrypted, authenticated file inside the pixel data of
// a 4K image.
//
// The encode pipeline is strictly linear:
//
//	file bytes -> zstd frame -> Argon2id key -> AEAD -> versioned container
//	           -> length-prefixed LSB stream in a 3840x2160 RGB carrier -> PNG
//
// and decode runs the same stages in reverse. A failure at any stage aborts
// the operation; nothing is written unless the whole pipeline succeeded.
//
// # Quick Start
//
//	engine, err := vault.New(vault.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	img, err := engine.Encode(ctx, vault.Payload{Data: []byte("hello world")}, []byte("Tr0ub4dor&3"), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	payload, err := engine.Decode(ctx, img, []byte("Tr0ub4dor&3"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(payload.Data)) // Output: hello world
//
// Files are handled by EncodeFile and DecodeFile, which follow the
// "<name>_VAULT.png" / "<name>_RECOVERED<ext>" naming convention and persist
// their output atomically (temporary file, fsync, rename). ProcessBatch runs
// many files concurrently with a bounded worker pool.
//
// # Container
//
// The container layout is fixed and big-endian:
//
//	version(1) | salt(16) | nonce(12) | tag(16) | ciphertextLength(4) | ciphertext
//
// Version 0x01 is sealed with AES-256-GCM, version 0x02 with ChaCha20-Poly1305.
// Any other version is rejected with ErrVersion. The version, salt and
// ciphertext length are authenticated as associated data.
//
// # Capacity
//
// A carrier holds one bit per channel sample: 3840*2160*3/8 = 3,110,400 bytes,
// of which 4 are used by the stream length prefix. Capacity depends only on the
// dimensions, never on pixel content.
//
// # Error Handling
//
// Every returned error wraps one of the package sentinels, so callers classify
// failures with errors.Is:
//
//	payload, err := engine.Decode(ctx, img, password)
//	switch {
//	case errors.Is(err, vault.ErrAuthentication):
//		// wrong password or tampered image, deliberately indistinguishable
//	case errors.Is(err, vault.ErrVersion):
//		// written by a newer format
//	case errors.Is(err, vault.ErrFormat):
//		// not a vault image, or damaged
//	}
//
// Rich error details (stable codes such as VAULT_AUTH_FAILED) are attached
// with github.com/agilira/go-errors.
//
// # Security Considerations
//
//   - Argon2id with fixed parameters (2 iterations, 64 MB, 4 lanes, 32-byte key)
//   - A fresh 16-byte salt and 12-byte nonce per container, drawn from crypto/rand
//     inside the library; callers never supply nonces
//   - Derived keys are zeroized after use and never cached
//   - LSB embedding offers no deniability against statistical steganalysis
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package vault

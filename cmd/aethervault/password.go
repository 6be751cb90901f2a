// password.go: Password resolution from flags, environment or terminal prompt.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"fmt"

	"golang.org/x/term"
)

// password returns the first non-empty of: the flag value, AETHERVAULT_PASSWORD,
// or a hidden terminal prompt. confirm asks twice when prompting.
func (c *cli) password(flagValue string, confirm bool) ([]byte, error) {
	if flagValue != "" {
		return []byte(flagValue), nil
	}
	if env := c.getenv("AETHERVAULT_PASSWORD"); env != "" {
		return []byte(env), nil
	}

	if c.stdin == nil || !term.IsTerminal(int(c.stdin.Fd())) {
		return nil, fmt.Errorf("%w: no password given and stdin is not a terminal", errUsage)
	}

	pw, err := c.prompt("Password: ")
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, fmt.Errorf("%w: password cannot be empty", errUsage)
	}
	if confirm {
		again, err := c.prompt("Confirm password: ")
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(pw, again) {
			return nil, fmt.Errorf("%w: passwords do not match", errUsage)
		}
	}
	return pw, nil
}

// prompt reads one line from the terminal without echo.
func (c *cli) prompt(label string) ([]byte, error) {
	fmt.Fprint(c.stderr, label)
	pw, err := term.ReadPassword(int(c.stdin.Fd()))
	fmt.Fprintln(c.stderr)
	if err != nil {
		return nil, fmt.Errorf("password read failed: %w", err)
	}
	return pw, nil
}

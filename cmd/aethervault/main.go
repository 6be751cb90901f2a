// main.go: aethervault command line front end.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	vault "github.com/agilira/aethervault"
)

const usage = `Usage:
  %[1]s encode [-password PW] [-carrier IMAGE.png] [-cipher aes|chacha20] FILE
  %[1]s decode [-password PW] IMAGE_VAULT.png
  %[1]s batch  [-password PW] [-workers N] FILE...
  %[1]s capacity [IMAGE]

-password is visible to other users in the process list; prefer
AETHERVAULT_PASSWORD or the interactive prompt.

Environment (also read from ./.env):
  AETHERVAULT_PASSWORD   password used when -password is not given
  AETHERVAULT_CIPHER     default cipher suite for encode (aes, chacha20)
  AETHERVAULT_WORKERS    default batch worker count
  AETHERVAULT_LOG_LEVEL  logrus level (debug, info, warn, error)

Exit codes:
  0 success, 1 i/o or other failure, 2 usage error, 3 capacity exceeded,
  4 authentication/format/version failure, 5 carrier error, 6 compression error,
  130 canceled
`

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitCapacity    = 3
	exitAuth        = 4
	exitCarrier     = 5
	exitCompression = 6
	exitCanceled    = 130
)

var errUsage = errors.New("usage error")

const passwordFlagHelp = "password, visible in the process list (prefer AETHERVAULT_PASSWORD or the prompt)"

func main() {
	// A missing .env file is normal
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	})
	stop()
	os.Exit(code)
}

// cli bundles the process environment so run can be exercised from tests.
type cli struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	logger *logrus.Logger
}

// exitCode maps an error to the documented process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitCanceled
	case errors.Is(err, errUsage), errors.Is(err, vault.ErrInvalidInput):
		return exitUsage
	case errors.Is(err, vault.ErrCapacityExceeded):
		return exitCapacity
	case errors.Is(err, vault.ErrAuthentication), errors.Is(err, vault.ErrFormat):
		return exitAuth
	case errors.Is(err, vault.ErrCarrier):
		return exitCarrier
	case errors.Is(err, vault.ErrCompression):
		return exitCompression
	default:
		return exitFailure
	}
}

// run executes one command line and returns the exit code.
func run(ctx context.Context, args []string, c *cli) int {
	prog := filepath.Base(args[0])
	if len(args) < 2 {
		fmt.Fprintf(c.stderr, usage, prog)
		return exitUsage
	}

	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.SetOutput(c.stderr)
		c.logger.SetLevel(logrus.WarnLevel)
		if lvl := c.getenv("AETHERVAULT_LOG_LEVEL"); lvl != "" {
			if parsed, err := logrus.ParseLevel(lvl); err == nil {
				c.logger.SetLevel(parsed)
			}
		}
	}

	var err error
	switch args[1] {
	case "encode":
		err = c.encode(ctx, args[2:])
	case "decode":
		err = c.decode(ctx, args[2:])
	case "batch":
		err = c.batch(ctx, args[2:])
	case "capacity":
		err = c.capacity(args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Fprintf(c.stdout, usage, prog)
		return exitOK
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, args[1])
	}

	if err != nil {
		fmt.Fprintf(c.stderr, "aethervault: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintf(c.stderr, usage, prog)
		}
	}
	return exitCode(err)
}

// engine builds a vault engine from defaults, environment and flags.
func (c *cli) engine(cipher string, workers int) (*vault.Engine, error) {
	cfg := vault.DefaultConfig()
	cfg.Logger = c.logger

	if cipher == "" {
		cipher = c.getenv("AETHERVAULT_CIPHER")
	}
	if cipher != "" {
		suite, err := vault.ParseCipherSuite(cipher)
		if err != nil {
			return nil, err
		}
		cfg.Suite = suite
	}

	if workers == 0 {
		if env := c.getenv("AETHERVAULT_WORKERS"); env != "" {
			n, err := strconv.Atoi(env)
			if err != nil {
				return nil, fmt.Errorf("%w: AETHERVAULT_WORKERS=%q is not a number", errUsage, env)
			}
			workers = n
		}
	}
	if workers != 0 {
		cfg.Workers = workers
	}
	return vault.New(cfg)
}

func (c *cli) encode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	password := fs.String("password", "", passwordFlagHelp)
	carrier := fs.String("carrier", "", "3840x2160 PNG/JPEG to use as carrier (synthesized if empty)")
	cipher := fs.String("cipher", "", "cipher suite: aes or chacha20")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: encode takes exactly one FILE", errUsage)
	}

	pw, err := c.password(*password, true)
	if err != nil {
		return err
	}
	defer vault.Zeroize(pw)

	engine, err := c.engine(*cipher, 0)
	if err != nil {
		return err
	}
	out, err := engine.EncodeFile(ctx, fs.Arg(0), pw, *carrier)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, out)
	return nil
}

func (c *cli) decode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	password := fs.String("password", "", passwordFlagHelp)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: decode takes exactly one IMAGE", errUsage)
	}

	pw, err := c.password(*password, false)
	if err != nil {
		return err
	}
	defer vault.Zeroize(pw)

	engine, err := c.engine("", 0)
	if err != nil {
		return err
	}
	out, err := engine.DecodeFile(ctx, fs.Arg(0), pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, out)
	return nil
}

func (c *cli) batch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	password := fs.String("password", "", passwordFlagHelp)
	workers := fs.Int("workers", 0, "concurrent files (default: number of CPUs)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: batch needs at least one FILE", errUsage)
	}
	if *workers < 0 {
		return fmt.Errorf("%w: -workers must be positive", errUsage)
	}

	pw, err := c.password(*password, false)
	if err != nil {
		return err
	}
	defer vault.Zeroize(pw)

	engine, err := c.engine("", *workers)
	if err != nil {
		return err
	}

	report := engine.ProcessBatch(ctx, fs.Args(), pw)
	var firstErr error
	for _, res := range report.Results {
		size := "-"
		if fi, statErr := os.Stat(res.Path); statErr == nil {
			size = humanize.Bytes(uint64(fi.Size())) // #nosec G115 -- file sizes are non-negative
		}
		status := "ok"
		switch {
		case res.Err != nil:
			status = "failed: " + res.Err.Error()
			if firstErr == nil {
				firstErr = res.Err
			}
		case res.Output == "":
			status = "skipped"
		}
		fmt.Fprintf(c.stdout, "%-8s %-10s %s -> %s [%s]\n", res.Mode, size, res.Path, res.Output, status)
	}
	fmt.Fprintf(c.stdout, "%d succeeded, %d failed, %d skipped\n", report.Succeeded, report.Failed, report.Skipped)

	if err := ctx.Err(); err != nil {
		return err
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d files failed: %w", report.Failed, len(report.Results), firstErr)
	}
	return nil
}

func (c *cli) capacity(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: capacity takes at most one IMAGE", errUsage)
	}

	carrier := &vault.Carrier{Width: vault.CarrierWidth, Height: vault.CarrierHeight}
	if len(args) == 1 {
		loaded, err := vault.LoadCarrier(args[0])
		if err != nil {
			return err
		}
		if err := vault.ValidateCarrier(loaded); err != nil {
			return err
		}
		carrier = loaded
	}

	capacity := vault.Capacity(carrier)
	usable := vault.ContainerCapacity(carrier)
	maxFile := usable - vault.ContainerHeaderSize - 2 // codec byte and extension length byte

	fmt.Fprintf(c.stdout, "carrier:    %dx%dx%d\n", carrier.Width, carrier.Height, vault.CarrierChannels)
	fmt.Fprintf(c.stdout, "capacity:   %s (%d bytes)\n", humanize.IBytes(uint64(capacity)), capacity)   // #nosec G115 -- positive by construction
	fmt.Fprintf(c.stdout, "container:  %s (%d bytes)\n", humanize.IBytes(uint64(usable)), usable)       // #nosec G115 -- positive by construction
	fmt.Fprintf(c.stdout, "max file:   ~%s before compression\n", humanize.IBytes(uint64(maxFile))) // #nosec G115 -- positive by construction
	p := vault.DefaultKDFParams()
	fmt.Fprintf(c.stdout, "kdf:        Argon2id t=%d m=%dMB p=%d\n", p.Time, p.Memory, p.Threads)
	return nil
}

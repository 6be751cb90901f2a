// batch.go: Concurrent processing of many files, one independent pipeline per file.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Mode is the direction a batch entry is processed in.
type Mode string

const (
	ModeEncode Mode = "ENCRYPT"
	ModeDecode Mode = "DECRYPT"
)

// ModeFor picks the direction for path: PNG images are decoded, every other
// file is encoded.
func ModeFor(path string) Mode {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return ModeDecode
	}
	return ModeEncode
}

// BatchResult is the outcome of one batch entry.
type BatchResult struct {
	Path     string
	Mode     Mode
	Output   string // empty on failure
	Err      error
	Started  time.Time
	Duration time.Duration
}

// BatchReport collects the results of ProcessBatch in input order.
type BatchReport struct {
	Results   []BatchResult
	Succeeded int
	Failed    int
	Skipped   int // duplicates and entries not started because of cancellation
}

// ProcessBatch runs EncodeFile or DecodeFile (see ModeFor) for every path,
// at most Config.Workers at a time. Entries are independent: a failure is
// recorded in its BatchResult and does not stop the others. Duplicate paths
// are processed once. An entry whose output would overwrite the output of an
// earlier entry, or one of the batch inputs, fails with ErrIO without
// running. After ctx is canceled no new entry starts and running
// ones stop at their next stage boundary without writing output.
func (e *Engine) ProcessBatch(ctx context.Context, paths []string, password []byte) *BatchReport {
	report := &BatchReport{Results: make([]BatchResult, 0, len(paths))}

	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			report.Skipped++
			continue
		}
		seen[p] = struct{}{}
		report.Results = append(report.Results, BatchResult{Path: p, Mode: ModeFor(p)})
	}

	ran := make([]bool, len(report.Results))
	claimOutputs(report.Results, ran)

	g := new(errgroup.Group)
	g.SetLimit(e.config.Workers)

	for i := range report.Results {
		if ctx.Err() != nil {
			break
		}
		if ran[i] {
			continue
		}
		g.Go(func() error {
			ran[i] = e.runBatchEntry(ctx, &report.Results[i], password)
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range report.Results {
		switch {
		case !ran[i]:
			report.Skipped++
		case res.Err != nil:
			report.Failed++
		default:
			report.Succeeded++
		}
	}
	return report
}

// outputKey identifies the file an entry writes. Decode output names depend
// on the stored extension, so they are keyed by the extension-less stem.
func outputKey(res *BatchResult) string {
	if res.Mode == ModeDecode {
		return filepath.Clean(recoveredStem(res.Path))
	}
	return filepath.Clean(VaultOutputPath(res.Path))
}

// claimOutputs assigns every output to the first entry that produces it and
// fails the later ones, marking them as run.
func claimOutputs(results []BatchResult, ran []bool) {
	inputs := make(map[string]struct{}, len(results))
	for i := range results {
		inputs[filepath.Clean(results[i].Path)] = struct{}{}
	}

	owners := make(map[string]string, len(results))
	for i := range results {
		res := &results[i]
		key := outputKey(res)

		var reason string
		if owner, taken := owners[key]; taken {
			reason = fmt.Sprintf("output of %s collides with %s", res.Path, owner)
		} else if _, isInput := inputs[key]; isInput {
			reason = fmt.Sprintf("output of %s would overwrite batch input %s", res.Path, key)
		}
		if reason == "" {
			owners[key] = res.Path
			continue
		}

		richErr := goerrors.New(ErrCodeIO, reason)
		res.Err = fmt.Errorf("%w: %w", ErrIO, richErr)
		ran[i] = true
	}
}

// runBatchEntry processes one entry and fills in res. It reports false if
// the entry was not started because ctx was already canceled.
func (e *Engine) runBatchEntry(ctx context.Context, res *BatchResult, password []byte) bool {
	if ctx.Err() != nil {
		return false
	}
	res.Started = timecache.CachedTime()
	start := time.Now()

	switch res.Mode {
	case ModeDecode:
		res.Output, res.Err = e.DecodeFile(ctx, res.Path, password)
	default:
		res.Output, res.Err = e.EncodeFile(ctx, res.Path, password, "")
	}
	res.Duration = time.Since(start)

	log := e.log.WithFields(logrus.Fields{
		"path":     res.Path,
		"mode":     res.Mode,
		"duration": res.Duration.Round(time.Millisecond),
	})
	if res.Err != nil {
		log.WithError(res.Err).Warn("batch entry failed")
		return true
	}
	log.WithField("output", res.Output).Info("batch entry done")
	return true
}

// Package core orchestrates a synchronization run: classify local state,
// build the work list, drive aria2c, verify integrity, and retry files
// that fail verification up to a fixed bound.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourcifyeth/sourcify-sync/internal/aria2"
	"github.com/sourcifyeth/sourcify-sync/internal/config"
	"github.com/sourcifyeth/sourcify-sync/internal/logging"
	"github.com/sourcifyeth/sourcify-sync/internal/manifest"
	"github.com/sourcifyeth/sourcify-sync/internal/progress"
	"github.com/sourcifyeth/sourcify-sync/internal/scan"
	"github.com/sourcifyeth/sourcify-sync/internal/verify"
	"github.com/sourcifyeth/sourcify-sync/internal/worklist"
)

// Failure records a file still invalid after the retry budget is spent.
type Failure struct {
	OutputName string
	Reason     string
}

// Result summarizes one synchronization run.
type Result struct {
	TotalFiles       int       // entries in the manifest
	Skipped          int       // already complete locally
	Transferred      int       // queued for transfer in the first pass
	TransferRuns     int       // aria2c invocations
	IntegrityRetries int       // extra passes caused by verification failures
	Residual         []Failure // invalid after exhausting the retry budget
}

// Engine drives the run pipeline. A single engine handles one run;
// retry state is not persisted across runs.
type Engine struct {
	cfg *config.Config
	log *logging.Logger

	// Injection points for tests. Defaults drive the real subprocess
	// and the real verifier pool.
	transfer  func(ctx context.Context, inputFile string) error
	verifyAll func(paths []string, workers int, onProgress func(done, total int)) map[string]verify.Outcome
	newBar    func() progress.Reporter

	// lastReasons remembers the most recent verification reason per
	// output name so residual failures can report why.
	lastReasons map[string]string
}

// NewEngine creates an engine bound to the given configuration.
func NewEngine(cfg *config.Config, log *logging.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		log:       log,
		verifyAll: verify.All,
		newBar:    func() progress.Reporter { return progress.NewBar() },
	}
	e.transfer = func(ctx context.Context, inputFile string) error {
		return aria2.Run(ctx, aria2.Options{
			BinaryPath:  cfg.Aria2cPath,
			InputFile:   inputFile,
			DownloadDir: cfg.DownloadDir,
			SessionPath: cfg.SessionPath(),
			Concurrency: cfg.ConcurrentDownloads,
		})
	}
	return e
}

// Run executes one synchronization pass over the manifest entries.
//
// preVerify additionally verifies files that are already present before
// the first transfer pass, requeueing any that fail.
//
// Fatal conditions (directory creation, input descriptor write, transfer
// process failure) abort with an error; per-file verification failures
// are retried up to the bound and then reported in Result.Residual.
func (e *Engine) Run(ctx context.Context, entries []manifest.Entry, preVerify bool) (*Result, error) {
	result := &Result{TotalFiles: len(entries)}

	if err := worklist.EnsureDir(e.cfg.DownloadDir); err != nil {
		return result, err
	}

	statuses := e.classify(entries)

	candidates := make([]manifest.Entry, 0, len(entries))
	for _, entry := range entries {
		if statuses[entry.RemotePath] == scan.Missing {
			candidates = append(candidates, entry)
		}
	}

	if preVerify && e.cfg.IntegrityCheck {
		candidates = e.requeueInvalidPresent(entries, statuses, candidates)
	}

	result.Skipped = result.TotalFiles - len(candidates)
	result.Transferred = len(candidates)

	if len(candidates) == 0 {
		e.log.Info().Msg("All files already complete, nothing to download")
		return result, nil
	}

	// Retry loop: each pass transfers the candidate set, then verifies
	// it. The set either empties or the budget runs out; a file is only
	// requeued when verification explicitly invalidates it.
	for attempt := 1; ; attempt++ {
		if err := e.transferPass(ctx, candidates); err != nil {
			return result, err
		}
		result.TransferRuns++

		if !e.cfg.IntegrityCheck {
			return result, nil
		}

		invalid := e.verifyPass(candidates)
		if len(invalid) == 0 {
			return result, nil
		}

		if attempt >= e.cfg.IntegrityRetryCount {
			for _, entry := range invalid {
				result.Residual = append(result.Residual, Failure{
					OutputName: entry.OutputName(),
					Reason:     e.lastReasons[entry.OutputName()],
				})
			}
			e.log.Warn().Int("files", len(invalid)).Msg("Retry budget exhausted, reporting residual failures")
			return result, nil
		}

		e.log.Warn().Int("files", len(invalid)).Int("attempt", attempt).Msg("Verification failed, re-downloading")
		result.IntegrityRetries++
		candidates = invalid
	}
}

// classify scans the download directory with a progress bar.
func (e *Engine) classify(entries []manifest.Entry) map[string]scan.Status {
	bar := e.newBar()
	bar.Start(int64(len(entries)), "Scanning local files")
	statuses := scan.Classify(entries, e.cfg.DownloadDir, func(done, total int) {
		bar.Update(int64(done))
	})
	bar.Finish()
	return statuses
}

// requeueInvalidPresent verifies files classified Present and rebuilds
// the candidate list in manifest order with failures included.
func (e *Engine) requeueInvalidPresent(entries []manifest.Entry, statuses map[string]scan.Status, candidates []manifest.Entry) []manifest.Entry {
	var present []manifest.Entry
	for _, entry := range entries {
		if statuses[entry.RemotePath] == scan.Present {
			present = append(present, entry)
		}
	}
	if len(present) == 0 {
		return candidates
	}

	invalid := e.verifyPass(present)
	if len(invalid) == 0 {
		e.log.Info().Msg("All existing files passed integrity check")
		return candidates
	}
	e.log.Warn().Int("files", len(invalid)).Msg("Existing files failed integrity check, requeueing")

	bad := make(map[string]bool, len(invalid))
	for _, entry := range invalid {
		bad[entry.RemotePath] = true
	}

	merged := make([]manifest.Entry, 0, len(candidates)+len(invalid))
	for _, entry := range entries {
		if statuses[entry.RemotePath] == scan.Missing || bad[entry.RemotePath] {
			merged = append(merged, entry)
		}
	}
	return merged
}

// transferPass serializes the candidates and runs one aria2c invocation.
func (e *Engine) transferPass(ctx context.Context, candidates []manifest.Entry) error {
	// A nil status map classifies everything Missing: every candidate
	// in a retry pass has already been invalidated.
	items := worklist.Build(candidates, nil, e.cfg.BaseURL)

	inputFile, err := worklist.WriteInputFile(items)
	if err != nil {
		return err
	}
	defer os.Remove(inputFile)

	e.log.Info().Int("files", len(items)).Msg("Starting download")
	return e.transfer(ctx, inputFile)
}

// verifyPass checks each candidate's local file and returns the entries
// that must be transferred again, in manifest order. A file absent after
// a transfer pass that claimed success counts as unreadable and feeds
// the same retry path. Corrupt files are removed so the next pass
// re-downloads them instead of resuming a broken artifact.
func (e *Engine) verifyPass(candidates []manifest.Entry) []manifest.Entry {
	if e.lastReasons == nil {
		e.lastReasons = make(map[string]string)
	}

	byPath := make(map[string]manifest.Entry, len(candidates))
	var toVerify []string
	var invalid []manifest.Entry
	missing := make(map[string]bool)

	for _, entry := range candidates {
		localPath := filepath.Join(e.cfg.DownloadDir, entry.OutputName())
		if _, err := os.Stat(localPath); err != nil {
			missing[entry.RemotePath] = true
			e.lastReasons[entry.OutputName()] = fmt.Sprintf("missing after transfer: %v", err)
			continue
		}
		byPath[localPath] = entry
		toVerify = append(toVerify, localPath)
	}

	var bad map[string]bool
	if len(toVerify) > 0 {
		bar := e.newBar()
		bar.Start(int64(len(toVerify)), "Verifying integrity")
		outcomes := e.verifyAll(toVerify, e.cfg.ConcurrentValidations, func(done, total int) {
			bar.Update(int64(done))
		})
		bar.Finish()

		bad = make(map[string]bool)
		for localPath, outcome := range outcomes {
			if outcome.Status == verify.Valid {
				continue
			}
			entry := byPath[localPath]
			bad[entry.RemotePath] = true
			e.lastReasons[entry.OutputName()] = outcome.Reason
			e.log.Debug().
				Str("file", entry.OutputName()).
				Str("status", outcome.Status.String()).
				Str("reason", outcome.Reason).
				Msg("Verification failed")

			if outcome.Status == verify.Corrupt {
				if err := os.Remove(localPath); err != nil {
					e.log.Warn().Str("file", entry.OutputName()).Err(err).Msg("Failed to remove corrupt file")
				}
			}
		}
	}

	for _, entry := range candidates {
		if missing[entry.RemotePath] || bad[entry.RemotePath] {
			invalid = append(invalid, entry)
		}
	}
	return invalid
}

// Package verify performs structural integrity checks on downloaded files.
//
// Verification is a pluggable, format-specific layer: a verifier is
// selected by file-format signature, and files with no recognized format
// pass through as valid. It is not a checksum system - the check reads
// container metadata only and never touches the file's full content.
package verify

import (
	"path/filepath"
	"strings"
	"sync"
)

// Status classifies a verification result.
type Status int

const (
	// Valid means the file is structurally sound (or has no recognized
	// format and was passed through without inspection).
	Valid Status = iota
	// Corrupt means the file exists but fails structural parsing;
	// re-downloading may fix it.
	Corrupt
	// Unreadable means the file could not be read at all (missing,
	// permissions). Also used when a file is absent after a transfer
	// pass claimed success, feeding the same retry path.
	Unreadable
)

func (s Status) String() string {
	switch s {
	case Corrupt:
		return "corrupt"
	case Unreadable:
		return "unreadable"
	default:
		return "valid"
	}
}

// Outcome is the per-file verification result.
type Outcome struct {
	Status Status
	Reason string // empty for Valid
}

// Verifier validates one file without mutating it.
type Verifier interface {
	Verify(path string) Outcome
}

// noopVerifier accepts any file without inspection.
type noopVerifier struct{}

func (noopVerifier) Verify(string) Outcome { return Outcome{Status: Valid} }

// ForFile selects the verifier for a filename by format signature.
// Unrecognized formats get the no-op verifier.
func ForFile(name string) Verifier {
	if strings.EqualFold(filepath.Ext(name), ".parquet") {
		return parquetVerifier{}
	}
	return noopVerifier{}
}

// All verifies the given files with a bounded worker pool and returns
// outcomes keyed by path. Verification of distinct files is independent
// and read-only, so results do not depend on execution order.
// onProgress, when non-nil, is invoked after each file with (done, total).
func All(paths []string, workers int, onProgress func(done, total int)) map[string]Outcome {
	if workers < 1 {
		workers = 1
	}

	outcomes := make(map[string]Outcome, len(paths))
	total := len(paths)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	done := 0

	for _, p := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := ForFile(path).Verify(path)

			mu.Lock()
			outcomes[path] = outcome
			done++
			if onProgress != nil {
				onProgress(done, total)
			}
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return outcomes
}

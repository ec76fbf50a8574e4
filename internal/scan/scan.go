// Package scan classifies manifest entries against the local mirror.
//
// Completeness is judged by the SizeOnlyCompletenessCheck policy: a file
// is complete iff a regular file with nonzero size exists at the flattened
// path. No HEAD requests, no hashing. This trades false positives
// (a partial-but-nonzero file counts as complete) for a scan that costs
// zero network round-trips; structural verification catches corrupt
// parquet files downstream.
package scan

import (
	"os"
	"path/filepath"

	"github.com/sourcifyeth/sourcify-sync/internal/manifest"
)

// Status is the local classification of a manifest entry.
type Status int

const (
	// Missing means no usable local file exists for the entry.
	Missing Status = iota
	// Present means a regular file with size > 0 exists at the
	// flattened path. Treated as ground truth for completeness.
	Present
)

func (s Status) String() string {
	if s == Present {
		return "present"
	}
	return "missing"
}

// Classify performs a single synchronous pass over the download directory
// and maps each entry's RemotePath to its status. It reads the filesystem
// as of call time and retains no state. onProgress, when non-nil, is
// invoked after each entry with (checked, total).
func Classify(entries []manifest.Entry, downloadDir string, onProgress func(done, total int)) map[string]Status {
	statuses := make(map[string]Status, len(entries))
	total := len(entries)

	for i, entry := range entries {
		statuses[entry.RemotePath] = classifyOne(filepath.Join(downloadDir, entry.OutputName()))
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	return statuses
}

func classifyOne(localPath string) Status {
	info, err := os.Stat(localPath)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return Missing
	}
	return Present
}

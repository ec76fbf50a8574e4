// Package worklist computes the set of files requiring transfer and
// serializes it into the aria2c input descriptor.
package worklist

import (
	"fmt"
	"os"

	"github.com/sourcifyeth/sourcify-sync/internal/manifest"
	"github.com/sourcifyeth/sourcify-sync/internal/scan"
)

// Item is one file queued for transfer in the current pass.
type Item struct {
	Entry      manifest.Entry
	URL        string
	OutputName string
}

// Build filters entries to those classified Missing, preserving manifest
// order, and resolves flattened-name collisions.
//
// Collision policy: when two entries collapse to the same output name,
// the last entry in manifest order wins. The surviving item keeps the
// list position where the name first appeared, so output order still
// follows the manifest. Deterministic by construction.
func Build(entries []manifest.Entry, statuses map[string]scan.Status, baseURL string) []Item {
	items := make([]Item, 0, len(entries))
	byName := make(map[string]int, len(entries))

	for _, entry := range entries {
		if statuses[entry.RemotePath] == scan.Present {
			continue
		}

		item := Item{
			Entry:      entry,
			URL:        entry.URL(baseURL),
			OutputName: entry.OutputName(),
		}

		if idx, seen := byName[item.OutputName]; seen {
			items[idx] = item
			continue
		}
		byName[item.OutputName] = len(items)
		items = append(items, item)
	}
	return items
}

// EnsureDir idempotently creates the download directory. Failure is fatal
// for the run: no partial transfer list is ever launched.
func EnsureDir(downloadDir string) error {
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory %s: %w", downloadDir, err)
	}
	return nil
}

// WriteInputFile writes the aria2c input descriptor to a temp file and
// returns its path. The caller removes it after the transfer pass.
//
// aria2c input format, one block per file:
//
//	URL
//	  out=filename
func WriteInputFile(items []Item) (string, error) {
	f, err := os.CreateTemp("", "aria2c_input_*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create aria2c input file: %w", err)
	}

	for _, item := range items {
		if _, err := fmt.Fprintf(f, "%s\n  out=%s\n", item.URL, item.OutputName); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write aria2c input file: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close aria2c input file: %w", err)
	}
	return f.Name(), nil
}

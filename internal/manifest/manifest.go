// Package manifest fetches and parses the Sourcify export manifest.
//
// The manifest is a single JSON document enumerating every exported file,
// grouped by category:
//
//	{
//	  "timestamp": 1700000000,
//	  "dateStr": "2023-11-14",
//	  "files": {
//	    "code": ["code/code_0.parquet", ...],
//	    "contracts": [{"path": "contracts/contracts_0.parquet", "size": 123}, ...]
//	  }
//	}
//
// Category lists hold either bare path strings or path/size records; both
// forms are accepted. A structural error anywhere rejects the whole
// manifest - a partial file list risks silently missing files.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
)

// Sentinel errors for the two failure classes of manifest handling.
var (
	// ErrMalformedManifest indicates the manifest document is missing
	// required fields or has the wrong shape.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrManifestFetch indicates the manifest could not be retrieved.
	ErrManifestFetch = errors.New("manifest fetch failed")
)

// Entry is one file listed in the manifest. Immutable once parsed;
// identity is RemotePath.
type Entry struct {
	RemotePath string // manifest-relative path, e.g. "code/code_0.parquet"
	Size       int64  // declared size in bytes; 0 when the manifest omits it
}

// URL returns the absolute download URL for the entry. baseURL must end
// with a slash (config derives it that way from the manifest URL).
func (e Entry) URL(baseURL string) string {
	return baseURL + e.RemotePath
}

// OutputName returns the flattened local filename for the entry.
func (e Entry) OutputName() string {
	return Flatten(e.RemotePath)
}

// Flatten maps a remote hierarchical path to a single local filename with
// no subdirectories. Entries from different remote subdirectories that
// collapse to the same name refer to the same local artifact; the work
// list builder resolves such collisions (last manifest entry wins).
func Flatten(remotePath string) string {
	return path.Base(remotePath)
}

// document mirrors the manifest JSON. Category values are kept raw so
// both the string-list and record-list forms can be decoded.
type document struct {
	Timestamp int64                      `json:"timestamp"`
	DateStr   string                     `json:"dateStr"`
	Files     map[string]json.RawMessage `json:"files"`
}

type record struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Parse decodes a manifest document into its ordered entry list.
// Categories are iterated in sorted name order so the result is
// deterministic; within a category, list order is preserved.
func Parse(data []byte) ([]Entry, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	if len(doc.Files) == 0 {
		return nil, fmt.Errorf("%w: no files section", ErrMalformedManifest)
	}

	categories := make([]string, 0, len(doc.Files))
	for name := range doc.Files {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var entries []Entry
	for _, category := range categories {
		list, err := parseCategory(category, doc.Files[category])
		if err != nil {
			return nil, err
		}
		entries = append(entries, list...)
	}
	return entries, nil
}

func parseCategory(name string, raw json.RawMessage) ([]Entry, error) {
	// Try the plain path-list form first; it is what the exporter emits.
	var paths []string
	if err := json.Unmarshal(raw, &paths); err == nil {
		entries := make([]Entry, 0, len(paths))
		for _, p := range paths {
			if p == "" {
				return nil, fmt.Errorf("%w: empty path in category %q", ErrMalformedManifest, name)
			}
			entries = append(entries, Entry{RemotePath: p})
		}
		return entries, nil
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: category %q is not a file list", ErrMalformedManifest, name)
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		if r.Path == "" {
			return nil, fmt.Errorf("%w: record without path in category %q", ErrMalformedManifest, name)
		}
		if r.Size < 0 {
			return nil, fmt.Errorf("%w: negative size for %q", ErrMalformedManifest, r.Path)
		}
		entries = append(entries, Entry{RemotePath: r.Path, Size: r.Size})
	}
	return entries, nil
}

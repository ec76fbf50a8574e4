package verify

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetVerifier validates parquet container structure: footer magic,
// file metadata, and schema consistency. Pages are never decompressed;
// page indexes and bloom filters are skipped so only the footer is read.
type parquetVerifier struct{}

func (parquetVerifier) Verify(path string) Outcome {
	f, err := os.Open(path)
	if err != nil {
		return Outcome{Status: Unreadable, Reason: err.Error()}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Outcome{Status: Unreadable, Reason: err.Error()}
	}

	pf, err := parquet.OpenFile(f, info.Size(),
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		return Outcome{Status: Corrupt, Reason: fmt.Sprintf("footer parse failed: %v", err)}
	}

	schema := pf.Schema()
	if schema == nil || len(schema.Fields()) == 0 {
		return Outcome{Status: Corrupt, Reason: "schema has no columns"}
	}

	// Declared row counts must be internally consistent.
	var rows int64
	for _, rg := range pf.RowGroups() {
		if rg.NumRows() < 0 {
			return Outcome{Status: Corrupt, Reason: "negative row group size"}
		}
		rows += rg.NumRows()
	}
	if rows != pf.NumRows() {
		return Outcome{
			Status: Corrupt,
			Reason: fmt.Sprintf("row count mismatch: metadata says %d, row groups sum to %d", pf.NumRows(), rows),
		}
	}

	return Outcome{Status: Valid}
}

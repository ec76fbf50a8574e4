package verify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type testRow struct {
	Name  string `parquet:"name"`
	Value int64  `parquet:"value"`
}

func writeParquet(t *testing.T, path string, rows []testRow) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := parquet.NewGenericWriter[testRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestForFile_Selection(t *testing.T) {
	if _, ok := ForFile("data.parquet").(parquetVerifier); !ok {
		t.Error("expected parquet verifier for .parquet")
	}
	if _, ok := ForFile("DATA.PARQUET").(parquetVerifier); !ok {
		t.Error("expected parquet verifier for uppercase extension")
	}
	if _, ok := ForFile("readme.txt").(noopVerifier); !ok {
		t.Error("expected noop verifier for .txt")
	}
	if _, ok := ForFile("noextension").(noopVerifier); !ok {
		t.Error("expected noop verifier for extensionless file")
	}
}

func TestNoopVerifier_PassesThrough(t *testing.T) {
	// Unrecognized formats are valid without inspection, even if the
	// path does not exist.
	outcome := ForFile("whatever.json").Verify("/does/not/exist.json")
	if outcome.Status != Valid {
		t.Errorf("expected Valid, got %v", outcome.Status)
	}
}

func TestParquetVerifier_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "good.parquet")
	writeParquet(t, path, []testRow{
		{Name: "a", Value: 1},
		{Name: "b", Value: 2},
	})

	outcome := ForFile(path).Verify(path)
	if outcome.Status != Valid {
		t.Errorf("expected Valid, got %v (%s)", outcome.Status, outcome.Reason)
	}
}

func TestParquetVerifier_GarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")
	if err := os.WriteFile(path, []byte("this is not a parquet file at all"), 0644); err != nil {
		t.Fatal(err)
	}

	outcome := ForFile(path).Verify(path)
	if outcome.Status != Corrupt {
		t.Errorf("expected Corrupt, got %v", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Error("expected a reason for corruption")
	}
}

func TestParquetVerifier_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.parquet")
	writeParquet(t, path, []testRow{{Name: "a", Value: 1}})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)/2], 0644); err != nil {
		t.Fatal(err)
	}

	outcome := ForFile(path).Verify(path)
	if outcome.Status != Corrupt {
		t.Errorf("expected Corrupt for truncated file, got %v", outcome.Status)
	}
}

func TestParquetVerifier_MissingFile(t *testing.T) {
	outcome := ForFile("gone.parquet").Verify(filepath.Join(t.TempDir(), "gone.parquet"))
	if outcome.Status != Unreadable {
		t.Errorf("expected Unreadable, got %v", outcome.Status)
	}
}

func TestParquetVerifier_DoesNotMutate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.parquet")
	writeParquet(t, path, []testRow{{Name: "a", Value: 1}})

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	ForFile(path).Verify(path)

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("verification mutated the file")
	}
}

func TestAll_MixedOutcomes(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.parquet")
	writeParquet(t, good, []testRow{{Name: "a", Value: 1}})

	bad := filepath.Join(dir, "bad.parquet")
	if err := os.WriteFile(bad, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	outcomes := All([]string{good, bad, other}, 4, nil)

	if outcomes[good].Status != Valid {
		t.Errorf("expected %s valid, got %v", good, outcomes[good].Status)
	}
	if outcomes[bad].Status != Corrupt {
		t.Errorf("expected %s corrupt, got %v", bad, outcomes[bad].Status)
	}
	if outcomes[other].Status != Valid {
		t.Errorf("expected %s valid (pass-through), got %v", other, outcomes[other].Status)
	}
}

func TestAll_ProgressAndBoundedWorkers(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 8; i++ {
		p := filepath.Join(dir, "f"+string(rune('0'+i))+".txt")
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	var mu sync.Mutex
	var calls int
	var lastDone int
	outcomes := All(paths, 2, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastDone = done
		if total != 8 {
			t.Errorf("expected total 8, got %d", total)
		}
	})

	if len(outcomes) != 8 {
		t.Fatalf("expected 8 outcomes, got %d", len(outcomes))
	}
	if calls != 8 || lastDone != 8 {
		t.Errorf("expected 8 progress calls ending at 8, got %d ending at %d", calls, lastDone)
	}
}

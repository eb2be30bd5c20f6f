package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateGoldenEnv, when set to a non-empty value, makes CompareGoldenJSON
// rewrite golden files instead of comparing against them.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// CompareGoldenJSON marshals actual as indented JSON and compares it with the
// golden file at path. Surrounding whitespace is ignored. A missing golden
// file, or UPDATE_GOLDEN set, writes the file instead.
func CompareGoldenJSON(t testing.TB, path string, actual any) {
	t.Helper()

	got, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON for golden file %s: %v", path, err)
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) || os.Getenv(UpdateGoldenEnv) != "" {
		writeGolden(t, path, got)
		return
	}
	if err != nil {
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, want, got)
	}
}

func writeGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
	t.Logf("wrote golden file %s", path)
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// MemoryDSN returns a sqlite DSN for a shared in-memory database private to
// the calling test. Connections opened with the same DSN see the same data.
func MemoryDSN(t testing.TB) string {
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

package workflow_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recorder2rc/internal/archive"
	"recorder2rc/internal/config"
	"recorder2rc/internal/history"
	"recorder2rc/internal/logging"
	"recorder2rc/internal/testsupport"
	"recorder2rc/internal/workflow"
)

var fixedNow = time.Date(2025, 3, 5, 9, 30, 0, 0, time.UTC)

func newConverter(t *testing.T, cfg *config.Config, store *history.Store) *workflow.Converter {
	t.Helper()
	opts := []workflow.Option{workflow.WithClock(func() time.Time { return fixedNow })}
	if store != nil {
		opts = append(opts, workflow.WithHistory(store))
	}
	converter, err := workflow.New(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	return converter
}

// secondJohn is a one-chapter book with 13 verses.
func secondJohn(mode string) testsupport.Fixture {
	return testsupport.Fixture{
		Language:       "en",
		Resource:       "ulb",
		Book:           "2jn",
		BookName:       "2 John",
		BookNumber:     63,
		Mode:           mode,
		SourceLanguage: "en",
	}
}

// verseTakes returns one selected take per verse from 1 to last.
func verseTakes(chapter, last, frames int) []testsupport.FixtureTake {
	var out []testsupport.FixtureTake
	for v := 1; v <= last; v++ {
		out = append(out, testsupport.FixtureTake{
			Chapter:  chapter,
			Start:    v,
			Take:     1,
			Frames:   frames,
			Markers:  testsupport.VerseMarkers(v, v, 0),
			Selected: true,
		})
	}
	return out
}

func selectedLines(t *testing.T, entries map[string][]byte) []string {
	t.Helper()
	data, ok := entries[".apps/orature/selected.txt"]
	if !ok {
		t.Fatal("selected.txt missing from container")
	}
	if len(data) == 0 {
		return nil
	}
	return strings.Split(string(data), "\n")
}

func extractContainer(t *testing.T, zipPath string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "rc")
	if err := archive.Extract(zipPath, dir); err != nil {
		t.Fatalf("extract container: %v", err)
	}
	return filepath.Join(dir, ".apps", "orature", "takes")
}

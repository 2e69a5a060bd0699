package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/history"
	"recorder2rc/internal/rcmanifest"
	"recorder2rc/internal/services"
	"recorder2rc/internal/testsupport"
	"recorder2rc/internal/workflow"
)

func TestConvertVerseProjectRetainsCompleteChapter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	fixture := secondJohn("verse")
	fixture.Takes = verseTakes(1, 13, 20)
	fixture.Takes = append(fixture.Takes, testsupport.FixtureTake{Chapter: 1, Start: 2, Take: 2, Frames: 20})
	input := testsupport.BuildProject(t, fixture)
	outDir := t.TempDir()

	report, err := newConverter(t, cfg, store).Convert(context.Background(), input, outDir)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if report.OutputPath != filepath.Join(outDir, "en_ulb_2jn_converted.zip") {
		t.Fatalf("output path = %q", report.OutputPath)
	}
	if len(report.Chapters) != 1 || !report.Chapters[0].Retained {
		t.Fatalf("chapters = %+v", report.Chapters)
	}
	if report.Chapters[0].Frames != 13*20 || report.Chapters[0].VerseFiles != 13 {
		t.Fatalf("chapter report = %+v", report.Chapters[0])
	}

	entries := testsupport.ReadZip(t, report.OutputPath)
	lines := selectedLines(t, entries)
	if len(lines) != 14 {
		t.Fatalf("selected.txt has %d lines: %v", len(lines), lines)
	}
	if lines[0] != "c01/en_ulb_2jn_c01_v1_t1.wav" || lines[13] != "c01/en_ulb_2jn_c01_meta_t1.wav" {
		t.Fatalf("selected.txt = %v", lines)
	}
	for _, name := range []string{
		".apps/orature/takes/c01/en_ulb_2jn_c01_meta_t1.wav",
		".apps/orature/takes/c01/en_ulb_2jn_c01_v13_t1.wav",
		".apps/orature/takes/c01/en_ulb_2jn_c01_v2_t2.wav",
		"manifest.yaml",
	} {
		if _, ok := entries[name]; !ok {
			t.Fatalf("container missing %s", name)
		}
	}
	if slices.Contains(lines, "c01/en_ulb_2jn_c01_v2_t2.wav") {
		t.Fatal("alternate take must not be registered")
	}

	takesDir := extractContainer(t, report.OutputPath)
	port := testsupport.MustPort(t)
	chapterFile := filepath.Join(takesDir, "c01", "en_ulb_2jn_c01_meta_t1.wav")
	frames, err := port.FrameCount(chapterFile)
	if err != nil || frames != 260 {
		t.Fatalf("chapter frames = %d, %v", frames, err)
	}
	markers, err := port.Markers(chapterFile)
	if err != nil || len(markers) != 13 {
		t.Fatalf("chapter markers = %+v, %v", markers, err)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v, %v", run, err)
	}
	if run.Status != history.StatusCompleted || run.Book != "2jn" || run.OutputPath != report.OutputPath {
		t.Fatalf("run = %+v", run)
	}
	chapters, err := store.ChaptersForRun(context.Background(), report.RunID)
	if err != nil || len(chapters) != 1 || !chapters[0].Retained {
		t.Fatalf("chapters = %+v, %v", chapters, err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkDir, "run-"+report.RunID)); !os.IsNotExist(err) {
		t.Fatal("run directory should be removed after conversion")
	}
}

func TestConvertDiscardsIncompleteChapter(t *testing.T) {
	for _, cascade := range []bool{false, true} {
		name := "keep verses"
		if cascade {
			name = "cascade"
		}
		t.Run(name, func(t *testing.T) {
			var opts []testsupport.ConfigOption
			if cascade {
				opts = append(opts, testsupport.WithCascadeDiscard())
			}
			cfg := testsupport.NewConfig(t, opts...)

			fixture := secondJohn("verse")
			fixture.Takes = verseTakes(1, 12, 10)
			input := testsupport.BuildProject(t, fixture)

			report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, t.TempDir())
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			chapter := report.Chapters[0]
			if chapter.Retained || chapter.Reason != "missing verses 13" {
				t.Fatalf("chapter = %+v", chapter)
			}

			entries := testsupport.ReadZip(t, report.OutputPath)
			if _, ok := entries[".apps/orature/takes/c01/en_ulb_2jn_c01_meta_t1.wav"]; ok {
				t.Fatal("discarded chapter file was packaged")
			}
			lines := selectedLines(t, entries)
			_, verseInZip := entries[".apps/orature/takes/c01/en_ulb_2jn_c01_v1_t1.wav"]
			if cascade {
				if len(lines) != 0 || verseInZip {
					t.Fatalf("cascade left verse files: %v", lines)
				}
				return
			}
			if len(lines) != 12 || !verseInZip {
				t.Fatalf("verse files should stay registered: %v", lines)
			}
		})
	}
}

func TestConvertChunkProjectSplitsVerses(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBufferFrames(7))

	fixture := secondJohn("chunk")
	fixture.Takes = []testsupport.FixtureTake{
		{Chapter: 1, Start: 1, End: 6, Take: 1, Frames: 60, Markers: testsupport.VerseMarkers(1, 6, 10), Selected: true},
		{Chapter: 1, Start: 1, End: 6, Take: 2, Frames: 60, Markers: testsupport.VerseMarkers(1, 6, 10)},
		{Chapter: 1, Start: 7, End: 13, Take: 3, Frames: 70, Markers: testsupport.VerseMarkers(7, 13, 10), Selected: true},
	}
	input := testsupport.BuildProject(t, fixture)

	report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, t.TempDir())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	chapter := report.Chapters[0]
	if !chapter.Retained || chapter.VerseFiles != 13 || chapter.Frames != 130 {
		t.Fatalf("chapter = %+v", chapter)
	}

	entries := testsupport.ReadZip(t, report.OutputPath)
	lines := selectedLines(t, entries)
	if len(lines) != 14 || lines[6] != "c01/en_ulb_2jn_c01_v7_t1.wav" {
		t.Fatalf("selected.txt = %v", lines)
	}
	for name := range entries {
		if strings.Contains(name, "_t2.wav") || strings.Contains(name, "_t3.wav") {
			t.Fatalf("chunk takes must not be copied into the container: %s", name)
		}
	}

	takesDir := extractContainer(t, report.OutputPath)
	port := testsupport.MustPort(t)
	verse := filepath.Join(takesDir, "c01", "en_ulb_2jn_c01_v9_t1.wav")
	if frames, err := port.FrameCount(verse); err != nil || frames != 10 {
		t.Fatalf("verse frames = %d, %v", frames, err)
	}
	markers, err := port.Markers(verse)
	if err != nil || len(markers) != 1 || markers[0].Label != "9" || markers[0].FrameOffset != 0 {
		t.Fatalf("verse markers = %+v, %v", markers, err)
	}
}

func TestConvertKeepsVerseFilesInsideChapterDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	fixture := secondJohn("chunk")
	markers := testsupport.VerseMarkers(1, 13, 10)
	markers = append(markers, audio.Marker{FrameOffset: 125, Label: "/../../../../../../escaped"})
	fixture.Takes = []testsupport.FixtureTake{
		{Chapter: 1, Start: 1, End: 13, Take: 1, Frames: 130, Markers: markers, Selected: true},
	}
	input := testsupport.BuildProject(t, fixture)

	report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, t.TempDir())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	entries := testsupport.ReadZip(t, report.OutputPath)
	for name := range entries {
		if strings.Contains(name, "..") {
			t.Fatalf("container entry escapes its directory: %s", name)
		}
	}
	if _, ok := entries[".apps/orature/takes/c01/en_ulb_2jn_c01_vescaped_t1.wav"]; !ok {
		t.Fatal("label should be reduced to a file name inside c01")
	}
	if !slices.Contains(selectedLines(t, entries), "c01/en_ulb_2jn_c01_vescaped_t1.wav") {
		t.Fatal("sanitized verse missing from selected.txt")
	}

	err = filepath.WalkDir(filepath.Dir(cfg.Paths.WorkDir), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), "escaped") && filepath.Base(filepath.Dir(path)) != "c01" {
			t.Errorf("verse written outside the chapter directory: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk work dir: %v", err)
	}
}

func TestConvertStopsWhenCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixture := secondJohn("verse")
	fixture.Takes = verseTakes(1, 13, 5)
	input := testsupport.BuildProject(t, fixture)
	outDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newConverter(t, cfg, nil).Convert(ctx, input, outDir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report != nil && len(report.Chapters) != 0 {
		t.Fatalf("cancelled run processed chapters: %+v", report.Chapters)
	}
	if _, statErr := os.Stat(workflow.OutputPath(input, outDir)); !os.IsNotExist(statErr) {
		t.Fatal("cancelled run must not emit a container")
	}
}

func TestConvertSkipsChapterWithoutSelectedTakes(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	fixture := testsupport.Fixture{
		Language: "en", Resource: "ulb", Book: "rut", BookName: "Ruth", BookNumber: 8, Mode: "verse",
	}
	fixture.Takes = verseTakes(1, 22, 5)
	fixture.Takes = append(fixture.Takes, testsupport.FixtureTake{Chapter: 2, Start: 1, Take: 1, Frames: 5})
	fixture.ExtraChapters = []int{3}
	input := testsupport.BuildProject(t, fixture)

	report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, t.TempDir())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(report.Chapters) != 3 || report.Skipped() != 2 || report.Retained() != 1 {
		t.Fatalf("chapters = %+v", report.Chapters)
	}
	entries := testsupport.ReadZip(t, report.OutputPath)
	for name := range entries {
		if strings.Contains(name, "/c02/") || strings.Contains(name, "/c03/") {
			t.Fatalf("skipped chapter produced %s", name)
		}
	}
}

func TestConvertRejectsUnknownBook(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	fixture := secondJohn("verse")
	fixture.Book = "zzz"
	fixture.Takes = []testsupport.FixtureTake{
		{Chapter: 1, Start: 1, Take: 1, Frames: 5, Selected: true},
	}
	input := testsupport.BuildProject(t, fixture)
	outDir := t.TempDir()

	report, err := newConverter(t, cfg, store).Convert(context.Background(), input, outDir)
	if !errors.Is(err, services.ErrUnknownBook) {
		t.Fatalf("expected ErrUnknownBook, got %v", err)
	}
	if _, statErr := os.Stat(workflow.OutputPath(input, outDir)); !os.IsNotExist(statErr) {
		t.Fatal("failed run must not emit a container")
	}
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil || run.Status != history.StatusRejected {
		t.Fatalf("run = %+v, %v", run, err)
	}
}

func TestConvertRejectsMalformedManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	dir := filepath.Join(t.TempDir(), "broken")
	testsupport.WriteFile(t, filepath.Join(dir, "manifest.json"), []byte(`{"language": `))
	testsupport.WriteFile(t, filepath.Join(dir, "selected.json"), []byte(`[]`))
	input := filepath.Join(t.TempDir(), "broken.zip")
	testsupport.ZipDir(t, dir, "", input)

	report, err := newConverter(t, cfg, store).Convert(context.Background(), input, t.TempDir())
	if !errors.Is(err, services.ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil || run.Status != history.StatusRejected {
		t.Fatalf("run = %+v, %v", run, err)
	}
}

func TestConvertRejectsArchiveWithoutManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := filepath.Join(t.TempDir(), "empty")
	testsupport.WriteFile(t, filepath.Join(dir, "readme.txt"), []byte("nothing here"))
	input := filepath.Join(t.TempDir(), "empty.zip")
	testsupport.ZipDir(t, dir, "", input)

	report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, t.TempDir())
	if !errors.Is(err, services.ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
	if report != nil {
		t.Fatalf("preflight failure should not start a run: %+v", report)
	}
}

func TestConvertMissingTakeFailsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	fixture := secondJohn("verse")
	fixture.Takes = verseTakes(1, 13, 5)
	fixture.Takes[4].Missing = true
	input := testsupport.BuildProject(t, fixture)
	outDir := t.TempDir()

	report, err := newConverter(t, cfg, store).Convert(context.Background(), input, outDir)
	if !errors.Is(err, services.ErrStreamIO) {
		t.Fatalf("expected ErrStreamIO, got %v", err)
	}
	if _, statErr := os.Stat(workflow.OutputPath(input, outDir)); !os.IsNotExist(statErr) {
		t.Fatal("failed run must not emit a container")
	}
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil || run.Status != history.StatusFailed {
		t.Fatalf("run = %+v, %v", run, err)
	}
}

func TestConvertWithoutHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled(), testsupport.WithoutAlternateTakes())

	fixture := secondJohn("verse")
	fixture.Takes = verseTakes(1, 13, 5)
	fixture.Takes = append(fixture.Takes, testsupport.FixtureTake{Chapter: 1, Start: 3, Take: 2, Frames: 5})
	input := testsupport.BuildProject(t, fixture)

	report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if filepath.Dir(report.OutputPath) != filepath.Dir(input) {
		t.Fatalf("output should default to the input directory, got %s", report.OutputPath)
	}
	entries := testsupport.ReadZip(t, report.OutputPath)
	if _, ok := entries[".apps/orature/takes/c01/en_ulb_2jn_c01_v3_t2.wav"]; ok {
		t.Fatal("alternate take copied with keep_alternate_takes disabled")
	}
	if report.Artifacts != 14 {
		t.Fatalf("artifacts = %d, want 14", report.Artifacts)
	}
}

func TestConvertRefusesLockedOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixture := secondJohn("verse")
	fixture.Takes = verseTakes(1, 13, 5)
	input := testsupport.BuildProject(t, fixture)
	outDir := t.TempDir()

	lock := flock.New(filepath.Join(outDir, workflow.LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v, %v", ok, err)
	}
	defer lock.Unlock()

	if _, err := newConverter(t, cfg, nil).Convert(context.Background(), input, outDir); !errors.Is(err, workflow.ErrOutputLocked) {
		t.Fatalf("expected ErrOutputLocked, got %v", err)
	}
}

func TestConvertInstallsSourceFromCatalog(t *testing.T) {
	sourceDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(sourceDir, "gl_sources.json"),
		[]byte(`[{"languageCode":"en","matchingSource":"en_ulb"}]`))
	rc := filepath.Join(t.TempDir(), "en_ulb")
	testsupport.WriteFile(t, filepath.Join(rc, "manifest.yaml"), []byte("dublin_core:\n  version: \"12\"\n"))
	testsupport.ZipDir(t, rc, "en_ulb", filepath.Join(sourceDir, "en_ulb.zip"))

	cfg := testsupport.NewConfig(t, testsupport.WithSourceDir(sourceDir))
	fixture := secondJohn("verse")
	fixture.Takes = verseTakes(1, 13, 5)
	input := testsupport.BuildProject(t, fixture)

	report, err := newConverter(t, cfg, nil).Convert(context.Background(), input, t.TempDir())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	entries := testsupport.ReadZip(t, report.OutputPath)
	if _, ok := entries[".apps/orature/source/en_ulb.zip"]; !ok {
		t.Fatal("source resource not packaged")
	}

	var doc rcmanifest.Manifest
	if err := yaml.Unmarshal(entries["manifest.yaml"], &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(doc.DublinCore.Source) != 1 || doc.DublinCore.Source[0].Version != "12" || doc.DublinCore.Source[0].Language != "en" {
		t.Fatalf("source = %+v", doc.DublinCore.Source)
	}
	if doc.DublinCore.Issued != "2025-03-05" || doc.Projects[0].Identifier != "2jn" {
		t.Fatalf("manifest = %+v", doc)
	}
}

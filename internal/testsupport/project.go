package testsupport

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"recorder2rc/internal/audio"
)

// FixtureTake describes one recorded take in a fixture project.
type FixtureTake struct {
	Chapter  int
	Start    int
	End      int
	Take     int
	Frames   int
	Markers  []audio.Marker
	Selected bool
	// Missing lists the take in the manifest without writing its file.
	Missing bool
}

// Fixture describes a recorder project archive.
type Fixture struct {
	Language       string
	Resource       string
	Book           string
	BookName       string
	BookNumber     int
	Mode           string
	SourceLanguage string
	// ExtraChapters are listed in the manifest without any chunks.
	ExtraChapters []int
	Takes         []FixtureTake
}

// TakeName returns the recorder file name of take.
func (f Fixture) TakeName(take FixtureTake) string {
	verses := fmt.Sprintf("v%02d", take.Start)
	if take.End > take.Start {
		verses = fmt.Sprintf("v%02d-%02d", take.Start, take.End)
	}
	return fmt.Sprintf("%s_%s_b%02d_%s_c%02d_%s_t%02d.wav",
		f.Language, f.Resource, f.BookNumber, f.Book, take.Chapter, verses, take.Take)
}

// VerseMarkers returns one marker per verse from start to end, spacing
// frames apart, beginning at offset 0.
func VerseMarkers(start, end, spacing int) []audio.Marker {
	var markers []audio.Marker
	for v := start; v <= end; v++ {
		markers = append(markers, audio.Marker{FrameOffset: int64((v - start) * spacing), Label: fmt.Sprint(v)})
	}
	return markers
}

// BuildProject writes the fixture as a recorder zip archive and returns its
// path. The project sits in a top-level directory inside the archive, the way
// the recorder app exports it.
func BuildProject(t testing.TB, f Fixture) string {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "project")

	type take struct {
		Name   string `json:"name"`
		Rating int    `json:"rating"`
	}
	type chunk struct {
		Start int    `json:"startv"`
		End   int    `json:"endv"`
		Takes []take `json:"takes"`
	}
	type chapter struct {
		Number        int     `json:"chapter"`
		CheckingLevel int     `json:"checking_level"`
		Chunks        []chunk `json:"chunks"`
	}

	chapters := map[int]*chapter{}
	for _, n := range f.ExtraChapters {
		chapters[n] = &chapter{Number: n, Chunks: []chunk{}}
	}
	var selected []string
	for i, tk := range f.Takes {
		if tk.End == 0 {
			tk.End = tk.Start
		}
		if tk.Take == 0 {
			tk.Take = 1
		}
		name := f.TakeName(tk)
		if !tk.Missing {
			WriteWAV(t, filepath.Join(root, fmt.Sprintf("%02d", tk.Chapter), name), tk.Frames, byte(i*17), tk.Markers...)
		}
		if tk.Selected {
			selected = append(selected, name)
		}

		ch, ok := chapters[tk.Chapter]
		if !ok {
			ch = &chapter{Number: tk.Chapter}
			chapters[tk.Chapter] = ch
		}
		idx := slices.IndexFunc(ch.Chunks, func(c chunk) bool { return c.Start == tk.Start })
		if idx < 0 {
			ch.Chunks = append(ch.Chunks, chunk{Start: tk.Start, End: tk.End})
			idx = len(ch.Chunks) - 1
		}
		ch.Chunks[idx].Takes = append(ch.Chunks[idx].Takes, take{Name: name, Rating: 3})
	}

	numbers := make([]int, 0, len(chapters))
	for n := range chapters {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	list := make([]chapter, 0, len(numbers))
	for _, n := range numbers {
		list = append(list, *chapters[n])
	}

	doc := map[string]any{
		"language":  map[string]string{"slug": f.Language, "name": f.Language},
		"book":      map[string]any{"name": f.BookName, "slug": f.Book, "number": fmt.Sprintf("%02d", f.BookNumber)},
		"version":   map[string]string{"slug": f.Resource, "name": f.Resource},
		"anthology": map[string]string{"slug": "ot", "name": "Old Testament"},
		"mode":      map[string]string{"slug": f.Mode},
		"manifest":  list,
	}
	if f.SourceLanguage != "" {
		doc["source_language"] = map[string]string{"slug": f.SourceLanguage, "name": f.SourceLanguage}
	}
	manifestJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	WriteFile(t, filepath.Join(root, "manifest.json"), manifestJSON)

	if selected == nil {
		selected = []string{}
	}
	selectedJSON, err := json.Marshal(selected)
	if err != nil {
		t.Fatalf("marshal selection: %v", err)
	}
	WriteFile(t, filepath.Join(root, "selected.json"), selectedJSON)

	zipPath := filepath.Join(base, fmt.Sprintf("%s_%s_%s.zip", f.Language, f.Resource, f.Book))
	ZipDir(t, root, fmt.Sprintf("%s_%s", f.Language, f.Book), zipPath)
	return zipPath
}

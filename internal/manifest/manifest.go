package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"recorder2rc/internal/services"
)

const (
	// FileName is the project manifest inside a recorder archive.
	FileName = "manifest.json"
	// SelectionFileName lists the approved take file names.
	SelectionFileName = "selected.json"
	// ModeChunk marks projects recorded in multi-verse chunks that must be
	// split back into verses.
	ModeChunk = "chunk"
	// ModeVerse marks projects recorded one verse per chunk.
	ModeVerse = "verse"
)

// Language identifies the target or source language of a project.
type Language struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Direction string `json:"direction,omitempty"`
}

// Book identifies the recorded book. Number is the canonical sort position.
type Book struct {
	Name   string     `json:"name"`
	Slug   string     `json:"slug"`
	Number flexNumber `json:"number"`
}

// Sort returns the book's numeric position.
func (b Book) Sort() int {
	return int(b.Number)
}

// Version is the translation resource, e.g. ulb.
type Version struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Anthology is the testament the book belongs to.
type Anthology struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Mode describes how the project was recorded.
type Mode struct {
	Slug string `json:"slug"`
	Type string `json:"type,omitempty"`
}

// Take is one candidate recording.
type Take struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

// Chunk is a verse range with its candidate takes.
type Chunk struct {
	StartVerse int    `json:"startv"`
	EndVerse   int    `json:"endv"`
	Takes      []Take `json:"takes"`
}

// Chapter groups the chunks recorded for one chapter.
type Chapter struct {
	Number        int     `json:"chapter"`
	CheckingLevel int     `json:"checking_level"`
	Chunks        []Chunk `json:"chunks"`
}

// Manifest is the decoded manifest.json.
type Manifest struct {
	Language       Language  `json:"language"`
	SourceLanguage *Language `json:"source_language,omitempty"`
	Book           Book      `json:"book"`
	Version        Version   `json:"version"`
	Anthology      Anthology `json:"anthology"`
	Mode           Mode      `json:"mode"`
	Chapters       []Chapter `json:"manifest"`
}

// flexNumber accepts "01" as well as 1.
type flexNumber int

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if text == "" || text == "null" {
		*n = 0
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("book number %s: %w", data, err)
	}
	*n = flexNumber(value)
	return nil
}

// Parse decodes and validates a manifest.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", services.ErrMalformedManifest, FileName, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", services.ErrMalformedManifest, FileName, err)
	}
	defer file.Close()
	return Parse(file)
}

// Validate checks the structural rules every conversion relies on. Duplicate
// chunk start verses are left to the take selector, which owns chunk ordering.
func (m *Manifest) Validate() error {
	var problems []string
	if strings.TrimSpace(m.Language.Slug) == "" {
		problems = append(problems, "language.slug is empty")
	}
	if strings.TrimSpace(m.Book.Slug) == "" {
		problems = append(problems, "book.slug is empty")
	}
	if strings.TrimSpace(m.Version.Slug) == "" {
		problems = append(problems, "version.slug is empty")
	}
	seen := make(map[int]struct{}, len(m.Chapters))
	for _, chapter := range m.Chapters {
		if chapter.Number < 1 {
			problems = append(problems, fmt.Sprintf("chapter number %d is not positive", chapter.Number))
			continue
		}
		if _, dup := seen[chapter.Number]; dup {
			problems = append(problems, fmt.Sprintf("chapter %d listed twice", chapter.Number))
		}
		seen[chapter.Number] = struct{}{}
		for _, chunk := range chapter.Chunks {
			if chunk.StartVerse < 1 || chunk.EndVerse < chunk.StartVerse {
				problems = append(problems, fmt.Sprintf("chapter %d: invalid verse range %d-%d", chapter.Number, chunk.StartVerse, chunk.EndVerse))
			}
			for _, take := range chunk.Takes {
				if strings.TrimSpace(take.Name) == "" {
					problems = append(problems, fmt.Sprintf("chapter %d chunk %d: take without name", chapter.Number, chunk.StartVerse))
				}
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", services.ErrMalformedManifest, strings.Join(problems, "; "))
	}
	return nil
}

// Segmented reports whether compiled chapters must be split into verse files.
func (m *Manifest) Segmented() bool {
	return strings.EqualFold(strings.TrimSpace(m.Mode.Slug), ModeChunk)
}

// SourceLanguageSlug returns the source language, or fallback when the
// project does not name one.
func (m *Manifest) SourceLanguageSlug(fallback string) string {
	if m.SourceLanguage != nil {
		if slug := strings.TrimSpace(m.SourceLanguage.Slug); slug != "" {
			return slug
		}
	}
	return fallback
}

// SortedChapters returns the chapters in ascending order.
func (m *Manifest) SortedChapters() []Chapter {
	chapters := slices.Clone(m.Chapters)
	slices.SortStableFunc(chapters, func(a, b Chapter) int {
		return a.Number - b.Number
	})
	return chapters
}

var takeNumberPattern = regexp.MustCompile(`_t(\d+)`)

// TakeNumber extracts the take number from a recorder file name such as
// "en_ulb_b01_gen_c01_v01_t03.wav". Names without a take suffix count as take 1.
func TakeNumber(name string) int {
	match := takeNumberPattern.FindStringSubmatch(name)
	if match == nil {
		return 1
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

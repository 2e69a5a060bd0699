// Package versification loads the verse-count reference used to judge whether
// a recorded chapter is complete. A Table is immutable after loading and is
// safe to share between goroutines.
package versification

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recorder2rc/internal/config"
	"recorder2rc/internal/services"
)

// DefaultName is the name of the embedded English versification.
const DefaultName = "eng"

//go:embed eng.json
var englishData []byte

var embedded = sync.OnceValues(func() (*Table, error) {
	return Load(bytes.NewReader(englishData), DefaultName)
})

// Table maps upper-case book codes to verse counts per chapter.
type Table struct {
	name  string
	books map[string][]int
}

type document struct {
	MaxVerses map[string][]verseCount `json:"maxVerses"`
}

// verseCount accepts both "31" and 31.
type verseCount int

func (v *verseCount) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("verse count %s: %w", data, err)
	}
	*v = verseCount(n)
	return nil
}

// Embedded returns the built-in English versification.
func Embedded() (*Table, error) {
	return embedded()
}

// Load parses a versification document of the form {"maxVerses": {"GEN": ["31", ...]}}.
func Load(r io.Reader, name string) (*Table, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode versification %s: %w", name, err)
	}
	if len(doc.MaxVerses) == 0 {
		return nil, fmt.Errorf("versification %s: no books", name)
	}
	table := &Table{name: name, books: make(map[string][]int, len(doc.MaxVerses))}
	for book, counts := range doc.MaxVerses {
		code := normalizeBook(book)
		if code == "" {
			return nil, fmt.Errorf("versification %s: empty book code", name)
		}
		chapters := make([]int, len(counts))
		for i, count := range counts {
			if count <= 0 {
				return nil, fmt.Errorf("versification %s: %s %d has %d verses", name, code, i+1, count)
			}
			chapters[i] = int(count)
		}
		table.books[code] = chapters
	}
	return table, nil
}

// LoadFile reads a versification document from disk.
func LoadFile(path, name string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open versification: %w", err)
	}
	defer file.Close()
	return Load(file, name)
}

// FromConfig loads conversion.versification_path, falling back to the
// embedded table when it is empty.
func FromConfig(cfg config.Conversion) (*Table, error) {
	if strings.TrimSpace(cfg.VersificationPath) == "" {
		return Embedded()
	}
	name := cfg.Versification
	if name == "" {
		name = DefaultName
	}
	table, err := LoadFile(cfg.VersificationPath, name)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "versification", "load", cfg.VersificationPath, err)
	}
	return table, nil
}

// Name identifies the versification, e.g. "eng".
func (t *Table) Name() string {
	return t.name
}

// VerseCount returns the number of verses in chapter (1-based) of book.
func (t *Table) VerseCount(book string, chapter int) (int, error) {
	chapters, ok := t.books[normalizeBook(book)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", services.ErrUnknownBook, book)
	}
	if chapter < 1 || chapter > len(chapters) {
		return 0, fmt.Errorf("%w: %s has %d chapters, got %d", services.ErrChapterOutOfRange, normalizeBook(book), len(chapters), chapter)
	}
	return chapters[chapter-1], nil
}

// ChapterCount returns the number of chapters in book.
func (t *Table) ChapterCount(book string) (int, error) {
	chapters, ok := t.books[normalizeBook(book)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", services.ErrUnknownBook, book)
	}
	return len(chapters), nil
}

// Books returns the book codes in sorted order.
func (t *Table) Books() []string {
	codes := make([]string, 0, len(t.books))
	for code := range t.books {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

func normalizeBook(book string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(book))
}

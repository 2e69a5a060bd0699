package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"recorder2rc/internal/services"
)

// Selection is the set of approved take file names.
type Selection map[string]struct{}

// NewSelection builds a selection from raw names.
func NewSelection(names ...string) Selection {
	s := make(Selection, len(names))
	for _, name := range names {
		if key := selectionKey(name); key != "" {
			s[key] = struct{}{}
		}
	}
	return s
}

// ParseSelection decodes a selected.json array.
func ParseSelection(r io.Reader) (Selection, error) {
	var names []string
	if err := json.NewDecoder(r).Decode(&names); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", services.ErrMalformedManifest, SelectionFileName, err)
	}
	return NewSelection(names...), nil
}

// LoadSelection reads selected.json.
func LoadSelection(filename string) (Selection, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", services.ErrMalformedManifest, SelectionFileName, err)
	}
	defer file.Close()
	return ParseSelection(file)
}

// Contains reports whether the take file name is approved.
func (s Selection) Contains(name string) bool {
	_, ok := s[selectionKey(name)]
	return ok
}

func selectionKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

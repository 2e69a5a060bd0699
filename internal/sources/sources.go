// Package sources resolves the source resource a recording was made from.
//
// A catalog directory holds gl_sources.json, which maps language codes to
// resource container names, and the matching <name>.zip files either next to
// it or under sources/.
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recorder2rc/internal/fileutil"
	"recorder2rc/internal/rcmanifest"
	"recorder2rc/internal/services"
)

// CatalogFileName is the language mapping inside a catalog directory.
const CatalogFileName = "gl_sources.json"

// ErrNoMatchingSource is returned when the catalog has no resource for a language.
var ErrNoMatchingSource = errors.New("no matching source")

type mapping struct {
	LanguageCode   string `json:"languageCode"`
	MatchingSource string `json:"matchingSource"`
}

// Catalog maps gateway languages to source resource archives.
type Catalog struct {
	dir      string
	mappings map[string]string
}

// Open reads the catalog in dir. It returns a nil catalog without error when
// dir is empty or holds no catalog file.
func Open(dir string) (*Catalog, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, CatalogFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sources", "read catalog", dir, err)
	}

	var entries []mapping
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sources", "decode catalog", CatalogFileName, err)
	}
	catalog := &Catalog{dir: dir, mappings: make(map[string]string, len(entries))}
	for _, entry := range entries {
		code := strings.TrimSpace(entry.LanguageCode)
		name := strings.TrimSpace(entry.MatchingSource)
		if code == "" || name == "" {
			continue
		}
		catalog.mappings[code] = name
	}
	return catalog, nil
}

// Len returns the number of mapped languages.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.mappings)
}

// Lookup returns the archive path of the resource mapped to languageCode.
func (c *Catalog) Lookup(languageCode string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w for %q: no catalog", ErrNoMatchingSource, languageCode)
	}
	name, ok := c.mappings[strings.TrimSpace(languageCode)]
	if !ok {
		return "", fmt.Errorf("%w for %q", ErrNoMatchingSource, languageCode)
	}
	for _, candidate := range []string{
		filepath.Join(c.dir, name+".zip"),
		filepath.Join(c.dir, "sources", name+".zip"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q: %s.zip not found in %s", ErrNoMatchingSource, languageCode, name, c.dir)
}

// Installed describes a source resource copied into a container.
type Installed struct {
	Path    string
	Version string
}

// Install copies the resource for languageCode into destDir and reads its
// container version.
func (c *Catalog) Install(languageCode, destDir string) (Installed, error) {
	src, err := c.Lookup(languageCode)
	if err != nil {
		return Installed{}, err
	}
	version, err := rcmanifest.ReadContainerVersion(src)
	if err != nil {
		return Installed{}, fmt.Errorf("source for %q: %w", languageCode, err)
	}
	dst := filepath.Join(destDir, filepath.Base(src))
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return Installed{}, fmt.Errorf("copy source %s: %w", filepath.Base(src), err)
	}
	return Installed{Path: dst, Version: version}, nil
}

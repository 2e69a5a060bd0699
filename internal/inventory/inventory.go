// Package inventory tracks the artifacts a conversion registers in the
// resource container and names them the way the review tool expects.
package inventory

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// AppDir holds the review tool's project state inside the container.
	AppDir = ".apps/orature"
	// TakesDir holds every take, chapter, and verse file.
	TakesDir = AppDir + "/takes"
	// SourceDir holds the copied source resource.
	SourceDir = AppDir + "/source"
	// SelectedFile lists the registered logical paths.
	SelectedFile = AppDir + "/selected.txt"
)

// Entry is one registered artifact. LogicalPath is relative to TakesDir and
// always uses forward slashes.
type Entry struct {
	LogicalPath string
	SourcePath  string
}

// Inventory is an ordered list of registered artifacts. Registering the same
// logical path twice keeps the first position and updates the source path.
type Inventory struct {
	entries []Entry
}

// Add registers an artifact.
func (inv *Inventory) Add(logicalPath, sourcePath string) {
	logicalPath = filepath.ToSlash(logicalPath)
	if idx := inv.index(logicalPath); idx >= 0 {
		inv.entries[idx].SourcePath = sourcePath
		return
	}
	inv.entries = append(inv.entries, Entry{LogicalPath: logicalPath, SourcePath: sourcePath})
}

// Remove drops a registered artifact and reports whether it was present.
func (inv *Inventory) Remove(logicalPath string) bool {
	idx := inv.index(filepath.ToSlash(logicalPath))
	if idx < 0 {
		return false
	}
	inv.entries = slices.Delete(inv.entries, idx, idx+1)
	return true
}

// Contains reports whether logicalPath is registered.
func (inv *Inventory) Contains(logicalPath string) bool {
	return inv.index(filepath.ToSlash(logicalPath)) >= 0
}

// Entries returns a copy of the registered artifacts in registration order.
func (inv *Inventory) Entries() []Entry {
	return slices.Clone(inv.entries)
}

// Len returns the number of registered artifacts.
func (inv *Inventory) Len() int {
	return len(inv.entries)
}

func (inv *Inventory) index(logicalPath string) int {
	return slices.IndexFunc(inv.entries, func(e Entry) bool { return e.LogicalPath == logicalPath })
}

// WriteTo writes one logical path per line, without a trailing newline.
func (inv *Inventory) WriteTo(w io.Writer) (int64, error) {
	paths := make([]string, len(inv.entries))
	for i, e := range inv.entries {
		paths[i] = e.LogicalPath
	}
	n, err := io.WriteString(w, strings.Join(paths, "\n"))
	return int64(n), err
}

// WriteSelected stores the inventory at SelectedFile under rcDir.
func (inv *Inventory) WriteSelected(rcDir string) error {
	target := filepath.Join(rcDir, filepath.FromSlash(SelectedFile))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", AppDir, err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create selected list: %w", err)
	}
	if _, err := inv.WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("write selected list: %w", err)
	}
	return file.Close()
}

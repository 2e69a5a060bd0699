package preflight

import (
	"archive/zip"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sys/unix"

	"recorder2rc/internal/config"
	"recorder2rc/internal/manifest"
	"recorder2rc/internal/sources"
	"recorder2rc/internal/versification"
)

const projectArchiveCheck = "Project archive"

// CheckProjectArchive verifies that input is a readable zip holding a
// recorder manifest and take selection.
func CheckProjectArchive(input string) Result {
	const name = projectArchiveCheck

	info, err := os.Stat(input)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", input)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", input, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", input)}
	}

	zr, err := zip.OpenReader(input)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a zip archive: %v)", input, err)}
	}
	defer zr.Close()

	var hasManifest, hasSelection bool
	for _, file := range zr.File {
		switch path.Base(file.Name) {
		case manifest.FileName:
			hasManifest = true
		case manifest.SelectionFileName:
			hasSelection = true
		}
	}
	switch {
	case !hasManifest:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no %s)", input, manifest.FileName)}
	case !hasSelection:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no %s)", input, manifest.SelectionFileName)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", input, len(zr.File))}
}

// CheckOutputDirectory verifies that dir, or its nearest existing ancestor
// when dir does not exist yet, is writable.
func CheckOutputDirectory(dir string) Result {
	const name = "Output directory"

	probe := dir
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", dir)}
		}
		probe = parent
	}
	result := CheckDirectoryAccess(name, probe)
	if result.Passed && probe != dir {
		result.Detail = fmt.Sprintf("%s (will be created under %s)", dir, probe)
	}
	return result
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckVersification verifies that the configured versification loads.
func CheckVersification(cfg config.Conversion) Result {
	const name = "Versification"

	table, err := versification.FromConfig(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d books)", table.Name(), len(table.Books()))}
}

// CheckSourceCatalog verifies that the source catalog in dir parses.
func CheckSourceCatalog(dir string) Result {
	const name = "Source catalog"

	catalog, err := sources.Open(dir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if catalog == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no %s)", dir, sources.CatalogFileName)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d languages)", dir, catalog.Len())}
}

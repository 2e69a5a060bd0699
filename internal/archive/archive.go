// Package archive unpacks recorder projects and packs resource containers.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"recorder2rc/internal/fileutil"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ErrNoProject is returned when an extracted archive has no manifest.
var ErrNoProject = errors.New("project manifest not found")

// Extract unpacks the zip at src into dest.
func Extract(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		if zr != nil {
			zr.Close()
		}
		return fmt.Errorf("%w: %s", ErrUnsafePath, filepath.Base(src))
	}
	if err != nil {
		return fmt.Errorf("open archive %s: %w", filepath.Base(src), err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create extraction dir: %w", err)
	}

	for _, file := range zr.File {
		target, err := safeJoin(root, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return fmt.Errorf("extract %s: %w", file.Name, err)
		}
	}
	return nil
}

func safeJoin(root, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FindProjectRoot returns the shallowest directory under dir that contains
// manifestName.
func FindProjectRoot(dir, manifestName string) (string, error) {
	var (
		best      string
		bestDepth = -1
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != manifestName {
			return nil
		}
		parent := filepath.Dir(path)
		depth := strings.Count(parent, string(os.PathSeparator))
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = parent, depth
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan extracted project: %w", err)
	}
	if best == "" {
		return "", fmt.Errorf("%w: no %s in archive", ErrNoProject, manifestName)
	}
	return best, nil
}

// Create packs every file under dir into a zip at target. Entry names are
// relative to dir, use forward slashes, and are written in sorted order. The
// archive is written to a temporary file and renamed into place.
func Create(dir, target string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(files)

	return fileutil.WriteAtomic(target, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, path := range files {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
				return fmt.Errorf("add %s: %w", rel, err)
			}
		}
		return zw.Close()
	})
}

func addFile(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

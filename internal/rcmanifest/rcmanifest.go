// Package rcmanifest builds, writes, and reads resource container manifests
// (manifest.yaml).
package rcmanifest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"recorder2rc/internal/config"
	"recorder2rc/internal/manifest"
)

// FileName is the container manifest at the container root.
const FileName = "manifest.yaml"

const (
	conformsTo  = "rc0.2"
	audioFormat = "audio/wav"
	dateLayout  = "2006-01-02"
)

// Language is a Dublin Core language entry.
type Language struct {
	Identifier string `yaml:"identifier"`
	Title      string `yaml:"title"`
	Direction  string `yaml:"direction"`
}

// Source names the resource the recording was made from.
type Source struct {
	Identifier string `yaml:"identifier"`
	Language   string `yaml:"language"`
	Version    string `yaml:"version"`
}

// DublinCore is the descriptive block of a container manifest.
type DublinCore struct {
	Type        string   `yaml:"type"`
	ConformsTo  string   `yaml:"conformsto"`
	Format      string   `yaml:"format"`
	Identifier  string   `yaml:"identifier"`
	Title       string   `yaml:"title"`
	Subject     string   `yaml:"subject"`
	Description string   `yaml:"description"`
	Language    Language `yaml:"language"`
	Source      []Source `yaml:"source"`
	Rights      string   `yaml:"rights"`
	Creator     string   `yaml:"creator"`
	Contributor []string `yaml:"contributor"`
	Relation    []string `yaml:"relation"`
	Publisher   string   `yaml:"publisher"`
	Issued      string   `yaml:"issued"`
	Modified    string   `yaml:"modified"`
	Version     string   `yaml:"version"`
}

// Checking records who checked the content and how thoroughly.
type Checking struct {
	CheckingEntity []string `yaml:"checking_entity"`
	CheckingLevel  string   `yaml:"checking_level"`
}

// Project is one book inside the container.
type Project struct {
	Title         string   `yaml:"title"`
	Versification string   `yaml:"versification"`
	Identifier    string   `yaml:"identifier"`
	Sort          int      `yaml:"sort"`
	Path          string   `yaml:"path"`
	Categories    []string `yaml:"categories"`
}

// Manifest is a container manifest document.
type Manifest struct {
	DublinCore DublinCore `yaml:"dublin_core"`
	Checking   Checking   `yaml:"checking"`
	Projects   []Project  `yaml:"projects"`
}

// BuildInput collects everything Build needs.
type BuildInput struct {
	Project       *manifest.Manifest
	Metadata      config.Metadata
	Source        Source
	Versification string
	Now           time.Time
}

// Build assembles the container manifest of a converted project.
func Build(in BuildInput) *Manifest {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	date := now.Format(dateLayout)
	project := in.Project

	direction := strings.TrimSpace(project.Language.Direction)
	if direction == "" {
		direction = "ltr"
	}

	var categories []string
	if slug := strings.TrimSpace(project.Anthology.Slug); slug != "" {
		categories = append(categories, "bible-"+slug)
	}

	return &Manifest{
		DublinCore: DublinCore{
			Type:       "book",
			ConformsTo: conformsTo,
			Format:     audioFormat,
			Identifier: project.Version.Slug,
			Title:      project.Version.Name,
			Subject:    "Bible",
			Language: Language{
				Identifier: project.Language.Slug,
				Title:      project.Language.Name,
				Direction:  direction,
			},
			Source:      []Source{in.Source},
			Rights:      in.Metadata.Rights,
			Creator:     in.Metadata.Creator,
			Contributor: []string{},
			Relation:    []string{},
			Publisher:   in.Metadata.Publisher,
			Issued:      date,
			Modified:    date,
			Version:     "1",
		},
		Checking: Checking{
			CheckingEntity: append([]string{}, in.Metadata.CheckingEntity...),
			CheckingLevel:  in.Metadata.CheckingLevel,
		},
		Projects: []Project{{
			Title:         project.Book.Name,
			Versification: in.Versification,
			Identifier:    project.Book.Slug,
			Sort:          project.Book.Sort(),
			Path:          "./content",
			Categories:    categories,
		}},
	}
}

// Encode renders m as YAML.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	return buf.Bytes(), nil
}

// Write stores m as FileName in rcDir.
func (m *Manifest) Write(rcDir string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(rcDir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	return nil
}

// Parse decodes a container manifest.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", FileName, err)
	}
	return &m, nil
}

// ReadContainerVersion returns dublin_core.version of the container zipped
// at zipPath. The manifest may sit at the archive root or inside the
// container's top-level directory; the shallowest one wins.
func ReadContainerVersion(zipPath string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open container %s: %w", filepath.Base(zipPath), err)
	}
	defer zr.Close()

	var found *zip.File
	for _, file := range zr.File {
		name := strings.TrimPrefix(file.Name, "./")
		if path.Base(name) != FileName {
			continue
		}
		if found == nil || strings.Count(name, "/") < strings.Count(strings.TrimPrefix(found.Name, "./"), "/") {
			found = file
		}
	}
	if found == nil {
		return "", fmt.Errorf("container %s has no %s", filepath.Base(zipPath), FileName)
	}

	rc, err := found.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", found.Name, err)
	}
	defer rc.Close()
	m, err := Parse(rc)
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(m.DublinCore.Version)
	if version == "" {
		return "", fmt.Errorf("container %s: dublin_core.version is empty", filepath.Base(zipPath))
	}
	return version, nil
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	SourceDir string `toml:"source_dir"`
}

// Audio fixes the PCM format shared by every stream in a conversion run.
type Audio struct {
	SampleRate    int `toml:"sample_rate"`
	Channels      int `toml:"channels"`
	BitsPerSample int `toml:"bits_per_sample"`
	// BufferFrames bounds the transfer buffer used when copying PCM between
	// streams. Memory use per open stream is BufferFrames * frame width.
	BufferFrames int `toml:"buffer_frames"`
}

// Conversion contains pipeline policy knobs.
type Conversion struct {
	VersificationPath  string `toml:"versification_path"`
	Versification      string `toml:"versification"`
	CascadeDiscard     bool   `toml:"cascade_discard"`
	KeepAlternateTakes bool   `toml:"keep_alternate_takes"`
	KeepWorkDir        bool   `toml:"keep_work_dir"`
}

// Metadata contains the fixed values written into the container manifest.
type Metadata struct {
	Creator          string   `toml:"creator"`
	Publisher        string   `toml:"publisher"`
	Rights           string   `toml:"rights"`
	CheckingEntity   []string `toml:"checking_entity"`
	CheckingLevel    string   `toml:"checking_level"`
	SourceIdentifier string   `toml:"source_identifier"`
	SourceLanguage   string   `toml:"source_language"`
}

// History contains configuration for the conversion ledger.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for recorder2rc.
//
// Configuration sections by subsystem:
//   - Paths: working, log, and source catalog directories
//   - Audio: the PCM format and transfer buffer size of a run
//   - Conversion: versification source and chapter retention policy
//   - Metadata: Dublin Core values for the generated manifest
//   - History: SQLite conversion ledger
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Audio      Audio      `toml:"audio"`
	Conversion Conversion `toml:"conversion"`
	Metadata   Metadata   `toml:"metadata"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recorder2rc/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recorder2rc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the converter writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FrameWidth returns the byte width of one PCM frame.
func (a Audio) FrameWidth() int {
	return a.Channels * a.BitsPerSample / 8
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "recorder2rc", "work")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/recorder2rc/work"
	}
	return filepath.Join(home, ".cache", "recorder2rc", "work")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

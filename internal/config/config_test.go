package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"recorder2rc/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("RECORDER2RC_LOG_LEVEL", "")
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLog := filepath.Join(tempHome, ".local", "share", "recorder2rc", "logs")
	if cfg.Paths.LogDir != wantLog {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLog)
	}
	wantWork := filepath.Join(tempHome, ".cache", "recorder2rc", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 1 || cfg.Audio.BitsPerSample != 16 {
		t.Fatalf("unexpected audio defaults: %#v", cfg.Audio)
	}
	if cfg.Audio.FrameWidth() != 2 {
		t.Fatalf("expected 2-byte frames, got %d", cfg.Audio.FrameWidth())
	}
	if cfg.Conversion.CascadeDiscard {
		t.Fatal("expected cascade discard disabled by default")
	}
	if !cfg.Conversion.KeepAlternateTakes {
		t.Fatal("expected alternate takes kept by default")
	}
	if cfg.Conversion.Versification != "eng" {
		t.Fatalf("unexpected versification %q", cfg.Conversion.Versification)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "recorder2rc.toml")
	t.Setenv("RECORDER2RC_LOG_LEVEL", "")

	type payload struct {
		Audio struct {
			SampleRate   int `toml:"sample_rate"`
			BufferFrames int `toml:"buffer_frames"`
		} `toml:"audio"`
		Conversion struct {
			CascadeDiscard bool `toml:"cascade_discard"`
		} `toml:"conversion"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Audio.SampleRate = 48000
	custom.Audio.BufferFrames = 256
	custom.Conversion.CascadeDiscard = true
	custom.Logging.Format = " JSON "
	custom.Logging.Level = "Debug"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.BufferFrames != 256 {
		t.Fatalf("expected buffer frames override, got %d", cfg.Audio.BufferFrames)
	}
	if !cfg.Conversion.CascadeDiscard {
		t.Fatal("expected cascade discard enabled from file")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %#v", cfg.Logging)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected untouched defaults to survive, got channels %d", cfg.Audio.Channels)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "recorder2rc.toml")
	if err := os.WriteFile(configPath, []byte("[audio]\nsample_rat = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestEnvOverridesLogLevel(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.toml")
	t.Setenv("RECORDER2RC_LOG_LEVEL", "WARN")

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected log level from env, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "buffer_frames") {
		t.Fatalf("sample config missing audio section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("unexpected sample rate in sample: %d", cfg.Audio.SampleRate)
	}
	if !strings.Contains(cfg.Paths.WorkDir, "recorder2rc") {
		t.Fatalf("expected work dir to contain recorder2rc, got %q", cfg.Paths.WorkDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"sample rate", func(c *config.Config) { c.Audio.SampleRate = 0 }},
		{"channels", func(c *config.Config) { c.Audio.Channels = -1 }},
		{"bit depth", func(c *config.Config) { c.Audio.BitsPerSample = 12 }},
		{"creator", func(c *config.Config) { c.Metadata.Creator = "" }},
		{"retention", func(c *config.Config) { c.History.RetentionDays = -1 }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Conversion.CascadeDiscard = true
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal([]byte(encoded), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Conversion.CascadeDiscard {
		t.Fatal("expected cascade discard to survive encoding")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

package testsupport

import (
	"path/filepath"
	"testing"

	"recorder2rc/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SourceDir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithCascadeDiscard enables removal of verse files from discarded chapters.
func WithCascadeDiscard() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.CascadeDiscard = true
	}
}

// WithBufferFrames overrides the transfer buffer size.
func WithBufferFrames(frames int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.BufferFrames = frames
	}
}

// WithoutAlternateTakes stops unselected takes from being copied.
func WithoutAlternateTakes() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.KeepAlternateTakes = false
	}
}

// WithSourceDir points the source catalog at dir.
func WithSourceDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.SourceDir = dir
	}
}

// WithHistoryDisabled turns off the conversion ledger.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

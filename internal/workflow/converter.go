package workflow

import (
	"log/slog"
	"time"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/compile"
	"recorder2rc/internal/config"
	"recorder2rc/internal/history"
	"recorder2rc/internal/logging"
	"recorder2rc/internal/segment"
	"recorder2rc/internal/services"
	"recorder2rc/internal/versification"
	"recorder2rc/internal/wavfile"
)

// Converter turns recorder projects into resource containers.
type Converter struct {
	cfg       *config.Config
	logger    *slog.Logger
	port      audio.Port
	table     *versification.Table
	store     *history.Store
	compiler  *compile.Compiler
	segmenter *segment.Segmenter
	now       func() time.Time
}

// Option configures optional Converter behavior.
type Option func(*Converter)

// WithHistory records every run in store.
func WithHistory(store *history.Store) Option {
	return func(c *Converter) {
		c.store = store
	}
}

// WithPort replaces the WAV stream port.
func WithPort(port audio.Port) Option {
	return func(c *Converter) {
		c.port = port
	}
}

// WithVersification replaces the configured versification table.
func WithVersification(table *versification.Table) Option {
	return func(c *Converter) {
		c.table = table
	}
}

// WithClock overrides the time source used for manifest dates.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// New constructs a Converter. The versification table and stream port are
// built from cfg unless supplied as options.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Converter, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "config is required", nil)
	}
	c := &Converter{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.table == nil {
		table, err := versification.FromConfig(cfg.Conversion)
		if err != nil {
			return nil, err
		}
		c.table = table
	}
	if c.port == nil {
		port, err := wavfile.New(audio.FormatFromConfig(cfg.Audio))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "audio format", err)
		}
		c.port = port
	}

	c.compiler = compile.New(c.port, cfg.Audio.BufferFrames, logger)
	c.segmenter = segment.New(c.port, cfg.Audio.BufferFrames, logger)
	return c, nil
}

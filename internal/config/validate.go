package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAudio() error {
	if err := ensurePositiveMap(map[string]int{
		"audio.sample_rate":   c.Audio.SampleRate,
		"audio.channels":      c.Audio.Channels,
		"audio.buffer_frames": c.Audio.BufferFrames,
	}); err != nil {
		return err
	}
	switch c.Audio.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("audio.bits_per_sample must be one of 8, 16, 24, 32 (got %d)", c.Audio.BitsPerSample)
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if c.Metadata.Creator == "" {
		return errors.New("metadata.creator must be set")
	}
	if c.Metadata.Publisher == "" {
		return errors.New("metadata.publisher must be set")
	}
	if c.Metadata.Rights == "" {
		return errors.New("metadata.rights must be set")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key, value := range values {
		if value <= 0 {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	slices.Sort(keys)
	return fmt.Errorf("%s must be positive", strings.Join(keys, ", "))
}

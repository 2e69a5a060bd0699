package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeConversion(); err != nil {
		return err
	}
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		if value, ok := os.LookupEnv("RECORDER2RC_SOURCE_DIR"); ok {
			c.Paths.SourceDir = strings.TrimSpace(value)
		}
	}
	if c.Paths.SourceDir, err = expandPath(strings.TrimSpace(c.Paths.SourceDir)); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() error {
	var err error
	c.Conversion.VersificationPath = strings.TrimSpace(c.Conversion.VersificationPath)
	if c.Conversion.VersificationPath, err = expandPath(c.Conversion.VersificationPath); err != nil {
		return fmt.Errorf("conversion.versification_path: %w", err)
	}
	c.Conversion.Versification = strings.ToLower(strings.TrimSpace(c.Conversion.Versification))
	if c.Conversion.Versification == "" {
		c.Conversion.Versification = defaultVersification
	}
	if c.Audio.BufferFrames <= 0 {
		c.Audio.BufferFrames = defaultBufferFrames
	}
	return nil
}

func (c *Config) normalizeMetadata() {
	c.Metadata.Creator = strings.TrimSpace(c.Metadata.Creator)
	c.Metadata.Publisher = strings.TrimSpace(c.Metadata.Publisher)
	c.Metadata.Rights = strings.TrimSpace(c.Metadata.Rights)
	c.Metadata.CheckingLevel = strings.TrimSpace(c.Metadata.CheckingLevel)
	if c.Metadata.CheckingLevel == "" {
		c.Metadata.CheckingLevel = defaultCheckingLevel
	}
	c.Metadata.SourceIdentifier = strings.ToLower(strings.TrimSpace(c.Metadata.SourceIdentifier))
	if c.Metadata.SourceIdentifier == "" {
		c.Metadata.SourceIdentifier = defaultSourceIdentifier
	}
	c.Metadata.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Metadata.SourceLanguage))
	if c.Metadata.SourceLanguage == "" {
		c.Metadata.SourceLanguage = defaultSourceLanguage
	}
	entities := make([]string, 0, len(c.Metadata.CheckingEntity))
	for _, entity := range c.Metadata.CheckingEntity {
		if trimmed := strings.TrimSpace(entity); trimmed != "" {
			entities = append(entities, trimmed)
		}
	}
	c.Metadata.CheckingEntity = entities
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("RECORDER2RC_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

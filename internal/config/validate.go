package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are deliberately
// not required here; they are resolved lazily on the first publish attempt so
// read-only commands work without them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateBluesky(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateReddit() error {
	if c.Reddit.MinScore < 0 {
		return errors.New("reddit.min_score must be >= 0")
	}
	if strings.TrimSpace(c.Reddit.BaseURL) == "" {
		return errors.New("reddit.base_url must be set")
	}
	if c.Reddit.RequestTimeout <= 0 {
		return errors.New("reddit.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateBluesky() error {
	if strings.TrimSpace(c.Bluesky.PDSURL) == "" {
		return errors.New("bluesky.pds_url must be set")
	}
	if c.Bluesky.RequestTimeout <= 0 {
		return errors.New("bluesky.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.PostLimit < 0 {
		return errors.New("pipeline.post_limit must be >= 0 (0 means unlimited)")
	}
	if c.Pipeline.DownloadTimeout <= 0 {
		return errors.New("pipeline.download_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	return nil
}

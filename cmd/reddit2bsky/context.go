package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/logging"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the state store for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// newLogger builds the run logger from the logging config section, teeing
// to a log file under the log directory. The "auto" format resolves to
// console on a terminal and json otherwise, so cron output stays parseable.
func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if format == "" || format == "auto" {
		if isatty.IsTerminal(os.Stdout.Fd()) {
			format = "console"
		} else {
			format = "json"
		}
	}
	opts := logging.Options{
		Level:  cfg.Logging.Level,
		Format: format,
	}
	return logging.NewWithLogFile(opts, cfg.Paths.LogDir, "reddit2bsky.log")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

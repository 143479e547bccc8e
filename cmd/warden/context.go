package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"warden/internal/config"
	"warden/internal/history"
	"warden/internal/launcher"
	"warden/internal/logging"
	"warden/internal/procfs"
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withLauncher builds a fully wired Launcher for one command invocation.
// User-facing output stays on stdout; the launcher's own log lines go to
// the state-dir log file. A journal failure downgrades to a warning since
// history is advisory.
func (c *commandContext) withLauncher(fn func(*launcher.Launcher) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{cfg.LauncherLogPath()},
	})
	if err != nil {
		return err
	}

	opts := []launcher.Option{
		launcher.WithInvocationID(uuid.NewString()),
	}
	journal, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Warn("open action history", slog.Any("error", err))
	} else {
		defer func() { _ = journal.Close() }()
		opts = append(opts, launcher.WithJournal(journal))
	}

	return fn(launcher.New(cfg, procfs.OS{}, logger, opts...))
}

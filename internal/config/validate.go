package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateService() error {
	if c.Service.Enabled && c.Service.Command == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/warden/config.toml"
		}
		return fmt.Errorf("service.command is required when service.enabled is true. Edit %s (create with 'warden config init')", defaultPath)
	}
	if c.Service.Command != "" && !filepath.IsAbs(c.Service.Command) {
		return fmt.Errorf("service.command must be an absolute path, got %q", c.Service.Command)
	}
	return nil
}

func (c *Config) validatePaths() error {
	for key, path := range map[string]string{
		"paths.pid_file":  c.Paths.PidFile,
		"paths.log_file":  c.Paths.LogFile,
		"paths.state_dir": c.Paths.StateDir,
	} {
		if path == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if !filepath.IsAbs(path) {
			return fmt.Errorf("%s must be absolute, got %q", key, path)
		}
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.Verbosity < 0 {
		return errors.New("daemon.verbosity must be >= 0")
	}
	if c.Daemon.StopTimeout <= 0 {
		return errors.New("daemon.stop_timeout must be positive (seconds)")
	}
	if c.Daemon.StartConfirmTimeout <= 0 {
		return errors.New("daemon.start_confirm_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

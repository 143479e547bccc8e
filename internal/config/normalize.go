package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeService(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.PidFile) == "" {
		c.Paths.PidFile = defaultPidFile
	}
	if c.Paths.PidFile, err = expandPath(c.Paths.PidFile); err != nil {
		return fmt.Errorf("paths.pid_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogFile) == "" {
		c.Paths.LogFile = defaultLogFile
	}
	if c.Paths.LogFile, err = expandPath(c.Paths.LogFile); err != nil {
		return fmt.Errorf("paths.log_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() error {
	c.Service.Command = strings.TrimSpace(c.Service.Command)
	if c.Service.Command != "" {
		expanded, err := expandPath(c.Service.Command)
		if err != nil {
			return fmt.Errorf("service.command: %w", err)
		}
		c.Service.Command = expanded
	}
	c.Service.RunAs.User = strings.TrimSpace(c.Service.RunAs.User)
	c.Service.RunAs.Group = strings.TrimSpace(c.Service.RunAs.Group)

	flags := make([]string, 0, len(c.Service.ExtraFlags))
	for _, flag := range c.Service.ExtraFlags {
		if trimmed := strings.TrimSpace(flag); trimmed != "" {
			flags = append(flags, trimmed)
		}
	}
	c.Service.ExtraFlags = flags
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Service describes the supervised daemon and whether it may be started.
type Service struct {
	Enabled    bool     `toml:"enabled"`
	Command    string   `toml:"command"`
	ExtraFlags []string `toml:"extra_flags"`
	RunAs      RunAs    `toml:"run_as"`
}

// RunAs names the principal the daemon runs as. Values may be account
// names or numeric ids; empty values mean no privilege change.
type RunAs struct {
	User  string `toml:"user"`
	Group string `toml:"group"`
}

// Paths contains the filesystem locations the launcher manages.
type Paths struct {
	PidFile  string `toml:"pid_file"`
	LogFile  string `toml:"log_file"`
	StateDir string `toml:"state_dir"`
}

// Daemon contains pass-through flags and lifecycle timing.
type Daemon struct {
	Verbosity           int `toml:"verbosity"`
	StopTimeout         int `toml:"stop_timeout"`
	StartConfirmTimeout int `toml:"start_confirm_timeout"`
}

// Logging contains configuration for launcher log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for warden.
//
// Configuration sections:
//   - Service: the supervised executable, its enable gate, and run-as principal
//   - Paths: pidfile, daemon log file, and launcher state directory
//   - Daemon: verbosity pass-through and stop/start timing bounds
//   - Logging: launcher log format and level
type Config struct {
	Service Service `toml:"service"`
	Paths   Paths   `toml:"paths"`
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/warden/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file actually existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("WARDEN_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("warden.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the launcher writes into: the
// state directory plus the parents of the pidfile and daemon log file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	if strings.TrimSpace(c.Paths.PidFile) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.PidFile))
	}
	if strings.TrimSpace(c.Paths.LogFile) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LogFile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StopTimeout returns the bounded wait between SIGTERM and escalation.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Daemon.StopTimeout) * time.Second
}

// StartConfirmTimeout returns how long Start watches the spawned process
// for an early exit before declaring success.
func (c *Config) StartConfirmTimeout() time.Duration {
	return time.Duration(c.Daemon.StartConfirmTimeout) * time.Second
}

// LockFile returns the flock path guarding lifecycle actions on the pidfile.
func (c *Config) LockFile() string {
	return c.Paths.PidFile + ".lock"
}

// HistoryDBPath returns the location of the lifecycle action journal.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LauncherLogPath returns the launcher's own log file.
func (c *Config) LauncherLogPath() string {
	return filepath.Join(c.Paths.StateDir, "warden.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

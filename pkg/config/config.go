package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sipeed/devguard/pkg/detect"
)

const DefaultPath = "~/.devguard/config.json"

type Config struct {
	Detection DetectionConfig `json:"detection"`
	Monitor   MonitorConfig   `json:"monitor"`
	Logging   LoggingConfig   `json:"logging"`
	Shell     ShellConfig     `json:"shell"`
	mu        sync.RWMutex
}

type DetectionConfig struct {
	SuspectPaths    []string `json:"suspect_paths" env:"DEVGUARD_DETECTION_SUSPECT_PATHS" envSeparator:","`
	SuspectPackages []string `json:"suspect_packages" env:"DEVGUARD_DETECTION_SUSPECT_PACKAGES" envSeparator:","`
	// TrustedDevHost makes a non-Android host report as an emulator.
	TrustedDevHost bool   `json:"trusted_dev_host" env:"DEVGUARD_DETECTION_TRUSTED_DEV_HOST"`
	ShellTimeoutMS int    `json:"shell_timeout_ms" env:"DEVGUARD_DETECTION_SHELL_TIMEOUT_MS"`
	SuCommand      string `json:"su_command" env:"DEVGUARD_DETECTION_SU_COMMAND"`
}

type MonitorConfig struct {
	Enabled  bool   `json:"enabled" env:"DEVGUARD_MONITOR_ENABLED"`
	Schedule string `json:"schedule" env:"DEVGUARD_MONITOR_SCHEDULE"` // cron expression
}

type LoggingConfig struct {
	Level       string `json:"level" env:"DEVGUARD_LOGGING_LEVEL"`
	FileEnabled bool   `json:"file_enabled" env:"DEVGUARD_LOGGING_FILE_ENABLED"`
	FilePath    string `json:"file_path" env:"DEVGUARD_LOGGING_FILE_PATH"`
}

type ShellConfig struct {
	Prompt      string `json:"prompt" env:"DEVGUARD_SHELL_PROMPT"`
	HistoryFile string `json:"history_file" env:"DEVGUARD_SHELL_HISTORY_FILE"`
}

func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			SuspectPaths:    append([]string(nil), detect.DefaultSuspectPaths...),
			SuspectPackages: append([]string(nil), detect.DefaultSuspectPackages...),
			TrustedDevHost:  false,
			ShellTimeoutMS:  3000,
			SuCommand:       detect.DefaultSuCommand,
		},
		Monitor: MonitorConfig{
			Enabled:  false,
			Schedule: "*/5 * * * *",
		},
		Logging: LoggingConfig{
			Level:       "info",
			FileEnabled: true,
			FilePath:    "~/.devguard/devguard.log",
		},
		Shell: ShellConfig{
			Prompt:      "devguard> ",
			HistoryFile: "~/.devguard/history",
		},
	}
}

// LoadConfig reads the JSON file at path over the defaults, then applies
// DEVGUARD_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ExpandHome(path))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.Detection.SuspectPaths = cleanList(cfg.Detection.SuspectPaths)
	cfg.Detection.SuspectPackages = cleanList(cfg.Detection.SuspectPackages)
	cfg.Logging.FilePath = resolveEnvRef(cfg.Logging.FilePath)
	cfg.Shell.HistoryFile = resolveEnvRef(cfg.Shell.HistoryFile)

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) ShellTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Detection.ShellTimeoutMS) * time.Millisecond
}

func (c *Config) LogFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Logging.FilePath)
}

func (c *Config) HistoryPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Shell.HistoryFile)
}

// RootOptions converts the detection section into detector options.
func (c *Config) RootOptions() []detect.RootOption {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return []detect.RootOption{
		detect.WithSuspectPaths(c.Detection.SuspectPaths),
		detect.WithSuspectPackages(c.Detection.SuspectPackages),
		detect.WithSuCommand(c.Detection.SuCommand),
	}
}

// cleanList trims entries and drops empties left by trailing separators.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func resolveEnvRef(v string) string {
	s := strings.TrimSpace(v)
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		key := strings.TrimSpace(s[2 : len(s)-1])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
	}
	return v
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

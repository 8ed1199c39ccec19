package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

// Config represents the persisted taskdash configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
	Backend   BackendConfig   `toml:"backend"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Server    ServerConfig    `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// BackendConfig selects where the dashboard fetches table data.
// A blank BaseURL serves the dashboard from the local database.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type DashboardConfig struct {
	DefaultTitle       string `toml:"default_title"`
	MyWorkKey          string `toml:"my_work_key"`
	GroupedSectionType string `toml:"grouped_section_type"`
	Assignee           string `toml:"assignee"`
	PageSize           int    `toml:"page_size"`
}

type ServerConfig struct {
	HTTPBind        string `toml:"http_bind"`
	APIEndpoint     string `toml:"api_endpoint"`
	MCPEndpoint     string `toml:"mcp_endpoint"`
	MetricsEndpoint string `toml:"metrics_endpoint"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".taskdash/log",
			},
		},
		Backend: BackendConfig{
			BaseURL: "",
			Timeout: "30s",
		},
		Dashboard: DashboardConfig{
			DefaultTitle:       "Task Dashboard",
			MyWorkKey:          "MY_WORK",
			GroupedSectionType: "TASKS_BY_GROUP",
			Assignee:           "me",
			PageSize:           0,
		},
		Server: ServerConfig{
			HTTPBind:        "127.0.0.1:8080",
			APIEndpoint:     "/api/v1",
			MCPEndpoint:     "/mcp",
			MetricsEndpoint: "/metrics",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if _, err := c.Backend.RequestTimeout(); err != nil {
		return err
	}
	if raw := strings.TrimSpace(c.Backend.BaseURL); raw != "" {
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return fmt.Errorf("invalid backend.base_url: %q", raw)
		}
	}

	if strings.TrimSpace(c.Dashboard.MyWorkKey) == "" {
		return errors.New("dashboard.my_work_key is required")
	}
	if strings.TrimSpace(c.Dashboard.GroupedSectionType) == "" {
		return errors.New("dashboard.grouped_section_type is required")
	}
	if c.Dashboard.PageSize < 0 {
		return errors.New("dashboard.page_size must be >= 0")
	}

	api := strings.Trim(strings.TrimSpace(c.Server.APIEndpoint), "/")
	mcp := strings.Trim(strings.TrimSpace(c.Server.MCPEndpoint), "/")
	if api != "" && api == mcp {
		return errors.New("server.api_endpoint and server.mcp_endpoint must differ")
	}

	return nil
}

// RequestTimeout parses the backend timeout; a blank value or "0" disables it.
func (b BackendConfig) RequestTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(b.Timeout)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid backend.timeout: %q", b.Timeout)
	}
	if d < 0 {
		return 0, fmt.Errorf("backend.timeout must be >= 0: %q", b.Timeout)
	}
	return d, nil
}

// Write encodes cfg as TOML at path, creating parent directories.
// An existing file is left untouched unless overwrite is set.
func Write(path string, cfg Config, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %q: %w", path, os.ErrExist)
		}
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

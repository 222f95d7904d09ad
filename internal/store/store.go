package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BrowserConfig controls how bookmarks are opened.
type BrowserConfig struct {
	// Command is run through the shell with every %u token replaced by the URL.
	Command         string `yaml:"command,omitempty"`
	AlwaysNewWindow bool   `yaml:"always_new_window"`
}

// ColorConfig holds output color settings.
type ColorConfig struct {
	Disable       bool   `yaml:"disable"`
	DisableBold   bool   `yaml:"disable_bold"`
	Pager         bool   `yaml:"pager"`
	TableTitle    string `yaml:"table_title"`
	BookmarkTitle string `yaml:"bookmark_title"`
	URL           string `yaml:"url"`
	Description   string `yaml:"description"`
	Alias         string `yaml:"alias"`
	Tags          string `yaml:"tags"`
	Label         string `yaml:"label"`
}

// FetchConfig holds URL metadata fetch settings.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config holds mark configuration.
type Config struct {
	Version string        `yaml:"version"`
	DataDir string        `yaml:"data_dir"`
	Browser BrowserConfig `yaml:"browser,omitempty"`
	Colors  ColorConfig   `yaml:"colors,omitempty"`
	Fetch   FetchConfig   `yaml:"fetch,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
}

// DefaultDataDir is written into new config files unexpanded.
const DefaultDataDir = "$HOME/.local/share/mark"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		DataDir: DefaultDataDir,
		Colors: ColorConfig{
			TableTitle:    "bright_blue",
			BookmarkTitle: "green",
			URL:           "yellow",
			Description:   "default",
			Alias:         "bright_black",
			Tags:          "cyan",
			Label:         "white",
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 5,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Store represents a loaded configuration home.
type Store struct {
	Home       string
	ConfigPath string
	Config     Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the mark config directory, respecting the MARK_HOME env var.
func Home() string {
	if h := os.Getenv("MARK_HOME"); h != "" {
		return h
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".mark")
	}
	return filepath.Join(dir, "mark")
}

// DefaultConfigPath is the config file inside Home().
func DefaultConfigPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// Init writes a default config file at cfgPath.
func Init(cfgPath string, force bool) error {
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(cfgPath), err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads the config at cfgPath, creating it with defaults when missing.
// Missing config fields are filled from defaults.
func Load(cfgPath string) (*Store, error) {
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := Init(cfgPath, false); err != nil {
			return nil, fmt.Errorf("config file doesn't exist and can't be created: %w", err)
		}
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: filepath.Dir(cfgPath), ConfigPath: cfgPath, Config: cfg}, nil
}

// DataDir returns the bookmark directory with env vars and a leading ~ expanded.
func (s *Store) DataDir() string {
	return ExpandPath(s.Config.DataDir)
}

// ArchiveDir is where archived bookmark files are moved.
func (s *Store) ArchiveDir() string {
	return filepath.Join(s.DataDir(), "archive")
}

// ExpandPath expands $VARS and a leading ~ in p.
func ExpandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// SaveConfig writes the current config to disk.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(s.ConfigPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by SetConfigValue.
var ConfigKeys = []string{
	"data_dir",
	"browser.command",
	"browser.always_new_window",
	"colors.disable",
	"colors.disable_bold",
	"colors.pager",
	"colors.table_title",
	"colors.bookmark_title",
	"colors.url",
	"colors.description",
	"colors.alias",
	"colors.tags",
	"colors.label",
	"fetch.timeout_seconds",
	"fetch.user_agent",
	"log.level",
}

// SetConfigValue sets a config value by dot-path key (e.g. "colors.url").
func (s *Store) SetConfigValue(key, value string) error {
	c := &s.Config
	switch key {
	case "data_dir":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("data_dir cannot be empty")
		}
		c.DataDir = value
	case "browser.command":
		c.Browser.Command = value
	case "browser.always_new_window":
		c.Browser.AlwaysNewWindow = value == "true"
	case "colors.disable":
		c.Colors.Disable = value == "true"
	case "colors.disable_bold":
		c.Colors.DisableBold = value == "true"
	case "colors.pager":
		c.Colors.Pager = value == "true"
	case "colors.table_title":
		c.Colors.TableTitle = value
	case "colors.bookmark_title":
		c.Colors.BookmarkTitle = value
	case "colors.url":
		c.Colors.URL = value
	case "colors.description":
		c.Colors.Description = value
	case "colors.alias":
		c.Colors.Alias = value
	case "colors.tags":
		c.Colors.Tags = value
	case "colors.label":
		c.Colors.Label = value
	case "fetch.timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("fetch.timeout_seconds must be a positive integer")
		}
		c.Fetch.TimeoutSeconds = n
	case "fetch.user_agent":
		c.Fetch.UserAgent = value
	case "log.level":
		switch value {
		case "debug", "info", "warn", "error":
			c.Log.Level = value
		default:
			return fmt.Errorf("log.level must be one of debug, info, warn, error")
		}
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys, ", "))
	}
	return s.SaveConfig()
}

// VerifyDataDir creates the data directory if needed and checks it is usable.
func (s *Store) VerifyDataDir() error {
	dir := s.DataDir()
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%s doesn't exist and can't be created: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return checkWritable(dir)
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".mark-probe-*")
	if err != nil {
		return fmt.Errorf("you don't have read/write permissions to %s", dir)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// CheckHealth verifies the config file and data directory.
func CheckHealth(cfgPath string) []Issue {
	var issues []Issue

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config: %v", err)})
		return issues
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config is not valid YAML: %v", err)})
		return issues
	}

	dataDir := ExpandPath(cfg.DataDir)
	info, err := os.Stat(dataDir)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing data directory: %s", dataDir)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", dataDir)})
	} else if err := checkWritable(dataDir); err != nil {
		issues = append(issues, Issue{"error", err.Error()})
	}

	if cfg.Browser.Command != "" && !strings.Contains(cfg.Browser.Command, "%u") {
		issues = append(issues, Issue{"warning", "browser.command has no %u placeholder; the URL will not be passed"})
	}

	return issues
}

// FixIssues attempts to repair simple issues.
func FixIssues(cfgPath string) []string {
	var fixed []string

	if _, err := os.Stat(cfgPath); err != nil {
		if Init(cfgPath, true) == nil {
			fixed = append(fixed, "recreated missing config with defaults")
		}
	}

	s, err := Load(cfgPath)
	if err != nil {
		return fixed
	}
	if _, err := os.Stat(s.DataDir()); err != nil {
		if err := os.MkdirAll(s.DataDir(), 0755); err == nil {
			fixed = append(fixed, fmt.Sprintf("recreated missing data directory: %s", s.DataDir()))
		}
	}

	return fixed
}

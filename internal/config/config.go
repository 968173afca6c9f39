package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.appellisync/appellisync.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version int           `yaml:"version"`
	Notion  NotionConfig  `yaml:"notion"`
	Feed    FeedConfig    `yaml:"feed,omitempty"`
	Courses []Course      `yaml:"courses,omitempty"`
	Sync    SyncConfig    `yaml:"sync,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// NotionConfig defines the Notion API connection.
type NotionConfig struct {
	Token        string `yaml:"token"`
	DataSourceID string `yaml:"data_source_id"`
	BaseURL      string `yaml:"base_url,omitempty"`
}

// FeedConfig defines the exam feed endpoint.
type FeedConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // default 60
}

// Course is one degree-course partition to sync.
type Course struct {
	Code string `yaml:"code"`
	Note string `yaml:"note,omitempty"`
}

// SyncConfig tunes the sync run.
type SyncConfig struct {
	PaceMilliseconds   int    `yaml:"pace_milliseconds,omitempty"` // delay between row writes, default 350
	ContinueOnRowError bool   `yaml:"continue_on_row_error,omitempty"`
	OverridesFile      string `yaml:"overrides_file,omitempty"` // optional property-type override yaml
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.appellisync/logs/
}

// DefaultCourses is the built-in partition list used when the config
// file does not name any courses.
var DefaultCourses = []Course{
	{Code: "F94", Note: "Informatica Magistrale, vecchio manifesto"},
	{Code: "FBA", Note: "Informatica Magistrale, nuovo manifesto"},
	{Code: "F1X", Note: "Informatica Triennale, vecchio manifesto"},
	{Code: "FAA", Note: "Informatica Triennale, nuovo manifesto"},
	{Code: "FAD", Note: "Sicurezza Informatica, nuovo manifesto"},
	{Code: "F68", Note: "Sicurezza Informatica, vecchio manifesto"},
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// FromEnv builds a config from NOTION_TOKEN and DATA_SOURCE_ID alone,
// for runs without a config file.
func FromEnv() (*Config, error) {
	token := os.Getenv("NOTION_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("environment variable NOTION_TOKEN not set")
	}
	dsID := os.Getenv("DATA_SOURCE_ID")
	if dsID == "" {
		return nil, fmt.Errorf("environment variable DATA_SOURCE_ID not set")
	}

	cfg := &Config{
		Version: CurrentVersion,
		Notion:  NotionConfig{Token: token, DataSourceID: dsID},
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate reports missing required fields.
func (c *Config) Validate() error {
	var missing []string
	if c.Notion.Token == "" {
		missing = append(missing, "notion.token")
	}
	if c.Notion.DataSourceID == "" {
		missing = append(missing, "notion.data_source_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = "https://api.notion.com/v1"
	}
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://work.unimi.it/foProssimiEsami/json"
	}
	if c.Feed.TimeoutSeconds == 0 {
		c.Feed.TimeoutSeconds = 60
	}
	if len(c.Courses) == 0 {
		c.Courses = DefaultCourses
	}
	if c.Sync.PaceMilliseconds == 0 {
		c.Sync.PaceMilliseconds = 350
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.appellisync/logs/")
	}
}

// CourseCodes returns the configured course codes, trimmed and uppercased.
func (c *Config) CourseCodes() []string {
	codes := make([]string, 0, len(c.Courses))
	for _, course := range c.Courses {
		codes = append(codes, strings.ToUpper(strings.TrimSpace(course.Code)))
	}
	return codes
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Notion.Token, err = ResolveValue(c.Notion.Token)
	if err != nil {
		return fmt.Errorf("notion token: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

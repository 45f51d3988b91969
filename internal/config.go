package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/memdash/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Index     IndexConfig       `yaml:"index"`
	Analytics AnalyticsConfig   `yaml:"analytics"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Workspace.Validate(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig locates the memory corpus.
type WorkspaceConfig struct {
	Path         string `yaml:"path"`
	LongTermNote string `yaml:"long_term_note"`
	DailyDir     string `yaml:"daily_dir"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.LongTermNote, validation.Required, validation.By(isMarkdownFile)),
		validation.Field(&c.DailyDir, validation.Required, validation.By(isRelativeDir)),
	)
}

func isMarkdownFile(v any) error {
	s, _ := v.(string)
	if !strings.HasSuffix(s, ".md") || strings.Contains(s, "/") {
		return errors.New("must be a .md file name in the workspace root")
	}
	return nil
}

func isRelativeDir(v any) error {
	s, _ := v.(string)
	if path.IsAbs(s) || strings.HasPrefix(path.Clean(s), "..") || path.Clean(s) == "." {
		return errors.New("must be a directory inside the workspace")
	}
	return nil
}

// IndexConfig describes the external semantic index and its indexer binary.
type IndexConfig struct {
	SQLitePath      string        `yaml:"sqlite_path"`
	IndexerBin      string        `yaml:"indexer_bin"`
	IndexTimeout    time.Duration `yaml:"index_timeout"`
	SearchTimeout   time.Duration `yaml:"search_timeout"`
	SearchLimit     int           `yaml:"search_limit"`
	ReindexSchedule string        `yaml:"reindex_schedule"`
	ReindexDebounce time.Duration `yaml:"reindex_debounce"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
		validation.Field(&c.IndexerBin, validation.Required),
		validation.Field(&c.IndexTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SearchTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SearchLimit, validation.Required, validation.Min(1), validation.Max(500)),
		validation.Field(&c.ReindexSchedule, validation.By(func(v any) error {
			s, _ := v.(string)
			return index.ValidateSchedule(s)
		})),
		validation.Field(&c.ReindexDebounce, validation.Min(time.Duration(0))),
	)
}

// AnalyticsConfig tunes the corpus analytics.
type AnalyticsConfig struct {
	VocabularyPath string `yaml:"vocabulary_path"`
	StaleAfterDays int    `yaml:"stale_after_days"`
	CoverageDays   int    `yaml:"coverage_days"`
	TopTags        int    `yaml:"top_tags"`
	SnippetCap     int    `yaml:"snippet_cap"`
}

// Validate validates the analytics configuration.
func (c *AnalyticsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleAfterDays, validation.Required, validation.Min(1)),
		validation.Field(&c.CoverageDays, validation.Required, validation.Min(1), validation.Max(366)),
		validation.Field(&c.TopTags, validation.Required, validation.Min(1)),
		validation.Field(&c.SnippetCap, validation.Required, validation.Min(1)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Workspace: WorkspaceConfig{
			Path:         "~/.openclaw/workspace",
			LongTermNote: "MEMORY.md",
			DailyDir:     "memory",
		},
		Index: IndexConfig{
			SQLitePath:      "~/.openclaw/memory/main.sqlite",
			IndexerBin:      "openclaw",
			IndexTimeout:    30 * time.Second,
			SearchTimeout:   15 * time.Second,
			SearchLimit:     20,
			ReindexDebounce: 2 * time.Second,
		},
		Analytics: AnalyticsConfig{
			StaleAfterDays: 30,
			CoverageDays:   30,
			TopTags:        50,
			SnippetCap:     5,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

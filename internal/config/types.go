// Package config loads the GridLens configuration file and turns its
// source entries into connectable source configs. It is decoupled from CLI
// concerns so the proxy and other tools can load the same file.
package config

import (
	"sort"
	"time"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// Source is one data source entry in the config file. Field names follow
// the file's snake_case convention; ToCore converts to the runtime shape.
type Source struct {
	Type string `koanf:"type"`

	// File sources
	Path string `koanf:"path"`

	// HTTP sources
	URL         string `koanf:"url"`
	APIKey      string `koanf:"api_key"`
	BearerToken string `koanf:"bearer_token"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`

	// PostgREST / SQL sources
	ProjectURL string `koanf:"project_url"`
	Table      string `koanf:"table"`
	Schema     string `koanf:"schema"`

	// SQL proxy
	ProxyURL     string `koanf:"proxy_url"`
	ConnectionID string `koanf:"connection_id"`

	// Direct database
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`

	// Game backends
	TitleID   string `koanf:"title_id"`
	SecretKey string `koanf:"secret_key"`
	GameID    string `koanf:"game_id"`
	SegmentID string `koanf:"segment_id"`

	// Redis
	Addr       string `koanf:"addr"`
	DB         int    `koanf:"db"`
	KeyPattern string `koanf:"key_pattern"`

	// Per-source overrides; zero falls back to the top-level settings.
	RefreshIntervalMinutes int `koanf:"refresh_interval_minutes"`
	RequestTimeoutSeconds  int `koanf:"request_timeout_seconds"`

	Options map[string]string `koanf:"options"`
}

// Proxy configures the SQL proxy server: the listen address and the
// connections it is allowed to query, keyed by connection ID.
type Proxy struct {
	Addr string `koanf:"addr"`

	// Connections maps connection IDs to SQLite database files. The proxy
	// refuses IDs that are not listed here.
	Connections map[string]string `koanf:"connections"`
}

// Config is the full configuration file.
type Config struct {
	LogLevel string `koanf:"log_level"`

	// Defaults applied to every source that doesn't override them.
	RefreshIntervalMinutes int `koanf:"refresh_interval_minutes"`
	RequestTimeoutSeconds  int `koanf:"request_timeout_seconds"`

	Sources map[string]Source `koanf:"sources"`

	Proxy Proxy `koanf:"proxy"`
}

// Default configuration values.
const (
	DefaultLogLevel               = "info"
	DefaultRefreshIntervalMinutes = 5
	DefaultRequestTimeoutSeconds  = 30
	DefaultProxyAddr              = ":8099"
)

// ApplyDefaults fills unset top-level values.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.RefreshIntervalMinutes <= 0 {
		c.RefreshIntervalMinutes = DefaultRefreshIntervalMinutes
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if c.Proxy.Addr == "" {
		c.Proxy.Addr = DefaultProxyAddr
	}
}

// Validate rejects configs that cannot possibly connect. Per-source detail
// validation belongs to the adapters; this only catches entries the
// registry could not even dispatch.
func (c *Config) Validate() error {
	for name, src := range c.Sources {
		if name == "" {
			return &core.ConfigError{Field: "sources", Reason: "source name must not be empty"}
		}
		if src.Type == "" {
			return &core.ConfigError{Field: name + ".type", Reason: "is required"}
		}
	}
	return nil
}

// Source returns the named source converted to the runtime config shape,
// with the top-level interval defaults applied.
func (c *Config) Source(name string) (core.SourceConfig, bool) {
	src, ok := c.Sources[name]
	if !ok {
		return core.SourceConfig{}, false
	}

	refresh := src.RefreshIntervalMinutes
	if refresh <= 0 {
		refresh = c.RefreshIntervalMinutes
	}
	timeout := src.RequestTimeoutSeconds
	if timeout <= 0 {
		timeout = c.RequestTimeoutSeconds
	}

	return core.SourceConfig{
		Name:            name,
		Type:            core.SourceType(src.Type),
		Path:            src.Path,
		URL:             src.URL,
		APIKey:          src.APIKey,
		BearerToken:     src.BearerToken,
		Username:        src.Username,
		Password:        src.Password,
		ProjectURL:      src.ProjectURL,
		Table:           src.Table,
		Schema:          src.Schema,
		ProxyURL:        src.ProxyURL,
		ConnectionID:    src.ConnectionID,
		Host:            src.Host,
		Port:            src.Port,
		Database:        src.Database,
		TitleID:         src.TitleID,
		SecretKey:       src.SecretKey,
		GameID:          src.GameID,
		SegmentID:       src.SegmentID,
		Addr:            src.Addr,
		DB:              src.DB,
		KeyPattern:      src.KeyPattern,
		RefreshInterval: time.Duration(refresh) * time.Minute,
		RequestTimeout:  time.Duration(timeout) * time.Second,
		Options:         src.Options,
	}, true
}

// SourceNames returns the configured source names, sorted.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

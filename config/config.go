// Package config loads reportql settings from defaults, an optional YAML
// file and REPORTQL_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/asaidimu/go-reportql/core/catalog"
	"github.com/asaidimu/go-reportql/core/query"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "REPORTQL_"

// DefaultFiles are the config files searched in the working directory when
// no explicit path is given.
var DefaultFiles = []string{"reportql.yaml", "reportql.yml"}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DataSourceConfig declares a data source. Only "sqlite" is supported; Path
// is the database file.
type DataSourceConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
	Type string `koanf:"type"`
	Path string `koanf:"path"`
}

// JoinPatternConfig declares a join convention.
type JoinPatternConfig struct {
	Left      string `koanf:"left"`
	Right     string `koanf:"right"`
	Condition string `koanf:"condition"`
	Type      string `koanf:"type"`
}

// Config holds all reportql settings.
type Config struct {
	LogLevel string `koanf:"log_level"`
	// DefaultLimit is the row limit new models start with. It defaults to
	// query.DefaultLimit when unset; 0 or a negative value means no limit.
	DefaultLimit int                 `koanf:"default_limit"`
	DataSources  []DataSourceConfig  `koanf:"data_sources"`
	JoinPatterns []JoinPatternConfig `koanf:"join_patterns"`

	// File is the config file that was read, empty when none was found.
	File string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"log_level":     "info",
		"default_limit": query.DefaultLimit,
	}
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads the configuration. An explicit path must exist; with an empty
// path the DefaultFiles are tried and skipped when absent.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(path)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// REPORTQL_DEFAULT_LIMIT -> default_limit
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks data source declarations and join patterns.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	seen := make(map[string]struct{}, len(c.DataSources))
	for i, ds := range c.DataSources {
		if ds.ID == "" {
			return fmt.Errorf("%w: data_sources[%d] has no id", ErrInvalidConfig, i)
		}
		if _, dup := seen[ds.ID]; dup {
			return fmt.Errorf("%w: duplicate data source id %q", ErrInvalidConfig, ds.ID)
		}
		seen[ds.ID] = struct{}{}
		if t := strings.ToLower(ds.Type); t != "" && t != "sqlite" {
			return fmt.Errorf("%w: data source %q has unsupported type %q", ErrInvalidConfig, ds.ID, ds.Type)
		}
		if ds.Path == "" {
			return fmt.Errorf("%w: data source %q has no path", ErrInvalidConfig, ds.ID)
		}
	}

	for i, p := range c.JoinPatterns {
		if p.Left == "" || p.Right == "" || p.Condition == "" {
			return fmt.Errorf("%w: join_patterns[%d] needs left, right and condition", ErrInvalidConfig, i)
		}
		switch query.JoinType(strings.ToUpper(p.Type)) {
		case "", query.JoinTypeInner, query.JoinTypeLeft, query.JoinTypeRight, query.JoinTypeFull:
		default:
			return fmt.Errorf("%w: join_patterns[%d] has unknown type %q", ErrInvalidConfig, i, p.Type)
		}
	}
	return nil
}

// Patterns returns the configured join patterns, or the built-in ones when
// none are configured.
func (c *Config) Patterns() []query.JoinPattern {
	if len(c.JoinPatterns) == 0 {
		return query.DefaultJoinPatterns()
	}
	out := make([]query.JoinPattern, len(c.JoinPatterns))
	for i, p := range c.JoinPatterns {
		out[i] = query.JoinPattern{
			Left:      p.Left,
			Right:     p.Right,
			Condition: p.Condition,
			Type:      query.JoinType(strings.ToUpper(p.Type)),
		}
	}
	return out
}

// Sources returns the catalog entries for the declared data sources. Their
// status is left for discovery to decide.
func (c *Config) Sources() []catalog.DataSource {
	out := make([]catalog.DataSource, len(c.DataSources))
	for i, ds := range c.DataSources {
		name := ds.Name
		if name == "" {
			name = ds.ID
		}
		typ := ds.Type
		if typ == "" {
			typ = "sqlite"
		}
		out[i] = catalog.DataSource{ID: ds.ID, Name: name, Type: typ}
	}
	return out
}

// DataSource looks up a declared data source by ID.
func (c *Config) DataSource(id string) (DataSourceConfig, bool) {
	for _, ds := range c.DataSources {
		if ds.ID == id {
			return ds, true
		}
	}
	return DataSourceConfig{}, false
}

// ModelOptions builds query model options from the configuration.
func (c *Config) ModelOptions(logger *zap.Logger) *query.ModelOptions {
	limit := c.DefaultLimit
	if limit <= 0 {
		// the model reads 0 as "use the built-in default"
		limit = -1
	}
	return &query.ModelOptions{
		Logger:       logger,
		JoinPatterns: c.Patterns(),
		DefaultLimit: limit,
	}
}

// NewLogger builds a production zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.TimeKey = "timestamp"
	return zc.Build()
}

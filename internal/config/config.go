// Package config loads and validates scanledger's run configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors. All surface as ConfigError (spec §7.1).
var (
	ErrUnknownPreset     = errors.New("unknown bundle preset")
	ErrUnknownGraphScope = errors.New("unknown graph scope")
	ErrInvalidBudget     = errors.New("bundle budget must be positive")
	ErrInvalidWorkers    = errors.New("worker count must be non-negative")
	ErrUnknownField      = errors.New("unknown configuration field")
	ErrInvalidTheme      = errors.New("unknown diagram theme")
	ErrInvalidFormat     = errors.New("unknown diagram format")
)

// ConfigError wraps any validation or load failure from this package,
// per the taxonomy in spec.md §7.1: fatal, exit 3, no run directory created.
type ConfigError struct {
	Code string
	Err  error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s: %v", e.Code, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Default configuration values.
const (
	DefaultMaxBundleBytes   = 200 * 1024
	DefaultMaxBundleLines   = 4000
	DefaultRetentionCount   = 10
	DefaultDiagramWorkers   = 0 // 0 = min(4, core count)
	DefaultExtractWorkers   = 0 // 0 = core count
	DefaultDigestWorkers    = 0 // 0 = core count
	DefaultLargeFileBytes   = 8 * 1024 * 1024
	DefaultCacheDir         = ".scanledger/cache"
	DefaultRunsDir          = "runs"
	DefaultLicenseHeadLines = 40
)

// ClosedPresets is the closed set of bundle presets (spec §4.4).
var ClosedPresets = []string{"all", "api", "tests", "dependencies"}

// ClosedGraphScopes is the closed set of --graph-scope values (spec §6).
var ClosedGraphScopes = []string{"full", "code", "dependencies", "tests"}

// ClosedDiagramPresets is the closed set of diagram presets (spec §4.10).
var ClosedDiagramPresets = []string{"architecture", "dependencies", "tests"}

// ClosedDiagramFormats is the closed set of diagram formats (spec §4.10).
var ClosedDiagramFormats = []string{"mermaid", "plantuml", "graphviz"}

// ClosedDiagramThemes is the closed set of diagram themes (spec §4.10).
var ClosedDiagramThemes = []string{"light", "dark", "auto"}

// ClosedExplainScopes is the closed set of explain card scopes (spec §4.12).
var ClosedExplainScopes = []string{"architecture", "quality", "tests"}

// Config is the explicit, fully-enumerated configuration record (spec §9
// Design Note: "Config objects with open-ended kwargs"). Unknown fields
// in a loaded file produce ErrUnknownField.
type Config struct {
	Privacy    PrivacyConfig    `mapstructure:"privacy"`
	Source     SourceConfig     `mapstructure:"source"`
	Bundle     BundleConfig     `mapstructure:"bundle"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Diagram    DiagramConfig    `mapstructure:"diagram"`
	Gate       GateConfig       `mapstructure:"gate"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
}

// PrivacyConfig controls network access (spec §1, §5).
type PrivacyConfig struct {
	AllowNetwork bool `mapstructure:"allow_network"`
}

// SourceConfig controls which files the walker includes (spec §4.2).
type SourceConfig struct {
	Input   string   `mapstructure:"input"`
	Include []string `mapstructure:"include"`
	Ignore  []string `mapstructure:"ignore"`
}

// BundleConfig controls bundle builder budgets and preset selection (spec §4.4).
type BundleConfig struct {
	Presets       []string `mapstructure:"presets"`
	MaxBundleBytes int64   `mapstructure:"max_bundle_bytes"`
	MaxBundleLines int     `mapstructure:"max_bundle_lines"`
}

// GraphConfig controls knowledge graph construction scope (spec §4.7, §6).
type GraphConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Scope      string `mapstructure:"scope"`
	Diff       bool   `mapstructure:"diff"`
	NoTests    bool   `mapstructure:"no_tests"`
}

// DiagramConfig controls diagram generation (spec §4.10).
type DiagramConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Presets     []string `mapstructure:"presets"`
	Formats     []string `mapstructure:"formats"`
	Theme       string   `mapstructure:"theme"`
	Concurrency int      `mapstructure:"concurrency"`
}

// GateConfig holds quality-gate thresholds (spec §4.11).
type GateConfig struct {
	MinCoverage           *float64 `mapstructure:"min_coverage"`
	MaxFailedTests        *int     `mapstructure:"max_failed_tests"`
	MaxLintWarnings       *int     `mapstructure:"max_lint_warnings"`
	MaxCriticalVulns      *int     `mapstructure:"max_critical_vulnerabilities"`
}

// CacheConfig controls the content-addressed cache (spec §4.3).
type CacheConfig struct {
	Directory        string `mapstructure:"directory"`
	ForceRebuild     bool   `mapstructure:"force_rebuild"`
	NoIncremental    bool   `mapstructure:"no_incremental"`
	LargeFileBytes   int64  `mapstructure:"large_file_bytes"`
}

// RetentionConfig controls sibling run-directory pruning (spec §4.13).
type RetentionConfig struct {
	KeepCount int `mapstructure:"keep_count"`
}

// LoggingConfig controls slog output (ambient, spec §0/§9).
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConcurrencyConfig bounds the three embarrassingly-parallel stages (spec §5).
type ConcurrencyConfig struct {
	DigestWorkers   int `mapstructure:"digest_workers"`
	ExtractWorkers  int `mapstructure:"extract_workers"`
	DiagramWorkers  int `mapstructure:"diagram_workers"`
}

// Load reads configuration from an optional file plus SCANLEDGER_-prefixed
// environment variables, applies defaults, and validates the result.
// An explicit configPath that fails to parse, or any unknown field,
// surfaces as *ConfigError.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("scanledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCANLEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !(errors.As(readErr, &notFound) && configPath == "") {
			return nil, &ConfigError{Code: "config.read_failed", Err: readErr}
		}
	}

	var cfg Config

	decodeErr := v.UnmarshalExact(&cfg)
	if decodeErr != nil {
		return nil, &ConfigError{Code: "config.unknown_field", Err: fmt.Errorf("%w: %v", ErrUnknownField, decodeErr)}
	}

	if validateErr := validate(&cfg); validateErr != nil {
		return nil, &ConfigError{Code: "config.invalid", Err: validateErr}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("privacy.allow_network", false)

	v.SetDefault("source.input", ".")
	v.SetDefault("source.include", []string{})
	v.SetDefault("source.ignore", []string{})

	v.SetDefault("bundle.presets", ClosedPresets)
	v.SetDefault("bundle.max_bundle_bytes", DefaultMaxBundleBytes)
	v.SetDefault("bundle.max_bundle_lines", DefaultMaxBundleLines)

	v.SetDefault("graph.enabled", true)
	v.SetDefault("graph.scope", "full")
	v.SetDefault("graph.diff", true)
	v.SetDefault("graph.no_tests", false)

	v.SetDefault("diagram.enabled", true)
	v.SetDefault("diagram.presets", ClosedDiagramPresets)
	v.SetDefault("diagram.formats", []string{"mermaid"})
	v.SetDefault("diagram.theme", "auto")
	v.SetDefault("diagram.concurrency", DefaultDiagramWorkers)

	v.SetDefault("cache.directory", DefaultCacheDir)
	v.SetDefault("cache.force_rebuild", false)
	v.SetDefault("cache.no_incremental", false)
	v.SetDefault("cache.large_file_bytes", DefaultLargeFileBytes)

	v.SetDefault("retention.keep_count", DefaultRetentionCount)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("concurrency.digest_workers", DefaultDigestWorkers)
	v.SetDefault("concurrency.extract_workers", DefaultExtractWorkers)
	v.SetDefault("concurrency.diagram_workers", DefaultDiagramWorkers)
}

func validate(cfg *Config) error {
	for _, p := range cfg.Bundle.Presets {
		if !contains(ClosedPresets, p) {
			return fmt.Errorf("%w: %s", ErrUnknownPreset, p)
		}
	}

	if !contains(ClosedGraphScopes, cfg.Graph.Scope) {
		return fmt.Errorf("%w: %s", ErrUnknownGraphScope, cfg.Graph.Scope)
	}

	if cfg.Bundle.MaxBundleBytes <= 0 || cfg.Bundle.MaxBundleLines <= 0 {
		return ErrInvalidBudget
	}

	for _, f := range cfg.Diagram.Presets {
		if !contains(ClosedDiagramPresets, f) {
			return fmt.Errorf("%w: %s", ErrUnknownPreset, f)
		}
	}

	for _, f := range cfg.Diagram.Formats {
		if !contains(ClosedDiagramFormats, f) {
			return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
		}
	}

	if !contains(ClosedDiagramThemes, cfg.Diagram.Theme) {
		return fmt.Errorf("%w: %s", ErrInvalidTheme, cfg.Diagram.Theme)
	}

	if cfg.Concurrency.DigestWorkers < 0 || cfg.Concurrency.ExtractWorkers < 0 || cfg.Concurrency.DiagramWorkers < 0 {
		return ErrInvalidWorkers
	}

	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}

	return false
}

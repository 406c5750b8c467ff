// Package config manages application configuration from various sources.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/opencode-ai/lintwatch/internal/logging"
	"github.com/spf13/viper"
)

// AnalyzerConfig selects and tunes the external analysis tool.
type AnalyzerConfig struct {
	Name       string   `json:"name"`
	Command    string   `json:"command,omitempty"`
	Args       []string `json:"args,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	InstallDir string   `json:"installDir,omitempty"`
	Timeout    int      `json:"timeout,omitempty"` // seconds
}

// TimeoutDuration returns the per-run analyzer timeout.
func (a AnalyzerConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// AnalysisConfig controls how saves are scheduled.
type AnalysisConfig struct {
	Async         bool `json:"async"`
	MaxConcurrent int  `json:"maxConcurrent,omitempty"`
}

// WatchConfig defines which files the file-system host tracks.
type WatchConfig struct {
	Include  []string `json:"include,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	Debounce int      `json:"debounce,omitempty"` // milliseconds
}

// DebounceDuration returns the write debounce window.
func (w WatchConfig) DebounceDuration() time.Duration {
	return time.Duration(w.Debounce) * time.Millisecond
}

// ProviderConfig names the diagnostics provider shown in the host UI.
type ProviderConfig struct {
	Name string `json:"name,omitempty"`
}

// Data defines storage configuration.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data       Data           `json:"data"`
	WorkingDir string         `json:"wd,omitempty"`
	Analyzer   AnalyzerConfig `json:"analyzer"`
	Analysis   AnalysisConfig `json:"analysis"`
	Watch      WatchConfig    `json:"watch"`
	Provider   ProviderConfig `json:"provider"`
	Debug      bool           `json:"debug,omitempty"`
}

// Application constants
const (
	defaultDataDirectory = ".lintwatch"
	defaultLogLevel      = "info"
	appName              = "lintwatch"

	DefaultAnalyzer      = "jshint"
	DefaultProviderName  = "lintwatch"
	DefaultTimeout       = 30
	DefaultMaxConcurrent = 4
	DefaultDebounce      = 150
)

var (
	defaultWatchInclude = []string{"**/*.js"}
	defaultWatchExclude = []string{"**/node_modules/**", "**/.git/**"}
)

// Global configuration instance
var cfg *Config

// Reset clears the global configuration, allowing Load to be called again.
// This is intended for use in tests only.
func Reset() {
	cfg = nil
	viper.Reset()
}

// Load initializes the configuration from environment variables and config files.
// If debug is true, debug mode is enabled and log level is set to debug.
// It returns an error if configuration loading fails.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		WorkingDir: workingDir,
	}

	configureViper()
	setDefaults(debug)

	// Read global config
	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	// Load and merge local config
	mergeLocalConfig(workingDir)

	// Apply configuration to the struct
	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaultValues()
	defaultLevel := slog.LevelInfo
	if cfg.Debug {
		defaultLevel = slog.LevelDebug
	}
	if os.Getenv("LINTWATCH_DEV_DEBUG") == "true" {
		loggingFile := filepath.Join(cfg.Data.Directory, "debug.log")

		if err := os.MkdirAll(cfg.Data.Directory, 0o755); err != nil {
			return cfg, fmt.Errorf("failed to create directory: %w", err)
		}

		sloggingFileWriter, err := os.OpenFile(loggingFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return cfg, fmt.Errorf("failed to open log file: %w", err)
		}
		// Configure logger
		logger := slog.New(slog.NewTextHandler(logging.NewWriter(sloggingFileWriter), &slog.HandlerOptions{
			Level: defaultLevel,
		}))
		slog.SetDefault(logger)
	} else {
		// Configure logger; stdout is owned by the stdio transports
		logger := slog.New(slog.NewTextHandler(logging.NewWriter(os.Stderr), &slog.HandlerOptions{
			Level: defaultLevel,
		}))
		slog.SetDefault(logger)
	}
	logging.PanicDir = cfg.Data.Directory

	// Validate configuration
	if err := Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func setDefaults(debug bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)
	viper.SetDefault("analyzer.name", DefaultAnalyzer)
	viper.SetDefault("analyzer.timeout", DefaultTimeout)
	viper.SetDefault("analysis.async", true)
	viper.SetDefault("analysis.maxConcurrent", DefaultMaxConcurrent)
	viper.SetDefault("watch.include", defaultWatchInclude)
	viper.SetDefault("watch.exclude", defaultWatchExclude)
	viper.SetDefault("watch.debounce", DefaultDebounce)
	viper.SetDefault("provider.name", DefaultProviderName)

	if debug {
		viper.SetDefault("debug", true)
		viper.Set("log.level", "debug")
	} else {
		viper.SetDefault("debug", false)
		viper.SetDefault("log.level", defaultLogLevel)
	}
}

func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("failed to read config: %w", err)
}

func mergeLocalConfig(workingDir string) {
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	// Merge local config if it exists
	if err := local.ReadInConfig(); err == nil {
		viper.MergeConfigMap(local.AllSettings())
	}
}

func applyDefaultValues() {
	if cfg.Analyzer.InstallDir == "" {
		cfg.Analyzer.InstallDir = executableDir()
	}
	if !filepath.IsAbs(cfg.Data.Directory) && cfg.WorkingDir != "" {
		cfg.Data.Directory = filepath.Join(cfg.WorkingDir, cfg.Data.Directory)
	}
}

// executableDir is the directory holding the running binary, the place the
// analyzer is installed next to by default.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Validate checks the loaded configuration, repairing values that have a
// sensible fallback and rejecting those that don't.
func Validate() error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	if cfg.Analyzer.Name == "" {
		logging.Warn("analyzer has no name, using default", "analyzer", DefaultAnalyzer)
		cfg.Analyzer.Name = DefaultAnalyzer
	}

	if cfg.Analyzer.Timeout <= 0 {
		logging.Warn("invalid analyzer timeout, using default", "timeout", cfg.Analyzer.Timeout, "default", DefaultTimeout)
		cfg.Analyzer.Timeout = DefaultTimeout
	}

	if cfg.Analyzer.Pattern != "" {
		if _, err := regexp.Compile(cfg.Analyzer.Pattern); err != nil {
			return fmt.Errorf("invalid analyzer pattern: %w", err)
		}
	}

	cfg.Analyzer.Extensions = normalizeExtensions(cfg.Analyzer.Extensions)

	if cfg.Analysis.MaxConcurrent < 1 {
		logging.Warn("invalid analysis.maxConcurrent, using 1", "maxConcurrent", cfg.Analysis.MaxConcurrent)
		cfg.Analysis.MaxConcurrent = 1
	}

	if cfg.Watch.Debounce < 0 {
		cfg.Watch.Debounce = 0
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProviderName
	}

	return nil
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// updateCfgFile rewrites the config file in place. Only the keys touched
// by update change; everything else, including settings the user never
// wrote, stays as it was.
func updateCfgFile(update func(raw map[string]any)) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// Get the config file path
	configFile := viper.ConfigFileUsed()
	var configData []byte
	if configFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configFile = filepath.Join(homeDir, fmt.Sprintf(".%s.json", appName))
		logging.Info("config file not found, creating new one", "path", configFile)
		configData = []byte(`{}`)
	} else {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		configData = data
	}

	var raw map[string]any
	if err := json.Unmarshal(configData, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	update(raw)

	updatedData, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, updatedData, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}

// UpdateAnalyzer switches the analyzer in memory and persists the choice to
// the global config file. Command and pattern overrides are dropped since
// they belong to the previous tool.
func UpdateAnalyzer(name string) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if name == "" {
		return fmt.Errorf("analyzer name is required")
	}

	cfg.Analyzer.Name = name
	cfg.Analyzer.Command = ""
	cfg.Analyzer.Pattern = ""

	return updateCfgFile(func(raw map[string]any) {
		analyzer, _ := raw["analyzer"].(map[string]any)
		if analyzer == nil {
			analyzer = make(map[string]any)
		}
		analyzer["name"] = name
		delete(analyzer, "command")
		delete(analyzer, "pattern")
		raw["analyzer"] = analyzer
	})
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CTAG07/hostgen/pkg/dedup"
	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/miekg/dns"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// AppName names the configuration and data directories.
const AppName = "hostgen"

// Config is the top-level configuration.
type Config struct {
	LogLevel     string         `yaml:"log_level" env:"HOSTGEN_LOG_LEVEL"`
	DatabasePath string         `yaml:"database_path" env:"HOSTGEN_DATABASE_PATH"`
	Generate     GenerateConfig `yaml:"generate"`
	Probe        ProbeConfig    `yaml:"probe"`
	Serve        ServeConfig    `yaml:"serve"`
}

// GenerateConfig holds the defaults for name generation.
type GenerateConfig struct {
	Epsilons          EpsilonConfig `yaml:"epsilons"`
	Count             int           `yaml:"count"`
	Prefix            string        `yaml:"prefix"`
	Suffix            string        `yaml:"suffix"`
	Levels            []int         `yaml:"levels"`
	CustomLevels      int           `yaml:"custom_levels"`
	MinWordLength     []int         `yaml:"min_word_length"` // per level, 0 = no override
	MaxWordLength     []int         `yaml:"max_word_length"` // per level, 0 = no override
	RetryFactor       int           `yaml:"retry_factor"`
	FalsePositiveRate float64       `yaml:"false_positive_rate"`
	Seed              uint64        `yaml:"seed"` // 0 = random
}

// EpsilonConfig holds one bias per level for each table.
type EpsilonConfig struct {
	Transition []float64 `yaml:"trans"`
	Start      []float64 `yaml:"start"`
	Length     []float64 `yaml:"length"`
}

// ProbeConfig holds the DNS prober settings.
type ProbeConfig struct {
	Resolver   string        `yaml:"resolver" env:"HOSTGEN_RESOLVER"`
	QPS        float64       `yaml:"qps"`
	Burst      int           `yaml:"burst"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	RecordType string        `yaml:"record_type"`
}

// ServeConfig holds the HTTP API settings.
type ServeConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"HOSTGEN_LISTEN_ADDR"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/hostgen/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultGenerateConfig returns the generation defaults.
func DefaultGenerateConfig() GenerateConfig {
	eps := func() []float64 {
		return []float64{markov.DefaultEpsilon, markov.DefaultEpsilon, markov.DefaultEpsilon, markov.DefaultEpsilon}
	}
	return GenerateConfig{
		Epsilons:          EpsilonConfig{Transition: eps(), Start: eps(), Length: eps()},
		Count:             100,
		Levels:            []int{0, 1, 2, 3},
		MinWordLength:     []int{0, 0, 0, 0},
		MaxWordLength:     []int{0, 0, 0, 0},
		RetryFactor:       markov.DefaultRetryFactor,
		FalsePositiveRate: dedup.DefaultFalsePositiveRate,
	}
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		DatabasePath: filepath.Join(xdg.DataHome, AppName, "models.db"),
		Generate:     DefaultGenerateConfig(),
		Probe: ProbeConfig{
			Resolver:   "127.0.0.1:53",
			QPS:        50,
			Burst:      10,
			Workers:    8,
			Timeout:    2 * time.Second,
			RecordType: "A",
		},
		Serve: ServeConfig{ListenAddr: ":7280"},
	}
}

// LoadConfig reads the configuration from a YAML file at the given path.
// If the file doesn't exist, it creates one with default values. Environment
// variables override values from the file.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = writeDefaultConfig(path, config); err != nil {
			// the defaults are still usable
			slog.Warn("Failed to write default config file", "path", path, "error", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err = yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err = env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func writeDefaultConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database_path is empty", ErrInvalidConfig)
	}
	if err := c.Generate.Validate(); err != nil {
		return err
	}
	return c.Probe.Validate()
}

// Validate checks the generation settings.
func (g *GenerateConfig) Validate() error {
	if g.Count < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, g.Count)
	}
	if err := g.Epsilons.Validate(); err != nil {
		return err
	}
	if len(g.Levels) == 0 || len(g.Levels) > markov.MaxLevels {
		return fmt.Errorf("%w: %d levels selected", ErrInvalidLevels, len(g.Levels))
	}
	for _, l := range g.Levels {
		if l < 0 || l >= markov.MaxLevels {
			return fmt.Errorf("%w: %d", ErrInvalidLevels, l)
		}
	}
	if g.CustomLevels < 0 || g.CustomLevels >= markov.MaxLevels {
		return fmt.Errorf("%w: custom levels %d", ErrInvalidLevels, g.CustomLevels)
	}
	for name, lengths := range map[string][]int{"min": g.MinWordLength, "max": g.MaxWordLength} {
		if len(lengths) != markov.MaxLevels {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidWordLength, name, len(lengths), markov.MaxLevels)
		}
		for _, l := range lengths {
			if l < 0 {
				return fmt.Errorf("%w: %s value %d", ErrInvalidWordLength, name, l)
			}
		}
	}
	if g.RetryFactor < 1 {
		return fmt.Errorf("%w: retry_factor %d", ErrInvalidConfig, g.RetryFactor)
	}
	if g.FalsePositiveRate <= 0 || g.FalsePositiveRate >= 1 {
		return fmt.Errorf("%w: false_positive_rate %v", ErrInvalidConfig, g.FalsePositiveRate)
	}
	return nil
}

// Validate checks that every vector has one value in [0, 1) per level.
func (e *EpsilonConfig) Validate() error {
	for name, eps := range map[string][]float64{
		"trans":  e.Transition,
		"start":  e.Start,
		"length": e.Length,
	} {
		if len(eps) != markov.MaxLevels {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidEpsilons, name, len(eps), markov.MaxLevels)
		}
		for _, v := range eps {
			if v < 0 || v >= 1 {
				return fmt.Errorf("%w: %s value %v outside [0, 1)", ErrInvalidEpsilons, name, v)
			}
		}
	}
	return nil
}

// epsilons converts the configured vectors. Validate must have passed.
func (e *EpsilonConfig) epsilons() markov.Epsilons {
	var out markov.Epsilons
	copy(out.Transition[:], e.Transition)
	copy(out.Start[:], e.Start)
	copy(out.Length[:], e.Length)
	return out
}

// extendOptions converts the level and word-length settings.
func (g *GenerateConfig) extendOptions() markov.ExtendOptions {
	opts := markov.ExtendOptions{
		CustomLength: g.CustomLevels,
		NumLevels:    len(g.Levels),
	}
	copy(opts.MinWordLength[:], g.MinWordLength)
	copy(opts.MaxWordLength[:], g.MaxWordLength)
	return opts
}

// Validate checks the prober settings.
func (p *ProbeConfig) Validate() error {
	if p.Resolver == "" {
		return fmt.Errorf("%w: probe resolver is empty", ErrInvalidConfig)
	}
	if p.Workers < 1 {
		return fmt.Errorf("%w: probe workers %d", ErrInvalidConfig, p.Workers)
	}
	if _, err := p.queryType(); err != nil {
		return err
	}
	return nil
}

func (p *ProbeConfig) queryType() (uint16, error) {
	t, ok := dns.StringToType[strings.ToUpper(p.RecordType)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRecordType, p.RecordType)
	}
	return t, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}

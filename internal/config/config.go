// Package config loads the translation settings from TOML or YAML files and
// MDTRANS_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/retry"
)

const (
	ProviderDeepLX = "deeplx"
	ProviderGemini = "gemini"

	EnvPrefix = "MDTRANS_"

	DefaultEndpoint      = "http://localhost:1188/translate"
	DefaultRPS           = 0.5
	DefaultMaxTextLength = 3000
	DefaultMaxParagraphs = 10

	MaxRPS           = 50.0
	MinTextLength    = 100
	MaxTextLength    = 100000
	MaxParagraphsCap = 1000
	MaxRetriesCap    = 10
)

// DefaultLocations are searched in order by LoadDefault.
var DefaultLocations = []string{
	"translation-config.toml",
	"config.toml",
	".translation-config.toml",
}

// RetryConfig is the [translation.retry] table. Delays are in milliseconds.
type RetryConfig struct {
	MaxRetries        int     `toml:"max_retries" yaml:"max_retries" env:"MAX_RETRIES"`
	InitialDelayMS    int64   `toml:"initial_delay_ms" yaml:"initial_delay_ms" env:"INITIAL_DELAY_MS"`
	MaxDelayMS        int64   `toml:"max_delay_ms" yaml:"max_delay_ms" env:"MAX_DELAY_MS"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`
}

// Config is the [translation] table.
type Config struct {
	Enabled                 bool        `toml:"enabled" yaml:"enabled" env:"ENABLED"`
	Provider                string      `toml:"provider" yaml:"provider" env:"PROVIDER"`
	SourceLang              string      `toml:"source_lang" yaml:"source_lang" env:"SOURCE_LANG"`
	TargetLang              string      `toml:"target_lang" yaml:"target_lang" env:"TARGET_LANG"`
	DeepLXAPIURL            string      `toml:"deeplx_api_url" yaml:"deeplx_api_url" env:"DEEPLX_API_URL"`
	Model                   string      `toml:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	MaxRequestsPerSecond    float64     `toml:"max_requests_per_second" yaml:"max_requests_per_second" env:"MAX_REQUESTS_PER_SECOND"`
	MaxTextLength           int         `toml:"max_text_length" yaml:"max_text_length" env:"MAX_TEXT_LENGTH"`
	MaxParagraphsPerRequest int         `toml:"max_paragraphs_per_request" yaml:"max_paragraphs_per_request" env:"MAX_PARAGRAPHS_PER_REQUEST"`
	CachePath               string      `toml:"cache_path,omitempty" yaml:"cache_path,omitempty" env:"CACHE_PATH"`
	Retry                   RetryConfig `toml:"retry" yaml:"retry" envPrefix:"RETRY_"`
}

// File is the on-disk document.
type File struct {
	Translation Config `toml:"translation" yaml:"translation"`
}

func Default() Config {
	p := retry.DefaultPolicy()
	return Config{
		Enabled:                 false,
		Provider:                ProviderDeepLX,
		SourceLang:              language.Auto,
		TargetLang:              "zh",
		DeepLXAPIURL:            DefaultEndpoint,
		MaxRequestsPerSecond:    DefaultRPS,
		MaxTextLength:           DefaultMaxTextLength,
		MaxParagraphsPerRequest: DefaultMaxParagraphs,
		Retry: RetryConfig{
			MaxRetries:        p.MaxRetries,
			InitialDelayMS:    p.InitialDelay.Milliseconds(),
			MaxDelayMS:        p.MaxDelay.Milliseconds(),
			BackoffMultiplier: p.BackoffMultiplier,
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	doc := File{Translation: Default()}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		return doc.Translation, nil
	}

	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		logger.Warn("Unknown configuration key ignored", "path", path, "key", key.String())
	}
	return doc.Translation, nil
}

// LoadDefault tries DefaultLocations under dir and returns the first file
// that parses, with its path. Unparseable files are skipped with a warning.
// With no usable file it returns Default() and an empty path.
func LoadDefault(dir string) (Config, string) {
	for _, name := range DefaultLocations {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Warn("Failed to load configuration", "path", path, "error", err)
			continue
		}
		logger.Debug("Loaded configuration", "path", path)
		return cfg, path
	}
	logger.Debug("No configuration file found, using defaults")
	return Default(), ""
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from MDTRANS_* variables, e.g.
// MDTRANS_TARGET_LANG or MDTRANS_RETRY_MAX_RETRIES.
func (c Config) ApplyEnv() (Config, error) {
	return c.applyEnvironment(nil)
}

func (c Config) applyEnvironment(environ map[string]string) (Config, error) {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return c, fmt.Errorf("reading %s* environment: %w", EnvPrefix, err)
	}
	return c, nil
}

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderDeepLX
	}
	c.SourceLang = strings.TrimSpace(c.SourceLang)
	if c.SourceLang == "" {
		c.SourceLang = language.Auto
	}
	c.TargetLang = strings.TrimSpace(c.TargetLang)
	c.DeepLXAPIURL = strings.TrimSpace(c.DeepLXAPIURL)

	rps := c.MaxRequestsPerSecond
	switch {
	case math.IsNaN(rps) || rps <= 0:
		notes = append(notes, fmt.Sprintf("max_requests_per_second %v is not positive, using %v", rps, DefaultRPS))
		c.MaxRequestsPerSecond = DefaultRPS
	case rps > MaxRPS:
		notes = append(notes, fmt.Sprintf("max_requests_per_second clamped from %v to %v", rps, MaxRPS))
		c.MaxRequestsPerSecond = MaxRPS
	}

	switch {
	case c.MaxTextLength <= 0:
		notes = append(notes, fmt.Sprintf("max_text_length %d is not positive, using %d", c.MaxTextLength, DefaultMaxTextLength))
		c.MaxTextLength = DefaultMaxTextLength
	case c.MaxTextLength < MinTextLength:
		notes = append(notes, fmt.Sprintf("max_text_length raised from %d to %d (min %d)", c.MaxTextLength, MinTextLength, MinTextLength))
		c.MaxTextLength = MinTextLength
	case c.MaxTextLength > MaxTextLength:
		notes = append(notes, fmt.Sprintf("max_text_length clamped from %d to %d (max %d)", c.MaxTextLength, MaxTextLength, MaxTextLength))
		c.MaxTextLength = MaxTextLength
	}

	if c.MaxParagraphsPerRequest < 0 {
		notes = append(notes, fmt.Sprintf("max_paragraphs_per_request %d is negative, disabling the cap", c.MaxParagraphsPerRequest))
		c.MaxParagraphsPerRequest = 0
	} else if c.MaxParagraphsPerRequest > MaxParagraphsCap {
		notes = append(notes, fmt.Sprintf("max_paragraphs_per_request clamped from %d to %d", c.MaxParagraphsPerRequest, MaxParagraphsCap))
		c.MaxParagraphsPerRequest = MaxParagraphsCap
	}

	if c.Retry.MaxRetries > MaxRetriesCap {
		notes = append(notes, fmt.Sprintf("retry.max_retries clamped from %d to %d", c.Retry.MaxRetries, MaxRetriesCap))
		c.Retry.MaxRetries = MaxRetriesCap
	}
	return c, notes
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderDeepLX:
		u, err := url.Parse(c.DeepLXAPIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("deeplx_api_url must be an http(s) URL, got %q", c.DeepLXAPIURL)
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q (expected %s or %s)", c.Provider, ProviderDeepLX, ProviderGemini)
	}
	if !language.IsAuto(c.SourceLang) {
		if _, ok := language.GetLanguage(c.SourceLang); !ok {
			return fmt.Errorf("unsupported source language %q", c.SourceLang)
		}
	}
	if language.IsAuto(c.TargetLang) {
		return fmt.Errorf("target language cannot be %q", language.Auto)
	}
	if _, ok := language.GetLanguage(c.TargetLang); !ok {
		return fmt.Errorf("unsupported target language %q", c.TargetLang)
	}
	if c.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("max_requests_per_second must be greater than 0, got %v", c.MaxRequestsPerSecond)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("max_text_length must be greater than 0, got %d", c.MaxTextLength)
	}
	if c.MaxParagraphsPerRequest < 0 {
		return fmt.Errorf("max_paragraphs_per_request must be 0 or greater, got %d", c.MaxParagraphsPerRequest)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// RetryPolicy converts the retry table.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:        c.Retry.MaxRetries,
		InitialDelay:      time.Duration(c.Retry.InitialDelayMS) * time.Millisecond,
		MaxDelay:          time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
	}
}

// Encode renders the configuration in the format implied by path.
func (c Config) Encode(path string) ([]byte, error) {
	doc := File{Translation: c}
	if isYAML(path) {
		return yaml.Marshal(doc)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the configuration atomically.
func (c Config) Save(path string) error {
	data, err := c.Encode(path)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := files.AtomicWrite(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteExample writes the default configuration to path.
func WriteExample(path string) error {
	return Default().Save(path)
}

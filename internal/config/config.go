// Package config loads listingfix settings from defaults, an optional YAML
// file and LISTINGFIX_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/listingfix/internal/generator"
	"github.com/valpere/listingfix/internal/logging"
	"github.com/valpere/listingfix/internal/orchestrator"
	"github.com/valpere/listingfix/internal/rules"
)

const envPrefix = "LISTINGFIX"

type Config struct {
	Rules     rules.Catalog                   `mapstructure:"rules"`
	Generator generator.Config                `mapstructure:"generator"`
	Refine    orchestrator.OrchestratorConfig `mapstructure:"refine"`
	Batch     BatchConfig                     `mapstructure:"batch"`
	Store     StoreConfig                     `mapstructure:"store"`
	Log       logging.Config                  `mapstructure:"log"`
	Server    ServerConfig                    `mapstructure:"server"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

type StoreConfig struct {
	Path    string `mapstructure:"path"`
	NoCache bool   `mapstructure:"no_cache"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// apiKeyEnv lists the provider-native variables consulted when no key is
// configured.
var apiKeyEnv = map[string][]string{
	"openai":     {"OPENAI_API_KEY"},
	"gemini":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// Load reads the configuration. An explicit path must exist; without one,
// listingfix.yaml is looked up in the working directory and
// $HOME/.config/listingfix and skipped when absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("listingfix")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/listingfix")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Lists come from the default catalog unless the file replaces them.
	if !v.IsSet("rules.banned") {
		cfg.Rules.Banned = rules.Default().Banned
	}
	if !v.IsSet("rules.claim_verbs") {
		cfg.Rules.ClaimVerbs = rules.Default().ClaimVerbs
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize lower-cases the provider, fills a missing API key from the
// provider's own environment variable and validates the result. Commands
// call it again after applying flag overrides.
func (c *Config) Normalize() error {
	c.Generator.Provider = strings.ToLower(strings.TrimSpace(c.Generator.Provider))
	if c.Generator.APIKey == "" {
		for _, name := range apiKeyEnv[c.Generator.Provider] {
			if key := os.Getenv(name); key != "" {
				c.Generator.APIKey = key
				break
			}
		}
	}
	return c.Validate()
}

// Validate reports settings no command can run with. The rule catalog is
// checked separately when the orchestrator is built.
func (c *Config) Validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Refine.MaxAttempts < 1 {
		return fmt.Errorf("refine.max_attempts must be at least 1, got %d", c.Refine.MaxAttempts)
	}
	valid := false
	for _, p := range generator.Providers {
		if c.Generator.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("generator.provider %q is not one of %s", c.Generator.Provider, strings.Join(generator.Providers, ", "))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := rules.Default()
	v.SetDefault("rules.bullet_count", d.BulletCount)
	v.SetDefault("rules.bullet_max_chars", d.BulletMaxChars)
	v.SetDefault("rules.title_max_chars", d.TitleMaxChars)
	v.SetDefault("rules.description_min_words", d.DescriptionMinWords)
	v.SetDefault("rules.description_max_words", d.DescriptionMaxWords)
	v.SetDefault("rules.meta_title_max_chars", d.MetaTitleMaxChars)
	v.SetDefault("rules.meta_description_max_chars", d.MetaDescriptionMaxChars)
	v.SetDefault("rules.min_truncate_chars", d.MinTruncateChars)
	v.SetDefault("rules.language", "")

	v.SetDefault("generator.provider", "none")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.base_url", "")
	v.SetDefault("generator.requests_per_minute", 0)
	v.SetDefault("generator.burst", 1)
	v.SetDefault("generator.max_tokens", 2048)

	v.SetDefault("refine.max_attempts", orchestrator.DefaultMaxAttempts)
	v.SetDefault("refine.timeout", orchestrator.DefaultTimeout.String())

	v.SetDefault("batch.workers", 4)

	v.SetDefault("store.path", "./data/listingfix.db")
	v.SetDefault("store.no_cache", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
}

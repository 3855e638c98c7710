// Package config owns the runtime configuration surface. Values come
// from an optional YAML file overlaid by ASSKILLS_* environment
// variables; embeddings credentials additionally fall back to the
// ~/.as-skills/.env dotenv file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrInvalidConfig reports an out-of-range or unknown configuration
// value. Raised at construction, never at first use.
var ErrInvalidConfig = errors.New("invalid configuration")

// Usage store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// Config is the validated configuration consumed by the registry.
type Config struct {
	SkillsDir string `mapstructure:"skills_dir"`

	MatchThreshold float64       `mapstructure:"match_threshold"`
	TopK           int           `mapstructure:"top_k"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`

	TriggerFraction float64 `mapstructure:"trigger_fraction"`
	TriggerBonus    float64 `mapstructure:"trigger_bonus"`

	SemanticEnabled bool    `mapstructure:"semantic_enabled"`
	SemanticWeight  float64 `mapstructure:"semantic_weight"`

	StoreBackend string `mapstructure:"store_backend"`
	StorePath    string `mapstructure:"store_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() Config {
	return Config{
		SkillsDir:       "./skills",
		MatchThreshold:  0.3,
		TopK:            5,
		CacheTTL:        time.Hour,
		TriggerFraction: 0.5,
		TriggerBonus:    0.25,
		SemanticEnabled: false,
		SemanticWeight:  0.6,
		StoreBackend:    StoreJSON,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load resolves the configuration. path may be empty, in which case
// only defaults and environment variables apply; naming a file that
// does not exist is an error.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("skills_dir", def.SkillsDir)
	v.SetDefault("match_threshold", def.MatchThreshold)
	v.SetDefault("top_k", def.TopK)
	v.SetDefault("cache_ttl", def.CacheTTL)
	v.SetDefault("trigger_fraction", def.TriggerFraction)
	v.SetDefault("trigger_bonus", def.TriggerBonus)
	v.SetDefault("semantic_enabled", def.SemanticEnabled)
	v.SetDefault("semantic_weight", def.SemanticWeight)
	v.SetDefault("store_backend", def.StoreBackend)
	v.SetDefault("store_path", def.StorePath)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	v.SetEnvPrefix("ASSKILLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "cannot read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	var err error
	if cfg.SkillsDir, err = ExpandPath(cfg.SkillsDir); err != nil {
		return Config{}, err
	}
	if cfg.StorePath != "" {
		if cfg.StorePath, err = ExpandPath(cfg.StorePath); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field range, failing fast with
// ErrInvalidConfig naming the offending field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SkillsDir) == "" {
		return errors.Wrap(ErrInvalidConfig, "skills_dir must not be empty")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return errors.Wrapf(ErrInvalidConfig, "match_threshold %v outside [0,1]", c.MatchThreshold)
	}
	if c.TopK < 0 {
		return errors.Wrapf(ErrInvalidConfig, "top_k %d is negative", c.TopK)
	}
	if c.CacheTTL <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "cache_ttl %v must be positive", c.CacheTTL)
	}
	if c.TriggerFraction <= 0 || c.TriggerFraction > 1 {
		return errors.Wrapf(ErrInvalidConfig, "trigger_fraction %v outside (0,1]", c.TriggerFraction)
	}
	if c.TriggerBonus < 0 || c.TriggerBonus > 1 {
		return errors.Wrapf(ErrInvalidConfig, "trigger_bonus %v outside [0,1]", c.TriggerBonus)
	}
	if c.SemanticWeight < 0 || c.SemanticWeight > 1 {
		return errors.Wrapf(ErrInvalidConfig, "semantic_weight %v outside [0,1]", c.SemanticWeight)
	}
	switch c.StoreBackend {
	case StoreJSON, StoreSQLite, StoreNone:
	default:
		return errors.Wrapf(ErrInvalidConfig, "store_backend %q is not one of json, sqlite, none", c.StoreBackend)
	}
	return nil
}

// HomeDir returns the absolute path to ~/.as-skills/.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	return filepath.Join(home, ".as-skills"), nil
}

// EffectiveStorePath resolves the usage store location, defaulting to
// a file under ~/.as-skills/ named after the backend.
func (c Config) EffectiveStorePath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	name := "usage.json"
	if c.StoreBackend == StoreSQLite {
		name = "usage.db"
	}
	return filepath.Join(dir, name), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot expand ~")
	}
	return filepath.Join(home, p[1:]), nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./skills", cfg.SkillsDir)
	assert.Equal(t, 0.3, cfg.MatchThreshold)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.5, cfg.TriggerFraction)
	assert.Equal(t, 0.25, cfg.TriggerBonus)
	assert.False(t, cfg.SemanticEnabled)
	assert.Equal(t, StoreJSON, cfg.StoreBackend)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "as-skills.yaml")
	body := "" +
		"skills_dir: /srv/skills\n" +
		"match_threshold: 0.5\n" +
		"top_k: 3\n" +
		"cache_ttl: 30m\n" +
		"store_backend: sqlite\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/skills", cfg.SkillsDir)
	assert.Equal(t, 0.5, cfg.MatchThreshold)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ASSKILLS_TOP_K", "9")
	t.Setenv("ASSKILLS_SEMANTIC_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.TopK)
	assert.True(t, cfg.SemanticEnabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		detail string
	}{
		{"threshold too high", func(c *Config) { c.MatchThreshold = 1.5 }, "match_threshold"},
		{"threshold negative", func(c *Config) { c.MatchThreshold = -0.1 }, "match_threshold"},
		{"negative topK", func(c *Config) { c.TopK = -1 }, "top_k"},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, "cache_ttl"},
		{"empty skills dir", func(c *Config) { c.SkillsDir = " " }, "skills_dir"},
		{"bad trigger fraction", func(c *Config) { c.TriggerFraction = 0 }, "trigger_fraction"},
		{"bad semantic weight", func(c *Config) { c.SemanticWeight = 2 }, "semantic_weight"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, "store_backend"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.detail)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	p, err := ExpandPath("~/skills")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/skills", p)

	p, err = ExpandPath("/abs/skills")
	require.NoError(t, err)
	assert.Equal(t, "/abs/skills", p)
}

func TestEffectiveStorePath(t *testing.T) {
	t.Setenv("HOME", "/home/u")

	cfg := Default()
	p, err := cfg.EffectiveStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.as-skills/usage.json", p)

	cfg.StoreBackend = StoreSQLite
	p, err = cfg.EffectiveStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.as-skills/usage.db", p)

	cfg.StorePath = "/data/usage.db"
	p, err = cfg.EffectiveStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/data/usage.db", p)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDotEnvNotExist(t *testing.T) {
	setHome(t)

	m, err := LoadDotEnv()
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLoadDotEnvParsesKeyValue(t *testing.T) {
	home := setHome(t)

	dir := filepath.Join(home, ".as-skills")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("# comment\nA=1\nB=two\n\nnot a pair\n"), 0o600))

	m, err := LoadDotEnv()
	require.NoError(t, err)
	assert.Equal(t, "1", m["A"])
	assert.Equal(t, "two", m["B"])
	assert.Len(t, m, 2)
}

func TestGetConfigValueEnvOverridesDotEnv(t *testing.T) {
	home := setHome(t)

	dir := filepath.Join(home, ".as-skills")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("K=fromdotenv\n"), 0o600))
	t.Setenv("K", "fromenv")

	v, err := GetConfigValue("K")
	require.NoError(t, err)
	assert.Equal(t, "fromenv", v)
}

func TestEnsureDotEnvTemplate(t *testing.T) {
	home := setHome(t)

	dir := filepath.Join(home, ".as-skills")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, ".env")

	require.NoError(t, EnsureDotEnvTemplate())
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "ASSKILLS_EMBEDDINGS_PROVIDER=")

	// A second call never overwrites.
	require.NoError(t, os.WriteFile(p, []byte("ASSKILLS_EMBEDDINGS_PROVIDER=keep\n"), 0o600))
	require.NoError(t, EnsureDotEnvTemplate())
	b, err = os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "ASSKILLS_EMBEDDINGS_PROVIDER=keep\n", string(b))
}

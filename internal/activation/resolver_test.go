package activation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

func writeSkill(t *testing.T, body string, resources map[string]string) manifest.Manifest {
	t.Helper()
	dir := t.TempDir()

	content := "---\nname: demo\ndescription: demo skill\n---\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.DescriptorName), []byte(content), 0o644))
	for rel, data := range resources {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(data), 0o644))
	}

	m, err := manifest.Parse(dir)
	require.NoError(t, err)
	return m
}

func TestResolveBodyOnly(t *testing.T) {
	m := writeSkill(t, "\nUse the converter tool.\n", nil)

	payload, err := FileResolver{}.Resolve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "Use the converter tool.", payload)
}

func TestResolveInlinesIncludes(t *testing.T) {
	m := writeSkill(t, "\nBefore.\n@include(steps.md)\nAfter.\n", map[string]string{
		"steps.md": "Step one. Step two.",
	})

	payload, err := FileResolver{}.Resolve(context.Background(), m)
	require.NoError(t, err)
	assert.Contains(t, payload, "Before.\nStep one. Step two.\nAfter.")
}

func TestResolveAppendsLinkedDocuments(t *testing.T) {
	m := writeSkill(t, "\nSee [the reference](reference/api.md) and [it again](reference/api.md).\n", map[string]string{
		"reference/api.md": "Full API details.",
	})

	payload, err := FileResolver{}.Resolve(context.Background(), m)
	require.NoError(t, err)
	assert.Contains(t, payload, "# reference/api.md")
	assert.Contains(t, payload, "Full API details.")
	// The same document is appended once.
	assert.Equal(t, 1, strings.Count(payload, "Full API details."))
}

func TestResolveExternalLinksIgnored(t *testing.T) {
	m := writeSkill(t, "\nSee [docs](https://example.com/guide.md) online.\n", nil)

	payload, err := FileResolver{}.Resolve(context.Background(), m)
	require.NoError(t, err)
	assert.NotContains(t, payload, "---\n#")
}

func TestResolveMissingResource(t *testing.T) {
	m := writeSkill(t, "\nSee [missing](nope.md).\n", nil)

	_, err := FileResolver{}.Resolve(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.md")
}

func TestResolveRejectsEscapingPaths(t *testing.T) {
	m := writeSkill(t, "\n@include(../outside.md)\n", nil)

	_, err := FileResolver{}.Resolve(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestResolveCancelled(t *testing.T) {
	m := writeSkill(t, "\nBody.\n", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileResolver{}.Resolve(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
}

package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cn-vhql/AS-SKILLS/internal/activation"
	"github.com/cn-vhql/AS-SKILLS/internal/config"
	"github.com/cn-vhql/AS-SKILLS/internal/index"
)

func writeBundle(t *testing.T, root, id, front, body string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\n" + front + "---\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()

	writeBundle(t, root, "pdf",
		"name: pdf\n"+
			"description: Extract tables and text from PDF documents\n"+
			"keywords: [pdf, table, extract]\n"+
			"triggers:\n"+
			"  - extract tables from a pdf\n",
		"\nUse the converter script on the input file.\n")
	writeBundle(t, root, "algorithmic-art",
		"name: algorithmic-art\n"+
			"description: Generative p5js sketches\n"+
			"keywords: [art, p5js, sketch]\n",
		"\nStart from the canvas template.\n")

	cfg := config.Default()
	cfg.SkillsDir = root
	cfg.StoreBackend = config.StoreJSON
	cfg.StorePath = filepath.Join(t.TempDir(), "usage.json")
	return cfg
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MatchThreshold = 2

	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestQueriesBeforeDiscover(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	_, err := reg.Match(ctx, "anything")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.Activate(ctx, []string{"pdf"})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.Describe("pdf")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.ListAll()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.Summary()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.Deactivate(ctx, "pdf")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.DeactivateAll()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = reg.Stats()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestDiscoverMatchActivate(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	report, err := reg.Discover(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Added, 2)

	results, err := reg.Match(ctx, "extract tables from this pdf")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pdf", results[0].SkillID)

	outcomes, err := reg.Activate(ctx, []string{"pdf"})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, activation.StateActive, outcomes[0].Record.State)
	assert.Contains(t, outcomes[0].Record.Payload, "converter script")

	// Second activation is served from cache.
	outcomes, err = reg.Activate(ctx, []string{"pdf"})
	require.NoError(t, err)
	assert.Equal(t, activation.StateCached, outcomes[0].Record.State)

	sums, err := reg.UsageSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "pdf", sums[0].SkillID)
	assert.Equal(t, 1, sums[0].Matches)
	assert.Equal(t, 1, sums[0].Activations)
	assert.Equal(t, 1, sums[0].CacheHits)
}

func TestActivateUnknownSkill(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	_, err := reg.Discover(ctx)
	require.NoError(t, err)

	outcomes, err := reg.Activate(ctx, []string{"pdf", "ghost"})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	require.NoError(t, outcomes[0].Err)
	require.Error(t, outcomes[1].Err)
	assert.True(t, activation.IsResolution(outcomes[1].Err))
	assert.ErrorIs(t, outcomes[1].Err, index.ErrNotFound)
}

func TestMatchAndActivate(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	_, err := reg.Discover(ctx)
	require.NoError(t, err)

	results, outcomes, err := reg.MatchAndActivate(ctx, "extract tables from this pdf")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, outcomes, 1)
	assert.Equal(t, results[0].SkillID, outcomes[0].SkillID)
	require.NoError(t, outcomes[0].Err)
	assert.NotEmpty(t, outcomes[0].Record.Payload)

	// A query matching nothing activates nothing.
	results, outcomes, err = reg.MatchAndActivate(ctx, "zzzz qqqq")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, outcomes)
}

func TestLifecycleAndStats(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	_, err := reg.Discover(ctx)
	require.NoError(t, err)

	d, err := reg.Describe("algorithmic-art")
	require.NoError(t, err)
	assert.Equal(t, activation.StateDiscovered, d.State)
	assert.Nil(t, d.Record)

	_, err = reg.Match(ctx, "generative p5js art")
	require.NoError(t, err)
	d, err = reg.Describe("algorithmic-art")
	require.NoError(t, err)
	assert.Equal(t, activation.StateMatched, d.State)

	_, err = reg.Activate(ctx, []string{"algorithmic-art"})
	require.NoError(t, err)
	d, err = reg.Describe("algorithmic-art")
	require.NoError(t, err)
	assert.Equal(t, activation.StateActive, d.State)
	require.NotNil(t, d.Record)

	stats, err := reg.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skills)
	assert.Equal(t, 1, stats.Activation.Active)

	ok, err := reg.Deactivate(ctx, "algorithmic-art")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = reg.Deactivate(ctx, "algorithmic-art")
	require.NoError(t, err)
	assert.False(t, ok, "second deactivation finds nothing live")

	n, err := reg.DeactivateAll()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSummary(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Discover(context.Background())
	require.NoError(t, err)

	s, err := reg.Summary()
	require.NoError(t, err)
	assert.Contains(t, s, "- pdf: Extract tables and text from PDF documents")
	assert.Contains(t, s, "- algorithmic-art: Generative p5js sketches")
}

func TestHotReloadInvalidatesCache(t *testing.T) {
	cfg := testConfig(t)
	reg, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	ctx := context.Background()

	_, err = reg.Discover(ctx)
	require.NoError(t, err)

	outcomes, err := reg.Activate(ctx, []string{"pdf"})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	firstID := outcomes[0].Record.ActivationID

	// Rewrite the descriptor and rescan: the cached payload is stale.
	writeBundle(t, cfg.SkillsDir, "pdf",
		"name: pdf\ndescription: New behavior\nkeywords: [pdf]\n",
		"\nFollow the new workflow.\n")
	report, err := reg.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf"}, report.Updated)

	outcomes, err = reg.Activate(ctx, []string{"pdf"})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	assert.NotEqual(t, firstID, outcomes[0].Record.ActivationID)
	assert.Contains(t, outcomes[0].Record.Payload, "new workflow")
}

func TestUsageStoreNone(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = config.StoreNone
	cfg.StorePath = ""

	reg, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	_, err = reg.Discover(context.Background())
	require.NoError(t, err)
	_, err = reg.Match(context.Background(), "pdf tables")
	require.NoError(t, err)

	sums, err := reg.UsageSummaries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sums)
}

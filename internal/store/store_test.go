package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cn-vhql/AS-SKILLS/internal/config"
)

func backends(t *testing.T) map[string]Usage {
	t.Helper()
	dir := t.TempDir()

	j, err := OpenJSON(filepath.Join(dir, "usage.json"))
	require.NoError(t, err)
	s, err := OpenSQLite(filepath.Join(dir, "usage.db"))
	require.NoError(t, err)

	return map[string]Usage{"json": j, "sqlite": s}
}

func TestUsageRecordAndSummaries(t *testing.T) {
	for name, u := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer u.Close()
			ctx := context.Background()

			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			events := []Event{
				{SkillID: "pdf", Kind: KindMatch, Query: "extract tables", Score: 0.65, At: base},
				{SkillID: "pdf", Kind: KindActivation, At: base.Add(time.Minute)},
				{SkillID: "pdf", Kind: KindCacheHit, At: base.Add(2 * time.Minute)},
				{SkillID: "art", Kind: KindMatch, Query: "p5js sketch", Score: 0.5, At: base},
			}
			for _, ev := range events {
				require.NoError(t, u.Record(ctx, ev))
			}

			sums, err := u.Summaries(ctx)
			require.NoError(t, err)
			require.Len(t, sums, 2)

			assert.Equal(t, "art", sums[0].SkillID)
			assert.Equal(t, 1, sums[0].Matches)
			assert.Zero(t, sums[0].Activations)

			assert.Equal(t, "pdf", sums[1].SkillID)
			assert.Equal(t, 1, sums[1].Matches)
			assert.Equal(t, 1, sums[1].Activations)
			assert.Equal(t, 1, sums[1].CacheHits)
			assert.Equal(t, base.Add(2*time.Minute), sums[1].LastUsed.UTC())
		})
	}
}

func TestUsageEmptyStore(t *testing.T) {
	for name, u := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer u.Close()
			sums, err := u.Summaries(context.Background())
			require.NoError(t, err)
			assert.Empty(t, sums)
		})
	}
}

func TestUsageDefaultsFilled(t *testing.T) {
	u, err := OpenJSON(filepath.Join(t.TempDir(), "usage.json"))
	require.NoError(t, err)
	defer u.Close()

	require.NoError(t, u.Record(context.Background(), Event{SkillID: "pdf", Kind: KindMatch}))

	sums, err := u.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.False(t, sums[0].LastUsed.IsZero())
}

func TestOpenByBackend(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.StoreBackend = config.StoreJSON
	cfg.StorePath = filepath.Join(dir, "usage.json")
	u, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, u.Close())

	cfg.StoreBackend = config.StoreSQLite
	cfg.StorePath = filepath.Join(dir, "usage.db")
	u, err = Open(cfg)
	require.NoError(t, err)
	require.NoError(t, u.Close())

	cfg.StoreBackend = config.StoreNone
	u, err = Open(cfg)
	require.NoError(t, err)
	assert.NoError(t, u.Record(context.Background(), Event{SkillID: "x", Kind: KindMatch}))
	sums, err := u.Summaries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sums)
}

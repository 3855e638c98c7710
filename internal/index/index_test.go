package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

func writeBundle(t *testing.T, root, id, name, description string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\nBody.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.DescriptorName), []byte(content), 0o644))
	return dir
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "pdf", "pdf", "Extract tables from PDF files")
	writeBundle(t, root, "art", "art", "Generative p5js sketches")

	ix := New()
	report, err := Scan(context.Background(), ix, root)
	require.NoError(t, err)

	assert.Equal(t, []string{"art", "pdf"}, report.Added)
	assert.Empty(t, report.Updated)
	assert.Empty(t, report.Removed)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, ix.Len())
}

func TestScanIdempotent(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "pdf", "pdf", "Extract tables")

	ix := New()
	_, err := Scan(context.Background(), ix, root)
	require.NoError(t, err)

	report, err := Scan(context.Background(), ix, root)
	require.NoError(t, err)
	assert.Zero(t, report.Total(), "rescan of unchanged directory must be a no-op")
}

func TestScanDetectsChanges(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "pdf", "pdf", "old description")
	writeBundle(t, root, "gone", "gone", "will be deleted")

	ix := New()
	_, err := Scan(context.Background(), ix, root)
	require.NoError(t, err)

	writeBundle(t, root, "pdf", "pdf", "new description")
	writeBundle(t, root, "fresh", "fresh", "newly added")
	require.NoError(t, os.RemoveAll(filepath.Join(root, "gone")))

	report, err := Scan(context.Background(), ix, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, report.Added)
	assert.Equal(t, []string{"pdf"}, report.Updated)
	assert.Equal(t, []string{"gone"}, report.Removed)

	m, err := ix.Get("pdf")
	require.NoError(t, err)
	assert.Equal(t, "new description", m.Description)

	_, err = ix.Get("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanPartialFailure(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "good", "good", "fine skill")

	badDir := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(badDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(badDir, manifest.DescriptorName),
		[]byte("no front-matter at all\n"), 0o644))

	emptyDir := filepath.Join(root, "descriptorless")
	require.NoError(t, os.MkdirAll(emptyDir, 0o755))

	ix := New()
	report, err := Scan(context.Background(), ix, root)
	require.NoError(t, err)

	assert.Equal(t, []string{"good"}, report.Added)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, badDir, report.Errors[0].Path)
	assert.True(t, manifest.IsReason(report.Errors[0].Err, manifest.MalformedFrontMatter))
	assert.Equal(t, emptyDir, report.Errors[1].Path)
	assert.True(t, manifest.IsReason(report.Errors[1].Err, manifest.MissingDescriptor))

	_, err = ix.Get("broken")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanMissingRoot(t *testing.T) {
	ix := New()
	ix.Upsert(manifest.Manifest{ID: "keep", ContentHash: "h"})

	report, err := Scan(context.Background(), ix, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	assert.Equal(t, 1, ix.Len(), "missing root leaves previous entries intact")
}

func TestRemoveAndAll(t *testing.T) {
	ix := New()
	ix.Upsert(manifest.Manifest{ID: "b", ContentHash: "1"})
	ix.Upsert(manifest.Manifest{ID: "a", ContentHash: "2"})

	var ids []string
	for m := range ix.All() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	ix.Remove("a")
	ix.Remove("a") // idempotent

	ids = nil
	for m := range ix.All() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"b"}, ids, "All restarts against the current snapshot")

	_, err := ix.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertPreservesUnchangedEntry(t *testing.T) {
	ix := New()

	first := manifest.Manifest{ID: "x", ContentHash: "same", Description: "v1"}
	ix.Upsert(first)
	ix.SetVector("x", []float32{1, 2, 3})

	// Same content hash: the existing entry, vector included, survives.
	ix.Upsert(manifest.Manifest{ID: "x", ContentHash: "same", Description: "ignored"})
	entries := ix.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "v1", entries[0].Manifest.Description)
	assert.Equal(t, []float32{1, 2, 3}, entries[0].Vector)

	// New content hash: entry rebuilt, stale vector dropped.
	ix.Upsert(manifest.Manifest{ID: "x", ContentHash: "new", Description: "v2"})
	entries = ix.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "v2", entries[0].Manifest.Description)
	assert.Nil(t, entries[0].Vector)
}

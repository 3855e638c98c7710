// Package index holds the in-memory skill registry: the single source
// of truth for what skills exist. Reads take shared access so matching
// can proceed in parallel; scans and upserts take exclusive access.
package index

import (
	"iter"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
	"github.com/cn-vhql/AS-SKILLS/internal/match"
)

// ErrNotFound reports an unknown skill id.
var ErrNotFound = errors.New("skill not found")

// Index is the registry of parsed manifests keyed by skill id.
type Index struct {
	mu      sync.RWMutex
	entries map[string]match.Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]match.Entry)}
}

// Get returns the manifest for id, or ErrNotFound.
func (ix *Index) Get(id string) (manifest.Manifest, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.entries[id]
	if !ok {
		return manifest.Manifest{}, errors.Wrap(ErrNotFound, id)
	}
	return e.Manifest, nil
}

// Upsert inserts or replaces the manifest for m.ID. Replacing is done
// in place: any activation state bound to the id stays valid. When the
// descriptor content is unchanged the existing entry (including its
// embedding vector and original LoadedAt) is kept.
func (ix *Index) Upsert(m manifest.Manifest) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.upsertLocked(m)
}

func (ix *Index) upsertLocked(m manifest.Manifest) bool {
	prev, ok := ix.entries[m.ID]
	if ok && prev.Manifest.ContentHash == m.ContentHash {
		return false
	}
	ix.entries[m.ID] = match.NewEntry(m)
	return true
}

// Remove deletes id from the index. Removing an unknown id is a no-op.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, id)
}

// Len returns the number of indexed skills.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// All returns a restartable sequence over the current manifests,
// ordered by id. Each range re-snapshots the index, so a long-lived
// iterator observes hot reloads on its next restart.
func (ix *Index) All() iter.Seq[manifest.Manifest] {
	return func(yield func(manifest.Manifest) bool) {
		for _, m := range ix.Manifests() {
			if !yield(m) {
				return
			}
		}
	}
}

// Manifests returns a snapshot of all manifests ordered by id.
func (ix *Index) Manifests() []manifest.Manifest {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]manifest.Manifest, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e.Manifest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entries returns a snapshot of the derived search entries ordered by
// id, for a single match operation. Callers must not retain it across
// operations.
func (ix *Index) Entries() []match.Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]match.Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.ID < out[j].Manifest.ID })
	return out
}

// SetVector attaches a precomputed embedding to an indexed skill.
// Unknown ids are ignored: the vector belongs to a stale scan.
func (ix *Index) SetVector(id string, v []float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.entries[id]
	if !ok {
		return
	}
	e.Vector = v
	ix.entries[id] = e
}

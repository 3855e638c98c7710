package semantic

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/embeddings"
	"github.com/cn-vhql/AS-SKILLS/internal/logging"
	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

// BuildOptions controls index building.
type BuildOptions struct {
	// OutDir is where the finished index lives.
	OutDir string
	// Force re-embeds every skill even when its TextHash is unchanged.
	Force bool
	// Normalize stores unit-length vectors so cosine reduces to a dot
	// product at query time.
	Normalize bool
	// LockTimeout bounds how long Rebuild waits for a concurrent build
	// to finish. Zero means 30 seconds.
	LockTimeout time.Duration
}

// Build embeds every manifest and returns the resulting snapshot
// without touching OutDir's existing contents; artifacts are written to
// dir. An existing index in opts.OutDir is consulted for incremental
// reuse: skills whose canonical text is unchanged keep their vector and
// cost no provider call.
func Build(ctx context.Context, prov embeddings.Provider, manifests []manifest.Manifest, dir string, opts BuildOptions) (*Snapshot, error) {
	if len(manifests) == 0 {
		return nil, errors.New("no skills to index")
	}

	sorted := make([]manifest.Manifest, len(manifests))
	copy(sorted, manifests)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	// Previous index, if any, keyed for reuse.
	old, _ := Load(opts.OutDir)
	reuse := map[string]Row{}
	reuseVec := map[string][]float32{}
	if old != nil && !opts.Force {
		for i, r := range old.Rows {
			start := i * old.Meta.Dim
			end := start + old.Meta.Dim
			if end <= len(old.Vectors) {
				reuse[r.ID] = r
				v := make([]float32, old.Meta.Dim)
				copy(v, old.Vectors[start:end])
				reuseVec[r.ID] = v
			}
		}
	}

	log := logging.G(ctx)

	var (
		rows    []Row
		vectors []float32
		dim     int
		reused  int
	)
	for _, m := range sorted {
		text := CanonicalText(m)
		h := TextHash(text)

		if prev, ok := reuse[m.ID]; ok && prev.TextHash == h && prev.TextHash != "" {
			if v, ok := reuseVec[m.ID]; ok {
				rows = append(rows, prev)
				vectors = append(vectors, v...)
				if dim == 0 {
					dim = len(v)
				}
				reused++
				continue
			}
		}

		emb, err := prov.Embed(ctx, text)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot embed skill %s", m.ID)
		}
		if dim == 0 {
			dim = len(emb)
		}
		if len(emb) != dim {
			return nil, errors.Errorf("embedding dim changed mid-run: got %d want %d", len(emb), dim)
		}
		if opts.Normalize {
			emb = NormalizeL2(emb)
		}

		rows = append(rows, Row{
			ID:          m.ID,
			Path:        m.SourcePath,
			Name:        m.DisplayName,
			Description: m.Description,
			TextHash:    h,
			UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
		})
		vectors = append(vectors, emb...)
	}

	log.WithFields(map[string]any{
		"skills": len(rows),
		"reused": reused,
		"dim":    dim,
	}).Debug("semantic index built")

	meta := Meta{
		IndexVersion: 1,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		ModelID:      prov.ModelID(),
		Dim:          dim,
		Normalize:    opts.Normalize,
		VectorFile:   "vectors.f32",
		SkillsFile:   "skills.jsonl",
	}

	if err := Write(dir, meta, rows, vectors); err != nil {
		return nil, err
	}
	return &Snapshot{Meta: meta, Rows: rows, Vectors: vectors}, nil
}

// Rebuild builds a fresh index next to OutDir and swaps it into place
// atomically. A file lock next to OutDir keeps concurrent rebuilds from
// clobbering each other; readers keep loading the old index until the
// rename lands.
func Rebuild(ctx context.Context, prov embeddings.Provider, manifests []manifest.Manifest, opts BuildOptions) (*Snapshot, error) {
	if opts.OutDir == "" {
		return nil, errors.New("out dir is required")
	}

	unlock, err := acquireBuildLock(opts.OutDir, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tmp := opts.OutDir + ".tmp"
	_ = os.RemoveAll(tmp)

	snap, err := Build(ctx, prov, manifests, tmp, opts)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}
	if err := AtomicSwap(tmp, opts.OutDir); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}
	return snap, nil
}

// AtomicSwap replaces destDir with srcDir by renaming.
func AtomicSwap(srcDir, destDir string) error {
	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		// rollback best-effort
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}

// acquireBuildLock obtains the per-index build lock.
func acquireBuildLock(outDir string, timeout time.Duration) (func(), error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	lockPath := outDir + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, err
	}

	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, errors.Wrap(err, "cannot acquire index build lock")
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Errorf("another index build is in progress (lock: %s)", lockPath)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

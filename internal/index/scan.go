package index

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cn-vhql/AS-SKILLS/internal/logging"
	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

// scanParallelism bounds how many bundles are parsed at once. Parses
// are independent file reads, so a small constant is plenty.
const scanParallelism = 8

// BundleError records one bundle that failed to parse during a scan.
type BundleError struct {
	Path string
	Err  error
}

// ScanReport summarises the effect of one scan. A rescan of an
// unchanged directory reports zero added/updated/removed.
type ScanReport struct {
	Added   []string
	Updated []string
	Removed []string
	Errors  []BundleError
}

// Total returns the number of bundles that changed.
func (r ScanReport) Total() int {
	return len(r.Added) + len(r.Updated) + len(r.Removed)
}

// Scan walks the immediate subdirectories of root, parsing each as a
// candidate bundle. Bad bundles are reported in the Errors list and
// excluded; a single broken bundle never aborts the scan. Bundles that
// vanished from root since the previous scan are removed from the
// index.
//
// Cancelling ctx aborts early without corrupting the index: manifests
// parsed before the abort are still applied, nothing is removed, and
// ctx's error is returned alongside the partial report.
func Scan(ctx context.Context, ix *Index, root string) (ScanReport, error) {
	log := logging.G(ctx).WithField("root", root)

	dirs, err := bundleDirs(root)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing root is not fatal: the index keeps its
			// previous contents so a transient unmount or typo does
			// not wipe activation state.
			log.Warn("skills directory does not exist")
			return ScanReport{}, nil
		}
		return ScanReport{}, err
	}

	var (
		mu       sync.Mutex
		parsed   []manifest.Manifest
		failures []BundleError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanParallelism)
	for _, dir := range dirs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			m, err := manifest.Parse(dir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, BundleError{Path: dir, Err: err})
				return nil
			}
			parsed = append(parsed, m)
			return nil
		})
	}
	_ = g.Wait()

	aborted := ctx.Err() != nil

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].ID < parsed[j].ID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })

	report := ScanReport{Errors: failures}

	ix.mu.Lock()
	seen := make(map[string]bool, len(parsed))
	for _, m := range parsed {
		seen[m.ID] = true
		_, existed := ix.entries[m.ID]
		changed := ix.upsertLocked(m)
		switch {
		case !existed:
			report.Added = append(report.Added, m.ID)
		case changed:
			report.Updated = append(report.Updated, m.ID)
		}
	}
	if !aborted {
		for id, e := range ix.entries {
			if !seen[id] && underRoot(e.Manifest.SourcePath, root) {
				delete(ix.entries, id)
				report.Removed = append(report.Removed, id)
			}
		}
		sort.Strings(report.Removed)
	}
	ix.mu.Unlock()

	log.WithFields(map[string]any{
		"added":   len(report.Added),
		"updated": len(report.Updated),
		"removed": len(report.Removed),
		"errors":  len(report.Errors),
	}).Debug("scan complete")

	if aborted {
		return report, ctx.Err()
	}
	return report, nil
}

// bundleDirs lists the immediate subdirectories of root, skipping
// hidden entries. Symlinked directories count.
func bundleDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(root, e.Name())
		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, full)
	}
	sort.Strings(out)
	return out, nil
}

func underRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

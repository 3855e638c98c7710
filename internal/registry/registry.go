// Package registry is the facade over discovery, matching, activation
// and usage persistence. Callers construct one Registry, run Discover,
// then serve queries; everything behind it is safe for concurrent use.
package registry

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/activation"
	"github.com/cn-vhql/AS-SKILLS/internal/config"
	"github.com/cn-vhql/AS-SKILLS/internal/embeddings"
	"github.com/cn-vhql/AS-SKILLS/internal/index"
	"github.com/cn-vhql/AS-SKILLS/internal/logging"
	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
	"github.com/cn-vhql/AS-SKILLS/internal/match"
	"github.com/cn-vhql/AS-SKILLS/internal/semantic"
	"github.com/cn-vhql/AS-SKILLS/internal/store"
)

// ErrNotInitialized is returned by query operations before the first
// successful Discover.
var ErrNotInitialized = errors.New("registry not initialized: run a scan first")

// Description is everything known about one skill.
type Description struct {
	Manifest manifest.Manifest
	State    activation.State
	// Record is non-nil when the skill has a live or expired activation.
	Record *activation.Record
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Skills        int
	Activation    activation.Stats
	SemanticReady bool
}

// Registry wires the skill index, matcher, activation manager and
// usage store behind one API.
type Registry struct {
	cfg   config.Config
	ix    *index.Index
	mgr   *activation.Manager
	usage store.Usage
	prov  embeddings.Provider

	semMu sync.RWMutex
	sem   *semantic.Snapshot

	initialized atomic.Bool
}

// Option tweaks a Registry at construction.
type Option func(*Registry)

// WithResolver overrides the payload resolver.
func WithResolver(r activation.Resolver) Option {
	return func(reg *Registry) {
		reg.mgr = activation.NewManager(r, reg.cfg.CacheTTL)
	}
}

// WithUsage overrides the usage store.
func WithUsage(u store.Usage) Option {
	return func(reg *Registry) { reg.usage = u }
}

// WithProvider overrides the embeddings provider.
func WithProvider(p embeddings.Provider) Option {
	return func(reg *Registry) { reg.prov = p }
}

// New validates cfg and assembles a Registry. The skills directory is
// not touched yet: call Discover to populate the index.
func New(cfg config.Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := &Registry{
		cfg: cfg,
		ix:  index.New(),
		mgr: activation.NewManager(activation.FileResolver{}, cfg.CacheTTL),
	}
	for _, opt := range opts {
		opt(reg)
	}

	if reg.usage == nil {
		u, err := store.Open(cfg)
		if err != nil {
			return nil, err
		}
		reg.usage = u
	}

	if cfg.SemanticEnabled && reg.prov == nil {
		// Missing embeddings credentials degrade to lexical matching
		// rather than failing construction.
		ecfg, err := embeddings.LoadConfig()
		if err == nil {
			if p, perr := embeddings.NewFromConfig(ecfg); perr == nil {
				reg.prov = p
			} else {
				logging.L.WithError(perr).Warn("semantic matching disabled")
			}
		} else {
			logging.L.WithError(err).Warn("semantic matching disabled")
		}
	}

	return reg, nil
}

// Discover scans the skills directory and, when semantic matching is
// on, refreshes the embedding index. The first successful scan arms
// the query operations.
func (r *Registry) Discover(ctx context.Context) (index.ScanReport, error) {
	report, err := index.Scan(ctx, r.ix, r.cfg.SkillsDir)
	if err != nil {
		return report, err
	}
	r.initialized.Store(true)

	if r.cfg.SemanticEnabled && r.prov != nil {
		r.refreshSemantic(ctx)
	}
	return report, nil
}

// refreshSemantic rebuilds the embedding index for the current skills.
// Failures are logged, not fatal: queries fall back to lexical scores.
func (r *Registry) refreshSemantic(ctx context.Context) {
	manifests := r.ix.Manifests()
	if len(manifests) == 0 {
		return
	}
	outDir, err := semanticDir()
	if err != nil {
		logging.G(ctx).WithError(err).Warn("cannot locate semantic index dir")
		return
	}
	snap, err := semantic.Rebuild(ctx, r.prov, manifests, semantic.BuildOptions{
		OutDir:    outDir,
		Normalize: true,
	})
	if err != nil {
		logging.G(ctx).WithError(err).Warn("semantic index rebuild failed")
		return
	}
	r.semMu.Lock()
	r.sem = snap
	r.semMu.Unlock()
}

func semanticDir() (string, error) {
	dir, err := config.HomeDir()
	if err != nil {
		return "", err
	}
	return dir + "/semantic-index", nil
}

// Match ranks skills against query using the configured thresholds.
// Matched skills are noted for lifecycle tracking and recorded to the
// usage store.
func (r *Registry) Match(ctx context.Context, query string) ([]match.Result, error) {
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}

	opts := match.Options{
		TopK:            r.cfg.TopK,
		Threshold:       r.cfg.MatchThreshold,
		TriggerFraction: r.cfg.TriggerFraction,
		TriggerBonus:    r.cfg.TriggerBonus,
	}

	if r.cfg.SemanticEnabled && r.prov != nil {
		r.semMu.RLock()
		snap := r.sem
		r.semMu.RUnlock()
		if snap != nil {
			scores, err := semantic.Scores(ctx, r.prov, snap, query)
			if err != nil {
				logging.G(ctx).WithError(err).Warn("semantic scoring failed, using lexical only")
			} else if len(scores) > 0 {
				opts.SemanticScores = scores
				opts.SemanticWeight = r.cfg.SemanticWeight
			}
		}
	}

	results, err := match.Match(ctx, r.ix.Entries(), query, opts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.SkillID
		r.recordUsage(ctx, store.Event{
			SkillID: res.SkillID,
			Kind:    store.KindMatch,
			Query:   query,
			Score:   res.Score,
		})
	}
	r.mgr.NoteMatched(ids...)
	return results, nil
}

// Activate resolves payloads for the given skill ids, in input order.
// Unknown ids and resolution failures produce per-id errors; the rest
// of the batch still activates.
func (r *Registry) Activate(ctx context.Context, ids []string) ([]activation.Outcome, error) {
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}

	manifests := make([]manifest.Manifest, 0, len(ids))
	missing := map[string]error{}
	for _, id := range ids {
		m, err := r.ix.Get(id)
		if err != nil {
			missing[id] = &activation.ResolutionError{SkillID: id, Err: err}
			continue
		}
		manifests = append(manifests, m)
	}

	resolved := r.mgr.Activate(ctx, manifests)
	byID := make(map[string]activation.Outcome, len(resolved))
	for _, out := range resolved {
		byID[out.SkillID] = out
	}

	outcomes := make([]activation.Outcome, 0, len(ids))
	for _, id := range ids {
		if err, ok := missing[id]; ok {
			outcomes = append(outcomes, activation.Outcome{SkillID: id, Err: err})
			continue
		}
		out := byID[id]
		outcomes = append(outcomes, out)
		if out.Err != nil {
			continue
		}
		kind := store.KindActivation
		if out.Record.State == activation.StateCached {
			kind = store.KindCacheHit
		}
		r.recordUsage(ctx, store.Event{SkillID: id, Kind: kind})
	}
	return outcomes, nil
}

// MatchAndActivate ranks skills for query and activates every skill
// that cleared the threshold, returning both views.
func (r *Registry) MatchAndActivate(ctx context.Context, query string) ([]match.Result, []activation.Outcome, error) {
	results, err := r.Match(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return results, nil, nil
	}
	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.SkillID
	}
	outcomes, err := r.Activate(ctx, ids)
	if err != nil {
		return results, nil, err
	}
	return results, outcomes, nil
}

// Deactivate drops one skill's activation, reporting whether one was
// live.
func (r *Registry) Deactivate(ctx context.Context, id string) (bool, error) {
	if !r.initialized.Load() {
		return false, ErrNotInitialized
	}
	ok := r.mgr.Deactivate(id)
	if ok {
		r.recordUsage(ctx, store.Event{SkillID: id, Kind: store.KindDeactivation})
	}
	return ok, nil
}

// DeactivateAll drops every activation, returning how many were live.
// Idempotent.
func (r *Registry) DeactivateAll() (int, error) {
	if !r.initialized.Load() {
		return 0, ErrNotInitialized
	}
	return r.mgr.DeactivateAll(), nil
}

// Describe returns the manifest, lifecycle state and activation record
// for one skill.
func (r *Registry) Describe(id string) (Description, error) {
	if !r.initialized.Load() {
		return Description{}, ErrNotInitialized
	}
	m, err := r.ix.Get(id)
	if err != nil {
		return Description{}, err
	}
	d := Description{Manifest: m, State: r.mgr.StateOf(id)}
	if rec, ok := r.mgr.Get(id); ok {
		d.Record = &rec
	}
	return d, nil
}

// ListAll returns every indexed manifest ordered by id.
func (r *Registry) ListAll() ([]manifest.Manifest, error) {
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}
	return r.ix.Manifests(), nil
}

// Summary renders the compact one-line-per-skill listing meant for
// prompt injection: enough to route, cheap to carry.
func (r *Registry) Summary() (string, error) {
	manifests, err := r.ListAll()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range manifests {
		b.WriteString("- ")
		b.WriteString(m.ID)
		b.WriteString(": ")
		b.WriteString(m.Description)
		if m.HasScripts() {
			b.WriteString(" (has scripts)")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Stats reports current counts.
func (r *Registry) Stats() (Stats, error) {
	if !r.initialized.Load() {
		return Stats{}, ErrNotInitialized
	}
	r.semMu.RLock()
	semReady := r.sem != nil
	r.semMu.RUnlock()
	return Stats{
		Skills:        r.ix.Len(),
		Activation:    r.mgr.Stats(),
		SemanticReady: semReady,
	}, nil
}

// UsageSummaries returns persisted per-skill usage aggregates.
func (r *Registry) UsageSummaries(ctx context.Context) ([]store.Summary, error) {
	return r.usage.Summaries(ctx)
}

// Close releases the usage store.
func (r *Registry) Close() error {
	return r.usage.Close()
}

// recordUsage persists one event, logging instead of failing: usage
// data is advisory and must never break a query path.
func (r *Registry) recordUsage(ctx context.Context, ev store.Event) {
	if err := r.usage.Record(ctx, ev); err != nil {
		logging.G(ctx).WithError(err).WithField("skill", ev.SkillID).Warn("cannot record usage event")
	}
}

package activation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cn-vhql/AS-SKILLS/internal/logging"
	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

// Outcome is the result of activating one skill in a batch.
type Outcome struct {
	SkillID string
	// Record is valid only when Err is nil.
	Record Record
	// Err is a *ResolutionError for the skills that failed.
	Err error
}

// Stats summarises the manager's current state.
type Stats struct {
	// Matched counts skills seen in match results but never activated.
	Matched int
	// Active counts live entries that have not served a cache hit yet.
	Active int
	// Cached counts live entries serving from cache.
	Cached int
	// Expired counts entries idle past their TTL awaiting re-resolution.
	Expired int
	// TotalHits counts cache hits served since the manager started.
	TotalHits int
	// PayloadBytes is the total size of live cached payloads.
	PayloadBytes int
}

// Manager caches resolved payloads keyed by skill id. Concurrent
// activations of the same skill resolve at most once. Expiry is lazy
// and keyed on last use, checked on access rather than by a background
// sweeper: a record that keeps getting hit stays warm.
type Manager struct {
	resolver Resolver
	ttl      time.Duration
	now      func() time.Time

	sf singleflight.Group

	mu      sync.Mutex
	records map[string]*Record
	matched map[string]time.Time
	hits    int
}

// Option tweaks a Manager at construction.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager resolving payloads through resolver and
// caching them for ttl.
func NewManager(resolver Resolver, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
		records:  make(map[string]*Record),
		matched:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NoteMatched records that the given skills appeared in a match
// result. Skills with a live activation are left alone.
func (m *Manager) NoteMatched(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			continue
		}
		m.matched[id] = now
	}
}

// Activate resolves the payload for each manifest, in input order. A
// fresh cache entry for an unchanged descriptor is served directly; a
// changed or expired entry is re-resolved. One skill failing to
// resolve does not stop the rest: its Outcome carries the error.
func (m *Manager) Activate(ctx context.Context, manifests []manifest.Manifest) []Outcome {
	out := make([]Outcome, 0, len(manifests))
	for _, mf := range manifests {
		rec, err := m.activateOne(ctx, mf)
		out = append(out, Outcome{SkillID: mf.ID, Record: rec, Err: err})
	}
	return out
}

func (m *Manager) activateOne(ctx context.Context, mf manifest.Manifest) (Record, error) {
	if rec, ok := m.fromCache(mf); ok {
		return rec, nil
	}

	// Duplicate suppression: concurrent activations of the same
	// descriptor version share a single resolver call.
	v, err, _ := m.sf.Do(mf.ID+"\x00"+mf.ContentHash, func() (any, error) {
		if rec, ok := m.fromCache(mf); ok {
			return rec, nil
		}

		payload, err := m.resolver.Resolve(ctx, mf)
		if err != nil {
			logging.G(ctx).WithField("skill", mf.ID).WithError(err).Warn("activation failed")
			return nil, &ResolutionError{SkillID: mf.ID, Err: err}
		}

		now := m.now()
		rec := Record{
			ActivationID: uuid.NewString(),
			SkillID:      mf.ID,
			State:        StateActive,
			Payload:      payload,
			ActivatedAt:  now,
			LastUsedAt:   now,
			contentHash:  mf.ContentHash,
		}

		m.mu.Lock()
		m.records[mf.ID] = &rec
		delete(m.matched, mf.ID)
		m.mu.Unlock()

		logging.G(ctx).WithFields(map[string]any{
			"skill":      mf.ID,
			"activation": rec.ActivationID,
			"bytes":      len(payload),
		}).Debug("skill activated")
		return rec, nil
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

// fromCache serves a live, unchanged cache entry and bumps its usage.
// An entry idle past its TTL is marked expired and reported as a miss.
func (m *Manager) fromCache(mf manifest.Manifest) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[mf.ID]
	if !ok {
		return Record{}, false
	}
	if rec.contentHash != mf.ContentHash {
		return Record{}, false
	}

	now := m.now()
	if now.Sub(rec.LastUsedAt) > m.ttl {
		rec.State = StateExpired
		return Record{}, false
	}

	rec.State = StateCached
	rec.LastUsedAt = now
	rec.HitCount++
	m.hits++
	return *rec, true
}

// Get returns the current record for id, if any.
func (m *Manager) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// StateOf reports where id sits in the lifecycle. Unknown ids are
// discovered: the lifecycle starts at the index, not here.
func (m *Manager) StateOf(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[id]; ok {
		if m.now().Sub(rec.LastUsedAt) > m.ttl {
			rec.State = StateExpired
		}
		return rec.State
	}
	if _, ok := m.matched[id]; ok {
		return StateMatched
	}
	return StateDiscovered
}

// Deactivate drops id's activation. Reports whether one existed.
func (m *Manager) Deactivate(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[id]
	delete(m.records, id)
	delete(m.matched, id)
	return ok
}

// DeactivateAll drops every activation and matched mark, returning how
// many activations were live. Safe to call on an empty manager.
func (m *Manager) DeactivateAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.records)
	m.records = make(map[string]*Record)
	m.matched = make(map[string]time.Time)
	return n
}

// Records returns a snapshot of all activation records ordered by
// skill id.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out
}

// Stats returns the current lifecycle counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{Matched: len(m.matched), TotalHits: m.hits}
	now := m.now()
	for _, rec := range m.records {
		if now.Sub(rec.LastUsedAt) > m.ttl {
			s.Expired++
			continue
		}
		if rec.State == StateCached {
			s.Cached++
		} else {
			s.Active++
		}
		s.PayloadBytes += len(rec.Payload)
	}
	return s
}

// Package store persists skill usage events so match quality and
// activation frequency survive process restarts. Two backends share one
// interface: an append-only JSON lines file and a SQLite database.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/config"
)

// Event kinds.
const (
	KindMatch        = "match"
	KindActivation   = "activation"
	KindCacheHit     = "cache_hit"
	KindDeactivation = "deactivation"
)

// Event records one usage event for a skill.
type Event struct {
	ID      string    `json:"id"`
	SkillID string    `json:"skill_id"`
	Kind    string    `json:"kind"`
	Query   string    `json:"query,omitempty"`
	Score   float64   `json:"score,omitempty"`
	At      time.Time `json:"at"`
}

// Summary aggregates usage for one skill.
type Summary struct {
	SkillID     string    `json:"skill_id"`
	Matches     int       `json:"matches"`
	Activations int       `json:"activations"`
	CacheHits   int       `json:"cache_hits"`
	LastUsed    time.Time `json:"last_used"`
}

// Usage is the persistence interface for skill usage events.
type Usage interface {
	Record(ctx context.Context, ev Event) error
	Summaries(ctx context.Context) ([]Summary, error)
	Close() error
}

// Open returns the Usage backend named by cfg.StoreBackend.
func Open(cfg config.Config) (Usage, error) {
	if cfg.StoreBackend == config.StoreNone {
		return nopUsage{}, nil
	}
	path, err := cfg.EffectiveStorePath()
	if err != nil {
		return nil, err
	}
	switch cfg.StoreBackend {
	case config.StoreJSON:
		return OpenJSON(path)
	case config.StoreSQLite:
		return OpenSQLite(path)
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// fill assigns defaults for the fields callers usually leave blank.
func fill(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}

// nopUsage discards everything.
type nopUsage struct{}

func (nopUsage) Record(context.Context, Event) error          { return nil }
func (nopUsage) Summaries(context.Context) ([]Summary, error) { return nil, nil }
func (nopUsage) Close() error                                 { return nil }

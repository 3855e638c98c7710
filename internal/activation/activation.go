// Package activation owns the skill lifecycle: discovered manifests
// get matched, matched skills get activated by resolving their full
// instruction payload, and activated payloads are cached with a TTL so
// repeated activations stay cheap.
package activation

import (
	"time"

	"github.com/pkg/errors"
)

// State is where a skill sits in its lifecycle. There is no persistent
// "deactivated" state: deactivation simply drops the record.
type State int

const (
	// StateDiscovered means the skill is indexed but never matched.
	StateDiscovered State = iota
	// StateMatched means the skill appeared in a match result.
	StateMatched
	// StateActive means the payload was resolved by this activation.
	StateActive
	// StateCached means the payload was served from a live cache entry.
	StateCached
	// StateExpired means the cache entry outlived its TTL and the next
	// activation will re-resolve.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateMatched:
		return "matched"
	case StateActive:
		return "active"
	case StateCached:
		return "cached"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Record is one activation: the resolved payload plus bookkeeping.
type Record struct {
	// ActivationID identifies this resolution. A cache hit keeps the id
	// of the resolution that produced the payload.
	ActivationID string
	SkillID      string
	State        State
	// Payload is the full instruction text with resources expanded.
	Payload     string
	ActivatedAt time.Time
	LastUsedAt  time.Time
	HitCount    int

	contentHash string
}

// ResolutionError reports that one skill's payload could not be
// resolved. Activation of a batch continues past it.
type ResolutionError struct {
	SkillID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return "cannot resolve skill " + e.SkillID + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IsResolution reports whether err is a ResolutionError.
func IsResolution(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

package manifest

import (
	"errors"
	"fmt"
)

// Reason classifies why a bundle descriptor could not be parsed.
type Reason int

const (
	// MissingDescriptor means the bundle directory has no SKILL.md.
	MissingDescriptor Reason = iota
	// MalformedFrontMatter means the descriptor exists but its YAML
	// front-matter is absent or does not parse.
	MalformedFrontMatter
	// EmptyName means the front-matter declares no usable name.
	EmptyName
)

func (r Reason) String() string {
	switch r {
	case MissingDescriptor:
		return "missing descriptor"
	case MalformedFrontMatter:
		return "malformed front-matter"
	case EmptyName:
		return "empty name"
	default:
		return "unknown"
	}
}

// Error is the typed parse failure reported per bundle. Scans collect
// these instead of aborting.
type Error struct {
	Reason Reason
	Path   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("skill bundle %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("skill bundle %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// IsReason reports whether err is a manifest Error with the given reason.
func IsReason(err error, r Reason) bool {
	var me *Error
	return errors.As(err, &me) && me.Reason == r
}

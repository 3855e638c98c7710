// Package manifest parses skill bundle descriptors. A bundle is a
// directory containing a SKILL.md file whose YAML front-matter declares
// the skill's metadata and whose markdown body carries the instructions.
package manifest

import (
	"strings"
	"time"
)

// DescriptorName is the required descriptor file inside every bundle.
const DescriptorName = "SKILL.md"

// Kind distinguishes bundle variants. The set is closed: callers
// dispatch on it with an explicit check, never via type hierarchies.
type Kind string

const (
	// KindInstruction is a pure-instruction bundle: descriptor body only.
	KindInstruction Kind = "instruction"
	// KindToolkit is a bundle that also ships executable scripts.
	KindToolkit Kind = "toolkit"
)

// Manifest is the parsed, immutable form of a bundle descriptor.
type Manifest struct {
	// ID is derived from the bundle directory name and is unique per index.
	ID          string
	DisplayName string
	Description string

	// Keywords are lower-cased and deduplicated, sorted for determinism.
	Keywords []string
	// TriggerExamples keep their declared order.
	TriggerExamples []string
	// ResourcePaths lists declared resources plus discovered scripts,
	// relative to SourcePath.
	ResourcePaths []string

	Kind Kind

	// Extensions preserves unknown front-matter keys opaquely for
	// forward compatibility. Never interpreted here.
	Extensions map[string]any

	SourcePath     string
	DescriptorPath string
	// ContentHash is the sha256 of the raw descriptor, used by the index
	// to tell a refresh from a no-op rescan.
	ContentHash string
	LoadedAt    time.Time
}

// HasScripts reports whether the bundle carries executable tooling.
func (m Manifest) HasScripts() bool { return m.Kind == KindToolkit }

// tokenizeWords lower-cases s, strips punctuation and splits on
// whitespace. Used for default keywords; query tokenization lives in
// the match package.
func tokenizeWords(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

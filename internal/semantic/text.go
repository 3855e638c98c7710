package semantic

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

// CanonicalText returns the canonical text embedded for a skill. Stable
// across runs so TextHash can detect when re-embedding is needed.
func CanonicalText(m manifest.Manifest) string {
	parts := []string{
		"name: " + strings.TrimSpace(m.DisplayName),
		"description: " + strings.TrimSpace(m.Description),
	}
	if len(m.Keywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(m.Keywords, ", "))
	}
	if len(m.TriggerExamples) > 0 {
		parts = append(parts, "examples: "+strings.Join(m.TriggerExamples, "; "))
	}
	return strings.Join(parts, "\n")
}

// TextHash returns a sha256 hash (hex) of the canonical text.
func TextHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

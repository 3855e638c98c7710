package match

import (
	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

// Entry wraps a manifest with the derived search features the scorer
// needs: lowered keyword set, tokenized description and trigger token
// sets. Entries are built by the index on upsert and handed to Match
// as a read-only snapshot.
type Entry struct {
	Manifest manifest.Manifest

	// Vector is the optional precomputed embedding for semantic
	// blending. Nil when semantic matching is disabled.
	Vector []float32

	vocab    map[string]struct{}
	triggers []trigger
}

type trigger struct {
	raw    string
	tokens []string
}

// NewEntry derives the search features for m.
func NewEntry(m manifest.Manifest) Entry {
	vocab := make(map[string]struct{})
	add := func(tok string) {
		if tok != "" {
			vocab[tok] = struct{}{}
		}
	}

	for _, kw := range m.Keywords {
		for _, tok := range Tokenize(kw) {
			add(tok)
		}
	}
	for _, tok := range Tokenize(m.Description) {
		add(tok)
	}
	for _, tok := range Tokenize(m.DisplayName) {
		add(tok)
	}
	for _, tok := range Tokenize(m.ID) {
		add(tok)
	}

	triggers := make([]trigger, 0, len(m.TriggerExamples))
	for _, ex := range m.TriggerExamples {
		triggers = append(triggers, trigger{raw: ex, tokens: tokenSet(ex)})
	}

	return Entry{Manifest: m, vocab: vocab, triggers: triggers}
}

// has reports whether tok (raw or plural-folded) appears in the entry's
// vocabulary.
func (e Entry) has(tok string) bool {
	if _, ok := e.vocab[tok]; ok {
		return true
	}
	_, ok := e.vocab[stem(tok)]
	return ok
}

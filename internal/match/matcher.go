// Package match scores indexed skills against free-text queries. The
// matcher is stateless and side-effect free: given the same entries and
// query it always produces the same ranking, which keeps it fuzzable
// independently of activation and caching.
package match

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// ErrInvalidArgument reports caller misuse (threshold outside [0,1],
// negative topK). Fatal to the call only.
var ErrInvalidArgument = errors.New("invalid match argument")

// Result is one ranked candidate. Ephemeral: produced per query,
// referencing the skill by id rather than by pointer.
type Result struct {
	SkillID string
	// Score is in [0,1].
	Score float64
	// MatchedTerms is the evidence trail: the query tokens that hit the
	// skill's vocabulary, then any trigger-example tokens that fired.
	MatchedTerms []string
}

// Options tunes the scorer. The shape of the algorithm is fixed; the
// weights are configuration.
type Options struct {
	TopK      int
	Threshold float64

	// TriggerFraction is the share of a trigger example's tokens the
	// query must cover before the bonus applies.
	TriggerFraction float64
	// TriggerBonus is added (once, capped at 1.0) when any trigger
	// example fires.
	TriggerBonus float64

	// SemanticScores, when non-nil, blends a per-skill cosine score
	// into the lexical score: (1-w)*lexical + w*semantic.
	SemanticScores map[string]float64
	SemanticWeight float64
}

// Match scores every entry against query and returns at most
// opts.TopK results with Score >= opts.Threshold, ordered by score
// descending and id ascending on ties.
//
// An empty query and topK == 0 both yield an empty result, not an
// error. Cancelling ctx stops scoring early: whatever was scored so
// far is ranked and returned.
func Match(ctx context.Context, entries []Entry, query string, opts Options) ([]Result, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "threshold %v outside [0,1]", opts.Threshold)
	}
	if opts.TopK < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "topK %d is negative", opts.TopK)
	}
	if opts.TopK == 0 {
		return []Result{}, nil
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if r, ok := score(e, queryTokens, opts); ok && r.Score >= opts.Threshold {
			results = append(results, r)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].SkillID < results[j].SkillID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// score computes the two-tier score for a single entry.
func score(e Entry, queryTokens []string, opts Options) (Result, bool) {
	var matched []string
	for _, tok := range queryTokens {
		if e.has(tok) {
			matched = append(matched, tok)
		}
	}

	lexical := float64(len(matched)) / float64(len(queryTokens))

	// Trigger-example tier: one bonus, first firing example wins.
	if opts.TriggerBonus > 0 {
		querySet := make(map[string]struct{}, len(queryTokens))
		for _, tok := range queryTokens {
			querySet[tok] = struct{}{}
			querySet[stem(tok)] = struct{}{}
		}
		for _, tr := range e.triggers {
			if len(tr.tokens) == 0 {
				continue
			}
			var shared []string
			for _, tok := range tr.tokens {
				if _, ok := querySet[tok]; ok {
					shared = append(shared, tok)
					continue
				}
				if _, ok := querySet[stem(tok)]; ok {
					shared = append(shared, tok)
				}
			}
			if len(shared) > 0 && float64(len(shared))/float64(len(tr.tokens)) >= opts.TriggerFraction {
				lexical += opts.TriggerBonus
				// A token can hit both tiers; record it once.
				seen := make(map[string]struct{}, len(matched))
				for _, tok := range matched {
					seen[tok] = struct{}{}
				}
				for _, tok := range shared {
					if _, ok := seen[tok]; ok {
						continue
					}
					seen[tok] = struct{}{}
					matched = append(matched, tok)
				}
				break
			}
		}
	}

	if lexical > 1 {
		lexical = 1
	}

	final := lexical
	if opts.SemanticScores != nil {
		w := opts.SemanticWeight
		if w < 0 {
			w = 0
		}
		if w > 1 {
			w = 1
		}
		final = (1-w)*lexical + w*opts.SemanticScores[e.Manifest.ID]
	}

	if final <= 0 {
		return Result{}, false
	}
	return Result{SkillID: e.Manifest.ID, Score: final, MatchedTerms: matched}, true
}

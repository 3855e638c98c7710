package semantic

import (
	"context"
	"strings"

	"github.com/cn-vhql/AS-SKILLS/internal/embeddings"
)

// Scores embeds query and returns the cosine similarity per skill id,
// clamped to [0,1] so the blend with lexical scores stays in range.
// Skills whose stored dimension does not match the query embedding are
// skipped rather than failing the whole query.
func Scores(ctx context.Context, prov embeddings.Provider, snap *Snapshot, query string) (map[string]float64, error) {
	if snap == nil || len(snap.Rows) == 0 || strings.TrimSpace(query) == "" {
		return map[string]float64{}, nil
	}

	qv, err := prov.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if snap.Meta.Normalize {
		qv = NormalizeL2(qv)
	}

	out := make(map[string]float64, len(snap.Rows))
	for i, r := range snap.Rows {
		start := i * snap.Meta.Dim
		end := start + snap.Meta.Dim
		if end > len(snap.Vectors) {
			break
		}
		sim, err := Cosine(qv, snap.Vectors[start:end])
		if err != nil {
			continue
		}
		if sim < 0 {
			sim = 0
		}
		if sim > 1 {
			sim = 1
		}
		out[r.ID] = sim
	}
	return out, nil
}

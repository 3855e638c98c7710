// Package semantic maintains the on-disk embedding index used to blend
// cosine similarity into lexical match scores. The index is three
// artifacts in one directory: index_manifest.json describing the
// layout, skills.jsonl with one row per skill, and vectors.f32 with
// the packed little-endian float32 embeddings in row order.
package semantic

import "github.com/pkg/errors"

// ErrVectorLengthMismatch indicates two vectors have different dimensions.
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// Meta describes a semantic index and how to interpret its files.
type Meta struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	ModelID      string `json:"model_id"`
	Dim          int    `json:"dim"`
	Normalize    bool   `json:"normalize"`
	VectorFile   string `json:"vector_file"`
	SkillsFile   string `json:"skills_file"`
}

// Row represents one skill row in skills.jsonl.
type Row struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TextHash    string `json:"text_hash"`
	UpdatedAt   string `json:"updated_at"`
}

// Snapshot is a loaded semantic index.
type Snapshot struct {
	Meta    Meta
	Rows    []Row
	Vectors []float32
}

// VectorFor returns the embedding for id, or nil when the id is not in
// the snapshot.
func (s *Snapshot) VectorFor(id string) []float32 {
	for i, r := range s.Rows {
		if r.ID == id {
			start := i * s.Meta.Dim
			end := start + s.Meta.Dim
			if end <= len(s.Vectors) {
				return s.Vectors[start:end]
			}
			return nil
		}
	}
	return nil
}

package semantic

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const metaFile = "index_manifest.json"

// Write writes index artifacts to dir.
func Write(dir string, meta Meta, rows []Row, vectors []float32) error {
	if meta.Dim <= 0 {
		return errors.Errorf("invalid dim: %d", meta.Dim)
	}
	if len(rows) == 0 {
		return errors.New("no skills to write")
	}
	if len(vectors) != len(rows)*meta.Dim {
		return errors.Errorf("vector length mismatch: got %d want %d", len(vectors), len(rows)*meta.Dim)
	}
	if meta.VectorFile == "" {
		meta.VectorFile = "vectors.f32"
	}
	if meta.SkillsFile == "" {
		meta.SkillsFile = "skills.jsonl"
	}
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create index dir %s", dir)
	}

	mb, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), mb, 0o644); err != nil {
		return errors.Wrap(err, "cannot write index manifest")
	}

	sf, err := os.Create(filepath.Join(dir, meta.SkillsFile))
	if err != nil {
		return errors.Wrap(err, "cannot create skills file")
	}
	bw := bufio.NewWriter(sf)
	for _, r := range rows {
		line, err := json.Marshal(r)
		if err != nil {
			_ = sf.Close()
			return err
		}
		if _, err := bw.Write(line); err != nil {
			_ = sf.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = sf.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = sf.Close()
		return err
	}
	if err := sf.Close(); err != nil {
		return err
	}

	vf, err := os.Create(filepath.Join(dir, meta.VectorFile))
	if err != nil {
		return errors.Wrap(err, "cannot create vectors file")
	}
	if err := binary.Write(vf, binary.LittleEndian, vectors); err != nil {
		_ = vf.Close()
		return errors.Wrap(err, "cannot write vectors")
	}
	return vf.Close()
}

// Load reads an index from dir containing manifest + skills + vectors.
func Load(dir string) (*Snapshot, error) {
	metaPath := filepath.Join(dir, metaFile)
	b, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read index manifest %s", metaPath)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "invalid index manifest JSON %s", metaPath)
	}
	if m.Dim <= 0 {
		return nil, errors.Errorf("invalid dim in index manifest: %d", m.Dim)
	}
	if m.VectorFile == "" {
		m.VectorFile = "vectors.f32"
	}
	if m.SkillsFile == "" {
		m.SkillsFile = "skills.jsonl"
	}

	rows, err := loadRows(filepath.Join(dir, m.SkillsFile))
	if err != nil {
		return nil, err
	}
	vectors, err := loadVectors(filepath.Join(dir, m.VectorFile), len(rows), m.Dim)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Meta: m, Rows: rows, Vectors: vectors}, nil
}

func loadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open skills file %s", path)
	}
	defer f.Close()

	var out []Row
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Row
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errors.Wrapf(err, "invalid skills JSONL %s", path)
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read skills file %s", path)
	}
	return out, nil
}

func loadVectors(path string, nRows, dim int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open vector file %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot stat vector file %s", path)
	}
	if st.Size()%4 != 0 {
		return nil, errors.Errorf("vector file size is not multiple of 4 bytes: %d", st.Size())
	}

	expected := int64(nRows * dim * 4)
	if expected != st.Size() {
		return nil, errors.Errorf("vector file size mismatch: got %d want %d (skills=%d dim=%d)", st.Size(), expected, nRows, dim)
	}

	out := make([]float32, nRows*dim)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, out); err != nil {
		return nil, errors.Wrapf(err, "cannot read vectors from %s", path)
	}
	return out, nil
}

package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// jsonUsage appends events as JSON lines. Append-only keeps writes
// crash-safe without a rewrite cycle; summaries re-read the file.
type jsonUsage struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenJSON opens (creating if needed) a JSON lines usage store at path.
func OpenJSON(path string) (Usage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create store dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open usage store %s", path)
	}
	return &jsonUsage{path: path, f: f}, nil
}

func (s *jsonUsage) Record(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(fill(ev))
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(line); err != nil {
		return errors.Wrapf(err, "cannot append usage event to %s", s.path)
	}
	return nil
}

func (s *jsonUsage) Summaries(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "cannot open usage store %s", s.path)
	}
	defer f.Close()

	agg := map[string]*Summary{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// A torn tail write loses one event, not the store.
			continue
		}
		sum, ok := agg[ev.SkillID]
		if !ok {
			sum = &Summary{SkillID: ev.SkillID}
			agg[ev.SkillID] = sum
		}
		switch ev.Kind {
		case KindMatch:
			sum.Matches++
		case KindActivation:
			sum.Activations++
		case KindCacheHit:
			sum.CacheHits++
		}
		if ev.At.After(sum.LastUsed) {
			sum.LastUsed = ev.At
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read usage store %s", s.path)
	}

	out := make([]Summary, 0, len(agg))
	for _, sum := range agg {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

func (s *jsonUsage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

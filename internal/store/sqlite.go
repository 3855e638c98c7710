package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// sqliteUsage implements Usage on SQLite via modernc.org/sqlite.
type sqliteUsage struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite usage store and initializes the schema.
func OpenSQLite(path string) (Usage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create store dir for %s", path)
	}

	dsn := path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	schema := `
CREATE TABLE IF NOT EXISTS usage_events (
    id TEXT PRIMARY KEY,
    skill_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    query TEXT NOT NULL DEFAULT '',
    score REAL NOT NULL DEFAULT 0,
    at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_skill ON usage_events(skill_id);
CREATE INDEX IF NOT EXISTS idx_usage_kind ON usage_events(kind);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}

	return &sqliteUsage{db: db}, nil
}

func (s *sqliteUsage) Record(ctx context.Context, ev Event) error {
	ev = fill(ev)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, skill_id, kind, query, score, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SkillID, ev.Kind, ev.Query, ev.Score, ev.At,
	)
	if err != nil {
		return errors.Wrap(err, "insert usage event")
	}
	return nil
}

func (s *sqliteUsage) Summaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT skill_id,
		        SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END),
		        MAX(at)
		 FROM usage_events GROUP BY skill_id ORDER BY skill_id`,
		KindMatch, KindActivation, KindCacheHit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query usage summaries")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var last sql.NullTime
		if err := rows.Scan(&sum.SkillID, &sum.Matches, &sum.Activations, &sum.CacheHits, &last); err != nil {
			return nil, errors.Wrap(err, "scan usage summary")
		}
		if last.Valid {
			sum.LastUsed = last.Time
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *sqliteUsage) Close() error {
	return s.db.Close()
}

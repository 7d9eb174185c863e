// Package sqlitestore is an external collaborator: it persists a
// serializer.Document as a single-row BLOB per saved mind snapshot, and
// separately maintains a sqlite-vec similarity index over belief
// trait-text so a caller can ask "which beliefs look like this one" —
// entirely outside the core engine's resolution contract, sitting beside
// it rather than inside it.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS mind_snapshots (
    label      TEXT NOT NULL,
    version    INTEGER NOT NULL,
    root_mind  INTEGER NOT NULL,
    document   BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (label, version)
);
CREATE INDEX IF NOT EXISTS idx_mind_snapshots_current ON mind_snapshots(label, version DESC);
`

const vecSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS belief_embeddings USING vec0(
    embedding float[%d]
);
CREATE TABLE IF NOT EXISTS belief_embedding_labels (
    rowid     INTEGER PRIMARY KEY,
    belief_id INTEGER NOT NULL,
    text      TEXT NOT NULL
);
`

// Store is a SQLite-backed document store plus similarity index, safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	log  *zap.Logger
	dims int
}

// Open creates or attaches to a SQLite database at path and ensures the
// snapshot table (and, if dims > 0, the belief_embeddings vec0 table)
// exist. dims == 0 skips the vector index entirely.
func Open(path string, dims int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	if dims > 0 {
		if _, err := db.Exec(fmt.Sprintf(vecSchema, dims)); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: create vec schema: %w", err)
		}
	}
	log.Info("sqlitestore opened", zap.String("path", path), zap.Int("dims", dims))
	return &Store{db: db, log: log, dims: dims}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot appends a new version of label's document. Versions are
// monotonically increasing per label, a temporal-table pattern that keeps
// every prior snapshot addressable rather than overwriting it in place.
func (s *Store) SaveSnapshot(label string, rootMind int64, document []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int64
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) + 1 FROM mind_snapshots WHERE label = ?`, label)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("sqlitestore: compute next version: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO mind_snapshots (label, version, root_mind, document, created_at) VALUES (?, ?, ?, ?, ?)`,
		label, version, rootMind, document, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: insert snapshot: %w", err)
	}
	s.log.Debug("snapshot saved", zap.String("label", label), zap.Int64("version", version))
	return version, nil
}

// LoadLatestSnapshot returns the most recent document saved under label.
func (s *Store) LoadLatestSnapshot(label string) ([]byte, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var document []byte
	var version int64
	row := s.db.QueryRow(
		`SELECT version, document FROM mind_snapshots WHERE label = ? ORDER BY version DESC LIMIT 1`,
		label,
	)
	if err := row.Scan(&version, &document); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, fmt.Errorf("sqlitestore: no snapshot for label %q", label)
		}
		return nil, 0, fmt.Errorf("sqlitestore: load snapshot: %w", err)
	}
	return document, version, nil
}

// IndexBeliefText registers a belief's trait-text representation under the
// given embedding, for later similarity search. Callers outside the core
// compute the embedding; the engine never does.
func (s *Store) IndexBeliefText(beliefID int64, text string, embedding []float32) error {
	if s.dims == 0 {
		return fmt.Errorf("sqlitestore: vector index disabled (opened with dims=0)")
	}
	if len(embedding) != s.dims {
		return fmt.Errorf("sqlitestore: embedding has %d dims, index expects %d", len(embedding), s.dims)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT INTO belief_embeddings (embedding) VALUES (?)`, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("sqlitestore: insert embedding: %w", err)
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlitestore: embedding rowid: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO belief_embedding_labels (rowid, belief_id, text) VALUES (?, ?, ?)`, rowid, beliefID, text)
	if err != nil {
		return fmt.Errorf("sqlitestore: insert embedding label: %w", err)
	}
	return nil
}

// SimilarBeliefs returns the k nearest belief ids to query by cosine/L2
// distance over the belief_embeddings vec0 index.
func (s *Store) SimilarBeliefs(query []float32, k int) ([]int64, error) {
	if s.dims == 0 {
		return nil, fmt.Errorf("sqlitestore: vector index disabled (opened with dims=0)")
	}
	if len(query) != s.dims {
		return nil, fmt.Errorf("sqlitestore: query has %d dims, index expects %d", len(query), s.dims)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
        SELECT l.belief_id
        FROM belief_embeddings e
        JOIN belief_embedding_labels l ON l.rowid = e.rowid
        WHERE e.embedding MATCH ?
        ORDER BY distance
        LIMIT ?`, encodeVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: similarity query: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan similarity row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

package canon

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS alias_entries (
	canonical_topic TEXT PRIMARY KEY,
	aliases_json    TEXT NOT NULL,
	embedding       BLOB,
	created_by      TEXT NOT NULL,
	confidence      REAL NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS alias_lookup (
	alias           TEXT PRIMARY KEY,
	canonical_topic TEXT NOT NULL
);
`

// Entry is one row of the global alias table.
type Entry struct {
	CanonicalTopic string
	Aliases        []string
	Embedding      []float32
	CreatedBy      string
	Confidence     float64
}

// Store is the persistent, process-global alias table: a single SQLite
// file shared by every project. Entries are only ever added or
// replaced, never deleted.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the global alias table database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open alias store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply alias store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Lookup performs the exact alias-table match: normalized alias string
// -> canonical topic.
func (s *Store) Lookup(ctx context.Context, normalizedAlias string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var canonical string
	err := s.db.QueryRowContext(ctx, `SELECT canonical_topic FROM alias_lookup WHERE alias = ?`, normalizedAlias).Scan(&canonical)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("alias lookup: %w", err)
	}
	return canonical, true, nil
}

// AllCanonicalEmbeddings returns every canonical topic with a stored
// embedding, for the embedding-similarity step.
func (s *Store) AllCanonicalEmbeddings(ctx context.Context) (map[string][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT canonical_topic, embedding FROM alias_entries WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list canonical embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var topic string
		var blob []byte
		if err := rows.Scan(&topic, &blob); err != nil {
			return nil, fmt.Errorf("scan canonical embedding: %w", err)
		}
		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		out[topic] = vec
	}
	return out, rows.Err()
}

// AllAliases returns every (canonical_topic, alias) pair, for rebuilding
// the in-memory Aho-Corasick alias index at startup.
func (s *Store) AllAliases(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT alias, canonical_topic FROM alias_lookup`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out[alias] = canonical
	}
	return out, rows.Err()
}

// Put adds or replaces one canonical topic's alias set and embedding.
// The canonical topic is always registered as an alias of itself so a
// later exact lookup on the canonical form succeeds.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	aliasJSON, err := json.Marshal(entry.Aliases)
	if err != nil {
		return fmt.Errorf("marshal aliases: %w", err)
	}
	embeddingBlob, err := encodeEmbedding(entry.Embedding)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin alias put tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO alias_entries (canonical_topic, aliases_json, embedding, created_by, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_topic) DO UPDATE SET
			aliases_json = excluded.aliases_json,
			embedding = excluded.embedding,
			created_by = excluded.created_by,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`, entry.CanonicalTopic, string(aliasJSON), embeddingBlob, entry.CreatedBy, entry.Confidence, now, now); err != nil {
		return fmt.Errorf("upsert alias entry: %w", err)
	}

	allAliases := append([]string{entry.CanonicalTopic}, entry.Aliases...)
	for _, alias := range allAliases {
		if alias == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alias_lookup (alias, canonical_topic) VALUES (?, ?)
			ON CONFLICT(alias) DO UPDATE SET canonical_topic = excluded.canonical_topic
		`, alias, entry.CanonicalTopic); err != nil {
			return fmt.Errorf("upsert alias lookup %q: %w", alias, err)
		}
	}

	return tx.Commit()
}

func encodeEmbedding(vec []float32) ([]byte, error) {
	if vec == nil {
		return nil, nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		b := math.Float32bits(v)
		buf[i*4+0] = byte(b)
		buf[i*4+1] = byte(b >> 8)
		buf[i*4+2] = byte(b >> 16)
		buf[i*4+3] = byte(b >> 24)
	}
	return buf, nil
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("decode embedding: length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		b := uint32(buf[i*4+0]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		vec[i] = math.Float32frombits(b)
	}
	return vec, nil
}

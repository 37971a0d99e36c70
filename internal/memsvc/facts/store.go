package facts

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/memsvc/internal/memsvc/errs"
	"github.com/kittclouds/memsvc/internal/memsvc/rankedlist"
)

// Store is the per-project Fact Store: one SQLite file per project,
// WAL mode, immediate-lock transactions.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (creating if needed) the per-project fact/chunk/embedding
// database at dsn, applying the schema. Use ":memory:" for tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open fact store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply fact store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// validProjectID reports whether id is a canonically-formatted RFC-4122
// UUID. uuid.Parse alone also accepts urn:/braced/compact forms; project
// ids double as database file names, so only the 36-char canonical form
// is allowed.
func validProjectID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// StoreFact marks any existing current row for (project_id, fact_key)
// superseded and inserts the new current row, all within one
// immediate-lock transaction.
func (s *Store) StoreFact(ctx context.Context, projectID, factKey, valueText string, valueType ValueType, confidence float64, sourceMessageUUID string, effectiveAt int64) (int64, error) {
	if !validProjectID(projectID) {
		return 0, fmt.Errorf("%w: project_id %q is not a valid UUID", errs.ErrInvalidInput, projectID)
	}
	normKey, warn := NormalizeFactKey(factKey)
	if normKey == "" || (normKey == "user.unknown" && warn != "" && factKey == "") {
		return 0, fmt.Errorf("%w: fact_key normalization rejected input", errs.ErrInvalidInput)
	}

	var factID int64
	err := s.withImmediateTx(ctx, func(ctx context.Context, tx *txHandle) error {
		id, _, err := storeFactTx(ctx, tx, projectID, normKey, valueText, valueType, confidence, sourceMessageUUID, effectiveAt)
		factID = id
		return err
	})
	return factID, err
}

// storeFactTx is StoreFact's body within an already-open transaction:
// mark prior current row false, insert new current row with
// supersedes_fact_id set to the prior id. Returns whether a prior current
// row existed (for ApplyResult.update_count bookkeeping).
func storeFactTx(ctx context.Context, tx *txHandle, projectID, factKey, valueText string, valueType ValueType, confidence float64, sourceMessageUUID string, effectiveAt int64) (factID int64, hadPrior bool, err error) {
	var priorID sql.NullInt64
	row := tx.queryRow(ctx, `SELECT fact_id FROM facts WHERE project_id = ? AND fact_key = ? AND is_current = 1`, projectID, factKey)
	if scanErr := row.Scan(&priorID); scanErr != nil && scanErr != sql.ErrNoRows {
		return 0, false, fmt.Errorf("read current fact: %w", scanErr)
	}
	if priorID.Valid {
		hadPrior = true
		if _, err := tx.exec(ctx, `UPDATE facts SET is_current = 0 WHERE fact_id = ?`, priorID.Int64); err != nil {
			return 0, false, fmt.Errorf("supersede prior fact: %w", err)
		}
	}

	now := effectiveAt
	if now == 0 {
		now = time.Now().UnixMilli()
	}
	var supersedes any
	if priorID.Valid {
		supersedes = priorID.Int64
	}

	res, err := tx.exec(ctx, `
		INSERT INTO facts (project_id, fact_key, value_text, value_type, confidence,
			source_message_uuid, created_at, effective_at, supersedes_fact_id, is_current)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, projectID, factKey, valueText, string(valueType), confidence, sourceMessageUUID, now, now, supersedes)
	if err != nil {
		return 0, hadPrior, fmt.Errorf("insert fact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, hadPrior, fmt.Errorf("last insert id: %w", err)
	}
	return id, hadPrior, nil
}

// retireCurrentTx marks the current row at (project_id, fact_key) as no
// longer current, without inserting a replacement. Used for ranked-list
// shifts/removals where the value logically moves to a different
// fact_key rather than being overwritten in place.
func retireCurrentTx(ctx context.Context, tx *txHandle, projectID, factKey string) error {
	_, err := tx.exec(ctx, `UPDATE facts SET is_current = 0 WHERE project_id = ? AND fact_key = ? AND is_current = 1`, projectID, factKey)
	if err != nil {
		return fmt.Errorf("retire fact %s: %w", factKey, err)
	}
	return nil
}

// GetCurrentFact reads the unique is_current=true row for (project_id,
// fact_key), tie-breaking by (effective_at DESC, created_at DESC,
// fact_id DESC) as a defensive safety net.
func (s *Store) GetCurrentFact(ctx context.Context, projectID, factKey string) (*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT fact_id, project_id, fact_key, value_text, value_type, confidence,
			source_message_uuid, created_at, effective_at, supersedes_fact_id, is_current
		FROM facts
		WHERE project_id = ? AND fact_key = ? AND is_current = 1
		ORDER BY effective_at DESC, created_at DESC, fact_id DESC
		LIMIT 1
	`, projectID, factKey)

	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current fact: %w", err)
	}
	return f, nil
}

func scanFact(row *sql.Row) (*Fact, error) {
	var f Fact
	var valueType string
	var supersedes sql.NullInt64
	var sourceUUID sql.NullString
	if err := row.Scan(&f.FactID, &f.ProjectID, &f.FactKey, &f.ValueText, &valueType, &f.Confidence,
		&sourceUUID, &f.CreatedAt, &f.EffectiveAt, &supersedes, &f.IsCurrent); err != nil {
		return nil, err
	}
	f.ValueType = ValueType(valueType)
	f.SourceMessageUUID = sourceUUID.String
	if supersedes.Valid {
		v := supersedes.Int64
		f.SupersedesFactID = &v
	}
	return &f, nil
}

// SearchCurrentFacts does a substring search against fact_key and
// value_text over current rows, scoped to project.
func (s *Store) SearchCurrentFacts(ctx context.Context, projectID, query string, limit int, excludeMessageUUID string) ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT fact_id, project_id, fact_key, value_text, value_type, confidence,
			source_message_uuid, created_at, effective_at, supersedes_fact_id, is_current
		FROM facts
		WHERE project_id = ? AND is_current = 1
			AND (fact_key LIKE ? OR value_text LIKE ?)
			AND (? = '' OR source_message_uuid IS NULL OR source_message_uuid != ?)
		ORDER BY effective_at DESC, created_at DESC, fact_id DESC
		LIMIT ?
	`, projectID, like, like, excludeMessageUUID, excludeMessageUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("search current facts: %w", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var f Fact
		var valueType string
		var supersedes sql.NullInt64
		var sourceUUID sql.NullString
		if err := rows.Scan(&f.FactID, &f.ProjectID, &f.FactKey, &f.ValueText, &valueType, &f.Confidence,
			&sourceUUID, &f.CreatedAt, &f.EffectiveAt, &supersedes, &f.IsCurrent); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		f.ValueType = ValueType(valueType)
		f.SourceMessageUUID = sourceUUID.String
		if supersedes.Valid {
			v := supersedes.Int64
			f.SupersedesFactID = &v
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// rankKeySuffix matches "<list_key>.<digits>" and extracts the digits.
var rankKeySuffix = regexp.MustCompile(`\.(\d+)$`)

// GetRankedList returns the current rows of list_key, sorted by rank.
func (s *Store) GetRankedList(ctx context.Context, projectID, listKey string) ([]RankedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryRankedList(ctx, s.db, projectID, listKey)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args...any) (*sql.Rows, error)
}

func queryRankedList(ctx context.Context, q querier, projectID, listKey string) ([]RankedItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT fact_key, value_text, source_message_uuid
		FROM facts
		WHERE project_id = ? AND is_current = 1 AND fact_key LIKE ?
	`, projectID, listKey+".%")
	if err != nil {
		return nil, fmt.Errorf("query ranked list: %w", err)
	}
	defer rows.Close()

	var out []RankedItem
	for rows.Next() {
		var factKey, valueText string
		var sourceUUID sql.NullString
		if err := rows.Scan(&factKey, &valueText, &sourceUUID); err != nil {
			return nil, fmt.Errorf("scan ranked item: %w", err)
		}
		m := rankKeySuffix.FindStringSubmatch(factKey)
		if m == nil {
			continue // not actually a rank slot of this list (defensive)
		}
		rank, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		out = append(out, RankedItem{Rank: rank, ValueText: valueText, FactKey: factKey, SourceMessageUUID: sourceUUID.String})
	}
	return out, rows.Err()
}

func getRankedListTx(ctx context.Context, tx *txHandle, projectID, listKey string) ([]RankedItem, error) {
	rows, err := tx.query(ctx, `
		SELECT fact_key, value_text, source_message_uuid
		FROM facts
		WHERE project_id = ? AND is_current = 1 AND fact_key LIKE ?
	`, projectID, listKey+".%")
	if err != nil {
		return nil, fmt.Errorf("query ranked list (tx): %w", err)
	}
	defer rows.Close()

	var out []RankedItem
	for rows.Next() {
		var factKey, valueText string
		var sourceUUID sql.NullString
		if err := rows.Scan(&factKey, &valueText, &sourceUUID); err != nil {
			return nil, fmt.Errorf("scan ranked item (tx): %w", err)
		}
		m := rankKeySuffix.FindStringSubmatch(factKey)
		if m == nil {
			continue
		}
		rank, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		out = append(out, RankedItem{Rank: rank, ValueText: valueText, FactKey: factKey, SourceMessageUUID: sourceUUID.String})
	}
	return out, rows.Err()
}

// checkListInvariants verifies the contiguity and uniqueness invariants
// for one list_key, reading the post-mutation state within the same
// transaction.
func checkListInvariants(ctx context.Context, tx *txHandle, projectID, listKey string) error {
	items, err := getRankedListTx(ctx, tx, projectID, listKey)
	if err != nil {
		return err
	}
	seen := make(map[int]bool, len(items))
	seenValues := make(map[string]string, len(items))
	for _, it := range items {
		if seen[it.Rank] {
			return fmt.Errorf("%w: duplicate rank %d in list %s", errs.ErrInvariantViolated, it.Rank, listKey)
		}
		seen[it.Rank] = true

		normValue := normalizeForUniqueness(it.ValueText)
		if other, ok := seenValues[normValue]; ok {
			return fmt.Errorf("%w: duplicate value %q in list %s (ranks %s, %d)", errs.ErrInvariantViolated, it.ValueText, listKey, other, it.Rank)
		}
		seenValues[normValue] = strconv.Itoa(it.Rank)
	}
	for r := 1; r <= len(items); r++ {
		if !seen[r] {
			return fmt.Errorf("%w: gap at rank %d in list %s (len=%d)", errs.ErrInvariantViolated, r, listKey, len(items))
		}
	}
	return nil
}

// normalizeForUniqueness compares stored values under the same
// rankedlist.NormalizeRankItem rule the engine uses to detect duplicates.
func normalizeForUniqueness(v string) string {
	return rankedlist.NormalizeRankItem(v)
}

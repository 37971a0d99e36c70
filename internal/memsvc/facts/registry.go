package facts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry lazily opens and caches one *Store per project: one SQLite
// file per project_id under a shared directory, guarded by a single
// RWMutex.
type Registry struct {
	mu     sync.RWMutex
	dir    string
	stores map[string]*Store
}

// NewRegistry constructs a Registry rooted at dir (created if missing).
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("facts: registry: create project db dir: %w", err)
	}
	return &Registry{dir: dir, stores: make(map[string]*Store)}, nil
}

func (r *Registry) path(projectID string) string {
	return filepath.Join(r.dir, projectID+".db")
}

// Get returns the Store for projectID, opening its SQLite file on first
// use.
func (r *Registry) Get(projectID string) (*Store, error) {
	if !validProjectID(projectID) {
		return nil, fmt.Errorf("facts: registry: project_id %q is not a valid UUID", projectID)
	}

	r.mu.RLock()
	s, ok := r.stores[projectID]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[projectID]; ok {
		return s, nil
	}
	s, err := Open(r.path(projectID))
	if err != nil {
		return nil, fmt.Errorf("facts: registry: open project %s: %w", projectID, err)
	}
	r.stores[projectID] = s
	return s, nil
}

// KnownProjectIDs lists every project that has an on-disk database file,
// whether or not it is currently open in memory.
func (r *Registry) KnownProjectIDs() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("facts: registry: list project db dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".db") {
			continue
		}
		id := strings.TrimSuffix(name, ".db")
		if validProjectID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes every open store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for id, s := range r.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close project %s: %w", id, err)
		}
	}
	return firstErr
}

// UpsertChatMessage, InsertChunk, and InsertEmbedding let a Registry
// satisfy pipeline.DurableStore directly, routing each call to the right
// project's Store by the record's own ProjectID field.
func (r *Registry) UpsertChatMessage(ctx context.Context, m ChatMessage) (string, error) {
	s, err := r.Get(m.ProjectID)
	if err != nil {
		return "", err
	}
	return s.UpsertChatMessage(ctx, m)
}

func (r *Registry) InsertChunk(ctx context.Context, c Chunk, createdAt int64) error {
	s, err := r.Get(c.ProjectID)
	if err != nil {
		return err
	}
	return s.InsertChunk(ctx, c, createdAt)
}

func (r *Registry) InsertEmbedding(ctx context.Context, embeddingID, chunkID, projectID string, vector []float32, createdAt int64) error {
	s, err := r.Get(projectID)
	if err != nil {
		return err
	}
	return s.InsertEmbedding(ctx, embeddingID, chunkID, projectID, vector, createdAt)
}

// AllEmbeddings implements vectorindex.DurableSource across every known
// project: projectID == "" aggregates all projects (startup rebuild and
// brute-force fallback scan both want this), a specific projectID scopes
// to just that project's store.
func (r *Registry) AllEmbeddings(ctx context.Context, projectID string) ([]EmbeddingRow, error) {
	if projectID != "" {
		s, err := r.Get(projectID)
		if err != nil {
			return nil, err
		}
		return s.AllEmbeddings(ctx, "")
	}

	ids, err := r.KnownProjectIDs()
	if err != nil {
		return nil, err
	}
	var all []EmbeddingRow
	for _, id := range ids {
		s, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		rows, err := s.AllEmbeddings(ctx, "")
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/kittclouds/memsvc/internal/memsvc/facts"
	"github.com/kittclouds/memsvc/internal/memsvc/vectorindex"
)

// JobState is the job lifecycle: queued -> running ->
// {success, timeout, error}.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobSuccess JobState = "success"
	JobTimeout JobState = "timeout"
	JobError   JobState = "error"
)

// Job is one queued chunk+embed unit of work for a single message.
type Job struct {
	ProjectID    string
	ChatID       string
	MessageID    string
	MessageUUID  string
	Role         string
	Content      string
	Timestamp    int64
	MessageIndex int
}

// MinJobTimeout and MaxJobTimeout clamp the per-job timeout formula
// (8s + 3.5s per estimated chunk); HardCapTimeout is the absolute bound
// the worker enforces regardless of the formula.
const (
	MinJobTimeout  = 15 * time.Second
	MaxJobTimeout  = 300 * time.Second
	HardCapTimeout = 600 * time.Second
)

// computeTimeout derives a job's timeout from its estimated chunk count.
func computeTimeout(estimatedChunks int) time.Duration {
	seconds := 8 + 3.5*float64(estimatedChunks)
	d := time.Duration(seconds * float64(time.Second))
	if d < MinJobTimeout {
		return MinJobTimeout
	}
	if d > MaxJobTimeout {
		return MaxJobTimeout
	}
	return d
}

// Embedder is the embedding surface the pipeline needs. Satisfied by
// *llmclient.EmbeddingClient or *llmclient.FakeEmbedder.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DurableStore is the facts.Store surface the pipeline writes chat
// messages, chunks, and embeddings through.
type DurableStore interface {
	UpsertChatMessage(ctx context.Context, m facts.ChatMessage) (string, error)
	InsertChunk(ctx context.Context, c facts.Chunk, createdAt int64) error
	InsertEmbedding(ctx context.Context, embeddingID, chunkID, projectID string, vector []float32, createdAt int64) error
}

// Record is one completed job's telemetry entry.
type Record struct {
	MessageUUID  string
	ProjectID    string
	State        JobState
	QueuedAt     time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
	ChunkCount   int
	ErrorMessage string
}

// Queue is the bounded FIFO job queue with a worker pool.
// Jobs never block message persistence: the caller already has
// MessageUUID before Enqueue is called.
type Queue struct {
	store    DurableStore
	index    *vectorindex.Index
	embedder Embedder
	workers  int
	jobs     chan Job

	// OnComplete, when set before the first Submit/Enqueue, receives a
	// copy of every finished job's telemetry record (the single
	// structured record each job emits on completion).
	OnComplete func(Record)

	mu         sync.Mutex
	statusByID map[string]*Record // keyed by MessageUUID
	ring       []*Record          // completed jobs, oldest-first
	retention  int

	wg sync.WaitGroup
}

// NewQueue constructs a Queue with the given worker count, queue
// capacity, and telemetry retention.
func NewQueue(store DurableStore, index *vectorindex.Index, embedder Embedder, workers, capacity, retention int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if capacity <= 0 {
		capacity = 256
	}
	if retention <= 0 {
		retention = 1000
	}
	q := &Queue{
		store:      store,
		index:      index,
		embedder:   embedder,
		workers:    workers,
		jobs:       make(chan Job, capacity),
		statusByID: make(map[string]*Record),
		retention:  retention,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit performs the synchronous pre-step — upserting the chat message
// record to obtain its stable message_uuid — then enqueues the chunking/
// embedding job. The UUID is returned to the caller immediately so facts
// extracted from the same message can cite it while indexing is still
// pending.
func (q *Queue) Submit(ctx context.Context, job Job) (string, error) {
	messageUUID, err := q.store.UpsertChatMessage(ctx, facts.ChatMessage{
		MessageUUID:  job.MessageUUID,
		ProjectID:    job.ProjectID,
		ChatID:       job.ChatID,
		MessageID:    job.MessageID,
		Role:         job.Role,
		Content:      job.Content,
		Timestamp:    job.Timestamp,
		MessageIndex: job.MessageIndex,
	})
	if err != nil {
		return "", fmt.Errorf("upsert chat message: %w", err)
	}
	job.MessageUUID = messageUUID
	q.Enqueue(job)
	return messageUUID, nil
}

// Enqueue submits a job, non-blocking as long as queue capacity allows
// (bounded FIFO; a full queue blocks the caller, which is
// acceptable since the synchronous pre-step already happened).
func (q *Queue) Enqueue(job Job) {
	rec := &Record{MessageUUID: job.MessageUUID, ProjectID: job.ProjectID, State: JobQueued, QueuedAt: time.Now()}
	q.mu.Lock()
	q.statusByID[job.MessageUUID] = rec
	q.mu.Unlock()
	q.jobs <- job
}

// Status returns the current telemetry record for a message, if known.
func (q *Queue) Status(messageUUID string) (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.statusByID[messageUUID]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Close stops accepting new jobs and waits for in-flight jobs to drain.
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(job)
	}
}

func (q *Queue) run(job Job) {
	q.mu.Lock()
	rec := q.statusByID[job.MessageUUID]
	if rec == nil {
		rec = &Record{MessageUUID: job.MessageUUID, ProjectID: job.ProjectID, QueuedAt: time.Now()}
		q.statusByID[job.MessageUUID] = rec
	}
	rec.State = JobRunning
	rec.StartedAt = time.Now()
	q.mu.Unlock()

	chunks := ChunkText(job.Content)
	timeout := computeTimeout(len(chunks))
	if timeout > HardCapTimeout {
		timeout = HardCapTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := q.process(ctx, job, chunks)

	q.mu.Lock()
	rec.FinishedAt = time.Now()
	rec.ChunkCount = len(chunks)
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		rec.State = JobTimeout
		rec.ErrorMessage = "chunking/embedding exceeded per-job timeout"
	case err != nil:
		rec.State = JobError
		rec.ErrorMessage = err.Error()
	default:
		rec.State = JobSuccess
	}
	q.recordCompletion(rec)
	recCopy := *rec
	q.mu.Unlock()

	if q.OnComplete != nil {
		q.OnComplete(recCopy)
	}
}

func (q *Queue) process(ctx context.Context, job Job, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	sourceID := ChatSourceID(job.ProjectID, job.ChatID)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := q.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	now := time.Now().UnixMilli()
	metas := make([]vectorindex.Metadata, 0, len(chunks))
	vecs := make([][]float32, 0, len(chunks))

	for i, c := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunkID := chunkFingerprintID(job.MessageUUID, c.ChunkIndex)
		fc := facts.Chunk{
			ChunkID:     chunkID,
			ProjectID:   job.ProjectID,
			SourceID:    sourceID,
			ChatID:      job.ChatID,
			MessageUUID: job.MessageUUID,
			ChunkIndex:  c.ChunkIndex,
			StartChar:   c.StartChar,
			EndChar:     c.EndChar,
			Text:        c.Text,
		}
		if err := q.store.InsertChunk(ctx, fc, now); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}

		embeddingID := chunkID + ":emb"
		if err := q.store.InsertEmbedding(ctx, embeddingID, chunkID, job.ProjectID, vectors[i], now); err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}

		metas = append(metas, vectorindex.Metadata{
			EmbeddingID: embeddingID,
			ChunkID:     chunkID,
			SourceID:    sourceID,
			ProjectID:   job.ProjectID,
			ChatID:      job.ChatID,
			MessageUUID: job.MessageUUID,
			ChunkIndex:  c.ChunkIndex,
			StartChar:   c.StartChar,
			EndChar:     c.EndChar,
			Text:        c.Text,
		})
		vecs = append(vecs, vectors[i])
	}

	if q.index != nil {
		if err := q.index.Add(ctx, vecs, metas); err != nil {
			return fmt.Errorf("add to vector index: %w", err)
		}
	}
	return nil
}

// recordCompletion appends to the ring buffer, evicting the oldest
// completed job first once retention is exceeded. Caller must hold q.mu.
func (q *Queue) recordCompletion(rec *Record) {
	q.ring = append(q.ring, rec)
	if len(q.ring) > q.retention {
		evicted := q.ring[0]
		q.ring = q.ring[1:]
		delete(q.statusByID, evicted.MessageUUID)
	}
}

// ChatSourceID mints the project-chat-prefixed source id the Vector
// Index's project isolation rule keys off of.
func ChatSourceID(projectID, chatID string) string {
	return vectorindex.ProjectChatPrefix + projectID + ":" + chatID
}

func chunkFingerprintID(messageUUID string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", messageUUID, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

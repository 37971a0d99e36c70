package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kittclouds/memsvc/internal/memsvc/canon"
	"github.com/kittclouds/memsvc/internal/memsvc/config"
	"github.com/kittclouds/memsvc/internal/memsvc/dispatcher"
	"github.com/kittclouds/memsvc/internal/memsvc/facts"
	"github.com/kittclouds/memsvc/internal/memsvc/llmclient"
	"github.com/kittclouds/memsvc/internal/memsvc/pipeline"
	"github.com/kittclouds/memsvc/internal/memsvc/telemetry"
	"github.com/kittclouds/memsvc/internal/memsvc/vectorindex"
)

// routerSystemPrompt is the fixed system prompt the Router LM is called
// with.
const routerSystemPrompt = `You are a content-plane router. Classify the user's message into exactly one of facts/index/files/chat and return a single JSON object matching the RoutingPlan schema. Never include commentary or markdown fences.`

// app bundles every long-lived component the composition root wires
// together.
type app struct {
	cfg        *config.Config
	logger     telemetry.ThrottledLogger
	registry   *facts.Registry
	aliasStore *canon.Store
	index      *vectorindex.Index
	queue      *pipeline.Queue
	dispatcher *dispatcher.Dispatcher
}

// buildApp wires config -> Fact Store registry -> alias table ->
// LM/embedding HTTP clients -> Canonicalizer -> Vector Index -> Indexing
// Pipeline -> Dispatcher, exactly the dependency order "System
// Overview" describes.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	zl := telemetry.New("info", nil)
	base := telemetry.Wrap(zl)
	logger := telemetry.NewThrottledLogger(base, time.Minute)

	registry, err := facts.NewRegistry(cfg.ProjectDBDir)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	aliasStore, err := canon.Open(cfg.AliasTableDBPath)
	if err != nil {
		return nil, fmt.Errorf("build app: open alias table: %w", err)
	}

	lmCfg := llmclient.Config{
		RouterURL:    cfg.RouterLMURL,
		TeacherURL:   cfg.TeacherLMURL,
		EmbeddingURL: cfg.EmbeddingURL,
		Timeout:      cfg.LMTimeout,
	}
	httpClient := &http.Client{Timeout: cfg.LMTimeout}
	routerClient := llmclient.NewRouterClient(httpClient, lmCfg)
	teacherClient := llmclient.NewTeacherClient(httpClient, lmCfg)
	embeddingClient := llmclient.NewEmbeddingClient(httpClient, lmCfg, cfg.EmbeddingDim)

	canonicalizer, err := canon.New(ctx, aliasStore, embeddingClient, teacherClient)
	if err != nil {
		return nil, fmt.Errorf("build app: new canonicalizer: %w", err)
	}

	index := vectorindex.New(cfg.EmbeddingDim)

	queue := pipeline.NewQueue(registry, index, embeddingClient, cfg.WorkerPoolSize, cfg.JobQueueCapacity, cfg.JobTelemetryRetention)
	queue.OnComplete = func(rec pipeline.Record) { telemetry.LogJobRecord(base, rec) }

	disp := &dispatcher.Dispatcher{
		Router:        routerClient,
		SystemPrompt:  routerSystemPrompt,
		Index:         index,
		IndexFallback: registry,
		Embedder:      embeddingClient,
		Canonicalizer: canonicalizer,
		Logger:        logger,
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		aliasStore: aliasStore,
		index:      index,
		queue:      queue,
		dispatcher: disp,
	}, nil
}

// rebuildIndex loads every durable embedding across all projects into the
// in-memory Vector Index.
func (a *app) rebuildIndex(ctx context.Context) error {
	return vectorindex.Rebuild(ctx, a.index, a.registry)
}

// forProject returns a Dispatcher scoped to projectID's Fact Store,
// since dispatcher.Dispatcher.Facts is per-project while
// every other component (Canonicalizer, Router, Index, queue) is a
// process-wide singleton.
func (a *app) forProject(projectID string) (*dispatcher.Dispatcher, error) {
	store, err := a.registry.Get(projectID)
	if err != nil {
		return nil, err
	}
	d := *a.dispatcher
	d.Facts = store
	return &d, nil
}

// handleMessage runs one user message through the full data flow:
// synchronous chat-message upsert (minting message_uuid), content-plane
// routing and dispatch, with chunking/embedding already queued on the
// side so persistence never blocks the response.
func (a *app) handleMessage(ctx context.Context, projectID, chatID, messageID, role, content string, timestamp int64, messageIndex int) (string, *dispatcher.DispatchResult, error) {
	disp, err := a.forProject(projectID)
	if err != nil {
		return "", nil, err
	}

	messageUUID, err := a.queue.Submit(ctx, pipeline.Job{
		ProjectID:    projectID,
		ChatID:       chatID,
		MessageID:    messageID,
		Role:         role,
		Content:      content,
		Timestamp:    timestamp,
		MessageIndex: messageIndex,
	})
	if err != nil {
		return "", nil, err
	}

	result, err := disp.Dispatch(ctx, projectID, messageUUID, content, nil)
	if err != nil {
		return messageUUID, nil, err
	}
	return messageUUID, result, nil
}

func (a *app) close() error {
	a.queue.Close()
	if err := a.aliasStore.Close(); err != nil {
		return err
	}
	return a.registry.Close()
}

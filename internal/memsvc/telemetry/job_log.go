package telemetry

import (
	"github.com/kittclouds/memsvc/internal/memsvc/pipeline"
)

// LogJobRecord emits one structured event per finished indexing job,
// with its state, timings, and chunk count as fields.
func LogJobRecord(l Logger, rec pipeline.Record) {
	fields := map[string]any{
		"message_uuid": rec.MessageUUID,
		"project_id":   rec.ProjectID,
		"state":        string(rec.State),
		"chunk_count":  rec.ChunkCount,
		"queued_at":    rec.QueuedAt,
		"started_at":   rec.StartedAt,
		"finished_at":  rec.FinishedAt,
		"duration_ms":  rec.FinishedAt.Sub(rec.StartedAt).Milliseconds(),
	}
	if rec.ErrorMessage != "" {
		fields["error"] = rec.ErrorMessage
	}

	switch rec.State {
	case pipeline.JobSuccess:
		l.Info("indexing job completed", fields)
	default:
		l.Warn("indexing job did not complete successfully", fields)
	}
}

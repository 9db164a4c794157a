package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"veo-director/log"
)

// Executor runs the work behind each task type.
type Executor interface {
	RunAnalysis(ctx context.Context, sessionID string) error
	RunScript(ctx context.Context, sessionID string) error
	RunScene(ctx context.Context, sessionID, sceneID string) error
	RunBatch(ctx context.Context, sessionID string) error
}

// TaskHandlers provides handlers for different task types
type TaskHandlers struct {
	exec Executor
}

func NewTaskHandlers(exec Executor) *TaskHandlers {
	return &TaskHandlers{exec: exec}
}

func decode(t *asynq.Task) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.SessionID == "" {
		return payload, fmt.Errorf("task %s has no session id", t.Type())
	}
	return payload, nil
}

func (h *TaskHandlers) handle(ctx context.Context, t *asynq.Task) error {
	payload, err := decode(t)
	if err != nil {
		// A malformed payload never succeeds; skip retry and archive it.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	logger := log.GetLogger().With(
		zap.String("type", t.Type()),
		zap.String("session_id", payload.SessionID),
		zap.String("scene_id", payload.SceneID))
	logger.Info("[Queue] Processing task")

	switch t.Type() {
	case TypeAnalysis:
		err = h.exec.RunAnalysis(ctx, payload.SessionID)
	case TypeScript:
		err = h.exec.RunScript(ctx, payload.SessionID)
	case TypeSceneGenerate:
		err = h.exec.RunScene(ctx, payload.SessionID, payload.SceneID)
	case TypeBatchGenerate:
		err = h.exec.RunBatch(ctx, payload.SessionID)
	default:
		return fmt.Errorf("%w: unknown task type %q", asynq.SkipRetry, t.Type())
	}
	if err != nil {
		// The failure is already committed to the session. Returning it would
		// archive the task and hold its id, blocking the next batch.
		logger.Warn("[Queue] Task failed", zap.Error(err))
		return nil
	}

	logger.Info("[Queue] Task completed")
	return nil
}

// RegisterHandlers registers all task handlers with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	for _, taskType := range []string{TypeAnalysis, TypeScript, TypeSceneGenerate, TypeBatchGenerate} {
		mux.HandleFunc(taskType, h.handle)
	}
}

// Start runs the worker in the background until Close.
func (q *Queue) Start(exec Executor) error {
	mux := asynq.NewServeMux()
	NewTaskHandlers(exec).RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency),
		zap.Int("batch_concurrency", q.config.BatchConcurrency))

	if err := q.server.Start(mux); err != nil {
		return err
	}
	if err := q.batchServer.Start(mux); err != nil {
		q.server.Shutdown()
		return err
	}
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veo-director/config"
)

type fakeExecutor struct {
	calls []string
	err   error
}

func (f *fakeExecutor) RunAnalysis(_ context.Context, id string) error {
	f.calls = append(f.calls, "analysis:"+id)
	return f.err
}

func (f *fakeExecutor) RunScript(_ context.Context, id string) error {
	f.calls = append(f.calls, "script:"+id)
	return f.err
}

func (f *fakeExecutor) RunScene(_ context.Context, id, scene string) error {
	f.calls = append(f.calls, "scene:"+id+"/"+scene)
	return f.err
}

func (f *fakeExecutor) RunBatch(_ context.Context, id string) error {
	f.calls = append(f.calls, "batch:"+id)
	return f.err
}

func TestNewTaskPayload(t *testing.T) {
	task, err := newTask(TypeSceneGenerate, Payload{SessionID: "s1", SceneID: "sc1"})
	require.NoError(t, err)
	assert.Equal(t, TypeSceneGenerate, task.Type())

	var got Payload
	require.NoError(t, json.Unmarshal(task.Payload(), &got))
	assert.Equal(t, Payload{SessionID: "s1", SceneID: "sc1"}, got)

	_, err = newTask("bogus", Payload{SessionID: "s1"})
	assert.Error(t, err)
}

func TestHandlersRouteByType(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandlers(exec)
	ctx := context.Background()

	for _, tc := range []struct {
		taskType string
		payload  Payload
	}{
		{TypeAnalysis, Payload{SessionID: "s1"}},
		{TypeScript, Payload{SessionID: "s1"}},
		{TypeSceneGenerate, Payload{SessionID: "s1", SceneID: "a"}},
		{TypeBatchGenerate, Payload{SessionID: "s1"}},
	} {
		task, err := newTask(tc.taskType, tc.payload)
		require.NoError(t, err)
		require.NoError(t, h.handle(ctx, task))
	}
	assert.Equal(t, []string{"analysis:s1", "script:s1", "scene:s1/a", "batch:s1"}, exec.calls)
}

func TestHandlerErrors(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("gateway down")}
	h := NewTaskHandlers(exec)
	ctx := context.Background()

	task, err := newTask(TypeAnalysis, Payload{SessionID: "s1"})
	require.NoError(t, err)
	assert.NoError(t, h.handle(ctx, task))

	err = h.handle(ctx, asynq.NewTask(TypeAnalysis, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.handle(ctx, asynq.NewTask(TypeBatchGenerate, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.handle(ctx, asynq.NewTask("other", []byte(`{"session_id":"s1"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Len(t, exec.calls, 1)
}

func TestBatchesHaveTheirOwnServer(t *testing.T) {
	task, err := newTask(TypeBatchGenerate, Payload{SessionID: "s1"})
	require.NoError(t, err)
	_, err = newTask(TypeSceneGenerate, Payload{SessionID: "s1", SceneID: "a"})
	require.NoError(t, err)
	assert.Equal(t, TypeBatchGenerate, task.Type())

	interactive, batch := serverConfigs(normalizeConfig(config.QueueConfig{Concurrency: 2}))
	assert.Equal(t, 2, interactive.Concurrency)
	assert.Equal(t, 1, batch.Concurrency)
	assert.Equal(t, map[string]int{queueBatch: 1}, batch.Queues)
	for name := range batch.Queues {
		assert.NotContains(t, interactive.Queues, name)
	}
	assert.Contains(t, interactive.Queues, queueInteractive)
	assert.Contains(t, interactive.Queues, queueSynthesis)
}

package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunner_SubmitBeforeStart(t *testing.T) {
	runner := NewTaskRunner(DefaultTaskRunnerConfig(), setupTestLogger())
	err := runner.Submit(context.Background(), newFuncTask(nil))
	assert.ErrorIs(t, err, ErrRunnerNotStarted)
}

func TestTaskRunner_Lifecycle(t *testing.T) {
	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 10}, setupTestLogger())
	require.NoError(t, runner.Start())
	assert.Error(t, runner.Start(), "second start is rejected")

	var executed atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
			executed.Add(1)
			return nil
		})))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runner.Stop(ctx))
	assert.Equal(t, int32(5), executed.Load())

	err := runner.Submit(context.Background(), newFuncTask(nil))
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.NoError(t, runner.Stop(ctx), "second stop is a no-op")
}

func TestTaskRunner_StopTimesOut(t *testing.T) {
	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 2, TaskTimeout: time.Second}, setupTestLogger())
	require.NoError(t, runner.Start())

	release := make(chan struct{})
	require.NoError(t, runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
		<-release
		return nil
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, runner.Stop(ctx), context.DeadlineExceeded)
	close(release)
}

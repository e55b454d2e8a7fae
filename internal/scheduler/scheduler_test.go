package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := New(nil, testLogger())
	err := s.Add("broken", "not a spec", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(time.UTC, testLogger())
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_RunNowRecovers(t *testing.T) {
	s := New(nil, testLogger())

	var ran bool
	s.RunNow("ok", func(ctx context.Context) error {
		ran = true
		assert.NoError(t, ctx.Err())
		return nil
	})
	assert.True(t, ran)

	assert.NotPanics(t, func() {
		s.RunNow("fails", func(context.Context) error { return errors.New("boom") })
		s.RunNow("panics", func(context.Context) error { panic("boom") })
	})
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(nil, testLogger())
	require.NoError(t, s.Stop(context.Background()))

	var jobErr error
	s.RunNow("after-stop", func(ctx context.Context) error {
		jobErr = ctx.Err()
		return nil
	})
	assert.ErrorIs(t, jobErr, context.Canceled)
}

package taskq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_RunsJob(t *testing.T) {
	q := New(1, 4)
	defer q.Shutdown()

	var ran atomic.Bool
	h, err := q.Submit(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
	assert.True(t, ran.Load())
	assert.NoError(t, h.Err())
}

func TestSubmit_JobErrorReported(t *testing.T) {
	q := New(1, 4)
	defer q.Shutdown()

	want := eris.New("boom")
	h, err := q.Submit(func(ctx context.Context) error { return want })
	require.NoError(t, err)

	<-h.Done()
	assert.Equal(t, want, h.Err())
}

func TestHandle_ErrNilWhileRunning(t *testing.T) {
	q := New(1, 4)
	defer q.Shutdown()

	release := make(chan struct{})
	h, err := q.Submit(func(ctx context.Context) error {
		<-release
		return eris.New("late")
	})
	require.NoError(t, err)

	assert.NoError(t, h.Err())
	close(release)
	<-h.Done()
	assert.Error(t, h.Err())
}

func TestSubmit_QueueFull(t *testing.T) {
	q := New(1, 1)
	defer q.Shutdown()

	release := make(chan struct{})
	defer close(release)
	block := func(ctx context.Context) error {
		<-release
		return nil
	}

	// One job occupies the worker, one fills the buffer; keep submitting
	// until the buffer rejects.
	var fullErr error
	for i := 0; i < 3; i++ {
		if _, err := q.Submit(block); err != nil {
			fullErr = err
			break
		}
	}
	require.Error(t, fullErr)
	assert.Contains(t, fullErr.Error(), "full")
}

func TestSubmit_AfterShutdown(t *testing.T) {
	q := New(1, 4)
	q.Shutdown()

	_, err := q.Submit(func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shut down")
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	q := New(2, 4)

	var finished atomic.Int32
	for i := 0; i < 4; i++ {
		_, err := q.Submit(func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			finished.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	q.Shutdown()
	assert.Equal(t, int32(4), finished.Load())
}

func TestShutdown_Idempotent(t *testing.T) {
	q := New(1, 4)
	q.Shutdown()
	q.Shutdown()
}

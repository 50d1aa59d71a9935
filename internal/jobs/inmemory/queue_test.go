package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/warmindo-recommender/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.RefreshSimilarityJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach status %s (last: %+v)", jobID, want, job)
	return nil
}

func TestQueue_PublishAndProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, 2, store)
	defer queue.Close()

	var handled atomic.Int32
	require.NoError(t, queue.Start(ctx, func(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
		handled.Add(1)
		return nil
	}))

	job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonFavoriteAppended, RecordID: 11}
	require.NoError(t, queue.PublishRefresh(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, int64(11), done.RecordID)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_RetriesThenCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, 1, store, WithRetryBackoff(time.Millisecond))
	defer queue.Close()

	var attempts atomic.Int32
	require.NoError(t, queue.Start(ctx, func(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
		if attempts.Add(1) < 3 {
			return errors.New("dataset busy")
		}
		return nil
	}))

	job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonManual}
	require.NoError(t, queue.PublishRefresh(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 2, done.RetryCount)
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, 1, store, WithRetryBackoff(time.Millisecond))
	defer queue.Close()

	require.NoError(t, queue.Start(ctx, func(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
		return errors.New("always fails")
	}))

	job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonManual, MaxRetries: 1}
	require.NoError(t, queue.PublishRefresh(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "always fails", failed.Error)
}

func TestQueue_PublishAfterClose(t *testing.T) {
	queue := NewQueue(1, 1, nil)
	require.NoError(t, queue.Close())
	// Closing twice is a no-op.
	require.NoError(t, queue.Close())

	err := queue.PublishRefresh(context.Background(), &jobs.RefreshSimilarityJob{})
	assert.Error(t, err)
	assert.Error(t, queue.Start(context.Background(), func(context.Context, *jobs.RefreshSimilarityJob) error { return nil }))
}

func TestQueue_PublishHonoursContext(t *testing.T) {
	queue := NewQueue(0, 1, nil)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered and not started: only the cancelled context can unblock the send.
	err := queue.PublishRefresh(ctx, &jobs.RefreshSimilarityJob{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_UndeliveredJobIsMarkedFailed(t *testing.T) {
	store := NewStore()
	queue := NewQueue(0, 1, store)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonManual}
	err := queue.PublishRefresh(ctx, job)
	require.ErrorIs(t, err, context.Canceled)

	saved, err := store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, saved.Status)
	assert.Equal(t, context.Canceled.Error(), saved.Error)
	assert.Equal(t, jobs.JobTypeRefreshSimilarity, saved.Type)
}

func TestQueue_RetryAfterStopIsMarkedFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, 1, store, WithRetryBackoff(200*time.Millisecond))

	require.NoError(t, queue.Start(ctx, func(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
		return errors.New("store unavailable")
	}))

	job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonManual}
	require.NoError(t, queue.PublishRefresh(ctx, job))
	waitForStatus(t, store, job.JobID, jobs.JobStatusRetrying)

	// The retry timer fires after the queue has stopped.
	require.NoError(t, queue.Stop(context.Background()))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "queue is closed", failed.Error)
}

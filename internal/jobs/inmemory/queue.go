package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/warmindo-recommender/internal/jobs"
	"github.com/google/uuid"
)

// Default queue settings.
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Jobs do not survive a restart; the similarity table is rebuilt at startup anyway.
type Queue struct {
	jobChan      chan *jobs.RefreshSimilarityJob
	closeChan    chan struct{}
	wg           sync.WaitGroup
	mu           sync.RWMutex
	store        jobs.JobStore
	workers      int
	retryBackoff time.Duration
	closed       bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithRetryBackoff sets the base delay between retries. The n-th retry waits n*d.
func WithRetryBackoff(d time.Duration) Option {
	return func(q *Queue) { q.retryBackoff = d }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishRefresh blocks.
// workers is the number of concurrent consumers started by Start; values below 1 mean 1.
func NewQueue(bufferSize, workers int, store jobs.JobStore, opts ...Option) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		jobChan:      make(chan *jobs.RefreshSimilarityJob, bufferSize),
		closeChan:    make(chan struct{}),
		store:        store,
		workers:      workers,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishRefresh implements the Publisher interface.
// Missing id, status, creation time and retry limit are filled in on job.
func (q *Queue) PublishRefresh(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		err := fmt.Errorf("queue is closed")
		if job.JobID != "" {
			// A retry republished after Stop.
			q.markUndelivered(job.JobID, err)
		}
		return err
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	job.Type = jobs.JobTypeRefreshSimilarity
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	// The worker owns its own copy so the caller may keep reading job.
	queued := *job

	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		q.markUndelivered(job.JobID, ctx.Err())
		return ctx.Err()
	case <-q.closeChan:
		err := fmt.Errorf("queue is closed")
		q.markUndelivered(job.JobID, err)
		return err
	}
}

// markUndelivered fails a saved job that never reached a worker, so the
// store does not report it as pending forever.
func (q *Queue) markUndelivered(jobID string, cause error) {
	if q.store == nil {
		return
	}
	_ = q.store.UpdateJobStatus(context.Background(), jobID, jobs.JobStatusFailed, cause.Error())
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.RefreshSimilarityJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying

			backoff := time.Duration(job.RetryCount) * q.retryBackoff
			retry := *job
			time.AfterFunc(backoff, func() {
				retry.Status = jobs.JobStatusPending
				retry.StartedAt = nil
				retry.CompletedAt = nil
				// A failed republish is recorded by markUndelivered.
				_ = q.PublishRefresh(ctx, &retry)
			})
		} else {
			job.Status = jobs.JobStatusFailed
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)

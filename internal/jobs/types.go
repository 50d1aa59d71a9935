package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRefreshSimilarity rebuilds the similarity table from the current dataset.
	JobTypeRefreshSimilarity JobType = "refresh_similarity"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Refresh reasons.
const (
	ReasonFavoriteAppended = "favorite_appended"
	ReasonManual           = "manual"
)

// RefreshSimilarityJob asks a worker to rebuild the similarity table after
// the dataset changed.
type RefreshSimilarityJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Type is always JobTypeRefreshSimilarity; the queue fills it in.
	Type JobType `json:"type"`

	// Reason says what triggered the refresh.
	Reason string `json:"reason"`

	// RecordID is the id of the record whose write triggered the refresh, if any.
	RecordID int64 `json:"record_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues refresh jobs.
type Publisher interface {
	// PublishRefresh publishes a similarity refresh job.
	PublishRefresh(ctx context.Context, job *RefreshSimilarityJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *RefreshSimilarityJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *RefreshSimilarityJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*RefreshSimilarityJob, error)

	// ListJobs retrieves jobs, newest first, with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*RefreshSimilarityJob, error)

	// UpdateJobStatus sets the status (and error, when non-empty) of a saved job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Reason filters jobs by trigger.
	Reason string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

package domain

import "time"

// ImportJobStatus describes lifecycle states for catalog import jobs.
type ImportJobStatus string

const (
	// ImportJobStatusQueued means the job is waiting for a worker slot.
	ImportJobStatusQueued ImportJobStatus = "queued"
	// ImportJobStatusRunning means a worker is executing the pipeline.
	ImportJobStatusRunning ImportJobStatus = "running"
	// ImportJobStatusRetrying means the last fetch failed on transport and the
	// job has been redelivered with a backoff delay.
	ImportJobStatusRetrying ImportJobStatus = "retrying"
	// ImportJobStatusSucceeded means the catalog was reconciled and committed.
	ImportJobStatusSucceeded ImportJobStatus = "succeeded"
	// ImportJobStatusFailed means the job reached a terminal failure.
	ImportJobStatusFailed ImportJobStatus = "failed"
)

// ImportErrorKind classifies terminal import failures for callers.
type ImportErrorKind string

const (
	// ImportErrorNone marks a successful result.
	ImportErrorNone ImportErrorKind = ""
	// ImportErrorConfig marks invalid job input (empty url, missing principal).
	ImportErrorConfig ImportErrorKind = "config"
	// ImportErrorAuthorization marks a principal without shop capability.
	ImportErrorAuthorization ImportErrorKind = "authorization"
	// ImportErrorValidation marks an unreachable source URL.
	ImportErrorValidation ImportErrorKind = "validation"
	// ImportErrorFetch marks a transport failure that exhausted its retries.
	ImportErrorFetch ImportErrorKind = "fetch"
	// ImportErrorParse marks a document that is not well-formed YAML.
	ImportErrorParse ImportErrorKind = "parse"
	// ImportErrorSchema marks a document missing a required top-level section.
	ImportErrorSchema ImportErrorKind = "schema"
	// ImportErrorItemSchema marks a good missing a required field.
	ImportErrorItemSchema ImportErrorKind = "item_schema"
	// ImportErrorOwnership marks an import into a shop owned by another principal.
	ImportErrorOwnership ImportErrorKind = "ownership"
	// ImportErrorInternal marks persistence or other unexpected failures.
	ImportErrorInternal ImportErrorKind = "internal"
)

// ImportJob is the ephemeral per-attempt state handed to the controller.
// It is created per invocation and discarded when the attempt finishes.
type ImportJob struct {
	ID          string
	URL         string
	RequestedBy int64
	Attempt     int
}

// ImportJobRecord is the persisted view of a job that the trigger API hands
// back to callers and the admin UI polls for progress.
type ImportJobRecord struct {
	ID           string
	URL          string
	RequestedBy  int64
	Status       ImportJobStatus
	Attempt      int
	CreatedCount int
	SkippedCount int
	ErrorKind    ImportErrorKind
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

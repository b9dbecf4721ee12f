package services

import (
	"context"
	"time"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/auth"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	CatalogDocument = domain.CatalogDocument
	CatalogCategory = domain.CatalogCategory
	CatalogGood     = domain.CatalogGood
	ImportJob       = domain.ImportJob
	ImportJobRecord = domain.ImportJobRecord
)

// URLValidator is the fast-fail existence probe run before the heavier fetch.
type URLValidator interface {
	Validate(ctx context.Context, rawURL string) error
}

// CatalogFetcher downloads the raw catalog document. It never retries
// internally; retries belong to the import controller.
type CatalogFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// CatalogParser decodes the raw document and enforces the top-level schema.
// Per-item fields are left to the reconciler.
type CatalogParser interface {
	Parse(data []byte) (CatalogDocument, error)
}

// ReconcileResult summarises one reconciliation pass.
type ReconcileResult struct {
	Created int
	Skipped int
}

// CatalogReconciler merges a parsed document into storage, replacing the
// shop's prior offer set.
type CatalogReconciler interface {
	Reconcile(ctx context.Context, doc CatalogDocument, principal domain.User) (ReconcileResult, error)
}

// ImportQueue accepts import attempts for asynchronous execution. Deferred
// redelivery keeps retry waits out of worker slots.
type ImportQueue interface {
	Enqueue(ctx context.Context, job domain.ImportJob) error
	EnqueueAfter(ctx context.Context, job domain.ImportJob, delay time.Duration) error
}

// Notifier delivers the terminal outcome of a job to its requesting principal.
// Failures are logged by callers, never propagated into the job result.
type Notifier interface {
	ImportFinished(ctx context.Context, recipient domain.User, rec ImportJobRecord) error
}

// TriggerImportCommand carries the inputs of a trigger request.
type TriggerImportCommand struct {
	URL       string
	Principal auth.Identity
}

// ImportJobQuery identifies a job status read and the principal reading it.
type ImportJobQuery struct {
	JobID  string
	Viewer auth.Identity
}

// ImportResult is the structured outcome of one controller attempt.
type ImportResult struct {
	Created      int
	Skipped      int
	ErrorKind    domain.ImportErrorKind
	ErrorMessage string
	Retryable    bool
}

// Succeeded reports whether the attempt reconciled and committed the catalog.
func (r ImportResult) Succeeded() bool {
	return r.ErrorKind == domain.ImportErrorNone
}

// ImportService owns the import job lifecycle: accepting trigger requests,
// executing queued attempts, and serving status reads.
type ImportService interface {
	Trigger(ctx context.Context, cmd TriggerImportCommand) (ImportJobRecord, error)
	Job(ctx context.Context, query ImportJobQuery) (ImportJobRecord, error)
	Execute(ctx context.Context, job ImportJob) error
}

package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/metrics"
	"github.com/supplyline/api/internal/platform/requestctx"
	"github.com/supplyline/api/internal/repositories"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// ImportServiceDeps bundles collaborators required to construct the import service.
type ImportServiceDeps struct {
	Registry   repositories.Registry
	Validator  URLValidator
	Fetcher    CatalogFetcher
	Parser     CatalogParser
	Reconciler CatalogReconciler
	Queue      ImportQueue
	Notifier   Notifier
	Metrics    *metrics.Metrics
	Clock      func() time.Time

	// MaxAttempts caps fetch retries; attempt indexes run 0..MaxAttempts-1.
	MaxAttempts int
	// BaseDelay is the first retry delay; it doubles per subsequent attempt.
	BaseDelay time.Duration

	// NewJobID overrides job id generation, primarily for tests.
	NewJobID func() string
}

type importService struct {
	registry    repositories.Registry
	validator   URLValidator
	fetcher     CatalogFetcher
	parser      CatalogParser
	reconciler  CatalogReconciler
	queue       ImportQueue
	notifier    Notifier
	metrics     *metrics.Metrics
	clock       func() time.Time
	maxAttempts int
	baseDelay   time.Duration
	newJobID    func() string
}

var _ ImportService = (*importService)(nil)

// NewImportService assembles the import job controller and its trigger surface.
func NewImportService(deps ImportServiceDeps) (ImportService, error) {
	if deps.Registry == nil {
		return nil, errors.New("import service: registry is required")
	}
	if deps.Validator == nil {
		return nil, errors.New("import service: url validator is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("import service: catalog fetcher is required")
	}
	if deps.Parser == nil {
		return nil, errors.New("import service: catalog parser is required")
	}
	if deps.Reconciler == nil {
		return nil, errors.New("import service: catalog reconciler is required")
	}
	if deps.Queue == nil {
		return nil, errors.New("import service: queue is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := deps.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	newJobID := deps.NewJobID
	if newJobID == nil {
		newJobID = func() string {
			return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		}
	}

	return &importService{
		registry:    deps.Registry,
		validator:   deps.Validator,
		fetcher:     deps.Fetcher,
		parser:      deps.Parser,
		reconciler:  deps.Reconciler,
		queue:       deps.Queue,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		clock:       func() time.Time { return clock().UTC() },
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		newJobID:    newJobID,
	}, nil
}

// Trigger accepts an import request, persists its job record, and enqueues
// the first attempt.
func (s *importService) Trigger(ctx context.Context, cmd TriggerImportCommand) (ImportJobRecord, error) {
	url := strings.TrimSpace(cmd.URL)
	if url == "" {
		return ImportJobRecord{}, ErrImportURLRequired
	}
	if cmd.Principal.UserID <= 0 {
		return ImportJobRecord{}, ErrPrincipalRequired
	}
	if !cmd.Principal.IsShop() {
		return ImportJobRecord{}, ErrPrincipalNotShop
	}

	rec, err := s.registry.ImportJobs().Insert(ctx, domain.ImportJobRecord{
		ID:          s.newJobID(),
		URL:         url,
		RequestedBy: cmd.Principal.UserID,
		Status:      domain.ImportJobStatusQueued,
	})
	if err != nil {
		return ImportJobRecord{}, fmt.Errorf("persist import job: %w", err)
	}

	job := domain.ImportJob{ID: rec.ID, URL: rec.URL, RequestedBy: rec.RequestedBy}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.finalize(ctx, job, ImportResult{
			ErrorKind:    domain.ImportErrorInternal,
			ErrorMessage: "dispatch failed",
		})
		return ImportJobRecord{}, fmt.Errorf("dispatch import job: %w", err)
	}
	return rec, nil
}

// Job serves a status read. Only the requesting principal or an admin may see it.
func (s *importService) Job(ctx context.Context, query ImportJobQuery) (ImportJobRecord, error) {
	if strings.TrimSpace(query.JobID) == "" {
		return ImportJobRecord{}, errors.New("import service: job id is required")
	}
	rec, err := s.registry.ImportJobs().FindByID(ctx, query.JobID)
	if err != nil {
		return ImportJobRecord{}, err
	}
	if rec.RequestedBy != query.Viewer.UserID && !query.Viewer.IsAdmin() {
		return ImportJobRecord{}, ErrJobAccessDenied
	}
	return rec, nil
}

// Execute runs one queued attempt of the state machine. Stage errors are
// folded into a result value; nothing escapes past this boundary except
// persistence failures on the job record itself.
func (s *importService) Execute(ctx context.Context, job ImportJob) error {
	logger := requestctx.Logger(ctx).With(
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt))
	ctx = requestctx.WithLogger(ctx, logger)

	attempt := job.Attempt
	if _, err := s.registry.ImportJobs().UpdateStatus(ctx, job.ID, domain.ImportJobStatusRunning,
		repositories.ImportJobStatusUpdate{Attempt: &attempt}); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	started := s.clock()
	result := s.run(ctx, job)
	elapsed := s.clock().Sub(started)

	if result.Retryable && job.Attempt+1 < s.maxAttempts {
		return s.scheduleRetry(ctx, job, result)
	}

	if s.metrics != nil {
		outcome := "succeeded"
		if !result.Succeeded() {
			outcome = string(result.ErrorKind)
		}
		s.metrics.ObserveImport(outcome, result.Created, result.Skipped, elapsed)
	}
	return s.finalize(ctx, job, result)
}

// run executes the pipeline stages for one attempt and classifies the outcome.
func (s *importService) run(ctx context.Context, job ImportJob) (result ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			requestctx.Logger(ctx).Error("import attempt panicked", zap.Any("panic", r))
			result = ImportResult{
				ErrorKind:    domain.ImportErrorInternal,
				ErrorMessage: fmt.Sprintf("internal fault: %v", r),
			}
		}
	}()

	if strings.TrimSpace(job.URL) == "" {
		return ImportResult{ErrorKind: domain.ImportErrorConfig, ErrorMessage: ErrImportURLRequired.Error()}
	}
	if job.RequestedBy <= 0 {
		return ImportResult{ErrorKind: domain.ImportErrorConfig, ErrorMessage: ErrPrincipalRequired.Error()}
	}

	principal, err := s.registry.Users().FindByID(ctx, job.RequestedBy)
	if err != nil {
		if isNotFound(err) {
			return ImportResult{ErrorKind: domain.ImportErrorAuthorization, ErrorMessage: "principal not found"}
		}
		return ImportResult{ErrorKind: domain.ImportErrorInternal, ErrorMessage: err.Error()}
	}
	if !principal.Active || principal.Type != domain.UserTypeShop {
		return ImportResult{ErrorKind: domain.ImportErrorAuthorization, ErrorMessage: ErrPrincipalNotShop.Error()}
	}

	if err := s.validator.Validate(ctx, job.URL); err != nil {
		return ImportResult{ErrorKind: domain.ImportErrorValidation, ErrorMessage: err.Error()}
	}

	data, err := s.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return ImportResult{ErrorKind: domain.ImportErrorFetch, ErrorMessage: err.Error(), Retryable: true}
		}
		return ImportResult{ErrorKind: domain.ImportErrorInternal, ErrorMessage: err.Error()}
	}

	doc, err := s.parser.Parse(data)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return ImportResult{ErrorKind: domain.ImportErrorSchema, ErrorMessage: err.Error()}
		}
		return ImportResult{ErrorKind: domain.ImportErrorParse, ErrorMessage: err.Error()}
	}

	summary, err := s.reconciler.Reconcile(ctx, doc, principal)
	if err != nil {
		var itemErr *ItemSchemaError
		switch {
		case errors.As(err, &itemErr):
			return ImportResult{ErrorKind: domain.ImportErrorItemSchema, ErrorMessage: err.Error()}
		case errors.Is(err, ErrShopOwnedByAnother):
			return ImportResult{ErrorKind: domain.ImportErrorOwnership, ErrorMessage: err.Error()}
		default:
			return ImportResult{ErrorKind: domain.ImportErrorInternal, ErrorMessage: err.Error()}
		}
	}

	return ImportResult{Created: summary.Created, Skipped: summary.Skipped}
}

// scheduleRetry marks the job retrying and re-enqueues it after the backoff delay.
func (s *importService) scheduleRetry(ctx context.Context, job ImportJob, result ImportResult) error {
	delay := s.retryDelay(job.Attempt)
	requestctx.Logger(ctx).Warn("retrying import after transport failure",
		zap.String("error", result.ErrorMessage),
		zap.Duration("delay", delay))
	if s.metrics != nil {
		s.metrics.IncRetry()
	}

	kind := result.ErrorKind
	message := result.ErrorMessage
	if _, err := s.registry.ImportJobs().UpdateStatus(ctx, job.ID, domain.ImportJobStatusRetrying,
		repositories.ImportJobStatusUpdate{ErrorKind: &kind, ErrorMessage: &message}); err != nil {
		return fmt.Errorf("mark job retrying: %w", err)
	}

	next := domain.ImportJob{ID: job.ID, URL: job.URL, RequestedBy: job.RequestedBy, Attempt: job.Attempt + 1}
	if err := s.queue.EnqueueAfter(ctx, next, delay); err != nil {
		return s.finalize(ctx, job, ImportResult{
			ErrorKind:    domain.ImportErrorInternal,
			ErrorMessage: fmt.Sprintf("redispatch failed: %v", err),
		})
	}
	return nil
}

// retryDelay doubles per attempt: baseDelay, 2x, 4x, ...
func (s *importService) retryDelay(attempt int) time.Duration {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.baseDelay
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = time.Hour
	policy.MaxElapsedTime = 0
	policy.Reset()

	delay := policy.NextBackOff()
	for i := 0; i < attempt; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}

// finalize persists the terminal outcome and fires the notification.
func (s *importService) finalize(ctx context.Context, job ImportJob, result ImportResult) error {
	status := domain.ImportJobStatusSucceeded
	if !result.Succeeded() {
		status = domain.ImportJobStatusFailed
	}

	kind := result.ErrorKind
	message := result.ErrorMessage
	completed := s.clock()
	rec, err := s.registry.ImportJobs().UpdateStatus(ctx, job.ID, status,
		repositories.ImportJobStatusUpdate{
			CreatedCount: &result.Created,
			SkippedCount: &result.Skipped,
			ErrorKind:    &kind,
			ErrorMessage: &message,
			CompletedAt:  &completed,
		})
	if err != nil {
		return fmt.Errorf("persist job outcome: %w", err)
	}

	logger := requestctx.Logger(ctx)
	if result.Succeeded() {
		logger.Info("import succeeded",
			zap.Int("created", result.Created),
			zap.Int("skipped", result.Skipped))
	} else {
		logger.Warn("import failed",
			zap.String("kind", string(result.ErrorKind)),
			zap.String("error", result.ErrorMessage))
	}

	s.notify(ctx, rec)
	return nil
}

// notify delivers the outcome to the requesting principal. Fire and forget:
// delivery failures are logged, never folded into the job result.
func (s *importService) notify(ctx context.Context, rec ImportJobRecord) {
	if s.notifier == nil {
		return
	}
	recipient, err := s.registry.Users().FindByID(ctx, rec.RequestedBy)
	if err != nil {
		requestctx.Logger(ctx).Warn("skipping import notification", zap.Error(err))
		return
	}
	if err := s.notifier.ImportFinished(ctx, recipient, rec); err != nil {
		requestctx.Logger(ctx).Warn("import notification failed", zap.Error(err))
	}
}

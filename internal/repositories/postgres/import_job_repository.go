package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// ImportJobRepository tracks the lifecycle of queued catalog imports.
type ImportJobRepository struct {
	registry *Registry
}

var _ repositories.ImportJobRepository = (*ImportJobRepository)(nil)

const importJobColumns = `id, url, requested_by, status, attempt, created_count,
	skipped_count, error_kind, error_message, created_at, updated_at, completed_at`

// Insert stores a freshly accepted job and returns it with server-side timestamps.
func (r *ImportJobRepository) Insert(ctx context.Context, rec domain.ImportJobRecord) (domain.ImportJobRecord, error) {
	if r == nil || r.registry == nil {
		return domain.ImportJobRecord{}, errors.New("import job repository not initialised")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return domain.ImportJobRecord{}, errors.New("import job id is required")
	}
	if rec.RequestedBy <= 0 {
		return domain.ImportJobRecord{}, errors.New("import job requester is required")
	}
	if rec.Status == "" {
		rec.Status = domain.ImportJobStatusQueued
	}

	row := r.registry.q(ctx).QueryRowContext(ctx,
		`INSERT INTO import_jobs (id, url, requested_by, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+importJobColumns,
		rec.ID, rec.URL, rec.RequestedBy, string(rec.Status))
	return scanImportJob(row, "postgres: import jobs insert")
}

// FindByID loads the job by its identifier.
func (r *ImportJobRepository) FindByID(ctx context.Context, jobID string) (domain.ImportJobRecord, error) {
	if r == nil || r.registry == nil {
		return domain.ImportJobRecord{}, errors.New("import job repository not initialised")
	}
	if strings.TrimSpace(jobID) == "" {
		return domain.ImportJobRecord{}, errors.New("import job id is required")
	}

	row := r.registry.q(ctx).QueryRowContext(ctx,
		`SELECT `+importJobColumns+` FROM import_jobs WHERE id = $1`, jobID)
	return scanImportJob(row, "postgres: import jobs find by id")
}

// UpdateStatus transitions the job to the given status and applies the
// optional fields carried in update. updated_at is always refreshed.
func (r *ImportJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.ImportJobStatus, update repositories.ImportJobStatusUpdate) (domain.ImportJobRecord, error) {
	if r == nil || r.registry == nil {
		return domain.ImportJobRecord{}, errors.New("import job repository not initialised")
	}
	if strings.TrimSpace(jobID) == "" {
		return domain.ImportJobRecord{}, errors.New("import job id is required")
	}
	if status == "" {
		return domain.ImportJobRecord{}, errors.New("import job status is required")
	}

	sets := []string{"status = $2", "updated_at = now()"}
	args := []any{jobID, string(status)}
	next := 3
	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}
	if update.Attempt != nil {
		addSet("attempt", *update.Attempt)
	}
	if update.CreatedCount != nil {
		addSet("created_count", *update.CreatedCount)
	}
	if update.SkippedCount != nil {
		addSet("skipped_count", *update.SkippedCount)
	}
	if update.ErrorKind != nil {
		addSet("error_kind", string(*update.ErrorKind))
	}
	if update.ErrorMessage != nil {
		addSet("error_message", *update.ErrorMessage)
	}
	if update.CompletedAt != nil {
		addSet("completed_at", *update.CompletedAt)
	}

	query := fmt.Sprintf(
		`UPDATE import_jobs SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), importJobColumns)
	row := r.registry.q(ctx).QueryRowContext(ctx, query, args...)
	return scanImportJob(row, "postgres: import jobs update status")
}

func scanImportJob(row *sql.Row, op string) (domain.ImportJobRecord, error) {
	var rec domain.ImportJobRecord
	var status, errorKind string
	var completedAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.URL, &rec.RequestedBy, &status, &rec.Attempt,
		&rec.CreatedCount, &rec.SkippedCount, &errorKind, &rec.ErrorMessage,
		&rec.CreatedAt, &rec.UpdatedAt, &completedAt); err != nil {
		return domain.ImportJobRecord{}, WrapError(op, err)
	}
	rec.Status = domain.ImportJobStatus(status)
	rec.ErrorKind = domain.ImportErrorKind(errorKind)
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}

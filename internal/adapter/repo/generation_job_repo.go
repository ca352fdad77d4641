package repo

import (
	"context"
	"fmt"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository backed by PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new JobRepositoryPG.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Enqueue inserts a queued job row. The job's CreatedAt is filled from the
// database clock.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, job *domain.Job) error {
	var retryOf any
	if job.RetryOf != "" {
		retryOf = job.RetryOf
	}
	row := r.sql.QueryRow(ctx, sqlinline.QEnqueueJob,
		job.ID,
		job.AccountID,
		string(job.Kind),
		string(job.PostType),
		job.PayloadJSON,
		job.Cost,
		retryOf,
	)
	if err := row.Scan(&job.CreatedAt); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	job.Status = domain.JobQueued
	job.UpdatedAt = job.CreatedAt
	return nil
}

// GetByID fetches a job without an ownership check. Workers use it.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, id)
	return scanJob(row)
}

// GetForAccount fetches a job scoped to its owning account.
func (r *JobRepositoryPG) GetForAccount(ctx context.Context, id, accountID string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobForAccount, id, accountID)
	return scanJob(row)
}

// Claim takes the oldest queued job and flips it to RUNNING in one statement,
// skipping rows other workers hold. Returns domain.ErrNotFound when the queue
// is empty.
func (r *JobRepositoryPG) Claim(ctx context.Context) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimJob)
	return scanJob(row)
}

// Finish records the terminal state of a run.
func (r *JobRepositoryPG) Finish(ctx context.Context, id string, status domain.JobStatus, kind domain.FailureKind, errMsg string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFinishJob, id, string(status), string(kind), errMsg)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row interface{ Scan(...any) error }) (*domain.Job, error) {
	var (
		job     domain.Job
		retryOf *string
	)
	err := row.Scan(
		&job.ID,
		&job.AccountID,
		&job.Kind,
		&job.PostType,
		&job.Status,
		&job.PayloadJSON,
		&job.Cost,
		&job.FailureKind,
		&job.ErrorMessage,
		&retryOf,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if retryOf != nil {
		job.RetryOf = *retryOf
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)

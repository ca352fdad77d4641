package domain

import "context"

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Enqueue(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	GetForAccount(ctx context.Context, id, accountID string) (*Job, error)
	// Claim atomically takes the oldest queued job and marks it running.
	// Returns ErrNotFound when no job is available.
	Claim(ctx context.Context) (*Job, error)
	Finish(ctx context.Context, id string, status JobStatus, kind FailureKind, errMsg string) error
}

// ArtifactRepository handles persistence for finished artifacts.
type ArtifactRepository interface {
	Save(ctx context.Context, artifact *Artifact) error
	GetForAccount(ctx context.Context, id, accountID string) (*Artifact, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Artifact, error)
}

// StatsRepository updates and reads daily pipeline counters.
type StatsRepository interface {
	// Increment adds the delta's counters to today's row.
	Increment(ctx context.Context, delta DailyStats) error
	// Summary aggregates counters over the trailing number of days.
	Summary(ctx context.Context, days int) (*DailyStats, error)
}

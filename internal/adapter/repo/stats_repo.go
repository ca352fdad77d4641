package repo

import (
	"context"
	"fmt"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/sqlinline"
)

// StatsRepositoryPG implements domain.StatsRepository backed by PostgreSQL.
type StatsRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewStatsRepository creates a new StatsRepositoryPG.
func NewStatsRepository(sql infra.SQLExecutor) *StatsRepositoryPG {
	return &StatsRepositoryPG{sql: sql}
}

// Increment adds the delta's counters to today's row, creating it if needed.
func (r *StatsRepositoryPG) Increment(ctx context.Context, delta domain.DailyStats) error {
	_, err := r.sql.Exec(ctx, sqlinline.QIncrementDailyStats,
		delta.Requests,
		delta.Successes,
		delta.Failures,
		delta.ImagesGenerated,
		delta.VideosGenerated,
		delta.AudioGenerated,
	)
	if err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}
	return nil
}

// Summary aggregates counters over the trailing number of days.
func (r *StatsRepositoryPG) Summary(ctx context.Context, days int) (*domain.DailyStats, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QStatsSummary, days)
	var s domain.DailyStats
	err := row.Scan(
		&s.Requests,
		&s.Successes,
		&s.Failures,
		&s.ImagesGenerated,
		&s.VideosGenerated,
		&s.AudioGenerated,
	)
	if err != nil {
		return nil, fmt.Errorf("stats summary: %w", err)
	}
	return &s, nil
}

var _ domain.StatsRepository = (*StatsRepositoryPG)(nil)

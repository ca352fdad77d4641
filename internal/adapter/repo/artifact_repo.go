package repo

import (
	"context"
	"fmt"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/sqlinline"
)

// ArtifactRepositoryPG implements domain.ArtifactRepository backed by PostgreSQL.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewArtifactRepository creates a new ArtifactRepositoryPG.
func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

// Save persists a finished artifact.
func (r *ArtifactRepositoryPG) Save(ctx context.Context, artifact *domain.Artifact) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertArtifact,
		artifact.ID,
		artifact.JobID,
		artifact.AccountID,
		string(artifact.Kind),
		string(artifact.PostType),
		artifact.StorageKey,
		artifact.MIME,
		artifact.TextBody,
		artifact.AspectRatio,
		artifact.AdaptedKey,
	)
	if err := row.Scan(&artifact.CreatedAt); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// GetForAccount fetches an artifact scoped to its owning account.
func (r *ArtifactRepositoryPG) GetForAccount(ctx context.Context, id, accountID string) (*domain.Artifact, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectArtifactForAccount, id, accountID)
	var a domain.Artifact
	err := row.Scan(
		&a.ID, &a.JobID, &a.AccountID, &a.Kind, &a.PostType,
		&a.StorageKey, &a.MIME, &a.TextBody, &a.AspectRatio, &a.AdaptedKey,
		&a.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	return &a, nil
}

// ListByAccount returns the newest artifacts for the account, newest first.
func (r *ArtifactRepositoryPG) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Artifact, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListArtifactsByAccount, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		err := rows.Scan(
			&a.ID, &a.JobID, &a.AccountID, &a.Kind, &a.PostType,
			&a.StorageKey, &a.MIME, &a.TextBody, &a.AspectRatio, &a.AdaptedKey,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)

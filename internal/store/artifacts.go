package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/remediation"
)

// Artifacts is the Postgres-backed remediation artifact cache.
type Artifacts struct {
	db DBTX
}

func NewArtifacts(db DBTX) *Artifacts {
	return &Artifacts{db: db}
}

const selectArtifact = `
SELECT category, file_name, content_type, content, remote_path, product_key, repository, repo_url, created_at
FROM remediation_artifacts
WHERE source = $1 AND original_id = $2 AND action = $3`

func (s *Artifacts) GetArtifact(ctx context.Context, key remediation.Key) (remediation.Artifact, error) {
	a := remediation.Artifact{Key: key}
	var category string
	err := s.db.QueryRow(ctx, selectArtifact, string(key.ID.Source), key.ID.OriginalID, string(key.Action)).Scan(
		&category,
		&a.FileName,
		&a.ContentType,
		&a.Content,
		&a.RemotePath,
		&a.Selection.ProductKey,
		&a.Selection.Repository,
		&a.Selection.RepoURL,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return remediation.Artifact{}, remediation.ErrArtifactNotFound
		}
		return remediation.Artifact{}, fmt.Errorf("select artifact %s: %w", key, err)
	}
	a.Category = finding.Category(category)
	return a, nil
}

const upsertArtifact = `
INSERT INTO remediation_artifacts (
    source, original_id, action, category, file_name, content_type, content,
    remote_path, product_key, repository, repo_url, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (source, original_id, action) DO UPDATE SET
    category = EXCLUDED.category,
    file_name = EXCLUDED.file_name,
    content_type = EXCLUDED.content_type,
    content = EXCLUDED.content,
    remote_path = EXCLUDED.remote_path,
    product_key = EXCLUDED.product_key,
    repository = EXCLUDED.repository,
    repo_url = EXCLUDED.repo_url,
    created_at = EXCLUDED.created_at`

func (s *Artifacts) PutArtifact(ctx context.Context, a remediation.Artifact) error {
	_, err := s.db.Exec(ctx, upsertArtifact,
		string(a.Key.ID.Source),
		a.Key.ID.OriginalID,
		string(a.Key.Action),
		string(a.Category),
		a.FileName,
		a.ContentType,
		a.Content,
		a.RemotePath,
		a.Selection.ProductKey,
		a.Selection.Repository,
		a.Selection.RepoURL,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert artifact %s: %w", a.Key, err)
	}
	return nil
}

func (s *Artifacts) ClearArtifacts(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM remediation_artifacts`)
	if err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	return tag.RowsAffected(), nil
}

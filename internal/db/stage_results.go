package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobprep/internal/workflow"
)

// SaveStageResult stores a completed stage's summary and artifact, replacing
// any previous result for the same job and stage.
func (s *Store) SaveStageResult(ctx context.Context, jobID uuid.UUID, stage workflow.Stage, summary map[string]any, artifact any) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal stage summary: %w", err)
	}
	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal stage artifact: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO stage_results (job_id, stage, summary, artifact)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id, stage) DO UPDATE SET
		     summary = $3, artifact = $4, created_at = NOW()`,
		jobID, string(stage), summaryJSON, artifactJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save stage result %s: %w", stage, err)
	}
	return nil
}

// LoadStageResult retrieves a cached stage result. Returns nil without error
// when no result is stored.
func (s *Store) LoadStageResult(ctx context.Context, jobID uuid.UUID, stage workflow.Stage) (*workflow.CachedStageResult, error) {
	var summaryJSON, artifactJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT summary, artifact FROM stage_results WHERE job_id = $1 AND stage = $2`,
		jobID, string(stage),
	).Scan(&summaryJSON, &artifactJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load stage result %s: %w", stage, err)
	}

	cached := &workflow.CachedStageResult{Artifact: artifactJSON}
	if summaryJSON != nil {
		if err := json.Unmarshal(summaryJSON, &cached.Summary); err != nil {
			return nil, fmt.Errorf("failed to parse stage summary %s: %w", stage, err)
		}
	}
	return cached, nil
}

// ClearStageResults drops all cached stage results for a job, forcing the
// next run to recompute every stage.
func (s *Store) ClearStageResults(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM stage_results WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to clear stage results: %w", err)
	}
	return nil
}

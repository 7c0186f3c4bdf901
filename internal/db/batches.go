package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobprep/internal/workflow"
)

// SaveJobOutcome stores one job's processing outcome within a batch run.
func (s *Store) SaveJobOutcome(ctx context.Context, requestID string, outcome *workflow.JobOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal job outcome: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_outcomes (request_id, job_id, status, outcome)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (request_id, job_id) DO UPDATE SET
		     status = $3, outcome = $4, created_at = NOW()`,
		requestID, outcome.JobID, string(outcome.OverallStatus), outcomeJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save job outcome: %w", err)
	}
	return nil
}

// SaveBatchResult stores the aggregate result of a batch run.
func (s *Store) SaveBatchResult(ctx context.Context, result *workflow.BatchResult) error {
	resultData, err := json.Marshal(result.JobResults)
	if err != nil {
		return fmt.Errorf("failed to marshal batch job results: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO batch_results (request_id, total_jobs, successful_jobs, failed_jobs,
		                            skipped_jobs, overall_status, total_processing_time_seconds,
		                            result_data, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (request_id) DO UPDATE SET
		     total_jobs = $2, successful_jobs = $3, failed_jobs = $4,
		     skipped_jobs = $5, overall_status = $6, total_processing_time_seconds = $7,
		     result_data = $8, completed_at = $10`,
		result.RequestID, result.TotalJobs, result.SuccessfulJobs, result.FailedJobs,
		result.SkippedJobs, string(result.OverallStatus),
		result.TotalProcessingTime.Seconds(), resultData,
		result.CreatedAt, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save batch result: %w", err)
	}
	return nil
}

// GetBatchResult retrieves a batch result by request id. Returns nil without
// error when the batch is unknown.
func (s *Store) GetBatchResult(ctx context.Context, requestID string) (*workflow.BatchResult, error) {
	var result workflow.BatchResult
	var overallStatus string
	var processingSeconds float64
	var resultData []byte

	err := s.pool.QueryRow(ctx,
		`SELECT request_id, total_jobs, successful_jobs, failed_jobs, skipped_jobs,
		        overall_status, total_processing_time_seconds, result_data, created_at, completed_at
		 FROM batch_results WHERE request_id = $1`,
		requestID,
	).Scan(&result.RequestID, &result.TotalJobs, &result.SuccessfulJobs,
		&result.FailedJobs, &result.SkippedJobs, &overallStatus, &processingSeconds,
		&resultData, &result.CreatedAt, &result.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch result: %w", err)
	}

	result.OverallStatus = workflow.Status(overallStatus)
	result.TotalProcessingTime = time.Duration(processingSeconds * float64(time.Second))
	if err := json.Unmarshal(resultData, &result.JobResults); err != nil {
		return nil, fmt.Errorf("failed to parse batch job results: %w", err)
	}
	return &result, nil
}

// BatchSummary is a listing row for stored batch results, without the
// per-job payload.
type BatchSummary struct {
	RequestID      string          `json:"request_id"`
	TotalJobs      int             `json:"total_jobs"`
	SuccessfulJobs int             `json:"successful_jobs"`
	FailedJobs     int             `json:"failed_jobs"`
	SkippedJobs    int             `json:"skipped_jobs"`
	OverallStatus  workflow.Status `json:"overall_status"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// ListBatchResults returns stored batch summaries, newest first.
func (s *Store) ListBatchResults(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT request_id, total_jobs, successful_jobs, failed_jobs, skipped_jobs,
		        overall_status, created_at, completed_at
		 FROM batch_results ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch results: %w", err)
	}
	defer rows.Close()

	var summaries []BatchSummary
	for rows.Next() {
		var b BatchSummary
		var overallStatus string
		if err := rows.Scan(&b.RequestID, &b.TotalJobs, &b.SuccessfulJobs,
			&b.FailedJobs, &b.SkippedJobs, &overallStatus, &b.CreatedAt,
			&b.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch result: %w", err)
		}
		b.OverallStatus = workflow.Status(overallStatus)
		summaries = append(summaries, b)
	}
	return summaries, rows.Err()
}

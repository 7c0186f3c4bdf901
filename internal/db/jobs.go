package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobprep/internal/types"
)

// InsertJob stores a job posting. Re-inserting the same URL updates the row.
func (s *Store) InsertJob(ctx context.Context, job *types.JobPosting) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, title, company, domain, description, url, location,
		                   salary_range, employment_type, experience_level, requirements, posted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		     title = $2, company = $3, domain = $4, description = $5, url = $6,
		     location = $7, salary_range = $8, employment_type = $9,
		     experience_level = $10, requirements = $11, posted_at = $12`,
		job.ID, job.Title, job.Company, job.Domain, job.Description, job.URL,
		job.Location, job.SalaryRange, job.EmploymentType, job.ExperienceLevel,
		job.Requirements, job.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job posting by id. Returns nil without error when the
// job does not exist.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*types.JobPosting, error) {
	var job types.JobPosting
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, company, domain, description, url, location,
		        salary_range, employment_type, experience_level, requirements, posted_at
		 FROM jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.Title, &job.Company, &job.Domain, &job.Description,
		&job.URL, &job.Location, &job.SalaryRange, &job.EmploymentType,
		&job.ExperienceLevel, &job.Requirements, &job.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns stored jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]types.JobPosting, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, company, domain, description, url, location,
		        salary_range, employment_type, experience_level, requirements, posted_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.JobPosting
	for rows.Next() {
		var job types.JobPosting
		if err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Domain,
			&job.Description, &job.URL, &job.Location, &job.SalaryRange,
			&job.EmploymentType, &job.ExperienceLevel, &job.Requirements,
			&job.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobprep/internal/fetch"
)

// GetPage implements fetch.PageCache. Returns nil without error when the URL
// is absent or older than maxAge.
func (s *Store) GetPage(ctx context.Context, url string, maxAge time.Duration) (*fetch.CachedPage, error) {
	var page fetch.CachedPage
	err := s.pool.QueryRow(ctx,
		`SELECT url, html, parsed_text, http_status, fetched_at
		 FROM page_cache WHERE url = $1 AND fetched_at > $2`,
		url, time.Now().Add(-maxAge),
	).Scan(&page.URL, &page.HTML, &page.Text, &page.Status, &page.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}
	return &page, nil
}

// PutPage implements fetch.PageCache.
func (s *Store) PutPage(ctx context.Context, page *fetch.CachedPage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO page_cache (url, html, parsed_text, http_status, fetched_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO UPDATE SET
		     html = $2, parsed_text = $3, http_status = $4, fetched_at = $5`,
		page.URL, page.HTML, page.Text, page.Status, page.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

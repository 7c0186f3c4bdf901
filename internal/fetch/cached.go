// Package fetch - cached.go wraps URL fetching with pluggable page caching.
package fetch

import (
	"context"
	"fmt"
	"time"
)

// DefaultPageTTL is how long cached pages stay fresh.
const DefaultPageTTL = 7 * 24 * time.Hour

// CachedPage is a previously fetched page held in the cache.
type CachedPage struct {
	URL       string
	HTML      string
	Text      string
	Status    int
	FetchedAt time.Time
}

// PageCache persists fetched pages. GetPage returns nil without error when
// the URL is absent or older than maxAge.
type PageCache interface {
	GetPage(ctx context.Context, url string, maxAge time.Duration) (*CachedPage, error)
	PutPage(ctx context.Context, page *CachedPage) error
}

// CachedFetcher wraps URL fetching with cache lookups.
type CachedFetcher struct {
	cache     PageCache
	options   *Options
	cacheTTL  time.Duration
	skipCache bool
	gate      func(ctx context.Context, url string) error
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
	// Gate runs before a network fetch, never for cache hits. A non-nil
	// error aborts the fetch.
	Gate func(ctx context.Context, url string) error
}

// NewCachedFetcher creates a cached fetcher. A nil cache degrades to plain
// fetching.
func NewCachedFetcher(cache PageCache, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = &CachedFetcherConfig{}
	}
	options := config.Options
	if options == nil {
		options = DefaultOptions()
	}
	ttl := config.CacheTTL
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &CachedFetcher{
		cache:     cache,
		options:   options,
		cacheTTL:  ttl,
		skipCache: config.SkipCache,
		gate:      config.Gate,
	}
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
}

// Fetch retrieves a URL, returning cached content when fresh.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	if !f.skipCache && f.cache != nil {
		page, err := f.cache.GetPage(ctx, urlStr, f.cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check page cache: %w", err)
		}
		if page != nil {
			return &CachedResult{
				Result: &Result{
					URL:        page.URL,
					HTML:       page.HTML,
					Text:       page.Text,
					StatusCode: page.Status,
				},
				FromCache: true,
			}, nil
		}
	}

	if f.gate != nil {
		if err := f.gate(ctx, urlStr); err != nil {
			return nil, err
		}
	}

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		return nil, err
	}

	text, _ := ExtractMainText(result.HTML, DefaultTextSelectors())
	result.Text = text

	if f.cache != nil {
		// Cache writes are best effort; the fetch already succeeded.
		_ = f.cache.PutPage(ctx, &CachedPage{
			URL:       urlStr,
			HTML:      result.HTML,
			Text:      text,
			Status:    result.StatusCode,
			FetchedAt: time.Now().UTC(),
		})
	}

	return &CachedResult{Result: result, FromCache: false}, nil
}

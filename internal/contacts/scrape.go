package contacts

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/jobprep/internal/fetch"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
)

// scrapePaths are the site paths tried for contact information, in order.
var scrapePaths = []string{"/about", "/team", "/contact"}

// scrapeSite fetches likely contact pages on the company website and
// extracts mailto links. The first page yielding contacts wins.
func (f *Finder) scrapeSite(ctx context.Context, domain string) ([]types.Contact, error) {
	var lastErr error
	for _, path := range scrapePaths {
		pageURL := "https://" + domain + path

		if err := f.limits.Acquire(ctx, ratelimit.ServiceScrape); err != nil {
			return nil, err
		}

		var html string
		var err error
		if f.useBrowser {
			html, err = fetch.Render(ctx, pageURL, fetch.DefaultRenderTimeout)
		} else {
			var res *fetch.Result
			res, err = fetch.URL(ctx, pageURL, nil)
			if res != nil {
				html = res.HTML
			}
		}
		if err != nil {
			f.limits.RecordFailure(ratelimit.ServiceScrape)
			lastErr = err
			continue
		}
		f.limits.RecordSuccess(ratelimit.ServiceScrape)

		if contacts := parseMailtoLinks(html, domain); len(contacts) > 0 {
			return contacts, nil
		}
	}

	if lastErr != nil {
		return nil, &SearchError{Message: "website scrape failed", Cause: lastErr}
	}
	return nil, nil
}

// parseMailtoLinks extracts mailto addresses from page HTML. Addresses
// outside the company domain are ignored.
func parseMailtoLinks(html, domain string) []types.Contact {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var contacts []types.Contact
	seen := make(map[string]bool)

	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		email := strings.TrimPrefix(href, "mailto:")
		// Strip ?subject= and similar query parts.
		if i := strings.IndexAny(email, "?&"); i >= 0 {
			email = email[:i]
		}
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || !strings.Contains(email, "@") || seen[email] {
			return
		}
		if domain != "" && !strings.HasSuffix(email, "@"+domain) {
			return
		}
		seen[email] = true

		name := strings.TrimSpace(s.Text())
		if strings.Contains(name, "@") {
			name = ""
		}

		contacts = append(contacts, types.Contact{
			Name:       name,
			Email:      email,
			Source:     "site_scrape",
			Confidence: 0.3,
		})
	})

	return contacts
}

// Package contacts discovers outreach contacts at target companies.
// Discovery tries the Hunter and Apollo APIs first and falls back to
// scraping the company website for mailto links.
package contacts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
)

// DefaultMaxContacts caps how many contacts a search returns.
const DefaultMaxContacts = 10

// Config holds contact discovery settings. API keys left empty disable the
// corresponding provider.
type Config struct {
	HunterAPIKey string
	ApolloAPIKey string
	UseBrowser   bool
	MaxContacts  int
	HTTPClient   *http.Client
}

// Finder discovers contacts for one company at a time.
type Finder struct {
	httpClient  *http.Client
	limits      *ratelimit.Registry
	hunterKey   string
	apolloKey   string
	useBrowser  bool
	maxContacts int

	hunterBaseURL string
	apolloBaseURL string
}

// New creates a Finder governed by the given rate limiter registry.
func New(limits *ratelimit.Registry, cfg Config) *Finder {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	maxContacts := cfg.MaxContacts
	if maxContacts <= 0 {
		maxContacts = DefaultMaxContacts
	}
	return &Finder{
		httpClient:    httpClient,
		limits:        limits,
		hunterKey:     cfg.HunterAPIKey,
		apolloKey:     cfg.ApolloAPIKey,
		useBrowser:    cfg.UseBrowser,
		maxContacts:   maxContacts,
		hunterBaseURL: hunterEndpoint,
		apolloBaseURL: apolloEndpoint,
	}
}

// Find discovers contacts at a company. The domain is guessed from the
// company name when not provided. Provider failures are tolerated as long as
// at least one method yields contacts.
func (f *Finder) Find(ctx context.Context, company, domain string) (*types.ContactSearchResult, error) {
	if strings.TrimSpace(company) == "" && strings.TrimSpace(domain) == "" {
		return nil, &SearchError{Message: "company name or domain is required"}
	}
	if domain == "" {
		domain = GuessDomain(company)
	}

	result := &types.ContactSearchResult{Company: company, Domain: domain}
	var discoveryErrs []error

	if f.hunterKey != "" {
		found, err := f.searchHunter(ctx, domain)
		if err != nil {
			discoveryErrs = append(discoveryErrs, err)
		} else {
			result.Contacts = append(result.Contacts, found...)
			result.MethodsUsed = append(result.MethodsUsed, "hunter_io")
		}
	}

	if f.apolloKey != "" && len(result.Contacts) < f.maxContacts {
		found, err := f.searchApollo(ctx, domain)
		if err != nil {
			discoveryErrs = append(discoveryErrs, err)
		} else {
			result.Contacts = append(result.Contacts, found...)
			result.MethodsUsed = append(result.MethodsUsed, "apollo_io")
		}
	}

	if len(result.Contacts) == 0 && domain != "" {
		found, err := f.scrapeSite(ctx, domain)
		if err != nil {
			discoveryErrs = append(discoveryErrs, err)
		} else if len(found) > 0 {
			result.Contacts = append(result.Contacts, found...)
			result.MethodsUsed = append(result.MethodsUsed, "site_scrape")
		}
	}

	result.Contacts = dedupe(result.Contacts)
	if len(result.Contacts) > f.maxContacts {
		result.Contacts = result.Contacts[:f.maxContacts]
	}
	result.TotalFound = len(result.Contacts)

	if result.TotalFound == 0 && len(discoveryErrs) > 0 {
		return nil, &SearchError{
			Company: company,
			Message: "all discovery methods failed",
			Cause:   errors.Join(discoveryErrs...),
		}
	}

	return result, nil
}

// GuessDomain derives a likely company website domain from the company name.
func GuessDomain(company string) string {
	name := strings.ToLower(strings.TrimSpace(company))
	for _, suffix := range []string{" incorporated", " corporation", " inc.", " inc", " llc", " ltd.", " ltd", " gmbh", " corp.", " corp", " co.", " co"} {
		name = strings.TrimSuffix(name, suffix)
	}

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".com"
}

// dedupe removes contacts with duplicate email addresses, keeping the first
// occurrence. Contacts without an email are dropped.
func dedupe(contacts []types.Contact) []types.Contact {
	seen := make(map[string]bool, len(contacts))
	out := make([]types.Contact, 0, len(contacts))
	for _, c := range contacts {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		c.Email = email
		out = append(out, c)
	}
	return out
}

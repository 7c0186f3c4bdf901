package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
)

const apolloEndpoint = "https://api.apollo.io/v1/mixed_people/search"

type apolloResponse struct {
	People []struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Email       string `json:"email"`
		LinkedinURL string `json:"linkedin_url"`
	} `json:"people"`
}

// searchApollo queries the Apollo people-search API.
func (f *Finder) searchApollo(ctx context.Context, domain string) ([]types.Contact, error) {
	if err := f.limits.Acquire(ctx, ratelimit.ServiceApollo); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"q_organization_domains": domain,
		"page":                   1,
		"per_page":               f.maxContacts,
	})
	if err != nil {
		return nil, &SearchError{Message: "failed to encode apollo.io request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apolloBaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &SearchError{Message: "failed to build apollo.io request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", f.apolloKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.limits.RecordFailure(ratelimit.ServiceApollo)
		return nil, &SearchError{Message: "apollo.io request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		f.limits.RecordFailure(ratelimit.ServiceApollo)
		return nil, &SearchError{Message: fmt.Sprintf("apollo.io returned status %d", resp.StatusCode)}
	}
	f.limits.RecordSuccess(ratelimit.ServiceApollo)

	var parsed apolloResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &SearchError{Message: "failed to parse apollo.io response", Cause: err}
	}

	contacts := make([]types.Contact, 0, len(parsed.People))
	for _, p := range parsed.People {
		// Apollo masks addresses the account has not unlocked.
		if p.Email == "" || strings.Contains(p.Email, "email_not_unlocked") {
			continue
		}
		contacts = append(contacts, types.Contact{
			Name:       p.Name,
			Title:      p.Title,
			Email:      p.Email,
			LinkedIn:   p.LinkedinURL,
			Source:     "apollo_io",
			Confidence: 0.6,
		})
	}
	return contacts, nil
}

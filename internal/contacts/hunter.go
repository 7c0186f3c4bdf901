package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
)

const hunterEndpoint = "https://api.hunter.io/v2/domain-search"

type hunterResponse struct {
	Data struct {
		Emails []struct {
			Value      string `json:"value"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
			Position   string `json:"position"`
			LinkedIn   string `json:"linkedin"`
			Confidence int    `json:"confidence"`
		} `json:"emails"`
	} `json:"data"`
}

// searchHunter queries the Hunter domain-search API for verified addresses.
func (f *Finder) searchHunter(ctx context.Context, domain string) ([]types.Contact, error) {
	if err := f.limits.Acquire(ctx, ratelimit.ServiceHunter); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(f.hunterBaseURL)
	if err != nil {
		return nil, &SearchError{Message: "invalid hunter.io endpoint", Cause: err}
	}
	query := endpoint.Query()
	query.Set("domain", domain)
	query.Set("api_key", f.hunterKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &SearchError{Message: "failed to build hunter.io request", Cause: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.limits.RecordFailure(ratelimit.ServiceHunter)
		return nil, &SearchError{Message: "hunter.io request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		f.limits.RecordFailure(ratelimit.ServiceHunter)
		return nil, &SearchError{Message: fmt.Sprintf("hunter.io returned status %d", resp.StatusCode)}
	}
	f.limits.RecordSuccess(ratelimit.ServiceHunter)

	var parsed hunterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &SearchError{Message: "failed to parse hunter.io response", Cause: err}
	}

	contacts := make([]types.Contact, 0, len(parsed.Data.Emails))
	for _, e := range parsed.Data.Emails {
		if e.Value == "" {
			continue
		}
		contacts = append(contacts, types.Contact{
			Name:       strings.TrimSpace(e.FirstName + " " + e.LastName),
			Title:      e.Position,
			Email:      e.Value,
			LinkedIn:   e.LinkedIn,
			Source:     "hunter_io",
			Confidence: float64(e.Confidence) / 100,
		})
	}
	return contacts, nil
}

package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NewRelicClient is a minimal client over New Relic's NerdGraph (GraphQL)
// NRQL endpoint. Same stdlib rationale as DatadogClient (see DESIGN.md):
// no New Relic Go SDK appears in the retrieved pack with real usage.
type NewRelicClient struct {
	accountID string
	apiKey    string
	http      *http.Client
}

// NewNewRelicClient builds a client for the given account, authenticated
// with a User API key.
func NewNewRelicClient(accountID, apiKey string) *NewRelicClient {
	return &NewRelicClient{
		accountID: accountID,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// NRQL runs a raw NRQL query and returns the decoded `results` array.
func (c *NewRelicClient) NRQL(ctx context.Context, query string) ([]map[string]any, error) {
	gql := fmt.Sprintf(`{
		actor {
			account(id: %s) {
				nrql(query: %q) { results }
			}
		}
	}`, c.accountID, query)

	reqBody, err := json.Marshal(map[string]string{"query": gql})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.newrelic.com/graphql", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newrelic: nrql: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("newrelic: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Actor struct {
				Account struct {
					NRQL struct {
						Results []map[string]any `json:"results"`
					} `json:"nrql"`
				} `json:"account"`
			} `json:"actor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("newrelic: decode: %w", err)
	}
	return out.Data.Actor.Account.NRQL.Results, nil
}

// LogsQuery builds and runs the NRQL query for service logs in [start, end).
func (c *NewRelicClient) LogsQuery(ctx context.Context, service string, start, end time.Time, limit int) ([]map[string]any, error) {
	query := fmt.Sprintf(
		"SELECT * FROM Log WHERE service.name = '%s' SINCE %d UNTIL %d LIMIT %d",
		service, start.UnixMilli(), end.UnixMilli(), limit,
	)
	return c.NRQL(ctx, query)
}

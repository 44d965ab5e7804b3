package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GrafanaQueryClient issues LogQL/PromQL range queries directly against
// the Loki/Prometheus-compatible query API exposed at the integration's
// base URL. grafana-api-golang-client (wrapped as Client.Grafana) only
// covers Grafana's own admin HTTP API (dashboards, datasources, orgs) —
// it has no Loki/Prometheus query support — so data collection talks to
// the query endpoint directly, the same stdlib-REST posture as the
// Datadog and New Relic adapters (see DESIGN.md).
type GrafanaQueryClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewGrafanaQueryClient builds a client against baseURL (the
// integration's configured Loki/Prometheus-compatible endpoint).
func NewGrafanaQueryClient(baseURL, apiKey string) *GrafanaQueryClient {
	return &GrafanaQueryClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// LokiStream is one labeled stream of (timestamp_ns, line) pairs, as
// returned by Loki's query_range API.
type LokiStream struct {
	Labels map[string]string
	Values [][2]string // [timestamp_ns, line]
}

// QueryLogs runs a LogQL range query for service within [start, end).
func (c *GrafanaQueryClient) QueryLogs(ctx context.Context, service string, start, end time.Time, limit int) ([]LokiStream, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf(`{job=%q}`, service))
	q.Set("start", fmt.Sprintf("%d", start.UnixNano()))
	q.Set("end", fmt.Sprintf("%d", end.UnixNano()))
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("direction", "forward")

	var out struct {
		Data struct {
			Result []struct {
				Stream map[string]string `json:"stream"`
				Values [][2]string       `json:"values"`
			} `json:"result"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/loki/api/v1/query_range?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("grafana: query logs: %w", err)
	}
	streams := make([]LokiStream, 0, len(out.Data.Result))
	for _, r := range out.Data.Result {
		streams = append(streams, LokiStream{Labels: r.Stream, Values: r.Values})
	}
	return streams, nil
}

// QueryMetric runs an instant PromQL query and returns the latest
// sample value.
func (c *GrafanaQueryClient) QueryMetric(ctx context.Context, promql string, at time.Time) (float64, bool, error) {
	q := url.Values{}
	q.Set("query", promql)
	q.Set("time", fmt.Sprintf("%d", at.Unix()))

	var out struct {
		Data struct {
			Result []struct {
				Value [2]any `json:"value"`
			} `json:"result"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/query?"+q.Encode(), &out); err != nil {
		return 0, false, fmt.Errorf("grafana: query metric: %w", err)
	}
	if len(out.Data.Result) == 0 {
		return 0, false, nil
	}
	str, ok := out.Data.Result[0].Value[1].(string)
	if !ok {
		return 0, false, nil
	}
	var f float64
	if _, err := fmt.Sscanf(str, "%f", &f); err != nil {
		return 0, false, nil
	}
	return f, true, nil
}

func (c *GrafanaQueryClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("grafana: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

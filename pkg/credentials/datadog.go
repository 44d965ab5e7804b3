package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DatadogClient is a minimal REST client over Datadog's logs/metrics
// query APIs. No Go SDK for Datadog appears anywhere in the retrieved
// pack with real usage, so this talks to the documented REST contract
// directly over net/http rather than inventing a dependency (see
// DESIGN.md).
type DatadogClient struct {
	site   string
	apiKey string
	appKey string
	http   *http.Client
}

// NewDatadogClient builds a client against site (e.g. "datadoghq.com").
func NewDatadogClient(site, apiKey, appKey string) *DatadogClient {
	return &DatadogClient{
		site:   site,
		apiKey: apiKey,
		appKey: appKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SearchLogs queries the Logs Search API for service within [start, end).
func (c *DatadogClient) SearchLogs(ctx context.Context, service string, start, end time.Time, limit int) ([]DatadogLogEntry, error) {
	body := map[string]any{
		"filter": map[string]any{
			"query": fmt.Sprintf("service:%s", service),
			"from":  start.UTC().Format(time.RFC3339),
			"to":    end.UTC().Format(time.RFC3339),
		},
		"page": map[string]any{"limit": limit},
	}
	var out struct {
		Data []struct {
			Attributes struct {
				Timestamp time.Time         `json:"timestamp"`
				Message   string            `json:"message"`
				Status    string            `json:"status"`
				Attrs     map[string]string `json:"attributes"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/v2/logs/events/search", body, &out); err != nil {
		return nil, fmt.Errorf("datadog: search logs: %w", err)
	}
	entries := make([]DatadogLogEntry, 0, len(out.Data))
	for _, d := range out.Data {
		entries = append(entries, DatadogLogEntry{
			Timestamp:  d.Attributes.Timestamp,
			Message:    d.Attributes.Message,
			Level:      d.Attributes.Status,
			Attributes: d.Attributes.Attrs,
		})
	}
	return entries, nil
}

// QueryMetric runs a single timeseries query and returns the latest value.
func (c *DatadogClient) QueryMetric(ctx context.Context, query string, start, end time.Time) (float64, bool, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("from", fmt.Sprintf("%d", start.Unix()))
	q.Set("to", fmt.Sprintf("%d", end.Unix()))

	var out struct {
		Series []struct {
			Pointlist [][2]float64 `json:"pointlist"`
		} `json:"series"`
	}
	if err := c.get(ctx, "/api/v1/query?"+q.Encode(), &out); err != nil {
		return 0, false, fmt.Errorf("datadog: query metric: %w", err)
	}
	if len(out.Series) == 0 || len(out.Series[0].Pointlist) == 0 {
		return 0, false, nil
	}
	last := out.Series[0].Pointlist[len(out.Series[0].Pointlist)-1]
	return last[1], true, nil
}

// DatadogLogEntry is one raw log event returned by the Logs Search API.
type DatadogLogEntry struct {
	Timestamp  time.Time
	Message    string
	Level      string
	Attributes map[string]string
}

func (c *DatadogClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api."+c.site+path, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	return c.do(req, out)
}

func (c *DatadogClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api."+c.site+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *DatadogClient) setHeaders(req *http.Request) {
	req.Header.Set("DD-API-KEY", c.apiKey)
	req.Header.Set("DD-APPLICATION-KEY", c.appKey)
}

func (c *DatadogClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("datadog: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

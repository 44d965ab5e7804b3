// Package credentials implements the per-tenant credential and client
// cache (spec §4.2): AWS two-stage STS role assumption plus a
// process-local cache of ready-to-use provider clients keyed by
// (workspace, client kind).
package credentials

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	grafanaapi "github.com/grafana/grafana-api-golang-client"
	"github.com/google/uuid"
)

// ClientKind identifies the provider/data-kind pair a Client was built
// for — the `kind` argument of spec §4.2's get_client(workspace, kind).
type ClientKind string

const (
	KindCloudWatchLogs    ClientKind = "cloudwatch_logs"
	KindCloudWatchMetrics ClientKind = "cloudwatch_metrics"
	KindDatadogLogs       ClientKind = "datadog_logs"
	KindDatadogMetrics    ClientKind = "datadog_metrics"
	KindNewRelicLogs      ClientKind = "newrelic_logs"
	KindNewRelicMetrics   ClientKind = "newrelic_metrics"
	KindGrafanaLogs       ClientKind = "grafana_logs"
	KindGrafanaMetrics    ClientKind = "grafana_metrics"
)

// cacheKey is the composite key of the cache map (spec §4.2 Storage).
type cacheKey struct {
	workspaceID uuid.UUID
	kind        ClientKind
}

// Client is the tagged union of provider clients get_client can return.
// Exactly one field is populated, selected by Kind.
type Client struct {
	Kind ClientKind

	CloudWatchLogs    *cloudwatchlogs.Client
	CloudWatchMetrics *cloudwatch.Client
	Datadog           *DatadogClient
	NewRelic          *NewRelicClient
	Grafana           *grafanaapi.Client
	GrafanaQuery      *GrafanaQueryClient

	// expiry is the time after which this entry must not be reused —
	// for AWS clients, the assumed role's credential expiration; for
	// static API-key backed providers (Datadog, New Relic, Grafana)
	// it is set far in the future since those credentials don't rotate.
	expiry time.Time
}

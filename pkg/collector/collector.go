package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/google/uuid"

	"github.com/sre-platform/healthreview/pkg/credentials"
)

// cloudWatchLogGroupPatterns are tried in order for a service's log
// group name, since CloudWatch has no notion of "the log group for
// service X" (spec §4.3 Per-provider queries).
var cloudWatchLogGroupPatterns = []string{
	"/aws/lambda/%s",
	"/ecs/%s",
	"/aws/ecs/%s",
	"/%s",
}

// Collector is C3, the observability data collector. It fans out to
// whichever providers an ExecutionContext marks available, in a fixed
// priority order, using clients built by credentials.Service (C2).
type Collector struct {
	clients *credentials.Service
	logger  *slog.Logger
}

// New builds a Collector over an already-constructed credential/client
// service.
func New(clients *credentials.Service) *Collector {
	return &Collector{clients: clients, logger: slog.Default()}
}

// ServiceRef is the subset of an ent.Service the collector needs —
// kept narrow so tests don't need a database.
type ServiceRef struct {
	Name string
}

// Collect gathers logs, golden-signal metrics, and fingerprinted
// errors for one service over [windowStart, windowEnd) (spec §4.3).
func (c *Collector) Collect(ctx context.Context, execCtx *ExecutionContext, service ServiceRef, windowStart, windowEnd time.Time) (*CollectedData, error) {
	logs := c.collectLogs(ctx, execCtx, service, windowStart, windowEnd)
	metrics := c.collectMetrics(ctx, execCtx, service, windowStart, windowEnd)
	errors := aggregateErrorsFromLogs(logs)

	out := &CollectedData{
		LogCount:    len(logs),
		Metrics:     metrics,
		MetricCount: countMetrics(metrics),
		Errors:      errors,
	}
	if len(logs) > maxLogSamples {
		logs = logs[:maxLogSamples]
	}
	out.Logs = logs
	return out, nil
}

// collectLogs fans out Grafana/Loki → Datadog → New Relic → CloudWatch,
// short-circuiting once maxLogSamples is reached. A provider failure is
// logged and does not stop the pipeline (spec §4.3 Fan-out).
func (c *Collector) collectLogs(ctx context.Context, execCtx *ExecutionContext, service ServiceRef, start, end time.Time) []LogEntry {
	var logs []LogEntry

	if execCtx.Has(CapabilityLogs) {
		grafanaLogs, err := c.collectGrafanaLogs(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect grafana logs failed", "service", service.Name, "error", err)
		} else {
			logs = append(logs, grafanaLogs...)
			c.logger.Info("collected grafana logs", "service", service.Name, "count", len(grafanaLogs))
		}
	}

	if execCtx.Has(CapabilityDatadogLogs) && len(logs) < maxLogSamples {
		datadogLogs, err := c.collectDatadogLogs(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect datadog logs failed", "service", service.Name, "error", err)
		} else {
			logs = append(logs, datadogLogs...)
			c.logger.Info("collected datadog logs", "service", service.Name, "count", len(datadogLogs))
		}
	}

	if execCtx.Has(CapabilityNewRelicLogs) && len(logs) < maxLogSamples {
		nrLogs, err := c.collectNewRelicLogs(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect newrelic logs failed", "service", service.Name, "error", err)
		} else {
			logs = append(logs, nrLogs...)
			c.logger.Info("collected newrelic logs", "service", service.Name, "count", len(nrLogs))
		}
	}

	if execCtx.Has(CapabilityAWSLogs) && len(logs) < maxLogSamples {
		cwLogs, err := c.collectCloudWatchLogs(ctx, execCtx.WorkspaceID, service.Name, start, end, len(logs))
		if err != nil {
			c.logger.Warn("collect cloudwatch logs failed", "service", service.Name, "error", err)
		} else {
			logs = append(logs, cwLogs...)
			c.logger.Info("collected cloudwatch logs", "service", service.Name, "count", len(cwLogs))
		}
	}

	if len(logs) == 0 {
		c.logger.Warn("no logs collected", "service", service.Name)
	}
	return logs
}

func (c *Collector) collectGrafanaLogs(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) ([]LogEntry, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindGrafanaLogs)
	if err != nil {
		return nil, err
	}
	streams, err := client.GrafanaQuery.QueryLogs(ctx, service, start, end, maxLogSamples)
	if err != nil {
		return nil, err
	}
	var logs []LogEntry
	for _, stream := range streams {
		for _, v := range stream.Values {
			ts, message := v[0], v[1]
			logs = append(logs, LogEntry{
				Timestamp:  parseUnixNanoString(ts),
				Level:      detectLogLevel(message),
				Message:    message,
				Attributes: stream.Labels,
			})
		}
	}
	return logs, nil
}

func (c *Collector) collectDatadogLogs(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) ([]LogEntry, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindDatadogLogs)
	if err != nil {
		return nil, err
	}
	entries, err := client.Datadog.SearchLogs(ctx, service, start, end, maxLogSamples)
	if err != nil {
		return nil, err
	}
	logs := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		level := strings.ToUpper(e.Level)
		if level == "" {
			level = "INFO"
		}
		logs = append(logs, LogEntry{
			Timestamp:  e.Timestamp,
			Level:      level,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	}
	return logs, nil
}

func (c *Collector) collectNewRelicLogs(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) ([]LogEntry, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindNewRelicLogs)
	if err != nil {
		return nil, err
	}
	rows, err := client.NewRelic.LogsQuery(ctx, service, start, end, maxLogSamples)
	if err != nil {
		return nil, err
	}
	logs := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		message, _ := row["message"].(string)
		ts := time.Now().UTC()
		if ms, ok := row["timestamp"].(float64); ok {
			ts = time.UnixMilli(int64(ms)).UTC()
		}
		logs = append(logs, LogEntry{
			Timestamp:  ts,
			Level:      detectLogLevel(message),
			Message:    message,
			Attributes: map[string]string{},
		})
	}
	return logs, nil
}

func (c *Collector) collectCloudWatchLogs(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time, already int) ([]LogEntry, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindCloudWatchLogs)
	if err != nil {
		return nil, err
	}

	var logs []LogEntry
	filterPattern := "ERROR"
	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	for _, pattern := range cloudWatchLogGroupPatterns {
		logGroup := fmt.Sprintf(pattern, service)
		limit := maxLogSamples - (already + len(logs))
		if limit > 500 {
			limit = 500
		}
		if limit <= 0 {
			break
		}

		resp, err := client.CloudWatchLogs.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName:  aws.String(logGroup),
			FilterPattern: aws.String(filterPattern),
			StartTime:     aws.Int64(startMs),
			EndTime:       aws.Int64(endMs),
			Limit:         aws.Int32(int32(limit)),
		})
		if err != nil {
			// The log group probably doesn't exist under this pattern;
			// try the next one.
			c.logger.Debug("cloudwatch log group not usable", "log_group", logGroup, "error", err)
			continue
		}

		for _, event := range resp.Events {
			message := aws.ToString(event.Message)
			logs = append(logs, LogEntry{
				Timestamp:  time.UnixMilli(aws.ToInt64(event.Timestamp)).UTC(),
				Level:      detectLogLevel(message),
				Message:    message,
				Attributes: map[string]string{"logGroup": logGroup},
			})
		}
		c.logger.Info("collected cloudwatch logs", "log_group", logGroup, "count", len(resp.Events))

		if already+len(logs) >= maxLogSamples {
			break
		}
	}
	return logs, nil
}

// collectMetrics consults every enabled provider and merges the
// golden-signal set first-wins, so no provider's result ever overwrites
// an earlier provider's (spec §4.3 Fan-out).
func (c *Collector) collectMetrics(ctx context.Context, execCtx *ExecutionContext, service ServiceRef, start, end time.Time) MetricsData {
	var merged MetricsData

	if execCtx.Has(CapabilityMetrics) {
		m, err := c.collectGrafanaMetrics(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect grafana metrics failed", "service", service.Name, "error", err)
		} else {
			mergeMetrics(&merged, m)
		}
	}
	if execCtx.Has(CapabilityDatadogMetrics) {
		m, err := c.collectDatadogMetrics(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect datadog metrics failed", "service", service.Name, "error", err)
		} else {
			mergeMetrics(&merged, m)
		}
	}
	if execCtx.Has(CapabilityNewRelicMetrics) {
		m, err := c.collectNewRelicMetrics(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect newrelic metrics failed", "service", service.Name, "error", err)
		} else {
			mergeMetrics(&merged, m)
		}
	}
	if execCtx.Has(CapabilityAWSMetrics) {
		m, err := c.collectCloudWatchMetrics(ctx, execCtx.WorkspaceID, service.Name, start, end)
		if err != nil {
			c.logger.Warn("collect cloudwatch metrics failed", "service", service.Name, "error", err)
		} else {
			mergeMetrics(&merged, m)
		}
	}
	return merged
}

func (c *Collector) collectGrafanaMetrics(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) (MetricsData, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindGrafanaMetrics)
	if err != nil {
		return MetricsData{}, err
	}
	q := client.GrafanaQuery

	var out MetricsData
	out.LatencyP50 = queryFloat(ctx, q, end, fmt.Sprintf(`histogram_quantile(0.50, rate(http_request_duration_seconds_bucket{job=%q}[5m]))`, service))
	out.LatencyP99 = queryFloat(ctx, q, end, fmt.Sprintf(`histogram_quantile(0.99, rate(http_request_duration_seconds_bucket{job=%q}[5m]))`, service))
	out.ErrorRate = queryFloat(ctx, q, end, fmt.Sprintf(`rate(http_requests_total{job=%q,status=~"5.."}[5m])`, service))
	out.ThroughputPerMinute = queryFloat(ctx, q, end, fmt.Sprintf(`rate(http_requests_total{job=%q}[1m]) * 60`, service))
	if out.ErrorRate != nil {
		availability := 100.0 - *out.ErrorRate
		out.Availability = &availability
	}
	return out, nil
}

func queryFloat(ctx context.Context, q *credentials.GrafanaQueryClient, at time.Time, promql string) *float64 {
	v, ok, err := q.QueryMetric(ctx, promql, at)
	if err != nil || !ok {
		return nil
	}
	return &v
}

func (c *Collector) collectDatadogMetrics(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) (MetricsData, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindDatadogMetrics)
	if err != nil {
		return MetricsData{}, err
	}
	dd := client.Datadog

	var out MetricsData
	out.LatencyP50 = queryDatadogFloat(ctx, dd, fmt.Sprintf(`p50:trace.http.request.duration{service:%s}`, service), start, end)
	out.LatencyP99 = queryDatadogFloat(ctx, dd, fmt.Sprintf(`p99:trace.http.request.duration{service:%s}`, service), start, end)
	out.ErrorRate = queryDatadogFloat(ctx, dd, fmt.Sprintf(`sum:trace.http.request.errors{service:%s}.as_rate()`, service), start, end)
	out.ThroughputPerMinute = queryDatadogFloat(ctx, dd, fmt.Sprintf(`sum:trace.http.request.hits{service:%s}.as_rate()`, service), start, end)
	if out.ErrorRate != nil {
		availability := 100.0 - *out.ErrorRate
		out.Availability = &availability
	}
	return out, nil
}

func queryDatadogFloat(ctx context.Context, dd *credentials.DatadogClient, query string, start, end time.Time) *float64 {
	v, ok, err := dd.QueryMetric(ctx, query, start, end)
	if err != nil || !ok {
		return nil
	}
	return &v
}

func (c *Collector) collectNewRelicMetrics(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) (MetricsData, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindNewRelicMetrics)
	if err != nil {
		return MetricsData{}, err
	}
	nr := client.NewRelic

	sinceHours := int(end.Sub(start).Hours())
	if sinceHours < 1 {
		sinceHours = 1
	}

	var out MetricsData
	errRows, err := nr.NRQL(ctx, fmt.Sprintf(
		`SELECT percentage(count(*), WHERE error IS true) as error_rate FROM Transaction WHERE appName = '%s' SINCE %d hours ago`,
		service, sinceHours,
	))
	if err == nil && len(errRows) > 0 {
		if v, ok := errRows[0]["error_rate"].(float64); ok {
			out.ErrorRate = &v
			availability := 100.0 - v
			out.Availability = &availability
		}
	}

	thrRows, err := nr.NRQL(ctx, fmt.Sprintf(
		`SELECT rate(count(*), 1 minute) as throughput FROM Transaction WHERE appName = '%s' SINCE %d hours ago`,
		service, sinceHours,
	))
	if err == nil && len(thrRows) > 0 {
		if v, ok := thrRows[0]["throughput"].(float64); ok {
			out.ThroughputPerMinute = &v
		}
	}
	return out, nil
}

func (c *Collector) collectCloudWatchMetrics(ctx context.Context, workspaceID uuid.UUID, service string, start, end time.Time) (MetricsData, error) {
	client, err := c.clients.GetClient(ctx, workspaceID, credentials.KindCloudWatchMetrics)
	if err != nil {
		return MetricsData{}, err
	}
	cw := client.CloudWatchMetrics

	dim := cwtypes.Dimension{Name: aws.String("FunctionName"), Value: aws.String(service)}

	var out MetricsData

	durationResp, err := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/Lambda"),
		MetricName: aws.String("Duration"),
		Dimensions: []cwtypes.Dimension{dim},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(3600),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err == nil {
		if avg := averageDatapoints(durationResp.Datapoints); avg != nil {
			out.LatencyP99 = avg
		}
	}

	errorsResp, errErr := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/Lambda"),
		MetricName: aws.String("Errors"),
		Dimensions: []cwtypes.Dimension{dim},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(3600),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
	})
	invocationsResp, invErr := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/Lambda"),
		MetricName: aws.String("Invocations"),
		Dimensions: []cwtypes.Dimension{dim},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(3600),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
	})
	if errErr == nil && invErr == nil {
		errSum := sumDatapoints(errorsResp.Datapoints)
		invSum := sumDatapoints(invocationsResp.Datapoints)
		if invSum > 0 {
			errorRate := (errSum / invSum) * 100
			availability := 100.0 - errorRate
			out.ErrorRate = &errorRate
			out.Availability = &availability

			totalHours := end.Sub(start).Hours()
			if totalHours > 0 {
				throughput := invSum / (totalHours * 60)
				out.ThroughputPerMinute = &throughput
			}
		}
	}

	return out, nil
}

func averageDatapoints(points []cwtypes.Datapoint) *float64 {
	var sum float64
	var n int
	for _, p := range points {
		if p.Average != nil {
			sum += *p.Average
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func sumDatapoints(points []cwtypes.Datapoint) float64 {
	var sum float64
	for _, p := range points {
		if p.Sum != nil {
			sum += *p.Sum
		}
	}
	return sum
}

func parseUnixNanoString(s string) time.Time {
	var ns int64
	if _, err := fmt.Sscanf(s, "%d", &ns); err != nil {
		return time.Now().UTC()
	}
	return time.Unix(0, ns).UTC()
}

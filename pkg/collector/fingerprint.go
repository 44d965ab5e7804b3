package collector

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"
)

// errorTypePatterns are tried in order; the first capture group to
// match wins (spec §4.3 step 1).
var errorTypePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\w+Error):`),
	regexp.MustCompile(`(\w+Exception):`),
	regexp.MustCompile(`Error:\s*(\w+)`),
	regexp.MustCompile(`Exception:\s*(\w+)`),
	regexp.MustCompile(`^\[?(\w+Error)\]?`),
	regexp.MustCompile(`^\[?(\w+Exception)\]?`),
}

const unknownErrorType = "UnknownError"

var (
	uuidPattern      = regexp.MustCompile(`\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	timestampPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)
	integerPattern   = regexp.MustCompile(`\b\d+\b`)
	dquotePattern    = regexp.MustCompile(`"[^"]*"`)
	squotePattern    = regexp.MustCompile(`'[^']*'`)
)

// stackTracePatterns are tried in order; the first match wins (spec
// §4.3 step 5). Go's RE2 has no DOTALL flag — "(?s)" inline enables
// "." matching newlines instead.
var stackTracePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)(Traceback \(most recent call last\):.*?)(\n\n|\z)`),
	regexp.MustCompile(`(?s)(at [\w.$]+\([\w.]+:\d+\).*?)(\n\n|\z)`),
	regexp.MustCompile(`(?s)(File "[^"]+", line \d+.*?)(\n\n|\z)`),
}

// extractErrorType returns the first matching error-type capture, or
// unknownErrorType if none match (spec §4.3 step 1).
func extractErrorType(message string) string {
	for _, pat := range errorTypePatterns {
		if m := pat.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	return unknownErrorType
}

// normalizeMessage replaces volatile substrings with stable
// placeholders so that structurally identical errors with different
// IDs/timestamps fingerprint the same (spec §4.3 step 2).
func normalizeMessage(message string) string {
	out := uuidPattern.ReplaceAllString(message, "<UUID>")
	out = timestampPattern.ReplaceAllString(out, "<TIMESTAMP>")
	out = integerPattern.ReplaceAllString(out, "<NUM>")
	out = dquotePattern.ReplaceAllString(out, `"<STR>"`)
	out = squotePattern.ReplaceAllString(out, "'<STR>'")
	return out
}

// fingerprintError returns (error_type, fingerprint) for a raw error
// message (spec §4.3 steps 1-3).
func fingerprintError(message string) (errorType, fingerprint string) {
	errorType = extractErrorType(message)
	normalized := normalizeMessage(message)
	sum := md5.Sum([]byte(errorType + ":" + normalized))
	return errorType, hex.EncodeToString(sum[:])[:16]
}

// extractStackTrace returns the first matching stack-trace span,
// truncated to 2000 characters, or "" if none is present (spec §4.3
// step 5).
func extractStackTrace(message string) string {
	for _, pat := range stackTracePatterns {
		if m := pat.FindStringSubmatch(message); m != nil {
			trace := m[1]
			if len(trace) > 2000 {
				trace = trace[:2000]
			}
			return trace
		}
	}
	return ""
}

const maxEndpointsPerError = 10
const maxMessageSample = 500

// aggregateErrorsFromLogs groups ERROR-level logs by fingerprint,
// tracking count, first/last seen, up to 10 distinct endpoints, and a
// truncated stack trace and message sample, sorted by count descending
// (spec §4.3 steps 4 and 6).
func aggregateErrorsFromLogs(logs []LogEntry) []ErrorData {
	type accum struct {
		errorType     string
		messageSample string
		count         int
		firstSeen     time.Time
		lastSeen      time.Time
		endpoints     []string
		endpointSet   map[string]bool
		stackTrace    string
	}

	byFingerprint := make(map[string]*accum)
	order := make([]string, 0)

	for _, log := range logs {
		if log.Level != "ERROR" {
			continue
		}
		errorType, fp := fingerprintError(log.Message)

		endpoint := log.Attributes["endpoint"]
		if endpoint == "" {
			endpoint = log.Attributes["path"]
		}

		a, ok := byFingerprint[fp]
		if !ok {
			a = &accum{
				errorType:     errorType,
				messageSample: truncate(log.Message, maxMessageSample),
				count:         0,
				firstSeen:     log.Timestamp,
				lastSeen:      log.Timestamp,
				endpointSet:   make(map[string]bool),
				stackTrace:    extractStackTrace(log.Message),
			}
			byFingerprint[fp] = a
			order = append(order, fp)
		}

		a.count++
		if log.Timestamp.Before(a.firstSeen) {
			a.firstSeen = log.Timestamp
		}
		if log.Timestamp.After(a.lastSeen) {
			a.lastSeen = log.Timestamp
		}
		if endpoint != "" && !a.endpointSet[endpoint] && len(a.endpoints) < maxEndpointsPerError {
			a.endpointSet[endpoint] = true
			a.endpoints = append(a.endpoints, endpoint)
		}
	}

	errors := make([]ErrorData, 0, len(order))
	for _, fp := range order {
		a := byFingerprint[fp]
		errors = append(errors, ErrorData{
			Fingerprint:   fp,
			ErrorType:     a.errorType,
			MessageSample: a.messageSample,
			Count:         a.count,
			FirstSeen:     a.firstSeen,
			LastSeen:      a.lastSeen,
			Endpoints:     a.endpoints,
			StackTrace:    a.stackTrace,
		})
	}

	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Count > errors[j].Count })
	return errors
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// detectLogLevel classifies a log message by substring match, in
// priority order (spec §4.3 / original _detect_log_level).
func detectLogLevel(message string) string {
	upper := strings.ToUpper(message)
	switch {
	case strings.Contains(upper, "ERROR"), strings.Contains(upper, "EXCEPTION"):
		return "ERROR"
	case strings.Contains(upper, "WARN"):
		return "WARN"
	case strings.Contains(upper, "DEBUG"):
		return "DEBUG"
	case strings.Contains(upper, "TRACE"):
		return "TRACE"
	default:
		return "INFO"
	}
}

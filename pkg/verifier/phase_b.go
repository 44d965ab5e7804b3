package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sre-platform/healthreview/pkg/llmprovider"
)

// maxLinesPerFile truncates each candidate file's content before it is
// sent to Phase B's extraction call (spec §4.6.2 Phase B).
const maxLinesPerFile = 300

const phaseBSystemPrompt = `You inspect a single source file for observability instrumentation: HTTP request metrics, database query instrumentation, distributed tracing, error handling, and structured logging. If the file contains any such instrumentation, respond with a JSON array of extraction objects, each with fields: type (one of "http_metrics", "db_instrumentation", "tracing", "error_handling", "logging"), file_path, function_or_class, coverage (one of "all_routes", "all_db_queries", "all_requests", "specific_paths"), metrics_recorded (array of strings), registration_file, description. If the file contains no such instrumentation, respond with an empty JSON array. Respond with only the JSON array, no other text.`

// CandidateFile is one Phase A output paired with its source content,
// the input to a single Phase B extraction call.
type CandidateFile struct {
	FilePath string
	Content  string
}

// ExtractFromFile runs one Phase B call for a single candidate file,
// returning the instrumentation extractions the model found in it.
// provider is expected to already be budget-wrapped by the caller; a
// budget exhaustion is fatal and propagates, while every other failure
// (transport error, malformed JSON) is non-fatal and yields no
// extractions for this file (spec §4.6.3).
func ExtractFromFile(ctx context.Context, provider llmprovider.Provider, file CandidateFile) ([]extraction, error) {
	resp, err := provider.Invoke(ctx, llmprovider.InvokeRequest{
		SystemPrompt: phaseBSystemPrompt,
		UserPrompt:   buildPhaseBPrompt(file),
	})
	if err != nil {
		if isBudgetExceeded(err) {
			return nil, fmt.Errorf("verifier: phase B: %s: %w", file.FilePath, err)
		}
		return nil, nil
	}

	var extractions []extraction
	if err := json.Unmarshal([]byte(extractJSONArray(resp.Text)), &extractions); err != nil {
		return nil, nil
	}
	for i := range extractions {
		if extractions[i].FilePath == "" {
			extractions[i].FilePath = file.FilePath
		}
	}
	return extractions, nil
}

func buildPhaseBPrompt(file CandidateFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n\n", file.FilePath)
	b.WriteString(truncateToLines(file.Content, maxLinesPerFile))
	return b.String()
}

func truncateToLines(content string, maxLines int) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content
	}
	return strings.Join(lines[:maxLines], "\n") + "\n... (truncated)"
}

// ExtractAll runs Phase B sequentially over every candidate, stopping
// immediately on a fatal budget error and otherwise accumulating
// whatever extractions each file yielded (spec §4.6.2 Phase B: "for
// each candidate file").
func ExtractAll(ctx context.Context, provider llmprovider.Provider, files []CandidateFile) ([]extraction, error) {
	var all []extraction
	for _, f := range files {
		exts, err := ExtractFromFile(ctx, provider, f)
		if err != nil {
			return all, err
		}
		all = append(all, exts...)
	}
	return all, nil
}

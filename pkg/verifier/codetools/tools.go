// Package codetools implements the three read-only tools Phase C's
// verification agent may call (spec §4.6.2): read_file, search_files,
// list_files — each scoped to one ParsedRepository's stored
// ParsedFile rows rather than a live MCP server or filesystem, the
// adapted swap spec.md §4.6 calls for in place of the teacher's live
// MCP tool executor (pkg/mcp/executor.go).
package codetools

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sre-platform/healthreview/ent"
	"github.com/sre-platform/healthreview/ent/parsedfile"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
)

const (
	maxReadFileChars     = 15000
	maxSearchMatches     = 50
	maxSearchSnippetChar = 200
	maxListFiles         = 50
)

// ToolResult mirrors agent.ToolResult's shape (pkg/agent/tool_executor.go):
// tool output is always a string, with an explicit error flag rather
// than a Go error, matching the MCP convention the teacher's executor
// follows.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Executor implements the three tools over one repository's stored,
// already-parsed files. Every call is independently logged by the
// caller (spec §4.6.2 "each tool invocation is independently logged").
type Executor struct {
	db           *ent.Client
	parsedRepoID uuid.UUID
	cachedFiles  []*ent.ParsedFile
}

// New builds an Executor scoped to one ParsedRepository.
func New(db *ent.Client, parsedRepositoryID uuid.UUID) *Executor {
	return &Executor{db: db, parsedRepoID: parsedRepositoryID}
}

// ListTools returns the fixed tool set Phase C exposes to the agent.
func (e *Executor) ListTools(_ context.Context) ([]llmprovider.ToolDefinition, error) {
	return []llmprovider.ToolDefinition{
		{
			Name:             "read_file",
			Description:      "Return the content of one file in the repository, truncated to 15000 characters.",
			ParametersSchema: `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
		},
		{
			Name:             "search_files",
			Description:      "Search file contents for a keyword, returning up to 50 matches with a short snippet each.",
			ParametersSchema: `{"type":"object","properties":{"keyword":{"type":"string"}},"required":["keyword"]}`,
		},
		{
			Name:             "list_files",
			Description:      "List up to 50 file paths matching a shell glob pattern (e.g. \"internal/**/*.go\").",
			ParametersSchema: `{"type":"object","properties":{"glob_pattern":{"type":"string"}},"required":["glob_pattern"]}`,
		},
	}, nil
}

// Close is a no-op; Executor holds no live connection of its own
// beyond the shared *ent.Client.
func (e *Executor) Close() error { return nil }

// Execute dispatches one tool call by name.
func (e *Executor) Execute(ctx context.Context, call llmprovider.ToolCall) (*ToolResult, error) {
	args, err := parseArgs(call.Arguments)
	if err != nil {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}

	switch call.Name {
	case "read_file":
		return e.readFile(ctx, call, args["path"])
	case "search_files":
		return e.searchFiles(ctx, call, args["keyword"])
	case "list_files":
		return e.listFiles(ctx, call, args["glob_pattern"])
	default:
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("unknown tool %q", call.Name), IsError: true}, nil
	}
}

func (e *Executor) readFile(ctx context.Context, call llmprovider.ToolCall, filePath string) (*ToolResult, error) {
	files, err := e.files(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.FilePath != filePath {
			continue
		}
		content := ""
		if f.Content != nil {
			content = *f.Content
		}
		if len(content) > maxReadFileChars {
			content = content[:maxReadFileChars] + "\n... (truncated)"
		}
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: content}, nil
	}
	return &ToolResult{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("file not found: %s", filePath), IsError: true}, nil
}

func (e *Executor) searchFiles(ctx context.Context, call llmprovider.ToolCall, keyword string) (*ToolResult, error) {
	files, err := e.files(ctx)
	if err != nil {
		return nil, err
	}
	if keyword == "" {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: "no keyword given", IsError: true}, nil
	}

	var b strings.Builder
	matches := 0
	for _, f := range files {
		if f.Content == nil {
			continue
		}
		content := *f.Content
		idx := strings.Index(content, keyword)
		if idx < 0 {
			continue
		}
		start := idx - maxSearchSnippetChar/2
		if start < 0 {
			start = 0
		}
		end := idx + len(keyword) + maxSearchSnippetChar/2
		if end > len(content) {
			end = len(content)
		}
		fmt.Fprintf(&b, "%s: ...%s...\n", f.FilePath, content[start:end])
		matches++
		if matches >= maxSearchMatches {
			break
		}
	}
	if matches == 0 {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: "no matches"}, nil
	}
	return &ToolResult{CallID: call.ID, Name: call.Name, Content: b.String()}, nil
}

func (e *Executor) listFiles(ctx context.Context, call llmprovider.ToolCall, globPattern string) (*ToolResult, error) {
	files, err := e.files(ctx)
	if err != nil {
		return nil, err
	}
	if globPattern == "" {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: "no glob_pattern given", IsError: true}, nil
	}

	var b strings.Builder
	n := 0
	for _, f := range files {
		ok, err := path.Match(globPattern, f.FilePath)
		if err != nil || !ok {
			continue
		}
		b.WriteString(f.FilePath)
		b.WriteByte('\n')
		n++
		if n >= maxListFiles {
			break
		}
	}
	if n == 0 {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: "no files matched"}, nil
	}
	return &ToolResult{CallID: call.ID, Name: call.Name, Content: b.String()}, nil
}

// files lazily loads and caches every ParsedFile row for the scoped
// repository; Phase C's tool calls are read-only and bounded in count,
// so one query amortizes across the whole agent run.
func (e *Executor) files(ctx context.Context) ([]*ent.ParsedFile, error) {
	if e.cachedFiles != nil {
		return e.cachedFiles, nil
	}
	files, err := e.db.ParsedFile.Query().
		Where(parsedfile.ParsedRepositoryIDEQ(e.parsedRepoID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("codetools: load parsed files: %w", err)
	}
	e.cachedFiles = files
	return files, nil
}

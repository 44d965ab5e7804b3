// Package codectx is the codebase context store (C5, spec §4.5): a
// per-(workspace, repo) append-only log of an LLM-derived description of
// a repository's observability architecture, reused across reviews so
// the verification agent's slow path need not re-derive it every time.
package codectx

// GlobalInstrumentation describes one piece of observability wiring that
// applies broadly across a repository (a middleware, a base class, a
// decorator) rather than to one function.
type GlobalInstrumentation struct {
	FilePath            string   `json:"file_path"`
	InstrumentationType string   `json:"instrumentation_type"`
	MetricsRecorded     []string `json:"metrics_recorded,omitempty"`
	// Coverage is one of "all_routes", "all_db_queries", "all_requests",
	// "specific_paths".
	Coverage         string `json:"coverage"`
	RegistrationFile string `json:"registration_file,omitempty"`
	Description      string `json:"description"`
}

// CodebaseContext is the structured record produced by C6 Phase B' and
// consumed by C6's fast path and dependent rule-group reasoning.
type CodebaseContext struct {
	WorkspaceID             string
	RepoFullName            string
	CommitSHA               string
	GlobalHTTPMetrics       []GlobalInstrumentation `json:"global_http_metrics,omitempty"`
	GlobalDBInstrumentation []GlobalInstrumentation `json:"global_db_instrumentation,omitempty"`
	GlobalTracing           []GlobalInstrumentation `json:"global_tracing,omitempty"`
	GlobalErrorHandling     []GlobalInstrumentation `json:"global_error_handling,omitempty"`
	LoggingFramework        string                  `json:"logging_framework,omitempty"`
	InfrastructureFiles     []string                `json:"infrastructure_files,omitempty"`
	Summary                 string                  `json:"summary,omitempty"`
}

// HasGlobalHTTPCoverage reports whether any global_http_metrics entry
// covers all routes/requests (spec §4.5 coverage predicates).
func (c *CodebaseContext) HasGlobalHTTPCoverage() bool {
	for _, inst := range c.GlobalHTTPMetrics {
		if inst.Coverage == "all_routes" || inst.Coverage == "all_requests" {
			return true
		}
	}
	return false
}

// HasGlobalDBCoverage reports whether any global DB instrumentation is
// recorded at all.
func (c *CodebaseContext) HasGlobalDBCoverage() bool {
	return len(c.GlobalDBInstrumentation) > 0
}

// HasGlobalErrorCoverage reports whether any global error-handling
// instrumentation is recorded at all.
func (c *CodebaseContext) HasGlobalErrorCoverage() bool {
	return len(c.GlobalErrorHandling) > 0
}

package verifier

import (
	"github.com/sre-platform/healthreview/pkg/codectx"
)

// BuildContext groups Phase B's per-file extractions into a
// CodebaseContext (spec §4.6.2 Phase B'): one bucket per extraction
// type, plus infrastructure_files as the union of every extraction's
// file_path and registration_file (the set of files the fast path's
// next run must treat as instrumentation-relevant when diffed against
// changed files).
func BuildContext(workspaceID, repoFullName, commitSHA string, extractions []extraction) *codectx.CodebaseContext {
	out := &codectx.CodebaseContext{
		WorkspaceID:  workspaceID,
		RepoFullName: repoFullName,
		CommitSHA:    commitSHA,
	}

	infra := map[string]bool{}
	for _, e := range extractions {
		inst := e.toGlobalInstrumentation()
		switch e.Type {
		case extractionHTTPMetrics:
			out.GlobalHTTPMetrics = append(out.GlobalHTTPMetrics, inst)
		case extractionDBInstrumentation:
			out.GlobalDBInstrumentation = append(out.GlobalDBInstrumentation, inst)
		case extractionTracing:
			out.GlobalTracing = append(out.GlobalTracing, inst)
		case extractionErrorHandling:
			out.GlobalErrorHandling = append(out.GlobalErrorHandling, inst)
		case extractionLogging:
			if out.LoggingFramework == "" {
				out.LoggingFramework = e.Description
			}
		}
		if e.FilePath != "" {
			infra[e.FilePath] = true
		}
		if e.RegistrationFile != "" {
			infra[e.RegistrationFile] = true
		}
	}

	for f := range infra {
		out.InfrastructureFiles = append(out.InfrastructureFiles, f)
	}
	return out
}

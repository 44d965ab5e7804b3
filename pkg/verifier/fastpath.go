package verifier

import (
	"github.com/sre-platform/healthreview/pkg/codectx"
	"github.com/sre-platform/healthreview/pkg/rules"
)

// changedFilesIntersectInfrastructure reports whether any file changed
// since the previous review touches the stored context's
// infrastructure_files — the fast-path eligibility test of spec
// §4.6.1.
func changedFilesIntersectInfrastructure(changedFiles []string, ctx *codectx.CodebaseContext) bool {
	if ctx == nil || len(ctx.InfrastructureFiles) == 0 {
		return false
	}
	infra := make(map[string]bool, len(ctx.InfrastructureFiles))
	for _, f := range ctx.InfrastructureFiles {
		infra[f] = true
	}
	for _, f := range changedFiles {
		if infra[f] {
			return true
		}
	}
	return false
}

// CanUseFastPath reports whether the fast path applies: a current
// context exists and no changed file touches its infrastructure_files
// (spec §4.6.1).
func CanUseFastPath(current *codectx.CodebaseContext, changedFiles []string) bool {
	return current != nil && !changedFilesIntersectInfrastructure(changedFiles, current)
}

// FastPathFilter applies the three deterministic suppression rules of
// spec §4.6.1 and returns the surviving gaps with empty verdict
// metadata. No LLM call, no context rewrite.
func FastPathFilter(ctx *codectx.CodebaseContext, gaps []rules.DetectedProblem) []VerifiedGap {
	suppressMET001 := ctx.HasGlobalHTTPCoverage()
	suppressMET002 := ctx.HasGlobalDBCoverage()
	suppressMET004 := ctx.HasGlobalErrorCoverage()

	out := make([]VerifiedGap, 0, len(gaps))
	for _, g := range gaps {
		switch g.RuleID {
		case "MET_001":
			if suppressMET001 {
				continue
			}
		case "MET_002":
			if suppressMET002 {
				continue
			}
		case "MET_004":
			if suppressMET004 {
				continue
			}
		}
		out = append(out, VerifiedGap{DetectedProblem: g})
	}
	return out
}

// Package facts defines the CodeFact contract produced by the external
// source parser (spec §3) and the pure folds used to index it. The core
// never writes facts, only reads and indexes what the parser already
// stored as opaque JSON on ParsedFile.facts.
package facts

// FactType enumerates the CodeFact.fact_type values the parser emits.
type FactType string

const (
	FactFunction     FactType = "function"
	FactClass        FactType = "class"
	FactTryExcept    FactType = "try_except"
	FactLoggingCall  FactType = "logging_call"
	FactMetricsCall  FactType = "metrics_call"
	FactHTTPHandler  FactType = "http_handler"
	FactExternalIO   FactType = "external_io"
	FactImport       FactType = "import"
)

// CodeFact is a typed, located observation extracted from source by the
// external parser (glossary). Metadata carries type-specific fields
// (e.g. LogLevel for logging_call, Kind for http_handler) as a loose
// map since the parser's fact shapes are not under this system's
// control.
type CodeFact struct {
	FactType       FactType               `json:"fact_type"`
	FilePath       string                 `json:"file_path"`
	LineStart      int                    `json:"line_start"`
	LineEnd        int                    `json:"line_end"`
	ParentFunction *string                `json:"parent_function,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// LogLevel returns the logging_call fact's log_level metadata field, if
// present.
func (f CodeFact) LogLevel() string {
	if v, ok := f.Metadata["log_level"].(string); ok {
		return v
	}
	return ""
}

// FunctionName returns the function fact's own name, stored in metadata
// under "name" by convention of the external parser.
func (f CodeFact) FunctionName() string {
	if v, ok := f.Metadata["name"].(string); ok {
		return v
	}
	return ""
}

// Within reports whether fact f lies entirely inside function fn's line
// range — "fact within function F" per spec §4.4's Helpers.
func (f CodeFact) Within(fn CodeFact) bool {
	return f.LineStart >= fn.LineStart && f.LineEnd <= fn.LineEnd
}

// Index is the twice-flattened fact index spec §4.4 requires: by
// file_path and by fact_type.
type Index struct {
	ByFile map[string][]CodeFact
	ByType map[FactType][]CodeFact
	All    []CodeFact
}

// BuildIndex flattens and indexes a fact set. It is a pure fold: the
// same input always yields the same Index, and running the rule engine
// over it twice yields byte-identical results (spec §8 round-trip law).
func BuildIndex(all []CodeFact) *Index {
	idx := &Index{
		ByFile: make(map[string][]CodeFact),
		ByType: make(map[FactType][]CodeFact),
		All:    all,
	}
	for _, f := range all {
		idx.ByFile[f.FilePath] = append(idx.ByFile[f.FilePath], f)
		idx.ByType[f.FactType] = append(idx.ByType[f.FactType], f)
	}
	return idx
}

// EnclosingFunction returns the unique function fact containing target,
// preferring the innermost (smallest line range) when functions nest.
// Returns false if no function in the same file contains target.
func (idx *Index) EnclosingFunction(target CodeFact) (CodeFact, bool) {
	var best CodeFact
	found := false
	bestSpan := -1
	for _, fn := range idx.ByFile[target.FilePath] {
		if fn.FactType != FactFunction {
			continue
		}
		if fn.FilePath != target.FilePath {
			continue
		}
		if target.LineStart >= fn.LineStart && target.LineEnd <= fn.LineEnd {
			span := fn.LineEnd - fn.LineStart
			if !found || span < bestSpan {
				best = fn
				bestSpan = span
				found = true
			}
		}
	}
	return best, found
}

// FunctionsInFile returns every function fact in a given file.
func (idx *Index) FunctionsInFile(path string) []CodeFact {
	var out []CodeFact
	for _, f := range idx.ByFile[path] {
		if f.FactType == FactFunction {
			out = append(out, f)
		}
	}
	return out
}

// FactsInRange returns every fact of the given type in path whose range
// falls within [start, end].
func (idx *Index) FactsInRange(path string, factType FactType, start, end int) []CodeFact {
	var out []CodeFact
	for _, f := range idx.ByFile[path] {
		if f.FactType != factType {
			continue
		}
		if f.LineStart >= start && f.LineEnd <= end {
			out = append(out, f)
		}
	}
	return out
}

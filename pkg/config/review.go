package config

import "time"

// ReviewConfig contains the review-pipeline tunables of spec.md §6: C1's
// budget caps, C6's sampling/confidence knobs, C8's polling/rate-limit
// knobs, and the demo-mode switch. Mirrors QueueConfig's shape.
type ReviewConfig struct {
	// UseMockLLMAnalyzer short-circuits phases 3-7 of C8 into a
	// deterministic mock analyzer, for live demos without a configured
	// LLM provider.
	UseMockLLMAnalyzer bool `yaml:"use_mock_llm_analyzer"`

	// MaxFactsPerFile caps how many CodeFacts the fact extractor keeps
	// per file before phase 3 stops analyzing further constructs in it.
	MaxFactsPerFile int `yaml:"max_facts_per_file"`

	// MaxParsedFiles caps how many ParsedFile rows phase 3 reads per
	// review (spec §4.8 phase 3: "cap: 5,000 files").
	MaxParsedFiles int `yaml:"max_parsed_files"`

	// LLMMaxIterations and LLMMaxTokenBudget are the per-review budget
	// caps C1's Tracker enforces (spec §4.1).
	LLMMaxIterations  int `yaml:"llm_max_iterations"`
	LLMMaxTokenBudget int `yaml:"llm_max_token_budget"`

	// VerificationSampleSize and VerificationConfidenceThreshold are
	// C6 Phase C's sampling and pass_ratio knobs (spec §4.6.2).
	VerificationSampleSize          int     `yaml:"verification_sample_size"`
	VerificationConfidenceThreshold float64 `yaml:"verification_confidence_threshold"`

	// VerificationDelaySeconds is the soft rate-limit sleep between
	// consecutive Phase C rule-group verifications (spec §5).
	VerificationDelaySeconds int `yaml:"verification_delay_seconds"`

	// SearchResultsLimit bounds codetools.Executor's search_files tool.
	SearchResultsLimit int `yaml:"search_results_limit"`

	// WorkerCount, PollInterval, PollIntervalJitter, ReviewTimeout match
	// QueueConfig's fields one-for-one, generalized from "session" to
	// "review".
	WorkerCount        int           `yaml:"worker_count"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`
	ReviewTimeout      time.Duration `yaml:"review_timeout"`

	// LLMGuardTemperature, LLMGuardMaxTokens, LLMGuardTimeout configure
	// C9's single classification call, independent of C1's review
	// budget.
	LLMGuardTemperature float32       `yaml:"llm_guard_temperature"`
	LLMGuardMaxTokens   int           `yaml:"llm_guard_max_tokens"`
	LLMGuardTimeout     time.Duration `yaml:"llm_guard_timeout"`

	// Environment is a free-form deployment tag ("production", "staging",
	// "dev") surfaced in structured logs and the demo-mode banner.
	Environment string `yaml:"environment"`
}

// DefaultReviewConfig returns the built-in review-pipeline defaults.
func DefaultReviewConfig() *ReviewConfig {
	return &ReviewConfig{
		UseMockLLMAnalyzer:              false,
		MaxFactsPerFile:                 200,
		MaxParsedFiles:                  5000,
		LLMMaxIterations:                40,
		LLMMaxTokenBudget:               200_000,
		VerificationSampleSize:          20,
		VerificationConfidenceThreshold: 0.70,
		VerificationDelaySeconds:        0,
		SearchResultsLimit:              50,
		WorkerCount:                     3,
		PollInterval:                    5 * time.Second,
		PollIntervalJitter:              2 * time.Second,
		ReviewTimeout:                   10 * time.Minute,
		LLMGuardTemperature:             0,
		LLMGuardMaxTokens:               16,
		LLMGuardTimeout:                 10 * time.Second,
		Environment:                     "production",
	}
}

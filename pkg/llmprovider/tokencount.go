package llmprovider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens is the best-effort token counter C1 falls back to
// when a provider's response omits usage entirely (spec §4.1 "falling
// back to best-effort token counting when usage is absent"). cl100k_base
// is close enough across providers for budget-accounting purposes; it
// is not used for anything billing-precise.
func EstimateTokens(text string) int {
	enc := encoding()
	if enc == nil {
		// Fallback-of-the-fallback: roughly 4 characters per token,
		// the same heuristic used when tiktoken's vocab files are
		// unavailable (offline/airgapped deployments).
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

package credentials

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// reuseMargin is spec §4.2's five-minute safety margin: a cached entry
// is reused iff its expiry is more than this far in the future.
const reuseMargin = 5 * time.Minute

// clientCache is the process-local mapping from (workspace_id,
// client_kind) to {client, expiry} (spec §4.2 Storage). Correctness does
// not depend on cross-process coherence, so this stays in-process even
// though a Redis instance may be configured elsewhere in the stack for
// other caches — see pkg/budget and the agentflow MultiLevelCache this
// locking discipline is grounded on. A sync.RWMutex is used rather than
// the lock-free approach pkg/budget takes, because an entry here is a
// composite (client pointer + expiry) that must be read and written as
// one unit; spec §4.2 explicitly permits locking "for cost", not
// correctness.
type clientCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Client
}

func newClientCache() *clientCache {
	return &clientCache{entries: make(map[cacheKey]*Client)}
}

// get returns a cached client iff it is still reusable under the
// five-minute margin.
func (c *clientCache) get(key cacheKey) (*Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiry.IsZero() && time.Now().Add(reuseMargin).After(entry.expiry) {
		return nil, false
	}
	return entry, true
}

// put installs or replaces the cached client for key. Concurrent callers
// that both recreate the client both end up with a valid client; the
// last put wins, matching spec §4.2's documented race.
func (c *clientCache) put(key cacheKey, client *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = client
}

// clear removes entries matching the given optional workspace/kind
// filters — nil means "any". Used by the public Clear operation.
func (c *clientCache) clear(workspaceID *uuid.UUID, kind *ClientKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if workspaceID != nil && k.workspaceID != *workspaceID {
			continue
		}
		if kind != nil && k.kind != *kind {
			continue
		}
		delete(c.entries, k)
	}
}

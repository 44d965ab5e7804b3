package credentials

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClientCache_ReuseWithinMargin(t *testing.T) {
	c := newClientCache()
	key := cacheKey{workspaceID: uuid.New(), kind: KindCloudWatchLogs}
	client := &Client{Kind: KindCloudWatchLogs, expiry: time.Now().Add(time.Hour)}
	c.put(key, client)

	got, ok := c.get(key)
	assert.True(t, ok)
	assert.Same(t, client, got)
}

func TestClientCache_ExpiresWithinFiveMinuteMargin(t *testing.T) {
	c := newClientCache()
	key := cacheKey{workspaceID: uuid.New(), kind: KindCloudWatchLogs}
	// Expiry is only 2 minutes out — inside the 5-minute reuse margin,
	// so the entry must not be reused (spec §4.2).
	c.put(key, &Client{Kind: KindCloudWatchLogs, expiry: time.Now().Add(2 * time.Minute)})

	_, ok := c.get(key)
	assert.False(t, ok)
}

func TestClientCache_StaticCredentialEntriesNeverExpire(t *testing.T) {
	c := newClientCache()
	key := cacheKey{workspaceID: uuid.New(), kind: KindDatadogLogs}
	c.put(key, &Client{Kind: KindDatadogLogs})

	_, ok := c.get(key)
	assert.True(t, ok)
}

func TestClientCache_ClearByWorkspace(t *testing.T) {
	c := newClientCache()
	ws1, ws2 := uuid.New(), uuid.New()
	c.put(cacheKey{workspaceID: ws1, kind: KindCloudWatchLogs}, &Client{})
	c.put(cacheKey{workspaceID: ws2, kind: KindCloudWatchLogs}, &Client{})

	c.clear(&ws1, nil)

	_, ok1 := c.get(cacheKey{workspaceID: ws1, kind: KindCloudWatchLogs})
	_, ok2 := c.get(cacheKey{workspaceID: ws2, kind: KindCloudWatchLogs})
	assert.False(t, ok1)
	assert.True(t, ok2)
}

func TestClientCache_ClearByKind(t *testing.T) {
	c := newClientCache()
	ws := uuid.New()
	c.put(cacheKey{workspaceID: ws, kind: KindCloudWatchLogs}, &Client{})
	c.put(cacheKey{workspaceID: ws, kind: KindDatadogLogs}, &Client{})

	kind := KindCloudWatchLogs
	c.clear(nil, &kind)

	_, ok1 := c.get(cacheKey{workspaceID: ws, kind: KindCloudWatchLogs})
	_, ok2 := c.get(cacheKey{workspaceID: ws, kind: KindDatadogLogs})
	assert.False(t, ok1)
	assert.True(t, ok2)
}

func TestClientCache_ClearAll(t *testing.T) {
	c := newClientCache()
	ws := uuid.New()
	c.put(cacheKey{workspaceID: ws, kind: KindCloudWatchLogs}, &Client{})
	c.put(cacheKey{workspaceID: ws, kind: KindDatadogLogs}, &Client{})

	c.clear(nil, nil)

	assert.Len(t, c.entries, 0)
}

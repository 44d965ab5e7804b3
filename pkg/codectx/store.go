package codectx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sre-platform/healthreview/ent"
	entcodebasecontext "github.com/sre-platform/healthreview/ent/codebasecontext"
)

// redisTTL bounds how long a cached "most recent context" entry is
// trusted before falling back to the database — long enough to skip a
// DB round trip across the handful of verification calls a single
// review issues, short enough that a concurrently-saved newer context
// (another review of the same repo) is picked up promptly.
const redisTTL = 10 * time.Minute

// Store is C5, the codebase context store: load_most_recent / save
// (spec §4.5). Rows are append-only; "current" is the most recent row
// for (workspace, repo).
type Store struct {
	db    *ent.Client
	redis *redis.Client // optional; nil disables the cross-process cache
}

// NewStore builds a Store. redisClient may be nil, in which case every
// LoadMostRecent falls through to the database — matching the
// credential cache's graceful-degradation posture when no Redis is
// configured, but here the cache is a pure latency optimization, not
// the system of record (db always is).
func NewStore(db *ent.Client, redisClient *redis.Client) *Store {
	if db == nil {
		panic("codectx.NewStore: db must not be nil")
	}
	return &Store{db: db, redis: redisClient}
}

// LoadMostRecent returns the newest CodebaseContext row for (workspace,
// repo), or nil if none exists.
func (s *Store) LoadMostRecent(ctx context.Context, workspaceID uuid.UUID, repoFullName string) (*CodebaseContext, error) {
	cacheKey := s.redisKey(workspaceID, repoFullName)

	if s.redis != nil {
		if cached, ok := s.getCached(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	row, err := s.db.CodebaseContext.Query().
		Where(
			entcodebasecontext.WorkspaceIDEQ(workspaceID),
			entcodebasecontext.RepoFullNameEQ(repoFullName),
		).
		Order(ent.Desc(entcodebasecontext.FieldCreatedAt)).
		First(ctx)
	if ent.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("codectx: load most recent: %w", err)
	}

	out := fromEnt(row)
	if s.redis != nil {
		s.setCached(ctx, cacheKey, out)
	}
	return out, nil
}

// Save appends a new CodebaseContext row. Existing rows are never
// mutated (spec §4.5).
func (s *Store) Save(ctx context.Context, c *CodebaseContext) (*ent.CodebaseContext, error) {
	workspaceID, err := uuid.Parse(c.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("codectx: invalid workspace id: %w", err)
	}

	create := s.db.CodebaseContext.Create().
		SetWorkspaceID(workspaceID).
		SetRepoFullName(c.RepoFullName).
		SetCommitSha(c.CommitSHA).
		SetGlobalHTTPMetrics(toJSONMaps(c.GlobalHTTPMetrics)).
		SetGlobalDbInstrumentation(toJSONMaps(c.GlobalDBInstrumentation)).
		SetGlobalTracing(toJSONMaps(c.GlobalTracing)).
		SetGlobalErrorHandling(toJSONMaps(c.GlobalErrorHandling)).
		SetInfrastructureFiles(c.InfrastructureFiles)
	if c.LoggingFramework != "" {
		create = create.SetLoggingFramework(c.LoggingFramework)
	}
	if c.Summary != "" {
		create = create.SetSummary(c.Summary)
	}

	row, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("codectx: save: %w", err)
	}

	if s.redis != nil {
		s.setCached(ctx, s.redisKey(workspaceID, c.RepoFullName), fromEnt(row))
	}
	return row, nil
}

func (s *Store) redisKey(workspaceID uuid.UUID, repoFullName string) string {
	return "codectx:most_recent:" + workspaceID.String() + ":" + repoFullName
}

func (s *Store) getCached(ctx context.Context, key string) (*CodebaseContext, bool) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Redis being unavailable degrades to a DB read, not a failure.
			return nil, false
		}
		return nil, false
	}
	var out CodebaseContext
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return &out, true
}

func (s *Store) setCached(ctx context.Context, key string, c *CodebaseContext) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	s.redis.Set(ctx, key, data, redisTTL)
}

func fromEnt(row *ent.CodebaseContext) *CodebaseContext {
	out := &CodebaseContext{
		WorkspaceID:             row.WorkspaceID.String(),
		RepoFullName:            row.RepoFullName,
		CommitSHA:               row.CommitSha,
		GlobalHTTPMetrics:       fromJSONMaps(row.GlobalHTTPMetrics),
		GlobalDBInstrumentation: fromJSONMaps(row.GlobalDbInstrumentation),
		GlobalTracing:           fromJSONMaps(row.GlobalTracing),
		GlobalErrorHandling:     fromJSONMaps(row.GlobalErrorHandling),
		InfrastructureFiles:     row.InfrastructureFiles,
	}
	if row.LoggingFramework != nil {
		out.LoggingFramework = *row.LoggingFramework
	}
	if row.Summary != nil {
		out.Summary = *row.Summary
	}
	return out
}

// toJSONMaps/fromJSONMaps round-trip []GlobalInstrumentation through
// ent's generic []map[string]interface{} JSON field via the struct's
// own json tags, so the ent schema stays free of a pkg/codectx import
// (which would otherwise cycle through the generated client).
func toJSONMaps(items []GlobalInstrumentation) []map[string]interface{} {
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func fromJSONMaps(maps []map[string]interface{}) []GlobalInstrumentation {
	if len(maps) == 0 {
		return nil
	}
	data, err := json.Marshal(maps)
	if err != nil {
		return nil
	}
	var out []GlobalInstrumentation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

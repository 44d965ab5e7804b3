package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// CodebaseContext holds the schema definition for the CodebaseContext
// entity — a persisted LLM-derived description of a repository's
// observability architecture at a given commit (§4.5). Rows are
// append-only; "current" is simply the most recent row for a
// (workspace, repo) pair.
type CodebaseContext struct {
	ent.Schema
}

// Fields of the CodebaseContext.
func (CodebaseContext) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Immutable(),
		field.String("repo_full_name").
			Immutable(),
		field.String("commit_sha").
			Immutable(),
		field.JSON("global_http_metrics", []map[string]interface{}{}).
			Optional(),
		field.JSON("global_db_instrumentation", []map[string]interface{}{}).
			Optional(),
		field.JSON("global_tracing", []map[string]interface{}{}).
			Optional(),
		field.JSON("global_error_handling", []map[string]interface{}{}).
			Optional(),
		field.String("logging_framework").
			Optional().
			Nillable(),
		field.JSON("infrastructure_files", []string{}).
			Optional(),
		field.Text("summary").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the CodebaseContext.
func (CodebaseContext) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("codebase_contexts").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the CodebaseContext.
func (CodebaseContext) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("workspace_id", "repo_full_name", "created_at"),
	}
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// ParsedRepository holds the schema definition for the ParsedRepository
// entity. Rows are written exclusively by the external code parser; the
// core only reads them.
type ParsedRepository struct {
	ent.Schema
}

// Fields of the ParsedRepository.
func (ParsedRepository) Fields() []ent.Field {
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
		field.Enum("status").
			Values("pending", "in_progress", "completed", "failed").
			Default("pending"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ParsedRepository.
func (ParsedRepository) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("files", ParsedFile.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ParsedRepository.
func (ParsedRepository) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("workspace_id", "repo_full_name", "created_at"),
		index.Fields("status"),
	}
}

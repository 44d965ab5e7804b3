package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// ParsedFile holds the schema definition for the ParsedFile entity.
// `facts` carries the CodeFact sequence described in spec §3 as opaque
// JSON — the core never mutates it, only reads and indexes it.
type ParsedFile struct {
	ent.Schema
}

// Fields of the ParsedFile.
func (ParsedFile) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("parsed_repository_id", uuid.UUID{}).
			Immutable(),
		field.String("file_path").
			Immutable(),
		field.String("language").
			Optional().
			Nillable(),
		field.Text("content").
			Optional().
			Nillable(),
		field.Int("line_count").
			Default(0),
		field.JSON("functions", []map[string]interface{}{}).
			Optional(),
		field.JSON("classes", []map[string]interface{}{}).
			Optional(),
		field.JSON("imports", []string{}).
			Optional(),
		field.JSON("facts", []map[string]interface{}{}).
			Optional().
			Comment("Sequence of CodeFact records; fact_type/line_start/line_end/parent_function/metadata"),
	}
}

// Edges of the ParsedFile.
func (ParsedFile) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("repository", ParsedRepository.Type).
			Ref("files").
			Field("parsed_repository_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ParsedFile.
func (ParsedFile) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("parsed_repository_id"),
		index.Fields("parsed_repository_id", "file_path").
			Unique(),
	}
}

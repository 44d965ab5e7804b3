package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// ReviewSLI holds the schema definition for the ReviewSLI entity — one
// scored indicator per review (§3, §4.7).
type ReviewSLI struct {
	ent.Schema
}

// Fields of the ReviewSLI.
func (ReviewSLI) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("review_id", uuid.UUID{}).
			Immutable(),
		field.String("name").
			Immutable(),
		field.String("category"),
		field.Int("score"),
		field.Int("previous_score").
			Optional().
			Nillable(),
		field.Enum("trend").
			Values("UP", "DOWN", "STABLE").
			Optional().
			Nillable(),
		field.String("target"),
		field.String("actual"),
		field.String("unit"),
		field.String("data_source"),
	}
}

// Edges of the ReviewSLI.
func (ReviewSLI) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("review", ServiceReview.Type).
			Ref("slis").
			Field("review_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ReviewSLI.
func (ReviewSLI) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("review_id"),
		index.Fields("review_id", "name"),
	}
}

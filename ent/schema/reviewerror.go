package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// ReviewError holds the schema definition for the ReviewError entity —
// one fingerprinted error cluster from the observability collector
// (§3, §4.3).
type ReviewError struct {
	ent.Schema
}

// Fields of the ReviewError.
func (ReviewError) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("review_id", uuid.UUID{}).
			Immutable(),
		field.String("fingerprint").
			Immutable(),
		field.String("error_type"),
		field.String("message_sample").
			MaxLen(500),
		field.Int("count"),
		field.Time("first_seen"),
		field.Time("last_seen"),
		field.JSON("endpoints", []string{}).
			Optional(),
		field.Text("stack_trace_sample").
			Optional().
			Nillable(),
	}
}

// Edges of the ReviewError.
func (ReviewError) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("review", ServiceReview.Type).
			Ref("errors").
			Field("review_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ReviewError.
func (ReviewError) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("review_id"),
		index.Fields("fingerprint"),
		index.Fields("review_id", "count"),
	}
}

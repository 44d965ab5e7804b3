package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

// ReviewSchedule holds the schema definition for the ReviewSchedule
// entity — per-service schedule tracking (§3).
type ReviewSchedule struct {
	ent.Schema
}

// Fields of the ReviewSchedule.
func (ReviewSchedule) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("service_id", uuid.UUID{}).
			Unique().
			Immutable(),
		field.Time("next_due_at"),
		field.UUID("last_review_id", uuid.UUID{}).
			Optional().
			Nillable(),
		field.Enum("last_status").
			Values("pending", "generating", "completed", "failed").
			Optional().
			Nillable(),
		field.Int("consecutive_failures").
			Default(0),
		field.Time("last_review_generated_at").
			Optional().
			Nillable(),
	}
}

// Edges of the ReviewSchedule.
func (ReviewSchedule) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("service", Service.Type).
			Ref("schedule").
			Field("service_id").
			Unique().
			Required().
			Immutable(),
	}
}

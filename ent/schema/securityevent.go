package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// SecurityEvent holds the schema definition for the SecurityEvent
// entity — recorded by the prompt injection guard (C9) for every unsafe
// decision and every guard degradation (§4.9).
type SecurityEvent struct {
	ent.Schema
}

// Fields of the SecurityEvent.
func (SecurityEvent) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Immutable(),
		field.String("tenant_id"),
		field.Enum("severity").
			Values("low", "medium", "high").
			Default("medium"),
		field.String("reason"),
		field.String("message_preview").
			MaxLen(200),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the SecurityEvent.
func (SecurityEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("security_events").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the SecurityEvent.
func (SecurityEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("workspace_id", "created_at"),
	}
}

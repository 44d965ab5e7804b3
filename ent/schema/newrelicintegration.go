package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

// NewRelicIntegration holds per-workspace encrypted New Relic credentials.
type NewRelicIntegration struct {
	ent.Schema
}

// Fields of the NewRelicIntegration.
func (NewRelicIntegration) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Unique().
			Immutable(),
		field.String("account_id"),
		field.Text("encrypted_api_key"),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the NewRelicIntegration.
func (NewRelicIntegration) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("newrelic_integration").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
	}
}

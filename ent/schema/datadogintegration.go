package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

// DatadogIntegration holds per-workspace encrypted Datadog credentials.
type DatadogIntegration struct {
	ent.Schema
}

// Fields of the DatadogIntegration.
func (DatadogIntegration) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Unique().
			Immutable(),
		field.String("site").
			Default("datadoghq.com"),
		field.Text("encrypted_api_key"),
		field.Text("encrypted_app_key"),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the DatadogIntegration.
func (DatadogIntegration) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("datadog_integration").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
	}
}

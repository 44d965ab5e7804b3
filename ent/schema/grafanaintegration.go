package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

// GrafanaIntegration holds per-workspace Grafana/Loki connection details.
type GrafanaIntegration struct {
	ent.Schema
}

// Fields of the GrafanaIntegration.
func (GrafanaIntegration) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Unique().
			Immutable(),
		field.String("base_url"),
		field.Text("encrypted_api_token"),
		field.String("loki_datasource_uid").
			Optional().
			Nillable(),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the GrafanaIntegration.
func (GrafanaIntegration) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("grafana_integration").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
	}
}

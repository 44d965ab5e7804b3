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

// Workspace holds the schema definition for the Workspace entity.
type Workspace struct {
	ent.Schema
}

// Fields of the Workspace.
func (Workspace) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.String("org_domain").
			Optional().
			Nillable().
			Comment("Email domain used for auto-enrollment, if any"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Workspace.
func (Workspace) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("services", Service.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("aws_integration", AWSIntegration.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("datadog_integration", DatadogIntegration.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("newrelic_integration", NewRelicIntegration.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("grafana_integration", GrafanaIntegration.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("codebase_contexts", CodebaseContext.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("security_events", SecurityEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Workspace.
func (Workspace) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("name"),
	}
}

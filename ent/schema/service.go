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

// Service holds the schema definition for the Service entity — a
// reviewable unit owned by a Workspace.
type Service struct {
	ent.Schema
}

// Fields of the Service.
func (Service) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.String("repo_owner").
			Optional().
			Nillable(),
		field.String("repo_name").
			Optional().
			Nillable(),
		field.String("metrics_provider_tag").
			Optional().
			Nillable().
			Comment("Which third-party backend this service's metrics come from"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Service.
func (Service) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("services").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
		edge.To("reviews", ServiceReview.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("schedule", ReviewSchedule.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Service.
func (Service) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("workspace_id"),
		index.Fields("workspace_id", "repo_owner", "repo_name"),
	}
}

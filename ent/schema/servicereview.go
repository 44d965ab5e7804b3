package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// ServiceReview holds the schema definition for the ServiceReview
// entity — the parent aggregate for one review (§3, §4.8).
type ServiceReview struct {
	ent.Schema
}

// Fields of the ServiceReview.
func (ServiceReview) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("service_id", uuid.UUID{}).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Immutable(),
		field.Time("week_start").
			Immutable(),
		field.Time("week_end").
			Immutable(),
		field.String("analyzed_commit_sha").
			Optional().
			Nillable(),
		field.Bool("codebase_changed").
			Default(false),
		field.Enum("status").
			Values("pending", "generating", "completed", "failed").
			Default("pending"),
		field.Int("overall_health_score").
			Optional().
			Nillable(),
		field.Text("summary").
			Optional().
			Nillable(),
		field.Text("recommendations").
			Optional().
			Nillable(),
		field.Float("generation_duration_seconds").
			Optional().
			Nillable(),
		field.Int("error_count_analyzed").
			Default(0),
		field.Int("log_volume_analyzed").
			Default(0),
		field.Int("metric_count_analyzed").
			Default(0),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the ServiceReview.
func (ServiceReview) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("service", Service.Type).
			Ref("reviews").
			Field("service_id").
			Unique().
			Required().
			Immutable(),
		edge.To("logging_gaps", ReviewLoggingGap.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("metrics_gaps", ReviewMetricsGap.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("slis", ReviewSLI.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("errors", ReviewError.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ServiceReview.
func (ServiceReview) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("service_id", "status"),
		index.Fields("workspace_id", "status"),
		index.Fields("service_id", "week_start"),
	}
}

// Annotations of the ServiceReview.
func (ServiceReview) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}

package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// ReviewMetricsGap holds the schema definition for the ReviewMetricsGap
// entity — a persisted MET_* gap from the rule engine (§3, §4.4).
type ReviewMetricsGap struct {
	ent.Schema
}

// Fields of the ReviewMetricsGap.
func (ReviewMetricsGap) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("review_id", uuid.UUID{}).
			Immutable(),
		field.String("rule_id").
			Immutable(),
		field.Text("description"),
		field.String("category"),
		field.Enum("severity").
			Values("HIGH", "MEDIUM", "LOW"),
		field.JSON("affected_files", []string{}),
		field.JSON("affected_functions", []string{}),
		field.JSON("evidence", []string{}).
			Optional(),
		field.String("metric_type").
			Optional().
			Nillable().
			Comment("counter/histogram/gauge — enrichment-prompting only, never used by scoring"),
		field.JSON("suggested_metric_names", []string{}).
			Optional(),
		field.Text("implementation_guide").
			Optional().
			Nillable(),
		field.Text("example_code").
			Optional().
			Nillable(),
		field.Text("rationale").
			Optional().
			Nillable(),
		field.String("gap_fingerprint").
			Immutable(),
		field.Enum("verification_verdict").
			Values("genuine", "false_alarm", "covered_globally").
			Optional().
			Nillable(),
	}
}

// Edges of the ReviewMetricsGap.
func (ReviewMetricsGap) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("review", ServiceReview.Type).
			Ref("metrics_gaps").
			Field("review_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ReviewMetricsGap.
func (ReviewMetricsGap) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("review_id"),
		index.Fields("gap_fingerprint"),
	}
}

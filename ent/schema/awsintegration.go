package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

// AWSIntegration holds the schema definition for the AWSIntegration
// entity — per-workspace role-assumption state (§3, §4.2).
type AWSIntegration struct {
	ent.Schema
}

// Fields of the AWSIntegration.
func (AWSIntegration) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("workspace_id", uuid.UUID{}).
			Unique().
			Immutable(),
		field.String("role_arn"),
		field.String("region").
			Default("us-east-1"),
		field.Text("encrypted_access_key_id").
			Optional().
			Nillable(),
		field.Text("encrypted_secret_access_key").
			Optional().
			Nillable(),
		field.Text("encrypted_session_token").
			Optional().
			Nillable(),
		field.Time("credentials_expiration").
			Optional().
			Nillable(),
		field.Text("encrypted_external_id").
			Optional().
			Nillable(),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the AWSIntegration.
func (AWSIntegration) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("workspace", Workspace.Type).
			Ref("aws_integration").
			Field("workspace_id").
			Unique().
			Required().
			Immutable(),
	}
}

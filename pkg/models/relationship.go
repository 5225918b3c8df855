package models

import "time"

// Common relationship labels.
const (
	RelationshipGeneratedFrom = "generated-from"
	RelationshipRequires      = "requires"
)

// ModuleRelationship is an immutable, directed, typed edge between two domain
// entities. Duplicate edges are allowed.
type ModuleRelationship struct {
	ID               string         `json:"id"`
	SourceType       string         `json:"source_type"       validate:"required"`
	SourceID         string         `json:"source_id"         validate:"required"`
	TargetType       string         `json:"target_type"       validate:"required"`
	TargetID         string         `json:"target_id"         validate:"required"`
	RelationshipType string         `json:"relationship_type" validate:"required"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	CreatedBy        string         `json:"created_by,omitempty"`
}

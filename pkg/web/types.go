// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/dukex/qmsflow/pkg/models"

// CreateRuleRequest represents the request body for adding an automation rule.
type CreateRuleRequest struct {
	Name          string                       `json:"name"           validate:"required,min=3"`
	Description   string                       `json:"description"`
	Enabled       *bool                        `json:"enabled"`
	TriggerModule string                       `json:"trigger_module" validate:"required"`
	TriggerEvent  string                       `json:"trigger_event"  validate:"required"`
	Conditions    []models.AutomationCondition `json:"conditions"     validate:"dive"`
	Actions       []models.AutomationAction    `json:"actions"        validate:"required,min=1,dive"`
	Priority      int                          `json:"priority"`
	CreatedBy     string                       `json:"created_by"`
}

// Rule converts the request into a rule. Rules are enabled unless the request says otherwise.
func (r CreateRuleRequest) Rule() models.AutomationRule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return models.AutomationRule{
		Name:          r.Name,
		Description:   r.Description,
		Enabled:       enabled,
		TriggerModule: r.TriggerModule,
		TriggerEvent:  r.TriggerEvent,
		Conditions:    r.Conditions,
		Actions:       r.Actions,
		Priority:      r.Priority,
		CreatedBy:     r.CreatedBy,
	}
}

// ProcessEventRequest represents a domain event submitted to the rules engine.
type ProcessEventRequest struct {
	Module string         `json:"module" validate:"required"`
	Event  string         `json:"event"  validate:"required"`
	Data   map[string]any `json:"data"`
}

// ExecuteWorkflowRequest represents the request body for running a workflow template.
type ExecuteWorkflowRequest struct {
	SourceID   string         `json:"source_id"   validate:"required"`
	SourceType string         `json:"source_type"`
	Data       map[string]any `json:"data"`
}

// CheckTriggersRequest asks which workflows a module event would start.
type CheckTriggersRequest struct {
	ModuleType string         `json:"module_type" validate:"required"`
	Event      string         `json:"event"       validate:"required"`
	Data       map[string]any `json:"data"`
}

// CreateRelationshipRequest represents the request body for recording a relationship.
type CreateRelationshipRequest struct {
	SourceType       string         `json:"source_type"       validate:"required"`
	SourceID         string         `json:"source_id"         validate:"required"`
	TargetType       string         `json:"target_type"       validate:"required"`
	TargetID         string         `json:"target_id"         validate:"required"`
	RelationshipType string         `json:"relationship_type" validate:"required"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedBy        string         `json:"created_by"`
}

// Relationship converts the request into a relationship.
func (r CreateRelationshipRequest) Relationship() models.ModuleRelationship {
	return models.ModuleRelationship{
		SourceType:       r.SourceType,
		SourceID:         r.SourceID,
		TargetType:       r.TargetType,
		TargetID:         r.TargetID,
		RelationshipType: r.RelationshipType,
		Metadata:         r.Metadata,
		CreatedBy:        r.CreatedBy,
	}
}

// TriggerIntegrationRequest starts a module workflow from a source record.
type TriggerIntegrationRequest struct {
	SourceModule string         `json:"source_module" validate:"required"`
	SourceID     string         `json:"source_id"     validate:"required"`
	Data         map[string]any `json:"data"`
}

// SuggestionsRequest asks for next-step suggestions for a record.
type SuggestionsRequest struct {
	ModuleType string         `json:"module_type" validate:"required"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data"`
}

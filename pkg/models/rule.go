// Package models defines the domain models for quality-management automation:
// rules, workflow templates, executions and cross-module relationships.
package models

import (
	"time"
)

// AutomationRule is a trigger-condition-action tuple evaluated against domain events.
type AutomationRule struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"           validate:"required,min=3"`
	Description   string                `json:"description"`
	Enabled       bool                  `json:"enabled"`
	TriggerModule string                `json:"trigger_module" validate:"required"`
	TriggerEvent  string                `json:"trigger_event"  validate:"required"`
	Conditions    []AutomationCondition `json:"conditions"     validate:"dive"`
	Actions       []AutomationAction    `json:"actions"        validate:"required,min=1,dive"`
	Priority      int                   `json:"priority"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     time.Time             `json:"created_at"`
}

// Matches reports whether the rule listens to the given module/event pair.
// Disabled rules never match.
func (r *AutomationRule) Matches(module, event string) bool {
	return r.Enabled && r.TriggerModule == module && r.TriggerEvent == event
}

// Clone returns a deep copy of the rule so callers cannot mutate stored state.
func (r *AutomationRule) Clone() *AutomationRule {
	if r == nil {
		return nil
	}

	clone := *r

	clone.Conditions = make([]AutomationCondition, len(r.Conditions))
	for i, c := range r.Conditions {
		clone.Conditions[i] = AutomationCondition{
			Field:    c.Field,
			Operator: c.Operator,
			Value:    cloneValue(c.Value),
		}
	}

	clone.Actions = make([]AutomationAction, len(r.Actions))
	for i, a := range r.Actions {
		clone.Actions[i] = a.Clone()
	}

	return &clone
}

// RulePatch carries a partial update for an AutomationRule. Nil fields are left untouched.
type RulePatch struct {
	Name          *string               `json:"name,omitempty"           validate:"omitempty,min=3"`
	Description   *string               `json:"description,omitempty"`
	Enabled       *bool                 `json:"enabled,omitempty"`
	TriggerModule *string               `json:"trigger_module,omitempty" validate:"omitempty,min=1"`
	TriggerEvent  *string               `json:"trigger_event,omitempty"  validate:"omitempty,min=1"`
	Conditions    []AutomationCondition `json:"conditions,omitempty"     validate:"omitempty,dive"`
	Actions       []AutomationAction    `json:"actions,omitempty"        validate:"omitempty,dive"`
	Priority      *int                  `json:"priority,omitempty"`
}

// Apply merges the patch into rule in place.
func (p RulePatch) Apply(rule *AutomationRule) {
	if p.Name != nil {
		rule.Name = *p.Name
	}

	if p.Description != nil {
		rule.Description = *p.Description
	}

	if p.Enabled != nil {
		rule.Enabled = *p.Enabled
	}

	if p.TriggerModule != nil {
		rule.TriggerModule = *p.TriggerModule
	}

	if p.TriggerEvent != nil {
		rule.TriggerEvent = *p.TriggerEvent
	}

	if p.Conditions != nil {
		rule.Conditions = p.Conditions
	}

	if p.Actions != nil {
		rule.Actions = p.Actions
	}

	if p.Priority != nil {
		rule.Priority = *p.Priority
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}

		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)

		return out
	case map[string]any:
		return CloneData(t)
	default:
		return v
	}
}

// CloneData deep-copies a payload map.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}

	return out
}

package models

// WorkflowTemplate is a named multi-step workflow definition.
type WorkflowTemplate struct {
	ID          string `json:"id"          validate:"required"`
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	// SourceType is the entity type of the record a run starts from. It is the
	// source side of every provenance relationship the run records.
	SourceType        string             `json:"source_type"        validate:"required"`
	Steps             []WorkflowStep     `json:"steps"              validate:"required,min=1,dive"`
	TriggerConditions []TriggerCondition `json:"trigger_conditions" validate:"dive"`
}

// Clone returns a deep copy of the template.
func (w *WorkflowTemplate) Clone() *WorkflowTemplate {
	if w == nil {
		return nil
	}

	clone := *w

	clone.Steps = make([]WorkflowStep, len(w.Steps))
	for i, s := range w.Steps {
		s.RequiredData = append([]string(nil), s.RequiredData...)
		clone.Steps[i] = s
	}

	clone.TriggerConditions = make([]TriggerCondition, len(w.TriggerConditions))
	for i, tc := range w.TriggerConditions {
		clone.TriggerConditions[i] = TriggerCondition{
			ModuleType: tc.ModuleType,
			Event:      tc.Event,
			Conditions: CloneData(tc.Conditions),
		}
	}

	return &clone
}

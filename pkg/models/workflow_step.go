package models

// WorkflowStep is one declared step of a WorkflowTemplate.
type WorkflowStep struct {
	ID   string `json:"id"          validate:"required"`
	Name string `json:"name"        validate:"required"`
	// ModuleType selects the step executor (non-conformance, capa, training).
	ModuleType       string   `json:"module_type" validate:"required"`
	ActionType       string   `json:"action_type"`
	RequiredData     []string `json:"required_data,omitempty"`
	AutoExecute      bool     `json:"auto_execute"`
	ApprovalRequired bool     `json:"approval_required"`
	AssignedRole     string   `json:"assigned_role,omitempty"`
	// Relationship is the label of the edge recorded from the workflow source
	// to the record this step creates. Empty means no edge.
	Relationship string `json:"relationship,omitempty"`
	// LinkBack names a field on the source record that is set to the id of the
	// record this step creates. Empty means no back reference.
	LinkBack string `json:"link_back,omitempty"`
}

// MissingData returns the RequiredData keys that are absent from data.
func (s WorkflowStep) MissingData(data map[string]any) []string {
	var missing []string

	for _, key := range s.RequiredData {
		if v, ok := data[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}

	return missing
}

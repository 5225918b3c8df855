package models

import "slices"

// TriggerCondition declares which module event starts a workflow template.
// Each entry of Conditions is matched by set membership when the expected
// value is a list and by equality otherwise.
type TriggerCondition struct {
	ModuleType string         `json:"module_type" validate:"required"`
	Event      string         `json:"event"       validate:"required"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// Matches reports whether the event satisfies the trigger condition.
func (tc TriggerCondition) Matches(moduleType, event string, data map[string]any) bool {
	if tc.ModuleType != moduleType || tc.Event != event {
		return false
	}

	for key, expected := range tc.Conditions {
		actual := data[key]

		switch want := expected.(type) {
		case []any:
			if !slices.ContainsFunc(want, func(v any) bool { return ValuesEqual(v, actual) }) {
				return false
			}
		case []string:
			s, ok := actual.(string)
			if !ok || !slices.Contains(want, s) {
				return false
			}
		default:
			if !ValuesEqual(expected, actual) {
				return false
			}
		}
	}

	return true
}

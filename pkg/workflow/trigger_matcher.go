package workflow

import (
	"log/slog"

	"github.com/dukex/qmsflow/pkg/models"
)

// TriggerMatcher finds the templates a module event should start.
type TriggerMatcher struct {
	logger *slog.Logger
}

func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match returns the ids of templates with at least one trigger condition
// satisfied by the event, in template order. It has no side effects.
func (tm *TriggerMatcher) Match(templates []*models.WorkflowTemplate, moduleType, event string, data map[string]any) []string {
	matched := make([]string, 0)

	for _, template := range templates {
		for _, condition := range template.TriggerConditions {
			if condition.Matches(moduleType, event, data) {
				tm.logger.Debug("workflow trigger matched",
					"workflow_id", template.ID,
					"module_type", moduleType,
					"event", event)

				matched = append(matched, template.ID)

				break
			}
		}
	}

	return matched
}

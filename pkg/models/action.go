package models

// ActionType selects the executor that runs an AutomationAction.
type ActionType string

const (
	ActionCreateRecord     ActionType = "create_record"
	ActionUpdateRecord     ActionType = "update_record"
	ActionSendNotification ActionType = "send_notification"
	ActionTriggerWorkflow  ActionType = "trigger_workflow"
	ActionAssignUser       ActionType = "assign_user"
)

// ActionTypes lists every supported action type in declaration order.
var ActionTypes = []ActionType{
	ActionCreateRecord,
	ActionUpdateRecord,
	ActionSendNotification,
	ActionTriggerWorkflow,
	ActionAssignUser,
}

// AutomationAction is one step of a rule's reaction. Exactly one payload,
// matching Type, is expected to be set.
type AutomationAction struct {
	Type         ActionType `json:"type"          validate:"required,oneof=create_record update_record send_notification trigger_workflow assign_user"`
	TargetModule string     `json:"target_module"`

	Workflow     *TriggerWorkflowParams `json:"workflow,omitempty"     validate:"required_if=Type trigger_workflow"`
	Record       *RecordParams          `json:"record,omitempty"       validate:"required_if=Type create_record,required_if=Type update_record"`
	Notification *NotificationParams    `json:"notification,omitempty" validate:"required_if=Type send_notification"`
	Assignment   *AssignmentParams      `json:"assignment,omitempty"   validate:"required_if=Type assign_user"`
}

// TriggerWorkflowParams is the payload of a trigger_workflow action.
type TriggerWorkflowParams struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
}

// RecordParams is the payload of create_record and update_record actions.
type RecordParams struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

// NotificationParams is the payload of a send_notification action.
type NotificationParams struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"    validate:"required"`
	Priority   string   `json:"priority"`
}

// AssignmentParams is the payload of an assign_user action. The assignee is
// either the literal User or the payload value found at UserField.
type AssignmentParams struct {
	Field     string `json:"field,omitempty"`
	User      string `json:"user,omitempty"       validate:"required_without=UserField"`
	UserField string `json:"user_field,omitempty"`
}

// AssignedField returns the record field that receives the assignee.
func (p AssignmentParams) AssignedField() string {
	if p.Field == "" {
		return "assigned_to"
	}

	return p.Field
}

// Clone deep-copies the action and its payload.
func (a AutomationAction) Clone() AutomationAction {
	out := a

	if a.Workflow != nil {
		w := *a.Workflow
		out.Workflow = &w
	}

	if a.Record != nil {
		out.Record = &RecordParams{Fields: CloneData(a.Record.Fields)}
	}

	if a.Notification != nil {
		n := *a.Notification
		n.Recipients = append([]string(nil), a.Notification.Recipients...)
		out.Notification = &n
	}

	if a.Assignment != nil {
		as := *a.Assignment
		out.Assignment = &as
	}

	return out
}

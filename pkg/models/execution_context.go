package models

import "time"

// ExecutionStatus is the terminal state of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// StepStatus is the outcome of one step within a run.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusPending   StepStatus = "pending"
	StepStatusSkipped   StepStatus = "skipped"
	StepStatusFailed    StepStatus = "failed"
)

// WorkflowExecution records one run of a WorkflowTemplate.
type WorkflowExecution struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	SourceID   string          `json:"source_id"`
	SourceType string          `json:"source_type"`
	Status     ExecutionStatus `json:"status"`
	Steps      []StepResult    `json:"steps"`
	Data       map[string]any  `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// StepResult records what happened to a single step.
type StepResult struct {
	StepID      string         `json:"step_id"`
	Status      StepStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	MissingData []string       `json:"missing_data,omitempty"`
	TaskID      string         `json:"task_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// PendingTask marks a manual workflow step awaiting a person.
type PendingTask struct {
	ID               string         `json:"id"`
	WorkflowID       string         `json:"workflow_id"`
	ExecutionID      string         `json:"execution_id"`
	StepID           string         `json:"step_id"`
	StepName         string         `json:"step_name"`
	SourceID         string         `json:"source_id"`
	AssignedRole     string         `json:"assigned_role,omitempty"`
	ApprovalRequired bool           `json:"approval_required"`
	Status           string         `json:"status"`
	Data             map[string]any `json:"data,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TaskStatusPending is the status of a freshly created PendingTask.
const TaskStatusPending = "pending"

// ProcessResult summarises one rules-engine event ingestion.
type ProcessResult struct {
	Module string       `json:"module"`
	Event  string       `json:"event"`
	Rules  []RuleResult `json:"rules"`
}

// Fired returns the ids of rules whose conditions all passed.
func (r *ProcessResult) Fired() []string {
	var ids []string

	for _, rr := range r.Rules {
		if rr.Matched {
			ids = append(ids, rr.RuleID)
		}
	}

	return ids
}

// RuleResult is the evaluation outcome of a single rule.
type RuleResult struct {
	RuleID  string         `json:"rule_id"`
	Matched bool           `json:"matched"`
	Actions []ActionResult `json:"actions,omitempty"`
}

// ActionResult is the outcome of a single action. Error is empty on success.
type ActionResult struct {
	Type  ActionType `json:"type"`
	Error string     `json:"error,omitempty"`
}

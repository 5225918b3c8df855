package models

// NotificationLevel is the severity of a user-facing notice.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a fire-and-forget message for end users.
type Notification struct {
	Level      NotificationLevel `json:"level"`
	Message    string            `json:"message"`
	Recipients []string          `json:"recipients,omitempty"`
	Priority   string            `json:"priority,omitempty"`
	Module     string            `json:"module,omitempty"`
	RecordID   string            `json:"record_id,omitempty"`
}

package models

// ConditionOperator identifies how an AutomationCondition compares a payload field.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorInArray     ConditionOperator = "in_array"
)

// CurrentDate is the comparand sentinel meaning "now" for ordering operators.
const CurrentDate = "current_date"

// AutomationCondition is a pure predicate over an event payload.
type AutomationCondition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than in_array"`
	Value    any               `json:"value"`
}

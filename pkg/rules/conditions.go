package rules

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/qmsflow/pkg/models"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	time.DateTime,
	time.DateOnly,
}

// ResolvePath walks a dot separated path through nested maps. Any missing or
// non-map intermediate yields nil.
func ResolvePath(data map[string]any, path string) any {
	var current any = data

	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		current, ok = m[key]
		if !ok {
			return nil
		}
	}

	return current
}

// EvaluateCondition applies a single condition to the payload. It never
// panics and has no side effects. now is used for the current_date sentinel.
func EvaluateCondition(condition models.AutomationCondition, data map[string]any, now time.Time) bool {
	value := ResolvePath(data, condition.Field)

	switch condition.Operator {
	case models.OperatorEquals:
		return models.ValuesEqual(value, condition.Value)
	case models.OperatorNotEquals:
		return !models.ValuesEqual(value, condition.Value)
	case models.OperatorContains:
		return strings.Contains(models.StringOf(value), models.StringOf(condition.Value))
	case models.OperatorGreaterThan:
		cmp, ok := compare(value, condition.Value, now)

		return ok && cmp > 0
	case models.OperatorLessThan:
		cmp, ok := compare(value, condition.Value, now)

		return ok && cmp < 0
	case models.OperatorInArray:
		return inArray(value, condition.Value)
	default:
		return false
	}
}

// EvaluateConditions reports whether every condition passes, stopping at the
// first failure.
func EvaluateConditions(conditions []models.AutomationCondition, data map[string]any, now time.Time) bool {
	for _, condition := range conditions {
		if !EvaluateCondition(condition, data, now) {
			return false
		}
	}

	return true
}

// compare orders value against comparand. Numbers and numeric strings
// compare numerically, dates chronologically. Against current_date a number
// is read as epoch milliseconds. ok is false when the pair cannot be ordered.
func compare(value, comparand any, now time.Time) (int, bool) {
	if comparand == models.CurrentDate {
		if ms, ok := models.ToFloat64(value); ok {
			return time.UnixMilli(int64(ms)).Compare(now), true
		}

		t, ok := parseTime(value)
		if !ok {
			return 0, false
		}

		return t.Compare(now), true
	}

	a, aNum := toNumber(value)
	b, bNum := toNumber(comparand)

	if aNum && bNum {
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}

	at, ok := parseTime(value)
	if !ok {
		return 0, false
	}

	bt, ok := parseTime(comparand)
	if !ok {
		return 0, false
	}

	return at.Compare(bt), true
}

// toNumber is ToFloat64 that also accepts numeric strings.
func toNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

		return f, err == nil
	}

	return models.ToFloat64(v)
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range dateLayouts {
			parsed, err := time.Parse(layout, t)
			if err == nil {
				return parsed, true
			}
		}
	}

	return time.Time{}, false
}

func inArray(value, comparand any) bool {
	if comparand == nil {
		return false
	}

	list := reflect.ValueOf(comparand)
	if list.Kind() != reflect.Slice && list.Kind() != reflect.Array {
		return false
	}

	for i := range list.Len() {
		if models.ValuesEqual(list.Index(i).Interface(), value) {
			return true
		}
	}

	return false
}

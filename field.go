package dashboard

import (
	"fmt"
	"time"

	"github.com/oklahomer/go-sarah-dashboard/settings"
)

// HTML input types the settings form renders.
// HTMLTypeFloat is not an HTML type: it marks a number input that accepts decimals.
const (
	HTMLTypeNumber        = "number"
	HTMLTypeFloat         = "float"
	HTMLTypeText          = "text"
	HTMLTypeDateTimeLocal = "datetime-local"
	HTMLTypeDate          = "date"
	HTMLTypeTime          = "time"
	HTMLTypeCheckbox      = "checkbox"
)

// fieldRule projects one settings.Type onto an HTML input and back.
type fieldRule struct {
	htmlType string

	// render returns the value for the input: a bool for checkboxes, a string otherwise.
	render func(value any) (any, error)

	// parse coerces the submitted field. current is the setting's value before the submission.
	parse func(field string, current any) (any, error)
}

var fieldRules = map[settings.Type]fieldRule{
	settings.TypeInteger: {
		htmlType: HTMLTypeNumber,
		render:   formatLiteral(settings.TypeInteger),
		parse:    parseLiteral(settings.TypeInteger),
	},
	settings.TypeFloat: {
		htmlType: HTMLTypeFloat,
		render:   formatLiteral(settings.TypeFloat),
		parse:    parseLiteral(settings.TypeFloat),
	},
	settings.TypeString: {
		htmlType: HTMLTypeText,
		render:   passThrough,
		parse: func(field string, _ any) (any, error) {
			return field, nil
		},
	},
	settings.TypeBool: {
		htmlType: HTMLTypeCheckbox,
		render:   passThrough,
		parse: func(field string, _ any) (any, error) {
			return field == "true", nil
		},
	},
	settings.TypeDateTime: {
		htmlType: HTMLTypeDateTimeLocal,
		render:   formatWallClock(settings.TypeDateTime),
		parse:    inZoneOfCurrent(settings.TypeDateTime),
	},
	settings.TypeDate: {
		htmlType: HTMLTypeDate,
		render:   formatLiteral(settings.TypeDate),
		parse:    parseLiteral(settings.TypeDate),
	},
	settings.TypeTime: {
		htmlType: HTMLTypeTime,
		render:   formatWallClock(settings.TypeTime),
		parse:    inZoneOfCurrent(settings.TypeTime),
	},
	settings.TypeStringList: {
		htmlType: HTMLTypeText,
		render:   formatLiteral(settings.TypeStringList),
		parse:    parseLiteral(settings.TypeStringList),
	},
}

// HTMLType returns the input type used to edit settings of type t.
// Types without a rule are edited as text.
func HTMLType(t settings.Type) string {
	if rule, ok := fieldRules[t]; ok {
		return rule.htmlType
	}
	return HTMLTypeText
}

// HTMLValue returns value as the input of a setting of type t expects it.
func HTMLValue(t settings.Type, value any) (any, error) {
	rule, ok := fieldRules[t]
	if !ok {
		return t.Format(value)
	}
	return rule.render(value)
}

// ParseField coerces a submitted form field to the Go type backing t.
// current is the setting's value before the submission; date-time and time fields,
// which carry no zone, are read in the zone of current. It may be nil.
func ParseField(t settings.Type, field string, current any) (any, error) {
	rule, ok := fieldRules[t]
	if !ok {
		return nil, fmt.Errorf("no form rule for setting type %s", t)
	}
	return rule.parse(field, current)
}

func passThrough(value any) (any, error) {
	return value, nil
}

func parseLiteral(t settings.Type) func(string, any) (any, error) {
	return func(field string, _ any) (any, error) {
		return t.Parse(field)
	}
}

func formatLiteral(t settings.Type) func(any) (any, error) {
	return func(value any) (any, error) {
		return t.Format(value)
	}
}

// formatWallClock drops the zone of a time value, as date and time inputs carry none.
func formatWallClock(t settings.Type) func(any) (any, error) {
	return func(value any) (any, error) {
		tm, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%T is not a valid %s value", value, t)
		}
		wall := time.Date(tm.Year(), tm.Month(), tm.Day(), tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond(), time.UTC)
		return t.Format(wall)
	}
}

// inZoneOfCurrent reads a wall-clock field in the zone of the setting's current value.
// Fields that carry their own offset are kept as they are.
func inZoneOfCurrent(t settings.Type) func(string, any) (any, error) {
	return func(field string, current any) (any, error) {
		value, err := t.Parse(field)
		if err != nil {
			return nil, err
		}

		tm := value.(time.Time)
		prev, ok := current.(time.Time)
		if !ok || tm.Location() != time.UTC || prev.Location() == time.UTC {
			return tm, nil
		}
		return time.Date(tm.Year(), tm.Month(), tm.Day(), tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond(), prev.Location()), nil
	}
}

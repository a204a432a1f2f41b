package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is the declared type of a Setting's value.
type Type int

const (
	TypeString Type = iota
	TypeInteger
	TypeFloat
	TypeBool
	TypeDateTime
	TypeDate
	TypeTime
	TypeStringList
)

// Types lists every supported Type.
var Types = []Type{
	TypeString,
	TypeInteger,
	TypeFloat,
	TypeBool,
	TypeDateTime,
	TypeDate,
	TypeTime,
	TypeStringList,
}

// Layouts used for the canonical literal of date and time values.
// Fractional seconds are omitted when zero.
// Values outside UTC keep their offset.
const (
	DateTimeLayout  = "2006-01-02T15:04:05.999999999"
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05.999999999"
	ZonedTimeLayout = "15:04:05.999999999Z07:00"
)

var typeNames = map[Type]string{
	TypeString:     "string",
	TypeInteger:    "integer",
	TypeFloat:      "float",
	TypeBool:       "boolean",
	TypeDateTime:   "datetime",
	TypeDate:       "date",
	TypeTime:       "time",
	TypeStringList: "list",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType returns the Type whose String() equals name.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown setting type %q", name)
}

// Check reports whether value is of the Go type backing t.
func (t Type) Check(value any) error {
	ok := false
	switch t {
	case TypeString:
		_, ok = value.(string)
	case TypeInteger:
		_, ok = value.(int64)
	case TypeFloat:
		var f float64
		if f, ok = value.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			return fmt.Errorf("%v is not a finite %s value", f, t)
		}
	case TypeBool:
		_, ok = value.(bool)
	case TypeDateTime, TypeDate, TypeTime:
		_, ok = value.(time.Time)
	case TypeStringList:
		_, ok = value.([]string)
	default:
		return fmt.Errorf("unknown setting type %s", t)
	}
	if !ok {
		return fmt.Errorf("%T is not a valid %s value", value, t)
	}
	return nil
}

// Format returns the canonical literal of value.
func (t Type) Format(value any) (string, error) {
	if err := t.Check(value); err != nil {
		return "", err
	}

	switch t {
	case TypeInteger:
		return strconv.FormatInt(value.(int64), 10), nil
	case TypeFloat:
		return formatFloat(value.(float64)), nil
	case TypeBool:
		return strconv.FormatBool(value.(bool)), nil
	case TypeDateTime:
		tm := value.(time.Time)
		if tm.Location() == time.UTC {
			return tm.Format(DateTimeLayout), nil
		}
		return tm.Format(time.RFC3339Nano), nil
	case TypeDate:
		return value.(time.Time).Format(DateLayout), nil
	case TypeTime:
		tm := value.(time.Time)
		if tm.Location() == time.UTC {
			return tm.Format(TimeLayout), nil
		}
		return tm.Format(ZonedTimeLayout), nil
	case TypeStringList:
		b, err := json.Marshal(value.([]string))
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return value.(string), nil
	}
}

// Parse converts a literal into a value of t. Date and time literals follow ISO 8601;
// values without a UTC offset are returned in UTC.
func (t Type) Parse(literal string) (any, error) {
	switch t {
	case TypeString:
		return literal, nil
	case TypeInteger:
		return strconv.ParseInt(literal, 10, 64)
	case TypeFloat:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return nil, err
		}
		if err := t.Check(f); err != nil {
			return nil, err
		}
		return f, nil
	case TypeBool:
		return strconv.ParseBool(literal)
	case TypeDateTime:
		return parseLayouts(literal, time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02 15:04:05.999999999", "2006-01-02 15:04")
	case TypeDate:
		return parseLayouts(literal, DateLayout)
	case TypeTime:
		return parseLayouts(literal, ZonedTimeLayout, TimeLayout, "15:04")
	case TypeStringList:
		var list []string
		if err := json.Unmarshal([]byte(literal), &list); err != nil {
			return nil, err
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unknown setting type %s", t)
	}
}

func parseLayouts(literal string, layouts ...string) (time.Time, error) {
	var err error
	for _, layout := range layouts {
		var tm time.Time
		tm, err = time.Parse(layout, literal)
		if err == nil {
			return tm, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid ISO 8601 value: %w", literal, err)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

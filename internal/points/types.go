package points

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is the semantic value type of a point.
type Type string

// Point types.
const (
	TypeBoolean Type = "boolean"
	TypeNumber  Type = "number"
	TypeString  Type = "string"
)

// Common roles. Roles are descriptive metadata for the home-automation side.
const (
	RoleButton    = "button"
	RoleValue     = "value"
	RoleIndicator = "indicator"
	RoleSwitch    = "switch"
	RoleLevel     = "level"
	RoleText      = "text"
	RoleChannel   = "channel"
)

// Definition is the metadata of a point without its value.
type Definition struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Role     string `json:"role"`
	Readable bool   `json:"read"`
	Writable bool   `json:"write"`
}

// Point is a definition plus its current cached value.
type Point struct {
	Definition
	Value     any        `json:"val"`
	Ack       bool       `json:"ack"`
	UpdatedAt *time.Time `json:"ts,omitempty"`
}

// Change describes one persisted point mutation, delivered to observers.
type Change struct {
	Point    Point
	Previous any
	Created  bool
}

// Validate checks the definition's address and type.
func (d Definition) Validate() error {
	if err := ValidateAddress(d.Address); err != nil {
		return err
	}
	switch d.Type {
	case TypeBoolean, TypeNumber, TypeString:
	default:
		return fmt.Errorf("%w: unknown type %q for %s", ErrInvalidValue, d.Type, d.Address)
	}
	return nil
}

// ValidateAddress rejects empty addresses, empty segments and MQTT wildcard
// characters.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ContainsAny(address, "/+# ") {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidAddress, address)
	}
	for _, seg := range strings.Split(address, ".") {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidAddress, address)
		}
	}
	return nil
}

// HasPrefix reports whether address equals prefix or lies beneath it on a
// segment boundary ("meta.display" matches "meta.display.width" but not
// "meta.displayX").
func HasPrefix(address, prefix string) bool {
	if prefix == "" {
		return true
	}
	if address == prefix {
		return true
	}
	return strings.HasPrefix(address, prefix+".")
}

// normalizeValue maps numeric types onto float64 so values compare equal
// regardless of whether they came from JSON or from Go code.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	default:
		return v
	}
}

// Coerce converts a user-supplied value to the point's type.
// Strings holding a boolean or number are accepted for those types.
func Coerce(t Type, v any) (any, error) {
	v = normalizeValue(v)
	switch t {
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case float64:
			return b != 0, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, b)
			}
			return parsed, nil
		}
	case TypeNumber:
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n)
			}
			f = parsed
		default:
			return nil, fmt.Errorf("%w: %T for %s point", ErrInvalidValue, v, t)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %v is not a finite number", ErrInvalidValue, f)
		}
		return f, nil
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(s), nil
		}
	}
	return nil, fmt.Errorf("%w: %T for %s point", ErrInvalidValue, v, t)
}

// valuesEqual compares two normalised scalar point values.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch a.(type) {
	case bool, float64, string:
		return a == b
	}
	// Non-scalar values (objects from an unexpected device response)
	// are compared by their JSON encoding.
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(aj) == string(bj)
}

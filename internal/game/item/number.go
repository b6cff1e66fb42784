package item

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Number is a content-supplied float that never fails to decode. Malformed
// values ("lots", lists, NaN) decode to zero; "15%" decodes to 0.15.
type Number float64

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Int returns n rounded to the nearest int.
func (n Number) Int() int { return int(math.Round(float64(n))) }

// UnmarshalYAML implements yaml.Unmarshaler with zero-coercion.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	*n = 0
	if node.Kind != yaml.ScalarNode {
		return nil
	}
	*n = Number(coerceString(node.Value))
	return nil
}

// coerce converts a decoded YAML scalar into a float64, mapping anything that
// is not a finite number to zero.
func coerce(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	case Number:
		f = float64(x)
	case string:
		f = coerceString(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func coerceString(s string) float64 {
	s = strings.TrimSpace(s)
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSuffix(s, "%")
		scale = 0.01
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f * scale
}

// coerceBool reads yes/true/1 style flags; anything else is false.
func coerceBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	default:
		return coerce(v) != 0
	}
}

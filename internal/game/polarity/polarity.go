// Package polarity implements the five-axis advantage system. Each axis preys on
// the next axis around the ring and is preyed on by the previous one; opposing
// grant vectors produce a bounded damage scalar.
package polarity

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Axis identifies one of the five polarity axes.
type Axis int

const (
	Radiant Axis = iota
	Verdant
	Tidal
	Umbral
	Ember
	axisCount
)

// axisNames is indexed by Axis.
var axisNames = [axisCount]string{"radiant", "verdant", "tidal", "umbral", "ember"}

// String returns the lower-case axis name.
func (a Axis) String() string {
	if a < 0 || a >= axisCount {
		return "unknown"
	}
	return axisNames[a]
}

// ParseAxis resolves an axis name case-insensitively.
func ParseAxis(name string) (Axis, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range axisNames {
		if n == name {
			return Axis(i), true
		}
	}
	return 0, false
}

// Axes returns every axis in ring order.
func Axes() []Axis {
	return []Axis{Radiant, Verdant, Tidal, Umbral, Ember}
}

// Prey returns the axis a has advantage over.
func (a Axis) Prey() Axis { return (a + 1) % axisCount }

// Predator returns the axis that has advantage over a.
func (a Axis) Predator() Axis { return (a + axisCount - 1) % axisCount }

const (
	// Weight converts an advantage score into a multiplier delta.
	Weight = 0.10
	// MaxSwing bounds every polarity scalar to [1-MaxSwing, 1+MaxSwing].
	MaxSwing = 0.30
)

// Vector holds one magnitude per axis.
type Vector [axisCount]float64

// Add returns the per-axis sum of v and o.
func (v Vector) Add(o Vector) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] + o[i]
	}
	return out
}

// IsZero reports whether every axis is zero.
func (v Vector) IsZero() bool {
	return v == Vector{}
}

// Get returns the magnitude on axis a.
func (v Vector) Get(a Axis) float64 { return v[a] }

// Advantage scores how strongly v preys on other: Σ v[a]·(other[prey(a)] − other[predator(a)]).
func (v Vector) Advantage(other Vector) float64 {
	score := 0.0
	for _, a := range Axes() {
		score += v[a] * (other[a.Prey()] - other[a.Predator()])
	}
	return score
}

// OffenseScalar is the attacker-side multiplier: grants plus on-hit bias
// against the defender's grants.
//
// Postcondition: result in [1-MaxSwing, 1+MaxSwing]; zero vectors give 1.
func OffenseScalar(attacker, onHitBias, defender Vector) float64 {
	return 1 + clampSwing(attacker.Add(onHitBias).Advantage(defender)*Weight)
}

// DefenseScalar is the defender-side multiplier: defender grants plus defense
// bias against the attacker's grants. Advantage reduces incoming damage.
//
// Postcondition: result in [1-MaxSwing, 1+MaxSwing]; zero vectors give 1.
func DefenseScalar(defender, defenseBias, attacker Vector) float64 {
	return 1 - clampSwing(defender.Add(defenseBias).Advantage(attacker)*Weight)
}

func clampSwing(x float64) float64 {
	if x > MaxSwing {
		return MaxSwing
	}
	if x < -MaxSwing {
		return -MaxSwing
	}
	return x
}

// UnmarshalYAML decodes a mapping of axis name to magnitude. Unknown axes and
// malformed magnitudes are ignored.
func (v *Vector) UnmarshalYAML(node *yaml.Node) error {
	*v = Vector{}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		axis, ok := ParseAxis(node.Content[i].Value)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(node.Content[i+1].Value), 64)
		if err != nil {
			continue
		}
		v[axis] += f
	}
	return nil
}

// MarshalYAML encodes non-zero axes as a mapping.
func (v Vector) MarshalYAML() (any, error) {
	out := make(map[string]float64)
	for _, a := range Axes() {
		if v[a] != 0 {
			out[a.String()] = v[a]
		}
	}
	return out, nil
}

// String renders non-zero axes, e.g. "radiant=1 ember=0.5".
func (v Vector) String() string {
	var parts []string
	for _, a := range Axes() {
		if v[a] != 0 {
			parts = append(parts, fmt.Sprintf("%s=%g", a, v[a]))
		}
	}
	return strings.Join(parts, " ")
}

package platform

import (
	"fmt"
	"sort"
)

// Platform is a machine profile: a set of constraint values (at most one per
// setting) plus execution-time properties. The same type describes both
// execution platforms and the target platform.
type Platform struct {
	// Label is the unique identity of this platform.
	Label Label `json:"label" validate:"required"`

	// constraintValues maps setting label to the value label this platform
	// holds for it. The one-value-per-setting invariant is enforced at
	// construction.
	constraintValues map[Label]Label

	// execProperties are string properties attached to the platform. Keys may
	// carry a "<group>." namespace prefix scoping them to one exec group.
	execProperties map[string]string
}

// NewPlatform constructs a platform from declared constraint value labels and
// exec properties. Each value label must exist in the catalog, and no two
// values may belong to the same constraint setting.
func NewPlatform(catalog *Catalog, label Label, values []Label, execProperties map[string]string) (*Platform, error) {
	if label.IsEmpty() {
		return nil, fmt.Errorf("platform has empty label")
	}
	held := make(map[Label]Label, len(values))
	for _, vl := range values {
		value, ok := catalog.Value(vl)
		if !ok {
			return nil, fmt.Errorf("platform %s references unknown constraint value %s", label, vl)
		}
		if prev, dup := held[value.Setting]; dup {
			return nil, fmt.Errorf("platform %s holds both %s and %s for setting %s",
				label, prev, value.Label, value.Setting)
		}
		held[value.Setting] = value.Label
	}
	props := make(map[string]string, len(execProperties))
	for k, v := range execProperties {
		props[k] = v
	}
	return &Platform{
		Label:            label,
		constraintValues: held,
		execProperties:   props,
	}, nil
}

// ConstraintValue returns the value this platform holds for the given setting.
func (p *Platform) ConstraintValue(setting Label) (Label, bool) {
	v, ok := p.constraintValues[setting]
	return v, ok
}

// ConstraintValues returns the platform's constraint value labels in a stable
// order.
func (p *Platform) ConstraintValues() []Label {
	out := make([]Label, 0, len(p.constraintValues))
	for _, v := range p.constraintValues {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ExecProperties returns a copy of the platform's exec properties.
func (p *Platform) ExecProperties() map[string]string {
	out := make(map[string]string, len(p.execProperties))
	for k, v := range p.execProperties {
		out[k] = v
	}
	return out
}

// ExecProperty returns the raw (possibly group-prefixed) property for key.
func (p *Platform) ExecProperty(key string) (string, bool) {
	v, ok := p.execProperties[key]
	return v, ok
}

package platform

import "fmt"

// Label identifies a declared entity (platform, constraint setting or value,
// toolchain type, toolchain instance, target). Labels are opaque to the
// engine; they are compared by equality and reported verbatim in diagnostics.
type Label string

// String returns the label text.
func (l Label) String() string { return string(l) }

// IsEmpty reports whether the label is unset.
func (l Label) IsEmpty() bool { return l == "" }

// ConstraintSetting is an enumerated dimension along which platforms differ,
// such as an OS family or CPU architecture.
type ConstraintSetting struct {
	// Label is the unique identity of this setting.
	Label Label `json:"label" validate:"required"`

	// DefaultValue is the constraint value assumed for platforms that declare
	// no value for this setting. Empty means the setting has no default.
	DefaultValue Label `json:"default_value,omitempty"`
}

// ConstraintValue is one possible value of a ConstraintSetting.
type ConstraintValue struct {
	// Label is the unique identity of this value.
	Label Label `json:"label" validate:"required"`

	// Setting is the label of the setting this value belongs to. A value
	// belongs to exactly one setting.
	Setting Label `json:"setting" validate:"required"`
}

// Catalog is the immutable index of declared constraint settings and values.
// It is built once from loaded declarations and shared read-only by all
// concurrent resolutions.
type Catalog struct {
	settings map[Label]*ConstraintSetting
	values   map[Label]*ConstraintValue
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		settings: make(map[Label]*ConstraintSetting),
		values:   make(map[Label]*ConstraintValue),
	}
}

// AddSetting registers a constraint setting. Registering the same label twice
// is an error.
func (c *Catalog) AddSetting(s *ConstraintSetting) error {
	if s.Label.IsEmpty() {
		return fmt.Errorf("constraint setting has empty label")
	}
	if _, exists := c.settings[s.Label]; exists {
		return fmt.Errorf("constraint setting %s already declared", s.Label)
	}
	c.settings[s.Label] = s
	return nil
}

// AddValue registers a constraint value. The value's setting must already be
// declared.
func (c *Catalog) AddValue(v *ConstraintValue) error {
	if v.Label.IsEmpty() {
		return fmt.Errorf("constraint value has empty label")
	}
	if _, exists := c.values[v.Label]; exists {
		return fmt.Errorf("constraint value %s already declared", v.Label)
	}
	if _, ok := c.settings[v.Setting]; !ok {
		return fmt.Errorf("constraint value %s references unknown setting %s", v.Label, v.Setting)
	}
	c.values[v.Label] = v
	return nil
}

// Setting looks up a constraint setting by label.
func (c *Catalog) Setting(label Label) (*ConstraintSetting, bool) {
	s, ok := c.settings[label]
	return s, ok
}

// Value looks up a constraint value by label.
func (c *Catalog) Value(label Label) (*ConstraintValue, bool) {
	v, ok := c.values[label]
	return v, ok
}

// Satisfies reports whether the platform meets every required constraint
// value. A required value holds when the platform carries it explicitly, or
// when the platform carries no value for that value's setting and the value is
// the setting's declared default. The predicate is pure: no side effects, no
// ordering sensitivity.
func (c *Catalog) Satisfies(p *Platform, required []Label) (bool, error) {
	for _, label := range required {
		value, ok := c.values[label]
		if !ok {
			return false, fmt.Errorf("unknown constraint value %s", label)
		}
		held, has := p.constraintValues[value.Setting]
		if has {
			if held != value.Label {
				return false, nil
			}
			continue
		}
		setting := c.settings[value.Setting]
		if setting.DefaultValue != value.Label {
			return false, nil
		}
	}
	return true, nil
}

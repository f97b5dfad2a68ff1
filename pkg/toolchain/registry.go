package toolchain

import (
	"fmt"

	"github.com/platforge/platforge/pkg/platform"
)

// Type is an abstract capability (for example a compiler family) that a rule
// can require and a concrete toolchain instance can implement.
type Type struct {
	// Label is the unique identity of this toolchain type.
	Label platform.Label `json:"label" validate:"required"`
}

// Instance is a registered toolchain implementation of a toolchain type.
type Instance struct {
	// Label is the unique identity of this instance.
	Label platform.Label `json:"label" validate:"required"`

	// Type is the toolchain type this instance implements.
	Type platform.Label `json:"type" validate:"required"`

	// ExecCompatibleWith are constraint values the execution platform must
	// satisfy for this instance to run.
	ExecCompatibleWith []platform.Label `json:"exec_compatible_with,omitempty"`

	// TargetCompatibleWith are constraint values the target platform must
	// satisfy for this instance's output to be usable.
	TargetCompatibleWith []platform.Label `json:"target_compatible_with,omitempty"`

	// order is the registration sequence number, kept for debugging output.
	// Correctness never depends on it beyond first-registered-wins.
	order int
}

// Order returns the registration sequence number of this instance.
func (i *Instance) Order() int { return i.order }

// Registry is the immutable-after-load index of toolchain types and their
// registered instances. Lookups are safe for concurrent use once loading has
// finished.
type Registry struct {
	catalog *platform.Catalog
	types   map[platform.Label]*Type
	byType  map[platform.Label][]*Instance
	next    int
}

// NewRegistry creates an empty registry backed by the given constraint
// catalog.
func NewRegistry(catalog *platform.Catalog) *Registry {
	return &Registry{
		catalog: catalog,
		types:   make(map[platform.Label]*Type),
		byType:  make(map[platform.Label][]*Instance),
	}
}

// DeclareType registers a toolchain type. Re-declaring a type is an error.
func (r *Registry) DeclareType(t *Type) error {
	if t.Label.IsEmpty() {
		return fmt.Errorf("toolchain type has empty label")
	}
	if _, exists := r.types[t.Label]; exists {
		return fmt.Errorf("toolchain type %s already declared", t.Label)
	}
	r.types[t.Label] = t
	return nil
}

// Type looks up a declared toolchain type.
func (r *Registry) Type(label platform.Label) (*Type, bool) {
	t, ok := r.types[label]
	return t, ok
}

// Register adds a toolchain instance. The instance's type must be declared
// first. Instances are kept in registration order.
func (r *Registry) Register(inst *Instance) error {
	if inst.Label.IsEmpty() {
		return fmt.Errorf("toolchain instance has empty label")
	}
	if _, ok := r.types[inst.Type]; !ok {
		return fmt.Errorf("toolchain %s implements unknown type %s", inst.Label, inst.Type)
	}
	inst.order = r.next
	r.next++
	r.byType[inst.Type] = append(r.byType[inst.Type], inst)
	return nil
}

// FindCompatible returns the registered instances of the given type whose
// exec_compatible_with is satisfied by execPlatform and whose
// target_compatible_with is satisfied by targetPlatform, in registration
// order. An empty result is valid and means no toolchain of this type is
// available on that platform.
func (r *Registry) FindCompatible(
	typ platform.Label,
	execPlatform *platform.Platform,
	targetPlatform *platform.Platform,
) ([]*Instance, error) {
	if _, ok := r.types[typ]; !ok {
		return nil, fmt.Errorf("unknown toolchain type %s", typ)
	}

	var matches []*Instance
	for _, inst := range r.byType[typ] {
		ok, err := r.catalog.Satisfies(execPlatform, inst.ExecCompatibleWith)
		if err != nil {
			return nil, fmt.Errorf("toolchain %s: %w", inst.Label, err)
		}
		if !ok {
			continue
		}
		if targetPlatform != nil {
			ok, err = r.catalog.Satisfies(targetPlatform, inst.TargetCompatibleWith)
			if err != nil {
				return nil, fmt.Errorf("toolchain %s: %w", inst.Label, err)
			}
			if !ok {
				continue
			}
		}
		matches = append(matches, inst)
	}
	return matches, nil
}

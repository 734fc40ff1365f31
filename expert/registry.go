package expert

import (
	"fmt"
	"strings"

	"github.com/hupe1980/expertpanel/core"
)

// Key identifies an expert role (e.g. TECHNICAL).
type Key string

// Built-in expert roles of the default registry.
const (
	Technical     Key = "TECHNICAL"
	Creative      Key = "CREATIVE"
	Analytical    Key = "ANALYTICAL"
	Communication Key = "COMMUNICATION"

	// Synthesis is the pseudo-role of the final merge step. It has a provider
	// configuration but no registry entry.
	Synthesis Key = "SYNTHESIS"
)

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }

// Definition describes one expert viewpoint.
type Definition struct {
	Key    Key
	Name   string
	Prompt string
}

// StageName returns the graph stage name for the definition, e.g.
// TechnicalExpert for TECHNICAL and DataScienceExpert for DATA_SCIENCE.
func (d Definition) StageName() string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(string(d.Key), func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		r := []rune(strings.ToLower(part))
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	b.WriteString("Expert")
	return b.String()
}

// Registry is an immutable, ordered set of expert definitions.
type Registry struct {
	order []Key
	defs  map[Key]Definition
}

// NewRegistry validates defs and returns a registry preserving their order.
func NewRegistry(defs ...Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("expert registry requires at least one definition")
	}
	r := &Registry{
		order: make([]Key, 0, len(defs)),
		defs:  make(map[Key]Definition, len(defs)),
	}
	for i, d := range defs {
		switch {
		case strings.TrimSpace(string(d.Key)) == "":
			return nil, fmt.Errorf("expert definition %d has an empty key", i)
		case d.Key == Synthesis:
			return nil, fmt.Errorf("expert key %s is reserved", Synthesis)
		case strings.TrimSpace(d.Name) == "":
			return nil, fmt.Errorf("expert %s has an empty name", d.Key)
		case strings.TrimSpace(d.Prompt) == "":
			return nil, fmt.Errorf("expert %s has an empty role prompt", d.Key)
		}
		if _, dup := r.defs[d.Key]; dup {
			return nil, fmt.Errorf("duplicate expert key %s", d.Key)
		}
		r.order = append(r.order, d.Key)
		r.defs[d.Key] = d
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on invalid input. Intended for
// package level initialization of static catalogues.
func MustNewRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the definition registered under key.
func (r *Registry) Lookup(key Key) (Definition, error) {
	d, ok := r.defs[key]
	if !ok {
		return Definition{}, &core.UnknownRoleError{Key: string(key)}
	}
	return d, nil
}

// Has reports whether key is registered.
func (r *Registry) Has(key Key) bool {
	_, ok := r.defs[key]
	return ok
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []Key {
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

// Roles returns the registered keys followed by the Synthesis pseudo-role;
// the full set of roles that need a provider configuration.
func (r *Registry) Roles() []Key {
	return append(r.Keys(), Synthesis)
}

// Definitions returns the definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.defs[k])
	}
	return out
}

// Len returns the number of registered experts.
func (r *Registry) Len() int { return len(r.order) }

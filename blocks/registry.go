package blocks

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKind indicates a second registration of a tag.
	ErrDuplicateKind = errors.New("block kind already registered")
	// ErrUnknownKind indicates a lookup of an unregistered tag.
	ErrUnknownKind = errors.New("unknown block kind")
)

// Registry maps kind tags to their descriptors. It is populated once at
// startup and read-only afterwards; registration order doubles as the
// matching order for extraction, so more specific patterns must be
// registered before general fallbacks.
type Registry struct {
	byTag      map[string]*Kind
	statements []*Kind
	values     []*Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]*Kind)}
}

// Register adds a kind. Registering a tag twice is a startup programming
// error and fails with ErrDuplicateKind.
func (r *Registry) Register(k *Kind) error {
	if k.Tag == "" {
		return fmt.Errorf("register: empty tag")
	}
	if _, ok := r.byTag[k.Tag]; ok {
		return fmt.Errorf("register %q: %w", k.Tag, ErrDuplicateKind)
	}
	r.byTag[k.Tag] = k
	if k.IsValue {
		r.values = append(r.values, k)
	} else {
		r.statements = append(r.statements, k)
	}
	return nil
}

// MustRegister registers a kind, panicking on error. Used by the builtin
// catalog, where a duplicate is fatal before any work starts.
func (r *Registry) MustRegister(k *Kind) {
	if err := r.Register(k); err != nil {
		panic(err)
	}
}

// Lookup returns the kind for a tag.
func (r *Registry) Lookup(tag string) (*Kind, error) {
	k, ok := r.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", tag, ErrUnknownKind)
	}
	return k, nil
}

// StatementKinds returns the statement-shaped kinds in registration order.
func (r *Registry) StatementKinds() []*Kind { return r.statements }

// ValueKinds returns the expression-shaped kinds in registration order.
func (r *Registry) ValueKinds() []*Kind { return r.values }

// Categories returns the distinct categories in first-seen order, for the
// toolbox listing boundary.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range r.all() {
		if k.Category != "" && !seen[k.Category] {
			seen[k.Category] = true
			out = append(out, k.Category)
		}
	}
	return out
}

// KindsIn returns the kinds of one category in registration order.
func (r *Registry) KindsIn(category string) []*Kind {
	var out []*Kind
	for _, k := range r.all() {
		if k.Category == category {
			out = append(out, k)
		}
	}
	return out
}

func (r *Registry) all() []*Kind {
	out := make([]*Kind, 0, len(r.statements)+len(r.values))
	out = append(out, r.statements...)
	out = append(out, r.values...)
	return out
}

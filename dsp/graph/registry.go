package graph

import (
	"errors"
	"fmt"
	"slices"
)

// Factory builds a node around b. It registers the node's automatable
// parameters on b and returns the concrete node embedding b.
type Factory func(b *Base) (Node, error)

// Registry maps node kinds to factories.
type Registry struct {
	factories map[string]Factory
}

var (
	// ErrUnknownKind is returned by CreateNode for unregistered kinds.
	ErrUnknownKind = errors.New("graph: unknown node kind")

	errDuplicateKind = errors.New("graph: duplicate node kind")
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for kind.
func (r *Registry) Register(kind string, factory Factory) error {
	if kind == "" {
		return errors.New("graph: empty node kind")
	}
	if factory == nil {
		return errors.New("graph: nil factory")
	}
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: %s", errDuplicateKind, kind)
	}
	r.factories[kind] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kind string, factory Factory) {
	if err := r.Register(kind, factory); err != nil {
		panic(err.Error())
	}
}

// Lookup returns the factory for kind, or nil.
func (r *Registry) Lookup(kind string) Factory {
	return r.factories[kind]
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

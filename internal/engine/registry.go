package engine

import (
	"fmt"
	"strings"
)

// Factory constructs a fresh node instance.
type Factory func() Node

// Registry maps the closed set of node type identifiers to factories. It is
// populated once at startup and read-only afterwards, so it is safe to share
// across concurrent requests without locking.
type Registry struct {
	order     []string
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a node type. Registering the same identifier twice keeps the
// latest factory but does not duplicate the listing.
func (r *Registry) Register(typeID string, factory Factory) {
	if _, exists := r.factories[typeID]; !exists {
		r.order = append(r.order, typeID)
	}
	r.factories[typeID] = factory
}

// List returns the registered type identifiers in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Create instantiates a node by type identifier, falling back to a
// case-insensitive match. Unknown types return nil; absence is not a fault.
func (r *Registry) Create(typeID string) Node {
	if factory, ok := r.factories[typeID]; ok {
		return factory()
	}
	lower := strings.ToLower(typeID)
	for id, factory := range r.factories {
		if strings.ToLower(id) == lower {
			return factory()
		}
	}
	return nil
}

// Schema returns the schema for one type, or false when unknown.
func (r *Registry) Schema(typeID string) (Schema, bool) {
	node := r.Create(typeID)
	if node == nil {
		return Schema{}, false
	}
	return node.Schema(), true
}

// Schemas builds the full catalog. The query is tolerant to per-type
// construction failure: a panicking factory contributes to the error map
// instead of failing the whole catalog.
func (r *Registry) Schemas() (map[string]Schema, map[string]string) {
	schemas := make(map[string]Schema, len(r.order))
	errs := make(map[string]string)

	for _, typeID := range r.order {
		schema, err := r.schemaOf(typeID)
		if err != nil {
			errs[typeID] = err.Error()
			continue
		}
		schemas[typeID] = schema
	}
	return schemas, errs
}

func (r *Registry) schemaOf(typeID string) (schema Schema, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("schema construction failed: %v", p)
		}
	}()

	node := r.factories[typeID]()
	if node == nil {
		return Schema{}, fmt.Errorf("no schema returned")
	}
	return node.Schema(), nil
}

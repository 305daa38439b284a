// internal/chat/components/registry.go
package components

import (
	"errors"
	"fmt"
)

var ErrBuilderNotRegistered = errors.New("BUILDER_NOT_REGISTERED")

// Builder is a pure mapping from the request context to one UI payload.
// Builders never perform I/O.
type Builder func(ctx *Context) (ChatComponent, error)

// Registry maps component types to builders. A planned type with no builder
// is a programming error, so construction and lookup both fail loud instead
// of skipping silently.
type Registry struct {
	builders map[ComponentType]Builder
}

// NewRegistry wires the full builder set and verifies every known component
// type has one.
func NewRegistry() *Registry {
	r := &Registry{builders: map[ComponentType]Builder{
		TypeQuerySummary:    buildQuerySummary,
		TypeResultCount:     buildResultCount,
		TypeProductCards:    buildProductCards,
		TypeProductTable:    buildProductTable,
		TypeProductBullets:  buildProductBullets,
		TypeProductDetail:   buildProductDetail,
		TypeCompare:         buildCompare,
		TypeRecommendations: buildRecommendations,
		TypeClarify:         buildClarify,
		TypeKnowledgeAnswer: buildKnowledgeAnswer,
		TypeActionResult:    buildActionResult,
		TypeError:           buildError,
	}}

	for _, t := range AllTypes {
		if r.builders[t] == nil {
			panic(fmt.Sprintf("component registry: no builder for %q", t))
		}
	}
	return r
}

// BuilderFor returns the builder for a component type.
func (r *Registry) BuilderFor(t ComponentType) (Builder, error) {
	b, ok := r.builders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBuilderNotRegistered, t)
	}
	return b, nil
}

// BuildComponents invokes one builder per planned type, strictly in planned
// order. The order is part of the UI contract.
func (r *Registry) BuildComponents(types []ComponentType, ctx *Context) ([]ChatComponent, error) {
	out := make([]ChatComponent, 0, len(types))
	for _, t := range types {
		b, err := r.BuilderFor(t)
		if err != nil {
			return nil, err
		}
		component, err := b(ctx)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", t, err)
		}
		out = append(out, component)
	}
	return out, nil
}

// Package source builds the configured content sources from their kinds.
package source

import (
	"errors"
	"fmt"

	"DailySets/internal/config"
	"DailySets/internal/ports"
)

// Factory turns one source definition into a connector.
type Factory func(cfg config.SourceConfig) (ports.ContentSource, error)

// Registry keeps a mapping from source kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory of kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Resolve returns the factory of kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Factory, error) {
	if factory, ok := r.factories[kind]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("source kind %s is not registered", kind)
}

// Build instantiates every definition, in order. All failures are reported together.
func (r *Registry) Build(cfgs []config.SourceConfig) ([]ports.ContentSource, error) {
	sources := make([]ports.ContentSource, 0, len(cfgs))
	var errs []error
	for _, cfg := range cfgs {
		factory, err := r.Resolve(cfg.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", cfg.ID, err))
			continue
		}
		src, err := factory(cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", cfg.ID, err))
			continue
		}
		sources = append(sources, src)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return sources, nil
}

// Filter keeps the sources whose id is listed; an empty list keeps all.
func Filter(sources []ports.ContentSource, ids []string) []ports.ContentSource {
	if len(ids) == 0 {
		return sources
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	kept := make([]ports.ContentSource, 0, len(ids))
	for _, src := range sources {
		if _, ok := want[src.ID()]; ok {
			kept = append(kept, src)
		}
	}
	return kept
}

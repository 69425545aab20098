package config

import (
	"context"
	"fmt"

	"DailySets/internal/domain"
	"DailySets/internal/ports"
	"DailySets/internal/selection"
)

// ModeCatalog serves the configured modes to the generator.
type ModeCatalog struct {
	modes []domain.Mode
}

var _ ports.ModeCatalog = (*ModeCatalog)(nil)

// NewModeCatalog resolves strategies and default targets of the active modes.
func NewModeCatalog(cfgs []ModeConfig) (*ModeCatalog, error) {
	modes := make([]domain.Mode, 0, len(cfgs))
	for _, m := range cfgs {
		if !m.IsActive() {
			continue
		}
		strategy, err := selection.ParseStrategy(m.Strategy)
		if err != nil {
			return nil, fmt.Errorf("mode %s: %w", m.ID, err)
		}

		target := m.Target
		if target == 0 {
			target = strategy.DefaultTarget()
		}
		poolSize := m.PoolSize
		if poolSize == 0 && strategy == selection.RoundRobinBalance {
			poolSize = 50
		}

		modes = append(modes, domain.Mode{
			ID:         m.ID,
			Title:      m.Title,
			Strategy:   strategy.String(),
			Target:     target,
			PoolSize:   poolSize,
			Categories: m.Categories,
		})
	}
	return &ModeCatalog{modes: modes}, nil
}

// ActiveModes returns the configured active modes in configuration order.
func (c *ModeCatalog) ActiveModes(_ context.Context) ([]domain.Mode, error) {
	out := make([]domain.Mode, len(c.modes))
	copy(out, c.modes)
	return out, nil
}

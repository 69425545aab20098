package selection

import (
	"fmt"
	"strings"
)

// Strategy is the closed set of balancing policies a mode can be configured with.
type Strategy int

const (
	// BinaryBalance takes Target/2 freshest items from each of two categories.
	BinaryBalance Strategy = iota + 1
	// RoundRobinBalance cycles categories of the freshest PoolSize items,
	// drawing one random item per category per round.
	RoundRobinBalance
	// FreshnessFallback takes the Target freshest items regardless of category.
	FreshnessFallback
)

const (
	binaryName     = "binary"
	roundRobinName = "round_robin"
	freshnessName  = "freshness"
)

func (s Strategy) String() string {
	switch s {
	case BinaryBalance:
		return binaryName
	case RoundRobinBalance:
		return roundRobinName
	case FreshnessFallback:
		return freshnessName
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case binaryName, "binary_balance", "two_category":
		return BinaryBalance, nil
	case roundRobinName, "round-robin", "roundrobin":
		return RoundRobinBalance, nil
	case freshnessName, "fallback", "freshness_fallback":
		return FreshnessFallback, nil
	default:
		return 0, fmt.Errorf("unknown selection strategy %q", value)
	}
}

// DefaultTarget is the lineup size used when a mode does not set one.
func (s Strategy) DefaultTarget() int {
	if s == RoundRobinBalance {
		return 10
	}
	return 100
}

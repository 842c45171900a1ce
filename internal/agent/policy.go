package agent

import (
	"context"
	"math/rand"
)

// Policy chooses the next action from an observation.
type Policy interface {
	Act(ctx context.Context, obs Observation) (Action, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, obs Observation) (Action, error)

// Act calls f.
func (f PolicyFunc) Act(ctx context.Context, obs Observation) (Action, error) {
	return f(ctx, obs)
}

// RandomPolicy picks uniformly among the non-noop actions.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy creates a random policy with its own seeded source.
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

// Act implements Policy.
func (p *RandomPolicy) Act(_ context.Context, _ Observation) (Action, error) {
	return Action(1 + p.rng.Intn(NumActions-1)), nil
}

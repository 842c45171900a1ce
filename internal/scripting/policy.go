package scripting

import (
	"context"
	"fmt"
	"os"

	"github.com/vovakirdan/blockfall/internal/agent"
)

// Policy adapts a script to agent.Policy.
type Policy struct {
	vm *VM
}

// NewPolicy compiles source and checks that it defines act(obs).
func NewPolicy(source string) (*Policy, error) {
	vm := NewVM()
	if err := vm.Execute(source); err != nil {
		return nil, err
	}
	return &Policy{vm: vm}, nil
}

// LoadPolicy reads a script file and compiles it.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	p, err := NewPolicy(string(data))
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return p, nil
}

// Act implements agent.Policy.
func (p *Policy) Act(ctx context.Context, obs agent.Observation) (agent.Action, error) {
	if err := ctx.Err(); err != nil {
		return agent.ActionNoop, err
	}
	return p.vm.CallAct(obs)
}

// VM exposes the underlying runtime, e.g. to read script logs.
func (p *Policy) VM() *VM {
	return p.vm
}

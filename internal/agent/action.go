// Package agent exposes the engine to automated players through a narrow,
// data-only contract: a small discrete action space, a fixed-shape
// observation and a shaped reward per step.
package agent

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/blockfall/internal/core"
)

// ErrInvalidAction is returned for action indices outside the action space.
var ErrInvalidAction = errors.New("agent: invalid action")

// Action is an index into the discrete action space.
type Action int

const (
	ActionNoop Action = iota
	ActionLeft
	ActionRight
	ActionRotate
	ActionSoftDrop
	ActionHardDrop
)

// NumActions is the size of the action space.
const NumActions = 6

// ParseAction validates a raw action index.
func ParseAction(n int) (Action, error) {
	if n < 0 || n >= NumActions {
		return ActionNoop, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidAction, n, NumActions-1)
	}
	return Action(n), nil
}

// Core maps the action to the engine command it issues.
func (a Action) Core() core.Action {
	switch a {
	case ActionLeft:
		return core.ActionLeft
	case ActionRight:
		return core.ActionRight
	case ActionRotate:
		return core.ActionRotate
	case ActionSoftDrop:
		return core.ActionSoftDrop
	case ActionHardDrop:
		return core.ActionHardDrop
	default:
		return core.ActionNone
	}
}

func (a Action) String() string {
	if a == ActionNoop {
		return "Noop"
	}
	if a < 0 || a >= NumActions {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return a.Core().String()
}

package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/vovakirdan/blockfall/internal/agent"
)

// observationValue is the plain object passed to act(). The board is a flat
// row-major array; cell(x, y) reads it with bounds checks.
func observationValue(obs agent.Observation) map[string]any {
	board := make([]any, len(obs.Board))
	for i, v := range obs.Board {
		board[i] = int(v)
	}
	return map[string]any{
		"width":       obs.Width,
		"height":      obs.Height,
		"board":       board,
		"active_kind": int(obs.ActiveKind),
		"next_kind":   int(obs.NextKind),
		"rotation":    obs.Rotation,
		"x":           obs.X,
		"y":           obs.Y,
		"cell": func(x, y int) int {
			return int(obs.At(x, y))
		},
	}
}

// toAction accepts an action index or a case-insensitive name such as
// "left" or "hard_drop".
func toAction(v goja.Value) (agent.Action, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return agent.ActionNoop, nil
	}
	switch exported := v.Export().(type) {
	case int64:
		return agent.ParseAction(int(exported))
	case float64:
		if exported != float64(int(exported)) {
			return agent.ActionNoop, fmt.Errorf("%w: %v", agent.ErrInvalidAction, exported)
		}
		return agent.ParseAction(int(exported))
	case string:
		want := strings.ReplaceAll(strings.ToLower(exported), "_", "")
		for i := 0; i < agent.NumActions; i++ {
			if strings.ToLower(agent.Action(i).String()) == want {
				return agent.Action(i), nil
			}
		}
		return agent.ActionNoop, fmt.Errorf("%w: %q", agent.ErrInvalidAction, exported)
	default:
		return agent.ActionNoop, fmt.Errorf("%w: act() returned %T", agent.ErrInvalidAction, exported)
	}
}

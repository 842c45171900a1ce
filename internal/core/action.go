package core

// Action is a semantic command, abstracted from physical key presses and from
// the numeric action space used by automated agents.
type Action int

const (
	ActionNone     Action = iota
	ActionLeft            // Left arrow, A - shift piece one column left
	ActionRight           // Right arrow, D - shift piece one column right
	ActionRotate          // Up arrow, W - rotate clockwise
	ActionSoftDrop        // Down arrow, S - move one row down
	ActionHardDrop        // Space - drop to the floor and lock
	ActionPause           // P - pause/resume
	ActionTick            // Gravity; issued by a timer, never by a key
	ActionRestart         // R - start a new game
	ActionQuit            // Q, Ctrl+C - leave the driver
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionLeft:
		return "Left"
	case ActionRight:
		return "Right"
	case ActionRotate:
		return "Rotate"
	case ActionSoftDrop:
		return "SoftDrop"
	case ActionHardDrop:
		return "HardDrop"
	case ActionPause:
		return "Pause"
	case ActionTick:
		return "Tick"
	case ActionRestart:
		return "Restart"
	case ActionQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

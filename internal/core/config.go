package core

import "time"

// RuntimeConfig contains the parameters a driver passes to an engine at
// (re)start. Seed 0 means the driver picks a time-based seed.
type RuntimeConfig struct {
	Seed int64 // RNG seed for deterministic piece sequences
}

// Resolved returns a copy with a concrete seed, drawing one from the clock
// when Seed is 0.
func (c RuntimeConfig) Resolved() RuntimeConfig {
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

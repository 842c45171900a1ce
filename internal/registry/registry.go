// Package registry provides a global registry of named rule variants.
// Variants register themselves in init() functions, allowing the CLI and the
// env server to build games by name without hardcoded dependencies.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/blockfall/internal/config"
)

// Variant describes a named rule set.
type Variant struct {
	// ID is the unique name used on the command line (e.g., "marathon").
	ID string
	// Title is a human-readable name for display.
	Title string
	// Description summarizes how the variant differs from the others.
	Description string
}

// Factory returns a fresh copy of a variant's rules.
type Factory func() config.Rules

type entry struct {
	info    Variant
	factory Factory
}

var (
	variants = make(map[string]entry)
	mu       sync.RWMutex
)

// Register adds a variant to the registry.
// Panics if a variant with the same ID is already registered or its rules
// do not validate.
func Register(v Variant, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := variants[v.ID]; exists {
		panic(fmt.Sprintf("registry: variant %q already registered", v.ID))
	}
	if err := f().Validate(); err != nil {
		panic(fmt.Sprintf("registry: variant %q has invalid rules: %v", v.ID, err))
	}

	variants[v.ID] = entry{info: v, factory: f}
}

// List returns all registered variants, sorted by ID.
func List() []Variant {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]Variant, 0, len(variants))
	for _, e := range variants {
		result = append(result, e.info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Rules returns a fresh copy of a variant's rules.
// Returns an error if the variant ID is not registered.
func Rules(id string) (config.Rules, error) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := variants[id]
	if !ok {
		return config.Rules{}, fmt.Errorf("registry: unknown variant %q", id)
	}

	return e.factory(), nil
}

// Lookup returns the metadata of a registered variant.
func Lookup(id string) (Variant, bool) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := variants[id]
	return e.info, ok
}

// Exists checks if a variant with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := variants[id]
	return ok
}

package prepare

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// Recipe bundles a Plan with the files it reads and writes.
type Recipe struct {
	Name        string // Unique identifier: "paralympics"
	Description string

	RawFile       string           // Raw table file name, relative to the data directory
	ReferenceFile string           // Reference table file name, relative to the data directory
	OutputFile    string           // Prepared table file name, relative to the data directory
	Reference     core.ReadOptions // How the reference file is read

	Plan Plan
}

// ErrUnknownRecipe is returned by Lookup for names that are not registered.
var ErrUnknownRecipe = errors.New("unknown recipe")

var (
	registry   = make(map[string]Recipe)
	registryMu sync.RWMutex
)

// Register adds a recipe to the registry.
// Panics if a recipe with the same name is already registered or the plan is invalid.
func Register(r Recipe) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[r.Name]; exists {
		panic(fmt.Sprintf("recipe already registered: %s", r.Name))
	}
	if err := r.Plan.Validate(); err != nil {
		panic(fmt.Sprintf("recipe %s: %v", r.Name, err))
	}

	registry[r.Name] = r
}

// Lookup returns a recipe by name.
func Lookup(name string) (Recipe, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	r, ok := registry[name]
	if !ok {
		return Recipe{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
	}
	return r, nil
}

// Recipes returns all registered recipes sorted by name.
func Recipes() []Recipe {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Recipe, 0, len(registry))
	for _, r := range registry {
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Clear removes all registered recipes.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Recipe)
}

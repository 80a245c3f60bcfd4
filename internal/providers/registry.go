// Package providers holds the provider registry: the data sources TVL
// can be fetched from, keyed by the names protocol descriptors and the
// --provider flag refer to.
package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"tvltracker/internal/tvl"
)

// Registry maps provider names to implementations. Like the protocol
// registry it is populated at startup and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]tvl.Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]tvl.Provider),
	}
}

// Register adds a provider under its own Name (case-insensitive).
// Registering an existing name fails with *tvl.DuplicateProviderError.
func (r *Registry) Register(p tvl.Provider) error {
	if p == nil {
		return fmt.Errorf("provider must not be nil")
	}
	name := strings.TrimSpace(p.Name())
	if name == "" {
		return fmt.Errorf("provider name must not be empty")
	}

	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[key]; exists {
		return &tvl.DuplicateProviderError{Name: name}
	}

	r.providers[key] = p
	return nil
}

// Get returns the provider registered under name (case-insensitive).
// Returns *tvl.UnknownProviderError when no such provider exists.
func (r *Registry) Get(name string) (tvl.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, &tvl.UnknownProviderError{Name: name}
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

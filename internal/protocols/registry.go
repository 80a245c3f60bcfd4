// Package protocols holds the protocol registry: the set of DeFi protocols
// this tool knows how to look up, each mapped to a default data provider
// and the identifiers that provider needs.
package protocols

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"tvltracker/internal/tvl"
)

// Descriptor describes one trackable protocol. Descriptors are built at
// startup and never modified afterwards.
type Descriptor struct {
	// Name is the registry name, what the user types (e.g. "silo").
	Name string

	// DisplayName is the human-readable protocol name (e.g. "Silo Finance").
	DisplayName string

	// Provider names the default data provider for this protocol.
	Provider string

	// ID carries the provider-facing identifiers.
	ID tvl.Identifier

	// Chains lists the chains the protocol is tracked on. Empty means
	// no restriction: any chain filter is passed through to the provider.
	Chains []string

	// URL points at the protocol's own site, informational only.
	URL string
}

// SupportsChain reports whether the protocol can be queried for chain.
// An empty chain set means all chains are acceptable. Matching is
// case-insensitive because chain names arrive from user input.
func (d Descriptor) SupportsChain(chain string) bool {
	if len(d.Chains) == 0 {
		return true
	}
	for _, c := range d.Chains {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}

// Registry maps protocol names to descriptors. It is written during
// startup and read-only afterwards; the mutex keeps it safe if fetches
// ever run concurrently.
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]Descriptor
}

// NewRegistry creates an empty protocol registry
func NewRegistry() *Registry {
	return &Registry{
		protocols: make(map[string]Descriptor),
	}
}

// Register adds a descriptor to the registry. Names are compared
// case-insensitively; registering an existing name fails with
// *tvl.DuplicateProtocolError rather than overwriting.
func (r *Registry) Register(d Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("protocol name must not be empty")
	}

	key := strings.ToLower(d.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.protocols[key]; exists {
		return &tvl.DuplicateProtocolError{Name: d.Name}
	}

	r.protocols[key] = d
	return nil
}

// Get returns the descriptor registered under name (case-insensitive).
// Returns *tvl.UnknownProtocolError when no such protocol exists.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.protocols[strings.ToLower(name)]
	if !ok {
		return Descriptor{}, &tvl.UnknownProtocolError{Name: name}
	}
	return d, nil
}

// All returns every registered descriptor in a fresh slice, sorted
// alphabetically by name so listings are deterministic.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Descriptor, 0, len(r.protocols))
	for _, d := range r.protocols {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}

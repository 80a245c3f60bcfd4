package tvl

import (
	"context"
	"time"
)

// Identifier holds the provider-facing lookup identifiers for a protocol.
// Different providers address the same protocol differently: DefiLlama's
// protocol endpoint wants a slug ("silo-finance") while its yields endpoint
// wants a project name ("silo-v2"). Subgraph providers ignore both and
// query by pool symbol instead.
type Identifier struct {
	// Slug identifies the protocol on aggregate/protocol endpoints.
	Slug string

	// Project identifies the protocol on per-pool endpoints.
	Project string
}

// Provider is the core interface that all TVL data providers must implement.
// Each provider knows how to retrieve raw pool-level TVL data for a protocol
// from one upstream data source.
type Provider interface {
	// Name returns the registry name of this provider.
	// Examples:
	//   - defillama
	//   - kingdom-subgraph
	//   - swapx-subgraph
	Name() string

	// FetchRaw retrieves raw pool data for the protocol identified by id,
	// optionally narrowed to a single chain (empty chain means all chains
	// the source reports). Returns an error if the fetch operation fails;
	// an empty pool list is a valid result, not an error.
	FetchRaw(ctx context.Context, id Identifier, chain string) (*RawData, error)
}

// RawPool is a single pool-level TVL entry as reported by a provider,
// before normalization.
type RawPool struct {
	// Chain is the network the pool lives on (e.g. "sonic", "ethereum").
	Chain string

	// Name is the pool or token-pair label (e.g. "USDC-WETH").
	Name string

	// TVLUSD is the pool's total value locked in US dollars.
	TVLUSD float64

	// APY is the pool's annual percentage yield, if the source reports one.
	// Zero when unknown.
	APY float64
}

// RawData is a provider response: the pools it reported plus the moment
// the data was obtained. Cached as-is so cache hits keep their original
// fetch timestamp.
type RawData struct {
	Pools     []RawPool
	FetchedAt time.Time
}

// Record is a normalized TVL data point, the unit of output.
// Records are assembled once from raw provider data and never mutated.
type Record struct {
	Protocol  string    `json:"protocol"`
	Chain     string    `json:"chain"`
	Pool      string    `json:"pool"`
	TVLUSD    float64   `json:"tvl_usd"`
	APY       float64   `json:"apy"`
	Provider  string    `json:"provider"`
	FetchedAt time.Time `json:"fetched_at"`
}

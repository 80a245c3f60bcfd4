package subgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tvltracker/internal/ratelimit"
	"tvltracker/internal/tvl"
)

// KingdomProviderName is the registry name of the Kingdom subgraph provider.
const KingdomProviderName = "kingdom-subgraph"

// The subgraph indexes Sonic only, so rows are labeled sonic when the
// caller passes no chain.
const kingdomDefaultChain = "sonic"

// kingdomSymbolFilter narrows the pool listing server-side. Without a
// filter the subgraph would return every pool it indexes; USD-paired
// pools are the ones worth ranking.
const kingdomSymbolFilter = "USD"

// kingdomPool mirrors the clPools entity fields we query. Graph-node
// serializes BigDecimal and BigInt values as strings.
type kingdomPool struct {
	ID                  string `json:"id"`
	Liquidity           string `json:"liquidity"`
	TotalValueLockedUSD string `json:"totalValueLockedUSD"`
	Tick                string `json:"tick"`
	Symbol              string `json:"symbol"`
	VolumeUSD           string `json:"volumeUSD"`
	FeeTier             string `json:"feeTier"`
}

type kingdomData struct {
	CLPools []kingdomPool `json:"clPools"`
}

// KingdomProvider serves TVL data for protocols indexed by the Kingdom
// subgraph.
type KingdomProvider struct {
	client *client
}

// NewKingdom creates a Kingdom subgraph provider for the given endpoint
func NewKingdom(endpoint string, timeout time.Duration) *KingdomProvider {
	return &KingdomProvider{
		client: newClient(endpoint, "", KingdomProviderName, ratelimit.APIKingdom, timeout),
	}
}

// Name implements the tvl.Provider interface
func (p *KingdomProvider) Name() string {
	return KingdomProviderName
}

// FetchRaw implements the tvl.Provider interface. The protocol identifier
// is not part of the query: the subgraph serves a single protocol's pools,
// ranked by TVL.
func (p *KingdomProvider) FetchRaw(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
	var data kingdomData
	if err := p.client.execute(ctx, kingdomQuery(kingdomSymbolFilter), &data); err != nil {
		return nil, err
	}

	label := chain
	if label == "" {
		label = kingdomDefaultChain
	}

	pools := make([]tvl.RawPool, 0, len(data.CLPools))
	for _, pool := range data.CLPools {
		tvlUSD, err := strconv.ParseFloat(pool.TotalValueLockedUSD, 64)
		if err != nil {
			slog.Warn("skipping pool with malformed TVL",
				"provider", KingdomProviderName,
				"pool", pool.Symbol,
				"value", pool.TotalValueLockedUSD)
			continue
		}

		name := pool.Symbol
		if name == "" {
			name = pool.ID
		}

		pools = append(pools, tvl.RawPool{
			Chain:  label,
			Name:   name,
			TVLUSD: tvlUSD,
		})
	}

	return &tvl.RawData{
		Pools:     pools,
		FetchedAt: time.Now(),
	}, nil
}

func kingdomQuery(symbolFilter string) string {
	return fmt.Sprintf(`query {
  clPools(orderBy: totalValueLockedUSD, orderDirection: desc, where: { symbol_contains_nocase: %q }) {
    id
    liquidity
    totalValueLockedUSD
    tick
    symbol
    volumeUSD
    feeTier
  }
}`, symbolFilter)
}

package defillama

import (
	"context"
	"strings"
	"time"

	"tvltracker/internal/tvl"
)

// aggregatePoolName labels the single synthetic pool produced when only
// protocol-level data is available.
const aggregatePoolName = "All Pools (Aggregate)"

// Breakdown entries in currentChainTvls that are not chains.
var aggregateSkip = map[string]bool{
	"staking":  true,
	"pool2":    true,
	"borrowed": true,
}

// Provider serves TVL data from DefiLlama.
type Provider struct {
	client *Client
}

// New creates a DefiLlama provider backed by client
func New(client *Client) *Provider {
	return &Provider{client: client}
}

// Name implements the tvl.Provider interface
func (p *Provider) Name() string {
	return ProviderName
}

// FetchRaw implements the tvl.Provider interface. It prefers pool-level
// rows from the yields API, filtered to the protocol's project name and
// the requested chain. When the yields listing has nothing for the
// protocol it falls back to the protocol endpoint and reports a single
// aggregate entry, so a protocol that is absent from the yields index
// still gets a TVL figure.
func (p *Provider) FetchRaw(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
	rows, err := p.client.Pools(ctx)
	if err != nil {
		return nil, err
	}

	var pools []tvl.RawPool
	for _, row := range rows {
		if !strings.EqualFold(row.Project, id.Project) {
			continue
		}
		if chain != "" && !strings.EqualFold(row.Chain, chain) {
			continue
		}
		pools = append(pools, tvl.RawPool{
			Chain:  row.Chain,
			Name:   poolLabel(row),
			TVLUSD: row.TVLUSD,
			APY:    row.APY,
		})
	}

	if len(pools) == 0 {
		aggregate, err := p.aggregate(ctx, id.Slug, chain)
		if err != nil {
			return nil, err
		}
		pools = []tvl.RawPool{aggregate}
	}

	return &tvl.RawData{
		Pools:     pools,
		FetchedAt: time.Now(),
	}, nil
}

// aggregate builds the fallback entry from protocol-level data. With a
// chain filter it reports that chain's TVL (zero when the protocol has
// no presence there); without one it sums the per-chain figures,
// skipping the breakdown entries that would double-count.
func (p *Provider) aggregate(ctx context.Context, slug, chain string) (tvl.RawPool, error) {
	info, err := p.client.ProtocolInfo(ctx, slug)
	if err != nil {
		return tvl.RawPool{}, err
	}

	pool := tvl.RawPool{
		Chain: "All",
		Name:  aggregatePoolName,
	}

	if chain != "" {
		pool.Chain = chain
		for key, value := range info.CurrentChainTvls {
			if strings.EqualFold(key, chain) {
				pool.TVLUSD = value
				break
			}
		}
		return pool, nil
	}

	for key, value := range info.CurrentChainTvls {
		if aggregateSkip[strings.ToLower(key)] || strings.Contains(key, "-") {
			continue
		}
		pool.TVLUSD += value
	}
	return pool, nil
}

// poolLabel builds the display name for a yields row: the token symbol,
// qualified by poolMeta when the project runs several pools under one
// symbol (e.g. "USDC-0.05%").
func poolLabel(p Pool) string {
	if p.PoolMeta != "" {
		return p.Symbol + "-" + p.PoolMeta
	}
	return p.Symbol
}

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

// SwapXProviderName is the registry name of the SwapX subgraph provider.
const SwapXProviderName = "swapx-subgraph"

const swapxDefaultChain = "sonic"

// swapxQuery lists ichi vaults. The schema exposes token addresses, not
// symbols, and no USD valuation; TVL is estimated from share supply.
const swapxQuery = `query {
  ichiVaults(first: 100, orderDirection: desc) {
    id
    tokenA
    tokenB
    deployer
    vaultCount
    totalSupply
    ampFactor
    twapPeriod
  }
}`

// swapxVault mirrors the ichiVaults entity fields we query.
type swapxVault struct {
	ID          string `json:"id"`
	TokenA      string `json:"tokenA"`
	TokenB      string `json:"tokenB"`
	Deployer    string `json:"deployer"`
	VaultCount  int64  `json:"vaultCount"`
	TotalSupply string `json:"totalSupply"`
	AmpFactor   string `json:"ampFactor"`
	TwapPeriod  string `json:"twapPeriod"`
}

type swapxData struct {
	IchiVaults []swapxVault `json:"ichiVaults"`
}

// SwapXProvider serves TVL data for SwapX ichi vaults via The Graph's
// gateway.
type SwapXProvider struct {
	client *client
}

// NewSwapX creates a SwapX subgraph provider. apiKey authenticates
// against The Graph's gateway; without one, open mirrors still answer
// but the gateway itself rejects queries.
func NewSwapX(endpoint, apiKey string, timeout time.Duration) *SwapXProvider {
	if apiKey == "" {
		slog.Warn("no GRAPH_API_KEY set; SwapX subgraph queries may be rejected",
			"provider", SwapXProviderName)
	}

	return &SwapXProvider{
		client: newClient(endpoint, apiKey, SwapXProviderName, ratelimit.APISwapX, timeout),
	}
}

// Name implements the tvl.Provider interface
func (p *SwapXProvider) Name() string {
	return SwapXProviderName
}

// FetchRaw implements the tvl.Provider interface.
func (p *SwapXProvider) FetchRaw(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
	var data swapxData
	if err := p.client.execute(ctx, swapxQuery, &data); err != nil {
		return nil, err
	}

	label := chain
	if label == "" {
		label = swapxDefaultChain
	}

	pools := make([]tvl.RawPool, 0, len(data.IchiVaults))
	for _, vault := range data.IchiVaults {
		pools = append(pools, tvl.RawPool{
			Chain:  label,
			Name:   vaultPoolName(vault),
			TVLUSD: estimateTVL(vault),
		})
	}

	return &tvl.RawData{
		Pools:     pools,
		FetchedAt: time.Now(),
	}, nil
}

// vaultPoolName labels a vault by its token pair. The subgraph gives
// only contract addresses, so the last six hex digits stand in for
// symbols.
func vaultPoolName(v swapxVault) string {
	return fmt.Sprintf("Token-%s/Token-%s", shortToken(v.TokenA), shortToken(v.TokenB))
}

func shortToken(addr string) string {
	if addr == "" {
		return "Unknown"
	}
	if len(addr) > 6 {
		return addr[len(addr)-6:]
	}
	return addr
}

// estimateTVL derives a dollar figure from vault share supply, which is
// the only size signal the schema exposes. Shares carry 18 decimals and
// most vaults hold dollar-pegged pairs, so supply scaled by 1e6 lands in
// a plausible dollar range. A vault reporting no supply falls back to a
// flat per-vault guess of $100K.
func estimateTVL(v swapxVault) float64 {
	if v.TotalSupply != "" {
		supply, err := strconv.ParseFloat(v.TotalSupply, 64)
		if err == nil {
			return supply / 1e6
		}
		slog.Warn("malformed vault supply",
			"provider", SwapXProviderName,
			"vault", v.ID,
			"value", v.TotalSupply)
	}

	if v.VaultCount > 0 {
		return float64(v.VaultCount) * 100_000
	}

	return 0
}

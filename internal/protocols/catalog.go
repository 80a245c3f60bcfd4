package protocols

import "tvltracker/internal/tvl"

// Provider registry names the catalog binds protocols to.
const (
	ProviderDefiLlama = "defillama"
	ProviderKingdom   = "kingdom-subgraph"
	ProviderSwapX     = "swapx-subgraph"
)

// Defaults returns the built-in protocol catalog. Registration stays
// explicit: main registers these one by one, and adding a protocol means
// adding an entry here.
//
// DefiLlama addresses protocols by two names: the protocol endpoint wants
// the slug, the yields endpoint wants the project. Where the two sources
// track a protocol under different products (silo, aave, beets) the
// identifiers diverge.
func Defaults() []Descriptor {
	return []Descriptor{
		{
			Name:        "aave",
			DisplayName: "Aave v3",
			Provider:    ProviderDefiLlama,
			ID:          tvl.Identifier{Slug: "morpho-aavev3", Project: "aave-v3"},
			URL:         "https://aavev3.morpho.org",
		},
		{
			Name:        "beets",
			DisplayName: "Beets",
			Provider:    ProviderDefiLlama,
			ID:          tvl.Identifier{Slug: "beets-lst", Project: "beets-dex"},
			Chains:      []string{"sonic", "fantom", "optimism"},
			URL:         "https://beets.fi",
		},
		{
			Name:        "curve",
			DisplayName: "Curve Finance",
			Provider:    ProviderDefiLlama,
			ID:          tvl.Identifier{Slug: "curve-dex", Project: "curve-dex"},
			URL:         "https://curve.fi",
		},
		{
			Name:        "euler",
			DisplayName: "Euler",
			Provider:    ProviderDefiLlama,
			ID:          tvl.Identifier{Slug: "euler", Project: "euler"},
			Chains:      []string{"ethereum", "base", "sonic"},
			URL:         "https://www.euler.finance",
		},
		{
			Name:        "pendle",
			DisplayName: "Pendle",
			Provider:    ProviderDefiLlama,
			ID:          tvl.Identifier{Slug: "pendle", Project: "pendle"},
			Chains:      []string{"ethereum", "arbitrum", "bsc", "optimism"},
			URL:         "https://www.pendle.finance",
		},
		{
			Name:        "shadow",
			DisplayName: "Shadow Exchange",
			Provider:    ProviderKingdom,
			ID:          tvl.Identifier{Slug: "shadow", Project: "shadow"},
			Chains:      []string{"sonic"},
			URL:         "https://www.shadow.so",
		},
		{
			Name:        "silo",
			DisplayName: "Silo Finance",
			Provider:    ProviderDefiLlama,
			ID:          tvl.Identifier{Slug: "silo-finance", Project: "silo-v2"},
			Chains:      []string{"sonic", "ethereum", "arbitrum", "optimism", "base", "avalanche"},
			URL:         "https://v2.silo.finance",
		},
		{
			Name:        "swapx",
			DisplayName: "SwapX",
			Provider:    ProviderSwapX,
			ID:          tvl.Identifier{Slug: "swapx", Project: "swapx"},
			Chains:      []string{"sonic"},
			URL:         "https://swapx.fi",
		},
	}
}

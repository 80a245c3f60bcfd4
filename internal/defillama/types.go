package defillama

// Pool is one row of the yields API /pools listing.
type Pool struct {
	Chain    string  `json:"chain"`
	Project  string  `json:"project"`
	Symbol   string  `json:"symbol"`
	PoolID   string  `json:"pool"`
	TVLUSD   float64 `json:"tvlUsd"`
	APY      float64 `json:"apy"`
	PoolMeta string  `json:"poolMeta"`
}

// PoolsResponse is the envelope of the yields API /pools endpoint.
type PoolsResponse struct {
	Status string `json:"status"`
	Data   []Pool `json:"data"`
}

// ProtocolInfo is the subset of the main API /protocol/{slug} response we
// use. CurrentChainTvls maps chain names ("Sonic", "Ethereum") to TVL in
// USD; it also carries non-chain breakdown entries ("staking", "pool2",
// "borrowed", "Sonic-staking") that aggregation must skip.
type ProtocolInfo struct {
	Name             string             `json:"name"`
	CurrentChainTvls map[string]float64 `json:"currentChainTvls"`
}

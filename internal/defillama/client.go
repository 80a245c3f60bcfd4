// Package defillama implements the DefiLlama data provider. It speaks to
// two endpoints: the yields API for pool-level TVL rows and the main API
// for protocol-level aggregates when no pool rows exist.
package defillama

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"tvltracker/internal/ratelimit"
	"tvltracker/internal/tvl"
)

// ProviderName is the registry name of this provider.
const ProviderName = "defillama"

// Client wraps the two DefiLlama APIs.
type Client struct {
	api    *resty.Client
	yields *resty.Client
}

// NewClient creates a DefiLlama client. baseURL is the main API
// (https://api.llama.fi), yieldsURL the yields API (https://yields.llama.fi).
func NewClient(baseURL, yieldsURL string, timeout time.Duration) *Client {
	return &Client{
		api:    tvl.NewHTTPClient(baseURL, timeout),
		yields: tvl.NewHTTPClient(yieldsURL, timeout),
	}
}

// Pools fetches the full yields pool listing. The endpoint has no
// server-side filters; callers narrow the rows themselves.
func (c *Client) Pools(ctx context.Context) ([]Pool, error) {
	if err := ratelimit.GetLimiter().Wait(ctx, ratelimit.APIDefiLlama); err != nil {
		return nil, err
	}

	var result PoolsResponse

	resp, err := c.yields.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/pools")

	if err != nil {
		return nil, tvl.ClassifyTransportError(ProviderName, err)
	}

	if !resp.IsSuccess() {
		return nil, tvl.ClassifyHTTPError(ProviderName, resp.StatusCode())
	}

	if result.Status != "success" {
		return nil, tvl.NewValidationError(ProviderName,
			fmt.Sprintf("pools response status %q", result.Status))
	}

	return result.Data, nil
}

// ProtocolInfo fetches protocol-level TVL data for a DefiLlama slug.
func (c *Client) ProtocolInfo(ctx context.Context, slug string) (*ProtocolInfo, error) {
	if err := ratelimit.GetLimiter().Wait(ctx, ratelimit.APIDefiLlama); err != nil {
		return nil, err
	}

	var result ProtocolInfo

	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&result).
		SetPathParam("slug", slug).
		Get("/protocol/{slug}")

	if err != nil {
		return nil, tvl.ClassifyTransportError(ProviderName, err)
	}

	if !resp.IsSuccess() {
		return nil, tvl.ClassifyHTTPError(ProviderName, resp.StatusCode())
	}

	if result.Name == "" && len(result.CurrentChainTvls) == 0 {
		return nil, tvl.NewValidationError(ProviderName,
			fmt.Sprintf("no protocol data in response for %q", slug))
	}

	return &result, nil
}

// Package subgraph implements the GraphQL-backed data providers: the
// Kingdom subgraph for concentrated-liquidity pools and the SwapX
// subgraph for ichi vaults. Both speak plain GraphQL-over-HTTP POST
// against graph-node endpoints.
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"tvltracker/internal/ratelimit"
	"tvltracker/internal/tvl"
)

// request is the JSON body of a GraphQL POST.
type request struct {
	Query string `json:"query"`
}

// response is the standard GraphQL envelope. Data stays raw so each
// provider can unmarshal its own entity shape.
type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors"`
}

type responseError struct {
	Message string `json:"message"`
}

// client executes GraphQL queries against a single endpoint.
type client struct {
	http     *resty.Client
	provider string
	api      ratelimit.API
}

func newClient(endpoint, bearerToken, provider string, api ratelimit.API, timeout time.Duration) *client {
	httpClient := tvl.NewHTTPClient(endpoint, timeout)
	if bearerToken != "" {
		httpClient.SetAuthToken(bearerToken)
	}

	return &client{
		http:     httpClient,
		provider: provider,
		api:      api,
	}
}

// execute POSTs the query and unmarshals the data envelope into out.
// GraphQL-level errors surface as non-retryable fetch errors; graph-node
// reports schema and auth problems this way with HTTP 200.
func (c *client) execute(ctx context.Context, query string, out any) error {
	if err := ratelimit.GetLimiter().Wait(ctx, c.api); err != nil {
		return err
	}

	var result response

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{Query: query}).
		SetResult(&result).
		Post("")

	if err != nil {
		return tvl.ClassifyTransportError(c.provider, err)
	}

	if !resp.IsSuccess() {
		return tvl.ClassifyHTTPError(c.provider, resp.StatusCode())
	}

	if len(result.Errors) > 0 {
		msg := result.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "auth") {
			return tvl.NewValidationError(c.provider,
				fmt.Sprintf("graphql auth error: %s (set GRAPH_API_KEY to authenticate)", msg))
		}
		return tvl.NewValidationError(c.provider, fmt.Sprintf("graphql error: %s", msg))
	}

	if len(result.Data) == 0 || string(result.Data) == "null" {
		return tvl.NewValidationError(c.provider, "graphql response carried no data")
	}

	if err := json.Unmarshal(result.Data, out); err != nil {
		return tvl.NewValidationError(c.provider, fmt.Sprintf("malformed graphql data: %v", err))
	}

	return nil
}

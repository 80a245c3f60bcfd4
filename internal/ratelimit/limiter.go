package ratelimit

import (
	"context"
	"os"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIDefiLlama represents the DefiLlama REST APIs (yields + protocol)
	APIDefiLlama API = "defillama"
	// APIKingdom represents the Kingdom Subgraph GraphQL endpoint
	APIKingdom API = "kingdom-subgraph"
	// APISwapX represents the SwapX Subgraph GraphQL endpoint
	APISwapX API = "swapx-subgraph"
)

// Limiter manages client-side rate limits for the upstream APIs.
// None of these services publish hard limits for anonymous use, so the
// defaults are polite rather than exact.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

var (
	instance *Limiter
	once     sync.Once
)

// GetLimiter returns the singleton rate limiter instance
func GetLimiter() *Limiter {
	once.Do(func() {
		instance = &Limiter{
			limiters: make(map[API]*rate.Limiter),
		}
		instance.initLimiters()
	})
	return instance
}

// initLimiters initializes rate limiters for each API with conservative defaults
func (l *Limiter) initLimiters() {
	// In test mode, use unlimited rate limits to avoid slowing down tests
	if os.Getenv("GO_TESTING") == "1" || isTestMode() {
		l.limiters[APIDefiLlama] = rate.NewLimiter(rate.Inf, 1)
		l.limiters[APIKingdom] = rate.NewLimiter(rate.Inf, 1)
		l.limiters[APISwapX] = rate.NewLimiter(rate.Inf, 1)
		return
	}

	// DefiLlama: free tier tolerates bursts but throttles sustained load
	l.limiters[APIDefiLlama] = rate.NewLimiter(rate.Limit(5), 1)

	// Graph-node endpoints: shared community infrastructure, stay gentle
	l.limiters[APIKingdom] = rate.NewLimiter(rate.Limit(2), 1)
	l.limiters[APISwapX] = rate.NewLimiter(rate.Limit(2), 1)
}

// isTestMode checks if we're running in test mode
func isTestMode() bool {
	for _, arg := range os.Args {
		if len(arg) > 6 && arg[:6] == "-test." {
			return true
		}
	}
	return false
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}

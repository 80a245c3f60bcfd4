// Package tracker holds the fetch orchestrator: the pipeline that turns
// a TVL query into normalized records. It resolves the protocol and
// provider, validates the chain, consults the cache, calls the provider
// with bounded retries, and filters the normalized result.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tvltracker/internal/cache"
	"tvltracker/internal/protocols"
	"tvltracker/internal/providers"
	"tvltracker/internal/tvl"
)

const (
	defaultRetries = 2
	defaultBackoff = 500 * time.Millisecond
)

// Options tunes the orchestrator's retry behavior.
type Options struct {
	// Retries is the number of additional attempts after a failed fetch.
	// Zero disables retrying.
	Retries int

	// Backoff is the wait before the first retry; it doubles with each
	// further attempt.
	Backoff time.Duration
}

// DefaultOptions returns the retry settings used when the caller has no
// configuration of its own.
func DefaultOptions() Options {
	return Options{
		Retries: defaultRetries,
		Backoff: defaultBackoff,
	}
}

// ProtocolError attributes a sweep failure to the protocol that caused
// it, so callers can report it without losing the underlying error.
type ProtocolError struct {
	Protocol string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("fetching TVL data for %s: %v", e.Protocol, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Query describes one TVL request.
type Query struct {
	// Protocol is the registry name of the protocol to fetch.
	Protocol string

	// Chain optionally narrows results to one network.
	Chain string

	// Pool optionally narrows results to one pool label (exact,
	// case-insensitive).
	Pool string

	// Provider optionally overrides the protocol's default provider.
	Provider string

	// NoCache bypasses the cache entirely: no read before the fetch, no
	// write after it.
	NoCache bool
}

// Tracker orchestrates TVL fetches.
type Tracker struct {
	protocols *protocols.Registry
	providers *providers.Registry
	cache     *cache.Cache
	opts      Options
}

// New creates a Tracker over the given registries and cache
func New(protocolReg *protocols.Registry, providerReg *providers.Registry, c *cache.Cache, opts Options) *Tracker {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}

	return &Tracker{
		protocols: protocolReg,
		providers: providerReg,
		cache:     c,
		opts:      opts,
	}
}

// FetchTVL resolves and executes one TVL query. An empty record slice
// with a nil error means the query matched nothing, which is a valid
// outcome, not a failure.
func (t *Tracker) FetchTVL(ctx context.Context, q Query) ([]tvl.Record, error) {
	desc, err := t.protocols.Get(q.Protocol)
	if err != nil {
		return nil, err
	}

	providerName := q.Provider
	if providerName == "" {
		providerName = desc.Provider
	}
	provider, err := t.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	if q.Chain != "" && !desc.SupportsChain(q.Chain) {
		return nil, &tvl.UnsupportedChainError{
			Protocol:  desc.Name,
			Chain:     q.Chain,
			Supported: desc.Chains,
		}
	}

	key := cache.Key(desc.Name, q.Chain, q.Pool, provider.Name())

	var data *tvl.RawData
	if !q.NoCache {
		if cached, ok := t.cache.Get(key); ok {
			slog.Debug("cache hit", "key", key)
			data = cached
		}
	}

	if data == nil {
		slog.Debug("fetching from provider", "provider", provider.Name(), "protocol", desc.Name, "chain", q.Chain)
		data, err = t.fetchWithRetry(ctx, provider, desc.ID, q.Chain)
		if err != nil {
			return nil, err
		}
		if !q.NoCache {
			t.cache.Set(key, data)
		}
	}

	return normalize(desc, provider.Name(), data, q.Pool), nil
}

// FetchAll runs the query against every registered protocol using each
// protocol's default provider (or q.Provider when set). Failures do not
// abort the sweep: each failed protocol is reported in the returned
// error slice and skipped.
func (t *Tracker) FetchAll(ctx context.Context, q Query) ([]tvl.Record, []error) {
	var (
		records []tvl.Record
		errs    []error
	)

	for _, desc := range t.protocols.All() {
		perProtocol := q
		perProtocol.Protocol = desc.Name

		recs, err := t.FetchTVL(ctx, perProtocol)
		if err != nil {
			slog.Warn("skipping protocol", "protocol", desc.Name, "error", err)
			errs = append(errs, &ProtocolError{Protocol: desc.Name, Err: err})
			continue
		}
		records = append(records, recs...)
	}

	return records, errs
}

// fetchWithRetry calls the provider, repeating on retryable failures up
// to the configured attempt budget. The backoff doubles between
// attempts and context cancellation aborts the wait. The returned error
// carries the attempt count.
func (t *Tracker) fetchWithRetry(ctx context.Context, provider tvl.Provider, id tvl.Identifier, chain string) (*tvl.RawData, error) {
	backoff := t.opts.Backoff

	var (
		lastErr  error
		attempts int
	)

	for attempt := 0; attempt <= t.opts.Retries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying fetch",
				"provider", provider.Name(),
				"attempt", attempt+1,
				"backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		data, err := provider.FetchRaw(ctx, id, chain)
		attempts = attempt + 1
		if err == nil {
			return data, nil
		}
		lastErr = err

		var fetchErr *tvl.FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.Retryable {
			break
		}
	}

	var fetchErr *tvl.FetchError
	if errors.As(lastErr, &fetchErr) {
		fetchErr.Attempts = attempts
	}
	return nil, lastErr
}

// normalize turns raw provider pools into records, dropping entries that
// violate the non-negative TVL invariant and applying the pool filter.
// Provider order is preserved; sorting is the presentation layer's call.
func normalize(desc protocols.Descriptor, providerName string, data *tvl.RawData, poolFilter string) []tvl.Record {
	records := make([]tvl.Record, 0, len(data.Pools))

	for _, pool := range data.Pools {
		if pool.TVLUSD < 0 {
			slog.Warn("dropping pool with negative TVL",
				"protocol", desc.Name,
				"pool", pool.Name,
				"tvl_usd", pool.TVLUSD)
			continue
		}
		if poolFilter != "" && !strings.EqualFold(pool.Name, poolFilter) {
			continue
		}

		records = append(records, tvl.Record{
			Protocol:  desc.Name,
			Chain:     pool.Chain,
			Pool:      pool.Name,
			TVLUSD:    pool.TVLUSD,
			APY:       pool.APY,
			Provider:  providerName,
			FetchedAt: data.FetchedAt,
		})
	}

	return records
}

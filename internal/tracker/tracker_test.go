package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"tvltracker/internal/cache"
	"tvltracker/internal/protocols"
	"tvltracker/internal/providers"
	"tvltracker/internal/testutil"
	"tvltracker/internal/tvl"
)

var fetchTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRawData(fetchedAt time.Time) *tvl.RawData {
	return &tvl.RawData{
		Pools: []tvl.RawPool{
			{Chain: "sonic", Name: "USDC-WETH", TVLUSD: 1000000, APY: 3.5},
			{Chain: "sonic", Name: "S-USDC.e", TVLUSD: 750000, APY: 8.1},
			{Chain: "ethereum", Name: "WETH-DAI", TVLUSD: 2500000, APY: 1.2},
		},
		FetchedAt: fetchedAt,
	}
}

// newTestTracker wires a tracker around one protocol ("silo", chains
// sonic/ethereum) served by the given mock provider under the name "mock".
func newTestTracker(t *testing.T, mock tvl.Provider, clock clockwork.Clock) *Tracker {
	t.Helper()

	protocolReg := protocols.NewRegistry()
	err := protocolReg.Register(protocols.Descriptor{
		Name:     "silo",
		Provider: "mock",
		ID:       tvl.Identifier{Slug: "silo-finance", Project: "silo-v2"},
		Chains:   []string{"sonic", "ethereum"},
	})
	if err != nil {
		t.Fatalf("Register() returned unexpected error: %v", err)
	}

	providerReg := providers.NewRegistry()
	if err := providerReg.Register(mock); err != nil {
		t.Fatalf("Register() returned unexpected error: %v", err)
	}

	c := cache.New(5*time.Minute, clock)
	return New(protocolReg, providerReg, c, Options{Retries: 2, Backoff: time.Millisecond})
}

func TestFetchTVL_Success(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	records, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("FetchTVL() returned %d records, want 3", len(records))
	}

	// Provider order is preserved and every record is fully attributed.
	first := records[0]
	if first.Protocol != "silo" {
		t.Errorf("Protocol = %q, want %q", first.Protocol, "silo")
	}
	if first.Provider != "mock" {
		t.Errorf("Provider = %q, want %q", first.Provider, "mock")
	}
	if first.Pool != "USDC-WETH" {
		t.Errorf("Pool = %q, want %q", first.Pool, "USDC-WETH")
	}
	if first.TVLUSD != 1000000 {
		t.Errorf("TVLUSD = %v, want 1000000", first.TVLUSD)
	}
	if !first.FetchedAt.Equal(fetchTime) {
		t.Errorf("FetchedAt = %v, want %v", first.FetchedAt, fetchTime)
	}
	if records[2].Pool != "WETH-DAI" {
		t.Errorf("records[2].Pool = %q, want %q (provider order)", records[2].Pool, "WETH-DAI")
	}
}

func TestFetchTVL_UnknownProtocol(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	_, err := tr.FetchTVL(context.Background(), Query{Protocol: "nosuch"})
	if err == nil {
		t.Fatal("FetchTVL() expected error for unknown protocol, got nil")
	}

	var unknownErr *tvl.UnknownProtocolError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("FetchTVL() error = %T, want *tvl.UnknownProtocolError", err)
	}
	if mock.Calls != 0 {
		t.Errorf("provider called %d times for unknown protocol, want 0", mock.Calls)
	}
}

func TestFetchTVL_UnknownProvider(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	_, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", Provider: "nosuch"})
	if err == nil {
		t.Fatal("FetchTVL() expected error for unknown provider, got nil")
	}

	var unknownErr *tvl.UnknownProviderError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("FetchTVL() error = %T, want *tvl.UnknownProviderError", err)
	}
	if unknownErr.Name != "nosuch" {
		t.Errorf("error Name = %q, want %q", unknownErr.Name, "nosuch")
	}
}

func TestFetchTVL_ProviderOverride(t *testing.T) {
	def := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	alt := testutil.NewMockProvider("alt", testRawData(fetchTime), nil)

	tr := newTestTracker(t, def, clockwork.NewFakeClock())
	if err := tr.providers.Register(alt); err != nil {
		t.Fatalf("Register() returned unexpected error: %v", err)
	}

	records, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", Provider: "alt"})
	if err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}

	if def.Calls != 0 {
		t.Errorf("default provider called %d times, want 0", def.Calls)
	}
	if alt.Calls != 1 {
		t.Errorf("override provider called %d times, want 1", alt.Calls)
	}
	if records[0].Provider != "alt" {
		t.Errorf("Provider = %q, want %q", records[0].Provider, "alt")
	}
}

func TestFetchTVL_UnsupportedChain(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	_, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", Chain: "solana"})
	if err == nil {
		t.Fatal("FetchTVL() expected error for unsupported chain, got nil")
	}

	var chainErr *tvl.UnsupportedChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("FetchTVL() error = %T, want *tvl.UnsupportedChainError", err)
	}
	if chainErr.Protocol != "silo" {
		t.Errorf("error Protocol = %q, want %q", chainErr.Protocol, "silo")
	}
	if chainErr.Chain != "solana" {
		t.Errorf("error Chain = %q, want %q", chainErr.Chain, "solana")
	}
	if len(chainErr.Supported) != 2 {
		t.Errorf("error Supported = %v, want the protocol's chain set", chainErr.Supported)
	}

	// Chain validation happens before any network activity.
	if mock.Calls != 0 {
		t.Errorf("provider called %d times for unsupported chain, want 0", mock.Calls)
	}
}

func TestFetchTVL_SupportedChainCaseInsensitive(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", Chain: "Sonic"}); err != nil {
		t.Errorf("FetchTVL() returned unexpected error for case-variant chain: %v", err)
	}
}

func TestFetchTVL_PoolFilter(t *testing.T) {
	tests := []struct {
		name      string
		pool      string
		wantPools []string
	}{
		{"exact match", "USDC-WETH", []string{"USDC-WETH"}},
		{"case-insensitive match", "s-usdc.E", []string{"S-USDC.e"}},
		{"no match is empty, not an error", "DOGE-MOON", []string{}},
		{"substring does not match", "USDC", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
			tr := newTestTracker(t, mock, clockwork.NewFakeClock())

			records, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", Pool: tt.pool})
			if err != nil {
				t.Fatalf("FetchTVL() returned unexpected error: %v", err)
			}

			if len(records) != len(tt.wantPools) {
				t.Fatalf("FetchTVL() returned %d records, want %d", len(records), len(tt.wantPools))
			}
			for i, want := range tt.wantPools {
				if records[i].Pool != want {
					t.Errorf("records[%d].Pool = %q, want %q", i, records[i].Pool, want)
				}
			}
		})
	}
}

func TestFetchTVL_NegativeTVLDropped(t *testing.T) {
	data := &tvl.RawData{
		Pools: []tvl.RawPool{
			{Chain: "sonic", Name: "GOOD", TVLUSD: 100},
			{Chain: "sonic", Name: "BROKEN", TVLUSD: -5},
			{Chain: "sonic", Name: "ZERO", TVLUSD: 0},
		},
		FetchedAt: fetchTime,
	}
	mock := testutil.NewMockProvider("mock", data, nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	records, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}

	// The negative entry is dropped; zero TVL is valid.
	if len(records) != 2 {
		t.Fatalf("FetchTVL() returned %d records, want 2", len(records))
	}
	if records[0].Pool != "GOOD" || records[1].Pool != "ZERO" {
		t.Errorf("records = %q, %q; want GOOD, ZERO", records[0].Pool, records[1].Pool)
	}
}

func TestFetchTVL_CacheHit(t *testing.T) {
	mock := &testutil.MockProvider{
		NameFunc: func() string { return "mock" },
	}
	mock.FetchRawFunc = func(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
		// Later fetches would carry a later timestamp; a cache hit keeps
		// the original one.
		return testRawData(fetchTime.Add(time.Duration(mock.Calls) * time.Hour)), nil
	}
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	first, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err != nil {
		t.Fatalf("first FetchTVL() returned unexpected error: %v", err)
	}

	second, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err != nil {
		t.Fatalf("second FetchTVL() returned unexpected error: %v", err)
	}

	if mock.Calls != 1 {
		t.Errorf("provider called %d times, want 1 (second call served from cache)", mock.Calls)
	}
	if !second[0].FetchedAt.Equal(first[0].FetchedAt) {
		t.Errorf("cached FetchedAt = %v, want %v", second[0].FetchedAt, first[0].FetchedAt)
	}
}

func TestFetchTVL_CacheExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clock)

	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"}); err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}

	clock.Advance(6 * time.Minute)

	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"}); err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if mock.Calls != 2 {
		t.Errorf("provider called %d times, want 2 (entry expired)", mock.Calls)
	}
}

func TestFetchTVL_NoCacheSkipsReadAndWrite(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	// A no-cache fetch must not populate the cache.
	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", NoCache: true}); err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"}); err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if mock.Calls != 2 {
		t.Fatalf("provider called %d times, want 2 (no-cache fetch must not write)", mock.Calls)
	}

	// The cached fetch above did write; a normal fetch now hits the cache.
	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"}); err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if mock.Calls != 2 {
		t.Errorf("provider called %d times, want 2 (cache hit)", mock.Calls)
	}

	// A no-cache fetch must not read either, even with a warm cache.
	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo", NoCache: true}); err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if mock.Calls != 3 {
		t.Errorf("provider called %d times, want 3 (no-cache fetch must not read)", mock.Calls)
	}
}

func TestFetchTVL_DistinctCacheKeys(t *testing.T) {
	mock := testutil.NewMockProvider("mock", testRawData(fetchTime), nil)
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	queries := []Query{
		{Protocol: "silo"},
		{Protocol: "silo", Chain: "sonic"},
		{Protocol: "silo", Chain: "sonic", Pool: "USDC-WETH"},
	}
	for _, q := range queries {
		if _, err := tr.FetchTVL(context.Background(), q); err != nil {
			t.Fatalf("FetchTVL(%+v) returned unexpected error: %v", q, err)
		}
	}

	if mock.Calls != 3 {
		t.Errorf("provider called %d times, want 3 (each query has its own cache key)", mock.Calls)
	}
}

func TestFetchTVL_RetryThenSuccess(t *testing.T) {
	mock := &testutil.MockProvider{
		NameFunc: func() string { return "mock" },
	}
	mock.FetchRawFunc = func(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
		if mock.Calls == 1 {
			return nil, tvl.NewServerError("mock", 503)
		}
		return testRawData(fetchTime), nil
	}
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	records, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if mock.Calls != 2 {
		t.Errorf("provider called %d times, want 2 (one retry)", mock.Calls)
	}
	if len(records) != 3 {
		t.Errorf("FetchTVL() returned %d records, want 3", len(records))
	}
}

func TestFetchTVL_RetriesExhausted(t *testing.T) {
	mock := testutil.NewMockProvider("mock", nil, tvl.NewServerError("mock", 500))
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	_, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err == nil {
		t.Fatal("FetchTVL() expected error after exhausted retries, got nil")
	}

	// Options in newTestTracker allow 2 retries: 3 attempts total.
	if mock.Calls != 3 {
		t.Errorf("provider called %d times, want 3", mock.Calls)
	}

	var fetchErr *tvl.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("FetchTVL() error = %T, want *tvl.FetchError", err)
	}
	if fetchErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", fetchErr.Attempts)
	}
}

func TestFetchTVL_NonRetryableError(t *testing.T) {
	mock := testutil.NewMockProvider("mock", nil, tvl.NewValidationError("mock", "bad payload"))
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	_, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err == nil {
		t.Fatal("FetchTVL() expected error, got nil")
	}
	if mock.Calls != 1 {
		t.Errorf("provider called %d times, want 1 (validation errors are not retried)", mock.Calls)
	}
}

func TestFetchTVL_FailedFetchNotCached(t *testing.T) {
	mock := &testutil.MockProvider{
		NameFunc: func() string { return "mock" },
	}
	mock.FetchRawFunc = func(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
		if mock.Calls <= 3 {
			return nil, tvl.NewServerError("mock", 500)
		}
		return testRawData(fetchTime), nil
	}
	tr := newTestTracker(t, mock, clockwork.NewFakeClock())

	if _, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"}); err == nil {
		t.Fatal("FetchTVL() expected error, got nil")
	}

	// The failed result must not be cached: the next call fetches again.
	records, err := tr.FetchTVL(context.Background(), Query{Protocol: "silo"})
	if err != nil {
		t.Fatalf("FetchTVL() returned unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("FetchTVL() returned %d records, want 3", len(records))
	}
	if mock.Calls != 4 {
		t.Errorf("provider called %d times, want 4", mock.Calls)
	}
}

func TestFetchAll(t *testing.T) {
	good := testutil.NewMockProvider("goodprov", testRawData(fetchTime), nil)
	bad := testutil.NewMockProvider("badprov", nil, tvl.NewValidationError("badprov", "broken"))

	protocolReg := protocols.NewRegistry()
	for _, d := range []protocols.Descriptor{
		{Name: "alpha", Provider: "goodprov", ID: tvl.Identifier{Slug: "alpha"}},
		{Name: "beta", Provider: "badprov", ID: tvl.Identifier{Slug: "beta"}},
	} {
		if err := protocolReg.Register(d); err != nil {
			t.Fatalf("Register(%q) returned unexpected error: %v", d.Name, err)
		}
	}

	providerReg := providers.NewRegistry()
	for _, p := range []tvl.Provider{good, bad} {
		if err := providerReg.Register(p); err != nil {
			t.Fatalf("Register() returned unexpected error: %v", err)
		}
	}

	tr := New(protocolReg, providerReg, cache.New(time.Minute, clockwork.NewFakeClock()), Options{Retries: 0, Backoff: time.Millisecond})

	records, errs := tr.FetchAll(context.Background(), Query{})

	// The failing protocol is skipped, not fatal, and the error names it.
	if len(errs) != 1 {
		t.Fatalf("FetchAll() returned %d errors, want 1", len(errs))
	}
	var protoErr *ProtocolError
	if !errors.As(errs[0], &protoErr) {
		t.Fatalf("FetchAll() error = %T, want *ProtocolError", errs[0])
	}
	if protoErr.Protocol != "beta" {
		t.Errorf("error Protocol = %q, want %q", protoErr.Protocol, "beta")
	}
	var fetchErr *tvl.FetchError
	if !errors.As(errs[0], &fetchErr) {
		t.Errorf("FetchAll() error should wrap the underlying *tvl.FetchError")
	}
	if len(records) != 3 {
		t.Errorf("FetchAll() returned %d records, want 3 from the healthy protocol", len(records))
	}
	for i, rec := range records {
		if rec.Protocol != "alpha" {
			t.Errorf("records[%d].Protocol = %q, want %q", i, rec.Protocol, "alpha")
		}
	}
}

package testutil

import (
	"context"

	"tvltracker/internal/tvl"
)

// MockProvider is a mock implementation of the tvl.Provider interface for
// testing. Calls counts FetchRaw invocations so retry behavior can be
// asserted; it is not goroutine-safe.
type MockProvider struct {
	NameFunc     func() string
	FetchRawFunc func(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error)
	Calls        int
}

// Name implements the tvl.Provider interface
func (m *MockProvider) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// FetchRaw implements the tvl.Provider interface
func (m *MockProvider) FetchRaw(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
	m.Calls++
	if m.FetchRawFunc != nil {
		return m.FetchRawFunc(ctx, id, chain)
	}
	return &tvl.RawData{}, nil
}

// NewMockProvider creates a simple mock provider with predefined values
func NewMockProvider(name string, data *tvl.RawData, err error) *MockProvider {
	return &MockProvider{
		NameFunc: func() string {
			return name
		},
		FetchRawFunc: func(ctx context.Context, id tvl.Identifier, chain string) (*tvl.RawData, error) {
			return data, err
		},
	}
}

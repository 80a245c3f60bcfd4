package providers

import (
	"errors"
	"reflect"
	"testing"

	"tvltracker/internal/testutil"
	"tvltracker/internal/tvl"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	mock := testutil.NewMockProvider("defillama", &tvl.RawData{}, nil)
	if err := r.Register(mock); err != nil {
		t.Fatalf("Register() returned unexpected error: %v", err)
	}

	got, err := r.Get("defillama")
	if err != nil {
		t.Fatalf("Get() returned unexpected error: %v", err)
	}
	if got.Name() != "defillama" {
		t.Errorf("Name() = %q, want %q", got.Name(), "defillama")
	}
}

func TestRegistry_GetCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testutil.NewMockProvider("DefiLlama", &tvl.RawData{}, nil)); err != nil {
		t.Fatalf("Register() returned unexpected error: %v", err)
	}

	if _, err := r.Get("defillama"); err != nil {
		t.Errorf("Get(defillama) returned error: %v", err)
	}
	if _, err := r.Get("DEFILLAMA"); err != nil {
		t.Errorf("Get(DEFILLAMA) returned error: %v", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nosuch")
	if err == nil {
		t.Fatal("Get() expected error for unknown provider, got nil")
	}

	var unknownErr *tvl.UnknownProviderError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Get() error = %T, want *tvl.UnknownProviderError", err)
	}
	if unknownErr.Name != "nosuch" {
		t.Errorf("error Name = %q, want %q", unknownErr.Name, "nosuch")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testutil.NewMockProvider("defillama", &tvl.RawData{}, nil)); err != nil {
		t.Fatalf("first Register() returned unexpected error: %v", err)
	}

	err := r.Register(testutil.NewMockProvider("defillama", &tvl.RawData{}, nil))
	if err == nil {
		t.Fatal("Register() expected error for duplicate, got nil")
	}
	var dupErr *tvl.DuplicateProviderError
	if !errors.As(err, &dupErr) {
		t.Fatalf("Register() error = %T, want *tvl.DuplicateProviderError", err)
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Error("Register(nil) expected error, got nil")
	}
	if err := r.Register(testutil.NewMockProvider("", &tvl.RawData{}, nil)); err == nil {
		t.Error("Register() expected error for empty name, got nil")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"swapx-subgraph", "defillama", "kingdom-subgraph"} {
		if err := r.Register(testutil.NewMockProvider(name, &tvl.RawData{}, nil)); err != nil {
			t.Fatalf("Register(%q) returned unexpected error: %v", name, err)
		}
	}

	want := []string{"defillama", "kingdom-subgraph", "swapx-subgraph"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

package orderedmap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yarnpkg/pnp-go/pkg/orderedmap"
)

func TestInsertionOrderPreserved(t *testing.T) {
	m := orderedmap.New[string, int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10) // update, must not move position

	want := []string{"c", "a", "b"}
	if diff := cmp.Diff(want, m.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch (-want +got):\n%s", diff)
	}

	v, ok := m.Get("a")
	if !ok || v != 10 {
		t.Fatalf("Get(a) = %d, %v; want 10, true", v, ok)
	}

	if _, ok := m.Get("missing"); ok {
		t.Fatal("Get(missing) returned ok = true")
	}

	if got, want := m.Len(), 3; got != want {
		t.Fatalf("Len() = %d; want %d", got, want)
	}
}

func TestRangeStopsEarly(t *testing.T) {
	m := orderedmap.New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	var seen []string
	m.Range(func(k string, v int) bool {
		seen = append(seen, k)
		return k != "b"
	})

	want := []string{"a", "b"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("Range() mismatch (-want +got):\n%s", diff)
	}
}

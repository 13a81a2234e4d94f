package trie_test

import (
	"testing"

	"github.com/yarnpkg/pnp-go/pkg/trie"
)

func TestGetAncestorValueDeepestWins(t *testing.T) {
	tr := trie.New[string]()
	tr.Insert("/a/", "root-a")
	tr.Insert("/a/b/", "root-a-b")

	v, ok := tr.GetAncestorValue("/a/b/c/d.js")
	if !ok || v != "root-a-b" {
		t.Fatalf("GetAncestorValue = %q, %v; want root-a-b, true", v, ok)
	}

	v, ok = tr.GetAncestorValue("/a/x/y.js")
	if !ok || v != "root-a" {
		t.Fatalf("GetAncestorValue = %q, %v; want root-a, true", v, ok)
	}
}

func TestGetAncestorValueNoMatch(t *testing.T) {
	tr := trie.New[string]()
	tr.Insert("/a/b/", "x")

	if _, ok := tr.GetAncestorValue("/c/d"); ok {
		t.Fatal("expected no match")
	}
}

func TestGetAncestorValueExactMatch(t *testing.T) {
	tr := trie.New[int]()
	tr.Insert("/pkg/", 1)

	v, ok := tr.GetAncestorValue("/pkg/")
	if !ok || v != 1 {
		t.Fatalf("GetAncestorValue = %d, %v; want 1, true", v, ok)
	}
}

func TestIdentityOnInsertedRoots(t *testing.T) {
	tr := trie.New[string]()
	roots := []string{"/p/pkgA/", "/p/pkgB/", "/p/.yarn/cache/lodash/"}
	for _, r := range roots {
		tr.Insert(r, r)
	}
	for _, r := range roots {
		v, ok := tr.GetAncestorValue(r)
		if !ok || v != r {
			t.Fatalf("GetAncestorValue(%q) = %q, %v; want %q, true", r, v, ok, r)
		}
	}
}

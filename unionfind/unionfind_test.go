package unionfind_test

import (
	"testing"

	"github.com/hsisomap/hsisomap/unionfind"
)

func TestUnionFind_CountDecreasesOnlyOnMerge(t *testing.T) {
	uf := unionfind.New(6)
	if uf.Count() != 6 {
		t.Fatalf("Count() = %d, want 6", uf.Count())
	}

	steps := []struct {
		p, q   int
		merged bool
		count  int
	}{
		{0, 1, true, 5},
		{1, 0, false, 5},
		{2, 3, true, 4},
		{1, 3, true, 3},
		{0, 2, false, 3},
		{4, 4, false, 3},
		{5, 4, true, 2},
	}
	for _, s := range steps {
		if got := uf.Connect(s.p, s.q); got != s.merged {
			t.Fatalf("Connect(%d,%d) = %v, want %v", s.p, s.q, got, s.merged)
		}
		if uf.Count() != s.count {
			t.Fatalf("after Connect(%d,%d): Count() = %d, want %d", s.p, s.q, uf.Count(), s.count)
		}
	}

	if !uf.Connected(0, 3) || uf.Connected(0, 5) {
		t.Fatalf("unexpected connectivity")
	}
	if uf.Find(0) != uf.Find(2) {
		t.Fatalf("0 and 2 must share a representative")
	}
	if uf.ComponentSize(3) != 4 {
		t.Fatalf("ComponentSize(3) = %d, want 4", uf.ComponentSize(3))
	}
}

func TestUnionFind_Empty(t *testing.T) {
	uf := unionfind.New(0)
	if uf.Count() != 0 || uf.Len() != 0 {
		t.Fatalf("empty union-find must have no components")
	}
}

func TestUnionFind_ChainStaysShallow(t *testing.T) {
	const n = 1 << 12
	uf := unionfind.New(n)
	for i := 1; i < n; i++ {
		uf.Connect(i-1, i)
	}
	if uf.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", uf.Count())
	}
	root := uf.Find(0)
	for i := 0; i < n; i++ {
		if uf.Find(i) != root {
			t.Fatalf("element %d not in root component", i)
		}
	}
}

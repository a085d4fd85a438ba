package net

import "testing"

func TestSymmetryTableIdentity(t *testing.T) {
	tab := NewSymmetryTable(9)
	for v := 0; v < 81; v++ {
		if got := tab.Map(IdentitySymmetry, v); got != v {
			t.Fatalf("identity maps %d to %d", v, got)
		}
	}
}

func TestSymmetryTableBijection(t *testing.T) {
	for _, size := range []int{9, 19} {
		tab := NewSymmetryTable(size)
		for sym := 0; sym < NumSymmetries; sym++ {
			seen := make([]bool, size*size)
			for v := 0; v < size*size; v++ {
				img := tab.Map(sym, v)
				if seen[img] {
					t.Fatalf("size %d symmetry %d: image %d seen twice", size, sym, img)
				}
				seen[img] = true
			}
		}
	}
}

func TestSymmetryTableMatchesVertexMapping(t *testing.T) {
	// Gather and scatter both index through Map, so a round trip through
	// the same symmetry restores vertex order.
	tab := NewSymmetryTable(9)
	for sym := 0; sym < NumSymmetries; sym++ {
		src := make([]int, 81)
		for v := range src {
			src[v] = v
		}
		gathered := make([]int, 81)
		for v := range gathered {
			gathered[v] = src[tab.Map(sym, v)]
		}
		restored := make([]int, 81)
		for v := range restored {
			restored[tab.Map(sym, v)] = gathered[v]
		}
		for v := range restored {
			if restored[v] != v {
				t.Fatalf("symmetry %d: gather/scatter round trip moved %d to %d", sym, v, restored[v])
			}
		}
	}
}

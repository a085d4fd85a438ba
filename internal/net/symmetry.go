package net

import (
	"fmt"

	"github.com/hailam/gozen/internal/game"
)

// SymmetryTable precomputes, for each of the eight board symmetries, the
// image of every board vertex. It is immutable after construction and owned
// by the Network that built it.
type SymmetryTable struct {
	size  int
	table [NumSymmetries][]int
}

// NewSymmetryTable builds the vertex permutation table for the given board
// size. Symmetry 0 is the identity.
func NewSymmetryTable(size int) *SymmetryTable {
	t := &SymmetryTable{size: size}
	for s := 0; s < NumSymmetries; s++ {
		t.table[s] = make([]int, size*size)
		for v := 0; v < size*size; v++ {
			x, y := game.SymmetryVertex(v%size, v/size, s, size)
			img := y*size + x
			if img < 0 || img >= size*size {
				panic(fmt.Sprintf("net: symmetry image out of range: %d", img))
			}
			t.table[s][v] = img
		}
	}
	return t
}

// Map returns the image of vertex v under the given symmetry.
func (t *SymmetryTable) Map(symmetry, v int) int {
	return t.table[symmetry][v]
}

// Size returns the board edge length the table was built for.
func (t *SymmetryTable) Size() int { return t.size }

// Package game provides the board and game-state representation consumed by
// the neural-network evaluator: stone placement with capture, liberty
// counting, move legality, board-history snapshots, ladder reading, and
// Zobrist hashing including per-symmetry hashes.
package game

// MaxBoardSize is the largest supported board edge length.
const MaxBoardSize = 19

// Color identifies the contents of a board point.
type Color uint8

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the opposing color. Empty maps to itself.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	}
	return "empty"
}

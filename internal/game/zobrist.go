package game

// Zobrist hash keys for position hashing.
// Uses a PRNG with a fixed seed for reproducibility.
var (
	zobristStone      [2][MaxBoardSize * MaxBoardSize]uint64 // [Black-1 / White-1][vertex]
	zobristSideToMove uint64                                 // XOR when white to move
)

func init() {
	initZobrist()
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(0x5EED60BA8D5EED60)

	for c := 0; c < 2; c++ {
		for v := 0; v < MaxBoardSize*MaxBoardSize; v++ {
			zobristStone[c][v] = rng.next()
		}
	}
	zobristSideToMove = rng.next()
}

// stoneKey returns the Zobrist key for a stone of the given color at vertex v.
func stoneKey(c Color, v int) uint64 {
	return zobristStone[c-Black][v]
}

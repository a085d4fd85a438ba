package game

import "fmt"

// historyDepth is the number of past board snapshots retained, including the
// current board. The evaluator's feature planes never look further back.
const historyDepth = 8

// Position is a Go board position together with the game context the
// evaluator consumes: side to move, komi, move number, board history and
// Zobrist hashes.
type Position struct {
	size    int
	komi    float32
	toMove  Color
	moveNum int
	stones  []Color
	history [][]Color // history[0] is the current board, most recent first
	hash    uint64
}

// NewPosition creates an empty position with black to move.
func NewPosition(size int, komi float32) *Position {
	if size < 2 || size > MaxBoardSize {
		panic(fmt.Sprintf("game: unsupported board size %d", size))
	}
	stones := make([]Color, size*size)
	p := &Position{
		size:   size,
		komi:   komi,
		toMove: Black,
		stones: stones,
	}
	p.history = [][]Color{p.snapshot()}
	p.hash = p.computeHash(p.stones, p.toMove)
	return p
}

// Size returns the board edge length.
func (p *Position) Size() int { return p.size }

// Komi returns the komi for this game.
func (p *Position) Komi() float32 { return p.komi }

// ToMove returns the side to move.
func (p *Position) ToMove() Color { return p.toMove }

// MoveNum returns the number of moves played so far.
func (p *Position) MoveNum() int { return p.moveNum }

// Hash returns the Zobrist hash of the current board and side to move.
func (p *Position) Hash() uint64 { return p.hash }

// StoneAt returns the stone at (x, y) on the current board.
func (p *Position) StoneAt(x, y int) Color {
	return p.stones[p.vertex(x, y)]
}

// PastStoneAt returns the stone at (x, y) on the board h moves ago.
// h = 0 is the current board; depths beyond the retained history return the
// oldest snapshot.
func (p *Position) PastStoneAt(h, x, y int) Color {
	if h >= len(p.history) {
		h = len(p.history) - 1
	}
	return p.history[h][p.vertex(x, y)]
}

// Liberties returns the liberty count of the group occupying (x, y), or 0 for
// an empty point.
func (p *Position) Liberties(x, y int) int {
	v := p.vertex(x, y)
	if p.stones[v] == Empty {
		return 0
	}
	_, libs := groupAt(p.stones, p.size, v)
	return len(libs)
}

// IsLegal reports whether the given color may play at (x, y): the point is
// empty, the move is not suicide, and it does not recreate the previous
// position (simple ko).
func (p *Position) IsLegal(c Color, x, y int) bool {
	if x < 0 || x >= p.size || y < 0 || y >= p.size {
		return false
	}
	v := p.vertex(x, y)
	if p.stones[v] != Empty {
		return false
	}
	after, ok := tryPlay(p.stones, p.size, c, v)
	if !ok {
		return false
	}
	// Simple ko: the resulting board may not repeat the board one move ago.
	if len(p.history) > 1 && boardsEqual(after, p.history[1]) {
		return false
	}
	return true
}

// Play places a stone for the side to move at (x, y), removing captures,
// and advances the game state. It fails on illegal moves.
func (p *Position) Play(x, y int) error {
	if !p.IsLegal(p.toMove, x, y) {
		return fmt.Errorf("game: illegal move %s (%d,%d)", p.toMove, x, y)
	}
	after, _ := tryPlay(p.stones, p.size, p.toMove, p.vertex(x, y))
	p.stones = after
	p.advance()
	return nil
}

// Pass plays a pass for the side to move.
func (p *Position) Pass() {
	p.advance()
}

// Copy returns a deep copy of the position.
func (p *Position) Copy() *Position {
	q := &Position{
		size:    p.size,
		komi:    p.komi,
		toMove:  p.toMove,
		moveNum: p.moveNum,
		stones:  append([]Color(nil), p.stones...),
		history: make([][]Color, len(p.history)),
		hash:    p.hash,
	}
	for i, b := range p.history {
		q.history[i] = append([]Color(nil), b...)
	}
	return q
}

// SymmetryHash returns the Zobrist hash of the position transformed by the
// given board symmetry (0..7). Symmetry 0 is the identity and equals Hash.
func (p *Position) SymmetryHash(symmetry int) uint64 {
	transformed := make([]Color, len(p.stones))
	for v, c := range p.stones {
		if c == Empty {
			continue
		}
		x, y := v%p.size, v/p.size
		sx, sy := SymmetryVertex(x, y, symmetry, p.size)
		transformed[sy*p.size+sx] = c
	}
	return p.computeHash(transformed, p.toMove)
}

// SymmetryVertex maps the coordinate (x, y) to its image under the given
// symmetry index: bit 2 swaps the axes, bit 1 mirrors horizontally, bit 0
// mirrors vertically, applied in that order. Symmetry 0 is the identity.
func SymmetryVertex(x, y, symmetry, size int) (int, int) {
	if symmetry&4 != 0 {
		x, y = y, x
	}
	if symmetry&2 != 0 {
		x = size - x - 1
	}
	if symmetry&1 != 0 {
		y = size - y - 1
	}
	return x, y
}

func (p *Position) vertex(x, y int) int { return y*p.size + x }

func (p *Position) snapshot() []Color {
	return append([]Color(nil), p.stones...)
}

// advance flips the side to move, records the new board in the history and
// refreshes the hash.
func (p *Position) advance() {
	p.moveNum++
	p.toMove = p.toMove.Opponent()
	p.history = append([][]Color{p.snapshot()}, p.history...)
	if len(p.history) > historyDepth {
		p.history = p.history[:historyDepth]
	}
	p.hash = p.computeHash(p.stones, p.toMove)
}

func (p *Position) computeHash(stones []Color, toMove Color) uint64 {
	var h uint64
	for v, c := range stones {
		if c != Empty {
			h ^= stoneKey(c, v)
		}
	}
	if toMove == White {
		h ^= zobristSideToMove
	}
	return h
}

func boardsEqual(a, b []Color) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// neighbors appends the on-board neighbor vertices of v to buf.
func neighbors(v, size int, buf []int) []int {
	x, y := v%size, v/size
	if x > 0 {
		buf = append(buf, v-1)
	}
	if x < size-1 {
		buf = append(buf, v+1)
	}
	if y > 0 {
		buf = append(buf, v-size)
	}
	if y < size-1 {
		buf = append(buf, v+size)
	}
	return buf
}

// groupAt flood-fills the group occupying v and returns its member vertices
// and the set of its liberties.
func groupAt(stones []Color, size, v int) (members []int, liberties map[int]bool) {
	color := stones[v]
	liberties = make(map[int]bool)
	seen := make(map[int]bool)
	stack := []int{v}
	seen[v] = true
	var nbuf [4]int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		members = append(members, cur)
		for _, n := range neighbors(cur, size, nbuf[:0]) {
			switch stones[n] {
			case Empty:
				liberties[n] = true
			case color:
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return members, liberties
}

// tryPlay places a stone of color c at vertex v on a copy of stones,
// removing captured opponent groups. It reports false if the move would be
// suicide.
func tryPlay(stones []Color, size int, c Color, v int) ([]Color, bool) {
	after := append([]Color(nil), stones...)
	after[v] = c
	var nbuf [4]int
	opp := c.Opponent()
	for _, n := range neighbors(v, size, nbuf[:0]) {
		if after[n] != opp {
			continue
		}
		members, libs := groupAt(after, size, n)
		if len(libs) == 0 {
			for _, m := range members {
				after[m] = Empty
			}
		}
	}
	if _, libs := groupAt(after, size, v); len(libs) == 0 {
		return nil, false
	}
	return after, true
}

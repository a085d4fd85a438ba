package game

import "testing"

func TestNewPosition(t *testing.T) {
	p := NewPosition(9, 7.5)
	if p.Size() != 9 {
		t.Errorf("Size() = %d, want 9", p.Size())
	}
	if p.ToMove() != Black {
		t.Errorf("ToMove() = %v, want Black", p.ToMove())
	}
	if p.MoveNum() != 0 {
		t.Errorf("MoveNum() = %d, want 0", p.MoveNum())
	}
	if p.Komi() != 7.5 {
		t.Errorf("Komi() = %v, want 7.5", p.Komi())
	}
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			if p.StoneAt(x, y) != Empty {
				t.Fatalf("StoneAt(%d,%d) = %v on an empty board", x, y, p.StoneAt(x, y))
			}
		}
	}
}

func TestPlayAlternatesColors(t *testing.T) {
	p := NewPosition(9, 7.5)
	if err := p.Play(4, 4); err != nil {
		t.Fatal(err)
	}
	if p.StoneAt(4, 4) != Black {
		t.Errorf("StoneAt(4,4) = %v, want Black", p.StoneAt(4, 4))
	}
	if p.ToMove() != White {
		t.Errorf("ToMove() = %v after one move, want White", p.ToMove())
	}
	if err := p.Play(2, 2); err != nil {
		t.Fatal(err)
	}
	if p.StoneAt(2, 2) != White {
		t.Errorf("StoneAt(2,2) = %v, want White", p.StoneAt(2, 2))
	}
	if p.MoveNum() != 2 {
		t.Errorf("MoveNum() = %d, want 2", p.MoveNum())
	}
}

func TestLiberties(t *testing.T) {
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 0, 0) // black in the corner
	if got := p.Liberties(0, 0); got != 2 {
		t.Errorf("corner stone has %d liberties, want 2", got)
	}
	mustPlay(t, p, 4, 4) // white in the center
	if got := p.Liberties(4, 4); got != 4 {
		t.Errorf("center stone has %d liberties, want 4", got)
	}
	mustPlay(t, p, 0, 1) // black connects along the edge
	if got := p.Liberties(0, 0); got != 3 {
		t.Errorf("two-stone edge group has %d liberties, want 3", got)
	}
	if got := p.Liberties(5, 5); got != 0 {
		t.Errorf("empty point has %d liberties, want 0", got)
	}
}

func TestCapture(t *testing.T) {
	// White stone at (0,0) captured by black at (0,1) and (1,0).
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 0, 1) // B
	mustPlay(t, p, 0, 0) // W
	mustPlay(t, p, 1, 0) // B captures
	if p.StoneAt(0, 0) != Empty {
		t.Errorf("StoneAt(0,0) = %v after capture, want Empty", p.StoneAt(0, 0))
	}
}

func TestSuicideIllegal(t *testing.T) {
	// Black surrounds (0,0); white may not play into the eye.
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 0, 1) // B
	mustPlay(t, p, 5, 5) // W elsewhere
	mustPlay(t, p, 1, 0) // B
	if p.IsLegal(White, 0, 0) {
		t.Error("suicide at (0,0) reported legal for white")
	}
	if !p.IsLegal(Black, 0, 0) {
		t.Error("own-eye fill at (0,0) reported illegal for black")
	}
}

func TestOccupiedAndOffBoardIllegal(t *testing.T) {
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 4, 4)
	if p.IsLegal(White, 4, 4) {
		t.Error("occupied point reported legal")
	}
	if p.IsLegal(White, -1, 0) || p.IsLegal(White, 9, 0) {
		t.Error("off-board point reported legal")
	}
}

func TestSimpleKo(t *testing.T) {
	// Classic ko shape around (2,1)/(3,1):
	//   . B W .
	//   B . . W     <- black (2,1) then white takes at (2,1) after b plays
	//   . B W .
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 1, 0) // B
	mustPlay(t, p, 2, 0) // W
	mustPlay(t, p, 0, 1) // B
	mustPlay(t, p, 3, 1) // W
	mustPlay(t, p, 1, 2) // B
	mustPlay(t, p, 2, 2) // W
	mustPlay(t, p, 2, 1) // B inside the white mouth
	mustPlay(t, p, 1, 1) // W captures the ko stone at (2,1)
	if p.StoneAt(2, 1) != Empty {
		t.Fatalf("ko stone at (2,1) not captured")
	}
	if p.IsLegal(Black, 2, 1) {
		t.Error("immediate ko recapture at (2,1) reported legal")
	}
	// After a ko threat exchange elsewhere the recapture opens up again.
	mustPlay(t, p, 7, 7) // B
	mustPlay(t, p, 7, 8) // W
	if !p.IsLegal(Black, 2, 1) {
		t.Error("ko recapture still illegal after intervening moves")
	}
}

func TestHistoryPlanes(t *testing.T) {
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 4, 4)
	mustPlay(t, p, 2, 2)

	if p.PastStoneAt(0, 2, 2) != White {
		t.Errorf("current board missing the white stone")
	}
	if p.PastStoneAt(1, 2, 2) != Empty {
		t.Errorf("one move back (2,2) should be empty")
	}
	if p.PastStoneAt(1, 4, 4) != Black {
		t.Errorf("one move back (4,4) should hold the black stone")
	}
	// Depths past the retained history clamp to the oldest snapshot.
	if p.PastStoneAt(40, 4, 4) != Empty {
		t.Errorf("deep history lookup should reach the empty initial board")
	}
}

func TestHashChangesWithMoves(t *testing.T) {
	p := NewPosition(9, 7.5)
	h0 := p.Hash()
	mustPlay(t, p, 4, 4)
	if p.Hash() == h0 {
		t.Error("hash unchanged after a move")
	}
	q := NewPosition(9, 7.5)
	mustPlay(t, q, 4, 4)
	if p.Hash() != q.Hash() {
		t.Error("identical positions hash differently")
	}
}

func TestPassFlipsSideToMove(t *testing.T) {
	p := NewPosition(9, 7.5)
	h := p.Hash()
	p.Pass()
	if p.ToMove() != White {
		t.Errorf("ToMove() = %v after a pass, want White", p.ToMove())
	}
	if p.Hash() == h {
		t.Error("hash unchanged after a pass; side to move must be hashed")
	}
}

func TestSymmetryVertex(t *testing.T) {
	const size = 9
	t.Run("identity", func(t *testing.T) {
		x, y := SymmetryVertex(3, 5, 0, size)
		if x != 3 || y != 5 {
			t.Errorf("identity moved (3,5) to (%d,%d)", x, y)
		}
	})
	t.Run("bijection", func(t *testing.T) {
		for sym := 0; sym < 8; sym++ {
			seen := make(map[int]bool)
			for v := 0; v < size*size; v++ {
				sx, sy := SymmetryVertex(v%size, v/size, sym, size)
				if sx < 0 || sx >= size || sy < 0 || sy >= size {
					t.Fatalf("symmetry %d maps vertex %d off board", sym, v)
				}
				sv := sy*size + sx
				if seen[sv] {
					t.Fatalf("symmetry %d maps two vertices to %d", sym, sv)
				}
				seen[sv] = true
			}
		}
	})
	t.Run("center fixed", func(t *testing.T) {
		for sym := 0; sym < 8; sym++ {
			x, y := SymmetryVertex(4, 4, sym, size)
			if x != 4 || y != 4 {
				t.Errorf("symmetry %d moved the center to (%d,%d)", sym, x, y)
			}
		}
	})
}

func TestSymmetryHash(t *testing.T) {
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 2, 3)
	mustPlay(t, p, 6, 1)

	if p.SymmetryHash(0) != p.Hash() {
		t.Error("SymmetryHash(0) differs from Hash()")
	}

	// The mirrored position, built by hand, must hash like the probe.
	q := NewPosition(9, 7.5)
	mustPlay(t, q, 6, 3) // (2,3) mirrored in x
	mustPlay(t, q, 2, 1) // (6,1) mirrored in x
	if p.SymmetryHash(2) != q.Hash() {
		t.Error("x-mirror symmetry hash does not match the mirrored position")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 4, 4)
	q := p.Copy()
	mustPlay(t, q, 3, 3)
	if p.StoneAt(3, 3) != Empty {
		t.Error("move on the copy leaked into the original")
	}
	if p.MoveNum() != 1 || q.MoveNum() != 2 {
		t.Errorf("move numbers diverged wrong: %d, %d", p.MoveNum(), q.MoveNum())
	}
}

func mustPlay(t *testing.T, p *Position, x, y int) {
	t.Helper()
	if err := p.Play(x, y); err != nil {
		t.Fatal(err)
	}
}

package game

import "testing"

// firstLineLadder builds a 9x9 position with a white stone crawling on the
// first line: B(3,0), W(4,0), filler moves far away, black to move.
func firstLineLadder(t *testing.T) *Position {
	t.Helper()
	p := NewPosition(9, 7.5)
	mustPlay(t, p, 3, 0) // B
	mustPlay(t, p, 4, 0) // W
	mustPlay(t, p, 8, 8) // B filler
	mustPlay(t, p, 0, 8) // W filler
	return p
}

func TestLadderCapture(t *testing.T) {
	t.Run("first line crawl works", func(t *testing.T) {
		p := firstLineLadder(t)
		// Atari from above drives white along the first line into the
		// corner.
		if !p.LadderCapture(4, 1) {
			t.Error("LadderCapture(4,1) = false, want true")
		}
	})

	t.Run("wrong atari side fails", func(t *testing.T) {
		p := firstLineLadder(t)
		// Blocking in front lets white turn up to three liberties.
		if p.LadderCapture(5, 0) {
			t.Error("LadderCapture(5,0) = true, want false")
		}
	})

	t.Run("needs a two-liberty group", func(t *testing.T) {
		p := NewPosition(9, 7.5)
		mustPlay(t, p, 3, 4) // B
		mustPlay(t, p, 4, 4) // W, three liberties
		if p.LadderCapture(4, 5) {
			t.Error("LadderCapture against a three-liberty group, want false")
		}
	})

	t.Run("empty neighborhood", func(t *testing.T) {
		p := NewPosition(9, 7.5)
		if p.LadderCapture(4, 4) {
			t.Error("LadderCapture on an empty board, want false")
		}
	})
}

func TestLadderEscape(t *testing.T) {
	t.Run("escape to three liberties", func(t *testing.T) {
		p := NewPosition(9, 7.5)
		mustPlay(t, p, 4, 4) // B
		mustPlay(t, p, 3, 4) // W
		mustPlay(t, p, 8, 8) // B filler
		mustPlay(t, p, 4, 3) // W
		mustPlay(t, p, 8, 7) // B filler
		mustPlay(t, p, 4, 5) // W, black (4,4) now in atari
		if !p.LadderEscape(5, 4) {
			t.Error("LadderEscape(5,4) = false, want true")
		}
	})

	t.Run("running into a working ladder fails", func(t *testing.T) {
		p := NewPosition(9, 7.5)
		mustPlay(t, p, 4, 0) // B
		mustPlay(t, p, 3, 0) // W
		mustPlay(t, p, 8, 8) // B filler
		mustPlay(t, p, 4, 1) // W, black (4,0) in atari
		if p.LadderEscape(5, 0) {
			t.Error("LadderEscape(5,0) = true, want false")
		}
	})

	t.Run("no group in atari", func(t *testing.T) {
		p := NewPosition(9, 7.5)
		mustPlay(t, p, 4, 4) // B
		mustPlay(t, p, 0, 0) // W
		if p.LadderEscape(5, 4) {
			t.Error("LadderEscape next to a healthy group, want false")
		}
	})
}

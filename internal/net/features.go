package net

import "github.com/hailam/gozen/internal/game"

// Feature plane indices. The tensor is channel-major; "mine" planes belong
// to the side to move.
const (
	planeHistoryMine   = 0
	planeHistoryTheirs = inputMoves
	planeKomiMine      = 2 * inputMoves
	planeKomiTheirs    = planeKomiMine + 1
	planeIllegal       = planeKomiTheirs + 1
	planeLibertyMine   = planeIllegal + 1
	planeLibertyTheirs = planeLibertyMine + libertyPlanes
	planeLadderCapture = planeLibertyTheirs + libertyPlanes
	planeLadderEscape  = planeLadderCapture + 1
	planeBlackToMove   = planeLadderEscape + 1
	planeWhiteToMove   = planeBlackToMove + 1
)

// gatherFeatures converts a position plus a symmetry choice into the input
// tensor. Every plane is written in symmetry-transformed coordinate order,
// so the eight orientations of a board reuse the same board logic.
func (n *Network) gatherFeatures(state *game.Position, symmetry int) []float32 {
	size := n.cfg.BoardSize
	spatial := size * size
	input := make([]float32, inputChannels*spatial)

	blacksMove := state.ToMove() == game.Black

	blackBase, whiteBase := planeHistoryMine, planeHistoryTheirs
	if !blacksMove {
		blackBase, whiteBase = planeHistoryTheirs, planeHistoryMine
	}
	moves := state.MoveNum() + 1
	if moves > inputMoves {
		moves = inputMoves
	}
	for h := 0; h < moves; h++ {
		n.fillHistoryPlanes(input, state, h, blackBase+h, whiteBase+h, symmetry)
	}

	// Normalized komi pair: the side the komi favors sees the raised
	// value, the other side its complement.
	mineKomi := 0.5 + state.Komi()/(2*trainedUnitKomi)
	fillConstPlane(input, planeKomiMine, spatial, mineKomi)
	fillConstPlane(input, planeKomiTheirs, spatial, 1-mineKomi)

	n.fillIllegalPlane(input, state, symmetry)
	n.fillLibertyPlanes(input, state, blacksMove, symmetry)
	n.fillLadderPlanes(input, state, symmetry)

	if blacksMove {
		fillConstPlane(input, planeBlackToMove, spatial, 1)
	} else {
		fillConstPlane(input, planeWhiteToMove, spatial, 1)
	}
	return input
}

// fillHistoryPlanes writes the black and white occupation planes for the
// board h moves back.
func (n *Network) fillHistoryPlanes(input []float32, state *game.Position, h, blackPlane, whitePlane, symmetry int) {
	size := n.cfg.BoardSize
	spatial := size * size
	for idx := 0; idx < spatial; idx++ {
		symIdx := n.symmetry.Map(symmetry, idx)
		x, y := symIdx%size, symIdx/size
		switch state.PastStoneAt(h, x, y) {
		case game.Black:
			input[blackPlane*spatial+idx] = 1
		case game.White:
			input[whitePlane*spatial+idx] = 1
		}
	}
}

// fillIllegalPlane marks empty points where the side to move may not play.
func (n *Network) fillIllegalPlane(input []float32, state *game.Position, symmetry int) {
	size := n.cfg.BoardSize
	spatial := size * size
	toMove := state.ToMove()
	for idx := 0; idx < spatial; idx++ {
		symIdx := n.symmetry.Map(symmetry, idx)
		x, y := symIdx%size, symIdx/size
		if state.StoneAt(x, y) == game.Empty && !state.IsLegal(toMove, x, y) {
			input[planeIllegal*spatial+idx] = 1
		}
	}
}

// fillLibertyPlanes writes one-hot liberty bucket planes for both colors,
// counts clamped to the last bucket.
func (n *Network) fillLibertyPlanes(input []float32, state *game.Position, blacksMove bool, symmetry int) {
	size := n.cfg.BoardSize
	spatial := size * size
	blackBase, whiteBase := planeLibertyMine, planeLibertyTheirs
	if !blacksMove {
		blackBase, whiteBase = planeLibertyTheirs, planeLibertyMine
	}
	for idx := 0; idx < spatial; idx++ {
		symIdx := n.symmetry.Map(symmetry, idx)
		x, y := symIdx%size, symIdx/size
		color := state.StoneAt(x, y)
		if color == game.Empty {
			continue
		}
		libs := state.Liberties(x, y)
		if libs > libertyPlanes {
			libs = libertyPlanes
		}
		base := blackBase
		if color == game.White {
			base = whiteBase
		}
		input[(base+libs-1)*spatial+idx] = 1
	}
}

// fillLadderPlanes marks the points where the side to move captures in, or
// escapes from, a ladder.
func (n *Network) fillLadderPlanes(input []float32, state *game.Position, symmetry int) {
	size := n.cfg.BoardSize
	spatial := size * size
	for idx := 0; idx < spatial; idx++ {
		symIdx := n.symmetry.Map(symmetry, idx)
		x, y := symIdx%size, symIdx/size
		if state.LadderCapture(x, y) {
			input[planeLadderCapture*spatial+idx] = 1
		}
		if state.LadderEscape(x, y) {
			input[planeLadderEscape*spatial+idx] = 1
		}
	}
}

func fillConstPlane(input []float32, plane, spatial int, v float32) {
	dst := input[plane*spatial : (plane+1)*spatial]
	for i := range dst {
		dst[i] = v
	}
}

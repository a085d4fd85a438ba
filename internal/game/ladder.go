package game

// ladderDepthLimit bounds the chase reading. A ladder across a 19x19 board
// resolves well within this many alternating moves.
const ladderDepthLimit = 60

// LadderCapture reports whether the side to move, by playing at (x, y), can
// start a working ladder against an adjacent opponent group.
func (p *Position) LadderCapture(x, y int) bool {
	if !p.IsLegal(p.toMove, x, y) {
		return false
	}
	v := p.vertex(x, y)
	opp := p.toMove.Opponent()
	var nbuf [4]int
	for _, n := range neighbors(v, p.size, nbuf[:0]) {
		if p.stones[n] != opp {
			continue
		}
		// Only groups on two liberties can be chased in a ladder.
		_, libs := groupAt(p.stones, p.size, n)
		if len(libs) != 2 || !libs[v] {
			continue
		}
		q := p.Copy()
		if q.Play(x, y) != nil {
			continue
		}
		if ladderRun(q, n, ladderDepthLimit) {
			return true
		}
	}
	return false
}

// LadderEscape reports whether the side to move, by playing at (x, y), pulls
// an adjacent group of its own out of atari in a way the opponent cannot
// refute with a ladder.
func (p *Position) LadderEscape(x, y int) bool {
	if !p.IsLegal(p.toMove, x, y) {
		return false
	}
	v := p.vertex(x, y)
	mine := p.toMove
	var nbuf [4]int
	inAtari := false
	for _, n := range neighbors(v, p.size, nbuf[:0]) {
		if p.stones[n] != mine {
			continue
		}
		if _, libs := groupAt(p.stones, p.size, n); len(libs) == 1 && libs[v] {
			inAtari = true
			break
		}
	}
	if !inAtari {
		return false
	}
	q := p.Copy()
	if q.Play(x, y) != nil {
		return false
	}
	_, libs := groupAt(q.stones, q.size, v)
	if len(libs) >= 3 {
		return true
	}
	if len(libs) < 2 {
		return false
	}
	// Two liberties: the escape only works if no chasing move starts a
	// working ladder.
	for lib := range libs {
		r := q.Copy()
		if r.Play(lib%r.size, lib/r.size) != nil {
			continue
		}
		if ladderRun(r, v, ladderDepthLimit) {
			return false
		}
	}
	return true
}

// ladderRun reads out a ladder chase. The side to move in p owns the group
// containing prey and is trying to escape; the caller has just played the
// chasing stone. Reports whether the chase captures the group.
func ladderRun(p *Position, prey, depth int) bool {
	if depth <= 0 {
		return false
	}
	if p.stones[prey] == Empty {
		return true
	}
	_, libs := groupAt(p.stones, p.size, prey)
	switch len(libs) {
	case 0:
		return true
	case 1:
		// Forced: the prey runs to its only liberty.
	default:
		return false
	}
	var escape int
	for lib := range libs {
		escape = lib
	}
	if !p.IsLegal(p.toMove, escape%p.size, escape/p.size) {
		return true
	}
	q := p.Copy()
	if q.Play(escape%q.size, escape/q.size) != nil {
		return true
	}
	_, libs = groupAt(q.stones, q.size, prey)
	switch len(libs) {
	case 1:
		// Still in atari after running: captured on the next move.
		return true
	case 2:
		// The hunter tries both continuations.
		for lib := range libs {
			r := q.Copy()
			if r.Play(lib%r.size, lib/r.size) != nil {
				continue
			}
			if ladderRun(r, prey, depth-1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

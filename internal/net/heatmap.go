package net

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hailam/gozen/internal/game"
)

// Heatmap renders an evaluation as a text grid of per-mille policy weights,
// top row first, followed by the pass weight, the win rate, and the moves
// that together carry 85% of the policy mass.
func (n *Network) Heatmap(state *game.Position, result Result) string {
	size := n.cfg.BoardSize
	var sb strings.Builder

	for y := size - 1; y >= 0; y-- {
		for x := 0; x < size; x++ {
			score := int(result.Policy[y*size+x] * 1000)
			fmt.Fprintf(&sb, "%3d ", score)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "pass: %d\n", int(result.PolicyPass*1000))
	fmt.Fprintf(&sb, "winrate: %f\n", result.Winrate)

	type move struct {
		weight float32
		vertex int
	}
	moves := make([]move, 0, size*size+1)
	for v, w := range result.Policy {
		moves = append(moves, move{w, v})
	}
	moves = append(moves, move{result.PolicyPass, -1})
	sort.Slice(moves, func(i, j int) bool { return moves[i].weight > moves[j].weight })

	var cum float32
	for _, m := range moves {
		if cum > 0.85 || m.weight < 0.01 {
			break
		}
		fmt.Fprintf(&sb, "%1.3f (%s)\n", m.weight, vertexString(m.vertex, size))
		cum += m.weight
	}
	return sb.String()
}

// vertexString formats a policy index as a board coordinate, skipping the
// letter I, or "pass" for -1.
func vertexString(vertex, size int) string {
	if vertex < 0 {
		return "pass"
	}
	x, y := vertex%size, vertex/size
	column := byte('A' + x)
	if x >= 8 {
		column++
	}
	return fmt.Sprintf("%c%d", column, y+1)
}

package cpu

import (
	"math/rand"

	"dominoes-server/domino"
	"dominoes-server/tile"
)

// ChooseMove scores every legal move the same way the teacher's NPC rule
// brain scores showdown actions: a handful of additive heuristics, then a
// small random perturbation to break ties instead of always taking the
// first-found candidate.
//
//   - +10 for playing a double (sheds the hardest tile to place later)
//   - + tile's own pip total (clears higher-value tiles first)
//   - +1 for every remaining hand tile that shares a pip with this one
//     (keeps the rest of the hand flexible)
//
// Returns false if moves is empty; the caller should pass instead.
func ChooseMove(rng *rand.Rand, hand []tile.Tile, moves []domino.Move) (domino.Move, bool) {
	if len(moves) == 0 {
		return domino.Move{}, false
	}

	type scored struct {
		move  domino.Move
		score int
	}
	candidates := make([]scored, len(moves))
	for i, m := range moves {
		s := 0
		if m.Tile.IsDouble() {
			s += 10
		}
		s += m.Tile.Total()
		for _, h := range hand {
			if h.Equal(m.Tile) {
				continue
			}
			if h.Has(m.Tile.A) || h.Has(m.Tile.B) {
				s++
			}
		}
		s = s*8 + rng.Intn(8) // stable ordering with a tie-break jitter
		candidates[i] = scored{move: m, score: s}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best.move, true
}

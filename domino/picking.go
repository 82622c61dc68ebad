package domino

import (
	"sort"
	"time"

	"dominoes-server/tile"
)

// PickingPositions lists the grid positions still face-down, in ascending
// order, without revealing their tiles (spec.md §4.2 get_valid_moves-style
// read during PICKING).
func (g *Game) PickingPositions() ([]int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusPicking {
		return nil, ErrGameNotPicking
	}
	out := make([]int, 0, len(g.pickingGrid))
	for pos := range g.pickingGrid {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out, nil
}

// ClaimTile flips position pos and adds its tile to playerID's hand. Once
// every seated player holds a full six-tile hand the game transitions
// itself to PLAYING and picks the starting player.
func (g *Game) ClaimTile(playerID string, pos int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claimTileLocked(playerID, pos)
}

func (g *Game) claimTileLocked(playerID string, pos int) (bool, error) {
	if g.status != StatusPicking {
		return false, ErrGameNotPicking
	}
	p := g.findPlayer(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	if p.handCount() >= handSize {
		return false, ErrHandAlreadyFull
	}
	t, ok := g.pickingGrid[pos]
	if !ok {
		return false, ErrPositionTaken
	}
	delete(g.pickingGrid, pos)
	p.addTile(t)
	g.touch()

	started := g.maybeStartPlayLocked()
	return started, nil
}

// AutoAssignRemaining fills every seat below a full hand with randomly
// drawn face-down tiles, used by the picking sweep once its timeout has
// elapsed (spec.md §4.8 picking sweep). assigned maps each player who
// received at least one forced tile to the grid positions they were
// given, for the picking sweep's "tiles auto-assigned" event.
func (g *Game) AutoAssignRemaining() (started bool, assigned map[string][]int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusPicking {
		return false, nil, ErrGameNotPicking
	}

	positions := make([]int, 0, len(g.pickingGrid))
	for pos := range g.pickingGrid {
		positions = append(positions, pos)
	}
	rng := g.cfg.rng()
	rng.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })

	assigned = map[string][]int{}
	i := 0
	for _, p := range g.players {
		for p.handCount() < handSize && i < len(positions) {
			pos := positions[i]
			i++
			t := g.pickingGrid[pos]
			delete(g.pickingGrid, pos)
			p.addTile(t)
			assigned[p.ID] = append(assigned[p.ID], pos)
		}
	}
	g.touch()
	return g.maybeStartPlayLocked(), assigned, nil
}

func (g *Game) maybeStartPlayLocked() bool {
	for _, p := range g.players {
		if p.handCount() < handSize {
			return false
		}
	}
	g.status = StatusPlaying
	g.board = nil
	g.ends = tile.Ends{}
	g.passStreak = 0
	g.currentTurn = g.pickStartingSeatLocked()
	now := time.Now()
	g.turnStartedAt = now
	if g.startedAt.IsZero() {
		g.startedAt = now
	}
	return true
}

// pickStartingSeatLocked honors the previous round's winner if still
// seated; otherwise the highest double starts, tied by highest pip total,
// tied by a random draw.
func (g *Game) pickStartingSeatLocked() int {
	if g.lastRoundWinner != "" {
		if p := g.findPlayer(g.lastRoundWinner); p != nil {
			return p.Seat
		}
	}

	bestSeat := -1
	bestDouble := -1
	bestTotal := -1
	var tied []int
	for _, p := range g.players {
		double, total := bestHandRank(p)
		switch {
		case double > bestDouble, double == bestDouble && total > bestTotal:
			bestSeat, bestDouble, bestTotal = p.Seat, double, total
			tied = []int{p.Seat}
		case double == bestDouble && total == bestTotal:
			tied = append(tied, p.Seat)
		}
	}
	if len(tied) > 1 {
		return tied[g.cfg.rng().Intn(len(tied))]
	}
	return bestSeat
}

// bestHandRank returns the highest double pip value in hand (-1 if none)
// and the highest tile total, used to rank who opens the round.
func bestHandRank(p *Player) (double, total int) {
	double = -1
	for _, t := range p.hand {
		if t.IsDouble() && int(t.A) > double {
			double = int(t.A)
		}
		if t.Total() > total {
			total = t.Total()
		}
	}
	return
}

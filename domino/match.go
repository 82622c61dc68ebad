package domino

import (
	"math/rand"

	"dominoes-server/cpu"
	"dominoes-server/tile"
)

// finalizeMatchSetupLocked draws the match's avatar ids (any player count)
// and, for exactly four players, assigns seats 0+2 vs 1+3 as teammates and
// draws two team display names from the CPU name pool (bot names excluded
// so a team is never confused with a bot player). Called once, the first
// time StartGame transitions WAITING -> PICKING.
func (g *Game) finalizeMatchSetupLocked() {
	g.avatarIDsAssigned = avatarIDs(g.cfg.rng(), len(g.players))

	if len(g.players) != 4 {
		g.isTeamGame = false
		return
	}
	g.isTeamGame = true
	g.teams = map[string]int{
		g.players[0].ID: 0,
		g.players[2].ID: 0,
		g.players[1].ID: 1,
		g.players[3].ID: 1,
	}

	var botNames []string
	for _, p := range g.players {
		if p.IsCPU {
			botNames = append(botNames, p.Name)
		}
	}
	available := make([]string, 0, len(cpu.Species))
	used := make(map[string]bool, len(botNames))
	for _, n := range botNames {
		used[n] = true
	}
	for _, n := range cpu.Species {
		if !used[n] {
			available = append(available, n)
		}
	}
	if len(available) < 2 {
		return
	}
	rng := g.cfg.rng()
	idxs := rng.Perm(len(available))[:2]
	g.teamNames = map[int]string{
		0: available[idxs[0]],
		1: available[idxs[1]],
	}
}

// TeamName returns the display name for team 0 or 1, or "" for free-for-all.
func (g *Game) TeamName(team int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.teamNames == nil {
		return ""
	}
	return g.teamNames[team]
}

// TeamOf reports which team (0 or 1) playerID belongs to, for team games.
func (g *Game) TeamOf(playerID string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.isTeamGame {
		return 0, false
	}
	team, ok := g.teams[playerID]
	return team, ok
}

// MatchWinner reports the id of the player (free-for-all) or the label
// "team_a"/"team_b" (team games) whose score has reached the target, or
// "" if the match isn't over yet.
func (g *Game) MatchWinner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.matchOverLocked() {
		return ""
	}
	// Every member of a team is credited the team's award, so one member's
	// score is the team's score.
	for id, s := range g.scores {
		if s < g.targetScore {
			continue
		}
		if g.isTeamGame {
			if g.teams[id] == 0 {
				return "team_a"
			}
			return "team_b"
		}
		return id
	}
	return ""
}

// AvatarIDs returns the match's assigned avatar ids, one per seat.
func (g *Game) AvatarIDs() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.avatarIDsAssigned...)
}

// avatarIDs draws n unique avatar ids (capped at 4) for the match, called
// once alongside team finalization.
func avatarIDs(rng *rand.Rand, n int) []int {
	if n > 4 {
		n = 4
	}
	pool := append([]int(nil), cpu.AvatarPool...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// MatchOver reports whether any player/team has reached the target score.
func (g *Game) MatchOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.matchOverLocked()
}

// CompletedRounds returns a defensive copy of the round history.
func (g *Game) CompletedRounds() []RoundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]RoundResult, len(g.completedRounds))
	copy(out, g.completedRounds)
	return out
}

// StartNextRound resets board/boneyard/ends/hands for a new round while
// preserving cumulative scores, then re-deals via the picking phase. The
// previous round's winner becomes the seat that starts the new deal once
// picking completes. It is a no-op returning false once the match is over.
func (g *Game) StartNextRound() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusFinished {
		return false, ErrRoundNotFinished
	}
	if g.matchOverLocked() {
		return false, ErrMatchAlreadyOver
	}

	g.board = nil
	g.ends = tile.Ends{}
	g.passStreak = 0
	for _, p := range g.players {
		p.resetHand()
	}
	g.roundNumber = len(g.completedRounds) + 1
	g.beginPickingLocked()
	return true, nil
}

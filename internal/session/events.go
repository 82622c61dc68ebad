package session

import "dominoes-server/domino"

// Named event frames (spec.md §6 "Server -> client frames"). These ride
// alongside the blanket per-viewer snapshot broadcast so a client can
// render "X played the 6-5" / "round over, Y wins" without diffing two
// snapshots itself.

type playerRefPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type playerIDPayload struct {
	PlayerID string `json:"player_id"`
}

type cpuAddedPayload struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	PlayerCount int    `json:"player_count"`
}

type dominoJSON struct {
	Left  byte `json:"left"`
	Right byte `json:"right"`
}

type tilePlayedPayload struct {
	PlayerID   string     `json:"player_id"`
	Domino     dominoJSON `json:"domino"`
	Side       string     `json:"side"`
	AutoPlayed bool       `json:"auto_played,omitempty"`
}

type turnPassedPayload struct {
	PlayerID   string `json:"player_id"`
	AutoPassed bool   `json:"auto_passed,omitempty"`
}

type tileClaimedPayload struct {
	PlayerID  string `json:"player_id"`
	TileIndex int    `json:"tile_index"`
}

type tilesAutoAssignedPayload struct {
	PlayerID  string `json:"player_id"`
	Positions []int  `json:"positions"`
	Reason    string `json:"reason"`
}

type roundStartedPayload struct {
	RoundNumber int `json:"round_number"`
}

type roundOverPayload struct {
	RoundNumber   int            `json:"round_number"`
	WinnerID      string         `json:"winner_id"`
	WinnerName    string         `json:"winner_name"`
	WinnerTeam    string         `json:"winner_team,omitempty"`
	PointsAwarded int            `json:"points_awarded"`
	RemainingPips map[string]int `json:"remaining_pips"`
	WasBlocked    bool           `json:"was_blocked"`
	Scores        map[string]int `json:"scores"`
	MatchWinner   string         `json:"match_winner,omitempty"`
	IsTeamGame    bool           `json:"is_team_game"`
}

type matchOverPayload struct {
	Winner      string         `json:"winner"`
	IsTeamGame  bool           `json:"is_team_game"`
	FinalScores map[string]int `json:"final_scores"`
	TotalRounds int            `json:"total_rounds"`
}

// buildRoundOverPayload assembles the round_over frame from the just
// -finished round's result and the game's current (pre-reset) state.
// Team label convention ("team_a"/"team_b") mirrors the original
// implementation's match model; team 0 is "team_a", team 1 "team_b".
func buildRoundOverPayload(g *domino.Game, result *domino.RoundResult) roundOverPayload {
	snap := g.Snapshot("")
	names := make(map[string]string, len(snap.Players))
	for _, p := range snap.Players {
		names[p.ID] = p.Name
	}

	payload := roundOverPayload{
		RoundNumber:   result.RoundNumber,
		WinnerID:      result.WinnerID,
		WinnerName:    names[result.WinnerID],
		PointsAwarded: result.Points[result.WinnerID],
		RemainingPips: g.RemainingPips(),
		WasBlocked:    result.Reason == "blocked",
		Scores:        snap.Scores,
		IsTeamGame:    snap.IsTeamGame,
	}
	if snap.IsTeamGame {
		payload.WinnerTeam = teamLabel(g, result.WinnerID)
	}
	payload.MatchWinner = g.MatchWinner()
	return payload
}

func teamLabel(g *domino.Game, playerID string) string {
	team, ok := g.TeamOf(playerID)
	if !ok {
		return ""
	}
	if team == 0 {
		return "team_a"
	}
	return "team_b"
}

func buildMatchOverPayload(g *domino.Game) matchOverPayload {
	snap := g.Snapshot("")
	return matchOverPayload{
		Winner:      g.MatchWinner(),
		IsTeamGame:  snap.IsTeamGame,
		FinalScores: snap.Scores,
		TotalRounds: len(g.CompletedRounds()),
	}
}

// announceRoundEnd fans out round_over and, once the match has actually
// been won, match_over. Every game here is created with a match (target
// score always set, spec.md §3 Match), so the original's single-game
// "game_over (non-match mode)" frame has no reachable path in this
// server and isn't emitted.
func (s *Session) announceRoundEnd(gameID string, g *domino.Game, result *domino.RoundResult) {
	s.broadcastEvent(gameID, "round_over", buildRoundOverPayload(g, result))
	if g.MatchOver() {
		s.broadcastEvent(gameID, "match_over", buildMatchOverPayload(g))
	}
}

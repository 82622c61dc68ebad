package domino

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"dominoes-server/tile"
)

func testConfig(maxPlayers int, seed int64) Config {
	return Config{
		MaxPlayers: maxPlayers,
		Variant:    VariantBlock,
		TestMode:   true,
		Rand:       rand.New(rand.NewSource(seed)),
	}
}

func newStartedGame(t *testing.T, n int, seed int64) *Game {
	t.Helper()
	g, err := NewGame("g1", "p0", "Alice", testConfig(n, seed))
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		_, err := g.AddPlayer(playerID(i), playerName(i), false)
		require.NoError(t, err)
	}
	require.NoError(t, g.StartGame("p0"))
	require.Equal(t, StatusPicking, g.Status())

	for _, p := range g.players {
		for p.handCount() < handSize {
			positions, err := g.PickingPositions()
			require.NoError(t, err)
			require.NotEmpty(t, positions)
			_, err = g.ClaimTile(p.ID, positions[0])
			require.NoError(t, err)
		}
	}
	require.Equal(t, StatusPlaying, g.Status())
	return g
}

func playerID(i int) string   { return "p" + string(rune('0'+i)) }
func playerName(i int) string { return string(rune('A' + i)) }

func TestStartGameRequiresCreatorAndMinPlayers(t *testing.T) {
	g, err := NewGame("g1", "p0", "Alice", testConfig(4, 1))
	require.NoError(t, err)

	require.ErrorIs(t, g.StartGame("p0"), ErrTooFewPlayers)

	_, err = g.AddPlayer("p1", "Bob", false)
	require.NoError(t, err)

	require.ErrorIs(t, g.StartGame("p1"), ErrNotCreator)
	require.NoError(t, g.StartGame("p0"))
}

func TestPickingDealsExactlySixEach(t *testing.T) {
	g := newStartedGame(t, 4, 7)
	total := 0
	for _, p := range g.players {
		require.Equal(t, handSize, p.handCount())
		total += p.handCount()
	}
	require.Equal(t, 24, total)
	require.Len(t, g.pickingGrid, totalTiles-total)
}

func TestTileConservationAcrossHandsAndBoard(t *testing.T) {
	g := newStartedGame(t, 4, 3)
	for i := 0; i < 40; i++ {
		p := g.currentPlayer()
		moves, err := g.LegalMoves(p.ID)
		require.NoError(t, err)
		if len(moves) == 0 {
			_, err := g.PassTurn(p.ID)
			require.NoError(t, err)
		} else {
			_, err = g.PlayTile(p.ID, moves[0].Tile, moves[0].Side)
			require.NoError(t, err)
		}

		if g.Status() == StatusFinished {
			break
		}
	}
	total := len(g.board)
	for _, p := range g.players {
		total += p.handCount()
	}
	total += len(g.pickingGrid)
	require.Equal(t, totalTiles, total)
}

func TestPlayTileRejectsWrongTurnAndTileNotInHand(t *testing.T) {
	g := newStartedGame(t, 2, 11)
	cur := g.currentPlayer()
	other := g.players[nextSeat(cur.Seat, len(g.players))]

	_, err := g.PlayTile(other.ID, other.hand[0], SideLeft)
	require.ErrorIs(t, err, ErrNotYourTurn)

	fake := tile.New(6, 6)
	if _, _, ok := cur.hasTile(fake); ok {
		fake = tile.New(0, 0)
	}
	_, err = g.PlayTile(cur.ID, fake, SideLeft)
	require.ErrorIs(t, err, ErrTileNotInHand)
}

func TestPassRejectedWhenLegalMoveExists(t *testing.T) {
	g := newStartedGame(t, 2, 5)
	cur := g.currentPlayer()
	moves, err := g.LegalMoves(cur.ID)
	require.NoError(t, err)
	if len(moves) == 0 {
		t.Skip("seed produced no legal first move, not the scenario under test")
	}
	_, err = g.PassTurn(cur.ID)
	require.ErrorIs(t, err, ErrHasValidMove)
}

func TestOrientationInsensitiveEquality(t *testing.T) {
	require.True(t, tile.New(2, 5).Equal(tile.New(5, 2)))
}

func TestPlayTileOrientsAgainstRequestedEnd(t *testing.T) {
	g, err := NewGame("g1", "p0", "Alice", testConfig(2, 1))
	require.NoError(t, err)
	_, err = g.AddPlayer("p1", "Bob", false)
	require.NoError(t, err)
	require.NoError(t, g.StartGame("p0"))

	a := g.players[0]
	b := g.players[1]
	// Full six-tile hands, so the PICKING -> PLAYING transition fires.
	a.hand = []tile.Tile{tile.New(3, 5), tile.New(0, 0), tile.New(0, 1), tile.New(0, 2), tile.New(1, 1), tile.New(1, 2)}
	b.hand = []tile.Tile{tile.New(5, 6), tile.New(2, 2), tile.New(0, 3), tile.New(1, 3), tile.New(2, 3), tile.New(0, 4)}
	g.pickingGrid = map[int]tile.Tile{}
	require.True(t, g.maybeStartPlayLocked())
	g.currentTurn = 0

	_, err = g.PlayTile("p0", tile.New(3, 5), SideLeft)
	require.NoError(t, err)
	require.Equal(t, byte(3), g.board[0].Left)
	require.Equal(t, byte(5), g.board[0].Right)
	require.Equal(t, byte(3), *g.ends.L)
	require.Equal(t, byte(5), *g.ends.R)

	_, err = g.PlayTile("p1", tile.New(5, 6), SideRight)
	require.NoError(t, err)
	last := g.board[len(g.board)-1]
	require.Equal(t, byte(5), last.Left)
	require.Equal(t, byte(6), last.Right)
	require.Equal(t, byte(6), *g.ends.R)
}

func TestDominoWinEndsRoundAndScoresOpponents(t *testing.T) {
	g, err := NewGame("g1", "p0", "Alice", testConfig(2, 1))
	require.NoError(t, err)
	_, err = g.AddPlayer("p1", "Bob", false)
	require.NoError(t, err)
	require.NoError(t, g.StartGame("p0"))

	a := g.players[0]
	b := g.players[1]
	a.hand = []tile.Tile{tile.New(3, 5), tile.New(0, 6)}
	b.hand = []tile.Tile{tile.New(5, 6), tile.New(1, 2)}
	g.pickingGrid = map[int]tile.Tile{}
	g.status = StatusPlaying
	g.currentTurn = 0

	result, err := g.PlayTile("p0", tile.New(3, 5), SideLeft)
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = g.PlayTile("p1", tile.New(5, 6), SideRight)
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = g.PlayTile("p0", tile.New(6, 6), SideLeft) // not in hand
	require.ErrorIs(t, err, ErrTileNotInHand)
	require.Nil(t, result)

	result, err = g.PlayTile("p0", tile.New(0, 6), SideRight) // last tile
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "domino", result.Reason)
	require.Equal(t, "p0", result.WinnerID)
	require.Equal(t, 3, result.Points["p0"]) // b still holds 1+2
	require.Equal(t, StatusFinished, g.Status())
}

func TestBlockedRoundAwardsLowestHandTotal(t *testing.T) {
	g, err := NewGame("g1", "p0", "Alice", testConfig(2, 1))
	require.NoError(t, err)
	_, err = g.AddPlayer("p1", "Bob", false)
	require.NoError(t, err)
	require.NoError(t, g.StartGame("p0"))

	a := g.players[0]
	b := g.players[1]
	a.hand = []tile.Tile{tile.New(0, 0)}
	b.hand = []tile.Tile{tile.New(6, 6)}
	g.pickingGrid = map[int]tile.Tile{}
	g.status = StatusPlaying
	g.currentTurn = 0
	g.ends = tile.NewEnds(3, 3)
	g.board = []tile.Placed{{Left: 3, Right: 3, Position: 0}}

	result, err := g.PassTurn("p0")
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = g.PassTurn("p1")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "blocked", result.Reason)
	require.Equal(t, "p0", result.WinnerID)
	require.Equal(t, 12, result.Points["p0"])
}

func TestBlockedRoundSubtractsWinnerRemainingPips(t *testing.T) {
	g, err := NewGame("g1", "p0", "Alice", testConfig(2, 1))
	require.NoError(t, err)
	_, err = g.AddPlayer("p1", "Bob", false)
	require.NoError(t, err)
	require.NoError(t, g.StartGame("p0"))

	a := g.players[0]
	b := g.players[1]
	a.hand = []tile.Tile{tile.New(1, 2)} // lowest total (3), not zero
	b.hand = []tile.Tile{tile.New(6, 4)} // total 10
	g.pickingGrid = map[int]tile.Tile{}
	g.status = StatusPlaying
	g.currentTurn = 0
	g.ends = tile.NewEnds(3, 3)
	g.board = []tile.Placed{{Left: 3, Right: 3, Position: 0}}

	result, err := g.PassTurn("p0")
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = g.PassTurn("p1")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "blocked", result.Reason)
	require.Equal(t, "p0", result.WinnerID)
	require.Equal(t, 7, result.Points["p0"]) // 10 - 3, not the bare opponent total of 10
}

func TestTeamDominoWinAwardsOnlyOpposingTeamPips(t *testing.T) {
	g := newStartedGame(t, 4, 42)
	require.True(t, g.isTeamGame)

	p0, p1, p2, p3 := g.players[0], g.players[1], g.players[2], g.players[3]
	winnerTeam := g.teams[p0.ID]
	require.Equal(t, winnerTeam, g.teams[p2.ID])

	p0.hand = []tile.Tile{tile.New(4, 4)}
	p2.hand = []tile.Tile{tile.New(2, 2)} // winner's teammate, still holds 4 pips
	p1.hand = []tile.Tile{tile.New(6, 6)} // opposing team, 12 + 4 = 16 pips total
	p3.hand = []tile.Tile{tile.New(2, 2)}
	g.currentTurn = 0
	g.ends = tile.NewEnds(4, 4)
	g.board = []tile.Placed{{Left: 4, Right: 4, Position: 0}}

	result, err := g.PlayTile(p0.ID, tile.New(4, 4), SideLeft)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, p0.ID, result.WinnerID)
	require.Equal(t, 16, result.Points[p0.ID])
	require.Equal(t, 16, result.Points[p2.ID]) // teammate shares the award
	require.Equal(t, 0, result.Points[p1.ID])
	require.Equal(t, 0, result.Points[p3.ID])
}

func TestSnapshotHidesOtherHands(t *testing.T) {
	g := newStartedGame(t, 3, 9)
	viewer := g.players[0].ID
	other := g.players[1].ID

	snap := g.Snapshot(viewer)
	for _, pv := range snap.Players {
		if pv.ID == viewer {
			require.Len(t, pv.Hand, handSize)
		} else {
			require.Nil(t, pv.Hand)
			require.Equal(t, handSize, pv.HandCount)
		}
	}

	snap2 := g.Snapshot(other)
	for _, pv := range snap2.Players {
		if pv.ID == other {
			require.NotNil(t, pv.Hand)
		} else {
			require.Nil(t, pv.Hand)
		}
	}
}

func TestStartNextRoundPreservesScoresAndResetsBoard(t *testing.T) {
	g := newStartedGame(t, 2, 2)
	a := g.players[0]
	b := g.players[1]
	a.hand = []tile.Tile{tile.New(2, 2)}
	b.hand = []tile.Tile{tile.New(1, 1)}
	g.scores[a.ID] = 30
	g.scores[b.ID] = 10
	g.status = StatusPlaying
	g.board = []tile.Placed{{Left: 2, Right: 2, Position: 0}}
	g.ends = tile.NewEnds(2, 2)
	g.currentTurn = 0

	result, err := g.PlayTile(a.ID, tile.New(2, 2), SideLeft)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, StatusFinished, g.Status())

	ok, err := g.StartNextRound()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StatusPicking, g.Status())
	require.Empty(t, g.board)
	require.True(t, g.ends.Empty())
	require.Equal(t, 30+2, g.scores[a.ID]) // b's remaining pip total (1+1) credited to a
	require.Equal(t, 10, g.scores[b.ID])
}

func TestMatchOverAtTargetScore(t *testing.T) {
	g, err := NewGame("g1", "p0", "Alice", testConfig(2, 1))
	require.NoError(t, err)
	g.scores["p0"] = 100
	require.True(t, g.MatchOver())
}

func TestFourPlayerTeamsAreOppositeSeats(t *testing.T) {
	g := newStartedGame(t, 4, 42)
	require.True(t, g.isTeamGame)
	require.Equal(t, g.teams[g.players[0].ID], g.teams[g.players[2].ID])
	require.Equal(t, g.teams[g.players[1].ID], g.teams[g.players[3].ID])
	require.NotEqual(t, g.teams[g.players[0].ID], g.teams[g.players[1].ID])
}

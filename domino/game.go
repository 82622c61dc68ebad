package domino

import (
	"math/rand"
	"sync"
	"time"

	"dominoes-server/tile"
)

// Move is one legal (tile, side) pairing a player may submit to PlayTile.
type Move struct {
	Tile tile.Tile `json:"tile"`
	Side Side      `json:"side"`
}

// RoundResult records the outcome of one finished round, kept in a Game's
// CompletedRounds history for snapshotting and match progression.
type RoundResult struct {
	RoundNumber int            `json:"round_number"`
	Reason      string         `json:"reason"` // "domino" | "blocked"
	WinnerID    string         `json:"winner_id"`
	Points      map[string]int `json:"points"`
	EndedAt     time.Time      `json:"ended_at"`
}

// Game is a single table: fixed seats, one mutex, and the round-by-round
// state machine WAITING -> PICKING -> PLAYING -> FINISHED. A Game also IS
// the match: MatchID mirrors ID rather than pointing at a separate object,
// so snapshots can reference "match_id" by value without a cyclic pointer
// (spec.md Design Notes on reference style).
type Game struct {
	ID      string
	MatchID string
	Creator string

	mu sync.Mutex

	cfg Config

	status Status

	players []*Player // fixed seat order, index == seat

	board []tile.Placed
	ends  tile.Ends

	pickingGrid map[int]tile.Tile

	currentTurn int
	passStreak  int

	roundNumber     int
	lastRoundWinner string
	completedRounds []RoundResult

	targetScore       int
	scores            map[string]int
	teams             map[string]int // playerID -> 0/1, only set when isTeamGame
	isTeamGame        bool
	teamNames         map[int]string
	avatarIDsAssigned []int

	createdAt      time.Time
	startedAt      time.Time
	turnStartedAt  time.Time
	pickingStarted time.Time
	lastActivity   time.Time
}

// NewGame creates a WAITING game with its creator already seated.
func NewGame(id, creatorID, creatorName string, cfg Config) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	targetScore := cfg.TargetScore
	if targetScore <= 0 {
		targetScore = 100
	}
	g := &Game{
		ID:           id,
		MatchID:      id,
		Creator:      creatorID,
		cfg:          cfg,
		status:       StatusWaiting,
		roundNumber:  1,
		targetScore:  targetScore,
		scores:       make(map[string]int),
		createdAt:    now,
		lastActivity: now,
	}
	if _, err := g.addPlayerLocked(creatorID, creatorName, false); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// LastActivity returns the timestamp of the most recent state-changing
// call (join, start, claim, play, pass, round transition), for reaping
// idle games regardless of how long ago they were created.
func (g *Game) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

// SetLastActivityForTest backdates the idle clock so reaper tests don't
// need to sleep out a real TTL.
func (g *Game) SetLastActivityForTest(t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActivity = t
}

// CPUPickDelay and CPUTurnDelay expose the game's configured bot pacing so
// a driver outside this package can sleep a realistic amount before acting
// on a CPU seat's behalf, without reaching into Config directly.
func (g *Game) CPUPickDelay() time.Duration { return g.cfg.cpuPickDelay() }
func (g *Game) CPUTurnDelay() time.Duration { return g.cfg.cpuTurnDelay() }

// Rand exposes the game's injected RNG so a CPU driver's tie-breaks stay
// reproducible under the same seed as the game itself.
func (g *Game) Rand() *rand.Rand { return g.cfg.rng() }

func (g *Game) touch() {
	g.lastActivity = time.Now()
}

// AddPlayer seats a new human or CPU player while the game is WAITING.
func (g *Game) AddPlayer(id, name string, isCPU bool) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addPlayerLocked(id, name, isCPU)
}

func (g *Game) addPlayerLocked(id, name string, isCPU bool) (*Player, error) {
	if g.status != StatusWaiting {
		return nil, ErrGameNotWaiting
	}
	if len(g.players) >= g.cfg.MaxPlayers {
		return nil, ErrGameFull
	}
	for _, p := range g.players {
		if p.Name == name {
			return nil, ErrNameTaken
		}
	}
	p := newPlayer(id, name, len(g.players), isCPU)
	g.players = append(g.players, p)
	g.scores[id] = 0
	g.touch()
	return p, nil
}

func (g *Game) findPlayer(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Disconnect marks a seated player as no longer connected without vacating
// their seat; ReconnectPlayer flips it back. Seats never move mid-match so
// the player can rejoin the same hand (spec.md §3 Lifecycles).
func (g *Game) Disconnect(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.findPlayer(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Connected = false
	g.touch()
	return nil
}

func (g *Game) Reconnect(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.findPlayer(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Connected = true
	g.touch()
	return nil
}

// StartGame moves WAITING -> PICKING, creator-only, requiring at least two
// seated players. It shuffles the full 28-tile set into a face-down grid
// that ClaimTile / AutoAssignRemaining draw down until every hand has six
// tiles, at which point the game transitions itself to PLAYING.
func (g *Game) StartGame(requesterID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusWaiting {
		return ErrGameNotWaiting
	}
	if requesterID != g.Creator {
		return ErrNotCreator
	}
	if len(g.players) < 2 {
		return ErrTooFewPlayers
	}
	g.finalizeMatchSetupLocked()
	g.beginPickingLocked()
	return nil
}

func (g *Game) beginPickingLocked() {
	set := tile.FullSet()
	order := g.cfg.rng().Perm(len(set))
	grid := make(map[int]tile.Tile, len(set))
	for pos, idx := range order {
		grid[pos] = set[idx]
	}
	g.pickingGrid = grid
	g.status = StatusPicking
	g.pickingStarted = time.Now()
	g.touch()
}

func nextSeat(seat, n int) int {
	return (seat + 1) % n
}

// advanceTurn moves currentTurn to the next seat and resets the per-turn
// clock; it does not skip disconnected players. The turn sweep does not act
// for a disconnected seat either, so the turn waits for that player.
func (g *Game) advanceTurn() {
	g.currentTurn = nextSeat(g.currentTurn, len(g.players))
	g.turnStartedAt = time.Now()
}

func (g *Game) currentPlayer() *Player {
	if len(g.players) == 0 {
		return nil
	}
	return g.players[g.currentTurn]
}

// LegalMoves enumerates every (tile, side) pairing playerID could submit to
// PlayTile right now. It is a pure read: callable regardless of whose turn
// it is (spec.md §4.5 get_valid_moves).
func (g *Game) LegalMoves(playerID string) ([]Move, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.findPlayer(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if g.status != StatusPlaying {
		return nil, ErrGameNotPlaying
	}
	return g.legalMovesLocked(p), nil
}

func (g *Game) legalMovesLocked(p *Player) []Move {
	requirePlaying(g)
	var moves []Move
	if g.ends.Empty() {
		for _, t := range p.hand {
			moves = append(moves, Move{Tile: t, Side: SideLeft})
		}
		return moves
	}
	doubleEnded := *g.ends.L == *g.ends.R
	for _, t := range p.hand {
		if t.Has(*g.ends.L) {
			moves = append(moves, Move{Tile: t, Side: SideLeft})
		}
		if !doubleEnded && t.Has(*g.ends.R) {
			moves = append(moves, Move{Tile: t, Side: SideRight})
		}
	}
	return moves
}

// PlayTile lays t against the named side of the board. Orientation is
// resolved here (which pip ends up outward) rather than on Tile identity.
func (g *Game) PlayTile(playerID string, t tile.Tile, side Side) (*RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPlaying {
		return nil, ErrGameNotPlaying
	}
	p := g.findPlayer(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if p.Seat != g.currentTurn {
		return nil, ErrNotYourTurn
	}
	hand, idx, ok := p.hasTile(t)
	if !ok {
		return nil, ErrTileNotInHand
	}

	var left, right byte
	if g.ends.Empty() {
		switch side {
		case SideLeft, SideRight:
			left, right = hand.A, hand.B
		default:
			return nil, ErrInvalidSide
		}
	} else {
		switch side {
		case SideLeft:
			if !hand.Has(*g.ends.L) {
				return nil, ErrTileMismatch
			}
			right = *g.ends.L
			left = hand.Other(right)
		case SideRight:
			if !hand.Has(*g.ends.R) {
				return nil, ErrTileMismatch
			}
			left = *g.ends.R
			right = hand.Other(left)
		default:
			return nil, ErrInvalidSide
		}
	}

	p.removeTileAt(idx)
	placed := tile.Placed{Left: left, Right: right, Position: len(g.board)}
	if side == SideLeft && !g.ends.Empty() {
		g.board = append([]tile.Placed{placed}, g.board...)
	} else {
		g.board = append(g.board, placed)
	}
	g.ends = tile.NewEnds(g.board[0].Left, g.board[len(g.board)-1].Right)
	g.passStreak = 0
	g.touch()

	if p.handCount() == 0 {
		return g.finishRoundLocked("domino", p.ID), nil
	}
	g.advanceTurn()
	return nil, nil
}

// PassTurn records a pass. It is only legal when the caller genuinely has
// no legal move; a full circuit of passes blocks the round.
func (g *Game) PassTurn(playerID string) (*RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPlaying {
		return nil, ErrGameNotPlaying
	}
	p := g.findPlayer(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if p.Seat != g.currentTurn {
		return nil, ErrNotYourTurn
	}
	if len(g.legalMovesLocked(p)) > 0 {
		return nil, ErrHasValidMove
	}

	g.passStreak++
	g.touch()
	if g.passStreak >= len(g.players) {
		return g.finishRoundLocked("blocked", g.blockedWinnerLocked()), nil
	}
	g.advanceTurn()
	return nil, nil
}

// blockedWinnerLocked picks the lowest total-pip hand as the blocked-round
// winner, breaking ties by earliest seat.
func (g *Game) blockedWinnerLocked() string {
	best := g.players[0]
	bestTotal := best.handTotal()
	for _, p := range g.players[1:] {
		if t := p.handTotal(); t < bestTotal {
			best, bestTotal = p, t
		}
	}
	return best.ID
}

func (g *Game) finishRoundLocked(reason, winnerID string) *RoundResult {
	points := g.awardPointsLocked(reason, winnerID)
	result := RoundResult{
		RoundNumber: g.roundNumber,
		Reason:      reason,
		WinnerID:    winnerID,
		Points:      points,
		EndedAt:     time.Now(),
	}
	g.completedRounds = append(g.completedRounds, result)
	g.lastRoundWinner = winnerID
	g.status = StatusFinished
	return &result
}

func (g *Game) matchOverLocked() bool {
	for _, s := range g.scores {
		if s >= g.targetScore {
			return true
		}
	}
	return false
}

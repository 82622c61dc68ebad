// Package registry holds every live Game and its owning Match bookkeeping
// in memory, the same role the teacher's lobby package plays for tables:
// create/join/list/reap, with one registry-level lock guarding the maps
// and each Game keeping its own lock for in-play mutation.
package registry

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"dominoes-server/domino"
)

const (
	// Stale-game thresholds (spec.md §4.8 cleanup sweep).
	anyStateTTL      = 60 * time.Minute
	waitingNoHumanTTL = 2 * time.Minute
	finishedTTL      = 5 * time.Minute
)

// Entry pairs a Game with the registry-local bookkeeping the game itself
// doesn't need to know about (creation time; Reap measures idleness from
// Game.LastActivity, not from this).
type Entry struct {
	Game      *domino.Game
	CreatedAt time.Time
}

// Registry is the process-wide table of games. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*Entry
}

func New() *Registry {
	return &Registry{games: make(map[string]*Entry)}
}

// CreateGame allocates a fresh short id, builds a WAITING Game seated with
// its creator, and registers it. Ids are 8 lowercase hex characters drawn
// from a fresh uuid, retried on the astronomically unlikely collision.
func (r *Registry) CreateGame(creatorID, creatorName string, cfg domino.Config) (*domino.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.freshIDLocked()
	g, err := domino.NewGame(id, creatorID, creatorName, cfg)
	if err != nil {
		return nil, err
	}
	r.games[id] = &Entry{Game: g, CreatedAt: time.Now()}
	log.Printf("[Registry] created game %s by %s", id, creatorName)
	return g, nil
}

func (r *Registry) freshIDLocked() string {
	for {
		id := uuid.New().String()[:8]
		if _, exists := r.games[id]; !exists {
			return id
		}
	}
}

func (r *Registry) Get(id string) (*domino.Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.games[id]
	if !ok {
		return nil, false
	}
	return e.Game, true
}

// JoinGame seats a human player into an existing WAITING game.
func (r *Registry) JoinGame(gameID, playerID, name string) (*domino.Game, error) {
	g, ok := r.Get(gameID)
	if !ok {
		return nil, domino.ErrPlayerNotFound
	}
	if _, err := g.AddPlayer(playerID, name, false); err != nil {
		return nil, err
	}
	return g, nil
}

// AddCPU seats a bot player, creator-only, using name as the bot's display
// name (the caller is expected to have drawn it from cpu.PickName).
func (r *Registry) AddCPU(gameID, requesterID, cpuID, name string) (*domino.Game, error) {
	g, ok := r.Get(gameID)
	if !ok {
		return nil, domino.ErrPlayerNotFound
	}
	if requesterID != g.Creator {
		return nil, domino.ErrNotCreator
	}
	if _, err := g.AddPlayer(cpuID, name, true); err != nil {
		return nil, err
	}
	return g, nil
}

// StartGame begins the deal early, creator-only, requiring at least two
// seated players — it simply forwards to the Game's own guard since the
// registry holds no additional authority over when a table may start.
func (r *Registry) StartGame(gameID, requesterID string) error {
	g, ok := r.Get(gameID)
	if !ok {
		return domino.ErrPlayerNotFound
	}
	return g.StartGame(requesterID)
}

func (r *Registry) RemovePlayer(gameID, playerID string) error {
	g, ok := r.Get(gameID)
	if !ok {
		return domino.ErrPlayerNotFound
	}
	return g.Disconnect(playerID)
}

func (r *Registry) ReconnectPlayer(gameID, playerID string) error {
	g, ok := r.Get(gameID)
	if !ok {
		return domino.ErrPlayerNotFound
	}
	return g.Reconnect(playerID)
}

// ListOpen returns every game in WAITING, including ones whose seats are
// already full.
func (r *Registry) ListOpen() []*domino.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domino.Game
	for _, e := range r.games {
		if e.Game.Status() == domino.StatusWaiting {
			out = append(out, e.Game)
		}
	}
	return out
}

// ListActive returns every game currently picking or playing.
func (r *Registry) ListActive() []*domino.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domino.Game
	for _, e := range r.games {
		switch e.Game.Status() {
		case domino.StatusPicking, domino.StatusPlaying:
			out = append(out, e.Game)
		}
	}
	return out
}

// All returns every registered game, for sweep loops.
func (r *Registry) All() []*domino.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domino.Game, 0, len(r.games))
	for _, e := range r.games {
		out = append(out, e.Game)
	}
	return out
}

// Stats summarizes registry occupancy for the get_stats operation and the
// /metrics HTTP surface.
type Stats struct {
	TotalGames   int
	WaitingGames int
	PickingGames int
	PlayingGames int
	FinishedGames int
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Stats
	s.TotalGames = len(r.games)
	for _, e := range r.games {
		switch e.Game.Status() {
		case domino.StatusWaiting:
			s.WaitingGames++
		case domino.StatusPicking:
			s.PickingGames++
		case domino.StatusPlaying:
			s.PlayingGames++
		case domino.StatusFinished:
			s.FinishedGames++
		}
	}
	return s
}

// Reap removes games idle beyond the thresholds in spec.md §4.8, measured
// from each Game's own LastActivity rather than registry-entry creation
// time, so a table that's still being played past anyStateTTL is not
// deleted out from under its players: any game idle longer than
// anyStateTTL regardless of state, a WAITING game with only bots/no
// connected humans idle longer than waitingNoHumanTTL, or a FINISHED
// (match-over) game idle longer than finishedTTL. Returns the removed ids.
func (r *Registry) Reap(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, e := range r.games {
		idle := now.Sub(e.Game.LastActivity())
		stale := idle >= anyStateTTL
		if !stale && e.Game.Status() == domino.StatusWaiting && idle >= waitingNoHumanTTL && !hasConnectedHuman(e.Game) {
			stale = true
		}
		if !stale && e.Game.Status() == domino.StatusFinished && e.Game.MatchOver() && idle >= finishedTTL {
			stale = true
		}
		if stale {
			delete(r.games, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		log.Printf("[Registry] reaped %d stale game(s): %v", len(removed), removed)
	}
	return removed
}

func hasConnectedHuman(g *domino.Game) bool {
	snap := g.Snapshot("")
	for _, p := range snap.Players {
		if !p.IsCPU && p.Connected {
			return true
		}
	}
	return false
}

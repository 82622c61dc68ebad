// Package scheduler runs the process-wide sweep loops that used to be one
// ticker per table in the teacher (apps/server/internal/table Table.tick):
// here there is one ticker per concern, each scanning the whole registry,
// because spec.md §4.8 defines cleanup/picking/turn timeouts as global
// cadences rather than per-game tickers.
package scheduler

import (
	"context"
	"log"
	"math/rand"
	"time"

	"dominoes-server/domino"
	"dominoes-server/internal/registry"
)

// Broadcaster is the narrow slice of the transport layer the scheduler
// needs: announce that a game's state changed so sessions can push fresh
// snapshots, plus the named events that report what a sweep did (forced
// tile assignment, the game start it caused, a forced play or pass). It
// never needs to know about a specific connection.
type Broadcaster interface {
	Notify(gameID string)
	NotifyTilesAutoAssigned(gameID string, assigned map[string][]int)
	NotifyGameStarted(gameID string)
	NotifyAutoPlay(gameID, playerID string, move domino.Move, result *domino.RoundResult)
	NotifyAutoPass(gameID, playerID string, result *domino.RoundResult)
}

const (
	cleanupInterval = 60 * time.Second
	pickingInterval = 5 * time.Second
	turnInterval    = 1 * time.Second
)

// Scheduler owns the three global loops. Each loop swallows per-game
// errors (logs and continues) so one misbehaving game can't stall the
// sweep for every other table.
type Scheduler struct {
	reg     *registry.Registry
	bus     Broadcaster
	rng     *rand.Rand
	pickingTimeout time.Duration
	turnTimeout    time.Duration
}

func New(reg *registry.Registry, bus Broadcaster, pickingTimeout, turnTimeout time.Duration) *Scheduler {
	return &Scheduler{
		reg:            reg,
		bus:            bus,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		pickingTimeout: pickingTimeout,
		turnTimeout:    turnTimeout,
	}
}

// Run blocks until ctx is cancelled, driving all three loops concurrently.
func (s *Scheduler) Run(ctx context.Context) {
	go s.loop(ctx, cleanupInterval, s.sweepCleanup)
	go s.loop(ctx, pickingInterval, s.sweepPicking)
	s.loop(ctx, turnInterval, s.sweepTurns)
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, sweep func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func (s *Scheduler) sweepCleanup() {
	removed := s.reg.Reap(time.Now())
	for _, id := range removed {
		s.bus.Notify(id)
	}
}

// sweepPicking auto-assigns remaining face-down tiles once a PICKING game
// has run past its timeout, and lets CPU seats claim at their own pace via
// the game's own cfg-driven pacing rather than this sweep directly.
func (s *Scheduler) sweepPicking() {
	for _, g := range s.reg.ListActive() {
		if g.Status() != domino.StatusPicking {
			continue
		}
		snap := g.Snapshot("")
		if snap.PickingRemainMS != 0 {
			continue
		}
		started, assigned, err := g.AutoAssignRemaining()
		if err != nil {
			log.Printf("[Scheduler picking-sweep] game %s: %v", g.ID, err)
			continue
		}
		if len(assigned) > 0 {
			s.bus.NotifyTilesAutoAssigned(g.ID, assigned)
		}
		if started {
			s.bus.NotifyGameStarted(g.ID)
		}
		if len(assigned) > 0 || started {
			s.bus.Notify(g.ID)
		}
	}
}

// sweepTurns auto-plays or auto-passes for any PLAYING game whose current
// turn has exceeded its timeout. CPU seats are skipped: they self-pace via
// the per-game CPU driver (internal/session's ensureCPUDriver), and a
// disconnected seat is skipped too since nothing here can notify its
// client of the forced move. Racing either would let two goroutines act
// on the same seat.
func (s *Scheduler) sweepTurns() {
	for _, g := range s.reg.ListActive() {
		if g.Status() != domino.StatusPlaying {
			continue
		}
		snap := g.Snapshot("")
		if snap.TurnRemainMS != 0 {
			continue
		}
		cur := snap.Players[snap.CurrentTurn]
		if cur.IsCPU || !cur.Connected {
			continue
		}
		if err := s.autoAct(g, cur.ID); err != nil {
			log.Printf("[Scheduler turn-sweep] game %s player %s: %v", g.ID, cur.ID, err)
			continue
		}
		s.bus.Notify(g.ID)
	}
}

// autoAct forces a uniformly random legal move (or a pass, if none exist)
// for a player whose turn timed out. This is deliberately not the CPU's
// own weighted heuristic (cpu.ChooseMove): a timeout penalizes an idle
// player with an arbitrary move, it isn't meant to play well on their
// behalf.
func (s *Scheduler) autoAct(g *domino.Game, playerID string) error {
	moves, err := g.LegalMoves(playerID)
	if err != nil {
		return err
	}
	if len(moves) == 0 {
		result, err := g.PassTurn(playerID)
		if err != nil {
			return err
		}
		s.bus.NotifyAutoPass(g.ID, playerID, result)
		return nil
	}
	move := moves[g.Rand().Intn(len(moves))]
	result, err := g.PlayTile(playerID, move.Tile, move.Side)
	if err != nil {
		return err
	}
	s.bus.NotifyAutoPlay(g.ID, playerID, move, result)
	return nil
}

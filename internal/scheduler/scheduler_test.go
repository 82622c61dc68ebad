package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dominoes-server/domino"
	"dominoes-server/internal/registry"
)

type recordingBus struct {
	mu       sync.Mutex
	notified []string
}

func (b *recordingBus) Notify(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notified = append(b.notified, gameID)
}

func (b *recordingBus) NotifyTilesAutoAssigned(gameID string, assigned map[string][]int) {}

func (b *recordingBus) NotifyGameStarted(gameID string) {}

func (b *recordingBus) NotifyAutoPlay(gameID, playerID string, move domino.Move, result *domino.RoundResult) {
}

func (b *recordingBus) NotifyAutoPass(gameID, playerID string, result *domino.RoundResult) {}

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.notified)
}

func startedGame(t *testing.T, reg *registry.Registry, pickingTimeout, turnTimeout time.Duration) *domino.Game {
	t.Helper()
	cfg := domino.Config{
		MaxPlayers:     2,
		Variant:        domino.VariantBlock,
		TestMode:       true,
		Rand:           rand.New(rand.NewSource(1)),
		PickingTimeout: pickingTimeout,
		TurnTimeout:    turnTimeout,
	}
	g, err := reg.CreateGame("p0", "Alice", cfg)
	require.NoError(t, err)
	_, err = reg.JoinGame(g.ID, "p1", "Bob")
	require.NoError(t, err)
	require.NoError(t, reg.StartGame(g.ID, "p0"))
	return g
}

func TestSweepPickingAutoAssignsPastTimeout(t *testing.T) {
	reg := registry.New()
	g := startedGame(t, reg, 1*time.Millisecond, 0)
	time.Sleep(5 * time.Millisecond)

	bus := &recordingBus{}
	s := New(reg, bus, 0, 0)
	s.sweepPicking()

	require.Equal(t, domino.StatusPlaying, g.Status())
	require.Equal(t, 1, bus.count())
}

func TestSweepPickingLeavesFreshGameAlone(t *testing.T) {
	reg := registry.New()
	g := startedGame(t, reg, time.Hour, 0)

	bus := &recordingBus{}
	s := New(reg, bus, 0, 0)
	s.sweepPicking()

	require.Equal(t, domino.StatusPicking, g.Status())
	require.Equal(t, 0, bus.count())
}

func TestSweepTurnsAutoActsPastTimeout(t *testing.T) {
	reg := registry.New()
	g := startedGame(t, reg, 0, time.Millisecond)
	_, _, err := g.AutoAssignRemaining()
	require.NoError(t, err)
	require.Equal(t, domino.StatusPlaying, g.Status())

	time.Sleep(5 * time.Millisecond)

	bus := &recordingBus{}
	s := New(reg, bus, 0, 0)
	s.sweepTurns()

	require.Equal(t, 1, bus.count())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	reg := registry.New()
	bus := &recordingBus{}
	s := New(reg, bus, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

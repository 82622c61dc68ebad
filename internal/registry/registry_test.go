package registry

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dominoes-server/domino"
)

func cfg() domino.Config {
	return domino.Config{
		MaxPlayers: 4,
		Variant:    domino.VariantBlock,
		TestMode:   true,
		Rand:       rand.New(rand.NewSource(1)),
	}
}

func TestCreateAndJoinGame(t *testing.T) {
	r := New()
	g, err := r.CreateGame("p0", "Alice", cfg())
	require.NoError(t, err)
	require.Len(t, g.ID, 8)

	got, ok := r.Get(g.ID)
	require.True(t, ok)
	require.Same(t, g, got)

	_, err = r.JoinGame(g.ID, "p1", "Bob")
	require.NoError(t, err)
}

func TestAddCPURequiresCreator(t *testing.T) {
	r := New()
	g, err := r.CreateGame("p0", "Alice", cfg())
	require.NoError(t, err)
	_, err = r.JoinGame(g.ID, "p1", "Bob")
	require.NoError(t, err)

	_, err = r.AddCPU(g.ID, "p1", "cpu1", "Baboon")
	require.ErrorIs(t, err, domino.ErrNotCreator)

	_, err = r.AddCPU(g.ID, "p0", "cpu1", "Baboon")
	require.NoError(t, err)
}

func TestListOpenExcludesStartedGames(t *testing.T) {
	r := New()
	g1, err := r.CreateGame("p0", "Alice", cfg())
	require.NoError(t, err)
	_, err = r.JoinGame(g1.ID, "p1", "Bob")
	require.NoError(t, err)

	g2, err := r.CreateGame("q0", "Carol", cfg())
	require.NoError(t, err)
	_, err = r.JoinGame(g2.ID, "q1", "Dave")
	require.NoError(t, err)
	require.NoError(t, r.StartGame(g2.ID, "q0"))

	open := r.ListOpen()
	require.Len(t, open, 1)
	require.Equal(t, g1.ID, open[0].ID)

	active := r.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, g2.ID, active[0].ID)
}

func TestStatsCountsByStatus(t *testing.T) {
	r := New()
	g, err := r.CreateGame("p0", "Alice", cfg())
	require.NoError(t, err)
	_, err = r.JoinGame(g.ID, "p1", "Bob")
	require.NoError(t, err)

	s := r.Stats()
	require.Equal(t, 1, s.TotalGames)
	require.Equal(t, 1, s.WaitingGames)
}

func TestReapRemovesStaleWaitingGameWithNoHumans(t *testing.T) {
	r := New()
	g, err := r.CreateGame("bot-creator", "Alice", cfg())
	require.NoError(t, err)
	require.NoError(t, g.Disconnect("bot-creator"))

	g.SetLastActivityForTest(time.Now().Add(-3 * time.Minute))
	removed := r.Reap(time.Now())
	require.Equal(t, []string{g.ID}, removed)

	_, ok := r.Get(g.ID)
	require.False(t, ok)
}

func TestReapKeepsRecentGames(t *testing.T) {
	r := New()
	_, err := r.CreateGame("p0", "Alice", cfg())
	require.NoError(t, err)

	removed := r.Reap(time.Now())
	require.Empty(t, removed)
}

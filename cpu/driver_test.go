package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"dominoes-server/domino"
	"dominoes-server/tile"
)

func TestChooseMoveReturnsFalseWhenNoMoves(t *testing.T) {
	_, ok := ChooseMove(rand.New(rand.NewSource(1)), nil, nil)
	require.False(t, ok)
}

func TestChooseMovePrefersDoublesAndHigherTotals(t *testing.T) {
	hand := []tile.Tile{tile.New(6, 6), tile.New(1, 2)}
	moves := []domino.Move{
		{Tile: tile.New(1, 2), Side: domino.SideLeft},
		{Tile: tile.New(6, 6), Side: domino.SideRight},
	}
	counts := map[tile.Tile]int{}
	for seed := int64(0); seed < 50; seed++ {
		m, ok := ChooseMove(rand.New(rand.NewSource(seed)), hand, moves)
		require.True(t, ok)
		counts[m.Tile]++
	}
	require.Greater(t, counts[tile.New(6, 6)], counts[tile.New(1, 2)])
}

func TestPickNameAvoidsExisting(t *testing.T) {
	name := PickName(rand.New(rand.NewSource(1)), Species[:len(Species)-1])
	require.Equal(t, Species[len(Species)-1], name)
}

func TestChoosePositionEmpty(t *testing.T) {
	_, ok := ChoosePosition(rand.New(rand.NewSource(1)), nil)
	require.False(t, ok)
}

package domino

import "dominoes-server/tile"

// Player is a seated participant. Seats are fixed for the life of a match;
// a Player is never removed on disconnect, only Connected is toggled so a
// later reconnect_player can find the same id (spec.md §3 Lifecycles).
type Player struct {
	ID        string
	Name      string
	Seat      int
	IsCPU     bool
	Connected bool
	Score     int // not written; match scores are kept in Game.scores

	hand []tile.Tile
}

func newPlayer(id, name string, seat int, isCPU bool) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Seat:      seat,
		IsCPU:     isCPU,
		Connected: true,
		hand:      make([]tile.Tile, 0, handSize),
	}
}

// Hand returns a defensive copy of the player's tiles.
func (p *Player) Hand() []tile.Tile {
	out := make([]tile.Tile, len(p.hand))
	copy(out, p.hand)
	return out
}

func (p *Player) handCount() int {
	return len(p.hand)
}

func (p *Player) handTotal() int {
	total := 0
	for _, t := range p.hand {
		total += t.Total()
	}
	return total
}

// hasTile reports orientation-insensitive membership and, if found, returns
// the canonical tile and its index.
func (p *Player) hasTile(t tile.Tile) (tile.Tile, int, bool) {
	for i, h := range p.hand {
		if h.Equal(t) {
			return h, i, true
		}
	}
	return tile.Tile{}, -1, false
}

func (p *Player) removeTileAt(i int) tile.Tile {
	t := p.hand[i]
	p.hand = append(p.hand[:i], p.hand[i+1:]...)
	return t
}

func (p *Player) addTile(t tile.Tile) {
	p.hand = append(p.hand, t)
}

func (p *Player) resetHand() {
	p.hand = make([]tile.Tile, 0, handSize)
}

package session

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"dominoes-server/cpu"
	"dominoes-server/domino"
	"dominoes-server/internal/transport"
	"dominoes-server/tile"
)

// broadcast pushes a fresh per-viewer snapshot to every session watching
// gameID. Each recipient gets their own hand; nobody else's.
func (s *Session) broadcast(gameID string) {
	g, found := s.reg.Get(gameID)
	if !found {
		return
	}
	s.mu.Lock()
	members := s.members[gameID]
	type target struct {
		key  string
		conn *transport.Connection
		pid  string
	}
	var targets []target
	for key := range members {
		if l := s.links[key]; l != nil {
			targets = append(targets, target{key: key, conn: l.conn, pid: l.playerID})
		}
	}
	s.mu.Unlock()

	for _, t := range targets {
		snap := g.Snapshot(t.pid)
		payload, err := json.Marshal(snap)
		if err != nil {
			log.Printf("[Session] snapshot marshal error: %v", err)
			continue
		}
		t.conn.Send(transport.Frame{Type: "snapshot", GameID: gameID, Payload: payload})
	}
}

// broadcastEvent fans a named event frame out to every session watching
// gameID, alongside (not instead of) the blanket snapshot broadcast.
func (s *Session) broadcastEvent(gameID, eventType string, payload any) {
	s.sendEventTo(gameID, "", eventType, payload)
}

// broadcastEventExcept is broadcastEvent but skips the session named by
// exceptKey, e.g. not telling a player they themselves just connected.
func (s *Session) broadcastEventExcept(gameID, exceptKey, eventType string, payload any) {
	s.sendEventTo(gameID, exceptKey, eventType, payload)
}

func (s *Session) sendEventTo(gameID, exceptKey, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Session] event marshal error (%s): %v", eventType, err)
		return
	}
	s.mu.Lock()
	members := s.members[gameID]
	var conns []*transport.Connection
	for key := range members {
		if key == exceptKey {
			continue
		}
		if l := s.links[key]; l != nil {
			conns = append(conns, l.conn)
		}
	}
	s.mu.Unlock()

	frame := transport.Frame{Type: eventType, GameID: gameID, Payload: data}
	for _, c := range conns {
		c.Send(frame)
	}
}

type errorPayload struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (s *Session) sendError(sessionKey string, cat Category, msg string) {
	c := s.conn(sessionKey)
	if c == nil {
		return
	}
	payload, _ := json.Marshal(errorPayload{Category: string(cat), Message: msg})
	c.Send(transport.Frame{Type: "error", Payload: payload})
}

// sendGameError classifies a domino sentinel error before relaying it, so
// the client can tell "you broke a rule" from "that shouldn't be possible".
func (s *Session) sendGameError(sessionKey string, err error) {
	s.sendError(sessionKey, classify(err), err.Error())
}

func classify(err error) Category {
	switch {
	case errors.Is(err, domino.ErrNotYourTurn),
		errors.Is(err, domino.ErrTileNotInHand),
		errors.Is(err, domino.ErrTileMismatch),
		errors.Is(err, domino.ErrInvalidSide),
		errors.Is(err, domino.ErrHasValidMove),
		errors.Is(err, domino.ErrNameTaken),
		errors.Is(err, domino.ErrPositionTaken),
		errors.Is(err, domino.ErrHandAlreadyFull):
		return CategoryValidation
	case errors.Is(err, domino.ErrNotCreator):
		return CategoryAuthz
	case errors.Is(err, domino.ErrGameNotPlaying),
		errors.Is(err, domino.ErrGameNotWaiting),
		errors.Is(err, domino.ErrGameNotPicking),
		errors.Is(err, domino.ErrGameFull),
		errors.Is(err, domino.ErrTooFewPlayers),
		errors.Is(err, domino.ErrRoundNotFinished),
		errors.Is(err, domino.ErrMatchAlreadyOver),
		errors.Is(err, domino.ErrPlayerNotFound):
		return CategoryState
	default:
		var ise domino.InvalidStateError
		if errors.As(err, &ise) {
			return CategoryInternal
		}
		return CategoryTransient
	}
}

type identityPayload struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

func (s *Session) sendIdentity(sessionKey, gameID, playerID string) {
	c := s.conn(sessionKey)
	if c == nil {
		return
	}
	payload, _ := json.Marshal(identityPayload{GameID: gameID, PlayerID: playerID})
	c.Send(transport.Frame{Type: "identity", GameID: gameID, Payload: payload})
}

func (s *Session) closeUnknown(sessionKey string) {
	c := s.conn(sessionKey)
	if c == nil {
		return
	}
	c.Close(transport.CloseUnknownSession, "unknown game or player")
}

// ensureCPUDriver starts exactly one background goroutine per game to pace
// CPU seats through picking claims and turn plays, the way the teacher's
// npc.Manager drives one NPC loop per table rather than reacting inline to
// a human's action. It exits once the game is FINISHED with no next round
// started within one sweep of idling, releasing the "active" slot.
func (s *Session) ensureCPUDriver(gameID string) {
	s.mu.Lock()
	if s.drivers[gameID] {
		s.mu.Unlock()
		return
	}
	s.drivers[gameID] = true
	s.mu.Unlock()

	go s.runCPUDriver(gameID)
}

func (s *Session) runCPUDriver(gameID string) {
	defer func() {
		s.mu.Lock()
		delete(s.drivers, gameID)
		s.mu.Unlock()
	}()

	idle := 0
	for idle < 20 { // ~3s outside PICKING/PLAYING before releasing the slot
		g, found := s.reg.Get(gameID)
		if !found {
			return
		}
		acted, err := s.driveOneCPUStep(g)
		if err != nil {
			log.Printf("[Session] cpu driver game %s: %v", gameID, err)
		}
		if acted {
			idle = 0
			s.broadcast(gameID)
			continue
		}
		if st := g.Status(); st == domino.StatusPicking || st == domino.StatusPlaying {
			idle = 0
		} else {
			idle++
		}
		time.Sleep(150 * time.Millisecond)
	}
}

// driveOneCPUStep advances exactly one CPU seat by one action, paced by
// the game's configured delay, if it is that seat's turn or picking turn.
func (s *Session) driveOneCPUStep(g *domino.Game) (bool, error) {
	switch g.Status() {
	case domino.StatusPicking:
		return s.driveCPUPick(g)
	case domino.StatusPlaying:
		return s.driveCPUTurn(g)
	default:
		return false, nil
	}
}

func (s *Session) driveCPUPick(g *domino.Game) (bool, error) {
	snap := g.Snapshot("")
	for _, p := range snap.Players {
		if !p.IsCPU || p.HandCount >= 6 {
			continue
		}
		time.Sleep(g.CPUPickDelay())
		positions, err := g.PickingPositions()
		if err != nil {
			return false, err
		}
		pos, ok := cpu.ChoosePosition(g.Rand(), positions)
		if !ok {
			return false, nil
		}
		if _, err := g.ClaimTile(p.ID, pos); err != nil {
			return false, err
		}
		s.broadcastEvent(g.ID, "tile_claimed", tileClaimedPayload{PlayerID: p.ID, TileIndex: pos})
		return true, nil
	}
	return false, nil
}

func (s *Session) driveCPUTurn(g *domino.Game) (bool, error) {
	snap := g.Snapshot("")
	if len(snap.Players) == 0 {
		return false, nil
	}
	cur := snap.Players[snap.CurrentTurn]
	if !cur.IsCPU {
		return false, nil
	}
	time.Sleep(g.CPUTurnDelay())
	moves, err := g.LegalMoves(cur.ID)
	if err != nil {
		return false, err
	}
	if len(moves) == 0 {
		result, err := g.PassTurn(cur.ID)
		if err != nil {
			return true, err
		}
		s.broadcastEvent(g.ID, "turn_passed", turnPassedPayload{PlayerID: cur.ID})
		if result != nil {
			s.announceRoundEnd(g.ID, g, result)
		}
		return true, nil
	}
	hand := handOfView(g.Snapshot(cur.ID), cur.ID)
	move, ok := cpu.ChooseMove(g.Rand(), hand, moves)
	if !ok {
		result, err := g.PassTurn(cur.ID)
		if err != nil {
			return true, err
		}
		s.broadcastEvent(g.ID, "turn_passed", turnPassedPayload{PlayerID: cur.ID})
		if result != nil {
			s.announceRoundEnd(g.ID, g, result)
		}
		return true, nil
	}
	result, err := g.PlayTile(cur.ID, move.Tile, move.Side)
	if err != nil {
		return true, err
	}
	s.broadcastEvent(g.ID, "tile_played", tilePlayedPayload{
		PlayerID: cur.ID,
		Domino:   dominoJSON{Left: move.Tile.A, Right: move.Tile.B},
		Side:     move.Side.String(),
	})
	if result != nil {
		s.announceRoundEnd(g.ID, g, result)
	}
	return true, nil
}

func handOfView(snap domino.Snapshot, playerID string) []tile.Tile {
	for _, p := range snap.Players {
		if p.ID == playerID {
			return p.Hand
		}
	}
	return nil
}

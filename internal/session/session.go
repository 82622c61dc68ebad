// Package session is the per-connection dispatch layer between the wire
// (internal/transport) and the game engine (domino, internal/registry):
// it decodes client intents, invokes the matching Game operation under
// that game's own lock, and fans the resulting snapshot back out to every
// connection watching that game. It also drives CPU seats, the way the
// teacher's npc package drives NPC actions from its own goroutine per
// table rather than inline with a human's request.
package session

import (
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"dominoes-server/cpu"
	"dominoes-server/domino"
	"dominoes-server/internal/registry"
	"dominoes-server/internal/transport"
	"dominoes-server/tile"
)

// Category classifies a failure for the client, per the error taxonomy a
// dominoes client needs to render differently (retry vs. re-auth vs. stop).
type Category string

const (
	CategoryValidation  Category = "validation"
	CategoryAuthz       Category = "authorization"
	CategoryState       Category = "state"
	CategoryTransient   Category = "transient"
	CategoryInternal    Category = "internal"
)

type link struct {
	conn     *transport.Connection
	gameID   string
	playerID string
}

// Session ties transport connections to game/player identity and drives
// every mutating operation. One Session instance serves the whole process.
type Session struct {
	reg        *registry.Registry
	defaultCfg domino.Config

	mu      sync.Mutex
	links   map[string]*link           // sessionKey -> identity
	members map[string]map[string]bool // gameID -> set of sessionKeys
	drivers map[string]bool            // gameID -> cpu driver goroutine running

	rng *rand.Rand
}

// New builds a Session. defaultCfg supplies the fallback MaxPlayers,
// timeouts, and target score a create_game payload may omit or override.
func New(reg *registry.Registry, defaultCfg ...domino.Config) *Session {
	cfg := domino.Config{MaxPlayers: 4}
	if len(defaultCfg) > 0 {
		cfg = defaultCfg[0]
	}
	return &Session{
		reg:        reg,
		defaultCfg: cfg,
		links:      make(map[string]*link),
		members:    make(map[string]map[string]bool),
		drivers:    make(map[string]bool),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Notify implements scheduler.Broadcaster: push a fresh snapshot to every
// session watching gameID after a scheduler sweep mutated it.
func (s *Session) Notify(gameID string) {
	s.broadcast(gameID)
}

// NotifyTilesAutoAssigned implements scheduler.Broadcaster: the picking
// sweep forced tiles onto one or more under-hand seats past
// picking_timeout. Only human seats get the event; CPUs are expected to
// have claimed on their own pace, so a CPU entry here (e.g. a bot that
// never got to act before timeout) is still filled but not announced as
// a forced action.
func (s *Session) NotifyTilesAutoAssigned(gameID string, assigned map[string][]int) {
	g, found := s.reg.Get(gameID)
	if !found {
		return
	}
	names := map[string]bool{}
	for _, p := range g.Snapshot("").Players {
		names[p.ID] = p.IsCPU
	}
	for playerID, positions := range assigned {
		if names[playerID] {
			continue
		}
		s.broadcastEvent(gameID, "tiles_auto_assigned", tilesAutoAssignedPayload{
			PlayerID:  playerID,
			Positions: positions,
			Reason:    "timeout",
		})
	}
}

// NotifyGameStarted implements scheduler.Broadcaster: the picking sweep's
// forced auto-assignment completed every hand and transitioned the game
// into PLAYING.
func (s *Session) NotifyGameStarted(gameID string) {
	s.broadcastEvent(gameID, "game_started", struct{}{})
	s.ensureCPUDriver(gameID)
}

// NotifyAutoPlay implements scheduler.Broadcaster: the turn sweep forced a
// uniformly random legal move for a player whose turn_timeout elapsed.
func (s *Session) NotifyAutoPlay(gameID, playerID string, move domino.Move, result *domino.RoundResult) {
	s.broadcastEvent(gameID, "tile_played", tilePlayedPayload{
		PlayerID:   playerID,
		Domino:     dominoJSON{Left: move.Tile.A, Right: move.Tile.B},
		Side:       move.Side.String(),
		AutoPlayed: true,
	})
	if result != nil {
		g, found := s.reg.Get(gameID)
		if found {
			s.announceRoundEnd(gameID, g, result)
		}
	}
}

// NotifyAutoPass implements scheduler.Broadcaster: the turn sweep forced a
// pass for a player whose turn_timeout elapsed with no legal move.
func (s *Session) NotifyAutoPass(gameID, playerID string, result *domino.RoundResult) {
	s.broadcastEvent(gameID, "turn_passed", turnPassedPayload{PlayerID: playerID, AutoPassed: true})
	if result != nil {
		g, found := s.reg.Get(gameID)
		if found {
			s.announceRoundEnd(gameID, g, result)
		}
	}
}

func (s *Session) OnConnect(conn *transport.Connection) string {
	key := conn.ID()
	s.registerConn(key, conn)
	return key
}

func (s *Session) OnDisconnect(sessionKey string) {
	s.mu.Lock()
	l, ok := s.links[sessionKey]
	delete(s.links, sessionKey)
	if ok && l.gameID != "" {
		if set := s.members[l.gameID]; set != nil {
			delete(set, sessionKey)
		}
	}
	s.mu.Unlock()

	if ok && l.gameID != "" && l.playerID != "" {
		if err := s.reg.RemovePlayer(l.gameID, l.playerID); err != nil {
			log.Printf("[Session] disconnect cleanup for %s: %v", sessionKey, err)
			return
		}
		s.broadcastEvent(l.gameID, "player_disconnected", playerIDPayload{PlayerID: l.playerID})
		s.broadcast(l.gameID)
	}
}

func (s *Session) OnMessage(sessionKey string, f transport.Frame) {
	switch f.Type {
	case "create_game":
		s.handleCreateGame(sessionKey, f)
	case "join_game":
		s.handleJoinGame(sessionKey, f)
	case "add_cpu":
		s.handleAddCPU(sessionKey, f)
	case "start_game":
		s.handleStartGame(sessionKey)
	case "claim_tile":
		s.handleClaimTile(sessionKey, f)
	case "play_tile":
		s.handlePlayTile(sessionKey, f)
	case "pass_turn":
		s.handlePassTurn(sessionKey)
	case "get_valid_moves":
		s.handleGetValidMoves(sessionKey)
	case "next_round":
		s.handleNextRound(sessionKey)
	case "reaction":
		s.handleReaction(sessionKey, f)
	default:
		s.sendError(sessionKey, CategoryValidation, "unknown frame type: "+f.Type)
	}
}

func (s *Session) conn(sessionKey string) *transport.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.links[sessionKey]; ok {
		return l.conn
	}
	return nil
}

func (s *Session) identity(sessionKey string) (gameID, playerID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, found := s.links[sessionKey]
	if !found || l.gameID == "" {
		return "", "", false
	}
	return l.gameID, l.playerID, true
}

func (s *Session) attach(sessionKey, gameID, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.links[sessionKey]
	l.gameID = gameID
	l.playerID = playerID
	if s.members[gameID] == nil {
		s.members[gameID] = make(map[string]bool)
	}
	s.members[gameID][sessionKey] = true
}

func (s *Session) registerConn(sessionKey string, conn *transport.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[sessionKey] = &link{conn: conn}
}

type createGamePayload struct {
	PlayerName       string `json:"player_name"`
	MaxPlayers       int    `json:"max_players"`
	Variant          string `json:"variant"`
	PickingTimeoutMS int64  `json:"picking_timeout_ms"`
	TurnTimeoutMS    int64  `json:"turn_timeout_ms"`
	TargetScore      int    `json:"target_score"`
}

func (s *Session) handleCreateGame(sessionKey string, f transport.Frame) {
	var p createGamePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		s.sendError(sessionKey, CategoryValidation, "bad create_game payload")
		return
	}
	if p.MaxPlayers < 2 || p.MaxPlayers > 4 {
		p.MaxPlayers = s.defaultCfg.MaxPlayers
	}
	pickingTimeout := s.defaultCfg.PickingTimeout
	if p.PickingTimeoutMS > 0 {
		pickingTimeout = time.Duration(p.PickingTimeoutMS) * time.Millisecond
	}
	turnTimeout := s.defaultCfg.TurnTimeout
	if p.TurnTimeoutMS > 0 {
		turnTimeout = time.Duration(p.TurnTimeoutMS) * time.Millisecond
	}
	targetScore := s.defaultCfg.TargetScore
	if p.TargetScore > 0 {
		targetScore = p.TargetScore
	}
	if targetScore < 50 || targetScore > 500 {
		targetScore = s.defaultCfg.TargetScore
	}
	cfg := domino.Config{
		MaxPlayers:     p.MaxPlayers,
		Variant:        domino.ParseVariant(p.Variant),
		PickingTimeout: pickingTimeout,
		TurnTimeout:    turnTimeout,
		TargetScore:    targetScore,
	}
	playerID := uuid.NewString()

	g, err := s.reg.CreateGame(playerID, p.PlayerName, cfg)
	if err != nil {
		s.sendError(sessionKey, CategoryValidation, err.Error())
		return
	}
	s.attach(sessionKey, g.ID, playerID)
	s.sendIdentity(sessionKey, g.ID, playerID)
	s.broadcast(g.ID)
}

type joinGamePayload struct {
	GameID     string `json:"game_id"`
	PlayerName string `json:"player_name"`
}

func (s *Session) handleJoinGame(sessionKey string, f transport.Frame) {
	var p joinGamePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		s.sendError(sessionKey, CategoryValidation, "bad join_game payload")
		return
	}
	playerID := uuid.NewString()
	g, err := s.reg.JoinGame(p.GameID, playerID, p.PlayerName)
	if err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.attach(sessionKey, g.ID, playerID)
	s.sendIdentity(sessionKey, g.ID, playerID)
	ref := playerRefPayload{PlayerID: playerID, PlayerName: p.PlayerName}
	s.broadcastEventExcept(g.ID, sessionKey, "player_joined", ref)
	s.broadcastEventExcept(g.ID, sessionKey, "player_connected", ref)
	s.broadcast(g.ID)
}

func (s *Session) handleAddCPU(sessionKey string, f transport.Frame) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	g, found := s.reg.Get(gameID)
	if !found {
		s.closeUnknown(sessionKey)
		return
	}
	existing := make([]string, 0)
	for _, pv := range g.Snapshot("").Players {
		existing = append(existing, pv.Name)
	}
	name := cpu.PickName(s.rng, existing)
	cpuID := uuid.NewString()
	if _, err := s.reg.AddCPU(gameID, playerID, cpuID, name); err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.broadcastEvent(gameID, "cpu_added", cpuAddedPayload{
		PlayerID:    cpuID,
		PlayerName:  name,
		PlayerCount: len(g.Snapshot("").Players),
	})
	s.broadcast(gameID)
}

func (s *Session) handleStartGame(sessionKey string) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	if err := s.reg.StartGame(gameID, playerID); err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.broadcastEvent(gameID, "game_started", struct{}{})
	s.broadcast(gameID)
	s.ensureCPUDriver(gameID)
}

type claimTilePayload struct {
	Position int `json:"position"`
}

func (s *Session) handleClaimTile(sessionKey string, f transport.Frame) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	var p claimTilePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		s.sendError(sessionKey, CategoryValidation, "bad claim_tile payload")
		return
	}
	g, found := s.reg.Get(gameID)
	if !found {
		s.closeUnknown(sessionKey)
		return
	}
	if _, err := g.ClaimTile(playerID, p.Position); err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.broadcastEvent(gameID, "tile_claimed", tileClaimedPayload{PlayerID: playerID, TileIndex: p.Position})
	s.broadcast(gameID)
}

type playTilePayload struct {
	A    byte   `json:"a"`
	B    byte   `json:"b"`
	Side string `json:"side"`
}

func (s *Session) handlePlayTile(sessionKey string, f transport.Frame) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	var p playTilePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		s.sendError(sessionKey, CategoryValidation, "bad play_tile payload")
		return
	}
	side, ok := domino.ParseSide(p.Side)
	if !ok {
		s.sendError(sessionKey, CategoryValidation, "side must be left or right")
		return
	}
	g, found := s.reg.Get(gameID)
	if !found {
		s.closeUnknown(sessionKey)
		return
	}
	result, err := g.PlayTile(playerID, tile.New(p.A, p.B), side)
	if err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.broadcastEvent(gameID, "tile_played", tilePlayedPayload{
		PlayerID: playerID,
		Domino:   dominoJSON{Left: p.A, Right: p.B},
		Side:     side.String(),
	})
	s.broadcast(gameID)
	if result != nil {
		s.announceRoundEnd(gameID, g, result)
	}
}

func (s *Session) handlePassTurn(sessionKey string) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	g, found := s.reg.Get(gameID)
	if !found {
		s.closeUnknown(sessionKey)
		return
	}
	result, err := g.PassTurn(playerID)
	if err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.broadcastEvent(gameID, "turn_passed", turnPassedPayload{PlayerID: playerID})
	s.broadcast(gameID)
	if result != nil {
		s.announceRoundEnd(gameID, g, result)
	}
}

func (s *Session) handleGetValidMoves(sessionKey string) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	g, found := s.reg.Get(gameID)
	if !found {
		s.closeUnknown(sessionKey)
		return
	}
	moves, err := g.LegalMoves(playerID)
	if err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	c := s.conn(sessionKey)
	if c == nil {
		return
	}
	payload, _ := json.Marshal(moves)
	c.Send(transport.Frame{Type: "valid_moves", GameID: gameID, Payload: payload})
}

func (s *Session) handleNextRound(sessionKey string) {
	gameID, _, ok := s.identity(sessionKey)
	if !ok {
		s.sendError(sessionKey, CategoryState, "not in a game")
		return
	}
	g, found := s.reg.Get(gameID)
	if !found {
		s.closeUnknown(sessionKey)
		return
	}
	if _, err := g.StartNextRound(); err != nil {
		s.sendGameError(sessionKey, err)
		return
	}
	s.broadcastEvent(gameID, "round_started", roundStartedPayload{RoundNumber: g.Snapshot("").RoundNumber})
	s.broadcast(gameID)
	s.ensureCPUDriver(gameID)
}

func (s *Session) handleReaction(sessionKey string, f transport.Frame) {
	gameID, playerID, ok := s.identity(sessionKey)
	if !ok {
		return
	}
	out := transport.Frame{Type: "reaction", GameID: gameID, Payload: f.Payload}
	s.mu.Lock()
	members := s.members[gameID]
	var conns []*transport.Connection
	for key := range members {
		if key == sessionKey {
			continue
		}
		if l := s.links[key]; l != nil {
			conns = append(conns, l.conn)
		}
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Send(out)
	}
	_ = playerID
}

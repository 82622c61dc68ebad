// Package httpapi is the thin REST surface alongside the WebSocket
// gateway: list/inspect games, registry stats, and a Prometheus
// /metrics exposition mirroring get_stats — grounded on the teacher's
// apps/server/internal/ledger and auth HTTP handlers (RegisterRoutes on a
// *http.ServeMux, one handler func per route).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dominoes-server/domino"
	"dominoes-server/internal/registry"
)

// API exposes the registry over HTTP for dashboards and health checks.
// Game creation/joining/play all happen over the WebSocket gateway; this
// surface's routes only read state; none of them creates or joins a game.
type API struct {
	reg *registry.Registry

	gamesTotal   *prometheus.GaugeVec
	playersTotal prometheus.Gauge
}

func New(reg *registry.Registry) *API {
	a := &API{
		reg: reg,
		gamesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dominoes",
			Name:      "games_total",
			Help:      "Number of registered games by status.",
		}, []string{"status"}),
		playersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dominoes",
			Name:      "players_total",
			Help:      "Number of seated players across all registered games.",
		}),
	}
	prometheus.MustRegister(a.gamesTotal, a.playersTotal)
	return a
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", a.handleGames)
	mux.HandleFunc("/api/games/", a.handleGameByID)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.Handle("/metrics", promhttp.Handler())
}

func (a *API) handleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	open := a.reg.ListOpen()
	out := make([]gameSummary, 0, len(open))
	for _, g := range open {
		out = append(out, summarize(g))
	}
	writeJSON(w, out)
}

func (a *API) handleGameByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/api/games/"):]
	g, ok := a.reg.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, g.Snapshot(""))
}

type statsResponse struct {
	TotalGames    int `json:"total_games"`
	WaitingGames  int `json:"waiting_games"`
	PickingGames  int `json:"picking_games"`
	PlayingGames  int `json:"playing_games"`
	FinishedGames int `json:"finished_games"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	s := a.reg.Stats()
	a.refreshGauges(s)
	writeJSON(w, statsResponse{
		TotalGames:    s.TotalGames,
		WaitingGames:  s.WaitingGames,
		PickingGames:  s.PickingGames,
		PlayingGames:  s.PlayingGames,
		FinishedGames: s.FinishedGames,
	})
}

func (a *API) refreshGauges(s registry.Stats) {
	a.gamesTotal.WithLabelValues("waiting").Set(float64(s.WaitingGames))
	a.gamesTotal.WithLabelValues("picking").Set(float64(s.PickingGames))
	a.gamesTotal.WithLabelValues("playing").Set(float64(s.PlayingGames))
	a.gamesTotal.WithLabelValues("finished").Set(float64(s.FinishedGames))

	players := 0
	for _, g := range a.reg.All() {
		players += len(g.Snapshot("").Players)
	}
	a.playersTotal.Set(float64(players))
}

type gameSummary struct {
	GameID      string `json:"game_id"`
	Status      string `json:"status"`
	PlayerCount int    `json:"player_count"`
}

func summarize(g *domino.Game) gameSummary {
	snap := g.Snapshot("")
	return gameSummary{
		GameID:      snap.GameID,
		Status:      snap.Status.String(),
		PlayerCount: len(snap.Players),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dominoes-server/domino"
	"dominoes-server/internal/config"
	"dominoes-server/internal/httpapi"
	"dominoes-server/internal/registry"
	"dominoes-server/internal/scheduler"
	"dominoes-server/internal/session"
	"dominoes-server/internal/transport"
)

func main() {
	confPath := flag.String("conf", "config.toml", "path to a TOML config file (optional)")
	flag.Parse()

	conf, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("[Server] failed to load config %s: %v", *confPath, err)
	}

	defaultCfg := domino.Config{
		MaxPlayers:     int(conf.Game.MaxPlayers),
		Variant:        domino.VariantBlock,
		PickingTimeout: conf.Game.PickingTimeout(),
		TurnTimeout:    conf.Game.TurnTimeout(),
		TargetScore:    int(conf.Game.TargetScore),
	}

	reg := registry.New()
	sess := session.New(reg, defaultCfg)
	gw := transport.New(sess)
	api := httpapi.New(reg)

	sched := scheduler.New(reg, sess, conf.Game.PickingTimeout(), conf.Game.TurnTimeout())
	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	api.RegisterRoutes(mux)

	addr := strings.TrimSpace(os.Getenv("SERVER_ADDR"))
	if addr == "" {
		addr = conf.Web.Addr
	}

	srv := &http.Server{Addr: addr, Handler: withCORS(mux)}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Printf("[Server] shutting down")
		cancel()
		os.Exit(0)
	}()

	log.Printf("[Server] debug=%v max_players=%d target_score=%d", conf.Debug, conf.Game.MaxPlayers, conf.Game.TargetScore)
	log.Printf("[Server] starting WebSocket + HTTP server on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("[Server] failed to start: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcblakeb/retro-relay/api"
	"github.com/mcblakeb/retro-relay/bus"
	"github.com/mcblakeb/retro-relay/config"
	"github.com/mcblakeb/retro-relay/domain"
	"github.com/mcblakeb/retro-relay/hub"
	"github.com/mcblakeb/retro-relay/metrics"
	"github.com/mcblakeb/retro-relay/protocol"
	"github.com/mcblakeb/retro-relay/store"
	ws "github.com/mcblakeb/retro-relay/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	broadcaster := hub.New(m)

	var publisher protocol.Publisher
	if cfg.RedisAddr != "" {
		rb, err := bus.New(ctx, cfg.RedisAddr, cfg.RedisDB, slog.Default())
		if err != nil {
			slog.Error("redis connect error", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rb.Close()
		go rb.Subscribe(ctx, broadcaster.Forward)
		publisher = rb
		slog.Info("cross-instance fan-out enabled", "addr", cfg.RedisAddr)
	}

	handler := protocol.NewHandler(broadcaster, publisher, m)
	mux := newMux(broadcaster, handler, m, reg)

	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, slog.Default())
		if err != nil {
			slog.Error("postgres connect error", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := store.RunMigrations(ctx, pg, slog.Default()); err != nil {
			slog.Error("migration error", "error", err)
			os.Exit(1)
		}

		mw := api.NewMiddleware(cfg.AllowedOrigins(), cfg.RateLimit, cfg.RateLimitWindow)
		retroAPI := &api.RetroAPI{DB: pg}
		mux.Handle("/api/", mw.Wrap(retroAPI.Routes()))
		slog.Info("retro API enabled")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	slog.Info("server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(lvl string) {
	level := slog.LevelInfo
	switch lvl {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func newMux(broadcaster *hub.Hub, handler domain.MessageHandler, m domain.Metrics, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler(broadcaster, handler, m))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(broadcaster))
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

// wsHandler is the handshake gate: a request without a session identifier
// is torn down at the transport level, before any upgrade. Tagging the
// session on the connection happens before it becomes visible to the hub.
func wsHandler(broadcaster domain.Broadcaster, handler domain.MessageHandler, m domain.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := r.URL.Query().Get("session")
		if session == "" {
			m.HandshakeRejected()
			slog.Warn("handshake rejected, missing session", "remote", r.RemoteAddr)
			teardown(w)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		wsConn := ws.NewConn(uuid.New().String(), session, conn, broadcaster, handler)
		wsConn.Start()
	}
}

// teardown closes the raw connection without completing the handshake or
// writing any response framing. The protocol has no pre-upgrade channel
// to report errors on.
func teardown(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(broadcaster domain.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := broadcaster.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "clients": clients})
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/duskvale/server/engine"
	"github.com/duskvale/server/internal/cache"
	"github.com/duskvale/server/internal/config"
	"github.com/duskvale/server/internal/database"
	"github.com/duskvale/server/internal/game"
	"github.com/duskvale/server/internal/registry"
	"github.com/duskvale/server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration failed")
	}
	logrus.SetLevel(cfg.ParseLevel())
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr != "" {
		if err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
			logrus.WithError(err).Warn("redis unavailable, action journal disabled")
		}
		defer cache.Close()
	}
	if cfg.DatabaseURL != "" {
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Warn("database unavailable, summaries will not persist")
		}
		defer database.Close()
	}

	var (
		reg *registry.Registry
		hub *ws.Hub
	)
	reg = registry.New(registry.Options{
		MaxSessions: cfg.MaxSessions,
		FinishedTTL: cfg.FinishedTTL,
		IdleTTL:     cfg.IdleTTL,
	}, registry.Hooks{
		OnCreated: func(s *game.Session) {
			journalLifecycle(s.Code, "session_created")
		},
		OnStarted: func(s *game.Session) {
			journalLifecycle(s.Code, "session_started")
		},
		OnEnded: func(code string, winner engine.Winner, roster *engine.Roster) {
			journalLifecycle(code, "session_ended")
			persistSummary(code, winner, roster, reg)
		},
		OnEvicted: func(code string) {
			journalLifecycle(code, "session_evicted")
			hub.DropRoom(code)
		},
	})
	hub = ws.NewHub(reg)
	go reg.Run(ctx, cfg.SweepInterval)

	mux := http.NewServeMux()
	srv := ws.NewServer(hub, reg)
	srv.Routes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("shutdown incomplete")
	}
}

// journalLifecycle records a registry lifecycle transition in the
// historian journal. Best-effort; a missing Redis client is a no-op.
func journalLifecycle(code, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec := cache.SessionActionRecord{
		SessionCode: code,
		ActionType:  event,
		Timestamp:   time.Now().UnixMilli(),
	}
	if err := cache.PublishSessionAction(ctx, rec); err != nil {
		logrus.WithField("session", code).WithError(err).Warn("lifecycle journal failed")
	}
}

// persistSummary stores the final standing of a finished session.
func persistSummary(code string, winner engine.Winner, roster *engine.Roster, reg *registry.Registry) {
	summary := database.SessionSummary{
		Code:    code,
		Winner:  winner.String(),
		EndedAt: time.Now(),
	}
	if s, err := reg.Get(code); err == nil {
		summary.Rounds = s.Round()
		summary.StartedAt = s.StartedAt()
		summary.EndedAt = s.EndedAt()
	}
	for _, p := range roster.All() {
		summary.Participants = append(summary.Participants, database.ParticipantResult{
			ID:    p.ID.String(),
			Name:  p.Name,
			Role:  p.Role.String(),
			Alive: p.Alive,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.StoreSessionSummary(ctx, summary); err != nil {
		logrus.WithField("session", code).WithError(err).Error("summary persist failed")
	}
}

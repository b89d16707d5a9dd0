package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solgate/solgate"
	"github.com/solgate/solgate/chat"
	"github.com/solgate/solgate/config"
	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/metrics"
	"github.com/solgate/solgate/redemption"
	"github.com/solgate/solgate/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("bootstrap config: %v", err)
	}

	zlog := logger.NewZapLogger(cfg.LogLevel)
	rec := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)

	policy, err := cfg.Policy()
	if err != nil {
		log.Fatalf("bootstrap policy: %v", err)
	}

	opts := []solgate.Option{
		solgate.WithLogger(zlog),
		solgate.WithMetrics(rec),
		solgate.WithSolanaRPC(cfg.SolanaRPCURL),
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("bootstrap database pool: %v", err)
		}
		defer pool.Close()

		store := redemption.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("bootstrap redemption schema: %v", err)
		}
		opts = append(opts, solgate.WithStore(store))
	} else {
		zlog.Warn("DATABASE_URL not set, redemptions will not survive restart", nil)
	}

	gate, err := solgate.New(policy, opts...)
	if err != nil {
		log.Fatalf("bootstrap gate: %v", err)
	}
	defer gate.Close()

	chatClient := chat.NewClient(cfg.UpstreamURL, cfg.UpstreamAPIKey, cfg.Model, zlog)
	srv := server.New(gate.Verifier(), chatClient, chat.NoopModerator{}, zlog)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("solgate listening", map[string]any{"addr": cfg.ListenAddr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("http server failed", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

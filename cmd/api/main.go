package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"hailway.org/internal/auth"
	"hailway.org/internal/config"
	"hailway.org/internal/httpapi"
	"hailway.org/internal/obs"
	"hailway.org/internal/principal"
	"hailway.org/internal/revoke"
	"hailway.org/internal/stream"
)

var version = "0.3.1"

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("HAILWAY_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		// Without a signing secret the process must not come up.
		log.Fatalf("config: %v", err)
	}

	issuer, err := auth.NewIssuer(cfg.AuthSecret, cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}

	// Principal store: Postgres when a DSN is set, in-memory otherwise.
	var (
		principals principal.Store
		pg         *principal.PG
	)
	if cfg.DatabaseDSN != "" {
		pg, err = principal.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		principals = pg
	} else {
		principals = principal.NewMemory()
	}

	// Revocation ledger: Redis when configured (native TTL eviction), the
	// database when available, in-memory with a sweeper as last resort.
	var (
		ledger      revoke.Ledger
		stopSweeper func()
		redisClient *redis.Client
	)
	switch {
	case cfg.RedisAddr != "":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		ledger = revoke.NewRedis(redisClient)
	case pg != nil:
		pgLedger := revoke.NewPG(pg.DB())
		stopSweeper = pgLedger.StartSweeper(time.Hour)
		ledger = pgLedger
	default:
		memLedger := revoke.NewMemory()
		stopSweeper = memLedger.StartSweeper(10 * time.Minute)
		ledger = memLedger
	}

	var probe httpapi.ReadyProbe
	if pg != nil {
		probe.DB = pg.DB()
	}

	api := httpapi.New(probe, version, issuer, principals, ledger, stream.New())
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)
	api.SetMaxBodyBytes(cfg.MaxBodyBytes)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // SSE feed holds the response open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting hailway-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if stopSweeper != nil {
		stopSweeper()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if pg != nil {
		_ = pg.Close()
	}
	log.Println("Stopped")
}

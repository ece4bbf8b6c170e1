package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetline/shiptrack/config"
	"github.com/fleetline/shiptrack/internal/api/shipmentsapi"
	"github.com/fleetline/shiptrack/internal/broker/kafka"
	"github.com/fleetline/shiptrack/internal/cache/rediscache"
	"github.com/fleetline/shiptrack/internal/services/shipments"
	"github.com/fleetline/shiptrack/internal/storage/pgstore"
)

type apiApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    apiOpts
	api     *shipmentsapi.API
	closeDB func()
}

func mustBootstrapAPI() *apiApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	httpAddr := cfg.ShipTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "shipment.status.changed"
	}
	cacheTTL := time.Duration(cfg.ShipTrack.ShipmentCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	svc := shipments.New(st, rc, cacheTTL)
	if cfg.Kafka.Host != "" {
		brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
		svc.WithProducer(kafka.NewProducer(brokers), topic)
	}

	api := shipmentsapi.New(svc)
	if cfg.ShipTrack.RateLimitPerMinute > 0 {
		api.WithRateLimiter(rediscache.NewRateLimiter(redisAddr), int64(cfg.ShipTrack.RateLimitPerMinute))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &apiApp{
		ctx:    ctx,
		cancel: cancel,
		opts: apiOpts{
			httpAddr:    httpAddr,
			swaggerPath: os.Getenv("swaggerPath"),
		},
		api:     api,
		closeDB: st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgstore.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgstore.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *apiApp) Run() error {
	return runAPI(a.ctx, a.opts, a.api)
}

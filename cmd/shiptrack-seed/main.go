package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetline/shiptrack/config"
	"github.com/fleetline/shiptrack/internal/services/shipments"
	"github.com/fleetline/shiptrack/internal/storage/pgstore"
)

func main() {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	st, err := pgstore.New(cfg.Database.ConnString())
	if err != nil {
		panic(err)
	}
	defer st.Close()

	svc := shipments.New(st, nil, 0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	if err := seedDemoData(ctx, svc, r, cfg.ShipTrack.SeedShipmentCount); err != nil {
		panic(err)
	}
	slog.Info("demo data created")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/okellohq/sociapay/internal/api"
	"github.com/okellohq/sociapay/internal/config"
	"github.com/okellohq/sociapay/internal/confirm"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/engine"
	"github.com/okellohq/sociapay/internal/ledger"
	"github.com/okellohq/sociapay/internal/platform"
	"github.com/okellohq/sociapay/internal/policy"
	"github.com/okellohq/sociapay/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Wire the engine
	tracker := platform.NewActivityTracker(cfg.ActivityWindow)
	registry := platform.NewRegistry()
	coordinator := confirm.NewCoordinator(store.NewConfirmationStore(db), cfg.ConfirmationTTL)
	walletLedger := ledger.NewPostgresLedger(db.Pool())

	core := engine.New(
		registry,
		tracker,
		coordinator,
		walletLedger,
		db,
		policy.DefaultLimits(),
		policy.DefaultFeeTable(),
	)

	go coordinator.RunSweeper(ctx, cfg.SweepInterval)

	// Discord gateway (optional)
	if cfg.DiscordToken != "" {
		discord, err := platform.NewDiscordGateway(cfg.DiscordToken, core, tracker)
		if err != nil {
			log.Fatalf("Failed to create discord gateway: %v", err)
		}
		if err := discord.Start(); err != nil {
			log.Fatalf("Failed to start discord gateway: %v", err)
		}
		defer discord.Stop()
		registry.Register(discord)
	}

	// Callback gateways for externally-adapted platforms
	for name, endpoint := range cfg.PlatformCallbacks {
		p := domain.Platform(name)
		if !domain.IsKnownPlatform(p) {
			log.Fatalf("Unknown platform %q in PLATFORM_CALLBACKS", name)
		}
		registry.Register(platform.NewCallbackGateway(p, endpoint, tracker))
	}

	// Start API server
	apiServer := api.New(cfg, core, db, registry)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}

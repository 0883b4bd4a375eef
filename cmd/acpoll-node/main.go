package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vocdoni/acpoll/api"
	"github.com/vocdoni/acpoll/chain"
	"github.com/vocdoni/acpoll/db/metadb"
	"github.com/vocdoni/acpoll/finalizer"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/service"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
	"golang.org/x/sync/errgroup"
)

const (
	eventBufferSize    = 1024
	verifyKeyCacheSize = 64
)

// Services holds all the running services
type Services struct {
	Storage   *storage.Storage
	Chain     *chain.Local
	Events    *service.ChanSink
	Poll      *service.Service
	Finalizer *finalizer.Finalizer
	API       *api.API
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting acpoll-node", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	if err := run(ctx, cfg, services); err != nil {
		log.Errorw(err, "node stopped with error")
		return
	}
	log.Infow("received signal, shutting down")
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	dbDir := filepath.Join(cfg.Datadir, "db")
	log.Infow("initializing storage", "datadir", dbDir, "type", cfg.DB.Type)
	database, err := metadb.New(cfg.DB.Type, dbDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(database)

	height, err := services.Storage.Height()
	if err != nil {
		return nil, fmt.Errorf("failed to read last height: %w", err)
	}
	services.Chain = chain.NewLocal(cfg.Chain.BlockTime, height)

	var verifier service.ProofVerifier
	switch cfg.Service.Verifier {
	case verifierShape:
		log.Warnw("batch proofs are not verified, any well formed proof is accepted",
			"verifier", cfg.Service.Verifier)
		verifier = service.ShapeVerifier{}
	default:
		if verifier, err = service.NewCircomVerifier(verifyKeyCacheSize); err != nil {
			return nil, err
		}
		log.Infow("proof verifier selected", "verifier", cfg.Service.Verifier)
	}

	services.Events = service.NewChanSink(eventBufferSize)
	services.Poll = service.New(service.Config{
		MaxCoordinatorPolls: cfg.Service.MaxPolls,
		MaxPublicKeyLength:  cfg.Service.MaxPublicKeyLength,
		MaxVerifyKeyLength:  cfg.Service.MaxVerifyKeyLength,
	}, services.Storage, services.Chain, verifier, services.Events)

	log.Infow("starting finalizer", "monitorInterval", cfg.Finalizer.Interval.String())
	services.Finalizer = finalizer.New(services.Poll)
	services.Finalizer.Start(ctx, cfg.Finalizer.Interval, services.Chain.Subscribe())

	if cfg.API.Enabled {
		api.DisabledLogging = cfg.API.NoLog
		services.API, err = api.New(&api.APIConfig{
			Host:              cfg.API.Host,
			Port:              cfg.API.Port,
			Service:           services.Poll,
			RequireSignatures: cfg.API.Signatures,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create API: %w", err)
		}
	}
	return services, nil
}

// run starts block production and serves until ctx is done or a service
// fails.
func run(ctx context.Context, cfg *Config, services *Services) error {
	g, ctx := errgroup.WithContext(ctx)

	blocks := services.Chain.Subscribe()
	g.Go(func() error {
		return persistHeights(ctx, services.Storage, blocks)
	})
	g.Go(func() error {
		logEvents(ctx, services.Events.Events())
		return nil
	})
	if services.API != nil {
		log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
		g.Go(func() error {
			return services.API.ListenAndServe(ctx)
		})
	}
	services.Chain.Start(ctx)

	log.Infow("acpoll-node is running", "height", services.Chain.Height())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// persistHeights records every produced height so a restarted node resumes
// block production where it stopped.
func persistHeights(ctx context.Context, stg *storage.Storage, blocks <-chan types.BlockNumber) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case height := <-blocks:
			if err := stg.SetHeight(height); err != nil {
				return fmt.Errorf("failed to store height %d: %w", height, err)
			}
		}
	}
}

func logEvents(ctx context.Context, events <-chan service.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			log.Infow("poll event",
				"id", ev.ID.String(),
				"kind", string(ev.Kind),
				"height", ev.Height,
				"poll", ev.Poll,
				"who", ev.Who.Hex())
		}
	}
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}
	// Stop services in reverse order of startup
	if services.Chain != nil {
		services.Chain.Stop()
		if err := services.Storage.SetHeight(services.Chain.Height()); err != nil {
			log.Warnw("failed to store last height", "error", err.Error())
		}
	}
	if services.Finalizer != nil {
		services.Finalizer.Close()
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
}

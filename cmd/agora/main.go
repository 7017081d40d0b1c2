// Package main is the agora service entry point: RSS ingest, topic
// clustering, room reconciliation, and the HTTP/SSE surface in one process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/agora-live/agora/internal/auth"
	"github.com/agora-live/agora/internal/cluster"
	"github.com/agora-live/agora/internal/config"
	"github.com/agora-live/agora/internal/db/gorm"
	"github.com/agora-live/agora/internal/embed"
	"github.com/agora-live/agora/internal/hub"
	"github.com/agora-live/agora/internal/ingest"
	"github.com/agora-live/agora/internal/keywords"
	"github.com/agora-live/agora/internal/reconcile"
	"github.com/agora-live/agora/internal/scheduler"
	"github.com/agora-live/agora/internal/server"
	"github.com/agora-live/agora/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "agora.yaml", "Path to the YAML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load configuration")
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = os.Getenv("AGORA_AUTH_SECRET")
	}
	if cfg.Auth.Secret == "" {
		log.Fatal().Msg("auth secret not configured (set auth.secret or AGORA_AUTH_SECRET)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	store, err := gorm.NewStore(gorm.Config{
		Path:       cfg.DB.Path,
		MaxConns:   cfg.DB.MaxConns,
		VectorDims: cfg.Embedding.Dimensions,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()

	articleStore := gorm.NewArticleStore(store)
	roomStore := gorm.NewRoomStore(store)
	messageStore := gorm.NewMessageStore(store)
	userStore := gorm.NewUserStore(store)
	vectorStore := gorm.NewVectorStore(store, cfg.Embedding.Dimensions)

	embedder := embed.NewCachedEmbedder(
		embed.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions),
		vectorStore,
	)
	engine := cluster.NewEngine(embedder, keywords.New(), cluster.Config{
		MaxClusters:   cfg.Cluster.MaxClusters,
		MinPopularity: cfg.Cluster.MinPopularity,
		MinCoherence:  cfg.Cluster.MinCoherence,
	})

	registry := hub.NewRegistry()
	chatHub := hub.New(registry, messageStore, roomStore)
	reconciler := reconcile.New(roomStore, chatHub)

	sched := scheduler.New()
	ingester := ingest.New(articleStore, cfg.Feeds)
	if len(cfg.Feeds) > 0 {
		if err := sched.AddJob("ingest", cfg.Schedule.IngestCron, cfg.Schedule.CycleTimeout, ingester); err != nil {
			log.Fatal().Err(err).Msg("failed to schedule ingest job")
		}
	} else {
		log.Warn().Msg("no feeds configured, ingest disabled")
	}

	pipeline := scheduler.NewPipeline(articleStore, engine, reconciler, cfg.Cluster.Window)
	if err := sched.AddJob("pipeline", cfg.Schedule.PipelineCron, cfg.Schedule.CycleTimeout, pipeline); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule pipeline job")
	}

	sched.Start()
	defer sched.Stop()

	authSvc := auth.NewService(userStore, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	svc := server.New(Version, cfg, articleStore, roomStore, messageStore, chatHub, authSvc, sched)

	startConfigWatcher(*configPath)

	log.Info().Str("version", Version).Str("addr", cfg.Server.Addr).Msg("agora starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.ListenAndServe(gctx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("service error")
	}
	log.Info().Msg("agora stopped")
}

// startConfigWatcher exits the process when the config file changes; the
// supervisor restarts it with fresh settings.
func startConfigWatcher(configPath string) {
	w, err := watcher.New(configPath, func() {
		log.Warn().Str("path", configPath).Msg("configuration changed, exiting for restart")
		time.Sleep(100 * time.Millisecond)
		os.Exit(0)
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to create config watcher")
		return
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start config watcher")
		return
	}
	log.Info().Str("path", configPath).Msg("config file watcher started")
}

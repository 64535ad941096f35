package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/civitas-labs/agora/internal/api"
	"github.com/civitas-labs/agora/internal/config"
	"github.com/civitas-labs/agora/internal/gateway"
	"github.com/civitas-labs/agora/internal/knowledge"
	"github.com/civitas-labs/agora/internal/ledger"
	"github.com/civitas-labs/agora/internal/provider"
	"github.com/civitas-labs/agora/internal/search"
	"github.com/civitas-labs/agora/internal/store"
	"github.com/civitas-labs/agora/internal/system"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Agora...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/agora.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	credential := ""
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Models: pc.Models, Extra: pc.Extra,
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
			continue
		}
		if credential == "" {
			credential = pc.APIKey
		}
	}

	// Optional PostgreSQL artifact archive
	var pgStore *store.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := store.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without archive", zap.Error(pgErr))
		} else {
			migrationsDir := cfg.Generation.MigrationsDir
			if migrationsDir == "" {
				migrationsDir = "migrations"
			}
			if mErr := ps.Migrate(context.Background(), migrationsDir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
		}
	}

	// Optional Neo4j knowledge graph
	var graph *knowledge.Graph
	if cfg.Database.Neo4j.URI != "" {
		kg, kgErr := knowledge.New(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if kgErr != nil {
			logger.Warn("Neo4j unavailable, running without knowledge graph", zap.Error(kgErr))
		} else {
			graph = kg
		}
	}

	// Optional Qdrant semantic index
	var index *search.Index
	if cfg.Database.Qdrant.Host != "" {
		embedder := search.NewEmbedder(search.EmbedConfig{
			Provider:  cfg.Embedding.Provider,
			Endpoint:  cfg.Embedding.Endpoint,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
		})
		ix, ixErr := search.NewIndex(search.QdrantConfig{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		}, embedder, logger)
		if ixErr != nil {
			logger.Warn("Qdrant unavailable, running without search", zap.Error(ixErr))
		} else {
			index = ix
		}
	}

	// Optional Redis workflow mirror
	var mirror *ledger.RedisMirror
	if cfg.Database.Redis.URL != "" {
		m, mErr := ledger.NewRedisMirror(cfg.Database.Redis.URL, logger)
		if mErr != nil {
			logger.Warn("Redis unavailable, running without workflow mirror", zap.Error(mErr))
		} else {
			mirror = m
		}
	}

	// Build and initialize the agent system
	opts := system.Options{Store: pgStore, Knowledge: graph, Index: index}
	if mirror != nil {
		opts.Mirror = mirror
	}
	sys := system.New(router, opts, logger)
	if err := sys.Initialize(credential, cfg.Generation.Language); err != nil {
		logger.Fatal("agent initialization failed", zap.Error(err))
	}

	// Chat gateways
	gw := gateway.NewGateway(logger)
	gateway.NewBridge(gw, sys, cfg.Generation.Language, logger)

	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}
	if err := gw.ConnectAll(context.Background()); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Start server
	handler := api.NewHandler(sys, router, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Agora listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Agora...")
	ctx := context.Background()
	srv.Shutdown(ctx)
	sys.Shutdown()
	gw.Close()
	if pgStore != nil {
		pgStore.Close()
	}
	if graph != nil {
		graph.Close(ctx)
	}
	if index != nil {
		index.Close()
	}
	if mirror != nil {
		mirror.Close()
	}
}

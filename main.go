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

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/procureflow-core/server/internal/agent/engine"
	"github.com/procureflow-core/server/internal/agent/extract"
	"github.com/procureflow-core/server/internal/agent/llm"
	"github.com/procureflow-core/server/internal/agent/model"
	"github.com/procureflow-core/server/internal/agent/prompts"
	"github.com/procureflow-core/server/internal/agent/repo"
	"github.com/procureflow-core/server/internal/agent/sourcing"
	"github.com/procureflow-core/server/internal/channel"
	"github.com/procureflow-core/server/internal/core"
	httpserver "github.com/procureflow-core/server/internal/server"
	logx "github.com/procureflow-core/server/pkg/logger"
	pkgredis "github.com/procureflow-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis  pkgredis.Config
	Server model.ServerConfig

	// Collaborators
	Generation model.GenerationConfig
	Sourcing   model.SourcingConfig

	// Conversation state
	Conversation model.ConversationConfig

	// Async delivery channel
	Channel model.ChannelConfig
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	instructions := prompts.SystemInstructions()
	pipeline := extract.NewPipeline()
	rebuild := model.CandidateRebuilder(pipeline.Rebuild)

	store, err := buildStore(cfg, instructions, rebuild)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise conversation store")
	}

	generator, err := llm.NewClient(cfg.Generation)
	if err != nil {
		// Startup still succeeds; turns fail at the collaborator call and
		// the capability check reports the missing credentials.
		logx.Warn().Err(err).Msg("generation backend not configured")
		generator = llm.NewUnavailable(err)
	}

	eng := engine.New(engine.Config{
		Store:              store,
		Generator:          generator,
		Sourcer:            sourcing.NewGoogleSearchSourcer(cfg.Sourcing),
		Pipeline:           pipeline,
		MaxSourcingResults: cfg.Sourcing.MaxResults,
	})

	var notifier channel.Notifier
	if cfg.Channel.OutboundURL != "" {
		notifier = channel.NewHTTPNotifier(cfg.Channel)
	}

	srv := httpserver.New(httpserver.Config{
		Engine:              eng,
		Store:               store,
		Notifier:            notifier,
		GeneratorConfigured: cfg.Generation.Configured(),
		ChannelSelfID:       cfg.Channel.SelfID,
		AllowedOrigin:       cfg.Server.AllowedOrigin,
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		logx.Info().Str("addr", cfg.Server.Addr).Str("env", env.String()).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logx.Error().Err(err).Msg("shutdown failed")
	}
}

func buildStore(cfg AppConfig, instructions string, rebuild model.CandidateRebuilder) (model.ConversationRepository, error) {
	switch cfg.Conversation.StoreBackend {
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, err
		}
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, err
		}
		return repo.NewRedisConversationRepository(rdb, ttl, instructions, rebuild), nil
	default:
		return repo.NewMemoryConversationRepository(instructions, rebuild), nil
	}
}

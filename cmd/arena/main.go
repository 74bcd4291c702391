package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"minearena/internal/agent"
	"minearena/internal/battle"
	"minearena/internal/config"
	"minearena/internal/persist"
	"minearena/internal/server"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", -1, "The server port (-1 to use config default)")
	host := flag.String("host", "", "The server host (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	backend := flag.String("persistence", "", "Replay storage backend (none, memory, redis) (empty to use config default)")
	flag.Parse()

	// Initialize configuration
	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}

	cfg := config.Get()

	// Use config defaults if not overridden by flags
	if *port == -1 {
		*port = cfg.Server.Port
	}
	if *host == "" {
		*host = cfg.Server.Host
	}
	if *logLevel == "" {
		*logLevel = cfg.Server.LogLevel
	}
	if *backend == "" {
		*backend = cfg.Persistence.Backend
	}

	// Setup logging
	setupLogging(*logLevel)

	log.Info().
		Int("port", *port).
		Str("host", *host).
		Str("persistence", *backend).
		Int("max_agents", cfg.Battle.MaxAgents).
		Msg("Starting arena server")

	rec := newRecorder(*backend, cfg)
	defer rec.Close()

	store := battle.NewStore(rec, log.Logger)
	defer store.Close()

	limits := server.Limits{
		MaxRows:   cfg.Battle.MaxRows,
		MaxCols:   cfg.Battle.MaxCols,
		MaxMines:  cfg.Battle.MaxMines,
		MaxAgents: cfg.Battle.MaxAgents,
	}
	srv := server.New(store, moverFactory(cfg), limits, log.Logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server shutdown complete")
}

// newRecorder picks the replay storage backend. Redis falls back to in-memory
// storage when the server is unreachable so a battle is never lost to a bad
// connection string.
func newRecorder(backend string, cfg *config.Config) persist.Recorder {
	switch persist.Backend(backend) {
	case persist.BackendRedis:
		rec := persist.NewRedisRecorder(persist.RedisConfig{
			Addr:     cfg.Persistence.Redis.Addr,
			Password: cfg.Persistence.Redis.Password,
			DB:       cfg.Persistence.Redis.DB,
		}, log.Logger)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Ping(ctx); err != nil {
			log.Warn().Err(err).
				Str("addr", cfg.Persistence.Redis.Addr).
				Msg("Redis unreachable, falling back to in-memory storage")
			rec.Close()
			return persist.NewMemoryRecorder()
		}
		log.Info().Str("addr", cfg.Persistence.Redis.Addr).Msg("Recording battles to Redis")
		return rec
	case persist.BackendMemory:
		return persist.NewMemoryRecorder()
	case persist.BackendNone:
		return persist.NewNullRecorder()
	default:
		log.Fatal().Err(persist.ErrInvalidBackend).Str("backend", backend).Msg("Unknown persistence backend")
		return nil
	}
}

// moverFactory maps agent IDs to movers. IDs are namespaced with an optional
// ":suffix" so one battle can field several agents of the same kind under
// distinct IDs:
//
//	solver, solver:2    deterministic built-in solver
//	random, random:b    uniform random mover
//	openai:<model>      LLM agent using the given model
//	anything else       LLM agent using the configured default model
func moverFactory(cfg *config.Config) battle.MoverFactory {
	oa := cfg.Agents.OpenAI
	return func(agentID string) (agent.Mover, error) {
		kind, suffix := agentID, ""
		if i := strings.Index(agentID, ":"); i >= 0 {
			kind, suffix = agentID[:i], agentID[i+1:]
		}

		switch kind {
		case "solver":
			return agent.NewSolver(), nil
		case "random":
			return agent.NewRandom(time.Now().UnixNano()), nil
		}

		model := oa.Model
		if kind == "openai" && suffix != "" {
			model = suffix
		}
		if oa.APIKey == "" {
			return nil, fmt.Errorf("agent %q requires an OpenAI API key (set agents.openai.api_key or ARENA_AGENTS_OPENAI_API_KEY)", agentID)
		}

		cc := openai.DefaultConfig(oa.APIKey)
		if oa.BaseURL != "" {
			cc.BaseURL = oa.BaseURL
		}
		cc.HTTPClient = &http.Client{Timeout: time.Duration(oa.RequestTimeout) * time.Second}
		client := openai.NewClientWithConfig(cc)
		return agent.NewOpenAIAgent(client, model, oa.Temperature, log.Logger), nil
	}
}

func setupLogging(level string) {
	// Parse log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Check if we're in production
	if os.Getenv("APP_ENV") == "production" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}

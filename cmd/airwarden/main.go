package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airwarden/airwarden/internal/auth"
	"github.com/airwarden/airwarden/internal/config"
	"github.com/airwarden/airwarden/internal/event"
	"github.com/airwarden/airwarden/internal/kismet"
	"github.com/airwarden/airwarden/internal/registry"
	"github.com/airwarden/airwarden/internal/sentry"
	"github.com/airwarden/airwarden/internal/server"
	"github.com/airwarden/airwarden/internal/store"
	"github.com/airwarden/airwarden/internal/tracker"
	"github.com/airwarden/airwarden/internal/version"
	"github.com/airwarden/airwarden/internal/voice"
	"github.com/airwarden/airwarden/internal/webhook"
	"github.com/airwarden/airwarden/internal/ws"
	"github.com/airwarden/airwarden/pkg/plugin"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	// Initialize logger from configuration.
	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("AirWarden server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Open database
	dbPath := viperCfg.GetString("database.dsn")
	if dbPath == "" {
		dbPath = "airwarden.db"
	}
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	// Create shared services
	bus := event.NewBus(logger.Named("event"))
	logger.Info("event bus created", zap.String("component", "event"))

	// Create plugin registry
	reg := registry.New(logger.Named("registry"))
	logger.Info("plugin registry created", zap.String("component", "registry"))

	// Wire collaborator clients into the sentry module before Init.
	sentryMod := sentry.New()
	sentryMod.SetCollaborators(buildCollaborators(viperCfg, logger))

	// Register all plugins (compile-time composition)
	modules := []plugin.Plugin{
		sentryMod,
		webhook.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}

	// Validate dependency graph and API versions
	if err := reg.Validate(); err != nil {
		logger.Fatal("plugin validation failed", zap.Error(err))
	}

	// Initialize all plugins with dependencies
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		pluginCfg := cfg.Sub("plugins." + name)
		return plugin.Dependencies{
			Config:  pluginCfg,
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}

	// Start plugins
	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	// Create auth service. An empty password hash disables authentication.
	var authHandler *auth.Handler
	var tokens *auth.TokenService
	if hash := viperCfg.GetString("auth.password_hash"); hash != "" {
		jwtSecret := viperCfg.GetString("auth.jwt_secret")
		if jwtSecret == "" {
			// Generate an ephemeral secret -- tokens won't survive restarts.
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				logger.Fatal("failed to generate JWT secret", zap.Error(err))
			}
			jwtSecret = hex.EncodeToString(b)
			logger.Info("using auto-generated JWT secret (normal for first run; set auth.jwt_secret in config to persist sessions across restarts)",
				zap.String("component", "auth"),
			)
		}

		accessTTL := viperCfg.GetDuration("auth.access_token_ttl")
		if accessTTL == 0 {
			accessTTL = time.Hour
		}

		tokens = auth.NewTokenService([]byte(jwtSecret), accessTTL)
		operator := viperCfg.GetString("auth.operator")
		authHandler = auth.NewHandler(tokens, operator, []byte(hash), logger.Named("auth"))
		logger.Info("auth service initialized",
			zap.String("component", "auth"),
			zap.String("operator", operator),
			zap.Duration("access_token_ttl", accessTTL),
		)
	} else {
		logger.Warn("auth.password_hash not set, API authentication disabled",
			zap.String("component", "auth"),
		)
	}

	// Create WebSocket handler for the live alert stream
	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	// Create and start HTTP server
	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	logger.Info("HTTP server configured",
		zap.String("component", "server"),
		zap.String("addr", addr),
	)
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})

	var authRegistrar server.RouteRegistrar
	if authHandler != nil {
		authRegistrar = authHandler
	}
	srv := server.New(addr, reg, logger, readyCheck, authRegistrar, wsHandler)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("AirWarden server ready", zap.String("addr", addr))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("AirWarden server stopped")
}

// buildCollaborators constructs the detection source and voice sink clients
// from configuration. Lives in the composition root so sentry never imports
// the concrete clients.
func buildCollaborators(v interface {
	GetString(string) string
	GetDuration(string) time.Duration
	GetBool(string) bool
}, logger *zap.Logger) sentry.Collaborators {
	var c sentry.Collaborators

	if url := v.GetString("tracker.url"); url != "" {
		c.Correlator = tracker.NewClient(url, v.GetString("tracker.token"), v.GetDuration("tracker.timeout"))
		logger.Info("tracker client configured", zap.String("url", url))
	}
	if url := v.GetString("kismet.url"); url != "" {
		c.Scanner = kismet.NewClient(url, v.GetString("kismet.api_key"), v.GetDuration("kismet.timeout"))
		logger.Info("kismet client configured", zap.String("url", url))
	}
	if url := v.GetString("voice.url"); url != "" && v.GetBool("voice.enabled") {
		c.Voice = voice.NewSpeaker(url, v.GetDuration("voice.timeout"))
		logger.Info("voice sink configured", zap.String("url", url))
	}

	return c
}

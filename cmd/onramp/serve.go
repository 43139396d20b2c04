package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/onrampd/onramp"
	"github.com/onrampd/onramp/internal/config"
	"github.com/onrampd/onramp/internal/logging"
	fileStore "github.com/onrampd/onramp/pkg/adapters/file"
	httpAdapter "github.com/onrampd/onramp/pkg/adapters/http"
	memoryStore "github.com/onrampd/onramp/pkg/adapters/memory"
	redisStore "github.com/onrampd/onramp/pkg/adapters/redis"
	"github.com/onrampd/onramp/pkg/observability"
	"github.com/onrampd/onramp/pkg/persistence/middleware"
	"github.com/onrampd/onramp/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the onramp engine in server mode, exposing the selection and session API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		// The flag only overrides the config file when explicitly set.
		var definitionsDir string
		if cmd.Flags().Changed("definitions") {
			definitionsDir, _ = cmd.Flags().GetString("definitions")
		}
		return runServe(configPath, definitionsDir)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
}

func runServe(configPath, definitionsDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if definitionsDir != "" {
		cfg.DefinitionsDir = definitionsDir
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	opts := []onramp.Option{
		onramp.WithLogger(logger),
		onramp.WithMetrics(metrics),
	}

	store, locker, err := buildStore(cfg.Store)
	if err != nil {
		return err
	}
	opts = append(opts, onramp.WithStore(store))
	if locker != nil {
		opts = append(opts, onramp.WithLocker(locker))
	}

	engine, err := onramp.New(cfg.DefinitionsDir, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	logger.Info("definitions loaded",
		"dir", cfg.DefinitionsDir,
		"processes", len(engine.Processes()))

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Mount("/", httpAdapter.NewHandler(engine, httpAdapter.WithLogger(logger)))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("failed to stop server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}

func buildStore(cfg config.StoreConfig) (ports.StateStore, ports.DistributedLocker, error) {
	var store ports.StateStore
	var locker ports.DistributedLocker

	switch cfg.Backend {
	case "memory":
		store = memoryStore.NewStore()
	case "file":
		store = fileStore.New(cfg.Path)
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redisStore.NewFromClient(client, redisStore.WithTTL(cfg.Redis.TTL))
		if cfg.Redis.Lock {
			locker = redisStore.NewLocker(client, "onramp:")
		}
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	var middlewares []middleware.Middleware
	if len(cfg.ScrubFields) > 0 {
		middlewares = append(middlewares, middleware.NewRetentionMiddleware(cfg.ScrubFields))
	}
	if cfg.EncryptionKey != "" {
		encConfig, err := encryptionConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		middlewares = append(middlewares, middleware.NewEncryptionMiddleware(encConfig))
	}
	return middleware.Chain(store, middlewares...), locker, nil
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := decodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("invalid encryption key: %w", err)
	}
	fallbacks := make([][]byte, 0, len(cfg.EncryptionFallbackKeys))
	for i, k := range cfg.EncryptionFallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallbacks}, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

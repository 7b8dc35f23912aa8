package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/avvvet/toywonder-assistant/internal/assistant"
	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/config"
	"github.com/avvvet/toywonder-assistant/internal/handlers"
	"github.com/avvvet/toywonder-assistant/internal/i18n"
	"github.com/avvvet/toywonder-assistant/internal/llm"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/memory"
	"github.com/avvvet/toywonder-assistant/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("Service stopped with error", map[string]interface{}{"error": err})
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	log.Info("Starting assistant service", map[string]interface{}{
		"service":  cfg.ServiceName,
		"store":    cfg.StoreBackend,
		"provider": cfg.LLMProvider,
	})

	ctx := context.Background()

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("Store ready", map[string]interface{}{"backend": cfg.StoreBackend})

	seed := catalog.DefaultProducts()
	if cfg.CatalogPath != "" {
		if seed, err = catalog.LoadFile(cfg.CatalogPath); err != nil {
			return err
		}
	}
	products := catalog.NewStaticRepository(seed)
	log.Info("Catalog loaded", map[string]interface{}{"products": len(seed)})
	names := make([]string, 0)
	for _, p := range products.List() {
		names = append(names, p.Name)
	}

	generator, err := llm.New(cfg, names, log)
	if err != nil {
		return fmt.Errorf("failed to create suggestion generator: %w", err)
	}

	registry, err := assistant.NewRegistry(assistant.Options{
		Catalog:   products,
		Generator: generator,
		Store:     memory.NewAdapter(kv, log),
		Translate: i18n.Translate,
		Locale:    cfg.DefaultLocale,
		Timeout:   cfg.LLMTimeout,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	handler := handlers.NewAssistantHandler(registry, log)

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	go registry.RunEviction(evictCtx, cfg.SessionIdle)

	if cfg.NatsEnabled {
		natsTransport, err := transport.NewNATSTransport(cfg, handler, log)
		if err != nil {
			return fmt.Errorf("failed to initialize NATS transport: %w", err)
		}
		defer natsTransport.Close()

		if err := natsTransport.Start(); err != nil {
			return fmt.Errorf("failed to start NATS transport: %w", err)
		}
	}

	server := transport.NewHTTPServer(cfg.ServiceName, handler, products, log)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Listen(cfg.HTTPAddr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	if err := server.Shutdown(); err != nil {
		log.Warn("Error shutting down HTTP server", map[string]interface{}{"error": err})
	}
	log.Info("Assistant service stopped", map[string]interface{}{"sessions": registry.Len()})
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (memory.KV, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		store, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case config.StoreSQLite:
		store, err := memory.OpenSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return memory.NewInMemoryStore(), func() {}, nil
	}
}

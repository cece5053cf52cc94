package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"parking-companion/config"
	"parking-companion/internal/api"
	"parking-companion/internal/backend"
	"parking-companion/internal/db"
	"parking-companion/internal/mapview"
	"parking-companion/internal/metrics"
	"parking-companion/internal/modal"
	"parking-companion/internal/notification"
	"parking-companion/internal/page"
	"parking-companion/internal/parse"
	"parking-companion/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "parkd ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("Warning: could not load .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
		}
		logger.Printf("Warning: %s not found; using defaults", configPath)
		cfg = config.Default()
	} else {
		logger.Printf("configuration loaded successfully from %s", configPath)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := newStateStore(ctx, cfg.State, gormDB)
	if err != nil {
		logger.Fatalf("failed to initialize state store: %v", err)
	}
	logger.Printf("state store initialized (%s)", cfg.State.Driver)
	records := store.NewRecords(state)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, err := backend.NewClient(cfg.Backend)
	if err != nil {
		logger.Fatalf("failed to create backend client: %v", err)
	}

	var webpushOptions *webpush.Options
	var notifier page.Notifier
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
		notifier = workerPool
	} else {
		logger.Println("VAPID keys are not configured; notices will not be relayed")
	}

	p := page.New(cfg.Page.Location, !cfg.Modal.Disabled, notifier)
	dialog := modal.NewController(records, client, p, modal.Options{
		Tick:      cfg.Modal.Tick,
		LoginPath: cfg.Modal.LoginPath,
		Metrics:   m,
	})
	mapView := mapview.NewController(loadPageData(cfg.Map.PageDataFile), client, p, dialog, m)

	dialog.Init(ctx)
	go mapView.Run(ctx, cfg.Map.PollInterval)

	router := api.NewRouter(api.Deps{
		Server:   cfg.Server,
		DB:       gormDB,
		Webpush:  webpushOptions,
		Map:      mapView,
		Dialog:   dialog,
		Page:     p,
		Gatherer: reg,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()
	dialog.Close()

	logger.Println("Server gracefully stopped")
}

func newStateStore(ctx context.Context, cfg config.StateConfig, gormDB *gorm.DB) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return store.NewRedisStore(rdb, cfg.KeyPrefix), nil
	default:
		return store.NewGormStore(gormDB), nil
	}
}

func loadPageData(path string) parse.PageData {
	if path == "" {
		return parse.ParsePageData(nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: could not read page data %s: %v", path, err)
		return parse.ParsePageData(nil)
	}
	return parse.ParsePageData(raw)
}

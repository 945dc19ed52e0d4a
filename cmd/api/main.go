package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"torn-bazaar-api/internal/cache"
	"torn-bazaar-api/internal/config"
	"torn-bazaar-api/internal/handler"
	"torn-bazaar-api/internal/registry"
	"torn-bazaar-api/internal/repository"
	"torn-bazaar-api/internal/router"
	"torn-bazaar-api/internal/service"
	"torn-bazaar-api/internal/torn"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Torn Bazaar API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize market repository based on config
	var marketRepo repository.MarketRepository
	switch cfg.DB.Type {
	case "mysql":
		mysqlRepo, err := repository.NewMySQLMarketRepository(cfg.DB.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		marketRepo = mysqlRepo
		log.Println("MySQL market repository initialized")
	default: // sqlite
		if dir := dataDir(cfg.DB.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Fatalf("Failed to create data directory: %v", err)
			}
		}
		sqliteRepo, err := repository.NewSQLiteMarketRepository(cfg.DB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		marketRepo = sqliteRepo
		log.Println("SQLite market repository initialized")
	}
	defer marketRepo.Close()

	// Initialize snapshot cache based on config
	var snapshotCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory cache: %v", err)
			memCache := cache.NewMemoryCache()
			defer memCache.Close()
			snapshotCache = memCache
		} else {
			defer redisCache.Close()
			snapshotCache = redisCache
			log.Println("Redis snapshot cache initialized")
		}
	default:
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		snapshotCache = memCache
		log.Println("Memory snapshot cache initialized")
	}

	// Upstream Torn API client - one client, one shared rate budget
	if cfg.Torn.APIKey == "" {
		log.Println("Warning: TORN_API_KEY is not set; upstream calls will fail")
	}
	tornClient := torn.NewClient(torn.Options{
		BaseURL:      cfg.Torn.BaseURL,
		APIKey:       cfg.Torn.APIKey,
		RequestDelay: cfg.Torn.RequestDelay,
		MaxRetries:   cfg.Torn.MaxRetries,
		HTTPClient:   &http.Client{Timeout: cfg.Torn.HTTPTimeout},
	})
	catalog := torn.NewCatalog(tornClient)

	// Import the seller registry; its absence disables scanning only.
	var scanner *service.Scanner
	sellers, err := registry.Load(cfg.Scanner.RegistryPath)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		log.Println("Warning: trader registry not found, background scanning disabled")
	case err != nil:
		log.Printf("Warning: failed to load trader registry, background scanning disabled: %v", err)
	default:
		ctx := context.Background()
		if err := marketRepo.UpsertSellers(ctx, sellers); err != nil {
			log.Printf("Warning: failed to import %d sellers: %v", len(sellers), err)
		} else {
			log.Printf("Imported %d sellers from registry", len(sellers))
		}
		if !cfg.Scanner.Enabled {
			log.Println("Background scanning disabled by configuration")
			break
		}
		scanner = service.NewScanner(marketRepo, tornClient, service.ScannerConfig{
			Interval:  cfg.Scanner.Interval,
			BatchSize: cfg.Scanner.BatchSize,
		})
		scanner.Start()
		defer scanner.Stop()
	}

	// Initialize services
	finder := service.NewFinder(marketRepo, tornClient, snapshotCache, service.FinderConfig{
		CacheTTL:    cfg.Cache.TTL,
		MatchTarget: cfg.Finder.MatchTarget,
	})

	var status service.ScanStatus
	if scanner != nil {
		status = scanner
	}
	listingService := service.NewListingService(marketRepo, finder, catalog, status)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	listingsHandler := handler.NewListingsHandler(listingService, cfg.Finder.DefaultLimit, cfg.Finder.MaxLimit, cfg.Finder.CachedMaxScans)
	adminHandler := handler.NewAdminHandler(finder, scanner)

	// Create router
	r := router.New(router.Config{
		Handler:         healthHandler,
		ListingsHandler: listingsHandler,
		AdminHandler:    adminHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

func dataDir(dbPath string) string {
	if dir := filepath.Dir(dbPath); dir != "." {
		return dir
	}
	return ""
}

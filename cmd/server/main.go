package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/InRunning/epub-online/internal/api"
	"github.com/InRunning/epub-online/internal/book"
	"github.com/InRunning/epub-online/internal/cache"
	"github.com/InRunning/epub-online/internal/config"
	"github.com/InRunning/epub-online/internal/health"
	"github.com/InRunning/epub-online/internal/library"
	"github.com/InRunning/epub-online/internal/storage"
	"github.com/InRunning/epub-online/pkg/types"
)

const version = "0.3.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/dev.example.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting epub-online server v%s", version)
	log.Printf("Configuration loaded from: %s", *configPath)

	// Initialize storage adapter
	storageAdapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create storage adapter: %v", err)
	}
	defer storageAdapter.Close()
	log.Printf("Storage adapter initialized: %s", cfg.Storage.Adapter)

	// Initialize book repository
	bookRepo := book.NewRepository(storageAdapter)

	// Initialize buffer cache
	bufCache := cache.New(cache.Options{
		MaxEntries:     cfg.Cache.MaxEntries,
		MaxAge:         time.Duration(cfg.Cache.MaxAgeMs) * time.Millisecond,
		PreloadTimeout: time.Duration(cfg.Cache.PreloadTimeoutMs) * time.Millisecond,
	})
	log.Printf("Buffer cache initialized: max %d entries, max age %dms",
		cfg.Cache.MaxEntries, cfg.Cache.MaxAgeMs)

	// Initialize library service
	libraryService := library.NewService(bookRepo, bufCache)

	// Warm the cache with recently uploaded books
	if cfg.Library.WarmRecent > 0 {
		warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
		if err := libraryService.WarmRecent(warmCtx, cfg.Library.WarmRecent); err != nil {
			log.Printf("Warning: cache warm-up failed: %v", err)
		}
		cancelWarm()
	}

	// The cache holds no timer of its own; this ticker drives its
	// periodic expiry sweep.
	sweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Cache.SweepIntervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := bufCache.SweepExpired(); removed > 0 {
					log.Printf("Cache sweep removed %d expired entries", removed)
				}
			case <-sweepStop:
				return
			}
		}
	}()

	// Initialize health checks
	healthHandler := health.NewHandler(version)

	healthHandler.Register("storage", func(ctx context.Context) (health.Status, error) {
		exists, err := storageAdapter.Exists(ctx, ".healthcheck")
		if err != nil {
			return health.StatusUnhealthy, err
		}
		_ = exists // Ignore result, just checking connectivity
		return health.StatusHealthy, nil
	})

	healthHandler.Register("cache", func(ctx context.Context) (health.Status, error) {
		stats := bufCache.Stats()
		if stats.Count > cfg.Cache.MaxEntries {
			return health.StatusDegraded, fmt.Errorf("cache over capacity: %d entries", stats.Count)
		}
		return health.StatusHealthy, nil
	})

	// Set up HTTP server and routes
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/health/live", healthHandler.LivenessHandler())
	mux.HandleFunc("/health/ready", healthHandler.ReadinessHandler())
	mux.HandleFunc("/health", healthHandler.HealthHandler())

	// Info endpoint
	mux.HandleFunc("/api/v1/info", infoHandler(version, cfg))

	// Book API endpoints
	bookHandler := api.NewBookHandler(bookRepo, libraryService, bufCache, cfg.Library.MaxUploadMB)
	mux.HandleFunc("/api/v1/books", bookHandler.Books)
	mux.HandleFunc("/api/v1/cache/stats", bookHandler.CacheStats)
	mux.HandleFunc("/api/v1/books/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/file"):
			bookHandler.GetBookFile(w, r)
		case strings.HasSuffix(path, "/preload"):
			bookHandler.PreloadBook(w, r)
		case strings.HasSuffix(path, "/progress"):
			bookHandler.Progress(w, r)
		case strings.HasSuffix(path, "/preferences"):
			bookHandler.Preferences(w, r)
		case r.Method == http.MethodDelete:
			bookHandler.DeleteBook(w, r)
		default:
			bookHandler.GetBook(w, r)
		}
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	close(sweepStop)

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// infoHandler returns basic server information
func infoHandler(version string, cfg *types.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":"%s","storage_adapter":"%s"}`, version, cfg.Storage.Adapter)
	}
}

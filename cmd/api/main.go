package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SytherAsh/Vizuara-backend/internal/api"
	"github.com/SytherAsh/Vizuara-backend/internal/config"
	"github.com/SytherAsh/Vizuara-backend/internal/db"
	"github.com/SytherAsh/Vizuara-backend/internal/progress"
	"github.com/SytherAsh/Vizuara-backend/internal/queue"
	"github.com/SytherAsh/Vizuara-backend/internal/render"
	"github.com/SytherAsh/Vizuara-backend/internal/storage"
	"github.com/SytherAsh/Vizuara-backend/internal/subtitles"
	"github.com/SytherAsh/Vizuara-backend/internal/worker"
)

func main() {
	log.Println("Starting Vizuara render API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Progress tracker, shared by the API and the worker, with a background
	// sweep of stale entries
	tracker := progress.NewTracker()
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	tracker.StartJanitor(rootCtx,
		time.Duration(cfg.ProgressTTLMinutes)*time.Minute,
		time.Duration(cfg.ProgressSweepMinutes)*time.Minute)

	// Create API handler
	handler := api.NewHandler(database, q, stor, tracker, cfg.RenderOptions())
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		assembler := render.NewAssembler(cfg.TempDir, tracker)
		subs := subtitles.NewService(stor)
		w := worker.New(database, q, stor, assembler, subs, tracker)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(rootCtx)
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

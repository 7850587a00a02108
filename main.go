// dashapi/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashapi/api"
	"dashapi/config"
	"dashapi/extract"
	"dashapi/registry"
	"dashapi/relay"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize the extraction runner
	runner, err := extract.NewRunner(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize extraction runner: %v", err)
	}

	// 3. Job registry and translation relay
	jobs := registry.New(cfg.GraceWindow, cfg.JobTTL)
	translator := relay.NewClient(cfg.OpenRouterBase, cfg.OpenRouterModel, cfg.OpenRouterKey)

	// 4. Set up router and server
	router := api.SetupRouter(runner, jobs, translator, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 5. Start background services and HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs.Start(ctx)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	// Generated scripts are staged in a private temp dir; drop it on exit.
	if cfg.ScriptDir != "" {
		os.RemoveAll(cfg.ScriptDir)
	}

	log.Println("Server exiting")
}

// Package main is the main package for the ragengine server
// It contains the main function and the entry point for the server
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/container"
	"github.com/fenwick-ai/ragengine/internal/handler"
	"github.com/fenwick-ai/ragengine/internal/health"
	"github.com/fenwick-ai/ragengine/internal/runtime"
	"github.com/fenwick-ai/ragengine/internal/tracing"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// gateOnDependencies probes every configured dependency before the HTTP
// server accepts traffic. Failing closed here beats accepting requests that
// can only 500 against a half-started backend.
func gateOnDependencies(cfg *config.Config, checker *health.Checker) error {
	specs := handler.SpecsFromConfig(cfg.Health)
	if len(specs) == 0 {
		return nil
	}
	deadline := 60 * time.Second
	if cfg.Health.OverallTimeout > 0 {
		deadline = cfg.Health.OverallTimeout
	}
	results := checker.CheckAll(context.Background(), specs, deadline)
	for name, r := range results {
		if !r.Healthy {
			return fmt.Errorf("dependency %s is not healthy: %s", name, r.Error)
		}
	}
	return nil
}

func main() {
	// Set log format with request ID
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.SetOutput(os.Stdout)

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Build dependency injection container
	c := container.BuildContainer(runtime.GetContainer())

	// Run application
	err := c.Invoke(func(
		cfg *config.Config,
		router *gin.Engine,
		tracer *tracing.Tracer,
		checker *health.Checker,
		resourceCleaner interfaces.ResourceCleaner,
	) error {
		// Create context for resource cleanup
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 30 * time.Second
		}
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cleanupCancel()

		// Register tracer cleanup function to resource cleaner
		resourceCleaner.RegisterWithName("Tracer", func() error {
			return tracer.Cleanup(cleanupCtx)
		})

		// Gate startup on dependency health
		if err := gateOnDependencies(cfg, checker); err != nil {
			return fmt.Errorf("startup health gate failed: %v", err)
		}

		// Create HTTP server
		server := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		}

		ctx, done := context.WithCancel(context.Background())
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		go func() {
			sig := <-signals
			log.Printf("Received signal: %v, starting server shutdown...", sig)

			// Create a context with timeout for server shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Fatalf("Server forced to shutdown: %v", err)
			}

			// Clean up all registered resources
			log.Println("Cleaning up resources...")
			errs := resourceCleaner.Cleanup(cleanupCtx)
			if len(errs) > 0 {
				log.Printf("Errors occurred during resource cleanup: %v", errs)
			}

			log.Println("Server has exited")
			done()
		}()

		// Start server
		log.Printf("Server is running at %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start server: %v", err)
		}

		// Wait for shutdown signal
		<-ctx.Done()
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

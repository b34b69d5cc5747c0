// main is the entry point of the school API (students and teachers).
//
// STARTUP SEQUENCE:
//  1. Load configuration (config file, .env, or plain environment)
//  2. Initialise the logger
//  3. Validate the document store settings; refuse to serve without them
//  4. Build the shared handle cache and start connecting in the background
//  5. Register all HTTP routes behind the middleware stack
//  6. Start the HTTP server in a separate goroutine
//  7. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  8. Gracefully shut down: finish in-flight requests, close the store
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/school-api/internal/config"
	"github.com/aanand-mishra/school-api/internal/connection"
	"github.com/aanand-mishra/school-api/internal/http/router"
	"github.com/aanand-mishra/school-api/internal/service"
	"github.com/aanand-mishra/school-api/internal/validation"
)

const version = "1.0.0"

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)

	log.Info("starting school-api",
		slog.String("env", cfg.Env),
		slog.String("version", version),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	// ── 3. Validate Store Settings ────────────────────────────────────────
	// Every missing setting is reported at once.
	connCfg := cfg.Connection()
	if err := connCfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── 4. Shared Handle Cache ────────────────────────────────────────────
	// Nothing here blocks: the bootstrapper connects on first use, and
	// Warm makes that first use happen now, in the background.
	bootstrapper := connection.NewBootstrapper(connCfg,
		connection.WithPolicy(policy),
		connection.WithLogger(log),
	)
	handles := connection.NewCache(bootstrapper, log)
	handles.Warm(context.Background())

	validator, err := validation.New()
	if err != nil {
		log.Error("failed to initialise validator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── 5. Register HTTP Routes ───────────────────────────────────────────
	handler := router.New(router.Deps{
		Students:       service.NewStudents(handles, service.WithLogger(log)),
		Teachers:       service.NewTeachers(handles, service.WithLogger(log)),
		Validator:      validator,
		AllowedOrigins: cfg.HTTPServer.Origins(),
		AccessLog:      os.Stdout,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	go func() {
		log.Info("server started",
			slog.String("address", server.Addr),
			slog.String("env", cfg.Env))

		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handles.Close(); err != nil {
		log.Error("failed to close document store",
			slog.String("error", err.Error()))
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development: human-readable text output at DEBUG level.
// Production:  machine-readable JSON output at INFO level.
func setupLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}

	switch cfg.Env {
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "development" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}

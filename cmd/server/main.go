package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/internal/nodes"
	"github.com/flowgraph-go/internal/server"
	"github.com/flowgraph-go/internal/workflows"
	"github.com/flowgraph-go/pkg/config"
	"github.com/flowgraph-go/pkg/database"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

func main() {
	cfg, err := config.Load("server")
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:     cfg.Logger.Level,
		Format:    cfg.Logger.Format,
		Output:    cfg.Logger.Output,
		AddCaller: cfg.Logger.AddCaller,
	})

	// Credential snapshot: read the process environment once at startup. The
	// engine never rereads it mid-run.
	store := secrets.FromEnvironment()

	registry := engine.NewRegistry()
	nodes.RegisterAll(registry, nodes.Deps{
		Secrets:    store,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second},
		Breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("node-outbound")),
		Logger:     log,
	})

	eng := engine.New(registry, store, log,
		engine.WithIterationSlack(cfg.Engine.IterationSlack),
	)

	// Workflow persistence is optional; the engine runs fine without it.
	var workflowService *workflows.Service
	db, err := database.New(database.Config{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Name:         cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		log.Warn("Database unavailable, workflow persistence disabled", "error", err)
	} else {
		defer db.Close()
		if err := db.Migrate(&workflows.Workflow{}); err != nil {
			log.Fatal("Failed to run database migrations", "error", err)
		}
		workflowService = workflows.NewService(workflows.NewRepository(db), log)
	}

	srv := server.New(cfg, log, eng, registry, workflowService)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}

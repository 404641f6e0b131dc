package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/api"
	"github.com/Echelon133/Blobb/internal/cache"
	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/internal/store/neostore"
	"github.com/Echelon133/Blobb/internal/store/pgstore"
	"github.com/Echelon133/Blobb/pkg/config"
	"github.com/Echelon133/Blobb/pkg/logging"
	"github.com/Echelon133/Blobb/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Blobb API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Open the graph store. Neo4j takes precedence when configured,
	// otherwise the relational adapter is used.
	var graph store.GraphStore
	if cfg.Neo4j.Enabled {
		st, err := neostore.New(context.Background(), &cfg.Neo4j)
		if err != nil {
			logger.Fatal("Failed to connect to neo4j", zap.Error(err))
		}
		defer st.Close(context.Background())
		graph = st
		logger.Info("Using neo4j graph store", zap.String("uri", cfg.Neo4j.URI))
	} else {
		st, err := pgstore.New(&cfg.Database, cfg.Logging.Level)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer st.Close()
		graph = st
		logger.Info("Using postgres graph store")
	}

	// Initialize cache
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	router := api.NewRouter(graph, redisCache)
	router.SetupRoutes(engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

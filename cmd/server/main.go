package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"atelier/internal/auth"
	"atelier/internal/config"
	"atelier/internal/handler"
	"atelier/internal/httputil"
	"atelier/internal/middleware"
	"atelier/internal/repository/postgres"
	postgresFav "atelier/internal/repository/postgres/favorites"
	serviceFav "atelier/internal/service/favorites"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	nodeRepo := postgresFav.NewNodeRepository(repoConfig)
	idemRepo := postgresFav.NewIdempotencyRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Create services
	treeService := serviceFav.NewTreeService(nodeRepo, idemRepo, txManager, cfg.MaxImportBatch, logger)

	// Create handlers
	treeHandler := handler.NewTreeHandler(treeService, logger)
	nodeHandler := handler.NewNodeHandler(treeService, logger)
	importHandler := handler.NewImportHandler(treeService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	api := http.NewServeMux()

	api.HandleFunc("GET /api/tree", treeHandler.GetTree)

	api.HandleFunc("POST /api/nodes", nodeHandler.CreateNode)
	api.HandleFunc("DELETE /api/nodes/{id}", nodeHandler.DeleteNode)
	api.HandleFunc("GET /api/nodes/{id}/export", nodeHandler.ExportSubtree)

	api.HandleFunc("POST /api/import", importHandler.ImportBatch)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var protected http.Handler = api
	protected = middleware.Auth(jwtVerifier, logger)(protected)

	// Health check bypasses auth
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheck)
	mux.Handle("/api/", protected)

	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now(),
	})
}

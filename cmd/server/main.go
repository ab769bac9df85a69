package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"inkroll/internal/database/boltstore"
	"inkroll/internal/database/sqlitestore"
	"inkroll/internal/handlers"
	"inkroll/internal/identity"
	"inkroll/internal/metrics"
	"inkroll/internal/routing"
	"inkroll/internal/tracing"
	"inkroll/internal/trust"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Configure zerolog
	// Set log level from environment (default: info)
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting Inkroll trust engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing is best-effort: without a collector the exporter just retries
	tp, err := tracing.Init(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Tracer shutdown failed")
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "18920"
	}

	dbPath := os.Getenv("INKROLL_DB_PATH")
	if dbPath == "" {
		dbPath = "inkroll.db"
	}
	store, err := sqlitestore.Open(ctx, dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open database")
	}
	defer store.Close()
	log.Info().Str("path", dbPath).Msg("Database opened")

	auditPath := os.Getenv("INKROLL_AUDIT_DB_PATH")
	if auditPath == "" {
		auditPath = "inkroll-audit.db"
	}
	auditDB, err := boltstore.Open(boltstore.Options{Path: auditPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", auditPath).Msg("Failed to open audit database")
	}
	defer auditDB.Close()
	auditSink := auditDB.AuditStore()

	// Staff roster for moderator/admin role gating
	roles, err := identity.NewService(os.Getenv("INKROLL_STAFF_ROSTER"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load staff roster")
	}

	engine := trust.NewEngine(store, auditSink)
	controller := trust.NewController(store, auditSink, roles, engine.Policy())

	metrics.StartCollector(ctx, metrics.StatsSource{
		PendingReportCount: func() int {
			n, err := store.CountPendingReports(context.Background())
			if err != nil {
				return -1
			}
			return n
		},
		HiddenCommentCount: func() int {
			n, err := store.CountHidden(context.Background())
			if err != nil {
				return -1
			}
			return n
		},
		RateLimitCounterLen: engine.Limiter().Size,
	}, time.Minute)

	router := routing.SetupRouter(routing.Config{
		Handlers: handlers.NewHandler(engine, controller),
		Limiter:  engine.Limiter(),
		Logger:   log.Logger,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Shutdown complete")
}

// Package main initializes and starts the FitKeeper server, setting up
// configuration, logging, the database, the record store, services,
// handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"cloud.google.com/go/firestore"
	"github.com/atinyakov/FitKeeper/internal/catalog"
	"github.com/atinyakov/FitKeeper/internal/config"
	"github.com/atinyakov/FitKeeper/internal/db"
	"github.com/atinyakov/FitKeeper/internal/logger"
	"github.com/atinyakov/FitKeeper/internal/middleware"
	"github.com/atinyakov/FitKeeper/internal/repository"
	"github.com/atinyakov/FitKeeper/internal/server/handler/http"
	"github.com/atinyakov/FitKeeper/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(cmp.Or(options.LogLevel, "info")); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if options.JWTSecret == "" {
		zapLogger.Fatal("JWT secret is required (-secret or JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Users and sessions always live in PostgreSQL.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartSessionCleaner(ctx, postgresDB,
		time.Hour,      // interval
		7*24*time.Hour, // retention
		zapLogger,
	)

	// Records live in the configured store.
	var records service.RecordStore
	switch options.StoreDriver {
	case config.StoreFirestore:
		fsClient, err := firestore.NewClient(ctx, options.FirestoreProject)
		if err != nil {
			zapLogger.Fatal("cannot init firestore", zap.Error(err))
		}
		defer fsClient.Close()
		records = repository.NewFirestoreRecordStore(fsClient)
	case config.StorePostgres, "":
		records = repository.NewPostgresRecordStore(postgresDB)
	default:
		zapLogger.Fatal("unknown store driver", zap.String("driver", options.StoreDriver))
	}
	zapLogger.Info("record store selected", zap.String("driver", cmp.Or(options.StoreDriver, config.StorePostgres)))

	service.InitValidator()

	// Initialize business-logic services.
	hub := service.NewIdentityHub()
	authService := service.NewAuthService(
		repository.NewPostgresAuthRepository(postgresDB),
		records,
		options.JWTSecret,
		options.SessionTTL,
		hub,
		zapLogger,
	)
	ledgerService := service.NewLedgerService(records, zapLogger)
	workoutService := service.NewWorkoutService(&catalog.Client{
		APIKey:     options.CatalogAPIKey,
		Host:       options.CatalogHost,
		BaseURL:    options.CatalogURL,
		HTTPClient: &nethttp.Client{Timeout: 15 * time.Second},
	}, zapLogger)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService, Logger: zapLogger}
	ledgerHandler := &http.LedgerHandler{Ledger: ledgerService, Logger: zapLogger}
	workoutHandler := &http.WorkoutHandler{Records: ledgerService, Workouts: workoutService, Logger: zapLogger}
	homeHandler := &http.HomeHandler{
		Records: ledgerService,
		Streams: authService,
		Logger:  zapLogger,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     http.OriginChecker(options.AllowedOrigins),
		},
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, ledgerHandler, workoutHandler, homeHandler, authService, http.RouterConfig{
		Gate: middleware.GatePolicy{
			AutoRedirect:  options.AutoRedirect,
			RedirectAfter: options.RedirectAfter,
		},
		AllowedOrigins: options.AllowedOrigins,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := options.TLSCert != "" && options.TLSKey != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", useTLS))
	if useTLS {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

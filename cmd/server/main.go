// Package main initializes and starts the cloudtty gateway, setting up
// configuration, logging, database connections, repositories, services,
// handlers, and TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/config"
	"github.com/atinyakov/cloudtty/internal/db"
	"github.com/atinyakov/cloudtty/internal/logger"
	"github.com/atinyakov/cloudtty/internal/repository"
	"github.com/atinyakov/cloudtty/internal/server/handler/http"
	"github.com/atinyakov/cloudtty/internal/server/shell"
	"github.com/atinyakov/cloudtty/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if options.Version {
		fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
		fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))
		return
	}

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Initialize repositories and the authentication service.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	tokenRepo := repository.NewPostgresTokenRepository(postgresDB)
	authService := service.NewAuthService(authRepo, tokenRepo, options.TokenTTL.Duration)

	if options.Cmd == "useradd" {
		if err := authService.RegisterUser(context.Background(), options.Login, options.Password); err != nil {
			zapLogger.Fatal("failed to add user", zap.String("login", options.Login), zap.Error(err))
		}
		zapLogger.Info("user saved", zap.String("login", options.Login))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodically drop tokens that were never redeemed.
	db.StartTokenCleaner(ctx, postgresDB, options.CleanupInterval.Duration, zapLogger)

	spawner, err := shell.New(options.Command)
	if err != nil {
		zapLogger.Fatal("invalid command", zap.Error(err))
	}

	// Create HTTP handlers for the token and terminal endpoints.
	tokenHandler := &http.TokenHandler{Tokens: authService, Logger: zapLogger}
	terminalHandler := &http.TerminalHandler{
		Tokens: authService,
		Spawn: func(ctx context.Context, login string, cols, rows uint16) (http.Terminal, error) {
			p, err := spawner.Spawn(ctx, cols, rows)
			if err != nil {
				return nil, err
			}
			zapLogger.Debug("spawned terminal", zap.String("login", login), zap.String("command", spawner.Command()))
			return p, nil
		},
		Title:       cmp.Or(options.Title, defaultTitle(spawner.Command())),
		Preferences: options.Preferences,
		Logger:      zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(options.BasePath, authService, tokenHandler, terminalHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if options.TLSCert != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr), zap.String("base_path", options.BasePath))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr), zap.String("base_path", options.BasePath))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

// defaultTitle names the window after the command and the host it runs on.
func defaultTitle(command string) string {
	host, err := os.Hostname()
	if err != nil {
		return command
	}
	return fmt.Sprintf("%s (%s)", command, host)
}

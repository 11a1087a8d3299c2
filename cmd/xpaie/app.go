package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rufusakande/xpaie-client-backend/internal/db"
	"github.com/rufusakande/xpaie-client-backend/internal/handlers"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/repository/postgres"
	"github.com/rufusakande/xpaie-client-backend/internal/service/deposit"
	"github.com/rufusakande/xpaie-client-backend/internal/service/fedapay"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	l := logger.New(c.Environment, c.LogLevel)

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize payment processor client
	// Configuration is passed in explicitly, no process wide state
	processor := fedapay.NewClient(fedapay.Config{
		APIKey:      c.FedaPayAPIKey,
		Environment: c.FedaPayEnv,
	}, l)

	// Initialize deposit orchestrator
	depositService := deposit.NewService(deposit.Config{
		MinAmount:   c.MinAmount,
		Currency:    c.Currency,
		CallbackURL: c.CallbackURL,
	}, storage, processor, l)

	mux := handlers.NewRouter(
		handlers.RouterConfig{
			WebhookSecret: c.WebhookSecret,
			ClientURL:     c.ClientURL,
		},
		depositService,
		processor,
		l,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}

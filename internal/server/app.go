// Package server initializes and runs the admin API server over the
// entitlement ledger. It opens the store, wires the repositories and handles
// graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/diycloud/internal/config"
	"github.com/dmitrijs2005/diycloud/internal/ledger"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/allocations"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/sessions"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/users"
	"github.com/dmitrijs2005/diycloud/internal/logging"
	"github.com/dmitrijs2005/diycloud/internal/server/httpapi"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *ledger.Store
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	store, err := ledger.Open(c.StorePath)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	srv, err := httpapi.NewServer(c, logger, store,
		users.NewSQLiteRepository(store.DB()),
		allocations.NewSQLiteRepository(store.DB()),
		sessions.NewSQLiteRepository(store.DB()))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("server init error: %w", err)
	}

	return &App{config: c, logger: logger, store: store, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

// Package httpapi exposes the admin REST API over the entitlement ledger:
// login/logout backed by DB sessions and JWT access tokens, user and
// allocation lookups, and a health probe that includes store integrity.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/config"
	"github.com/dmitrijs2005/diycloud/internal/ledger"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/allocations"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/sessions"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/users"
	"github.com/dmitrijs2005/diycloud/internal/logging"
)

type Server struct {
	address     string
	logger      logging.Logger
	store       *ledger.Store
	users       users.Repository
	allocations allocations.Repository
	sessions    sessions.Repository
	jwtSecret   []byte
	cfg         *config.Config
}

func NewServer(cfg *config.Config, l logging.Logger, store *ledger.Store,
	ur users.Repository, ar allocations.Repository, sr sessions.Repository) (*Server, error) {
	return &Server{
		address:     cfg.EndpointAddrHTTP,
		logger:      l.With("module", "http_server"),
		store:       store,
		users:       ur,
		allocations: ar,
		sessions:    sr,
		jwtSecret:   []byte(cfg.SecretKey),
		cfg:         cfg,
	}, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("POST /api/auth/logout", s.requireAuth(http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET /api/users", s.requireAuth(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("GET /api/users/{id}", s.requireAuth(http.HandlerFunc(s.handleGetUser)))
	mux.Handle("GET /api/resources/{id}", s.requireAuth(http.HandlerFunc(s.handleGetResources)))

	return mux
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.routes()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

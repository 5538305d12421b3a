// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package httpapi serves the storefront JSON API.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront/storefront/internal/address"
	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/internal/pricing"
)

// Server defaults.
const (
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 15 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultMaxBodyBytes   = 1 << 20
	DefaultMaxUploadBytes = 10 << 20
)

// Config configures the API server.
type Config struct {
	Addr           string          `koanf:"addr"`
	ReadTimeout    time.Duration   `koanf:"read_timeout"`
	WriteTimeout   time.Duration   `koanf:"write_timeout"`
	IdleTimeout    time.Duration   `koanf:"idle_timeout"`
	MaxBodyBytes   int64           `koanf:"max_body_bytes"`
	MaxUploadBytes int64           `koanf:"max_upload_bytes"`
	CORSOrigins    []string        `koanf:"cors_origins"`
	TrustProxy     bool            `koanf:"trust_proxy"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return c
}

// Authenticator is the credential surface the API needs.
type Authenticator interface {
	Register(ctx context.Context, kind auth.Kind, email, password string, profile auth.Profile) (*auth.Principal, error)
	Login(ctx context.Context, kind auth.Kind, email, password string) (*auth.Principal, string, error)
	VerifyToken(token string) (*auth.Claims, error)
	Profile(ctx context.Context, kind auth.Kind, id ulid.ULID) (*auth.Principal, error)
}

// PasswordResetter runs the emailed-code reset flow.
type PasswordResetter interface {
	RequestReset(ctx context.Context, kind auth.Kind, email string) error
	VerifyCode(ctx context.Context, kind auth.Kind, email, submitted string) (string, error)
	CompleteReset(ctx context.Context, kind auth.Kind, email, ticket, newPassword string) error
}

// Catalog manages products.
type Catalog interface {
	List(ctx context.Context, filter catalog.Filter) ([]*catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id ulid.ULID) (*catalog.Product, error)
	Create(ctx context.Context, d catalog.Details, img *catalog.Image) (*catalog.Product, error)
	Update(ctx context.Context, id ulid.ULID, d catalog.Details, img *catalog.Image) (*catalog.Product, error)
	Delete(ctx context.Context, id ulid.ULID) error
}

// AddressBook manages user addresses.
type AddressBook interface {
	Add(ctx context.Context, userID ulid.ULID, name, details string) (*address.Address, error)
	List(ctx context.Context, userID ulid.ULID) ([]*address.Address, error)
}

// Pricer runs price and delivery calculations.
type Pricer interface {
	Quote(ctx context.Context, productType, location string) (*pricing.Quote, error)
	Delivery(ctx context.Context, region string, distanceKM, weightKG *float64) (*pricing.Delivery, error)
	ListDeliveries(ctx context.Context, limit int) ([]*pricing.Delivery, error)
}

// Deps are the services behind the API. Auth and Resets are required.
type Deps struct {
	Auth      Authenticator
	Resets    PasswordResetter
	Catalog   Catalog
	Addresses AddressBook
	Pricing   Pricer
	// Uploads serves stored images under /uploads/ when images are kept in
	// process. May be nil.
	Uploads http.Handler

	Logger   *slog.Logger
	Observer RequestObserver
	// Registerer receives the rate limiter gauge. May be nil.
	Registerer prometheus.Registerer
}

// Server is the storefront HTTP API.
type Server struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	handler http.Handler
	limiter *RateLimiter

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router. Call Close to release the rate limiter even
// if the server was never started.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, oops.Errorf("authenticator is required")
	}
	if deps.Resets == nil {
		return nil, oops.Errorf("password resetter is required")
	}

	s := &Server{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	cors, err := newCORSPolicy(s.cfg.CORSOrigins)
	if err != nil {
		return nil, err
	}
	if s.cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(s.cfg.RateLimit, deps.Registerer)
	}

	s.handler = otelhttp.NewHandler(s.routes(cors), "storefront-api")
	return s, nil
}

func (s *Server) routes(cors *corsPolicy) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(s.logger, s.deps.Observer))
	r.Use(recoverer(s.logger))
	r.Use(cors.middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "Method not allowed"})
	})

	// Credential and reset routes, mirrored per principal kind.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin(auth.KindUser))
		r.Post("/admin/login", s.handleLogin(auth.KindAdmin))

		r.Post("/forgot-password", s.handleForgotPassword(auth.KindUser))
		r.Post("/verify-otp", s.handleVerifyOTP(auth.KindUser))
		r.Post("/reset-password", s.handleResetPassword(auth.KindUser))
		r.Post("/admin/forgot-password", s.handleForgotPassword(auth.KindAdmin))
		r.Post("/admin/verify-otp", s.handleVerifyOTP(auth.KindAdmin))
		r.Post("/admin/reset-password", s.handleResetPassword(auth.KindAdmin))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireKind(auth.KindUser))
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
		r.Get("/api/user", s.handleProfile)
		if s.deps.Addresses != nil {
			r.Get("/api/addresses", s.handleListAddresses)
			r.Post("/api/addresses", s.handleAddAddress)
		}
	})

	if s.deps.Catalog != nil {
		r.Get("/products", s.handleListProducts)
		r.Get("/api/products", s.handleListProducts)
		r.Get("/user/products", s.handleListProducts)
		r.Get("/categories", s.handleListCategories)
		r.Get("/user/categories", s.handleListCategories)
		r.Get("/product/{id}", s.handleGetProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.requireKind(auth.KindAdmin))
			r.Use(middleware.RequestSize(s.cfg.MaxUploadBytes))
			r.Post("/add", s.handleAddProduct)
			r.Put("/update/{id}", s.handleUpdateProduct)
			r.Delete("/delete/{id}", s.handleDeleteProduct)
		})
	}

	if s.deps.Uploads != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", s.deps.Uploads))
	}

	if s.deps.Pricing != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
			r.Post("/calculate-price", s.handleCalculatePrice)
			r.Post("/calculate", s.handleCalculateDelivery)
			r.Get("/data", s.handleListDeliveries)
		})
	}

	return r
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving on the configured address.
// It returns an error channel that receives any error from the HTTP server
// after it starts. The channel is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("API_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server and releases the rate limiter.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		s.Close()
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}
	s.Close()

	s.logger.Info("api server stopped")
	return nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// Addr returns the address the server is listening on, or "" if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

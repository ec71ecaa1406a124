package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskgate/crypto"
	"riskgate/services/riskd/middleware"
)

const serviceName = "riskd"

// Config captures the HTTP surface settings.
type Config struct {
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimit
	Logger    *slog.Logger
}

// Server exposes a Node over HTTP. Requests touching state run one at a time;
// a handler's staged writes are committed when it succeeds and discarded
// otherwise.
type Server struct {
	node   *Node
	mu     sync.Mutex
	logger *slog.Logger
	router chi.Router
}

// New constructs the router with authentication, rate limiting and
// observability middleware.
func New(node *Node, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{node: node, logger: logger.With("component", "server")}

	auth := middleware.NewAuthenticator(cfg.Auth, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	obs := middleware.NewObservability(serviceName, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(obs.Middleware(serviceName))
		v1.Use(limiter.Middleware(serviceName))

		v1.Get("/markets", s.handleListMarkets)
		v1.Get("/markets/{asset}", s.handleGetMarket)
		v1.Get("/params", s.handleParams)
		v1.Get("/prices/{asset}", s.handlePrice)
		v1.Get("/accounts/{account}/assets", s.handleAssetsIn)
		v1.Get("/accounts/{account}/markets/{asset}", s.handleMembership)
		v1.Get("/accounts/{account}/liquidity", s.handleLiquidity)
		v1.Post("/accounts/{account}/liquidity/hypothetical", s.handleHypothetical)
		v1.Get("/assets/{asset}/accounts/{account}", s.handlePosition)
		v1.Post("/liquidation/seize-tokens", s.handleSeizeTokens)
		v1.Post("/check/{action}", s.handleCheck)

		v1.Group(func(authed chi.Router) {
			authed.Use(auth.Middleware)
			authed.Post("/markets/enter", s.handleEnterMarkets)
			authed.Post("/markets/exit", s.handleExitMarket)
			authed.Post("/assets/{asset}/{operation}", s.handleAssetOperation)
			authed.Post("/oracle/prices", s.handlePostPrice)
			authed.Route("/admin", s.adminRoutes)
		})
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// query runs fn against the current state and drops anything it staged.
func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	s.mu.Lock()
	result, err := fn()
	s.node.State.Discard()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// mutate runs fn and commits its staged writes on success.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	s.mu.Lock()
	result, err := fn()
	if err != nil {
		s.node.State.Discard()
	} else if commitErr := s.node.State.Commit(); commitErr != nil {
		s.node.State.Discard()
		err = fmt.Errorf("commit: %w", commitErr)
	}
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := toStatus(err)
	attrs := []any{
		slog.String("route", r.URL.Path),
		slog.Int("status", status),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Debug("request rejected", attrs...)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseAddress(value string) (crypto.Address, error) {
	addr, _, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: address %q: %v", errBadRequest, value, err)
	}
	return addr, nil
}

func parseOptionalAddress(value string) (crypto.Address, error) {
	if value == "" {
		return crypto.Address{}, nil
	}
	return parseAddress(value)
}

func parseAmount(value string) (*uint256.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: amount required", errBadRequest)
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", errBadRequest, value, err)
	}
	return amount, nil
}

func parseOptionalAmount(value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	return parseAmount(value)
}

// caller returns the authenticated identity. Routes using it sit behind the
// auth middleware.
func caller(r *http.Request) crypto.Address {
	addr, _ := middleware.CallerFromContext(r.Context())
	return addr
}

// assetParam resolves the {asset} route parameter, accepting either a bech32
// address or a hosted market symbol.
func (s *Server) assetParam(r *http.Request) (crypto.Address, error) {
	return s.resolveAsset(chi.URLParam(r, "asset"))
}

func accountParam(r *http.Request) (crypto.Address, error) {
	return parseAddress(chi.URLParam(r, "account"))
}

// Package api exposes the poll service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/service"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
	shutdownTimeout   = 10 * time.Second
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Service *service.Service
	// RequireSignatures makes the node check that every account header is
	// backed by a signature of the request by that account.
	RequireSignatures bool
}

// API type represents the API HTTP server.
type API struct {
	router            *chi.Mux
	svc               *service.Service
	addr              string
	requireSignatures bool
}

// New creates a new API instance with the given configuration. The server
// is started by ListenAndServe.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Service == nil {
		return nil, fmt.Errorf("missing service instance")
	}
	a := &API{
		svc:               conf.Service,
		addr:              net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)),
		requireSignatures: conf.RequireSignatures,
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// ListenAndServe serves the API until ctx is done, then shuts the server
// down gracefully.
func (a *API) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infow("starting API server", "addr", a.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Infow("API server stopped")
	return nil
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", HeightEndpoint, "method", "GET")
	a.router.Get(HeightEndpoint, a.height)
	// coordinator endpoints
	log.Infow("register handler", "endpoint", CoordinatorsEndpoint, "method", "POST")
	a.router.Post(CoordinatorsEndpoint, a.registerCoordinator)
	log.Infow("register handler", "endpoint", CoordinatorEndpoint, "method", "GET")
	a.router.Get(CoordinatorEndpoint, a.coordinator)
	log.Infow("register handler", "endpoint", CoordinatorKeysEndpoint, "method", "PUT")
	a.router.Put(CoordinatorKeysEndpoint, a.rotateKeys)
	// poll endpoints
	log.Infow("register handler", "endpoint", PollsEndpoint, "method", "GET")
	a.router.Get(PollsEndpoint, a.polls)
	log.Infow("register handler", "endpoint", PollsEndpoint, "method", "POST")
	a.router.Post(PollsEndpoint, a.newPoll)
	log.Infow("register handler", "endpoint", PollEndpoint, "method", "GET")
	a.router.Get(PollEndpoint, a.poll)
	log.Infow("register handler", "endpoint", RegistrationsEndpoint, "method", "POST")
	a.router.Post(RegistrationsEndpoint, a.registerParticipant)
	log.Infow("register handler", "endpoint", InteractionsEndpoint, "method", "POST")
	a.router.Post(InteractionsEndpoint, a.submitInteraction)
	log.Infow("register handler", "endpoint", MergeEndpoint, "method", "POST")
	a.router.Post(MergeEndpoint, a.merge)
	log.Infow("register handler", "endpoint", InputsEndpoint, "method", "GET", "parameters", CommitmentQueryParam)
	a.router.Get(InputsEndpoint, a.publicInputs)
	log.Infow("register handler", "endpoint", ProofsEndpoint, "method", "POST")
	a.router.Post(ProofsEndpoint, a.submitProof)
	log.Infow("register handler", "endpoint", OutcomeEndpoint, "method", "POST")
	a.router.Post(OutcomeEndpoint, a.submitOutcome)
	log.Infow("register handler", "endpoint", NullifyEndpoint, "method", "POST")
	a.router.Post(NullifyEndpoint, a.nullify)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", AccountHeader, SignatureHeader, TimestampHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	if a.requireSignatures {
		a.router.Use(signatureMiddleware(time.Now))
	}
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

// height returns the current block height.
//
// GET /height
func (a *API) height(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &HeightResponse{Height: a.svc.Height()})
}

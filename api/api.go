package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/ballot-relay/log"
	stg "github.com/vocdoni/ballot-relay/storage"
)

// DefaultTxTimeout is the time the relay waits for a transaction to be
// mined before failing the request.
const DefaultTxTimeout = 2 * time.Minute

const (
	// contractRequestLimit is the number of contract requests served at once.
	contractRequestLimit = 100
	// contractBacklogLimit is the number of contract requests waiting for a
	// slot before new ones are refused.
	contractBacklogLimit = 1000
)

// Contracts is the voting contract as seen by the relay. Both transactions
// return as soon as they are sent; WaitTx blocks until they are mined.
type Contracts interface {
	SubmitBallot(ctx context.Context, vote [32]byte, nullifierHash, groupID *big.Int, proof [8]*big.Int) (common.Hash, error)
	AddMember(ctx context.Context, groupID, identityCommitment *big.Int) (common.Hash, error)
	WaitTx(ctx context.Context, hash common.Hash) error
}

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage and the contract instances. If
// TLSCert and TLSKey are set, the server is started with TLS.
type APIConfig struct {
	Host      string
	Port      int
	Storage   *stg.Storage
	Contracts Contracts
	TxTimeout time.Duration
	TLSCert   string
	TLSKey    string
}

// API type represents the relay HTTP server.
type API struct {
	router    *chi.Mux
	server    *http.Server
	storage   *stg.Storage
	contracts Contracts
	txTimeout time.Duration
	tlsCert   string
	tlsKey    string
}

// New creates a new API instance with the given configuration. The server
// is not listening until Start is called.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Contracts == nil {
		return nil, fmt.Errorf("missing contracts instance")
	}
	if (conf.TLSCert == "") != (conf.TLSKey == "") {
		return nil, fmt.Errorf("both TLS certificate and key are required")
	}
	a := &API{
		storage:   conf.Storage,
		contracts: conf.Contracts,
		txTimeout: conf.TxTimeout,
		tlsCert:   conf.TLSCert,
		tlsKey:    conf.TLSKey,
	}
	if a.txTimeout <= 0 {
		a.txTimeout = DefaultTxTimeout
	}

	// Initialize router
	a.initRouter()
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Start starts the HTTP server in the background. Errors other than a
// graceful shutdown are fatal.
func (a *API) Start() {
	go func() {
		var err error
		if a.tlsCert != "" {
			log.Infow("starting API server", "addr", a.server.Addr, "tls", true)
			err = a.server.ListenAndServeTLS(a.tlsCert, a.tlsKey)
		} else {
			log.Infow("starting API server", "addr", a.server.Addr, "tls", false)
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Get(MetricsEndpoint, a.writeMetrics)
	log.Infow("register handler", "endpoint", GetVoteEndpoint, "method", "GET")
	a.router.Get(GetVoteEndpoint, a.vote)
	// contract requests hold their slot until the transaction is mined, so
	// they are throttled apart from the store lookups
	a.router.Group(func(r chi.Router) {
		r.Use(middleware.ThrottleBacklog(contractRequestLimit, contractBacklogLimit, a.txTimeout+15*time.Second))
		log.Infow("register handler", "endpoint", PostReviewEndpoint, "method", "POST")
		r.Post(PostReviewEndpoint, a.submitBallot)
		log.Infow("register handler", "endpoint", AddMemberEndpoint, "method", "POST")
		r.Post(AddMemberEndpoint, a.addMember)
	})
	log.Infow("register handler", "endpoint", SetGroupPubKeyEndpoint, "method", "POST")
	a.router.Post(SetGroupPubKeyEndpoint, a.publishGroupPublicKey)
	log.Infow("register handler", "endpoint", GetGroupPubKeyEndpoint, "method", "GET")
	a.router.Get(GetGroupPubKeyEndpoint, a.groupPublicKey)
	log.Infow("register handler", "endpoint", SetGroupPrivKeyEndpoint, "method", "POST")
	a.router.Post(SetGroupPrivKeyEndpoint, a.revealGroupPrivateKey)
	log.Infow("register handler", "endpoint", GetGroupPrivKeyEndpoint, "method", "GET")
	a.router.Get(GetGroupPrivKeyEndpoint, a.groupPrivateKey)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type", "X-CSRF-Token",
			VoteHeader, GroupIDHeader,
		},
		ExposedHeaders:   []string{VoteHeader, PubKeyHeader, PrivKeyHeader},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	// contract calls wait for the transaction, so the request timeout must
	// be longer than the transaction timeout
	a.router.Use(middleware.Timeout(a.txTimeout + 15*time.Second))

	// Register the API handlers
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.With(r.URL.Path).Write(w)
	})
	a.registerHandlers()
}

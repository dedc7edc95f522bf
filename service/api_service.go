package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/ballot-relay/api"
	"github.com/vocdoni/ballot-relay/log"
	"github.com/vocdoni/ballot-relay/storage"
)

// shutdownTimeout bounds the time Stop waits for the ongoing requests.
const shutdownTimeout = 10 * time.Second

// APIConfig holds the network settings of the relay API service.
type APIConfig struct {
	Host      string
	Port      int
	TLSCert   string
	TLSKey    string
	TxTimeout time.Duration
}

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage   *storage.Storage
	contracts api.Contracts
	conf      APIConfig
	api       *api.API
	mu        sync.Mutex
	cancel    context.CancelFunc
}

// NewAPI creates a new APIService instance. The storage is owned by the
// caller, it is not closed when the service stops.
func NewAPI(storage *storage.Storage, contracts api.Contracts, conf APIConfig) *APIService {
	return &APIService{
		storage:   storage,
		contracts: contracts,
		conf:      conf,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start. The server is stopped when
// ctx is done.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:      as.conf.Host,
		Port:      as.conf.Port,
		Storage:   as.storage,
		Contracts: as.contracts,
		TxTimeout: as.conf.TxTimeout,
		TLSCert:   as.conf.TLSCert,
		TLSKey:    as.conf.TLSKey,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api.Start()

	var svcCtx context.Context
	svcCtx, as.cancel = context.WithCancel(ctx)
	go func(a *api.API) {
		<-svcCtx.Done()
		shutdown(a)
	}(as.api)
	return nil
}

// Stop halts the API server. It returns once the listener is closed.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
		shutdown(as.api)
	}
}

func shutdown(a *api.API) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		log.Warnw("API server shutdown", "error", err)
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.conf.Host, as.conf.Port
}

package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/zkvote/auth"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/session"
	stg "github.com/vocdoni/zkvote/storage"
	"github.com/vocdoni/zkvote/voting"
)

const (
	// CookieName is the cookie that carries the verification credential.
	CookieName = "zk-vote-verified"
	// SessionQueryParam is the query parameter of the verification callback
	// that correlates it with the browser session.
	SessionQueryParam = "session"
	// DefaultVerifyURL is where the access gate sends unverified users.
	DefaultVerifyURL = "/verify"
	// DefaultRequestTimeout bounds the handling of the read-only requests.
	DefaultRequestTimeout = 45 * time.Second

	// ledgerOpTimeout bounds the external calls of a ledger write or a tally
	// reveal. They are detached from the client request, so a client going
	// away does not cancel a dispatched ledger write, and their routes are
	// not subject to the request timeout.
	ledgerOpTimeout = 2 * time.Minute
)

// DefaultGatedPaths are the path prefixes protected by the access gate.
var DefaultGatedPaths = []string{VoteEndpoint}

// Ledger is the voting contract surface used by the API.
type Ledger interface {
	voting.Ledger
	ProposalCount(ctx context.Context) (uint64, error)
	ProposalOptions(ctx context.Context, id *big.Int) ([]string, error)
	HasVoted(ctx context.Context, id *big.Int, voter common.Address) (bool, error)
	CreateProposal(ctx context.Context, title, description string, options []string, deadline time.Time) (common.Hash, error)
	InitiateTally(ctx context.Context, id *big.Int) (common.Hash, error)
	WaitTx(ctx context.Context, txHash common.Hash) error
}

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host string
	Port int

	Storage   *stg.Storage
	Sessions  session.Store
	Issuer    *auth.Issuer
	Verifier  identity.Verifier
	Ledger    Ledger
	Encryptor voting.Encryptor

	// VerifyURL is the redirect target of the access gate.
	VerifyURL string
	// GatedPaths are the path prefixes that require a valid credential.
	GatedPaths []string
	// Development disables the Secure flag of the credential cookie so it
	// works over plain http on localhost.
	Development bool
	// RequestTimeout bounds the read-only requests. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// API type represents the API HTTP server of the node.
type API struct {
	router    *chi.Mux
	server    *http.Server
	addr      net.Addr
	host      string
	port      int
	storage   *stg.Storage
	sessions  session.Store
	issuer    *auth.Issuer
	verifier  identity.Verifier
	ledger    Ledger
	submitter *voting.Submitter
	revealer  *voting.Revealer
	verifyURL string
	gated     []string
	secure    bool
	timeout   time.Duration
}

// New creates a new API instance with the given configuration and builds its
// router. The HTTP server is started by Start.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	switch {
	case conf.Storage == nil:
		return nil, fmt.Errorf("missing storage instance")
	case conf.Sessions == nil:
		return nil, fmt.Errorf("missing session store")
	case conf.Issuer == nil:
		return nil, fmt.Errorf("missing credential issuer")
	case conf.Verifier == nil:
		return nil, fmt.Errorf("missing identity verifier")
	case conf.Ledger == nil:
		return nil, fmt.Errorf("missing ledger")
	case conf.Encryptor == nil:
		return nil, fmt.Errorf("missing ballot encryptor")
	}
	a := &API{
		host:      conf.Host,
		port:      conf.Port,
		storage:   conf.Storage,
		sessions:  conf.Sessions,
		issuer:    conf.Issuer,
		verifier:  conf.Verifier,
		ledger:    conf.Ledger,
		submitter: voting.NewSubmitter(conf.Ledger, conf.Encryptor, conf.Storage),
		revealer:  voting.NewRevealer(conf.Ledger, conf.Encryptor, conf.Storage),
		verifyURL: conf.VerifyURL,
		gated:     conf.GatedPaths,
		secure:    !conf.Development,
		timeout:   conf.RequestTimeout,
	}
	if a.timeout <= 0 {
		a.timeout = DefaultRequestTimeout
	}
	if a.verifyURL == "" {
		a.verifyURL = DefaultVerifyURL
	}
	if len(a.gated) == 0 {
		a.gated = DefaultGatedPaths
	}
	a.initRouter()
	return a, nil
}

// Start listens on the configured address and serves the API in background.
func (a *API) Start() error {
	addr := net.JoinHostPort(a.host, fmt.Sprintf("%d", a.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	a.addr = ln.Addr()
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Addr returns the address the server listens on, once started.
func (a *API) Addr() net.Addr {
	return a.addr
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(a.timeout))

		log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
		r.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			httpWriteOK(w)
		})
		// identity handshake
		log.Infow("register handler", "endpoint", VerifyEndpoint, "method", "POST")
		r.Post(VerifyEndpoint, a.verify)
		log.Infow("register handler", "endpoint", ClaimEndpoint, "method", "POST")
		r.Post(ClaimEndpoint, a.claim)

		// voting area reads, behind the access gate
		log.Infow("register handler", "endpoint", ProposalsEndpoint, "method", "GET")
		r.Get(ProposalsEndpoint, a.proposals)
		log.Infow("register handler", "endpoint", ProposalEndpoint, "method", "GET")
		r.Get(ProposalEndpoint, a.proposal)
		log.Infow("register handler", "endpoint", VotedEndpoint, "method", "GET")
		r.Get(VotedEndpoint, a.voted)
		log.Infow("register handler", "endpoint", ReceiptsEndpoint, "method", "GET")
		r.Get(ReceiptsEndpoint, a.receipts)
	})

	// ledger writes and reveals, bounded by ledgerOpTimeout
	a.router.Group(func(r chi.Router) {
		log.Infow("register handler", "endpoint", ProposalsEndpoint, "method", "POST")
		r.Post(ProposalsEndpoint, a.newProposal)
		log.Infow("register handler", "endpoint", BallotsEndpoint, "method", "POST")
		r.Post(BallotsEndpoint, a.castVote)
		log.Infow("register handler", "endpoint", TallyEndpoint, "method", "POST")
		r.Post(TallyEndpoint, a.initiateTally)
		log.Infow("register handler", "endpoint", ResultsEndpoint, "method", "GET")
		r.Get(ResultsEndpoint, a.results)
	})
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(AccessGate(a.issuer, a.verifyURL, a.gated))

	// Register the API handlers
	a.registerHandlers()
}

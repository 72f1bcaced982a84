package routes

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"devtoken/core/events"
	"devtoken/gateway/middleware"
	"devtoken/indexer"
	"devtoken/native/staking"
	"devtoken/native/token"
)

// Route group names double as rate-limit keys and metric labels.
const (
	GroupStaking = "staking"
	GroupToken   = "token"
	GroupAdmin   = "admin"
	GroupEvents  = "events"
)

// Groups lists every route group served by the gateway.
var Groups = []string{GroupStaking, GroupToken, GroupAdmin, GroupEvents}

// Ledger is the transaction surface served over HTTP. *core.Node implements it.
type Ledger interface {
	Stake(ctx context.Context, caller [20]byte, amount *big.Int) (*staking.Receipt, error)
	Withdraw(ctx context.Context, caller [20]byte, amount *big.Int, slot uint64) (*staking.Withdrawal, error)
	HasStake(ctx context.Context, addr [20]byte) (*staking.Summary, error)
	RegistryIndexOf(ctx context.Context, addr [20]byte) (uint64, error)
	Balance(ctx context.Context, addr [20]byte) (*big.Int, error)
	TokenInfo(ctx context.Context) (*token.Info, error)
	Allowance(ctx context.Context, owner, spender [20]byte) (*big.Int, error)
	Transfer(ctx context.Context, from, to [20]byte, amount *big.Int) error
	Approve(ctx context.Context, owner, spender [20]byte, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, from, to [20]byte, amount *big.Int) error
	Mint(ctx context.Context, caller, to [20]byte, amount *big.Int) error
	Burn(ctx context.Context, caller, from [20]byte, amount *big.Int) error
	TransferOwnership(ctx context.Context, caller, newOwner [20]byte) error
	RenounceOwnership(ctx context.Context, caller [20]byte) error
}

// History serves indexed account events. *indexer.Indexer implements it.
type History interface {
	History(ctx context.Context, account string, limit int) ([]indexer.Entry, error)
}

type Config struct {
	Ledger        Ledger
	History       History
	Feed          *events.Feed
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("routes: ledger is required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("routes: authenticator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	stakingH := &stakingRoutes{ledger: cfg.Ledger, logger: logger}
	tokenH := &tokenRoutes{ledger: cfg.Ledger, logger: logger}
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	eventsH := &eventRoutes{history: cfg.History, feed: cfg.Feed, origins: origins, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	auth := cfg.Authenticator
	group := func(api chi.Router, name string, mount func(chi.Router)) {
		api.Group(func(g chi.Router) {
			if cfg.Observability != nil {
				g.Use(cfg.Observability.Middleware(name))
			}
			if cfg.RateLimiter != nil {
				g.Use(cfg.RateLimiter.Middleware(name))
			}
			mount(g)
		})
	}

	r.Route("/v1", func(api chi.Router) {
		group(api, GroupStaking, func(g chi.Router) {
			g.With(auth.Middleware()).Post("/stake", stakingH.stake)
			g.With(auth.Middleware()).Post("/withdraw", stakingH.withdraw)
			g.Get("/stakes/{address}", stakingH.stakes)
			g.Get("/stakeholders/{address}", stakingH.stakeholder)
		})
		group(api, GroupToken, func(g chi.Router) {
			g.Get("/token", tokenH.info)
			g.Get("/accounts/{address}/balance", tokenH.balance)
			g.Get("/allowance/{owner}/{spender}", tokenH.allowance)
			g.With(auth.Middleware()).Post("/transfer", tokenH.transfer)
			g.With(auth.Middleware()).Post("/approve", tokenH.approve)
			g.With(auth.Middleware()).Post("/transferFrom", tokenH.transferFrom)
		})
		group(api, GroupAdmin, func(g chi.Router) {
			g.Use(auth.Middleware(middleware.ScopeAdmin))
			g.Post("/admin/mint", tokenH.mint)
			g.Post("/admin/burn", tokenH.burn)
			g.Post("/admin/owner", tokenH.transferOwnership)
			g.Post("/admin/renounce", tokenH.renounceOwnership)
		})
		group(api, GroupEvents, func(g chi.Router) {
			g.Get("/events/stream", eventsH.stream)
			g.Get("/events/{address}", eventsH.list)
		})
	})

	return r, nil
}

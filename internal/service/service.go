package service

//go:generate mockgen -destination=mock/service.go -package=mock . Service

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/config"
	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/infra/wallet"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/state"
	"github.com/fleshka4/dex-aggregator/internal/swap"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// Service represents interface for business logic.
type Service interface {
	Identity() wallet.Identity
	Tokens() []token.Token
	Pools() []token.Pool

	Prices(ctx context.Context) ([]dto.Price, error)
	Quote(ctx context.Context, req dto.QuoteRequest) (*quote.Quote, error)
	BuildIntent(ctx context.Context, req dto.IntentRequest) (*swap.Intent, *quote.Quote, error)
	Swap(ctx context.Context, in *swap.Intent, obs executor.Observer) (*executor.Result, error)

	Balances(ctx context.Context) ([]dto.TokenBalance, error)
	Refresh(ctx context.Context) error

	Position(ctx context.Context, poolID string) (*dto.Position, error)
	AddLiquidity(ctx context.Context, req dto.AddLiquidityRequest, obs executor.Observer) (*executor.Result, error)
	RemoveLiquidity(ctx context.Context, req dto.RemoveLiquidityRequest, obs executor.Observer) (*executor.Result, error)

	SwitchChain(ctx context.Context, chainID int64) error
}

// Session is one wallet session: it owns the state store and follows the
// wallet's identity changes between Start and Close.
type Session struct {
	reg     *token.Registry
	client  chain.Client
	wallet  wallet.Wallet
	store   *state.Store
	exec    *executor.Executor
	builder *swap.Builder
	log     *zap.Logger

	chainID     int64
	slippageBps int

	mu    sync.Mutex
	sub   event.Subscription
	watch event.Subscription
	done  chan struct{}
}

// watchBackoff caps the wait between attempts to re-establish the pool watch.
const watchBackoff = time.Minute

// New creates a Session bound to the wallet's current identity.
func New(cfg *config.Config, reg *token.Registry, client chain.Client, w wallet.Wallet, log *zap.Logger) *Session {
	store := state.NewStore(client, reg, w.Identity(), log.Named("state"))

	return &Session{
		reg:         reg,
		client:      client,
		wallet:      w,
		store:       store,
		exec:        executor.New(client, store, log.Named("executor")),
		builder:     swap.NewBuilder(store, cfg.Deadline),
		log:         log,
		chainID:     cfg.ChainID,
		slippageBps: cfg.SlippageBps,
	}
}

// Start subscribes to the wallet's identity changes and to the pools'
// reserve-changing events. Every identity change drops the state of the
// previous identity, every pool event invalidates that pool's snapshot.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return errors.New("session already started")
	}

	ch := make(chan wallet.Identity, 8)
	s.sub = s.wallet.SubscribeIdentity(ch)
	s.done = make(chan struct{})
	s.store.SwitchIdentity(s.wallet.Identity())

	var poolCh chan common.Address
	if pools := s.reg.Pools(); len(pools) > 0 {
		addrs := make([]common.Address, 0, len(pools))
		for _, p := range pools {
			addrs = append(addrs, p.Address)
		}
		poolCh = make(chan common.Address, 16)
		s.watch = event.ResubscribeErr(watchBackoff, func(ctx context.Context, lastErr error) (event.Subscription, error) {
			if lastErr != nil {
				s.log.Warn("pool watch dropped", zap.Error(lastErr))
			}
			sub, err := s.client.WatchPools(ctx, addrs, poolCh)
			if err != nil {
				s.log.Warn("pool watch failed", zap.Error(err))
			}
			return sub, err
		})
	}

	go s.follow(ch, poolCh, s.sub, s.done)

	return nil
}

func (s *Session) follow(ch <-chan wallet.Identity, poolCh <-chan common.Address, sub event.Subscription, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case id := <-ch:
			s.store.SwitchIdentity(id)
		case addr := <-poolCh:
			s.poolChanged(addr)
		case err, ok := <-sub.Err():
			if ok && err != nil {
				s.log.Error("identity subscription failed", zap.Error(err))
			}
			return
		}
	}
}

// poolChanged drops the snapshot of the pool at addr. Quotes and intents
// built on it become stale.
func (s *Session) poolChanged(addr common.Address) {
	p, ok := s.reg.PoolByAddress(addr)
	if !ok {
		return
	}
	s.store.Invalidate(common.Address{}, p.ID)
	s.log.Debug("pool changed on chain", zap.String("pool", p.ID), zap.Uint64("version", s.store.LatestVersion(p.ID)))
}

// Close stops the pool watch, deregisters the identity subscription and
// waits for the follower to exit.
func (s *Session) Close() {
	s.mu.Lock()
	sub, watch, done := s.sub, s.watch, s.done
	s.sub, s.watch, s.done = nil, nil, nil
	s.mu.Unlock()

	if sub == nil {
		return
	}
	if watch != nil {
		watch.Unsubscribe()
	}
	sub.Unsubscribe()
	<-done
}

func (s *Session) Identity() wallet.Identity {
	return s.store.Current().Identity()
}

func (s *Session) Tokens() []token.Token {
	return s.reg.Tokens()
}

func (s *Session) Pools() []token.Pool {
	return s.reg.Pools()
}

// SwitchChain asks the wallet to move to chainID and drops the state of the
// previous chain.
func (s *Session) SwitchChain(ctx context.Context, chainID int64) error {
	if err := s.wallet.SwitchChain(ctx, chainID); err != nil {
		return errors.Wrap(err, "wallet.SwitchChain")
	}
	s.store.SwitchIdentity(s.wallet.Identity())
	return nil
}

// ready checks the session can reach its contracts: the chain client is
// bound to one chain.
func (s *Session) ready() (wallet.Identity, error) {
	id := s.Identity()
	if id.ChainID != s.chainID {
		return id, errors.Wrapf(apperrors.ErrUnsupportedChain, "contracts are deployed on chain %d, wallet is on %d", s.chainID, id.ChainID)
	}
	return id, nil
}

// account is ready plus a connected account.
func (s *Session) account() (wallet.Identity, error) {
	id, err := s.ready()
	if err != nil {
		return id, err
	}
	if !id.Connected() {
		return id, errors.Wrap(apperrors.ErrNoAccount, "connect a wallet account first")
	}
	return id, nil
}

package state

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/infra/wallet"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// Fetcher reads balances and reserves from chain.
type Fetcher interface {
	BalanceOf(ctx context.Context, tokenAddr, account common.Address) (*big.Int, error)
	GetReserves(ctx context.Context, pool common.Address) (chain.Reserves, error)
}

type commitResult int

const (
	committed commitResult = iota
	epochChanged
	invalidated
)

// Store is the single writer of the session State. Readers load the current
// State without locking.
type Store struct {
	fetch  Fetcher
	tokens []token.Token
	pools  map[string]token.Pool
	log    *zap.Logger
	now    func() time.Time

	cur atomic.Pointer[State]

	// mu serializes transitions and guards seq and inflight.
	mu       sync.Mutex
	seq      uint64
	inflight map[string]int

	group singleflight.Group
}

// NewStore returns a store for the given identity with nothing cached.
func NewStore(fetch Fetcher, reg *token.Registry, id wallet.Identity, log *zap.Logger) *Store {
	s := &Store{
		fetch:    fetch,
		tokens:   reg.Tokens(),
		pools:    make(map[string]token.Pool),
		log:      log,
		now:      time.Now,
		inflight: make(map[string]int),
	}
	for _, p := range reg.Pools() {
		s.pools[p.ID] = p
	}
	s.cur.Store(newState(id, 1))
	return s
}

// Current returns the latest published State.
func (s *Store) Current() *State {
	return s.cur.Load()
}

// Balances returns the cached balances of account.
func (s *Store) Balances(account common.Address) (BalanceSnapshot, bool) {
	return s.Current().Balances(account)
}

// Reserves returns the cached reserves of a pool.
func (s *Store) Reserves(poolID string) (quote.PoolReserves, bool) {
	return s.Current().Reserves(poolID)
}

// LatestVersion implements swap.VersionSource.
func (s *Store) LatestVersion(poolID string) uint64 {
	return s.Current().Version(poolID)
}

// update applies fn to a copy of the current state and publishes it when fn
// reports a change. fn runs under s.mu.
func (s *Store) update(fn func(next *State) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.Load().clone()
	if fn(next) {
		s.cur.Store(next)
	}
}

// nextSeq must be called with s.mu held.
func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// SwitchIdentity drops everything cached for the previous identity. Work
// still in flight for it is discarded when it completes.
func (s *Store) SwitchIdentity(id wallet.Identity) bool {
	changed := false
	s.update(func(next *State) bool {
		if next.identity == id {
			return false
		}
		fresh := newState(id, next.epoch+1)
		for poolID := range s.pools {
			fresh.versions[poolID] = s.nextSeq()
		}
		*next = *fresh
		changed = true
		return true
	})
	if changed {
		s.log.Info("session identity switched",
			zap.String("account", id.Account.Hex()),
			zap.Int64("chain_id", id.ChainID),
			zap.Uint64("epoch", s.Current().Epoch()))
	}
	return changed
}

// Invalidate drops the cached balances of account and the snapshots of the
// given pools. Quotes derived from those snapshots become stale.
func (s *Store) Invalidate(account common.Address, poolIDs ...string) {
	s.update(func(next *State) bool {
		if account != (common.Address{}) {
			delete(next.balances, account)
			next.balanceVersions[account] = s.nextSeq()
		}
		for _, id := range poolIDs {
			delete(next.reserves, id)
			next.versions[id] = s.nextSeq()
		}
		return true
	})
}

// SwapCompleted invalidates what a swap by account through poolID changed.
// It fails with apperrors.ErrSessionChanged when the swap was started in an
// earlier epoch, leaving the cache untouched.
func (s *Store) SwapCompleted(epoch uint64, account common.Address, poolID string) error {
	if cur := s.Current().Epoch(); cur != epoch {
		return errors.Wrapf(apperrors.ErrSessionChanged, "swap started in epoch %d, now %d", epoch, cur)
	}
	s.Invalidate(account, poolID)
	return nil
}

// do coalesces concurrent calls with the same key into one fetch. The fetch
// is detached from the caller's cancellation so joined callers are not
// failed by the first one leaving.
func (s *Store) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	s.mu.Lock()
	s.inflight[key]++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight[key]--; s.inflight[key] <= 0 {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
	}()

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for refresh")
	case r := <-ch:
		return r.Val, r.Err
	}
}

func (s *Store) pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inflight[key] > 0
}

func balancesKey(epoch uint64, account common.Address) string {
	return fmt.Sprintf("balances/%d/%s", epoch, account.Hex())
}

// reservesKey includes the pool version so a refresh requested after an
// invalidation never joins one that started before it.
func reservesKey(st *State, poolID string) string {
	return fmt.Sprintf("reserves/%d/%s/%d", st.epoch, poolID, st.versions[poolID])
}

// RefreshBalances fetches every registered token balance of account and
// replaces the cached entry in one step. A failed fetch leaves the cache
// as it was.
func (s *Store) RefreshBalances(ctx context.Context, account common.Address) (BalanceSnapshot, error) {
	st := s.Current()
	if account == (common.Address{}) {
		return BalanceSnapshot{}, errors.Wrap(apperrors.ErrNoAccount, "refresh balances")
	}
	if account != st.identity.Account {
		return BalanceSnapshot{}, errors.Wrapf(apperrors.ErrSessionChanged, "account %s is not the session account", account.Hex())
	}

	epoch := st.epoch
	v, err := s.do(ctx, balancesKey(epoch, account), func(ctx context.Context) (any, error) {
		return s.fetchBalances(ctx, epoch, account)
	})
	if err != nil {
		return BalanceSnapshot{}, err
	}
	return v.(BalanceSnapshot), nil
}

// EnsureBalances returns the cached balances of account, refreshing them
// first when nothing is cached.
func (s *Store) EnsureBalances(ctx context.Context, account common.Address) (BalanceSnapshot, error) {
	if b, ok := s.Balances(account); ok {
		return b, nil
	}
	return s.RefreshBalances(ctx, account)
}

func (s *Store) fetchBalances(ctx context.Context, epoch uint64, account common.Address) (BalanceSnapshot, error) {
	startVersion := s.Current().balanceVersions[account]

	amounts := make([]*big.Int, len(s.tokens))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range s.tokens {
		g.Go(func() error {
			v, err := s.fetch.BalanceOf(gctx, t.Address, account)
			if err != nil {
				return errors.Wrapf(err, "balanceOf %s", t.Symbol)
			}
			amounts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BalanceSnapshot{}, err
	}

	snap := BalanceSnapshot{
		Account: account,
		Amounts: make(map[common.Address]*big.Int, len(s.tokens)),
		AsOf:    s.now(),
	}
	for i, t := range s.tokens {
		snap.Amounts[t.Address] = amounts[i]
	}

	res := committed
	s.update(func(next *State) bool {
		switch {
		case next.epoch != epoch:
			res = epochChanged
			return false
		case next.balanceVersions[account] != startVersion:
			res = invalidated
			return false
		}
		next.balances[account] = snap
		return true
	})

	switch res {
	case epochChanged:
		s.log.Debug("discarding balances of previous session", zap.String("account", account.Hex()), zap.Uint64("epoch", epoch))
		return BalanceSnapshot{}, errors.Wrap(apperrors.ErrSessionChanged, "balances refresh outlived its session")
	case invalidated:
		s.log.Debug("balances invalidated during refresh, not caching", zap.String("account", account.Hex()))
	}

	return snap, nil
}

// RefreshReserves fetches a pool's reserves and commits them as the pool's
// newest snapshot.
func (s *Store) RefreshReserves(ctx context.Context, poolID string) (quote.PoolReserves, error) {
	pool, ok := s.pools[poolID]
	if !ok {
		return quote.PoolReserves{}, errors.Wrapf(apperrors.ErrInvalidArgument, "unknown pool %q", poolID)
	}

	st := s.Current()
	epoch, version := st.epoch, st.versions[poolID]
	v, err := s.do(ctx, reservesKey(st, poolID), func(ctx context.Context) (any, error) {
		return s.fetchReserves(ctx, epoch, version, pool)
	})
	if err != nil {
		return quote.PoolReserves{}, err
	}
	return v.(quote.PoolReserves), nil
}

// AwaitReserves returns the most recently completed snapshot of a pool. It
// waits for a refresh already in flight, and starts one when nothing is
// cached.
func (s *Store) AwaitReserves(ctx context.Context, poolID string) (quote.PoolReserves, error) {
	st := s.Current()
	if !s.pending(reservesKey(st, poolID)) {
		if r, ok := st.Reserves(poolID); ok {
			return r, nil
		}
	}
	return s.RefreshReserves(ctx, poolID)
}

// RefreshPools refreshes every registered pool concurrently.
func (s *Store) RefreshPools(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for id := range s.pools {
		g.Go(func() error {
			_, err := s.RefreshReserves(gctx, id)
			return err
		})
	}
	return g.Wait()
}

func (s *Store) fetchReserves(ctx context.Context, epoch, startVersion uint64, pool token.Pool) (quote.PoolReserves, error) {
	res, err := s.fetch.GetReserves(ctx, pool.Address)
	if err != nil {
		return quote.PoolReserves{}, errors.Wrapf(err, "getReserves %s", pool.ID)
	}

	var a, b *big.Int
	switch {
	case res.Token1 == pool.TokenA.Address && res.Token2 == pool.TokenB.Address:
		a, b = res.Reserve1, res.Reserve2
	case res.Token1 == pool.TokenB.Address && res.Token2 == pool.TokenA.Address:
		a, b = res.Reserve2, res.Reserve1
	default:
		return quote.PoolReserves{}, errors.Wrapf(apperrors.ErrInvalidArgument,
			"pool %s trades %s/%s on chain", pool.ID, res.Token1.Hex(), res.Token2.Hex())
	}

	snap := quote.PoolReserves{
		Pool:     pool,
		ReserveA: a,
		ReserveB: b,
		AsOf:     s.now(),
		Version:  startVersion,
	}

	result := committed
	s.update(func(next *State) bool {
		switch {
		case next.epoch != epoch:
			result = epochChanged
			return false
		case next.versions[pool.ID] != startVersion:
			result = invalidated
			return false
		}
		snap.Version = s.nextSeq()
		next.versions[pool.ID] = snap.Version
		next.reserves[pool.ID] = snap
		return true
	})

	switch result {
	case epochChanged:
		s.log.Debug("discarding reserves of previous session", zap.String("pool", pool.ID), zap.Uint64("epoch", epoch))
		return quote.PoolReserves{}, errors.Wrap(apperrors.ErrSessionChanged, "reserves refresh outlived its session")
	case invalidated:
		// the snapshot keeps its start version, so quotes built on it are stale.
		s.log.Debug("pool invalidated during refresh, not caching", zap.String("pool", pool.ID))
	}

	return snap, nil
}

// Package state holds the session's cached balances and pool reserves as an
// immutable snapshot replaced on every transition.
package state

import (
	"maps"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fleshka4/dex-aggregator/internal/infra/wallet"
	"github.com/fleshka4/dex-aggregator/internal/quote"
)

// BalanceSnapshot is the result of one completed balance refresh.
type BalanceSnapshot struct {
	Account common.Address
	Amounts map[common.Address]*big.Int
	AsOf    time.Time
}

// Of returns a copy of the balance of tokenAddr, zero when unknown.
func (b BalanceSnapshot) Of(tokenAddr common.Address) *big.Int {
	if v, ok := b.Amounts[tokenAddr]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// State is one immutable view of the cache. It is never modified after it
// is published; transitions build a new State.
type State struct {
	identity wallet.Identity
	epoch    uint64
	balances map[common.Address]BalanceSnapshot
	reserves map[string]quote.PoolReserves
	versions map[string]uint64
	// balanceVersions bump on every balance invalidation.
	balanceVersions map[common.Address]uint64
}

func newState(id wallet.Identity, epoch uint64) *State {
	return &State{
		identity:        id,
		epoch:           epoch,
		balances:        make(map[common.Address]BalanceSnapshot),
		reserves:        make(map[string]quote.PoolReserves),
		versions:        make(map[string]uint64),
		balanceVersions: make(map[common.Address]uint64),
	}
}

func (s *State) clone() *State {
	return &State{
		identity:        s.identity,
		epoch:           s.epoch,
		balances:        maps.Clone(s.balances),
		reserves:        maps.Clone(s.reserves),
		versions:        maps.Clone(s.versions),
		balanceVersions: maps.Clone(s.balanceVersions),
	}
}

// Identity is the account and chain the state belongs to.
func (s *State) Identity() wallet.Identity {
	return s.identity
}

// Epoch increments on every identity switch.
func (s *State) Epoch() uint64 {
	return s.epoch
}

// Balances returns the cached balances of account.
func (s *State) Balances(account common.Address) (BalanceSnapshot, bool) {
	b, ok := s.balances[account]
	return b, ok
}

// Reserves returns the cached snapshot of a pool.
func (s *State) Reserves(poolID string) (quote.PoolReserves, bool) {
	r, ok := s.reserves[poolID]
	return r, ok
}

// Version is the latest observed version of a pool: the last committed
// refresh or invalidation, whichever came later.
func (s *State) Version(poolID string) uint64 {
	return s.versions[poolID]
}

// Package swap turns quotes into slippage-bounded, single-use swap intents.
package swap

import (
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/dexmath"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// Intent is an executable swap request. It may be submitted once.
type Intent struct {
	ID           uuid.UUID
	TokenIn      token.Token
	TokenOut     token.Token
	AmountIn     *big.Int
	AmountOut    *big.Int
	MinAmountOut *big.Int
	Recipient    common.Address
	SlippageBps  int
	Pool         token.Pool
	Route        common.Address
	Deadline     time.Time

	// QuoteVersion is the version of the reserve snapshot the intent was
	// built from.
	QuoteVersion uint64

	consumed atomic.Bool
}

// Consume marks the intent as submitted. Only the first call succeeds.
func (i *Intent) Consume() error {
	if !i.consumed.CompareAndSwap(false, true) {
		return errors.Wrapf(apperrors.ErrIntentConsumed, "intent %s", i.ID)
	}
	return nil
}

// Consumed reports whether the intent was already submitted.
func (i *Intent) Consumed() bool {
	return i.consumed.Load()
}

// Expired reports whether the intent's deadline has passed at now.
func (i *Intent) Expired(now time.Time) bool {
	return !i.Deadline.IsZero() && now.After(i.Deadline)
}

// VersionSource reports the latest observed version of a pool's reserves.
type VersionSource interface {
	LatestVersion(poolID string) uint64
}

// Builder creates intents from quotes.
type Builder struct {
	versions VersionSource
	deadline time.Duration
	now      func() time.Time
}

// NewBuilder returns a Builder. A zero deadline produces intents without one.
func NewBuilder(versions VersionSource, deadline time.Duration) *Builder {
	return &Builder{
		versions: versions,
		deadline: deadline,
		now:      time.Now,
	}
}

// Build derives an intent from q. minAmountOut is floor(expected *
// (10000 - slippageBps) / 10000), where expected is the contract-reported
// output when the quote carries one. Build never touches the network.
func (b *Builder) Build(q *quote.Quote, slippageBps int, recipient common.Address) (*Intent, error) {
	if slippageBps < 0 || slippageBps > dexmath.BpsDenominator {
		return nil, errors.Wrapf(apperrors.ErrInvalidSlippage, "%d bps not in [0, %d]", slippageBps, dexmath.BpsDenominator)
	}
	if q == nil || q.AmountIn == nil || q.AmountIn.Sign() <= 0 || q.AmountOut == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidArgument, "incomplete quote")
	}
	if recipient == (common.Address{}) {
		return nil, errors.Wrap(apperrors.ErrInvalidArgument, "zero recipient")
	}

	pool := q.Pool()
	if b.versions != nil {
		if latest := b.versions.LatestVersion(pool.ID); q.DerivedFrom.Version < latest {
			return nil, errors.Wrapf(apperrors.ErrStaleQuote,
				"pool %s quoted at version %d, latest %d", pool.ID, q.DerivedFrom.Version, latest)
		}
	}

	expected := q.Expected()

	intent := &Intent{
		ID:           uuid.New(),
		TokenIn:      q.TokenIn,
		TokenOut:     q.TokenOut,
		AmountIn:     new(big.Int).Set(q.AmountIn),
		AmountOut:    new(big.Int).Set(expected),
		MinAmountOut: dexmath.MinAmountOut(expected, slippageBps),
		Recipient:    recipient,
		SlippageBps:  slippageBps,
		Pool:         pool,
		Route:        q.Route,
		QuoteVersion: q.DerivedFrom.Version,
	}
	if b.deadline > 0 {
		intent.Deadline = b.now().Add(b.deadline)
	}

	return intent, nil
}

// Package quote produces advisory swap quotes from pool reserve snapshots.
package quote

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/dexmath"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// PoolReserves is a snapshot of a pool's reserves. Version orders snapshots
// of the same pool: a larger value was observed later.
type PoolReserves struct {
	Pool     token.Pool
	ReserveA *big.Int
	ReserveB *big.Int
	AsOf     time.Time
	Version  uint64
}

// Oriented returns the reserves as (in, out) for a trade selling tokenIn,
// along with the token received.
func (r PoolReserves) Oriented(tokenIn common.Address) (reserveIn, reserveOut *big.Int, out token.Token, err error) {
	switch tokenIn {
	case r.Pool.TokenA.Address:
		return r.ReserveA, r.ReserveB, r.Pool.TokenB, nil
	case r.Pool.TokenB.Address:
		return r.ReserveB, r.ReserveA, r.Pool.TokenA, nil
	default:
		return nil, nil, token.Token{}, errors.Wrapf(apperrors.ErrInvalidArgument,
			"pool %s does not trade %s", r.Pool.ID, tokenIn.Hex())
	}
}

// Result is the output of the constant-product estimate.
type Result struct {
	AmountOut      *big.Int
	PriceImpactBps int64
}

// Compute estimates the output of selling amountIn into a pool holding
// reserveIn/reserveOut with a fee of feeBps.
func Compute(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) (Result, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return Result{}, errors.Wrap(apperrors.ErrInvalidAmount, "amount in must be positive")
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return Result{}, errors.Wrap(apperrors.ErrInsufficientLiquidity, "pool has no reserves")
	}
	if feeBps >= dexmath.BpsDenominator {
		return Result{}, errors.Wrapf(apperrors.ErrInvalidArgument, "fee %d bps", feeBps)
	}

	out, ok := dexmath.AmountOut(amountIn, reserveIn, reserveOut, feeBps)
	if !ok {
		return Result{}, errors.Wrap(apperrors.ErrInsufficientLiquidity, "output rounds to zero")
	}

	return Result{
		AmountOut:      out,
		PriceImpactBps: dexmath.PriceImpactBps(amountIn, out, reserveIn, reserveOut),
	}, nil
}

// Quote is an ephemeral price for selling AmountIn of TokenIn.
//
// AmountOut is the client estimate. Authoritative, when set, is the amount
// the aggregator contract reported for the same trade and takes precedence
// for slippage bounds.
type Quote struct {
	TokenIn        token.Token
	TokenOut       token.Token
	AmountIn       *big.Int
	AmountOut      *big.Int
	PriceImpactBps int64
	DerivedFrom    PoolReserves

	Authoritative *big.Int
	Route         common.Address
}

// New quotes a trade against one snapshot.
func New(snap PoolReserves, tokenIn common.Address, amountIn *big.Int) (*Quote, error) {
	reserveIn, reserveOut, out, err := snap.Oriented(tokenIn)
	if err != nil {
		return nil, err
	}

	res, err := Compute(amountIn, reserveIn, reserveOut, snap.Pool.FeeBps)
	if err != nil {
		return nil, errors.Wrapf(err, "pool %s", snap.Pool.ID)
	}

	in, _ := snap.Pool.Other(out.Address)

	return &Quote{
		TokenIn:        in,
		TokenOut:       out,
		AmountIn:       new(big.Int).Set(amountIn),
		AmountOut:      res.AmountOut,
		PriceImpactBps: res.PriceImpactBps,
		DerivedFrom:    snap,
	}, nil
}

// Best quotes the trade against every snapshot and keeps the largest
// estimate. Ties go to the earlier snapshot. Per-pool failures are only
// returned when no snapshot yields a quote.
func Best(snaps []PoolReserves, tokenIn common.Address, amountIn *big.Int) (*Quote, error) {
	if len(snaps) == 0 {
		return nil, errors.Wrap(apperrors.ErrInsufficientLiquidity, "no pool trades the pair")
	}

	var (
		best    *Quote
		lastErr error
	)
	for _, s := range snaps {
		q, err := New(s, tokenIn, amountIn)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidAmount) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if best == nil || q.AmountOut.Cmp(best.AmountOut) > 0 {
			best = q
		}
	}
	if best == nil {
		return nil, lastErr
	}
	return best, nil
}

// WithAuthoritative returns a copy of q carrying the contract-reported output
// and the pool the aggregator would route through.
func (q *Quote) WithAuthoritative(amountOut *big.Int, route common.Address) *Quote {
	c := *q
	if amountOut != nil {
		c.Authoritative = new(big.Int).Set(amountOut)
	}
	c.Route = route
	return &c
}

// Expected is the output slippage bounds are derived from.
func (q *Quote) Expected() *big.Int {
	if q.Authoritative != nil && q.Authoritative.Sign() > 0 {
		return q.Authoritative
	}
	return q.AmountOut
}

// Pool is the pool the quote was derived from.
func (q *Quote) Pool() token.Pool {
	return q.DerivedFrom.Pool
}

// Severity classifies the quote's price impact.
func (q *Quote) Severity() Severity {
	return Classify(q.PriceImpactBps)
}

package dexmath

import (
	"math/big"
	"sync"
)

// BpsDenominator is the basis point scale: 10000 bps = 100%.
const BpsDenominator = 10_000

var (
	bpsDen = big.NewInt(BpsDenominator)

	defaultMath = newMathService()
)

type mathTmp struct {
	a *big.Int
	b *big.Int
	c *big.Int
}

type mathService struct {
	pool *sync.Pool
}

func newMathService() *mathService {
	return &mathService{
		pool: &sync.Pool{
			New: func() any {
				return &mathTmp{
					a: new(big.Int),
					b: new(big.Int),
					c: new(big.Int),
				}
			},
		},
	}
}

func (m *mathService) get() *mathTmp {
	return m.pool.Get().(*mathTmp)
}

func (m *mathService) put(t *mathTmp) {
	m.pool.Put(t)
}

func (m *mathService) amountOutInto(out, amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) bool {
	if out == nil {
		return false
	}
	// basic validation.
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || feeBps >= BpsDenominator {
		out.SetInt64(0)
		return false
	}

	t := m.get()
	defer m.put(t)

	// after := amountIn * (10000 - fee) / 10000.
	t.a.SetInt64(int64(BpsDenominator - feeBps))
	t.a.Mul(t.a, amountIn)
	t.a.Quo(t.a, bpsDen)

	// num := reserveOut * after.
	t.b.Mul(reserveOut, t.a)

	// den := reserveIn + after.
	t.c.Add(reserveIn, t.a)

	// out = num / den.
	out.Quo(t.b, t.c)

	return out.Sign() > 0
}

// AmountOutInto computes the constant-product output for amountIn with a
// proportional fee of feeBps, writing it into out:
//
//	after = amountIn * (10000 - feeBps) / 10000
//	out   = reserveOut * after / (reserveIn + after)
//
// Both divisions floor. It returns false when any input is non-positive, the
// fee is 100% or more, or the output rounds down to zero. out must be non-nil.
func AmountOutInto(out, amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) bool {
	return defaultMath.amountOutInto(out, amountIn, reserveIn, reserveOut, feeBps)
}

// AmountOut is the allocating form of AmountOutInto.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) (*big.Int, bool) {
	out := new(big.Int)
	ok := defaultMath.amountOutInto(out, amountIn, reserveIn, reserveOut, feeBps)
	return out, ok
}

// PriceImpactBps measures how much worse the execution price amountIn/amountOut
// is than the marginal price reserveIn/reserveOut:
//
//	impact = 10000 * (amountIn*reserveOut - amountOut*reserveIn) / (amountIn*reserveOut)
//
// The result is floored and clamped at zero. The fee is part of the impact.
func PriceImpactBps(amountIn, amountOut, reserveIn, reserveOut *big.Int) int64 {
	if amountIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return 0
	}

	t := defaultMath.get()
	defer defaultMath.put(t)

	t.a.Mul(amountIn, reserveOut)
	t.b.Mul(amountOut, reserveIn)
	t.b.Sub(t.a, t.b)
	if t.b.Sign() <= 0 {
		return 0
	}
	t.b.Mul(t.b, bpsDen)
	t.c.Quo(t.b, t.a)
	if !t.c.IsInt64() || t.c.Int64() > BpsDenominator {
		return BpsDenominator
	}
	return t.c.Int64()
}

// MinAmountOut returns floor(amountOut * (10000 - slippageBps) / 10000).
// slippageBps must already be within [0, 10000].
func MinAmountOut(amountOut *big.Int, slippageBps int) *big.Int {
	out := big.NewInt(int64(BpsDenominator - slippageBps))
	out.Mul(out, amountOut)
	return out.Quo(out, bpsDen)
}

// PairedAmount returns the amount of token B matching amountA at the pool's
// current ratio, floor(amountA * reserveB / reserveA). ok is false for an
// empty pool, where any ratio is accepted.
func PairedAmount(amountA, reserveA, reserveB *big.Int) (*big.Int, bool) {
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return new(big.Int), false
	}
	out := new(big.Int).Mul(amountA, reserveB)
	return out.Quo(out, reserveA), true
}

// Share describes a liquidity provider's slice of a pool.
type Share struct {
	Bps     int64
	AmountA *big.Int
	AmountB *big.Int
}

// PoolShare computes the provider's share of the pool in bps (floored) and
// the underlying reserves it redeems for. An empty pool yields a zero share.
func PoolShare(userShares, totalShares, reserveA, reserveB *big.Int) Share {
	if totalShares.Sign() <= 0 || userShares.Sign() <= 0 {
		return Share{AmountA: new(big.Int), AmountB: new(big.Int)}
	}

	bps := new(big.Int).Mul(userShares, bpsDen)
	bps.Quo(bps, totalShares)

	a := new(big.Int).Mul(reserveA, userShares)
	a.Quo(a, totalShares)
	b := new(big.Int).Mul(reserveB, userShares)
	b.Quo(b, totalShares)

	return Share{Bps: bps.Int64(), AmountA: a, AmountB: b}
}

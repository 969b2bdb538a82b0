package dto

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fleshka4/dex-aggregator/internal/dexmath"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// QuoteRequest asks for the output of selling Amount of From for To.
// Amount is a decimal string in From's units.
type QuoteRequest struct {
	From   string
	To     string
	Amount string
}

// IntentRequest builds a swap intent. A nil SlippageBps uses the configured
// default and a zero Recipient the session account.
type IntentRequest struct {
	QuoteRequest
	SlippageBps *int
	Recipient   common.Address
}

// AddLiquidityRequest deposits into a pool. An empty AmountB is derived from
// AmountA at the pool's current ratio.
type AddLiquidityRequest struct {
	PoolID  string
	AmountA string
	AmountB string
}

// RemoveLiquidityRequest burns Shares, an integer string, of a pool.
type RemoveLiquidityRequest struct {
	PoolID string
	Shares string
}

// TokenBalance is the balance of one registered token.
type TokenBalance struct {
	Token  token.Token
	Amount *big.Int
}

// Position is an account's share of a pool.
type Position struct {
	Pool        token.Pool
	Shares      *big.Int
	TotalShares *big.Int
	Share       dexmath.Share
}

// Price is the aggregator's output for one whole unit of From.
type Price struct {
	From      token.Token
	To        token.Token
	AmountIn  *big.Int
	AmountOut *big.Int
	Route     common.Address
	// PoolID names Route when it is a registered pool.
	PoolID string
}

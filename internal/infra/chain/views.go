package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type tokenPair struct {
	token1 common.Address
	token2 common.Address
}

// PoolTokens returns the addresses of token1 and token2 for a pool contract.
func (c *ethClientImpl) PoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	if v, ok := c.poolTokens.Load(pool); ok {
		p := v.(tokenPair)
		return p.token1, p.token2, nil
	}

	const (
		numTokens    = 2
		token1Method = "token1"
		token2Method = "token2"
	)

	type tokenResult struct {
		token common.Address
		err   error
		name  string
	}

	var wg sync.WaitGroup
	ch := make(chan tokenResult, numTokens)

	getToken := func(method string) {
		defer wg.Done()

		out, err := c.call(ctx, &c.ammABI, pool, method)
		if err != nil {
			ch <- tokenResult{err: errors.Wrapf(err, "failed to call %s", method)}
			return
		}

		addr, ok := out[0].(common.Address)
		if !ok {
			ch <- tokenResult{err: errors.Errorf("failed to cast %s result to address", method)}
			return
		}

		ch <- tokenResult{token: addr, name: method}
	}

	wg.Add(numTokens)
	go getToken(token1Method)
	go getToken(token2Method)

	go func() {
		wg.Wait()
		close(ch)
	}()

	var (
		pair        tokenPair
		combinedErr error
	)

	for result := range ch {
		if result.err != nil {
			combinedErr = multierr.Append(combinedErr, result.err)
			continue
		}

		switch result.name {
		case token1Method:
			pair.token1 = result.token
		case token2Method:
			pair.token2 = result.token
		}
	}

	if combinedErr != nil {
		return common.Address{}, common.Address{}, errors.Wrap(combinedErr, "failed to get pool tokens")
	}

	c.poolTokens.Store(pool, pair)

	return pair.token1, pair.token2, nil
}

// GetReserves returns the pool's reserves in contract order.
func (c *ethClientImpl) GetReserves(ctx context.Context, pool common.Address) (Reserves, error) {
	token1, token2, err := c.PoolTokens(ctx, pool)
	if err != nil {
		return Reserves{}, errors.Wrap(err, "c.PoolTokens")
	}

	out, err := c.call(ctx, &c.ammABI, pool, "getReserves")
	if err != nil {
		return Reserves{}, errors.Wrap(err, "c.call")
	}

	const requiredSize = 2
	if len(out) < requiredSize {
		return Reserves{}, errors.Errorf("insufficient outputs from getReserves call: expected %d, got %d", requiredSize, len(out))
	}

	reserves := make([]*big.Int, requiredSize)
	reserveNames := []string{"reserve1", "reserve2"}

	for i := 0; i < requiredSize; i++ {
		reserve, ok := out[i].(*big.Int)
		if !ok {
			return Reserves{}, errors.Errorf("failed to cast %s to *big.Int", reserveNames[i])
		}
		reserves[i] = reserve
	}

	return Reserves{
		Token1:   token1,
		Token2:   token2,
		Reserve1: reserves[0],
		Reserve2: reserves[1],
	}, nil
}

// GetAmountOut asks the pool itself for the output of selling amountIn of tokenIn.
func (c *ethClientImpl) GetAmountOut(ctx context.Context, pool common.Address, amountIn *big.Int, tokenIn common.Address) (*big.Int, error) {
	out, err := c.callBig(ctx, &c.ammABI, pool, "getAmountOut", amountIn, tokenIn)
	return out, errors.Wrap(err, "getAmountOut")
}

// BestPrice returns the aggregator's best output across its pools and the
// pool that produced it.
func (c *ethClientImpl) BestPrice(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, common.Address, error) {
	out, err := c.call(ctx, &c.aggregatorABI, c.opts.Aggregator, "getBestPrice", tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "getBestPrice")
	}

	const requiredSize = 2
	if len(out) < requiredSize {
		return nil, common.Address{}, errors.Errorf("insufficient outputs from getBestPrice call: expected %d, got %d", requiredSize, len(out))
	}

	amountOut, ok := out[0].(*big.Int)
	if !ok {
		return nil, common.Address{}, errors.New("failed to cast amountOut to *big.Int")
	}
	bestDex, ok := out[1].(common.Address)
	if !ok {
		return nil, common.Address{}, errors.New("failed to cast bestDex to address")
	}

	return amountOut, bestDex, nil
}

func (c *ethClientImpl) BalanceOf(ctx context.Context, tokenAddr, account common.Address) (*big.Int, error) {
	out, err := c.callBig(ctx, &c.erc20ABI, tokenAddr, "balanceOf", account)
	return out, errors.Wrap(err, "balanceOf")
}

func (c *ethClientImpl) Allowance(ctx context.Context, tokenAddr, owner, spender common.Address) (*big.Int, error) {
	out, err := c.callBig(ctx, &c.erc20ABI, tokenAddr, "allowance", owner, spender)
	return out, errors.Wrap(err, "allowance")
}

func (c *ethClientImpl) Shares(ctx context.Context, pool, account common.Address) (*big.Int, error) {
	out, err := c.callBig(ctx, &c.ammABI, pool, "shares", account)
	return out, errors.Wrap(err, "shares")
}

func (c *ethClientImpl) TotalShares(ctx context.Context, pool common.Address) (*big.Int, error) {
	out, err := c.callBig(ctx, &c.ammABI, pool, "totalShares")
	return out, errors.Wrap(err, "totalShares")
}

// TokenMetadata reads name, symbol and decimals from an ERC-20 contract.
func (c *ethClientImpl) TokenMetadata(ctx context.Context, tokenAddr common.Address) (TokenMetadata, error) {
	var md TokenMetadata

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.callInto(gctx, tokenAddr, "name", &md.Name)
	})
	g.Go(func() error {
		return c.callInto(gctx, tokenAddr, "symbol", &md.Symbol)
	})
	g.Go(func() error {
		return c.callInto(gctx, tokenAddr, "decimals", &md.Decimals)
	})
	if err := g.Wait(); err != nil {
		return TokenMetadata{}, errors.Wrapf(err, "metadata of %s", tokenAddr.Hex())
	}
	return md, nil
}

// callInto calls a no-argument ERC-20 view and stores its single output in
// dst, which must point to the output's Go type.
func (c *ethClientImpl) callInto(ctx context.Context, tokenAddr common.Address, method string, dst interface{}) error {
	out, err := c.call(ctx, &c.erc20ABI, tokenAddr, method)
	if err != nil {
		return errors.Wrap(err, method)
	}
	if len(out) == 0 {
		return errors.Errorf("empty output from %s", method)
	}

	switch d := dst.(type) {
	case *string:
		v, ok := out[0].(string)
		if !ok {
			return errors.Errorf("failed to cast %s result to string", method)
		}
		*d = v
	case *uint8:
		v, ok := out[0].(uint8)
		if !ok {
			return errors.Errorf("failed to cast %s result to uint8", method)
		}
		*d = v
	default:
		return errors.Errorf("unsupported output type %T for %s", dst, method)
	}
	return nil
}

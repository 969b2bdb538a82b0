package service

import (
	"context"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/amount"
	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/dexmath"
	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/service/validate"
)

// Position reports the session account's share of a pool and the amounts
// it would receive for burning all of it.
func (s *Session) Position(ctx context.Context, poolID string) (*dto.Position, error) {
	id, err := s.account()
	if err != nil {
		return nil, err
	}
	pool, err := s.reg.Pool(poolID)
	if err != nil {
		return nil, err
	}

	shares, err := s.client.Shares(ctx, pool.Address, id.Account)
	if err != nil {
		return nil, errors.Wrap(err, "client.Shares")
	}
	total, err := s.client.TotalShares(ctx, pool.Address)
	if err != nil {
		return nil, errors.Wrap(err, "client.TotalShares")
	}
	snap, err := s.store.AwaitReserves(ctx, pool.ID)
	if err != nil {
		return nil, err
	}

	return &dto.Position{
		Pool:        pool,
		Shares:      shares,
		TotalShares: total,
		Share:       dexmath.PoolShare(shares, total, snap.ReserveA, snap.ReserveB),
	}, nil
}

// AddLiquidity deposits into a pool. When AmountB is empty it is derived from
// AmountA at the pool's current reserve ratio.
func (s *Session) AddLiquidity(ctx context.Context, req dto.AddLiquidityRequest, obs executor.Observer) (*executor.Result, error) {
	if err := validate.AddLiquidityRequestValidate(req); err != nil {
		return nil, err
	}
	id, err := s.account()
	if err != nil {
		return nil, err
	}
	pool, err := s.reg.Pool(req.PoolID)
	if err != nil {
		return nil, err
	}

	amountA, err := amount.Parse(req.AmountA, pool.TokenA.Decimals)
	if err != nil {
		return nil, err
	}

	var amountB *big.Int
	if strings.TrimSpace(req.AmountB) != "" {
		if amountB, err = amount.Parse(req.AmountB, pool.TokenB.Decimals); err != nil {
			return nil, err
		}
	} else {
		snap, err := s.store.AwaitReserves(ctx, pool.ID)
		if err != nil {
			return nil, err
		}
		var ok bool
		if amountB, ok = dexmath.PairedAmount(amountA, snap.ReserveA, snap.ReserveB); !ok {
			return nil, errors.Wrapf(apperrors.ErrInvalidArgument, "pool %s is empty, both amounts are required", pool.ID)
		}
	}

	if _, err = s.store.EnsureBalances(ctx, id.Account); err != nil {
		return nil, errors.Wrap(err, "load balances")
	}
	return s.exec.AddLiquidity(ctx, id.Account, pool, amountA, amountB, obs)
}

// RemoveLiquidity burns shares of a pool.
func (s *Session) RemoveLiquidity(ctx context.Context, req dto.RemoveLiquidityRequest, obs executor.Observer) (*executor.Result, error) {
	if err := validate.RemoveLiquidityRequestValidate(req); err != nil {
		return nil, err
	}
	id, err := s.account()
	if err != nil {
		return nil, err
	}
	pool, err := s.reg.Pool(req.PoolID)
	if err != nil {
		return nil, err
	}

	shares, err := amount.Parse(req.Shares, 0)
	if err != nil {
		return nil, err
	}

	return s.exec.RemoveLiquidity(ctx, id.Account, pool, shares, obs)
}

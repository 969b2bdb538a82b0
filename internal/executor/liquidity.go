package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// Liquidity sequences report their main transaction through PhaseReadyToSwap
// and PhaseSwapping.

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// AddLiquidity deposits amountA of pool.TokenA and amountB of pool.TokenB,
// approving the pool for each token whose allowance is short.
func (e *Executor) AddLiquidity(ctx context.Context, account common.Address, pool token.Pool, amountA, amountB *big.Int, obs Observer) (*Result, error) {
	if !positive(amountA) || !positive(amountB) {
		return nil, errors.Wrap(apperrors.ErrInvalidAmount, "liquidity amounts must be positive")
	}
	epoch, err := e.session(account)
	if err != nil {
		return nil, err
	}
	if err = e.checkBalance(account, pool.TokenA.Address, amountA, pool.TokenA.Symbol); err != nil {
		return nil, err
	}
	if err = e.checkBalance(account, pool.TokenB.Address, amountB, pool.TokenB.Symbol); err != nil {
		return nil, err
	}

	log := e.log.With(zap.String("pool", pool.ID), zap.String("account", account.Hex()))
	r := &run{obs: obs}
	res := &Result{}

	reserves, err := e.client.GetReserves(ctx, pool.Address)
	if err != nil {
		return res, r.fail(apperrors.StepLiquidity, errors.Wrap(err, "client.GetReserves"))
	}
	amount1, amount2 := amountA, amountB
	if reserves.Token1 == pool.TokenB.Address {
		amount1, amount2 = amountB, amountA
	}

	for _, dep := range []struct {
		addr   common.Address
		amount *big.Int
	}{{reserves.Token1, amount1}, {reserves.Token2, amount2}} {
		approval, err := e.ensureAllowance(ctx, r, account, dep.addr, pool.Address, dep.amount)
		if approval != (common.Hash{}) {
			res.ApprovalTxs = append(res.ApprovalTxs, approval)
		}
		if err != nil {
			log.Warn("approval failed", zap.Error(err))
			return res, r.fail(apperrors.StepApproval, err)
		}
	}

	r.enter(PhaseReadyToSwap, common.Hash{})

	h, err := e.client.AddLiquidity(ctx, account, pool.Address, amount1, amount2)
	if err != nil {
		return res, r.fail(apperrors.StepLiquidity, err)
	}

	return e.finish(ctx, r, res, h, epoch, account, pool.ID, log)
}

// RemoveLiquidity burns shares of account in pool.
func (e *Executor) RemoveLiquidity(ctx context.Context, account common.Address, pool token.Pool, shares *big.Int, obs Observer) (*Result, error) {
	if !positive(shares) {
		return nil, errors.Wrap(apperrors.ErrInvalidAmount, "shares must be positive")
	}
	epoch, err := e.session(account)
	if err != nil {
		return nil, err
	}

	log := e.log.With(zap.String("pool", pool.ID), zap.String("account", account.Hex()))
	r := &run{obs: obs}
	res := &Result{}

	held, err := e.client.Shares(ctx, pool.Address, account)
	if err != nil {
		return res, r.fail(apperrors.StepLiquidity, errors.Wrap(err, "client.Shares"))
	}
	if held.Cmp(shares) < 0 {
		return res, r.fail(apperrors.StepLiquidity,
			errors.Wrapf(apperrors.ErrInsufficientBalance, "holding %s shares, removing %s", held, shares))
	}

	r.enter(PhaseReadyToSwap, common.Hash{})

	h, err := e.client.RemoveLiquidity(ctx, account, pool.Address, shares)
	if err != nil {
		return res, r.fail(apperrors.StepLiquidity, err)
	}

	return e.finish(ctx, r, res, h, epoch, account, pool.ID, log)
}

func (e *Executor) finish(ctx context.Context, r *run, res *Result, h chain.TxHandle, epoch uint64, account common.Address, poolID string, log *zap.Logger) (*Result, error) {
	res.TxHash = h.Hash()
	r.enter(PhaseSwapping, res.TxHash)

	rcpt, err := h.Wait(ctx)
	res.Receipt = rcpt
	if err != nil {
		log.Warn("liquidity change failed", zap.String("tx", res.TxHash.Hex()), zap.Error(err))
		return res, r.fail(apperrors.StepLiquidity, err)
	}

	if err = e.cache.SwapCompleted(epoch, account, poolID); err != nil {
		return res, r.fail(apperrors.StepLiquidity, errors.Wrapf(err, "tx %s", res.TxHash.Hex()))
	}

	log.Info("liquidity change mined", zap.String("tx", res.TxHash.Hex()), zap.Uint64("block", rcpt.Block))
	r.enter(PhaseDone, res.TxHash)

	return res, nil
}

package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
)

// gasBufferPct is added on top of the node's gas estimate.
const gasBufferPct = 20

// TxHandle is a submitted transaction.
type TxHandle interface {
	Hash() common.Hash
	// Wait blocks until the transaction is mined. A mined transaction that
	// failed returns the receipt together with apperrors.ErrTransactionReverted.
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt is the outcome of a mined transaction, with amounts read back
// from the events it emitted.
type Receipt struct {
	Hash    common.Hash
	Success bool
	Block   uint64
	GasUsed uint64

	AmountOut *big.Int
	BestDex   common.Address
	Amount1   *big.Int
	Amount2   *big.Int
	Shares    *big.Int
}

// Approve lets spender move amount of tokenAddr on behalf of from.
func (c *ethClientImpl) Approve(ctx context.Context, from, tokenAddr, spender common.Address, amount *big.Int) (TxHandle, error) {
	data, err := c.erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "c.erc20ABI.Pack")
	}
	return c.transact(ctx, from, tokenAddr, data, c.opts.Gas.Approve)
}

// Swap sends the trade through the aggregator.
func (c *ethClientImpl) Swap(ctx context.Context, from common.Address, call SwapCall) (TxHandle, error) {
	data, err := c.aggregatorABI.Pack("swap", call.TokenIn, call.TokenOut, call.AmountIn, call.MinAmountOut, call.Recipient)
	if err != nil {
		return nil, errors.Wrap(err, "c.aggregatorABI.Pack")
	}
	return c.transact(ctx, from, c.opts.Aggregator, data, c.opts.Gas.Swap)
}

// AddLiquidity deposits amount1 of token1 and amount2 of token2 into pool.
func (c *ethClientImpl) AddLiquidity(ctx context.Context, from, pool common.Address, amount1, amount2 *big.Int) (TxHandle, error) {
	data, err := c.ammABI.Pack("addLiquidity", amount1, amount2)
	if err != nil {
		return nil, errors.Wrap(err, "c.ammABI.Pack")
	}
	return c.transact(ctx, from, pool, data, c.opts.Gas.AddLiquidity)
}

// RemoveLiquidity redeems shares of pool.
func (c *ethClientImpl) RemoveLiquidity(ctx context.Context, from, pool common.Address, shares *big.Int) (TxHandle, error) {
	data, err := c.ammABI.Pack("removeLiquidity", shares)
	if err != nil {
		return nil, errors.Wrap(err, "c.ammABI.Pack")
	}
	return c.transact(ctx, from, pool, data, c.opts.Gas.RemoveLiquidity)
}

func (c *ethClientImpl) transact(ctx context.Context, from, to common.Address, data []byte, fallbackGas uint64) (TxHandle, error) {
	if c.signer == nil {
		return nil, errors.New("no signer configured")
	}

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, classify(err, "c.backend.PendingNonceAt")
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify(err, "c.backend.SuggestGasPrice")
	}

	msg := ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	}

	gasLimit := fallbackGas
	estimated, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		cerr := classify(err, "c.backend.EstimateGas")
		if errors.Is(cerr, apperrors.ErrTransactionReverted) || errors.Is(cerr, apperrors.ErrNetwork) {
			return nil, cerr
		}
	} else {
		gasLimit = estimated * (100 + gasBufferPct) / 100
	}
	if gasLimit == 0 {
		return nil, errors.New("gas limit unknown")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    new(big.Int),
		Data:     data,
	})

	signed, err := c.signer.SignTx(ctx, from, tx)
	if err != nil {
		return nil, errors.Wrap(err, "c.signer.SignTx")
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, classify(err, "c.backend.SendTransaction")
	}

	msg.Gas = gasLimit

	return &txHandle{
		client: c,
		hash:   signed.Hash(),
		msg:    msg,
	}, nil
}

type txHandle struct {
	client *ethClientImpl
	hash   common.Hash
	msg    ethereum.CallMsg
}

func (h *txHandle) Hash() common.Hash {
	return h.hash
}

func (h *txHandle) Wait(ctx context.Context) (*Receipt, error) {
	ticker := time.NewTicker(h.client.opts.ReceiptPoll)
	defer ticker.Stop()

	for {
		r, err := h.client.backend.TransactionReceipt(ctx, h.hash)
		switch {
		case err == nil:
			return h.client.decodeReceipt(ctx, r, h.msg)
		case errors.Is(err, ethereum.NotFound):
		default:
			return nil, classify(err, "c.backend.TransactionReceipt")
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for %s", h.hash.Hex())
		case <-ticker.C:
		}
	}
}

func (c *ethClientImpl) decodeReceipt(ctx context.Context, r *types.Receipt, msg ethereum.CallMsg) (*Receipt, error) {
	out := &Receipt{
		Hash:    r.TxHash,
		Success: r.Status == types.ReceiptStatusSuccessful,
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.Block = r.BlockNumber.Uint64()
	}

	var (
		bestTradeID = c.aggregatorABI.Events["BestTrade"].ID
		swapID      = c.ammABI.Events["Swap"].ID
		addID       = c.ammABI.Events["AddLiquidity"].ID
		removeID    = c.ammABI.Events["RemoveLiquidity"].ID
	)

	for _, l := range r.Logs {
		if len(l.Topics) == 0 {
			continue
		}

		switch l.Topics[0] {
		case bestTradeID:
			vals, err := c.aggregatorABI.Unpack("BestTrade", l.Data)
			if err != nil || len(vals) < 3 {
				continue
			}
			out.AmountOut, _ = vals[1].(*big.Int)
			out.BestDex, _ = vals[2].(common.Address)
		case swapID:
			if out.AmountOut != nil {
				continue
			}
			vals, err := c.ammABI.Unpack("Swap", l.Data)
			if err != nil || len(vals) < 3 {
				continue
			}
			out.AmountOut, _ = vals[2].(*big.Int)
		case addID, removeID:
			name := "AddLiquidity"
			if l.Topics[0] == removeID {
				name = "RemoveLiquidity"
			}
			vals, err := c.ammABI.Unpack(name, l.Data)
			if err != nil || len(vals) < 3 {
				continue
			}
			out.Amount1, _ = vals[0].(*big.Int)
			out.Amount2, _ = vals[1].(*big.Int)
			out.Shares, _ = vals[2].(*big.Int)
		}
	}

	if !out.Success {
		return out, errors.Wrapf(apperrors.ErrTransactionReverted, "tx %s: %s", out.Hash.Hex(), c.replayRevert(ctx, msg, r.BlockNumber))
	}

	return out, nil
}

// replayRevert re-executes a failed transaction as a call at its block to
// recover the revert reason.
func (c *ethClientImpl) replayRevert(ctx context.Context, msg ethereum.CallMsg, block *big.Int) string {
	_, err := c.backend.CallContract(ctx, msg, block)
	if err == nil {
		return "no revert reason"
	}
	if reason, ok := revertReason(err); ok {
		return reason
	}
	return err.Error()
}

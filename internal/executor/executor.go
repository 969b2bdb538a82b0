// Package executor submits swap intents and liquidity changes as explicit
// approve-then-act transaction sequences.
package executor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/state"
	"github.com/fleshka4/dex-aggregator/internal/swap"
)

// Phase is a state of a transaction sequence.
type Phase string

const (
	PhaseNeedsApproval Phase = "needs_approval"
	PhaseApproving     Phase = "approving"
	PhaseReadyToSwap   Phase = "ready_to_swap"
	PhaseSwapping      Phase = "swapping"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

// Event reports a phase transition. TxHash is set once the phase's
// transaction has been sent, Err only for PhaseFailed.
type Event struct {
	Phase  Phase
	TxHash common.Hash
	Err    error
}

// Observer receives every phase transition in order. It must not block.
type Observer func(Event)

// Cache is the part of the state store the executor reads and invalidates.
type Cache interface {
	Current() *state.State
	Balances(account common.Address) (state.BalanceSnapshot, bool)
	SwapCompleted(epoch uint64, account common.Address, poolID string) error
	LatestVersion(poolID string) uint64
}

// Result describes a finished sequence. Hashes of transactions that were
// sent are filled in even when the sequence failed.
type Result struct {
	ApprovalTxs []common.Hash
	TxHash      common.Hash
	Receipt     *chain.Receipt
	AmountOut   *big.Int
}

type Executor struct {
	client chain.Client
	cache  Cache
	log    *zap.Logger
	now    func() time.Time
}

func New(client chain.Client, cache Cache, log *zap.Logger) *Executor {
	return &Executor{
		client: client,
		cache:  cache,
		log:    log,
		now:    time.Now,
	}
}

// run reports the phases of one sequence.
type run struct {
	obs Observer
}

func (r *run) enter(p Phase, tx common.Hash) {
	if r.obs != nil {
		r.obs(Event{Phase: p, TxHash: tx})
	}
}

func (r *run) fail(step apperrors.Step, err error) error {
	err = apperrors.AtStep(step, err)
	if r.obs != nil {
		r.obs(Event{Phase: PhaseFailed, Err: err})
	}
	return err
}

// session checks that account is the session's account and returns the
// current epoch.
func (e *Executor) session(account common.Address) (uint64, error) {
	if account == (common.Address{}) {
		return 0, errors.Wrap(apperrors.ErrNoAccount, "no account connected")
	}
	st := e.cache.Current()
	if st.Identity().Account != account {
		return 0, errors.Wrapf(apperrors.ErrSessionChanged, "account %s is not the session account", account.Hex())
	}
	return st.Epoch(), nil
}

// checkBalance validates amount against the cached balances of account.
func (e *Executor) checkBalance(account, tokenAddr common.Address, amount *big.Int, symbol string) error {
	bal, ok := e.cache.Balances(account)
	if !ok {
		return errors.Wrap(apperrors.ErrInvalidArgument, "balances are not loaded")
	}
	if have := bal.Of(tokenAddr); have.Cmp(amount) < 0 {
		return errors.Wrapf(apperrors.ErrInsufficientBalance, "%s balance %s, need %s", symbol, have, amount)
	}
	return nil
}

// CheckIntent reports why in cannot be submitted by account without
// touching the network: it is incomplete, consumed, expired, built for
// another session, or its pool snapshot has been superseded since it was
// built. It returns the epoch the submission belongs to.
func (e *Executor) CheckIntent(account common.Address, in *swap.Intent) (uint64, error) {
	if in == nil || in.AmountIn == nil || in.MinAmountOut == nil {
		return 0, errors.Wrap(apperrors.ErrInvalidArgument, "incomplete intent")
	}
	if in.Consumed() {
		return 0, errors.Wrapf(apperrors.ErrIntentConsumed, "intent %s", in.ID)
	}
	if in.Expired(e.now()) {
		return 0, errors.Wrapf(apperrors.ErrStaleQuote, "intent %s expired at %s", in.ID, in.Deadline.Format(time.RFC3339))
	}
	epoch, err := e.session(account)
	if err != nil {
		return 0, err
	}
	// An identity switch bumps every pool version, so this also rejects
	// intents built for a previous account or chain.
	if latest := e.cache.LatestVersion(in.Pool.ID); in.QuoteVersion < latest {
		return 0, errors.Wrapf(apperrors.ErrStaleQuote,
			"intent %s built on pool %s version %d, latest %d", in.ID, in.Pool.ID, in.QuoteVersion, latest)
	}
	return epoch, nil
}

// Swap submits intent for account: it approves the aggregator first when
// the allowance does not cover the input amount, then sends the swap and
// waits for it to be mined. CheckIntent and the balance check run before
// any network call. The intent is consumed once validation passes.
func (e *Executor) Swap(ctx context.Context, account common.Address, in *swap.Intent, obs Observer) (*Result, error) {
	epoch, err := e.CheckIntent(account, in)
	if err != nil {
		return nil, err
	}
	if err = e.checkBalance(account, in.TokenIn.Address, in.AmountIn, in.TokenIn.Symbol); err != nil {
		return nil, err
	}
	if err = in.Consume(); err != nil {
		return nil, err
	}

	log := e.log.With(zap.String("intent", in.ID.String()), zap.String("account", account.Hex()))
	r := &run{obs: obs}
	res := &Result{}

	spender := e.client.Aggregator()
	approval, err := e.ensureAllowance(ctx, r, account, in.TokenIn.Address, spender, in.AmountIn)
	if approval != (common.Hash{}) {
		res.ApprovalTxs = append(res.ApprovalTxs, approval)
	}
	if err != nil {
		log.Warn("approval failed", zap.Error(err))
		return res, r.fail(apperrors.StepApproval, err)
	}

	r.enter(PhaseReadyToSwap, common.Hash{})

	h, err := e.client.Swap(ctx, account, chain.SwapCall{
		TokenIn:      in.TokenIn.Address,
		TokenOut:     in.TokenOut.Address,
		AmountIn:     in.AmountIn,
		MinAmountOut: in.MinAmountOut,
		Recipient:    in.Recipient,
	})
	if err != nil {
		log.Warn("swap not sent", zap.Error(err))
		return res, r.fail(apperrors.StepSwap, err)
	}
	res.TxHash = h.Hash()
	r.enter(PhaseSwapping, res.TxHash)

	rcpt, err := h.Wait(ctx)
	res.Receipt = rcpt
	if err != nil {
		log.Warn("swap failed", zap.String("tx", res.TxHash.Hex()), zap.Error(err))
		return res, r.fail(apperrors.StepSwap, err)
	}
	res.AmountOut = rcpt.AmountOut

	if err = e.cache.SwapCompleted(epoch, account, in.Pool.ID); err != nil {
		log.Warn("swap mined after session change", zap.String("tx", res.TxHash.Hex()))
		return res, r.fail(apperrors.StepSwap, errors.Wrapf(err, "tx %s", res.TxHash.Hex()))
	}

	log.Info("swap mined",
		zap.String("tx", res.TxHash.Hex()),
		zap.Uint64("block", rcpt.Block),
		zap.Stringer("amount_out", rcpt.AmountOut))
	r.enter(PhaseDone, res.TxHash)

	return res, nil
}

// ensureAllowance approves spender for the maximum amount of tokenAddr when
// the current allowance is below amount, and checks the grant took effect
// once the approval is mined. It returns the approval hash when one was
// sent.
func (e *Executor) ensureAllowance(ctx context.Context, r *run, owner, tokenAddr, spender common.Address, amount *big.Int) (common.Hash, error) {
	allowance, err := e.client.Allowance(ctx, tokenAddr, owner, spender)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "client.Allowance")
	}
	if allowance.Cmp(amount) >= 0 {
		return common.Hash{}, nil
	}

	r.enter(PhaseNeedsApproval, common.Hash{})

	h, err := e.client.Approve(ctx, owner, tokenAddr, spender, new(big.Int).Set(math.MaxBig256))
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "approve %s", tokenAddr.Hex())
	}
	r.enter(PhaseApproving, h.Hash())

	if _, err = h.Wait(ctx); err != nil {
		return h.Hash(), errors.Wrapf(err, "approve %s", tokenAddr.Hex())
	}

	// approve may return false without reverting.
	if allowance, err = e.client.Allowance(ctx, tokenAddr, owner, spender); err != nil {
		return h.Hash(), errors.Wrap(err, "client.Allowance")
	}
	if allowance.Cmp(amount) < 0 {
		return h.Hash(), errors.Wrapf(apperrors.ErrAllowanceInsufficient,
			"approve %s mined, allowance %s still below %s", tokenAddr.Hex(), allowance, amount)
	}
	return h.Hash(), nil
}

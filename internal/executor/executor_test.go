package executor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/config"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain/clientmock"
	"github.com/fleshka4/dex-aggregator/internal/infra/wallet"
	"github.com/fleshka4/dex-aggregator/internal/state"
	"github.com/fleshka4/dex-aggregator/internal/swap"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

var (
	usdcAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	wethAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	poolAddr = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	aggAddr  = common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	alice    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	approveTx = common.HexToHash("0xaa")
	swapTx    = common.HexToHash("0xbb")
)

type fixture struct {
	client *clientmock.MockClient
	ctrl   *gomock.Controller
	store  *state.Store
	exec   *Executor
	pool   token.Pool
	events []Event
}

func (f *fixture) observe(e Event) {
	f.events = append(f.events, e)
}

func (f *fixture) phases() []Phase {
	out := make([]Phase, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Phase)
	}
	return out
}

func (f *fixture) handle(hash common.Hash, rcpt *chain.Receipt, err error) *clientmock.MockTxHandle {
	h := clientmock.NewMockTxHandle(f.ctrl)
	h.EXPECT().Hash().Return(hash).AnyTimes()
	h.EXPECT().Wait(gomock.Any()).Return(rcpt, err)
	return h
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg, err := token.NewRegistry([]config.TokenConfig{
		{Symbol: "USDC", Address: usdcAddr.Hex(), Decimals: 6},
		{Symbol: "WETH", Address: wethAddr.Hex(), Decimals: 18},
	}, []config.PoolConfig{
		{ID: "usdc-weth", Address: poolAddr.Hex(), TokenA: "USDC", TokenB: "WETH", FeeBps: 30},
	})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	client := clientmock.NewMockClient(ctrl)
	client.EXPECT().Aggregator().Return(aggAddr).AnyTimes()

	store := state.NewStore(client, reg, wallet.Identity{Account: alice, ChainID: 31337}, zap.NewNop())
	client.EXPECT().BalanceOf(gomock.Any(), usdcAddr, alice).Return(big.NewInt(1000), nil)
	client.EXPECT().BalanceOf(gomock.Any(), wethAddr, alice).Return(big.NewInt(50), nil)
	_, err = store.RefreshBalances(context.Background(), alice)
	require.NoError(t, err)

	pool, err := reg.Pool("usdc-weth")
	require.NoError(t, err)

	return &fixture{
		client: client,
		ctrl:   ctrl,
		store:  store,
		exec:   New(client, store, zap.NewNop()),
		pool:   pool,
	}
}

func (f *fixture) intent(amountIn int64) *swap.Intent {
	return &swap.Intent{
		ID:           uuid.New(),
		TokenIn:      f.pool.TokenA,
		TokenOut:     f.pool.TokenB,
		AmountIn:     big.NewInt(amountIn),
		AmountOut:    big.NewInt(9),
		MinAmountOut: big.NewInt(8),
		Recipient:    alice,
		SlippageBps:  50,
		Pool:         f.pool,
	}
}

func (f *fixture) expectSwap(in *swap.Intent) *gomock.Call {
	return f.client.EXPECT().Swap(gomock.Any(), alice, chain.SwapCall{
		TokenIn:      usdcAddr,
		TokenOut:     wethAddr,
		AmountIn:     in.AmountIn,
		MinAmountOut: in.MinAmountOut,
		Recipient:    alice,
	})
}

func TestExecutor_Swap(t *testing.T) {
	t.Parallel()

	t.Run("allowance already sufficient", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(100), nil)
		f.expectSwap(in).Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx, Success: true, Block: 7, AmountOut: big.NewInt(9)}, nil), nil)

		res, err := f.exec.Swap(context.Background(), alice, in, f.observe)
		require.NoError(t, err)
		require.Equal(t, swapTx, res.TxHash)
		require.Empty(t, res.ApprovalTxs)
		require.Equal(t, "9", res.AmountOut.String())
		require.Equal(t, []Phase{PhaseReadyToSwap, PhaseSwapping, PhaseDone}, f.phases())
		require.True(t, in.Consumed())

		_, ok := f.store.Balances(alice)
		require.False(t, ok, "balances invalidated after the swap")
	})

	t.Run("approves before swapping", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		gomock.InOrder(
			f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(99), nil),
			f.client.EXPECT().Approve(gomock.Any(), alice, usdcAddr, aggAddr, math.MaxBig256).
				Return(f.handle(approveTx, &chain.Receipt{Hash: approveTx, Success: true}, nil), nil),
			f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(math.MaxBig256, nil),
			f.expectSwap(in).Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx, Success: true, AmountOut: big.NewInt(9)}, nil), nil),
		)

		res, err := f.exec.Swap(context.Background(), alice, in, f.observe)
		require.NoError(t, err)
		require.Equal(t, []common.Hash{approveTx}, res.ApprovalTxs)
		require.Equal(t, []Phase{PhaseNeedsApproval, PhaseApproving, PhaseReadyToSwap, PhaseSwapping, PhaseDone}, f.phases())
		require.Equal(t, approveTx, f.events[1].TxHash)
	})

	t.Run("rejected approval never reaches the swap", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(0), nil)
		f.client.EXPECT().Approve(gomock.Any(), alice, usdcAddr, aggAddr, gomock.Any()).
			Return(nil, errors.Wrap(apperrors.ErrUserRejected, "transaction declined"))

		_, err := f.exec.Swap(context.Background(), alice, in, f.observe)
		require.True(t, errors.Is(err, apperrors.ErrUserRejected))

		var stepErr *apperrors.StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, apperrors.StepApproval, stepErr.Step)

		require.Equal(t, []Phase{PhaseNeedsApproval, PhaseFailed}, f.phases())
		require.Equal(t, err, f.events[1].Err)
	})

	t.Run("reverted approval", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(0), nil)
		f.client.EXPECT().Approve(gomock.Any(), alice, usdcAddr, aggAddr, gomock.Any()).
			Return(f.handle(approveTx, &chain.Receipt{Hash: approveTx}, errors.Wrap(apperrors.ErrTransactionReverted, "paused")), nil)

		res, err := f.exec.Swap(context.Background(), alice, in, nil)
		require.True(t, errors.Is(err, apperrors.ErrTransactionReverted))
		require.Equal(t, []common.Hash{approveTx}, res.ApprovalTxs)

		var stepErr *apperrors.StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, apperrors.StepApproval, stepErr.Step)
	})

	t.Run("approval mined without granting the allowance", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		gomock.InOrder(
			f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(0), nil),
			f.client.EXPECT().Approve(gomock.Any(), alice, usdcAddr, aggAddr, math.MaxBig256).
				Return(f.handle(approveTx, &chain.Receipt{Hash: approveTx, Success: true}, nil), nil),
			f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(0), nil),
		)

		res, err := f.exec.Swap(context.Background(), alice, in, f.observe)
		require.True(t, errors.Is(err, apperrors.ErrAllowanceInsufficient), "got %v", err)
		require.Equal(t, []common.Hash{approveTx}, res.ApprovalTxs)
		require.Equal(t, common.Hash{}, res.TxHash)

		var stepErr *apperrors.StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, apperrors.StepApproval, stepErr.Step)
		require.Equal(t, []Phase{PhaseNeedsApproval, PhaseApproving, PhaseFailed}, f.phases())
	})

	t.Run("reverted swap", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(100), nil)
		f.expectSwap(in).Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx}, errors.Wrap(apperrors.ErrTransactionReverted, "Slippage exceeded")), nil)

		res, err := f.exec.Swap(context.Background(), alice, in, f.observe)
		require.True(t, errors.Is(err, apperrors.ErrTransactionReverted))
		require.Equal(t, swapTx, res.TxHash)

		var stepErr *apperrors.StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, apperrors.StepSwap, stepErr.Step)
		require.Equal(t, []Phase{PhaseReadyToSwap, PhaseSwapping, PhaseFailed}, f.phases())

		_, ok := f.store.Balances(alice)
		require.True(t, ok, "failed swap leaves the cache alone")
	})

	t.Run("identity switch while mining", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		h := clientmock.NewMockTxHandle(f.ctrl)
		h.EXPECT().Hash().Return(swapTx).AnyTimes()
		h.EXPECT().Wait(gomock.Any()).DoAndReturn(func(context.Context) (*chain.Receipt, error) {
			f.store.SwitchIdentity(wallet.Identity{Account: bob, ChainID: 31337})
			return &chain.Receipt{Hash: swapTx, Success: true, AmountOut: big.NewInt(9)}, nil
		})
		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(100), nil)
		f.expectSwap(in).Return(h, nil)

		res, err := f.exec.Swap(context.Background(), alice, in, nil)
		require.True(t, errors.Is(err, apperrors.ErrSessionChanged))
		require.Equal(t, swapTx, res.TxHash)
		require.Contains(t, err.Error(), swapTx.Hex())
	})
}

func TestExecutor_SwapValidation(t *testing.T) {
	t.Parallel()

	consumed := func(f *fixture) *swap.Intent {
		in := f.intent(100)
		require.NoError(t, in.Consume())
		return in
	}

	tests := []struct {
		name    string
		account common.Address
		intent  func(f *fixture) *swap.Intent
		wantErr error
	}{
		{
			name:    "insufficient balance",
			account: alice,
			intent:  func(f *fixture) *swap.Intent { return f.intent(1001) },
			wantErr: apperrors.ErrInsufficientBalance,
		},
		{
			name:    "already submitted",
			account: alice,
			intent:  consumed,
			wantErr: apperrors.ErrIntentConsumed,
		},
		{
			name:    "expired",
			account: alice,
			intent: func(f *fixture) *swap.Intent {
				in := f.intent(100)
				in.Deadline = time.Now().Add(-time.Minute)
				return in
			},
			wantErr: apperrors.ErrStaleQuote,
		},
		{
			name:    "other account",
			account: bob,
			intent:  func(f *fixture) *swap.Intent { return f.intent(100) },
			wantErr: apperrors.ErrSessionChanged,
		},
		{
			name:    "no account",
			intent:  func(f *fixture) *swap.Intent { return f.intent(100) },
			wantErr: apperrors.ErrNoAccount,
		},
		{
			name:    "nil intent",
			account: alice,
			intent:  func(*fixture) *swap.Intent { return nil },
			wantErr: apperrors.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			in := tt.intent(f)

			res, err := f.exec.Swap(context.Background(), tt.account, in, f.observe)
			require.Nil(t, res)
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			require.Empty(t, f.events)
		})
	}

	t.Run("failed validation keeps the intent usable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(1001)
		_, err := f.exec.Swap(context.Background(), alice, in, nil)
		require.Error(t, err)
		require.False(t, in.Consumed())
	})
}

func TestExecutor_SwapSupersededIntent(t *testing.T) {
	t.Parallel()

	t.Run("pool traded after the intent was built", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)
		in.QuoteVersion = f.store.LatestVersion(f.pool.ID)

		f.store.Invalidate(common.Address{}, f.pool.ID)

		res, err := f.exec.Swap(context.Background(), alice, in, f.observe)
		require.Nil(t, res)
		require.True(t, errors.Is(err, apperrors.ErrStaleQuote), "got %v", err)
		require.False(t, in.Consumed())
		require.Empty(t, f.events)
	})

	t.Run("another swap through the pool completed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		first, second := f.intent(100), f.intent(100)

		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(100), nil)
		f.expectSwap(first).Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx, Success: true, AmountOut: big.NewInt(9)}, nil), nil)

		_, err := f.exec.Swap(context.Background(), alice, first, nil)
		require.NoError(t, err)

		f.client.EXPECT().BalanceOf(gomock.Any(), usdcAddr, alice).Return(big.NewInt(900), nil)
		f.client.EXPECT().BalanceOf(gomock.Any(), wethAddr, alice).Return(big.NewInt(59), nil)
		_, err = f.store.RefreshBalances(context.Background(), alice)
		require.NoError(t, err)

		_, err = f.exec.Swap(context.Background(), alice, second, nil)
		require.True(t, errors.Is(err, apperrors.ErrStaleQuote), "got %v", err)
		require.False(t, second.Consumed())
	})

	t.Run("intent built for the previous account", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := f.intent(100)

		require.True(t, f.store.SwitchIdentity(wallet.Identity{Account: bob, ChainID: 31337}))
		f.client.EXPECT().BalanceOf(gomock.Any(), usdcAddr, bob).Return(big.NewInt(1000), nil)
		f.client.EXPECT().BalanceOf(gomock.Any(), wethAddr, bob).Return(big.NewInt(50), nil)
		_, err := f.store.RefreshBalances(context.Background(), bob)
		require.NoError(t, err)

		res, err := f.exec.Swap(context.Background(), bob, in, f.observe)
		require.Nil(t, res)
		require.True(t, errors.Is(err, apperrors.ErrStaleQuote), "got %v", err)
		require.False(t, in.Consumed())
		require.Empty(t, f.events)
	})

	t.Run("intent built on the latest snapshot", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.store.Invalidate(common.Address{}, f.pool.ID)
		in := f.intent(100)
		in.QuoteVersion = f.store.LatestVersion(f.pool.ID)

		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, aggAddr).Return(big.NewInt(100), nil)
		f.expectSwap(in).Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx, Success: true, AmountOut: big.NewInt(9)}, nil), nil)

		_, err := f.exec.Swap(context.Background(), alice, in, nil)
		require.NoError(t, err)
	})
}

func TestExecutor_AddLiquidity(t *testing.T) {
	t.Parallel()

	t.Run("approves the short token in contract order", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		amountUSDC, amountWETH := big.NewInt(500), big.NewInt(5)

		f.client.EXPECT().GetReserves(gomock.Any(), poolAddr).Return(chain.Reserves{
			Token1: wethAddr, Token2: usdcAddr, Reserve1: big.NewInt(10), Reserve2: big.NewInt(1000),
		}, nil)
		f.client.EXPECT().Allowance(gomock.Any(), wethAddr, alice, poolAddr).Return(big.NewInt(5), nil)
		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, poolAddr).Return(big.NewInt(0), nil)
		f.client.EXPECT().Approve(gomock.Any(), alice, usdcAddr, poolAddr, math.MaxBig256).
			Return(f.handle(approveTx, &chain.Receipt{Success: true}, nil), nil)
		f.client.EXPECT().Allowance(gomock.Any(), usdcAddr, alice, poolAddr).Return(math.MaxBig256, nil)
		f.client.EXPECT().AddLiquidity(gomock.Any(), alice, poolAddr, amountWETH, amountUSDC).
			Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx, Success: true, Shares: big.NewInt(70)}, nil), nil)

		res, err := f.exec.AddLiquidity(context.Background(), alice, f.pool, amountUSDC, amountWETH, f.observe)
		require.NoError(t, err)
		require.Equal(t, []common.Hash{approveTx}, res.ApprovalTxs)
		require.Equal(t, "70", res.Receipt.Shares.String())
		require.Equal(t, []Phase{PhaseNeedsApproval, PhaseApproving, PhaseReadyToSwap, PhaseSwapping, PhaseDone}, f.phases())

		_, ok := f.store.Balances(alice)
		require.False(t, ok)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		_, err := f.exec.AddLiquidity(context.Background(), alice, f.pool, big.NewInt(0), big.NewInt(1), nil)
		require.True(t, errors.Is(err, apperrors.ErrInvalidAmount))

		_, err = f.exec.AddLiquidity(context.Background(), alice, f.pool, big.NewInt(1), big.NewInt(51), nil)
		require.True(t, errors.Is(err, apperrors.ErrInsufficientBalance))
	})

	t.Run("liquidity call reverts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.client.EXPECT().GetReserves(gomock.Any(), poolAddr).Return(chain.Reserves{Token1: usdcAddr, Token2: wethAddr}, nil)
		f.client.EXPECT().Allowance(gomock.Any(), gomock.Any(), alice, poolAddr).Return(big.NewInt(1000), nil).Times(2)
		f.client.EXPECT().AddLiquidity(gomock.Any(), alice, poolAddr, big.NewInt(10), big.NewInt(1)).
			Return(nil, errors.Wrap(apperrors.ErrTransactionReverted, "ratio"))

		_, err := f.exec.AddLiquidity(context.Background(), alice, f.pool, big.NewInt(10), big.NewInt(1), nil)
		var stepErr *apperrors.StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, apperrors.StepLiquidity, stepErr.Step)
	})
}

func TestExecutor_RemoveLiquidity(t *testing.T) {
	t.Parallel()

	t.Run("burns shares", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.client.EXPECT().Shares(gomock.Any(), poolAddr, alice).Return(big.NewInt(70), nil)
		f.client.EXPECT().RemoveLiquidity(gomock.Any(), alice, poolAddr, big.NewInt(30)).
			Return(f.handle(swapTx, &chain.Receipt{Hash: swapTx, Success: true, Amount1: big.NewInt(3), Amount2: big.NewInt(300)}, nil), nil)

		res, err := f.exec.RemoveLiquidity(context.Background(), alice, f.pool, big.NewInt(30), f.observe)
		require.NoError(t, err)
		require.Equal(t, "300", res.Receipt.Amount2.String())
		require.Equal(t, []Phase{PhaseReadyToSwap, PhaseSwapping, PhaseDone}, f.phases())
	})

	t.Run("more than held", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.client.EXPECT().Shares(gomock.Any(), poolAddr, alice).Return(big.NewInt(10), nil)

		_, err := f.exec.RemoveLiquidity(context.Background(), alice, f.pool, big.NewInt(30), nil)
		require.True(t, errors.Is(err, apperrors.ErrInsufficientBalance))
	})

	t.Run("zero shares", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.exec.RemoveLiquidity(context.Background(), alice, f.pool, new(big.Int), nil)
		require.True(t, errors.Is(err, apperrors.ErrInvalidAmount))
	})
}

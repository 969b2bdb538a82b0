package http

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/config"
	"github.com/fleshka4/dex-aggregator/internal/dexmath"
	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/infra/wallet"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	sdto "github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/service/mock"
	"github.com/fleshka4/dex-aggregator/internal/swap"
	"github.com/fleshka4/dex-aggregator/internal/token"
	"github.com/fleshka4/dex-aggregator/internal/transport/http/dto"
)

var (
	usdc = token.Token{Symbol: "USDC", Address: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), Decimals: 6}
	weth = token.Token{Symbol: "WETH", Address: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"), Decimals: 18}
	amm1 = token.Pool{ID: "amm1", Address: common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"), TokenA: usdc, TokenB: weth, FeeBps: 30}

	account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func newTestServer(t *testing.T) (*Server, *mock.MockService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := mock.NewMockService(ctrl)
	return NewServer(svc, config.Config{RequestTimeout: time.Second, GraceTimeout: time.Second}, zap.NewNop()), svc
}

func do(t *testing.T, s *Server, method, target, body string) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()

	s.mux.ServeHTTP(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func sampleQuote() *quote.Quote {
	return &quote.Quote{
		TokenIn:        usdc,
		TokenOut:       weth,
		AmountIn:       big.NewInt(2_000_000_000),
		AmountOut:      big.NewInt(990_000_000_000_000_000),
		PriceImpactBps: 100,
		DerivedFrom:    quote.PoolReserves{Pool: amm1, Version: 7},
		Authoritative:  big.NewInt(1_000_000_000_000_000_000),
		Route:          amm1.Address,
	}
}

func sampleIntent() *swap.Intent {
	return &swap.Intent{
		ID:           uuid.New(),
		TokenIn:      usdc,
		TokenOut:     weth,
		AmountIn:     big.NewInt(2_000_000_000),
		AmountOut:    big.NewInt(1_000_000_000_000_000_000),
		MinAmountOut: big.NewInt(995_000_000_000_000_000),
		Recipient:    account,
		SlippageBps:  50,
		Pool:         amm1,
		Route:        amm1.Address,
		Deadline:     time.Now().Add(time.Minute),
		QuoteVersion: 7,
	}
}

func TestPingHandler(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	code, body := do(t, s, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pong", string(body))
}

func TestTokensHandler(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)
	svc.EXPECT().Tokens().Return([]token.Token{usdc, weth})

	code, body := do(t, s, http.MethodGet, "/tokens", "")
	require.Equal(t, http.StatusOK, code)

	var out []dto.Token
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 2)
	require.Equal(t, "USDC", out[0].Symbol)
	require.Equal(t, weth.Address.Hex(), out[1].Address)

	code, _ = do(t, s, http.MethodPost, "/tokens", "")
	require.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestQuoteHandler(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		s, svc := newTestServer(t)
		svc.EXPECT().
			Quote(gomock.Any(), sdto.QuoteRequest{From: "USDC", To: "WETH", Amount: "2000"}).
			Return(sampleQuote(), nil)

		code, body := do(t, s, http.MethodGet, "/quote?from=USDC&to=WETH&amount=2000", "")
		require.Equal(t, http.StatusOK, code)

		var out dto.QuoteResponse
		require.NoError(t, json.Unmarshal(body, &out))
		require.Equal(t, "990000000000000000", out.AmountOut)
		require.Equal(t, "1000000000000000000", out.Authoritative)
		require.Equal(t, "1", out.AmountOutView)
		require.Equal(t, "amm1", out.Pool)
		require.Equal(t, uint64(7), out.Version)
		require.Equal(t, int64(100), out.PriceImpactBps)
	})

	t.Run("missing params", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		code, _ := do(t, s, http.MethodGet, "/quote?from=USDC", "")
		require.Equal(t, http.StatusBadRequest, code)
	})

	errCases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown token", errors.Wrap(apperrors.ErrUnknownToken, "DAI"), http.StatusBadRequest},
		{"no liquidity", apperrors.ErrInsufficientLiquidity, http.StatusBadRequest},
		{"aggregator down", errors.Wrap(apperrors.ErrNetwork, "client.BestPrice"), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, svc := newTestServer(t)
			svc.EXPECT().Quote(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			code, body := do(t, s, http.MethodGet, "/quote?from=USDC&to=WETH&amount=1", "")
			require.Equal(t, tc.code, code)

			var out dto.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			if tc.code == http.StatusInternalServerError {
				require.Equal(t, "internal error", out.Error)
			} else {
				require.Contains(t, out.Error, tc.err.Error())
			}
		})
	}
}

func TestIntentAndSwapHandlers(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)

	in := sampleIntent()
	svc.EXPECT().
		BuildIntent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req sdto.IntentRequest) (*swap.Intent, *quote.Quote, error) {
			require.Equal(t, "2000", req.Amount)
			require.Equal(t, 50, *req.SlippageBps)
			return in, sampleQuote(), nil
		})

	code, body := do(t, s, http.MethodPost, "/intents",
		`{"from":"USDC","to":"WETH","amount":"2000","slippage_bps":50}`)
	require.Equal(t, http.StatusCreated, code)

	var created dto.IntentResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, in.ID.String(), created.ID)
	require.Equal(t, "995000000000000000", created.MinAmountOut)
	require.Equal(t, 1, s.intents.len())

	approveTx := common.HexToHash("0x01")
	swapTx := common.HexToHash("0x02")
	svc.EXPECT().
		Swap(gomock.Any(), in, gomock.Any()).
		DoAndReturn(func(_ context.Context, got *swap.Intent, obs executor.Observer) (*executor.Result, error) {
			require.NoError(t, got.Consume())
			obs(executor.Event{Phase: executor.PhaseNeedsApproval})
			obs(executor.Event{Phase: executor.PhaseApproving, TxHash: approveTx})
			obs(executor.Event{Phase: executor.PhaseReadyToSwap})
			obs(executor.Event{Phase: executor.PhaseSwapping, TxHash: swapTx})
			obs(executor.Event{Phase: executor.PhaseDone, TxHash: swapTx})
			return &executor.Result{
				ApprovalTxs: []common.Hash{approveTx},
				TxHash:      swapTx,
				Receipt: &chain.Receipt{
					Hash: swapTx, Success: true, Block: 12, GasUsed: 90_000,
					AmountOut: big.NewInt(999_000_000_000_000_000),
				},
			}, nil
		})

	code, body = do(t, s, http.MethodPost, "/swaps", `{"intent_id":"`+created.ID+`"}`)
	require.Equal(t, http.StatusOK, code)

	var tx dto.TxResponse
	require.NoError(t, json.Unmarshal(body, &tx))
	require.Equal(t, []string{"needs_approval", "approving", "ready_to_swap", "swapping", "done"}, tx.Phases)
	require.Equal(t, []string{approveTx.Hex()}, tx.ApprovalTxs)
	require.Equal(t, swapTx.Hex(), tx.TxHash)
	require.Equal(t, "999000000000000000", tx.AmountOut)
	require.Equal(t, uint64(12), tx.Block)

	// a submitted intent is gone
	code, _ = do(t, s, http.MethodPost, "/swaps", `{"intent_id":"`+created.ID+`"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, 0, s.intents.len())
}

func TestSwapHandlerErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown intent", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		code, _ := do(t, s, http.MethodPost, "/swaps", `{"intent_id":"`+uuid.NewString()+`"}`)
		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run("bad id", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		code, _ := do(t, s, http.MethodPost, "/swaps", `{"intent_id":"nope"}`)
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejected before submission keeps the intent", func(t *testing.T) {
		t.Parallel()

		s, svc := newTestServer(t)
		in := sampleIntent()
		s.intents.put(in)

		svc.EXPECT().Swap(gomock.Any(), in, gomock.Any()).
			Return(nil, errors.Wrap(apperrors.ErrInsufficientBalance, "USDC"))

		code, _ := do(t, s, http.MethodPost, "/swaps", `{"intent_id":"`+in.ID.String()+`"}`)
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, 1, s.intents.len())
	})

	t.Run("reverted swap reports step and tx", func(t *testing.T) {
		t.Parallel()

		s, svc := newTestServer(t)
		in := sampleIntent()
		s.intents.put(in)

		swapTx := common.HexToHash("0x0b")
		svc.EXPECT().Swap(gomock.Any(), in, gomock.Any()).
			DoAndReturn(func(_ context.Context, got *swap.Intent, _ executor.Observer) (*executor.Result, error) {
				require.NoError(t, got.Consume())
				return &executor.Result{TxHash: swapTx},
					apperrors.AtStep(apperrors.StepSwap, errors.Wrap(apperrors.ErrTransactionReverted, "tx"))
			})

		code, body := do(t, s, http.MethodPost, "/swaps", `{"intent_id":"`+in.ID.String()+`"}`)
		require.Equal(t, http.StatusUnprocessableEntity, code)

		var out dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &out))
		require.Equal(t, string(apperrors.StepSwap), out.Step)
		require.Equal(t, swapTx.Hex(), out.TxHash)
		require.Equal(t, 0, s.intents.len())
	})

	t.Run("rejected approval", func(t *testing.T) {
		t.Parallel()

		s, svc := newTestServer(t)
		in := sampleIntent()
		s.intents.put(in)

		svc.EXPECT().Swap(gomock.Any(), in, gomock.Any()).
			DoAndReturn(func(_ context.Context, got *swap.Intent, _ executor.Observer) (*executor.Result, error) {
				require.NoError(t, got.Consume())
				return &executor.Result{}, apperrors.AtStep(apperrors.StepApproval, apperrors.ErrUserRejected)
			})

		code, body := do(t, s, http.MethodPost, "/swaps", `{"intent_id":"`+in.ID.String()+`"}`)
		require.Equal(t, http.StatusForbidden, code)

		var out dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &out))
		require.Equal(t, string(apperrors.StepApproval), out.Step)
		require.Empty(t, out.TxHash)
	})
}

func TestBalancesHandler(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)
	svc.EXPECT().Balances(gomock.Any()).Return([]sdto.TokenBalance{
		{Token: usdc, Amount: big.NewInt(1_500_000)},
		{Token: weth, Amount: big.NewInt(0)},
	}, nil)
	svc.EXPECT().Identity().Return(wallet.Identity{Account: account, ChainID: 31337})

	code, body := do(t, s, http.MethodGet, "/balances", "")
	require.Equal(t, http.StatusOK, code)

	var out dto.BalancesResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, account.Hex(), out.Account)
	require.Equal(t, int64(31337), out.ChainID)
	require.Equal(t, []dto.Balance{
		{Symbol: "USDC", Amount: "1500000", Display: "1.5"},
		{Symbol: "WETH", Amount: "0", Display: "0"},
	}, out.Balances)
}

func TestPricesHandler(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		s, svc := newTestServer(t)
		svc.EXPECT().Prices(gomock.Any()).Return([]sdto.Price{
			{From: usdc, To: weth, AmountIn: big.NewInt(1_000_000), AmountOut: big.NewInt(495_123_456_789_000), Route: amm1.Address, PoolID: "amm1"},
			{From: weth, To: usdc, AmountIn: big.NewInt(1_000_000_000_000_000_000), AmountOut: big.NewInt(2_010_500_000), Route: amm1.Address, PoolID: "amm1"},
		}, nil)

		code, body := do(t, s, http.MethodGet, "/prices", "")
		require.Equal(t, http.StatusOK, code)

		var out []dto.PriceResponse
		require.NoError(t, json.Unmarshal(body, &out))
		require.Equal(t, []dto.PriceResponse{
			{From: "USDC", To: "WETH", AmountIn: "1000000", AmountOut: "495123456789000", AmountOutView: "0.0004", Pool: "amm1", Route: amm1.Address.Hex()},
			{From: "WETH", To: "USDC", AmountIn: "1000000000000000000", AmountOut: "2010500000", AmountOutView: "2010.5", Pool: "amm1", Route: amm1.Address.Hex()},
		}, out)
	})

	t.Run("wrong chain", func(t *testing.T) {
		t.Parallel()

		s, svc := newTestServer(t)
		svc.EXPECT().Prices(gomock.Any()).Return(nil, errors.Wrap(apperrors.ErrUnsupportedChain, "chain 1"))

		code, _ := do(t, s, http.MethodGet, "/prices", "")
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)

		code, _ := do(t, s, http.MethodPost, "/prices", "")
		require.Equal(t, http.StatusMethodNotAllowed, code)
	})
}

func TestBalancesHandlerNoAccount(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)
	svc.EXPECT().Balances(gomock.Any()).Return(nil, apperrors.ErrNoAccount)

	code, _ := do(t, s, http.MethodGet, "/balances", "")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRefreshHandler(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)
	svc.EXPECT().Refresh(gomock.Any()).Return(nil)

	code, _ := do(t, s, http.MethodPost, "/refresh", "")
	require.Equal(t, http.StatusNoContent, code)

	svc.EXPECT().Refresh(gomock.Any()).Return(context.DeadlineExceeded)
	code, _ = do(t, s, http.MethodPost, "/refresh", "")
	require.Equal(t, http.StatusGatewayTimeout, code)
}

func TestPositionHandler(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)
	svc.EXPECT().Position(gomock.Any(), "amm1").Return(&sdto.Position{
		Pool:        amm1,
		Shares:      big.NewInt(250),
		TotalShares: big.NewInt(1000),
		Share: dexmath.Share{
			Bps:     2500,
			AmountA: big.NewInt(50_000_000_000),
			AmountB: new(big.Int).Mul(big.NewInt(25), big.NewInt(1_000_000_000_000_000_000)),
		},
	}, nil)

	code, body := do(t, s, http.MethodGet, "/positions?pool=amm1", "")
	require.Equal(t, http.StatusOK, code)

	var out dto.PositionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, int64(2500), out.ShareBps)
	require.Equal(t, "50000", out.AmountA)
	require.Equal(t, "25", out.AmountB)
}

func TestLiquidityHandlers(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)

	tx := common.HexToHash("0x0c")
	svc.EXPECT().
		AddLiquidity(gomock.Any(), sdto.AddLiquidityRequest{PoolID: "amm1", AmountA: "2000"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ sdto.AddLiquidityRequest, obs executor.Observer) (*executor.Result, error) {
			obs(executor.Event{Phase: executor.PhaseDone, TxHash: tx})
			return &executor.Result{TxHash: tx, Receipt: &chain.Receipt{Hash: tx, Success: true, Shares: big.NewInt(44)}}, nil
		})

	code, body := do(t, s, http.MethodPost, "/liquidity/add", `{"pool":"amm1","amount_a":"2000"}`)
	require.Equal(t, http.StatusOK, code)

	var out dto.TxResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, "44", out.Shares)
	require.Equal(t, []string{"done"}, out.Phases)

	svc.EXPECT().
		RemoveLiquidity(gomock.Any(), sdto.RemoveLiquidityRequest{PoolID: "amm1", Shares: "44"}, gomock.Any()).
		Return(&executor.Result{TxHash: tx}, apperrors.AtStep(apperrors.StepLiquidity, apperrors.ErrTransactionReverted))

	code, body = do(t, s, http.MethodPost, "/liquidity/remove", `{"pool":"amm1","shares":"44"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)

	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	require.Equal(t, string(apperrors.StepLiquidity), e.Step)
	require.Equal(t, tx.Hex(), e.TxHash)

	code, _ = do(t, s, http.MethodPost, "/liquidity/remove", `{"pool":"amm1","shares":"1.5"}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestChainHandler(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t)
	svc.EXPECT().SwitchChain(gomock.Any(), int64(11155111)).Return(nil)
	svc.EXPECT().SwitchChain(gomock.Any(), int64(1)).Return(errors.Wrap(apperrors.ErrUnsupportedChain, "chain 1"))

	code, _ := do(t, s, http.MethodPost, "/chain", `{"chain_id":11155111}`)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = do(t, s, http.MethodPost, "/chain", `{"chain_id":1}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestLogMiddleware(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctrl := gomock.NewController(t)
	s := NewServer(mock.NewMockService(ctrl), config.Config{}, zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	w := httptest.NewRecorder()
	s.logMiddleware(s.mux).ServeHTTP(w, req)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/nowhere", fields["path"])
	require.Equal(t, int64(http.StatusNotFound), fields["status"])
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/ping"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && bytes.Equal(body, []byte("pong"))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

package validate

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func TestQuoteRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		queryParams    map[string]string
		method         string
		expectedStatus int
		wantErr        assert.ErrorAssertionFunc
	}{
		{
			name:           "valid request",
			queryParams:    map[string]string{"from": "USDC", "to": "WETH", "amount": "1.5"},
			method:         http.MethodGet,
			expectedStatus: 0,
			wantErr:        assert.NoError,
		},
		{
			name:           "wrong http method",
			queryParams:    map[string]string{"from": "USDC", "to": "WETH", "amount": "1.5"},
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
			wantErr:        assert.Error,
		},
		{
			name:           "missing from parameter",
			queryParams:    map[string]string{"to": "WETH", "amount": "1.5"},
			method:         http.MethodGet,
			expectedStatus: http.StatusBadRequest,
			wantErr:        assert.Error,
		},
		{
			name:           "missing amount parameter",
			queryParams:    map[string]string{"from": "USDC", "to": "WETH"},
			method:         http.MethodGet,
			expectedStatus: http.StatusBadRequest,
			wantErr:        assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := url.Values{}
			for k, v := range tt.queryParams {
				q.Set(k, v)
			}
			req := httptest.NewRequest(tt.method, "/quote?"+q.Encode(), nil)

			got, code, err := QuoteRequestValidate(req)
			tt.wantErr(t, err)
			assert.Equal(t, tt.expectedStatus, code)
			if err == nil {
				assert.Equal(t, "USDC", got.From)
				assert.Equal(t, "1.5", got.Amount)
			}
		})
	}
}

func TestIntentRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		wantErr        assert.ErrorAssertionFunc
	}{
		{
			name:    "minimal body",
			body:    `{"from":"USDC","to":"WETH","amount":"10"}`,
			wantErr: assert.NoError,
		},
		{
			name:    "with slippage and recipient",
			body:    `{"from":"USDC","to":"WETH","amount":"10","slippage_bps":100,"recipient":"` + recipient + `"}`,
			wantErr: assert.NoError,
		},
		{
			name:           "bad recipient",
			body:           `{"from":"USDC","to":"WETH","amount":"10","recipient":"0x123"}`,
			expectedStatus: http.StatusBadRequest,
			wantErr:        assert.Error,
		},
		{
			name:           "unknown field",
			body:           `{"from":"USDC","to":"WETH","amount":"10","pool":"amm1"}`,
			expectedStatus: http.StatusBadRequest,
			wantErr:        assert.Error,
		},
		{
			name:           "missing amount",
			body:           `{"from":"USDC","to":"WETH"}`,
			expectedStatus: http.StatusBadRequest,
			wantErr:        assert.Error,
		},
		{
			name:           "not json",
			body:           `from=USDC`,
			expectedStatus: http.StatusBadRequest,
			wantErr:        assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/intents", strings.NewReader(tt.body))
			_, code, err := IntentRequestValidate(req)
			tt.wantErr(t, err)
			assert.Equal(t, tt.expectedStatus, code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/intents",
		strings.NewReader(`{"from":"USDC","to":"WETH","amount":"10","slippage_bps":100,"recipient":"`+recipient+`"}`))
	got, _, err := IntentRequestValidate(req)
	require.NoError(t, err)
	require.Equal(t, 100, *got.SlippageBps)
	require.Equal(t, common.HexToAddress(recipient), got.Recipient)
}

func TestSwapRequestValidate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got, code, err := SwapRequestValidate(httptest.NewRequest(http.MethodPost, "/swaps",
		strings.NewReader(`{"intent_id":"`+id.String()+`"}`)))
	require.NoError(t, err)
	require.Zero(t, code)
	require.Equal(t, id, got)

	_, code, err = SwapRequestValidate(httptest.NewRequest(http.MethodPost, "/swaps", strings.NewReader(`{"intent_id":"nope"}`)))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, code)

	_, code, err = SwapRequestValidate(httptest.NewRequest(http.MethodGet, "/swaps", nil))
	require.Error(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestLiquidityRequestValidate(t *testing.T) {
	t.Parallel()

	add, _, err := AddLiquidityRequestValidate(httptest.NewRequest(http.MethodPost, "/liquidity/add",
		strings.NewReader(`{"pool":"amm1","amount_a":"2000"}`)))
	require.NoError(t, err)
	require.Equal(t, "amm1", add.PoolID)
	require.Empty(t, add.AmountB)

	_, code, err := AddLiquidityRequestValidate(httptest.NewRequest(http.MethodPost, "/liquidity/add",
		strings.NewReader(`{"amount_a":"2000"}`)))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, code)

	rm, _, err := RemoveLiquidityRequestValidate(httptest.NewRequest(http.MethodPost, "/liquidity/remove",
		strings.NewReader(`{"pool":"amm2","shares":"1000000000000000000000"}`)))
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", rm.Shares)

	_, code, err = RemoveLiquidityRequestValidate(httptest.NewRequest(http.MethodPost, "/liquidity/remove",
		strings.NewReader(`{"pool":"amm2","shares":"-1"}`)))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, code)

	pool, _, err := PositionRequestValidate(httptest.NewRequest(http.MethodGet, "/positions?pool=amm1", nil))
	require.NoError(t, err)
	require.Equal(t, "amm1", pool)

	_, code, err = PositionRequestValidate(httptest.NewRequest(http.MethodGet, "/positions", nil))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestChainRequestValidate(t *testing.T) {
	t.Parallel()

	id, _, err := ChainRequestValidate(httptest.NewRequest(http.MethodPost, "/chain", strings.NewReader(`{"chain_id":11155111}`)))
	require.NoError(t, err)
	require.Equal(t, int64(11155111), id)

	_, code, err := ChainRequestValidate(httptest.NewRequest(http.MethodPost, "/chain", strings.NewReader(`{"chain_id":0}`)))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, code)
}

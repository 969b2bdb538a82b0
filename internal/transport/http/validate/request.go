package validate

import (
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	sdto "github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/transport/http/dto"
)

const maxBodyBytes = 1 << 16

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func method(r *http.Request, want string) (int, error) {
	if r.Method != want {
		return http.StatusMethodNotAllowed, errors.Errorf("method %s not allowed", r.Method)
	}
	return 0, nil
}

func decode(r *http.Request, v any) (int, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return http.StatusBadRequest, errors.Wrap(err, "bad json body")
	}
	return 0, nil
}

// QuoteRequestValidate validates /quote request and returns dto.
func QuoteRequestValidate(r *http.Request) (*sdto.QuoteRequest, int, error) {
	if code, err := method(r, http.MethodGet); err != nil {
		return nil, code, err
	}
	q := r.URL.Query()
	from := q.Get("from")
	to := q.Get("to")
	amt := q.Get("amount")
	if from == "" || to == "" || amt == "" {
		return nil, http.StatusBadRequest, errors.New("missing params")
	}
	return &sdto.QuoteRequest{From: from, To: to, Amount: amt}, 0, nil
}

// IntentRequestValidate validates POST /intents request and returns dto.
func IntentRequestValidate(r *http.Request) (*sdto.IntentRequest, int, error) {
	if code, err := method(r, http.MethodPost); err != nil {
		return nil, code, err
	}
	var body dto.IntentRequest
	if code, err := decode(r, &body); err != nil {
		return nil, code, err
	}
	if body.From == "" || body.To == "" || body.Amount == "" {
		return nil, http.StatusBadRequest, errors.New("from, to and amount are required")
	}

	req := &sdto.IntentRequest{
		QuoteRequest: sdto.QuoteRequest{From: body.From, To: body.To, Amount: body.Amount},
		SlippageBps:  body.SlippageBps,
	}
	if body.Recipient != "" {
		if !common.IsHexAddress(body.Recipient) {
			return nil, http.StatusBadRequest, errors.New("bad recipient format")
		}
		req.Recipient = common.HexToAddress(body.Recipient)
	}
	return req, 0, nil
}

// SwapRequestValidate validates POST /swaps request and returns the intent id.
func SwapRequestValidate(r *http.Request) (uuid.UUID, int, error) {
	if code, err := method(r, http.MethodPost); err != nil {
		return uuid.Nil, code, err
	}
	var body dto.SwapRequest
	if code, err := decode(r, &body); err != nil {
		return uuid.Nil, code, err
	}
	id, err := uuid.Parse(body.IntentID)
	if err != nil {
		return uuid.Nil, http.StatusBadRequest, errors.New("bad intent_id")
	}
	return id, 0, nil
}

// PositionRequestValidate validates /positions request and returns the pool id.
func PositionRequestValidate(r *http.Request) (string, int, error) {
	if code, err := method(r, http.MethodGet); err != nil {
		return "", code, err
	}
	pool := strings.TrimSpace(r.URL.Query().Get("pool"))
	if pool == "" {
		return "", http.StatusBadRequest, errors.New("missing pool")
	}
	return pool, 0, nil
}

// AddLiquidityRequestValidate validates POST /liquidity/add request and returns dto.
func AddLiquidityRequestValidate(r *http.Request) (*sdto.AddLiquidityRequest, int, error) {
	if code, err := method(r, http.MethodPost); err != nil {
		return nil, code, err
	}
	var body dto.AddLiquidityRequest
	if code, err := decode(r, &body); err != nil {
		return nil, code, err
	}
	if body.Pool == "" || body.AmountA == "" {
		return nil, http.StatusBadRequest, errors.New("pool and amount_a are required")
	}
	return &sdto.AddLiquidityRequest{PoolID: body.Pool, AmountA: body.AmountA, AmountB: body.AmountB}, 0, nil
}

// RemoveLiquidityRequestValidate validates POST /liquidity/remove request and returns dto.
func RemoveLiquidityRequestValidate(r *http.Request) (*sdto.RemoveLiquidityRequest, int, error) {
	if code, err := method(r, http.MethodPost); err != nil {
		return nil, code, err
	}
	var body dto.RemoveLiquidityRequest
	if code, err := decode(r, &body); err != nil {
		return nil, code, err
	}
	if body.Pool == "" || body.Shares == "" {
		return nil, http.StatusBadRequest, errors.New("pool and shares are required")
	}
	if !isDigits(body.Shares) {
		return nil, http.StatusBadRequest, errors.New("bad shares")
	}
	return &sdto.RemoveLiquidityRequest{PoolID: body.Pool, Shares: body.Shares}, 0, nil
}

// ChainRequestValidate validates POST /chain request and returns the chain id.
func ChainRequestValidate(r *http.Request) (int64, int, error) {
	if code, err := method(r, http.MethodPost); err != nil {
		return 0, code, err
	}
	var body dto.ChainRequest
	if code, err := decode(r, &body); err != nil {
		return 0, code, err
	}
	if body.ChainID <= 0 {
		return 0, http.StatusBadRequest, errors.New("bad chain_id")
	}
	return body.ChainID, 0, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

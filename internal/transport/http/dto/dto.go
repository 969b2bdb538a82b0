package dto

// Token is a registry entry.
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Logo     string `json:"logo,omitempty"`
}

// QuoteResponse is the body of GET /quote. Amounts are base-unit integer
// strings; the *Display fields are truncated for display.
type QuoteResponse struct {
	From           string `json:"from"`
	To             string `json:"to"`
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`
	AmountOutView  string `json:"amount_out_display"`
	Authoritative  string `json:"authoritative_amount_out,omitempty"`
	PriceImpactBps int64  `json:"price_impact_bps"`
	Severity       string `json:"severity"`
	Pool           string `json:"pool"`
	Route          string `json:"route,omitempty"`
	Version        uint64 `json:"reserves_version"`
}

// PriceResponse is one entry of GET /prices: what one whole unit of From
// currently buys.
type PriceResponse struct {
	From          string `json:"from"`
	To            string `json:"to"`
	AmountIn      string `json:"amount_in"`
	AmountOut     string `json:"amount_out"`
	AmountOutView string `json:"amount_out_display"`
	Pool          string `json:"pool,omitempty"`
	Route         string `json:"route"`
}

// IntentRequest is the body of POST /intents.
type IntentRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	SlippageBps *int   `json:"slippage_bps,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
}

// IntentResponse is the body of a created intent.
type IntentResponse struct {
	ID           string        `json:"id"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	AmountIn     string        `json:"amount_in"`
	AmountOut    string        `json:"amount_out"`
	MinAmountOut string        `json:"min_amount_out"`
	MinOutView   string        `json:"min_amount_out_display"`
	SlippageBps  int           `json:"slippage_bps"`
	Recipient    string        `json:"recipient"`
	Pool         string        `json:"pool"`
	Deadline     string        `json:"deadline,omitempty"`
	Quote        QuoteResponse `json:"quote"`
}

// SwapRequest is the body of POST /swaps.
type SwapRequest struct {
	IntentID string `json:"intent_id"`
}

// TxResponse reports a finished transaction sequence.
type TxResponse struct {
	Phases      []string `json:"phases"`
	ApprovalTxs []string `json:"approval_txs,omitempty"`
	TxHash      string   `json:"tx_hash,omitempty"`
	Block       uint64   `json:"block,omitempty"`
	GasUsed     uint64   `json:"gas_used,omitempty"`
	AmountOut   string   `json:"amount_out,omitempty"`
	Amount1     string   `json:"amount1,omitempty"`
	Amount2     string   `json:"amount2,omitempty"`
	Shares      string   `json:"shares,omitempty"`
}

// Balance is one token balance of the session account.
type Balance struct {
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

// BalancesResponse is the body of GET /balances.
type BalancesResponse struct {
	Account  string    `json:"account"`
	ChainID  int64     `json:"chain_id"`
	Balances []Balance `json:"balances"`
}

// PositionResponse is the body of GET /positions.
type PositionResponse struct {
	Pool        string `json:"pool"`
	Shares      string `json:"shares"`
	TotalShares string `json:"total_shares"`
	ShareBps    int64  `json:"share_bps"`
	AmountA     string `json:"amount_a"`
	AmountB     string `json:"amount_b"`
}

// AddLiquidityRequest is the body of POST /liquidity/add.
type AddLiquidityRequest struct {
	Pool    string `json:"pool"`
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b,omitempty"`
}

// RemoveLiquidityRequest is the body of POST /liquidity/remove.
type RemoveLiquidityRequest struct {
	Pool   string `json:"pool"`
	Shares string `json:"shares"`
}

// ChainRequest is the body of POST /chain.
type ChainRequest struct {
	ChainID int64 `json:"chain_id"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
	// TxHash is set when a transaction was sent before the failure.
	TxHash string `json:"tx_hash,omitempty"`
}

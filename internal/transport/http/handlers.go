package http

import (
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fleshka4/dex-aggregator/internal/amount"
	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	"github.com/fleshka4/dex-aggregator/internal/swap"
	"github.com/fleshka4/dex-aggregator/internal/transport/http/dto"
	"github.com/fleshka4/dex-aggregator/internal/transport/http/validate"
)

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tokens := s.svc.Tokens()
	out := make([]dto.Token, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, dto.Token{
			Symbol:   t.Symbol,
			Name:     t.Name,
			Address:  t.Address.Hex(),
			Decimals: t.Decimals,
			Logo:     t.Logo,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, code, err := validate.QuoteRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	q, err := s.svc.Quote(ctx, *req)
	if err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}

	s.writeJSON(w, http.StatusOK, quoteResponse(q))
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	req, code, err := validate.IntentRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	in, q, err := s.svc.BuildIntent(ctx, *req)
	if err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}
	s.intents.put(in)

	s.writeJSON(w, http.StatusCreated, intentResponse(in, q))
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	id, code, err := validate.SwapRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}

	in, ok := s.intents.take(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "unknown or already submitted intent"})
		return
	}

	var phases []string
	res, err := s.svc.Swap(r.Context(), in, func(e executor.Event) {
		phases = append(phases, string(e.Phase))
	})
	if err != nil {
		if !in.Consumed() {
			// rejected before submission, so the intent can still be used
			s.intents.put(in)
		}
		s.writeError(w, err, lastTx(res))
		return
	}

	s.writeJSON(w, http.StatusOK, txResponse(phases, res))
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	balances, err := s.svc.Balances(ctx)
	if err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}

	id := s.svc.Identity()
	out := dto.BalancesResponse{
		Account:  id.Account.Hex(),
		ChainID:  id.ChainID,
		Balances: make([]dto.Balance, 0, len(balances)),
	}
	for _, b := range balances {
		out.Balances = append(out.Balances, dto.Balance{
			Symbol:  b.Token.Symbol,
			Amount:  b.Amount.String(),
			Display: amount.Format(b.Amount, b.Token.Decimals),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	prices, err := s.svc.Prices(ctx)
	if err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}

	out := make([]dto.PriceResponse, 0, len(prices))
	for _, p := range prices {
		out = append(out, dto.PriceResponse{
			From:          p.From.Symbol,
			To:            p.To.Symbol,
			AmountIn:      p.AmountIn.String(),
			AmountOut:     p.AmountOut.String(),
			AmountOutView: amount.Format(p.AmountOut, p.To.Decimals),
			Pool:          p.PoolID,
			Route:         p.Route.Hex(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.svc.Refresh(ctx); err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	poolID, code, err := validate.PositionRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	pos, err := s.svc.Position(ctx, poolID)
	if err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}

	s.writeJSON(w, http.StatusOK, dto.PositionResponse{
		Pool:        pos.Pool.ID,
		Shares:      pos.Shares.String(),
		TotalShares: pos.TotalShares.String(),
		ShareBps:    pos.Share.Bps,
		AmountA:     amount.FormatFull(pos.Share.AmountA, pos.Pool.TokenA.Decimals),
		AmountB:     amount.FormatFull(pos.Share.AmountB, pos.Pool.TokenB.Decimals),
	})
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	req, code, err := validate.AddLiquidityRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}

	var phases []string
	res, err := s.svc.AddLiquidity(r.Context(), *req, func(e executor.Event) {
		phases = append(phases, string(e.Phase))
	})
	if err != nil {
		s.writeError(w, err, lastTx(res))
		return
	}
	s.writeJSON(w, http.StatusOK, txResponse(phases, res))
}

func (s *Server) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	req, code, err := validate.RemoveLiquidityRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}

	var phases []string
	res, err := s.svc.RemoveLiquidity(r.Context(), *req, func(e executor.Event) {
		phases = append(phases, string(e.Phase))
	})
	if err != nil {
		s.writeError(w, err, lastTx(res))
		return
	}
	s.writeJSON(w, http.StatusOK, txResponse(phases, res))
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	chainID, code, err := validate.ChainRequestValidate(r)
	if err != nil {
		s.badRequest(w, code, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err = s.svc.SwitchChain(ctx, chainID); err != nil {
		s.writeError(w, err, common.Hash{})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func quoteResponse(q *quote.Quote) dto.QuoteResponse {
	resp := dto.QuoteResponse{
		From:           q.TokenIn.Symbol,
		To:             q.TokenOut.Symbol,
		AmountIn:       q.AmountIn.String(),
		AmountOut:      q.AmountOut.String(),
		AmountOutView:  amount.Format(q.Expected(), q.TokenOut.Decimals),
		PriceImpactBps: q.PriceImpactBps,
		Severity:       string(q.Severity()),
		Pool:           q.Pool().ID,
		Version:        q.DerivedFrom.Version,
	}
	if q.Authoritative != nil {
		resp.Authoritative = q.Authoritative.String()
	}
	if q.Route != (common.Address{}) {
		resp.Route = q.Route.Hex()
	}
	return resp
}

func intentResponse(in *swap.Intent, q *quote.Quote) dto.IntentResponse {
	resp := dto.IntentResponse{
		ID:           in.ID.String(),
		From:         in.TokenIn.Symbol,
		To:           in.TokenOut.Symbol,
		AmountIn:     in.AmountIn.String(),
		AmountOut:    in.AmountOut.String(),
		MinAmountOut: in.MinAmountOut.String(),
		MinOutView:   amount.Format(in.MinAmountOut, in.TokenOut.Decimals),
		SlippageBps:  in.SlippageBps,
		Recipient:    in.Recipient.Hex(),
		Pool:         in.Pool.ID,
		Quote:        quoteResponse(q),
	}
	if !in.Deadline.IsZero() {
		resp.Deadline = in.Deadline.UTC().Format(time.RFC3339)
	}
	return resp
}

func txResponse(phases []string, res *executor.Result) dto.TxResponse {
	resp := dto.TxResponse{
		Phases: phases,
		TxHash: res.TxHash.Hex(),
	}
	for _, h := range res.ApprovalTxs {
		resp.ApprovalTxs = append(resp.ApprovalTxs, h.Hex())
	}
	if rcpt := res.Receipt; rcpt != nil {
		resp.Block = rcpt.Block
		resp.GasUsed = rcpt.GasUsed
		resp.AmountOut = intString(rcpt.AmountOut)
		resp.Amount1 = intString(rcpt.Amount1)
		resp.Amount2 = intString(rcpt.Amount2)
		resp.Shares = intString(rcpt.Shares)
	}
	return resp
}

func intString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// lastTx is the most recent transaction a failed sequence sent.
func lastTx(res *executor.Result) common.Hash {
	if res == nil {
		return common.Hash{}
	}
	if res.TxHash != (common.Hash{}) {
		return res.TxHash
	}
	if n := len(res.ApprovalTxs); n > 0 {
		return res.ApprovalTxs[n-1]
	}
	return common.Hash{}
}

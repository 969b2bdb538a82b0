package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/amount"
	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/service/validate"
	"github.com/fleshka4/dex-aggregator/internal/swap"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// Quote prices req against the most recently completed reserve snapshots of
// every pool trading the pair, then asks the aggregator for its
// authoritative output.
func (s *Session) Quote(ctx context.Context, req dto.QuoteRequest) (*quote.Quote, error) {
	if err := validate.QuoteRequestValidate(req); err != nil {
		return nil, err
	}
	if _, err := s.ready(); err != nil {
		return nil, err
	}

	in, out, amountIn, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	pools := s.reg.PoolsFor(in.Address, out.Address)
	if len(pools) == 0 {
		return nil, errors.Wrapf(apperrors.ErrInsufficientLiquidity, "no pool trades %s/%s", in.Symbol, out.Symbol)
	}

	snaps := make([]quote.PoolReserves, 0, len(pools))
	for _, p := range pools {
		snap, err := s.store.AwaitReserves(ctx, p.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "reserves of %s", p.ID)
		}
		snaps = append(snaps, snap)
	}

	q, err := quote.Best(snaps, in.Address, amountIn)
	if err != nil {
		return nil, err
	}

	authoritative, route, err := s.client.BestPrice(ctx, in.Address, out.Address, amountIn)
	if err != nil {
		return nil, errors.Wrap(err, "client.BestPrice")
	}

	// Follow the aggregator's route so the quote's snapshot belongs to the
	// pool the swap will go through.
	if p, ok := s.reg.PoolByAddress(route); ok && p.ID != q.Pool().ID {
		for _, snap := range snaps {
			if snap.Pool.ID != p.ID {
				continue
			}
			if routed, err := quote.New(snap, in.Address, amountIn); err == nil {
				q = routed
			}
			break
		}
	}

	q = q.WithAuthoritative(authoritative, route)

	s.log.Debug("quote",
		zap.String("pair", in.Symbol+"/"+out.Symbol),
		zap.Stringer("amount_in", amountIn),
		zap.Stringer("estimate", q.AmountOut),
		zap.Stringer("authoritative", authoritative),
		zap.String("pool", q.Pool().ID),
		zap.Int64("impact_bps", q.PriceImpactBps))

	return q, nil
}

// BuildIntent quotes req and turns the quote into a single-use swap intent.
func (s *Session) BuildIntent(ctx context.Context, req dto.IntentRequest) (*swap.Intent, *quote.Quote, error) {
	if err := validate.IntentRequestValidate(req); err != nil {
		return nil, nil, err
	}

	q, err := s.Quote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, nil, err
	}

	slippage := s.slippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}

	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = s.Identity().Account
	}

	in, err := s.builder.Build(q, slippage, recipient)
	if err != nil {
		return nil, q, err
	}

	return in, q, nil
}

func (s *Session) resolve(req dto.QuoteRequest) (in, out token.Token, amountIn *big.Int, err error) {
	if in, err = s.reg.Token(req.From); err != nil {
		return in, out, nil, err
	}
	if out, err = s.reg.Token(req.To); err != nil {
		return in, out, nil, err
	}
	if amountIn, err = amount.Parse(req.Amount, in.Decimals); err != nil {
		return in, out, nil, err
	}
	if amountIn.Sign() == 0 {
		return in, out, nil, errors.Wrap(apperrors.ErrInvalidAmount, "amount must be positive")
	}
	return in, out, amountIn, nil
}

package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleshka4/dex-aggregator/internal/amount"
	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// pricesParallelism bounds the aggregator calls of one price board.
const pricesParallelism = 8

// Prices asks the aggregator for one unit of every registered token in each
// token it shares a pool with. Pairs the aggregator fails to price are left
// out; Prices fails only when none could be priced.
func (s *Session) Prices(ctx context.Context) ([]dto.Price, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}

	type pair struct {
		from, to token.Token
	}
	var pairs []pair
	tokens := s.reg.Tokens()
	for _, from := range tokens {
		for _, to := range tokens {
			if from.Address != to.Address && len(s.reg.PoolsFor(from.Address, to.Address)) > 0 {
				pairs = append(pairs, pair{from: from, to: to})
			}
		}
	}

	var (
		mu     sync.Mutex
		prices = make([]*dto.Price, len(pairs))
		errs   error
	)

	var g errgroup.Group
	g.SetLimit(pricesParallelism)
	for i, p := range pairs {
		g.Go(func() error {
			unit, err := amount.Parse("1", p.from.Decimals)
			if err != nil {
				return err
			}

			out, route, err := s.client.BestPrice(ctx, p.from.Address, p.to.Address, unit)
			if err != nil {
				s.log.Warn("pair not priced", zap.String("pair", p.from.Symbol+"/"+p.to.Symbol), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, errors.Wrapf(err, "%s/%s", p.from.Symbol, p.to.Symbol))
				mu.Unlock()
				return nil
			}

			price := &dto.Price{From: p.from, To: p.to, AmountIn: unit, AmountOut: out, Route: route}
			if pool, ok := s.reg.PoolByAddress(route); ok {
				price.PoolID = pool.ID
			}
			prices[i] = price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]dto.Price, 0, len(prices))
	for _, p := range prices {
		if p != nil {
			out = append(out, *p)
		}
	}
	if len(out) == 0 && errs != nil {
		return nil, errs
	}
	return out, nil
}

// VerifyTokens reads every registered token's metadata from chain and fails
// when its decimals differ from the registry's, since every amount of that
// token would be scaled wrong. A differing symbol is only logged.
func (s *Session) VerifyTokens(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.reg.Tokens() {
		g.Go(func() error {
			md, err := s.client.TokenMetadata(gctx, t.Address)
			if err != nil {
				return errors.Wrapf(err, "token %s", t.Symbol)
			}
			if md.Decimals != t.Decimals {
				return errors.Wrapf(apperrors.ErrInvalidArgument,
					"token %s at %s has %d decimals on chain, %d configured", t.Symbol, t.Address.Hex(), md.Decimals, t.Decimals)
			}
			if md.Symbol != t.Symbol {
				s.log.Warn("token symbol differs from chain",
					zap.String("configured", t.Symbol),
					zap.String("on_chain", md.Symbol),
					zap.String("address", t.Address.Hex()))
			}
			return nil
		})
	}
	return g.Wait()
}

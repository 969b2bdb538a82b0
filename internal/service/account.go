package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
	"github.com/fleshka4/dex-aggregator/internal/swap"
)

// Swap submits in for the session account. An intent that can no longer be
// submitted is rejected before anything is loaded. Balances are loaded when
// nothing is cached so the balance check has something to check against.
func (s *Session) Swap(ctx context.Context, in *swap.Intent, obs executor.Observer) (*executor.Result, error) {
	id, err := s.account()
	if err != nil {
		return nil, err
	}
	if _, err = s.exec.CheckIntent(id.Account, in); err != nil {
		return nil, err
	}
	if _, err = s.store.EnsureBalances(ctx, id.Account); err != nil {
		return nil, errors.Wrap(err, "load balances")
	}
	return s.exec.Swap(ctx, id.Account, in, obs)
}

// Balances returns the session account's balance of every registered token.
func (s *Session) Balances(ctx context.Context) ([]dto.TokenBalance, error) {
	id, err := s.account()
	if err != nil {
		return nil, err
	}

	snap, err := s.store.EnsureBalances(ctx, id.Account)
	if err != nil {
		return nil, err
	}

	tokens := s.reg.Tokens()
	out := make([]dto.TokenBalance, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, dto.TokenBalance{Token: t, Amount: snap.Of(t.Address)})
	}
	return out, nil
}

// Refresh reloads the session account's balances and every pool's reserves.
func (s *Session) Refresh(ctx context.Context) error {
	id, err := s.ready()
	if err != nil {
		return err
	}

	var (
		wg           sync.WaitGroup
		balErr, rErr error
	)

	if id.Connected() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, balErr = s.store.RefreshBalances(ctx, id.Account)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		rErr = s.store.RefreshPools(ctx)
	}()

	wg.Wait()

	return multierr.Combine(balErr, rErr)
}

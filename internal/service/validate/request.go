package validate

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
)

// QuoteRequestValidate validates business logic request.
func QuoteRequestValidate(req dto.QuoteRequest) error {
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		return errors.Wrap(apperrors.ErrInvalidArgument, "token symbol cannot be empty")
	}

	if strings.EqualFold(strings.TrimSpace(req.From), strings.TrimSpace(req.To)) {
		return errors.Wrap(apperrors.ErrInvalidArgument, "cannot swap a token for itself")
	}

	if strings.TrimSpace(req.Amount) == "" {
		return errors.Wrap(apperrors.ErrInvalidAmount, "amount cannot be empty")
	}

	return nil
}

// IntentRequestValidate validates an intent request.
func IntentRequestValidate(req dto.IntentRequest) error {
	if err := QuoteRequestValidate(req.QuoteRequest); err != nil {
		return err
	}

	if req.SlippageBps != nil && (*req.SlippageBps < 0 || *req.SlippageBps > 10_000) {
		return errors.Wrapf(apperrors.ErrInvalidSlippage, "slippage %d bps", *req.SlippageBps)
	}

	return nil
}

// AddLiquidityRequestValidate validates an add-liquidity request.
func AddLiquidityRequestValidate(req dto.AddLiquidityRequest) error {
	if req.PoolID == "" {
		return errors.Wrap(apperrors.ErrInvalidArgument, "pool cannot be empty")
	}

	if strings.TrimSpace(req.AmountA) == "" {
		return errors.Wrap(apperrors.ErrInvalidAmount, "amount cannot be empty")
	}

	return nil
}

// RemoveLiquidityRequestValidate validates a remove-liquidity request.
func RemoveLiquidityRequestValidate(req dto.RemoveLiquidityRequest) error {
	if req.PoolID == "" {
		return errors.Wrap(apperrors.ErrInvalidArgument, "pool cannot be empty")
	}

	if strings.TrimSpace(req.Shares) == "" {
		return errors.Wrap(apperrors.ErrInvalidAmount, "shares cannot be empty")
	}

	return nil
}

package http

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/transport/http/dto"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrInvalidSlippage),
		errors.Is(err, apperrors.ErrInsufficientLiquidity),
		errors.Is(err, apperrors.ErrInsufficientBalance),
		errors.Is(err, apperrors.ErrAllowanceInsufficient),
		errors.Is(err, apperrors.ErrUnknownToken),
		errors.Is(err, apperrors.ErrUnsupportedChain),
		errors.Is(err, apperrors.ErrNoAccount):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrStaleQuote),
		errors.Is(err, apperrors.ErrIntentConsumed),
		errors.Is(err, apperrors.ErrSessionChanged):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrTransactionReverted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and a JSON body. txHash is the last
// transaction sent before the failure, if any.
func (s *Server) writeError(w http.ResponseWriter, err error, txHash common.Hash) {
	status := statusFor(err)

	body := dto.ErrorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		body.Error = "internal error"
	}

	var stepErr *apperrors.StepError
	if errors.As(err, &stepErr) {
		body.Step = string(stepErr.Step)
	}
	if txHash != (common.Hash{}) {
		body.TxHash = txHash.Hex()
	}

	s.writeJSON(w, status, body)
}

func (s *Server) badRequest(w http.ResponseWriter, code int, err error) {
	if code == 0 {
		code = http.StatusBadRequest
	}
	s.writeJSON(w, code, dto.ErrorResponse{Error: err.Error()})
}

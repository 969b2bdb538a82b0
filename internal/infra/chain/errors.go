package chain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
)

// classify maps an RPC failure onto the error taxonomy: reverts become
// ErrTransactionReverted with the decoded reason, transport failures become
// ErrNetwork. Errors the node answered with otherwise keep their message.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}
	if reason, ok := revertReason(err); ok {
		return errors.Wrapf(apperrors.ErrTransactionReverted, "%s: %s", op, reason)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return errors.Wrap(err, op)
	}

	return errors.Wrapf(apperrors.ErrNetwork, "%s: %v", op, err)
}

func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hex, ok := dataErr.ErrorData().(string); ok {
			if reason, uerr := abi.UnpackRevert(common.FromHex(hex)); uerr == nil {
				return reason, true
			}
		}
	}

	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "execution reverted") {
		return msg, true
	}

	return "", false
}

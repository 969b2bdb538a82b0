package apperrors

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned when the request parameters are invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAmount is returned when an amount is empty, malformed, negative,
	// zero where a positive value is required, or more precise than the token allows.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidSlippage is returned when a slippage tolerance is outside [0, 10000] bps.
	ErrInvalidSlippage = errors.New("invalid slippage")

	// ErrInsufficientLiquidity is returned when the pool does not have enough
	// reserves to satisfy the requested swap.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrStaleQuote is returned when a quote was computed from reserves that have
	// since been refreshed or invalidated.
	ErrStaleQuote = errors.New("stale quote")

	// ErrInsufficientBalance is returned when the account holds less than the swap input.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAllowanceInsufficient is returned when the spender allowance still does not
	// cover the amount after the approval was mined.
	ErrAllowanceInsufficient = errors.New("allowance insufficient")

	// ErrUserRejected is returned when the wallet declines to sign.
	ErrUserRejected = errors.New("user rejected")

	// ErrTransactionReverted is returned when the chain rejects a call.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrNetwork is returned when the RPC endpoint is unreachable or misbehaves.
	ErrNetwork = errors.New("network error")

	// ErrSessionChanged is returned when the account or chain switched while an
	// operation was in flight; its result was discarded.
	ErrSessionChanged = errors.New("session changed")

	// ErrIntentConsumed is returned when a swap intent is submitted twice.
	ErrIntentConsumed = errors.New("intent already consumed")

	// ErrUnsupportedChain is returned when the wallet cannot switch to the requested chain.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrNoAccount is returned when no wallet account is connected.
	ErrNoAccount = errors.New("no connected account")

	// ErrUnknownToken is returned for symbols or pools missing from the registry.
	ErrUnknownToken = errors.New("unknown token")
)

// Package amount converts between human-readable decimal strings and the
// fixed-point integers tokens are denominated in on chain.
package amount

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
)

// DisplayPrecision is the number of fractional digits Format keeps.
const DisplayPrecision = 4

var numeric = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// Parse converts a decimal string into a fixed-point integer scaled by
// 10^decimals. Inputs with more significant fractional digits than decimals
// are rejected rather than truncated. Trailing fractional zeros are accepted.
func Parse(input string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidAmount, "empty input")
	}
	if !numeric.MatchString(s) {
		return nil, errors.Wrapf(apperrors.ErrInvalidAmount, "not a non-negative decimal: %q", input)
	}

	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac := strings.TrimRight(s[i+1:], "0")
		if len(frac) > int(decimals) {
			return nil, errors.Wrapf(apperrors.ErrInvalidAmount,
				"%q has %d fractional digits, token allows %d", input, len(frac), decimals)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrInvalidAmount, "decimal.NewFromString: %v", err)
	}

	v := d.Shift(int32(decimals)).BigInt()
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, errors.Wrapf(apperrors.ErrInvalidAmount, "%q exceeds uint256", input)
	}

	return v, nil
}

// Format renders v with at most DisplayPrecision fractional digits,
// truncating toward zero so a balance is never shown larger than it is.
func Format(v *big.Int, decimals uint8) string {
	return ToDecimal(v, decimals).Truncate(DisplayPrecision).String()
}

// FormatFull renders v exactly. Parse(FormatFull(v, d), d) returns v.
func FormatFull(v *big.Int, decimals uint8) string {
	return ToDecimal(v, decimals).String()
}

// ToDecimal returns v scaled down by 10^decimals.
func ToDecimal(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

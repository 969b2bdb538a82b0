package quote

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

var (
	sefi  = token.Token{Symbol: "SEFI", Address: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), Decimals: 18}
	chloe = token.Token{Symbol: "CHLOE", Address: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"), Decimals: 18}
	zoe   = token.Token{Symbol: "ZOE", Address: common.HexToAddress("0x5FC8d32690cc91D4c39d9d3abcBD16989F875707"), Decimals: 18}
)

func snapshot(id string, fee uint32, ra, rb int64) PoolReserves {
	return PoolReserves{
		Pool: token.Pool{
			ID:      id,
			Address: common.BytesToAddress([]byte(id)),
			TokenA:  sefi,
			TokenB:  chloe,
			FeeBps:  fee,
		},
		ReserveA: big.NewInt(ra),
		ReserveB: big.NewInt(rb),
		AsOf:     time.Unix(1_700_000_000, 0),
		Version:  1,
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	res, err := Compute(big.NewInt(1000), big.NewInt(10000), big.NewInt(10000), 30)
	require.NoError(t, err)
	require.Equal(t, "906", res.AmountOut.String())
	require.Positive(t, res.PriceImpactBps)
	require.Equal(t, int64(940), res.PriceImpactBps)
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      *big.Int
		rIn     *big.Int
		rOut    *big.Int
		fee     uint32
		wantErr error
	}{
		{name: "zero amount", in: big.NewInt(0), rIn: big.NewInt(10), rOut: big.NewInt(10), fee: 30, wantErr: apperrors.ErrInvalidAmount},
		{name: "negative amount", in: big.NewInt(-1), rIn: big.NewInt(10), rOut: big.NewInt(10), fee: 30, wantErr: apperrors.ErrInvalidAmount},
		{name: "nil amount", in: nil, rIn: big.NewInt(10), rOut: big.NewInt(10), fee: 30, wantErr: apperrors.ErrInvalidAmount},
		{name: "empty reserve in", in: big.NewInt(100), rIn: big.NewInt(0), rOut: big.NewInt(500), fee: 30, wantErr: apperrors.ErrInsufficientLiquidity},
		{name: "empty reserve out", in: big.NewInt(100), rIn: big.NewInt(500), rOut: big.NewInt(0), fee: 30, wantErr: apperrors.ErrInsufficientLiquidity},
		{name: "output rounds to zero", in: big.NewInt(1), rIn: big.NewInt(1_000_000), rOut: big.NewInt(10), fee: 30, wantErr: apperrors.ErrInsufficientLiquidity},
		{name: "fee too large", in: big.NewInt(100), rIn: big.NewInt(500), rOut: big.NewInt(500), fee: 10_000, wantErr: apperrors.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Compute(tt.in, tt.rIn, tt.rOut, tt.fee)
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNew_Orientation(t *testing.T) {
	t.Parallel()

	snap := snapshot("amm1", 30, 10000, 40000)

	q, err := New(snap, sefi.Address, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, "SEFI", q.TokenIn.Symbol)
	require.Equal(t, "CHLOE", q.TokenOut.Symbol)
	// 40000*997/10997 = 3626
	require.Equal(t, "3626", q.AmountOut.String())
	require.Equal(t, "amm1", q.Pool().ID)

	q, err = New(snap, chloe.Address, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, "CHLOE", q.TokenIn.Symbol)
	require.Equal(t, "SEFI", q.TokenOut.Symbol)
	// 10000*997/40997 = 243
	require.Equal(t, "243", q.AmountOut.String())

	_, err = New(snap, zoe.Address, big.NewInt(1000))
	require.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
}

func TestNew_CopiesAmount(t *testing.T) {
	t.Parallel()

	in := big.NewInt(1000)
	q, err := New(snapshot("amm1", 30, 10000, 10000), sefi.Address, in)
	require.NoError(t, err)

	in.SetInt64(1)
	require.Equal(t, "1000", q.AmountIn.String())
}

func TestBest(t *testing.T) {
	t.Parallel()

	t.Run("picks largest output", func(t *testing.T) {
		t.Parallel()

		snaps := []PoolReserves{
			snapshot("amm1", 30, 10000, 10000),
			snapshot("amm2", 30, 10000, 12000),
		}
		q, err := Best(snaps, sefi.Address, big.NewInt(1000))
		require.NoError(t, err)
		require.Equal(t, "amm2", q.Pool().ID)
	})

	t.Run("tie keeps first", func(t *testing.T) {
		t.Parallel()

		snaps := []PoolReserves{
			snapshot("amm1", 30, 10000, 10000),
			snapshot("amm2", 30, 10000, 10000),
		}
		q, err := Best(snaps, sefi.Address, big.NewInt(1000))
		require.NoError(t, err)
		require.Equal(t, "amm1", q.Pool().ID)
	})

	t.Run("skips empty pool", func(t *testing.T) {
		t.Parallel()

		snaps := []PoolReserves{
			snapshot("amm1", 30, 0, 0),
			snapshot("amm2", 30, 10000, 10000),
		}
		q, err := Best(snaps, sefi.Address, big.NewInt(1000))
		require.NoError(t, err)
		require.Equal(t, "amm2", q.Pool().ID)
	})

	t.Run("all empty", func(t *testing.T) {
		t.Parallel()

		_, err := Best([]PoolReserves{snapshot("amm1", 30, 0, 0)}, sefi.Address, big.NewInt(1000))
		require.True(t, errors.Is(err, apperrors.ErrInsufficientLiquidity))
	})

	t.Run("no pools", func(t *testing.T) {
		t.Parallel()

		_, err := Best(nil, sefi.Address, big.NewInt(1000))
		require.True(t, errors.Is(err, apperrors.ErrInsufficientLiquidity))
	})

	t.Run("invalid amount short-circuits", func(t *testing.T) {
		t.Parallel()

		_, err := Best([]PoolReserves{snapshot("amm1", 30, 10, 10)}, sefi.Address, big.NewInt(0))
		require.True(t, errors.Is(err, apperrors.ErrInvalidAmount))
	})
}

func TestQuote_Expected(t *testing.T) {
	t.Parallel()

	q, err := New(snapshot("amm1", 30, 10000, 10000), sefi.Address, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, "906", q.Expected().String())

	route := common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	withAuth := q.WithAuthoritative(big.NewInt(904), route)
	require.Equal(t, "904", withAuth.Expected().String())
	require.Equal(t, route, withAuth.Route)
	require.Nil(t, q.Authoritative, "original quote is not modified")
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, SeverityLow, Classify(0))
	require.Equal(t, SeverityLow, Classify(299))
	require.Equal(t, SeverityWarning, Classify(300))
	require.Equal(t, SeverityHigh, Classify(500))
	require.Equal(t, SeverityInvalid, Classify(1000))

	q := &Quote{PriceImpactBps: 940}
	require.Equal(t, SeverityHigh, q.Severity())
}

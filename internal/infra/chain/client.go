package chain

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/config"
)

//go:generate mockgen -destination=mock/backend.go -package=mock . Backend,Signer
//go:generate mockgen -destination=clientmock/client.go -package=clientmock . Client,TxHandle

// Client is the chain interface the swap core talks to: read-only views on
// the token, pool and aggregator contracts plus the state-changing calls.
type Client interface {
	// PoolTokens returns the addresses of token1 and token2 for a pool contract.
	PoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error)
	// GetReserves returns the pool's reserves in contract order.
	GetReserves(ctx context.Context, pool common.Address) (Reserves, error)
	// GetAmountOut is the pool's own quote for selling amountIn of tokenIn.
	GetAmountOut(ctx context.Context, pool common.Address, amountIn *big.Int, tokenIn common.Address) (*big.Int, error)
	// BestPrice is the aggregator's quote and the pool it would route through.
	BestPrice(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, common.Address, error)
	BalanceOf(ctx context.Context, tokenAddr, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, tokenAddr, owner, spender common.Address) (*big.Int, error)
	Shares(ctx context.Context, pool, account common.Address) (*big.Int, error)
	TotalShares(ctx context.Context, pool common.Address) (*big.Int, error)
	// TokenMetadata reads a token's name, symbol and decimals.
	TokenMetadata(ctx context.Context, tokenAddr common.Address) (TokenMetadata, error)

	// WatchPools reports pools whose reserves changed on chain.
	WatchPools(ctx context.Context, pools []common.Address, sink chan<- common.Address) (event.Subscription, error)

	Approve(ctx context.Context, from, tokenAddr, spender common.Address, amount *big.Int) (TxHandle, error)
	Swap(ctx context.Context, from common.Address, call SwapCall) (TxHandle, error)
	AddLiquidity(ctx context.Context, from, pool common.Address, amount1, amount2 *big.Int) (TxHandle, error)
	RemoveLiquidity(ctx context.Context, from, pool common.Address, shares *big.Int) (TxHandle, error)

	// Aggregator is the address swaps are sent to and approvals granted to.
	Aggregator() common.Address
}

// EthCaller represents interface for calling contracts.
type EthCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Backend is the subset of an RPC client needed to read state, follow
// logs and send transactions. *ethclient.Client implements it.
type Backend interface {
	EthCaller
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer signs transactions on behalf of an account. Declining to sign must
// be reported as apperrors.ErrUserRejected.
type Signer interface {
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error)
}

// Reserves are a pool's balances in contract order.
type Reserves struct {
	Token1   common.Address
	Token2   common.Address
	Reserve1 *big.Int
	Reserve2 *big.Int
}

// TokenMetadata is what an ERC-20 contract reports about itself.
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// SwapCall are the arguments of the aggregator's swap.
type SwapCall struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Recipient    common.Address
}

// Options configure the client.
type Options struct {
	Aggregator  common.Address
	CallTimeout time.Duration
	ReceiptPoll time.Duration
	// PoolPoll is how often pool logs are polled when the endpoint does not
	// support subscriptions.
	PoolPoll time.Duration
	Gas      config.GasLimits
}

type ethClientImpl struct {
	backend Backend
	signer  Signer

	erc20ABI      abi.ABI
	ammABI        abi.ABI
	aggregatorABI abi.ABI

	opts Options

	// pool token pairs never change once deployed.
	poolTokens sync.Map
}

// NewClient creates a new Client backed by an Ethereum RPC connection.
func NewClient(rpcURL string, signer Signer, opts Options) (Client, error) {
	backend, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "ethclient.Dial")
	}

	return newClientWithBackend(backend, signer, opts)
}

func newClientWithBackend(backend Backend, signer Signer, opts Options) (*ethClientImpl, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "abi.JSON erc20")
	}
	ammABI, err := abi.JSON(strings.NewReader(ammABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "abi.JSON amm")
	}
	aggregatorABI, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "abi.JSON aggregator")
	}

	if opts.ReceiptPoll <= 0 {
		opts.ReceiptPoll = time.Second
	}
	if opts.PoolPoll <= 0 {
		opts.PoolPoll = 4 * time.Second
	}

	return &ethClientImpl{
		backend: backend,
		signer:  signer,

		erc20ABI:      erc20ABI,
		ammABI:        ammABI,
		aggregatorABI: aggregatorABI,

		opts: opts,
	}, nil
}

func (c *ethClientImpl) Aggregator() common.Address {
	return c.opts.Aggregator
}

func (c *ethClientImpl) call(ctx context.Context, contract *abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrap(err, "contract.Pack")
	}

	if c.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	res, err := c.backend.CallContract(
		ctx,
		ethereum.CallMsg{
			To:   &to,
			Data: data,
		},
		nil,
	)
	if err != nil {
		return nil, classify(err, "c.backend.CallContract "+method)
	}

	out, err := contract.Unpack(method, res)
	if err != nil {
		return nil, errors.Wrap(err, "contract.Unpack")
	}

	return out, nil
}

func (c *ethClientImpl) callBig(ctx context.Context, contract *abi.ABI, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, contract, to, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.Errorf("empty output from %s", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("failed to cast %s result to *big.Int", method)
	}
	return v, nil
}

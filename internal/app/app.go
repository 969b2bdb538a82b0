// Package app assembles the swap session from a config file.
package app

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/config"
	"github.com/fleshka4/dex-aggregator/internal/infra/chain"
	"github.com/fleshka4/dex-aggregator/internal/infra/wallet"
	"github.com/fleshka4/dex-aggregator/internal/logging"
	"github.com/fleshka4/dex-aggregator/internal/service"
	"github.com/fleshka4/dex-aggregator/internal/token"
)

// DefaultConfigPath is used when CONFIG_PATH is unset.
const DefaultConfigPath = "cfg/config.yaml"

// App is a started session with its dependencies.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Wallet  *wallet.KeyWallet
	Session *service.Session
}

// ConfigPath returns CONFIG_PATH or the default.
func ConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return DefaultConfigPath
}

// Options adjust how New assembles the session.
type Options struct {
	// LogLevel overrides the configured level when non-empty.
	LogLevel string
	// Account is connected instead of the first configured key.
	Account common.Address
	// Confirm prompts before signing unless wallet.auto_confirm is set.
	Confirm wallet.ConfirmFunc
}

// New loads the config at path and starts a session on it.
func New(path string, opts Options) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "config.Load")
	}
	logLevel := cfg.LogLevel
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}

	log, err := logging.New(logLevel)
	if err != nil {
		return nil, errors.Wrap(err, "logging.New")
	}

	reg, err := token.NewRegistry(cfg.Tokens, cfg.Pools)
	if err != nil {
		return nil, errors.Wrap(err, "token.NewRegistry")
	}

	w, err := wallet.NewKeyWallet(cfg.Wallet, cfg.ChainID, cfg.SupportedChains, log.Named("wallet"))
	if err != nil {
		return nil, errors.Wrap(err, "wallet.NewKeyWallet")
	}
	if opts.Account != (common.Address{}) {
		if err = w.Select(opts.Account); err != nil {
			return nil, err
		}
	}
	if opts.Confirm != nil && !cfg.Wallet.AutoConfirm {
		w.SetConfirm(opts.Confirm)
	}

	client, err := chain.NewClient(cfg.RPCURL, w, chain.Options{
		Aggregator:  common.HexToAddress(cfg.Aggregator),
		CallTimeout: cfg.CallTimeout,
		ReceiptPoll: cfg.ReceiptPoll,
		PoolPoll:    cfg.PoolPoll,
		Gas:         cfg.Gas,
	})
	if err != nil {
		return nil, errors.Wrap(err, "chain.NewClient")
	}

	session := service.New(cfg, reg, client, w, log.Named("session"))
	if !cfg.SkipTokenCheck {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		err = session.VerifyTokens(ctx)
		cancel()
		if err != nil {
			return nil, errors.Wrap(err, "session.VerifyTokens")
		}
	}
	if err = session.Start(); err != nil {
		return nil, errors.Wrap(err, "session.Start")
	}

	log.Info("session started",
		zap.String("rpc", cfg.RPCURL),
		zap.Int64("chain_id", cfg.ChainID),
		zap.Int("tokens", len(reg.Tokens())),
		zap.Int("pools", len(reg.Pools())))

	return &App{Config: cfg, Log: log, Wallet: w, Session: session}, nil
}

// Close stops the session and flushes the logger.
func (a *App) Close() {
	a.Session.Close()
	_ = a.Log.Sync()
}

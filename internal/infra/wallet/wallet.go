// Package wallet provides the account and signing collaborator of a session.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/config"
)

// Identity is the connected account and chain. A zero Account means no
// account is connected.
type Identity struct {
	Account common.Address
	ChainID int64
}

// Connected reports whether an account is selected.
func (i Identity) Connected() bool {
	return i.Account != (common.Address{})
}

// Wallet exposes the connected account, the current chain and signing.
type Wallet interface {
	Identity() Identity
	SwitchChain(ctx context.Context, chainID int64) error
	// SubscribeIdentity delivers every account or chain change to ch.
	SubscribeIdentity(ch chan<- Identity) event.Subscription
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error)
}

// ConfirmFunc asks the user to approve a transaction before it is signed.
type ConfirmFunc func(ctx context.Context, from common.Address, tx *types.Transaction) bool

// KeyWallet signs with private keys loaded from configuration.
type KeyWallet struct {
	mu        sync.RWMutex
	keys      map[common.Address]*ecdsa.PrivateKey
	accounts  []common.Address
	identity  Identity
	supported map[int64]struct{}
	confirm   ConfirmFunc

	feed event.Feed
	log  *zap.Logger
}

// NewKeyWallet loads the configured keys and connects the first one. Empty
// entries are skipped, so a wallet without keys starts disconnected.
func NewKeyWallet(cfg config.WalletConfig, chainID int64, supported []int64, log *zap.Logger) (*KeyWallet, error) {
	w := &KeyWallet{
		keys:      make(map[common.Address]*ecdsa.PrivateKey, len(cfg.PrivateKeys)),
		identity:  Identity{ChainID: chainID},
		supported: make(map[int64]struct{}, len(supported)+1),
		log:       log,
	}

	for _, id := range supported {
		w.supported[id] = struct{}{}
	}
	w.supported[chainID] = struct{}{}

	for i, hex := range cfg.PrivateKeys {
		hex = strings.TrimPrefix(strings.TrimSpace(hex), "0x")
		if hex == "" {
			continue
		}
		key, err := crypto.HexToECDSA(hex)
		if err != nil {
			return nil, errors.Wrapf(err, "private key #%d", i)
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		if _, dup := w.keys[addr]; dup {
			continue
		}
		w.keys[addr] = key
		w.accounts = append(w.accounts, addr)
	}

	if len(w.accounts) > 0 {
		w.identity.Account = w.accounts[0]
	}

	if cfg.AutoConfirm {
		w.confirm = func(context.Context, common.Address, *types.Transaction) bool { return true }
	}

	return w, nil
}

// SetConfirm installs the prompt consulted before signing. A nil prompt
// rejects every transaction unless auto-confirm was configured.
func (w *KeyWallet) SetConfirm(f ConfirmFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.confirm = f
}

// Accounts lists the accounts the wallet can sign for.
func (w *KeyWallet) Accounts() []common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return append([]common.Address(nil), w.accounts...)
}

func (w *KeyWallet) Identity() Identity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.identity
}

// Select connects account.
func (w *KeyWallet) Select(account common.Address) error {
	w.mu.Lock()
	if _, ok := w.keys[account]; !ok {
		w.mu.Unlock()
		return errors.Wrapf(apperrors.ErrNoAccount, "account %s", account.Hex())
	}
	if w.identity.Account == account {
		w.mu.Unlock()
		return nil
	}
	w.identity.Account = account
	id := w.identity
	w.mu.Unlock()

	w.log.Info("account changed", zap.String("account", account.Hex()))
	w.feed.Send(id)

	return nil
}

// Disconnect drops the connected account.
func (w *KeyWallet) Disconnect() {
	w.mu.Lock()
	if !w.identity.Connected() {
		w.mu.Unlock()
		return
	}
	w.identity.Account = common.Address{}
	id := w.identity
	w.mu.Unlock()

	w.log.Info("account disconnected")
	w.feed.Send(id)
}

// SwitchChain moves the wallet to chainID. Chains outside the supported
// list are rejected with apperrors.ErrUnsupportedChain.
func (w *KeyWallet) SwitchChain(_ context.Context, chainID int64) error {
	w.mu.Lock()
	if _, ok := w.supported[chainID]; !ok {
		w.mu.Unlock()
		return errors.Wrapf(apperrors.ErrUnsupportedChain, "chain %d", chainID)
	}
	if w.identity.ChainID == chainID {
		w.mu.Unlock()
		return nil
	}
	w.identity.ChainID = chainID
	id := w.identity
	w.mu.Unlock()

	w.log.Info("chain changed", zap.Int64("chain_id", chainID))
	w.feed.Send(id)

	return nil
}

func (w *KeyWallet) SubscribeIdentity(ch chan<- Identity) event.Subscription {
	return w.feed.Subscribe(ch)
}

// SignTx signs tx for from on the current chain after the confirmation
// prompt approves it.
func (w *KeyWallet) SignTx(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	w.mu.RLock()
	key, ok := w.keys[from]
	connected := w.identity.Account == from
	chainID := w.identity.ChainID
	confirm := w.confirm
	w.mu.RUnlock()

	if !ok || !connected {
		return nil, errors.Wrapf(apperrors.ErrNoAccount, "account %s is not connected", from.Hex())
	}
	if confirm == nil || !confirm(ctx, from, tx) {
		return nil, errors.Wrap(apperrors.ErrUserRejected, "transaction declined")
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), key)
	if err != nil {
		return nil, errors.Wrap(err, "types.SignTx")
	}

	return signed, nil
}

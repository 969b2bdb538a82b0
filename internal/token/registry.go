package token

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/apperrors"
	"github.com/fleshka4/dex-aggregator/internal/config"
)

// Token is an ERC20 token known to the client. Values are immutable once
// loaded into a Registry.
type Token struct {
	Symbol   string
	Name     string
	Address  common.Address
	Decimals uint8
	Logo     string
}

// Pool is a two-token AMM pool.
type Pool struct {
	ID      string
	Address common.Address
	TokenA  Token
	TokenB  Token
	FeeBps  uint32
}

// Has reports whether the pool trades the given token.
func (p Pool) Has(addr common.Address) bool {
	return p.TokenA.Address == addr || p.TokenB.Address == addr
}

// Other returns the counterpart of addr in the pool.
func (p Pool) Other(addr common.Address) (Token, bool) {
	switch addr {
	case p.TokenA.Address:
		return p.TokenB, true
	case p.TokenB.Address:
		return p.TokenA, true
	default:
		return Token{}, false
	}
}

// Registry maps symbols and addresses to tokens and pools.
type Registry struct {
	bySymbol  map[string]Token
	byAddress map[common.Address]Token
	pools     map[string]Pool
	poolAddrs map[common.Address]string
	order     []string
}

// NewRegistry builds a registry from the configured tokens and pools.
func NewRegistry(tokens []config.TokenConfig, pools []config.PoolConfig) (*Registry, error) {
	r := &Registry{
		bySymbol:  make(map[string]Token, len(tokens)),
		byAddress: make(map[common.Address]Token, len(tokens)),
		pools:     make(map[string]Pool, len(pools)),
		poolAddrs: make(map[common.Address]string, len(pools)),
	}

	for _, tc := range tokens {
		if !common.IsHexAddress(tc.Address) {
			return nil, errors.Wrapf(apperrors.ErrInvalidArgument, "token %s address %q", tc.Symbol, tc.Address)
		}
		t := Token{
			Symbol:   strings.ToUpper(tc.Symbol),
			Name:     tc.Name,
			Address:  common.HexToAddress(tc.Address),
			Decimals: tc.Decimals,
			Logo:     tc.Logo,
		}
		if t.Name == "" {
			t.Name = t.Symbol
		}
		if _, ok := r.bySymbol[t.Symbol]; ok {
			return nil, errors.Wrapf(apperrors.ErrInvalidArgument, "duplicate token symbol %s", t.Symbol)
		}
		if _, ok := r.byAddress[t.Address]; ok {
			return nil, errors.Wrapf(apperrors.ErrInvalidArgument, "duplicate token address %s", t.Address.Hex())
		}
		r.bySymbol[t.Symbol] = t
		r.byAddress[t.Address] = t
		r.order = append(r.order, t.Symbol)
	}

	for _, pc := range pools {
		a, err := r.Token(pc.TokenA)
		if err != nil {
			return nil, errors.Wrapf(err, "pool %s", pc.ID)
		}
		b, err := r.Token(pc.TokenB)
		if err != nil {
			return nil, errors.Wrapf(err, "pool %s", pc.ID)
		}
		if a.Address == b.Address {
			return nil, errors.Wrapf(apperrors.ErrInvalidArgument, "pool %s trades %s against itself", pc.ID, a.Symbol)
		}
		if _, ok := r.pools[pc.ID]; ok {
			return nil, errors.Wrapf(apperrors.ErrInvalidArgument, "duplicate pool id %s", pc.ID)
		}
		p := Pool{
			ID:      pc.ID,
			Address: common.HexToAddress(pc.Address),
			TokenA:  a,
			TokenB:  b,
			FeeBps:  pc.FeeBps,
		}
		r.pools[p.ID] = p
		r.poolAddrs[p.Address] = p.ID
	}

	return r, nil
}

// Token looks up a token by symbol, case-insensitively.
func (r *Registry) Token(symbol string) (Token, error) {
	t, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, errors.Wrapf(apperrors.ErrUnknownToken, "symbol %q", symbol)
	}
	return t, nil
}

// ByAddress looks up a token by address.
func (r *Registry) ByAddress(addr common.Address) (Token, bool) {
	t, ok := r.byAddress[addr]
	return t, ok
}

// Tokens returns all tokens in configuration order.
func (r *Registry) Tokens() []Token {
	out := make([]Token, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.bySymbol[s])
	}
	return out
}

// Pool looks up a pool by id.
func (r *Registry) Pool(id string) (Pool, error) {
	p, ok := r.pools[id]
	if !ok {
		return Pool{}, errors.Wrapf(apperrors.ErrUnknownToken, "pool %q", id)
	}
	return p, nil
}

// PoolByAddress looks up a pool by its contract address.
func (r *Registry) PoolByAddress(addr common.Address) (Pool, bool) {
	id, ok := r.poolAddrs[addr]
	if !ok {
		return Pool{}, false
	}
	return r.pools[id], true
}

// PoolsFor returns the pools trading the unordered pair (a, b), sorted by id.
func (r *Registry) PoolsFor(a, b common.Address) []Pool {
	var out []Pool
	for _, p := range r.pools {
		if p.Has(a) && p.Has(b) && a != b {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pools returns all pools sorted by id.
func (r *Registry) Pools() []Pool {
	out := make([]Pool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

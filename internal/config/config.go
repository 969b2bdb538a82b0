package config

import (
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration loaded from file.
type Config struct {
	RPCURL            string        `yaml:"rpc_url"`
	ListenAddr        string        `yaml:"listen_addr"`
	LogLevel          string        `yaml:"log_level"`
	GraceTimeout      time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	ReceiptPoll       time.Duration `yaml:"receipt_poll_interval"`
	PoolPoll          time.Duration `yaml:"pool_poll_interval"`

	ChainID         int64   `yaml:"chain_id"`
	SupportedChains []int64 `yaml:"supported_chains"`

	Aggregator string        `yaml:"aggregator"`
	Tokens     []TokenConfig `yaml:"tokens"`
	Pools      []PoolConfig  `yaml:"pools"`

	SlippageBps int           `yaml:"slippage_bps"`
	Deadline    time.Duration `yaml:"deadline"`
	Gas         GasLimits     `yaml:"gas"`
	Wallet      WalletConfig  `yaml:"wallet"`

	// SkipTokenCheck starts without comparing the registry against the
	// token contracts.
	SkipTokenCheck bool `yaml:"skip_token_check"`
}

// TokenConfig describes one registry entry.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Logo     string `yaml:"logo"`
}

// PoolConfig describes one AMM pool reachable through the aggregator.
type PoolConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
	TokenA  string `yaml:"token_a"`
	TokenB  string `yaml:"token_b"`
	FeeBps  uint32 `yaml:"fee_bps"`
}

// GasLimits are the fallback gas limits used when estimation fails.
type GasLimits struct {
	Approve         uint64 `yaml:"approve"`
	Swap            uint64 `yaml:"swap"`
	AddLiquidity    uint64 `yaml:"add_liquidity"`
	RemoveLiquidity uint64 `yaml:"remove_liquidity"`
}

// WalletConfig configures the key-backed wallet.
type WalletConfig struct {
	PrivateKeys []string `yaml:"private_keys"`
	AutoConfirm bool     `yaml:"auto_confirm"`
}

// Load reads the config from a YAML file path.
// ${VAR} references are expanded from the environment before decoding.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "os.Open")
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse decodes and validates a YAML config, applying fallbacks.
func Parse(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "io.ReadAll")
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	// Fallbacks
	const defaultTimeout = 5 * time.Second
	if c.ListenAddr == "" {
		c.ListenAddr = ":1337"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GraceTimeout == 0 {
		c.GraceTimeout = defaultTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = defaultTimeout
	}
	if c.ReceiptPoll == 0 {
		c.ReceiptPoll = 2 * time.Second
	}
	if c.PoolPoll == 0 {
		c.PoolPoll = 4 * time.Second
	}
	if c.ChainID == 0 {
		c.ChainID = 31337
	}
	if len(c.SupportedChains) == 0 {
		c.SupportedChains = []int64{c.ChainID}
	}
	if c.SlippageBps == 0 {
		c.SlippageBps = 50
	}
	if c.Deadline == 0 {
		c.Deadline = 20 * time.Minute
	}
	if c.Gas.Approve == 0 {
		c.Gas.Approve = 50_000
	}
	if c.Gas.Swap == 0 {
		c.Gas.Swap = 300_000
	}
	if c.Gas.AddLiquidity == 0 {
		c.Gas.AddLiquidity = 500_000
	}
	if c.Gas.RemoveLiquidity == 0 {
		c.Gas.RemoveLiquidity = 400_000
	}
	for i := range c.Pools {
		if c.Pools[i].FeeBps == 0 {
			c.Pools[i].FeeBps = 30
		}
	}
}

// Validate checks the required keys and address formats.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc_url is required in config")
	}
	if !common.IsHexAddress(c.Aggregator) {
		return errors.Errorf("aggregator %q is not a hex address", c.Aggregator)
	}
	if len(c.Tokens) == 0 {
		return errors.New("at least one token is required in config")
	}
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return errors.New("token symbol is required")
		}
		if !common.IsHexAddress(t.Address) {
			return errors.Errorf("token %s: address %q is not a hex address", t.Symbol, t.Address)
		}
	}
	for _, p := range c.Pools {
		if p.ID == "" {
			return errors.New("pool id is required")
		}
		if !common.IsHexAddress(p.Address) {
			return errors.Errorf("pool %s: address %q is not a hex address", p.ID, p.Address)
		}
		if p.FeeBps >= 10_000 {
			return errors.Errorf("pool %s: fee_bps %d out of range", p.ID, p.FeeBps)
		}
	}
	if c.SlippageBps < 0 || c.SlippageBps > 10_000 {
		return errors.Errorf("slippage_bps %d out of range", c.SlippageBps)
	}
	return nil
}

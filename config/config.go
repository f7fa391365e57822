package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	defaultRPCTimeout         = 30 * time.Second
	defaultBlockIndexInterval = 15 * time.Second
	defaultMaxBlockRangeSize  = 5000
	defaultTxConfirmations    = 2
	defaultTxTimeout          = 3 * time.Minute
	defaultRecoveryInterval   = 5 * time.Minute
	defaultCheckpointInterval = 15 * time.Second
	defaultOracleInterval     = time.Minute
	defaultOracleBatchSize    = 20
	defaultUSDSymbol          = "USDC"
	defaultSubnetName         = "subnet"
)

var (
	ErrUnknownNetwork   = errors.New("unknown network")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrMissingSignerKey = errors.New("private key is not configured")
)

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

// NetworkConfig describes one chain the relay talks to. It is loaded once
// at startup and never mutated afterwards.
type NetworkConfig struct {
	Name               string                    `yaml:"name"`
	RPC                *RPCConfig                `yaml:"rpc"`
	ChainID            string                    `yaml:"chain_id"`
	BridgeAddress      common.Address            `yaml:"bridge_address"`
	OracleAddress      common.Address            `yaml:"oracle_address"`
	StartBlock         uint                      `yaml:"start_block"`
	BlockConfirmations uint                      `yaml:"required_block_confirmations"`
	MaxBlockRangeSize  uint                      `yaml:"max_block_range_size"`
	BlockIndexInterval time.Duration             `yaml:"block_index_interval"`
	SafeLogsRequest    bool                      `yaml:"safe_logs_request"`
	ABI                []string                  `yaml:"abi"`
	Routers            map[string]common.Address `yaml:"routers"`
	LiquidityTokens    map[string]common.Address `yaml:"liquidity_tokens"`
	DollarCoins        map[string]common.Address `yaml:"dollar_coins"`
}

type RelayConfig struct {
	TxConfirmations uint          `yaml:"tx_confirmations"`
	TxTimeout       time.Duration `yaml:"tx_timeout"`
	TxGasLimit      uint64        `yaml:"tx_gas_limit"`
}

type RecoveryConfig struct {
	Interval           time.Duration `yaml:"interval"`
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

type OracleConfig struct {
	Disabled  bool          `yaml:"disabled"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
	USDSymbol string        `yaml:"usd_symbol"`
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

// AlertConfig tunes one alert job. Threshold is the age after which an entry
// is reported.
type AlertConfig struct {
	Threshold time.Duration `yaml:"threshold"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	PrivateKey       string                    `yaml:"private_key"`
	Mainnets         map[string]*NetworkConfig `yaml:"mainnets"`
	Subnet           *NetworkConfig            `yaml:"subnet"`
	Relay            *RelayConfig              `yaml:"relay"`
	Recovery         *RecoveryConfig           `yaml:"recovery"`
	Oracle           *OracleConfig             `yaml:"oracle"`
	DBConfig         *DBConfig                 `yaml:"postgres"`
	LogLevel         logrus.Level              `yaml:"log_level"`
	DisabledNetworks []string                  `yaml:"disabled_networks"`
	Presenter        *PresenterConfig          `yaml:"presenter"`
	Alerts           map[string]*AlertConfig   `yaml:"alerts"`
}

type envOverrides struct {
	PrivateKey string `envconfig:"PRIVATE_KEY"`
}

func readYamlConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setNetworkDefaults(name string, cfg *NetworkConfig) error {
	if cfg == nil {
		return fmt.Errorf("network %q has empty config: %w", name, ErrInvalidConfig)
	}
	cfg.Name = name
	if cfg.RPC == nil || cfg.RPC.Host == "" {
		return fmt.Errorf("network %q has no rpc host: %w", name, ErrInvalidConfig)
	}
	if cfg.RPC.Timeout == 0 {
		cfg.RPC.Timeout = defaultRPCTimeout
	}
	if cfg.BlockIndexInterval == 0 {
		cfg.BlockIndexInterval = defaultBlockIndexInterval
	}
	if cfg.MaxBlockRangeSize == 0 {
		cfg.MaxBlockRangeSize = defaultMaxBlockRangeSize
	}
	return nil
}

func processConfig(cfg *Config) error {
	for name, network := range cfg.Mainnets {
		if err := setNetworkDefaults(name, network); err != nil {
			return err
		}
	}
	if cfg.Subnet == nil {
		return fmt.Errorf("subnet is not configured: %w", ErrInvalidConfig)
	}
	name := cfg.Subnet.Name
	if name == "" {
		name = defaultSubnetName
	}
	if _, ok := cfg.Mainnets[name]; ok {
		return fmt.Errorf("subnet name %q collides with a mainnet: %w", name, ErrInvalidConfig)
	}
	if err := setNetworkDefaults(name, cfg.Subnet); err != nil {
		return err
	}

	if cfg.Relay == nil {
		cfg.Relay = new(RelayConfig)
	}
	if cfg.Relay.TxConfirmations < defaultTxConfirmations {
		cfg.Relay.TxConfirmations = defaultTxConfirmations
	}
	if cfg.Relay.TxTimeout == 0 {
		cfg.Relay.TxTimeout = defaultTxTimeout
	}

	if cfg.Recovery == nil {
		cfg.Recovery = new(RecoveryConfig)
	}
	if cfg.Recovery.Interval == 0 {
		cfg.Recovery.Interval = defaultRecoveryInterval
	}
	if cfg.Recovery.CheckpointInterval == 0 {
		cfg.Recovery.CheckpointInterval = defaultCheckpointInterval
	}

	if cfg.Oracle == nil {
		cfg.Oracle = new(OracleConfig)
	}
	if cfg.Oracle.Interval == 0 {
		cfg.Oracle.Interval = defaultOracleInterval
	}
	if cfg.Oracle.BatchSize <= 0 || cfg.Oracle.BatchSize > defaultOracleBatchSize {
		cfg.Oracle.BatchSize = defaultOracleBatchSize
	}
	if cfg.Oracle.USDSymbol == "" {
		cfg.Oracle.USDSymbol = defaultUSDSymbol
	}

	for _, name := range cfg.DisabledNetworks {
		if _, ok := cfg.Mainnets[name]; !ok {
			return fmt.Errorf("can't disable %q: %w", name, ErrUnknownNetwork)
		}
		delete(cfg.Mainnets, name)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("relay", &env); err != nil {
		return fmt.Errorf("can't read environment overrides: %w", err)
	}
	if env.PrivateKey != "" {
		cfg.PrivateKey = env.PrivateKey
	}
	return nil
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg, err := readYamlConfig(blob)
	if err != nil {
		return nil, err
	}
	if err = processConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfigWithEnv expands ${VAR} references before parsing and applies
// RELAY_* environment overrides afterwards.
func ReadConfigWithEnv(blob []byte) (*Config, error) {
	cfg, err := ReadConfig([]byte(os.ExpandEnv(string(blob))))
	if err != nil {
		return nil, err
	}
	if err = applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}

func (cfg *Config) SigningKey() (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey == "" {
		return nil, ErrMissingSignerKey
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("can't parse private key: %w", err)
	}
	return key, nil
}

// Network returns the subnet or mainnet config with the given name.
func (cfg *Config) Network(name string) (*NetworkConfig, error) {
	if cfg.Subnet != nil && cfg.Subnet.Name == name {
		return cfg.Subnet, nil
	}
	if network, ok := cfg.Mainnets[name]; ok {
		return network, nil
	}
	return nil, fmt.Errorf("network %q: %w", name, ErrUnknownNetwork)
}

// MainnetNames returns configured mainnet names in a stable order.
func (cfg *Config) MainnetNames() []string {
	names := make([]string, 0, len(cfg.Mainnets))
	for name := range cfg.Mainnets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

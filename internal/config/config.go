// Package config provides configuration loading for the orbit-deployer CLI.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ORBIT_DEPLOYER_PRIVATE_KEY.
const EnvPrefix = "ORBIT"

// Config holds all configuration for a deployment run.
type Config struct {
	ParentChain ParentChainConfig `mapstructure:"parent_chain" yaml:"parent_chain"`
	ChildChain  ChildChainConfig  `mapstructure:"child_chain" yaml:"child_chain"`
	Deployer    DeployerConfig    `mapstructure:"deployer" yaml:"deployer"`
	Chain       ChainConfig       `mapstructure:"chain" yaml:"chain"`
	Rollup      RollupConfig      `mapstructure:"rollup" yaml:"rollup"`
	Node        NodeConfig        `mapstructure:"node" yaml:"node"`
	Retryables  RetryablesConfig  `mapstructure:"retryables" yaml:"retryables"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// ParentChainConfig holds the settlement chain endpoints.
type ParentChainConfig struct {
	RPCURL    string `mapstructure:"rpc_url" yaml:"rpc_url" validate:"required,url"`
	BeaconURL string `mapstructure:"beacon_url" yaml:"beacon_url" validate:"omitempty,url"`
}

// ChildChainConfig holds the Orbit chain endpoints, known once the node runs.
type ChildChainConfig struct {
	RPCURL      string `mapstructure:"rpc_url" yaml:"rpc_url" validate:"omitempty,url"`
	ExplorerURL string `mapstructure:"explorer_url" yaml:"explorer_url" validate:"omitempty,url"`
}

// DeployerConfig holds the key that signs deployment transactions.
type DeployerConfig struct {
	PrivateKey string `mapstructure:"private_key" yaml:"private_key" validate:"required"`
	// RollupCreator and TokenBridgeCreator override the registry, for
	// chains without known factories.
	RollupCreator      string `mapstructure:"rollup_creator" yaml:"rollup_creator,omitempty" validate:"omitempty,eth_addr"`
	TokenBridgeCreator string `mapstructure:"token_bridge_creator" yaml:"token_bridge_creator,omitempty" validate:"omitempty,eth_addr"`
}

// ChainConfig describes the chain being created.
type ChainConfig struct {
	ID                        uint64 `mapstructure:"id" yaml:"id" validate:"required"`
	Name                      string `mapstructure:"name" yaml:"name" validate:"required,min=1,max=100"`
	Owner                     string `mapstructure:"owner" yaml:"owner" validate:"required,eth_addr"`
	DataAvailabilityCommittee bool   `mapstructure:"data_availability_committee" yaml:"data_availability_committee"`
	NativeToken               string `mapstructure:"native_token" yaml:"native_token,omitempty" validate:"omitempty,eth_addr"`
}

// RollupConfig holds createRollup parameters. Zero values take the SDK defaults.
type RollupConfig struct {
	Validators          []string `mapstructure:"validators" yaml:"validators" validate:"required,min=1,dive,eth_addr"`
	BatchPosters        []string `mapstructure:"batch_posters" yaml:"batch_posters" validate:"required,min=1,dive,eth_addr"`
	StakeToken          string   `mapstructure:"stake_token" yaml:"stake_token" validate:"required,eth_addr"`
	BaseStake           string   `mapstructure:"base_stake" yaml:"base_stake,omitempty" validate:"omitempty,numeric"`
	ConfirmPeriodBlocks uint64   `mapstructure:"confirm_period_blocks" yaml:"confirm_period_blocks,omitempty"`
	MaxDataSize         uint64   `mapstructure:"max_data_size" yaml:"max_data_size,omitempty"`
	DeployFactoriesToL2 bool     `mapstructure:"deploy_factories_to_l2" yaml:"deploy_factories_to_l2"`
	BatchPosterManager  string   `mapstructure:"batch_poster_manager" yaml:"batch_poster_manager,omitempty" validate:"omitempty,eth_addr"`
}

// NodeConfig holds the keys and version used for the generated node config.
type NodeConfig struct {
	NitroVersion          string `mapstructure:"nitro_version" yaml:"nitro_version"`
	BatchPosterPrivateKey string `mapstructure:"batch_poster_private_key" yaml:"batch_poster_private_key"`
	ValidatorPrivateKey   string `mapstructure:"validator_private_key" yaml:"validator_private_key"`
}

// RetryablesConfig bounds waiting for token bridge retryables.
type RetryablesConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
}

// OutputConfig holds where artifacts are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// LogConfig holds logging configuration. An empty File logs to stderr.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

// Load reads configuration from an optional file and environment variables.
// An empty path searches the working directory for orbit.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orbit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindSecrets(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("parent_chain.rpc_url", "http://localhost:8545")
	v.SetDefault("parent_chain.beacon_url", "")

	v.SetDefault("child_chain.rpc_url", "http://localhost:8449")
	v.SetDefault("child_chain.explorer_url", "")

	v.SetDefault("chain.name", "My Arbitrum L3 Chain")
	v.SetDefault("chain.data_availability_committee", false)

	v.SetDefault("rollup.deploy_factories_to_l2", false)

	v.SetDefault("node.nitro_version", "v3.2.1")

	v.SetDefault("retryables.timeout", "15m")
	v.SetDefault("retryables.poll_interval", "1s")

	v.SetDefault("output.dir", "./orbit-output")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
}

// bindSecrets binds keys that are usually only given through the environment.
// AutomaticEnv alone does not see keys without a default or file value.
func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("deployer.private_key")
	_ = v.BindEnv("deployer.rollup_creator")
	_ = v.BindEnv("deployer.token_bridge_creator")
	_ = v.BindEnv("chain.id")
	_ = v.BindEnv("chain.owner")
	_ = v.BindEnv("chain.native_token")
	_ = v.BindEnv("rollup.stake_token")
	_ = v.BindEnv("rollup.base_stake")
	_ = v.BindEnv("node.batch_poster_private_key")
	_ = v.BindEnv("node.validator_private_key")
}

// ============================================================================
// Validation
// ============================================================================

var validate = validator.New()

// Validate checks the whole config and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	var result *multierror.Error
	for _, fe := range verrs {
		result = multierror.Append(result, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return result.ErrorOrNil()
}

// ============================================================================
// Typed accessors
// ============================================================================

// Addresses parses a list of hex addresses.
func Addresses(in []string) []common.Address {
	out := make([]common.Address, len(in))
	for i, s := range in {
		out[i] = common.HexToAddress(s)
	}
	return out
}

// Address parses a hex address; an empty string is the zero address.
func Address(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

// OptionalAddress returns nil for an empty string.
func OptionalAddress(s string) *common.Address {
	if s == "" {
		return nil
	}
	a := common.HexToAddress(s)
	return &a
}

// BaseStakeWei parses rollup.base_stake. An empty value returns nil.
func (r RollupConfig) BaseStakeWei() (*big.Int, error) {
	if r.BaseStake == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(r.BaseStake, 10)
	if !ok {
		return nil, fmt.Errorf("invalid rollup.base_stake %q", r.BaseStake)
	}
	return v, nil
}

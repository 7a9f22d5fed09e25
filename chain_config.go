package orbit

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Chain config defaults.
const (
	DefaultInitialArbOSVersion = 32
	DefaultMaxCodeSize         = 24576
	DefaultMaxInitCodeSize     = 49152
)

// ChainConfig is the genesis configuration of an Orbit chain. It is embedded
// as JSON into the createRollup call and handed to the node as chain-config.
// Field order is fixed, so serialization is deterministic.
type ChainConfig struct {
	ChainID             uint64              `json:"chainId"`
	HomesteadBlock      uint64              `json:"homesteadBlock"`
	DAOForkBlock        *uint64             `json:"daoForkBlock"`
	DAOForkSupport      bool                `json:"daoForkSupport"`
	EIP150Block         uint64              `json:"eip150Block"`
	EIP150Hash          common.Hash         `json:"eip150Hash"`
	EIP155Block         uint64              `json:"eip155Block"`
	EIP158Block         uint64              `json:"eip158Block"`
	ByzantiumBlock      uint64              `json:"byzantiumBlock"`
	ConstantinopleBlock uint64              `json:"constantinopleBlock"`
	PetersburgBlock     uint64              `json:"petersburgBlock"`
	IstanbulBlock       uint64              `json:"istanbulBlock"`
	MuirGlacierBlock    uint64              `json:"muirGlacierBlock"`
	BerlinBlock         uint64              `json:"berlinBlock"`
	LondonBlock         uint64              `json:"londonBlock"`
	Clique              CliqueConfig        `json:"clique"`
	Arbitrum            ArbitrumChainParams `json:"arbitrum"`
}

// CliqueConfig is required by geth's config parser; Orbit chains leave it zeroed.
type CliqueConfig struct {
	Period uint64 `json:"period"`
	Epoch  uint64 `json:"epoch"`
}

// ArbitrumChainParams are the ArbOS-specific genesis parameters.
type ArbitrumChainParams struct {
	EnableArbOS               bool           `json:"EnableArbOS"`
	AllowDebugPrecompiles     bool           `json:"AllowDebugPrecompiles"`
	DataAvailabilityCommittee bool           `json:"DataAvailabilityCommittee"`
	InitialArbOSVersion       uint64         `json:"InitialArbOSVersion"`
	InitialChainOwner         common.Address `json:"InitialChainOwner"`
	GenesisBlockNum           uint64         `json:"GenesisBlockNum"`
	MaxCodeSize               uint64         `json:"MaxCodeSize"`
	MaxInitCodeSize           uint64         `json:"MaxInitCodeSize"`
}

// ChainConfigOverrides replaces individual defaults. Nil fields keep the default.
type ChainConfigOverrides struct {
	InitialArbOSVersion   *uint64
	AllowDebugPrecompiles *bool
	GenesisBlockNum       *uint64
	MaxCodeSize           *uint64
	MaxInitCodeSize       *uint64
}

// ChainConfigParams are the inputs of BuildChainConfig.
type ChainConfigParams struct {
	ChainID                   uint64
	Owner                     common.Address
	DataAvailabilityCommittee bool
	Overrides                 *ChainConfigOverrides
	// Registry decides which chain ids are reserved. Defaults to DefaultRegistry().
	Registry *Registry
}

// BuildChainConfig returns a fully populated chain config with the caller's
// overrides merged onto the defaults.
func BuildChainConfig(params ChainConfigParams) (ChainConfig, error) {
	registry := params.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	if params.ChainID == 0 {
		return ChainConfig{}, NewInvalidParameterError("chainId", "must be positive")
	}
	if registry.IsReserved(params.ChainID) {
		c, _ := registry.Get(params.ChainID)
		return ChainConfig{}, NewInvalidParameterError("chainId",
			fmt.Sprintf("%d is reserved by %s", params.ChainID, c.Name))
	}
	if params.Owner == (common.Address{}) {
		return ChainConfig{}, NewInvalidParameterError("owner", "must not be the zero address")
	}

	cfg := ChainConfig{
		ChainID:        params.ChainID,
		DAOForkSupport: true,
		Arbitrum: ArbitrumChainParams{
			EnableArbOS:               true,
			AllowDebugPrecompiles:     false,
			DataAvailabilityCommittee: params.DataAvailabilityCommittee,
			InitialArbOSVersion:       DefaultInitialArbOSVersion,
			InitialChainOwner:         params.Owner,
			GenesisBlockNum:           0,
			MaxCodeSize:               DefaultMaxCodeSize,
			MaxInitCodeSize:           DefaultMaxInitCodeSize,
		},
	}

	if o := params.Overrides; o != nil {
		if o.InitialArbOSVersion != nil {
			cfg.Arbitrum.InitialArbOSVersion = *o.InitialArbOSVersion
		}
		if o.AllowDebugPrecompiles != nil {
			cfg.Arbitrum.AllowDebugPrecompiles = *o.AllowDebugPrecompiles
		}
		if o.GenesisBlockNum != nil {
			cfg.Arbitrum.GenesisBlockNum = *o.GenesisBlockNum
		}
		if o.MaxCodeSize != nil {
			cfg.Arbitrum.MaxCodeSize = *o.MaxCodeSize
		}
		if o.MaxInitCodeSize != nil {
			cfg.Arbitrum.MaxInitCodeSize = *o.MaxInitCodeSize
		}
	}

	if cfg.Arbitrum.InitialArbOSVersion == 0 {
		return ChainConfig{}, NewInvalidParameterError("overrides.InitialArbOSVersion", "must be positive")
	}

	return cfg, nil
}

// JSON returns the compact JSON form embedded in the createRollup call.
func (c ChainConfig) JSON() (string, error) {
	out, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal chain config: %w", err)
	}
	return string(out), nil
}

// ParseChainConfig decodes a chain config as found in createRollup call data.
func ParseChainConfig(raw string) (ChainConfig, error) {
	var cfg ChainConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return ChainConfig{}, fmt.Errorf("unmarshal chain config: %w", err)
	}
	if cfg.ChainID == 0 {
		return ChainConfig{}, &MissingFieldError{Field: "chainId", Context: "chain config"}
	}
	return cfg, nil
}

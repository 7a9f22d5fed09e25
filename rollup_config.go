package orbit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// Default deployment parameters
const (
	DefaultConfirmPeriodBlocks        = 45818  // ~1 week on Ethereum
	DefaultTestnetConfirmPeriodBlocks = 150    // ~30 minutes on Sepolia
	DefaultMaxDataSizeL1Parent        = 117964 // ~115KB max batch size
	DefaultMaxDataSizeL2Parent        = 104857
	DefaultMinimumAssertionPeriod     = 75
	DefaultValidatorAfkBlocks         = 201600
	DefaultChallengeGracePeriodBlocks = 14400
	DefaultNumBigStepLevel            = 1
	DefaultLayerZeroBlockEdgeHeight   = 1 << 26
	DefaultLayerZeroBigStepHeight     = 1 << 19
	DefaultLayerZeroSmallStepHeight   = 1 << 23

	// MachineStatusFinished is the machine status of the genesis assertion.
	MachineStatusFinished = 1
)

var (
	// DefaultBaseStake is 0.1 ETH.
	DefaultBaseStake = big.NewInt(100_000_000_000_000_000)
	// DefaultMaxFeePerGasForRetryables is 0.1 gwei.
	DefaultMaxFeePerGasForRetryables = big.NewInt(100_000_000)
	// CreateRollupDefaultRetryablesFees funds the retryables that deploy the
	// token bridge factories to the new chain: 0.125 ETH.
	CreateRollupDefaultRetryablesFees = big.NewInt(125_000_000_000_000_000)
	// DefaultWasmModuleRoot is the consensus-v32 machine.
	DefaultWasmModuleRoot = common.HexToHash("0x184884e1eb9fefdc158f6c8ac912bb183bf3cf83f0090317e0bc4ac5860baa39")
)

// ============================================================================
// createRollup ABI types
// ============================================================================

// MaxTimeVariation bounds how far sequencer batches may drift from the parent chain.
type MaxTimeVariation struct {
	DelayBlocks   *big.Int
	FutureBlocks  *big.Int
	DelaySeconds  *big.Int
	FutureSeconds *big.Int
}

// GlobalState is the machine global state of an assertion.
type GlobalState struct {
	Bytes32Vals [2][32]byte
	U64Vals     [2]uint64
}

// AssertionState is the state a BoLD assertion commits to.
type AssertionState struct {
	GlobalState    GlobalState
	MachineStatus  uint8
	EndHistoryRoot [32]byte
}

// BufferConfig configures the sequencer inbox delay buffer. A zero threshold
// disables the buffer.
type BufferConfig struct {
	Threshold            uint64
	Max                  uint64
	ReplenishRateInBasis uint64
}

// RollupConfig mirrors the RollupCreator Config tuple. Field order matters:
// decoding is positional.
type RollupConfig struct {
	ConfirmPeriodBlocks            uint64
	StakeToken                     common.Address
	BaseStake                      *big.Int
	WasmModuleRoot                 [32]byte
	Owner                          common.Address
	LoserStakeEscrow               common.Address
	ChainID                        *big.Int `abi:"chainId"`
	ChainConfig                    string
	MinimumAssertionPeriod         *big.Int
	ValidatorAfkBlocks             uint64
	MiniStakeValues                []*big.Int
	SequencerInboxMaxTimeVariation MaxTimeVariation
	LayerZeroBlockEdgeHeight       *big.Int
	LayerZeroBigStepEdgeHeight     *big.Int
	LayerZeroSmallStepEdgeHeight   *big.Int
	GenesisAssertionState          AssertionState
	GenesisInboxCount              *big.Int
	AnyTrustFastConfirmer          common.Address
	NumBigStepLevel                uint8
	ChallengeGracePeriodBlocks     uint64
	BufferConfig                   BufferConfig
	DataCostEstimate               *big.Int
}

// CreateRollupParams mirrors the RollupCreator RollupDeploymentParams tuple.
type CreateRollupParams struct {
	Config                    RollupConfig
	Validators                []common.Address
	MaxDataSize               *big.Int
	NativeToken               common.Address
	DeployFactoriesToL2       bool
	MaxFeePerGasForRetryables *big.Int
	BatchPosters              []common.Address
	BatchPosterManager        common.Address
	FeeTokenPricer            common.Address
}

// ============================================================================
// Rollup Deployment Config
// ============================================================================

// RollupDeploymentParams are the caller inputs of BuildRollupDeploymentConfig.
// Zero values select the defaults.
type RollupDeploymentParams struct {
	Owner        common.Address   `validate:"required"`
	BatchPosters []common.Address `validate:"required,min=1,dive,required"`
	Validators   []common.Address `validate:"required,min=1,dive,required"`
	StakeToken   common.Address   `validate:"required"`

	// NativeToken is the ERC-20 fee token. The zero address means ETH.
	NativeToken         common.Address
	DeployFactoriesToL2 bool

	// ParentChainID selects parent-dependent defaults (confirm period, max data size).
	ParentChainID uint64

	ConfirmPeriodBlocks       uint64
	BaseStake                 *big.Int
	MiniStakeValues           []*big.Int
	MaxDataSize               uint64
	WasmModuleRoot            common.Hash
	LoserStakeEscrow          common.Address
	AnyTrustFastConfirmer     common.Address
	MaxFeePerGasForRetryables *big.Int
	BatchPosterManager        common.Address
	FeeTokenPricer            common.Address
	BufferConfig              BufferConfig

	Registry *Registry `validate:"-"`
}

// RollupDeploymentConfig is the complete input of a createRollup call.
type RollupDeploymentConfig struct {
	ChainConfig ChainConfig
	Params      CreateRollupParams
}

// UsesCustomFeeToken reports whether the chain pays gas in an ERC-20 token.
func (c *RollupDeploymentConfig) UsesCustomFeeToken() bool {
	return c.Params.NativeToken != (common.Address{})
}

var validate = validator.New()

// BuildRollupDeploymentConfig combines a chain config with deployment
// parameters and fills in defaults.
func BuildRollupDeploymentConfig(chainConfig ChainConfig, params RollupDeploymentParams) (*RollupDeploymentConfig, error) {
	if chainConfig.ChainID == 0 {
		return nil, NewInvalidParameterError("chainConfig.chainId", "must be positive")
	}
	registry := params.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	if params.Owner == (common.Address{}) {
		params.Owner = chainConfig.Arbitrum.InitialChainOwner
	}

	if err := validateParams(params); err != nil {
		return nil, err
	}

	rawChainConfig, err := chainConfig.JSON()
	if err != nil {
		return nil, err
	}

	cfg := RollupConfig{
		ConfirmPeriodBlocks:    params.ConfirmPeriodBlocks,
		StakeToken:             params.StakeToken,
		BaseStake:              copyBig(params.BaseStake),
		WasmModuleRoot:         params.WasmModuleRoot,
		Owner:                  params.Owner,
		LoserStakeEscrow:       params.LoserStakeEscrow,
		ChainID:                new(big.Int).SetUint64(chainConfig.ChainID),
		ChainConfig:            rawChainConfig,
		MinimumAssertionPeriod: big.NewInt(DefaultMinimumAssertionPeriod),
		ValidatorAfkBlocks:     DefaultValidatorAfkBlocks,
		SequencerInboxMaxTimeVariation: MaxTimeVariation{
			DelayBlocks:   big.NewInt(60 * 60 * 24 / 15),
			FutureBlocks:  big.NewInt(12),
			DelaySeconds:  big.NewInt(60 * 60 * 24),
			FutureSeconds: big.NewInt(60 * 60),
		},
		LayerZeroBlockEdgeHeight:     big.NewInt(DefaultLayerZeroBlockEdgeHeight),
		LayerZeroBigStepEdgeHeight:   big.NewInt(DefaultLayerZeroBigStepHeight),
		LayerZeroSmallStepEdgeHeight: big.NewInt(DefaultLayerZeroSmallStepHeight),
		GenesisAssertionState:        AssertionState{MachineStatus: MachineStatusFinished},
		GenesisInboxCount:            new(big.Int),
		AnyTrustFastConfirmer:        params.AnyTrustFastConfirmer,
		NumBigStepLevel:              DefaultNumBigStepLevel,
		ChallengeGracePeriodBlocks:   DefaultChallengeGracePeriodBlocks,
		BufferConfig:                 params.BufferConfig,
		DataCostEstimate:             new(big.Int),
	}

	if cfg.ConfirmPeriodBlocks == 0 {
		cfg.ConfirmPeriodBlocks = DefaultConfirmPeriodBlocks
		if params.ParentChainID != 0 && registry.IsTestnet(params.ParentChainID) {
			cfg.ConfirmPeriodBlocks = DefaultTestnetConfirmPeriodBlocks
		}
	}
	if cfg.BaseStake == nil {
		cfg.BaseStake = new(big.Int).Set(DefaultBaseStake)
	}
	if cfg.WasmModuleRoot == (common.Hash{}) {
		cfg.WasmModuleRoot = DefaultWasmModuleRoot
	}
	if cfg.LoserStakeEscrow == (common.Address{}) {
		cfg.LoserStakeEscrow = params.Owner
	}

	levels := int(cfg.NumBigStepLevel) + 2
	if len(params.MiniStakeValues) == 0 {
		cfg.MiniStakeValues = make([]*big.Int, levels)
		for i := range cfg.MiniStakeValues {
			cfg.MiniStakeValues[i] = new(big.Int).Set(cfg.BaseStake)
		}
	} else {
		if len(params.MiniStakeValues) != levels {
			return nil, NewInvalidParameterError("MiniStakeValues",
				fmt.Sprintf("need %d values, got %d", levels, len(params.MiniStakeValues)))
		}
		for _, v := range params.MiniStakeValues {
			cfg.MiniStakeValues = append(cfg.MiniStakeValues, copyBig(v))
		}
	}

	maxDataSize := params.MaxDataSize
	if maxDataSize == 0 {
		maxDataSize = DefaultMaxDataSizeL1Parent
		if layer, err := registry.Layer(params.ParentChainID); err == nil && layer == 2 {
			maxDataSize = DefaultMaxDataSizeL2Parent
		}
	}

	maxFee := copyBig(params.MaxFeePerGasForRetryables)
	if maxFee == nil {
		maxFee = new(big.Int).Set(DefaultMaxFeePerGasForRetryables)
	}

	return &RollupDeploymentConfig{
		ChainConfig: chainConfig,
		Params: CreateRollupParams{
			Config:                    cfg,
			Validators:                append([]common.Address(nil), params.Validators...),
			MaxDataSize:               new(big.Int).SetUint64(maxDataSize),
			NativeToken:               params.NativeToken,
			DeployFactoriesToL2:       params.DeployFactoriesToL2,
			MaxFeePerGasForRetryables: maxFee,
			BatchPosters:              append([]common.Address(nil), params.BatchPosters...),
			BatchPosterManager:        params.BatchPosterManager,
			FeeTokenPricer:            params.FeeTokenPricer,
		},
	}, nil
}

// validateParams runs the struct tags and reports every failure as an
// InvalidParameterError.
func validateParams(params RollupDeploymentParams) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate rollup params: %w", err)
	}

	var result *multierror.Error
	for _, fe := range verrs {
		result = multierror.Append(result, NewInvalidParameterError(fe.Field(), describeValidation(fe)))
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

func describeValidation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required and must not be the zero address"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

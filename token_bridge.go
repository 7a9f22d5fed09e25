package orbit

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultTokenBridgeMaxGasForContracts is the child chain gas reserved for
// deploying the token bridge contracts.
const DefaultTokenBridgeMaxGasForContracts = 20_000_000

// GasPricer suggests a gas price for the chain it is connected to.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// ============================================================================
// Token Bridge Deployment
// ============================================================================

// TokenBridgeDeploymentParams are the inputs of a createTokenBridge call.
type TokenBridgeDeploymentParams struct {
	Rollup      common.Address
	RollupOwner common.Address
	// MaxGasForContracts defaults to DefaultTokenBridgeMaxGasForContracts.
	MaxGasForContracts uint64
	// GasPriceBid overrides the child chain gas price suggestion.
	GasPriceBid *big.Int
}

// TokenBridgeFees are the retryable costs of a token bridge deployment, in
// 18-decimal units of the child chain's fee currency. createTokenBridge sends
// two retryables: the L2 factory deployment and the L2 contracts deployment.
type TokenBridgeFees struct {
	GasPriceBid *big.Int

	FactorySubmissionFee *big.Int
	MaxGasForFactory     *big.Int

	ContractsSubmissionFee *big.Int
	MaxGasForContracts     *big.Int
}

// Total is both submission fees plus the execution budget of both retryables.
func (f TokenBridgeFees) Total() *big.Int {
	gas := new(big.Int).Add(bigOrZero(f.MaxGasForFactory), bigOrZero(f.MaxGasForContracts))
	total := gas.Mul(gas, bigOrZero(f.GasPriceBid))
	total.Add(total, bigOrZero(f.FactorySubmissionFee))
	total.Add(total, bigOrZero(f.ContractsSubmissionFee))
	return total
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// PrepareTokenBridgeDeploymentTransaction builds the createTokenBridge call on
// the parent chain. On custom fee token chains the value is zero and the
// creator pulls TokenBridgeFeeTokenAllowance of the token instead.
func PrepareTokenBridgeDeploymentTransaction(
	ctx context.Context,
	params TokenBridgeDeploymentParams,
	client ChainClient,
	childClient GasPricer,
	opts ...Option,
) (*TransactionRequest, error) {
	if params.Rollup == (common.Address{}) {
		return nil, NewInvalidParameterError("rollup", "must not be the zero address")
	}
	if params.RollupOwner == (common.Address{}) {
		return nil, NewInvalidParameterError("rollupOwner", "must not be the zero address")
	}
	o := applyOptions(opts)

	parentChainID, err := chainID(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("get parent chain ID: %w", err)
	}
	creator, err := resolveTokenBridgeCreator(o, parentChainID)
	if err != nil {
		return nil, err
	}

	inbox, err := RollupInbox(ctx, client, params.Rollup)
	if err != nil {
		return nil, err
	}
	nativeToken, err := InboxNativeToken(ctx, client, inbox)
	if err != nil {
		return nil, err
	}

	fees, err := estimateTokenBridgeFees(ctx, client, childClient, creator, inbox, nativeToken, params)
	if err != nil {
		return nil, err
	}

	data, err := tokenBridgeCreatorABI.Pack("createTokenBridge",
		inbox, params.RollupOwner, fees.MaxGasForContracts, fees.GasPriceBid)
	if err != nil {
		return nil, fmt.Errorf("encode createTokenBridge: %w", err)
	}

	value := o.value
	if value == nil {
		value = new(big.Int)
		if nativeToken == (common.Address{}) {
			value = fees.Total()
		}
	}

	o.logger.Debug("prepared createTokenBridge",
		slog.Uint64("parent_chain_id", parentChainID),
		slog.String("inbox", inbox.Hex()),
		slog.String("native_token", nativeToken.Hex()),
		slog.String("gas_price_bid", fees.GasPriceBid.String()),
		slog.String("value", value.String()),
	)

	return newTransactionRequest(params.RollupOwner, creator, data, value), nil
}

func resolveTokenBridgeCreator(o *options, parentChainID uint64) (common.Address, error) {
	if o.tokenBridgeCreator != nil {
		if *o.tokenBridgeCreator == (common.Address{}) {
			return common.Address{}, NewInvalidParameterError("tokenBridgeCreator", "must not be the zero address")
		}
		return *o.tokenBridgeCreator, nil
	}
	dep, err := o.registry.TokenBridgeCreator(parentChainID)
	if err != nil {
		return common.Address{}, err
	}
	return dep.Address, nil
}

// EstimateTokenBridgeFees prices both token bridge deployment retryables:
// the factory gas limit set on the TokenBridgeCreator, the child gas price
// and the submission fees for the actual retryable data lengths.
func EstimateTokenBridgeFees(
	ctx context.Context,
	client ChainClient,
	childClient GasPricer,
	inbox common.Address,
	params TokenBridgeDeploymentParams,
	opts ...Option,
) (TokenBridgeFees, error) {
	o := applyOptions(opts)
	parentChainID, err := chainID(ctx, client)
	if err != nil {
		return TokenBridgeFees{}, fmt.Errorf("get parent chain ID: %w", err)
	}
	creator, err := resolveTokenBridgeCreator(o, parentChainID)
	if err != nil {
		return TokenBridgeFees{}, err
	}
	nativeToken, err := InboxNativeToken(ctx, client, inbox)
	if err != nil {
		return TokenBridgeFees{}, err
	}
	return estimateTokenBridgeFees(ctx, client, childClient, creator, inbox, nativeToken, params)
}

func estimateTokenBridgeFees(
	ctx context.Context,
	client ChainClient,
	childClient GasPricer,
	creator, inbox, nativeToken common.Address,
	params TokenBridgeDeploymentParams,
) (TokenBridgeFees, error) {
	maxGas := params.MaxGasForContracts
	if maxGas == 0 {
		maxGas = DefaultTokenBridgeMaxGasForContracts
	}

	gasPriceBid := copyBig(params.GasPriceBid)
	if gasPriceBid == nil {
		if childClient == nil {
			return TokenBridgeFees{}, NewInvalidParameterError("childClient", "is nil and no gas price bid was given")
		}
		price, err := childClient.SuggestGasPrice(ctx)
		if err != nil {
			return TokenBridgeFees{}, fmt.Errorf("get child chain gas price: %w", err)
		}
		gasPriceBid = price
	}

	factoryGas, err := callTokenBridgeCreatorUint(ctx, client, creator, "gasLimitForL2FactoryDeployment")
	if err != nil {
		return TokenBridgeFees{}, err
	}
	factoryLength, contractsLength, err := tokenBridgeRetryableDataLengths(ctx, client, creator, nativeToken != (common.Address{}))
	if err != nil {
		return TokenBridgeFees{}, err
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return TokenBridgeFees{}, fmt.Errorf("get parent chain header: %w", err)
	}
	baseFee := new(big.Int)
	if header.BaseFee != nil {
		baseFee.Set(header.BaseFee)
	}

	factoryFee, err := RetryableSubmissionFee(ctx, client, inbox, factoryLength, baseFee)
	if err != nil {
		return TokenBridgeFees{}, err
	}
	contractsFee, err := RetryableSubmissionFee(ctx, client, inbox, contractsLength, baseFee)
	if err != nil {
		return TokenBridgeFees{}, err
	}

	return TokenBridgeFees{
		GasPriceBid:            gasPriceBid,
		FactorySubmissionFee:   factoryFee,
		MaxGasForFactory:       factoryGas,
		ContractsSubmissionFee: contractsFee,
		MaxGasForContracts:     new(big.Int).SetUint64(maxGas),
	}, nil
}

// creationCodePrefixLength is the size of the init code the creator wraps
// around the factory runtime code.
const creationCodePrefixLength = 14

// l2RuntimeCode mirrors the code tuple of deployL2Contracts.
type l2RuntimeCode struct {
	Router          []byte
	StandardGateway []byte
	CustomGateway   []byte
	WethGateway     []byte
	AeWeth          []byte
	UpgradeExecutor []byte
	Multicall       []byte
}

// tokenBridgeRetryableDataLengths returns the data lengths of the factory
// deployment retryable and the deployL2Contracts retryable. Both are derived
// from the template code stored on the parent chain. Fee token chains deploy
// no WETH gateway.
func tokenBridgeRetryableDataLengths(ctx context.Context, client ChainClient, creator common.Address, usesFeeToken bool) (uint64, uint64, error) {
	codeSize := func(method string) (int, error) {
		template, err := callTokenBridgeCreatorAddress(ctx, client, creator, method)
		if err != nil {
			return 0, err
		}
		code, err := client.CodeAt(ctx, template, nil)
		if err != nil {
			return 0, fmt.Errorf("get code of %s %s: %w", method, template.Hex(), err)
		}
		if len(code) == 0 {
			return 0, &MissingFieldError{Field: method, Context: "no code at " + template.Hex()}
		}
		return len(code), nil
	}

	factory, err := codeSize("l2TokenBridgeFactoryTemplate")
	if err != nil {
		return 0, 0, err
	}

	sizes := make(map[string]int)
	methods := []string{"l2RouterTemplate", "l2StandardGatewayTemplate", "l2CustomGatewayTemplate", "l2MulticallTemplate"}
	if !usesFeeToken {
		methods = append(methods, "l2WethGatewayTemplate", "l2WethTemplate")
	}
	for _, m := range methods {
		if sizes[m], err = codeSize(m); err != nil {
			return 0, 0, err
		}
	}

	l1Templates, err := callTokenBridgeCreator(ctx, client, creator, "l1Templates")
	if err != nil {
		return 0, 0, err
	}
	upgradeExecutor, ok := l1Templates[len(l1Templates)-1].(common.Address)
	if !ok {
		return 0, 0, fmt.Errorf("decode l1Templates: unexpected type %T", l1Templates[len(l1Templates)-1])
	}
	executorCode, err := client.CodeAt(ctx, upgradeExecutor, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("get code of upgrade executor template %s: %w", upgradeExecutor.Hex(), err)
	}

	var zero common.Address
	data, err := l2TokenBridgeFactoryABI.Pack("deployL2Contracts",
		l2RuntimeCode{
			Router:          make([]byte, sizes["l2RouterTemplate"]),
			StandardGateway: make([]byte, sizes["l2StandardGatewayTemplate"]),
			CustomGateway:   make([]byte, sizes["l2CustomGatewayTemplate"]),
			WethGateway:     make([]byte, sizes["l2WethGatewayTemplate"]),
			AeWeth:          make([]byte, sizes["l2WethTemplate"]),
			UpgradeExecutor: make([]byte, len(executorCode)),
			Multicall:       make([]byte, sizes["l2MulticallTemplate"]),
		},
		zero, zero, zero, zero, zero, zero, zero, zero,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("encode deployL2Contracts: %w", err)
	}
	return uint64(factory + creationCodePrefixLength), uint64(len(data)), nil
}

func callTokenBridgeCreator(ctx context.Context, client ethereum.ContractCaller, creator common.Address, method string) ([]any, error) {
	data, err := tokenBridgeCreatorABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	out, err := call(ctx, client, creator, data)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, creator.Hex(), err)
	}
	vals, err := tokenBridgeCreatorABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("decode %s: no values", method)
	}
	return vals, nil
}

func callTokenBridgeCreatorAddress(ctx context.Context, client ethereum.ContractCaller, creator common.Address, method string) (common.Address, error) {
	vals, err := callTokenBridgeCreator(ctx, client, creator, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode %s: unexpected type %T", method, vals[0])
	}
	return addr, nil
}

func callTokenBridgeCreatorUint(ctx context.Context, client ethereum.ContractCaller, creator common.Address, method string) (*big.Int, error) {
	vals, err := callTokenBridgeCreator(ctx, client, creator, method)
	if err != nil {
		return nil, err
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected type %T", method, vals[0])
	}
	return v, nil
}

// RetryableSubmissionFee reads inbox.calculateRetryableSubmissionFee.
func RetryableSubmissionFee(ctx context.Context, client ethereum.ContractCaller, inbox common.Address, dataLength uint64, baseFee *big.Int) (*big.Int, error) {
	data, err := inboxABI.Pack("calculateRetryableSubmissionFee", new(big.Int).SetUint64(dataLength), baseFee)
	if err != nil {
		return nil, fmt.Errorf("encode calculateRetryableSubmissionFee: %w", err)
	}
	out, err := call(ctx, client, inbox, data)
	if err != nil {
		return nil, fmt.Errorf("call calculateRetryableSubmissionFee on %s: %w", inbox.Hex(), err)
	}
	vals, err := inboxABI.Unpack("calculateRetryableSubmissionFee", out)
	if err != nil {
		return nil, fmt.Errorf("decode calculateRetryableSubmissionFee: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// RollupInbox reads the delayed inbox of a rollup.
func RollupInbox(ctx context.Context, client ethereum.ContractCaller, rollup common.Address) (common.Address, error) {
	data, err := rollupABI.Pack("inbox")
	if err != nil {
		return common.Address{}, fmt.Errorf("encode inbox: %w", err)
	}
	out, err := call(ctx, client, rollup, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call inbox on %s: %w", rollup.Hex(), err)
	}
	return unpackAddress(rollupABI, "inbox", out)
}

// InboxNativeToken reads the fee token behind an inbox. Bridges of ETH chains
// do not implement nativeToken(), so a reverting call means ETH. Any other
// failure is returned.
func InboxNativeToken(ctx context.Context, client ethereum.ContractCaller, inbox common.Address) (common.Address, error) {
	data, err := inboxABI.Pack("bridge")
	if err != nil {
		return common.Address{}, fmt.Errorf("encode bridge: %w", err)
	}
	out, err := call(ctx, client, inbox, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call bridge on %s: %w", inbox.Hex(), err)
	}
	bridge, err := unpackAddress(inboxABI, "bridge", out)
	if err != nil {
		return common.Address{}, err
	}

	data, err = bridgeABI.Pack("nativeToken")
	if err != nil {
		return common.Address{}, fmt.Errorf("encode nativeToken: %w", err)
	}
	out, err = call(ctx, client, bridge, data)
	switch {
	case isExecutionReverted(err):
		return common.Address{}, nil
	case err != nil:
		return common.Address{}, fmt.Errorf("call nativeToken on %s: %w", bridge.Hex(), err)
	case len(out) == 0:
		return common.Address{}, nil
	}
	return unpackAddress(bridgeABI, "nativeToken", out)
}

// ============================================================================
// Token Bridge Contracts
// ============================================================================

// ExtractTokenBridgeContracts decodes the OrbitTokenBridgeCreated event of a
// createTokenBridge receipt.
func ExtractTokenBridgeContracts(receipt *types.Receipt) (*TokenBridgeContracts, error) {
	if receipt == nil {
		return nil, NewInvalidParameterError("receipt", "is nil")
	}
	event := tokenBridgeCreatorABI.Events["OrbitTokenBridgeCreated"]
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		vals, err := tokenBridgeCreatorABI.Unpack("OrbitTokenBridgeCreated", lg.Data)
		if err != nil || len(vals) != 4 {
			return nil, &MissingFieldError{Field: "l1Deployment/l2Deployment", Context: "OrbitTokenBridgeCreated"}
		}
		parent := *abi.ConvertType(vals[0], new(TokenBridgeParentContracts)).(*TokenBridgeParentContracts)
		child := *abi.ConvertType(vals[1], new(TokenBridgeOrbitContracts)).(*TokenBridgeOrbitContracts)
		return &TokenBridgeContracts{ParentChain: parent, OrbitChain: child}, nil
	}
	return nil, &MissingEventError{Event: "OrbitTokenBridgeCreated", TxHash: receipt.TxHash}
}

// FetchTokenBridgeContracts recovers a token bridge deployment from the
// creator's state.
func FetchTokenBridgeContracts(
	ctx context.Context,
	client ethereum.ContractCaller,
	tokenBridgeCreator, inbox common.Address,
) (*TokenBridgeContracts, error) {
	var out TokenBridgeContracts
	if err := readInboxDeployment(ctx, client, tokenBridgeCreator, "inboxToL1Deployment", inbox, &out.ParentChain); err != nil {
		return nil, err
	}
	if out.ParentChain == (TokenBridgeParentContracts{}) {
		return nil, &MissingFieldError{Field: "inboxToL1Deployment", Context: "token bridge for inbox " + inbox.Hex()}
	}
	if err := readInboxDeployment(ctx, client, tokenBridgeCreator, "inboxToL2Deployment", inbox, &out.OrbitChain); err != nil {
		return nil, err
	}
	if out.OrbitChain == (TokenBridgeOrbitContracts{}) {
		return nil, &MissingFieldError{Field: "inboxToL2Deployment", Context: "token bridge for inbox " + inbox.Hex()}
	}
	return &out, nil
}

func readInboxDeployment(ctx context.Context, client ethereum.ContractCaller, creator common.Address, method string, inbox common.Address, dst any) error {
	data, err := tokenBridgeCreatorABI.Pack(method, inbox)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	out, err := call(ctx, client, creator, data)
	if err != nil {
		return fmt.Errorf("call %s on %s: %w", method, creator.Hex(), err)
	}
	if err := tokenBridgeCreatorABI.UnpackIntoInterface(dst, method, out); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	return nil
}

package orbit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// rollupCreatorConstraint is the RollupCreator range whose createRollup
// layout matches CreateRollupParams.
const rollupCreatorConstraint = ">= 3.0.0, < 4.0.0"

// PrepareCreateRollupTransaction builds the createRollup call on the parent
// chain the client is connected to.
func PrepareCreateRollupTransaction(
	ctx context.Context,
	cfg *RollupDeploymentConfig,
	from common.Address,
	client ChainIDReader,
	opts ...Option,
) (*TransactionRequest, error) {
	if cfg == nil {
		return nil, NewInvalidParameterError("config", "is nil")
	}
	if from == (common.Address{}) {
		return nil, NewInvalidParameterError("from", "must not be the zero address")
	}
	o := applyOptions(opts)

	parentChainID, err := chainID(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("get parent chain ID: %w", err)
	}

	creator, err := resolveRollupCreator(o, parentChainID)
	if err != nil {
		return nil, err
	}

	data, err := rollupCreatorABI.Pack("createRollup", cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("encode createRollup: %w", err)
	}

	value := o.value
	if value == nil {
		value = createRollupValue(cfg)
	}

	o.logger.Debug("prepared createRollup",
		slog.Uint64("parent_chain_id", parentChainID),
		slog.Uint64("chain_id", cfg.ChainConfig.ChainID),
		slog.String("rollup_creator", creator.Hex()),
		slog.String("value", value.String()),
	)

	return newTransactionRequest(from, creator, data, value), nil
}

func resolveRollupCreator(o *options, parentChainID uint64) (common.Address, error) {
	if o.rollupCreator != nil {
		if *o.rollupCreator == (common.Address{}) {
			return common.Address{}, NewInvalidParameterError("rollupCreator", "must not be the zero address")
		}
		return *o.rollupCreator, nil
	}
	dep, err := o.registry.RollupCreator(parentChainID)
	if err != nil {
		return common.Address{}, err
	}
	if err := RequireVersion(dep, rollupCreatorConstraint); err != nil {
		return common.Address{}, &UnsupportedChainError{ChainID: parentChainID, What: "RollupCreator " + rollupCreatorConstraint}
	}
	return dep.Address, nil
}

// createRollupValue funds the factory deployment retryables. Custom fee token
// chains pay them in the token through an allowance instead.
func createRollupValue(cfg *RollupDeploymentConfig) *big.Int {
	if cfg.Params.DeployFactoriesToL2 && !cfg.UsesCustomFeeToken() {
		return copyBig(CreateRollupDefaultRetryablesFees)
	}
	return new(big.Int)
}

// DecodeCreateRollupCalldata decodes the parameters of a createRollup call.
func DecodeCreateRollupCalldata(data []byte) (*CreateRollupParams, error) {
	method := rollupCreatorABI.Methods["createRollup"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return nil, NewInvalidParameterError("data", "not a createRollup call")
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("decode createRollup: %w", err)
	}
	var args struct {
		DeployParams CreateRollupParams
	}
	if err := method.Inputs.Copy(&args, values); err != nil {
		return nil, fmt.Errorf("decode createRollup: %w", err)
	}
	return &args.DeployParams, nil
}

// ChainConfigFromCreateRollupCalldata extracts the chain config embedded in a
// createRollup call.
func ChainConfigFromCreateRollupCalldata(data []byte) (ChainConfig, error) {
	params, err := DecodeCreateRollupCalldata(data)
	if err != nil {
		return ChainConfig{}, err
	}
	return ParseChainConfig(params.Config.ChainConfig)
}

// FetchRollupChainConfig loads a createRollup transaction and returns the
// chain config it deployed.
func FetchRollupChainConfig(ctx context.Context, client TransactionReader, txHash common.Hash) (ChainConfig, error) {
	tx, _, err := client.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return ChainConfig{}, &MissingFieldError{Field: "transaction " + txHash.Hex(), Context: "createRollup lookup"}
		}
		return ChainConfig{}, fmt.Errorf("get transaction %s: %w", txHash.Hex(), err)
	}
	return ChainConfigFromCreateRollupCalldata(tx.Data())
}

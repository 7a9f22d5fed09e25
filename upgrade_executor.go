package orbit

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ============================================================================
// Upgrade Executor admin calls
// ============================================================================

// Rollup and sequencer inbox admin functions are restricted to the chain's
// UpgradeExecutor. Every preparer below encodes the target call and wraps it
// in UpgradeExecutor.executeCall(target, data), sent by an executor role holder.

// UpgradeExecutorCall identifies the executor, its caller and the target.
type UpgradeExecutorCall struct {
	UpgradeExecutor common.Address
	Target          common.Address
	From            common.Address
}

func (c UpgradeExecutorCall) validate() error {
	if c.UpgradeExecutor == (common.Address{}) {
		return NewInvalidParameterError("upgradeExecutor", "must not be the zero address")
	}
	if c.Target == (common.Address{}) {
		return NewInvalidParameterError("target", "must not be the zero address")
	}
	return nil
}

// PrepareUpgradeExecutorTransaction wraps an arbitrary call to target.
func PrepareUpgradeExecutorTransaction(c UpgradeExecutorCall, targetData []byte) (*TransactionRequest, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	data, err := upgradeExecutorABI.Pack("executeCall", c.Target, targetData)
	if err != nil {
		return nil, fmt.Errorf("encode executeCall: %w", err)
	}
	return newTransactionRequest(c.From, c.UpgradeExecutor, data, nil), nil
}

func prepareExecutorCall(c UpgradeExecutorCall, contract abi.ABI, method string, args ...any) (*TransactionRequest, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	inner, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return PrepareUpgradeExecutorTransaction(c, inner)
}

// PrepareSetValidatorTransaction enables or disables validators on a rollup.
// Target is the rollup.
func PrepareSetValidatorTransaction(c UpgradeExecutorCall, validators []common.Address, enabled []bool) (*TransactionRequest, error) {
	if len(validators) == 0 {
		return nil, NewInvalidParameterError("validators", "must not be empty")
	}
	if len(validators) != len(enabled) {
		return nil, NewInvalidParameterError("enabled",
			fmt.Sprintf("has %d entries for %d validators", len(enabled), len(validators)))
	}
	for i, v := range validators {
		if v == (common.Address{}) {
			return nil, NewInvalidParameterError(fmt.Sprintf("validators[%d]", i), "must not be the zero address")
		}
	}
	return prepareExecutorCall(c, rollupABI, "setValidator", validators, enabled)
}

// PrepareSetKeysetTransaction registers a data availability committee keyset
// on an AnyTrust sequencer inbox. Target is the sequencer inbox.
func PrepareSetKeysetTransaction(c UpgradeExecutorCall, keyset []byte) (*TransactionRequest, error) {
	if len(keyset) == 0 {
		return nil, NewInvalidParameterError("keyset", "must not be empty")
	}
	return prepareExecutorCall(c, sequencerInboxABI, "setValidKeyset", keyset)
}

// PrepareSetFastConfirmerTransaction sets the AnyTrust fast confirmer of a
// rollup. Target is the rollup.
func PrepareSetFastConfirmerTransaction(c UpgradeExecutorCall, confirmer common.Address) (*TransactionRequest, error) {
	return prepareExecutorCall(c, rollupABI, "setAnyTrustFastConfirmer", confirmer)
}

// PrepareSetMinimumAssertionPeriodTransaction sets the minimum number of
// blocks between assertions. Target is the rollup.
func PrepareSetMinimumAssertionPeriodTransaction(c UpgradeExecutorCall, period uint64) (*TransactionRequest, error) {
	if period == 0 {
		return nil, NewInvalidParameterError("period", "must be positive")
	}
	return prepareExecutorCall(c, rollupABI, "setMinimumAssertionPeriod", new(big.Int).SetUint64(period))
}

// PrepareSetIsBatchPosterTransaction adds or removes a batch poster. Target is
// the sequencer inbox.
func PrepareSetIsBatchPosterTransaction(c UpgradeExecutorCall, poster common.Address, enabled bool) (*TransactionRequest, error) {
	if poster == (common.Address{}) {
		return nil, NewInvalidParameterError("batchPoster", "must not be the zero address")
	}
	return prepareExecutorCall(c, sequencerInboxABI, "setIsBatchPoster", poster, enabled)
}

// ============================================================================
// Reads
// ============================================================================

// IsBatchPoster reports whether addr may post batches to the sequencer inbox.
func IsBatchPoster(ctx context.Context, client ethereum.ContractCaller, sequencerInbox, addr common.Address) (bool, error) {
	data, err := sequencerInboxABI.Pack("isBatchPoster", addr)
	if err != nil {
		return false, fmt.Errorf("encode isBatchPoster: %w", err)
	}
	out, err := call(ctx, client, sequencerInbox, data)
	if err != nil {
		return false, fmt.Errorf("call isBatchPoster on %s: %w", sequencerInbox.Hex(), err)
	}
	vals, err := sequencerInboxABI.Unpack("isBatchPoster", out)
	if err != nil {
		return false, fmt.Errorf("decode isBatchPoster: %w", err)
	}
	return vals[0].(bool), nil
}

// ConfirmPeriodBlocks reads the challenge period of a rollup in parent chain blocks.
func ConfirmPeriodBlocks(ctx context.Context, client ethereum.ContractCaller, rollup common.Address) (uint64, error) {
	data, err := rollupABI.Pack("confirmPeriodBlocks")
	if err != nil {
		return 0, fmt.Errorf("encode confirmPeriodBlocks: %w", err)
	}
	out, err := call(ctx, client, rollup, data)
	if err != nil {
		return 0, fmt.Errorf("call confirmPeriodBlocks on %s: %w", rollup.Hex(), err)
	}
	vals, err := rollupABI.Unpack("confirmPeriodBlocks", out)
	if err != nil {
		return 0, fmt.Errorf("decode confirmPeriodBlocks: %w", err)
	}
	return vals[0].(uint64), nil
}

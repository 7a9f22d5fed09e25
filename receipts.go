package orbit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExtractCoreContracts decodes the RollupCreated event of a createRollup
// receipt. Both the v3 layout and the v2.1 layout (which also deploys
// ValidatorUtils) are recognized by their topic.
func ExtractCoreContracts(receipt *types.Receipt) (*CoreContracts, error) {
	if receipt == nil {
		return nil, NewInvalidParameterError("receipt", "is nil")
	}

	v3 := rollupCreatorABI.Events["RollupCreated"]
	v21 := rollupCreatorV21ABI.Events["RollupCreated"]

	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 {
			continue
		}
		switch lg.Topics[0] {
		case v3.ID:
			return decodeRollupCreated(receipt, lg, v3, false)
		case v21.ID:
			return decodeRollupCreated(receipt, lg, v21, true)
		}
	}
	return nil, &MissingEventError{Event: "RollupCreated", TxHash: receipt.TxHash}
}

func decodeRollupCreated(receipt *types.Receipt, lg *types.Log, event abi.Event, withValidatorUtils bool) (*CoreContracts, error) {
	if len(lg.Topics) < 3 {
		return nil, &MissingFieldError{Field: "rollupAddress", Context: "RollupCreated topics"}
	}
	vals, err := event.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, &MissingFieldError{Field: "contract addresses", Context: fmt.Sprintf("RollupCreated data (%d bytes)", len(lg.Data))}
	}

	addrs := make([]common.Address, len(vals))
	for i, v := range vals {
		addr, ok := v.(common.Address)
		if !ok {
			return nil, fmt.Errorf("decode RollupCreated: unexpected type %T", v)
		}
		addrs[i] = addr
	}

	c := &CoreContracts{
		Rollup:           common.BytesToAddress(lg.Topics[1].Bytes()),
		NativeToken:      common.BytesToAddress(lg.Topics[2].Bytes()),
		Inbox:            addrs[0],
		Outbox:           addrs[1],
		RollupEventInbox: addrs[2],
		ChallengeManager: addrs[3],
		AdminProxy:       addrs[4],
		SequencerInbox:   addrs[5],
		Bridge:           addrs[6],
		UpgradeExecutor:  addrs[7],
	}
	if withValidatorUtils {
		c.ValidatorUtils = addrs[8]
		c.ValidatorWalletCreator = addrs[9]
	} else {
		c.ValidatorWalletCreator = addrs[8]
	}

	switch {
	case receipt.BlockNumber != nil:
		c.DeployedAtBlockNumber = receipt.BlockNumber.Uint64()
	case lg.BlockNumber != 0:
		c.DeployedAtBlockNumber = lg.BlockNumber
	}
	return c, nil
}

package orbit

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EIP-1967 storage slots.
var (
	implementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	adminSlot          = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
)

// StorageReader reads contract storage.
type StorageReader interface {
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// GetLogicAddress returns the implementation behind an EIP-1967 proxy.
func GetLogicAddress(ctx context.Context, client StorageReader, proxy common.Address) (common.Address, error) {
	return readAddressSlot(ctx, client, proxy, implementationSlot, "implementation")
}

// GetProxyAdmin returns the admin of an EIP-1967 proxy.
func GetProxyAdmin(ctx context.Context, client StorageReader, proxy common.Address) (common.Address, error) {
	return readAddressSlot(ctx, client, proxy, adminSlot, "admin")
}

func readAddressSlot(ctx context.Context, client StorageReader, proxy common.Address, slot common.Hash, name string) (common.Address, error) {
	raw, err := client.StorageAt(ctx, proxy, slot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("read %s slot of %s: %w", name, proxy.Hex(), err)
	}
	addr := common.BytesToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, &MissingFieldError{Field: name + " slot", Context: "proxy " + proxy.Hex()}
	}
	return addr, nil
}

// Package orbit prepares, encodes and decodes the transactions used to deploy
// and administer Arbitrum Orbit rollup and AnyTrust chains.
//
// The package never signs or broadcasts. Preparers return a TransactionRequest
// that the caller signs and sends with its own client; decoders turn the mined
// receipt back into structured results.
package orbit

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ============================================================================
// Transaction Requests
// ============================================================================

// TransactionRequest is an unsigned transaction ready to be signed and sent.
type TransactionRequest struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  []byte         `json:"data"`
	Value *big.Int       `json:"value"`
}

// ToCallMsg converts the request into a call message for gas estimation or
// eth_call simulation.
func (r *TransactionRequest) ToCallMsg() ethereum.CallMsg {
	to := r.To
	return ethereum.CallMsg{
		From:  r.From,
		To:    &to,
		Value: r.Value,
		Data:  r.Data,
	}
}

func newTransactionRequest(from, to common.Address, data []byte, value *big.Int) *TransactionRequest {
	if value == nil {
		value = new(big.Int)
	}
	return &TransactionRequest{
		From:  from,
		To:    to,
		Data:  data,
		Value: new(big.Int).Set(value),
	}
}

// ============================================================================
// Contract Addresses
// ============================================================================

// CoreContracts contains the addresses emitted by a single RollupCreated event.
// Features that are not in use (custom fee token, validator utils on v3
// creators) are the zero address.
type CoreContracts struct {
	Rollup                 common.Address `json:"rollup"`
	NativeToken            common.Address `json:"nativeToken"`
	Inbox                  common.Address `json:"inbox"`
	Outbox                 common.Address `json:"outbox"`
	RollupEventInbox       common.Address `json:"rollupEventInbox"`
	ChallengeManager       common.Address `json:"challengeManager"`
	AdminProxy             common.Address `json:"adminProxy"`
	SequencerInbox         common.Address `json:"sequencerInbox"`
	Bridge                 common.Address `json:"bridge"`
	UpgradeExecutor        common.Address `json:"upgradeExecutor"`
	ValidatorUtils         common.Address `json:"validatorUtils"`
	ValidatorWalletCreator common.Address `json:"validatorWalletCreator"`
	DeployedAtBlockNumber  uint64         `json:"deployedAtBlockNumber"`
}

// UsesCustomFeeToken reports whether the chain pays gas in an ERC-20 token.
func (c *CoreContracts) UsesCustomFeeToken() bool {
	return c.NativeToken != (common.Address{})
}

// TokenBridgeParentContracts are the token bridge contracts on the parent chain.
type TokenBridgeParentContracts struct {
	Router          common.Address `json:"router"`
	StandardGateway common.Address `json:"standardGateway"`
	CustomGateway   common.Address `json:"customGateway"`
	WethGateway     common.Address `json:"wethGateway"`
	Weth            common.Address `json:"weth"`
}

// TokenBridgeOrbitContracts are the token bridge contracts on the Orbit chain.
type TokenBridgeOrbitContracts struct {
	Router             common.Address `json:"router"`
	StandardGateway    common.Address `json:"standardGateway"`
	CustomGateway      common.Address `json:"customGateway"`
	WethGateway        common.Address `json:"wethGateway"`
	Weth               common.Address `json:"weth"`
	ProxyAdmin         common.Address `json:"proxyAdmin"`
	BeaconProxyFactory common.Address `json:"beaconProxyFactory"`
	UpgradeExecutor    common.Address `json:"upgradeExecutor"`
	Multicall          common.Address `json:"multicall"`
}

// TokenBridgeContracts groups both sides of a token bridge deployment.
type TokenBridgeContracts struct {
	ParentChain TokenBridgeParentContracts `json:"parentChainContracts"`
	OrbitChain  TokenBridgeOrbitContracts  `json:"orbitChainContracts"`
}

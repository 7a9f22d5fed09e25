package orbit

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// parentBlockTimeSeconds converts confirm periods to seconds. Rollups
	// settling to Arbitrum chains also count layer 1 blocks.
	parentBlockTimeSeconds = 12
	// RetryableLifetimeSeconds is how long an unredeemed ticket lives.
	RetryableLifetimeSeconds = 7 * 24 * 60 * 60
)

// BridgeUIConfig registers an Orbit chain as a custom network in the
// Arbitrum bridge UI.
type BridgeUIConfig struct {
	ChainID                  uint64               `json:"chainId"`
	Name                     string               `json:"name"`
	ParentChainID            uint64               `json:"parentChainId"`
	RPCURL                   string               `json:"rpcUrl"`
	ExplorerURL              string               `json:"explorerUrl"`
	IsArbitrum               bool                 `json:"isArbitrum"`
	IsCustom                 bool                 `json:"isCustom"`
	IsTestnet                bool                 `json:"isTestnet"`
	ConfirmPeriodSeconds     uint64               `json:"confirmPeriodSeconds"`
	RetryableLifetimeSeconds uint64               `json:"retryableLifetimeSeconds"`
	NativeToken              common.Address       `json:"nativeToken"`
	NativeTokenData          NativeTokenData      `json:"nativeTokenData"`
	EthBridge                BridgeUIEthBridge    `json:"ethBridge"`
	TokenBridge              *BridgeUITokenBridge `json:"tokenBridge,omitempty"`
}

// NativeTokenData describes the fee currency.
type NativeTokenData struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// BridgeUIEthBridge lists the core bridge contracts.
type BridgeUIEthBridge struct {
	Bridge         common.Address `json:"bridge"`
	Inbox          common.Address `json:"inbox"`
	Outbox         common.Address `json:"outbox"`
	Rollup         common.Address `json:"rollup"`
	SequencerInbox common.Address `json:"sequencerInbox"`
}

// BridgeUITokenBridge lists the gateways of both chains.
type BridgeUITokenBridge struct {
	ParentCustomGateway common.Address `json:"parentCustomGateway"`
	ParentErc20Gateway  common.Address `json:"parentErc20Gateway"`
	ParentGatewayRouter common.Address `json:"parentGatewayRouter"`
	ParentWeth          common.Address `json:"parentWeth"`
	ParentWethGateway   common.Address `json:"parentWethGateway"`
	ChildCustomGateway  common.Address `json:"childCustomGateway"`
	ChildErc20Gateway   common.Address `json:"childErc20Gateway"`
	ChildGatewayRouter  common.Address `json:"childGatewayRouter"`
	ChildMultiCall      common.Address `json:"childMultiCall"`
	ChildProxyAdmin     common.Address `json:"childProxyAdmin"`
	ChildWeth           common.Address `json:"childWeth"`
	ChildWethGateway    common.Address `json:"childWethGateway"`
}

// BridgeUIParams are the inputs of GetBridgeUIConfig.
type BridgeUIParams struct {
	ChainID       uint64
	ChainName     string
	RPCURL        string
	ExplorerURL   string
	CoreContracts CoreContracts
	TokenBridge   *TokenBridgeContracts
	// ParentChainID defaults to the chain the client is connected to.
	ParentChainID uint64
	Registry      *Registry
}

// BridgeUIClient is the parent chain access GetBridgeUIConfig needs.
type BridgeUIClient interface {
	ethereum.ContractCaller
	ChainIDReader
}

// GetBridgeUIConfig assembles the bridge UI network entry from deployment
// results and on-chain reads on the parent chain.
func GetBridgeUIConfig(ctx context.Context, params BridgeUIParams, client BridgeUIClient) (*BridgeUIConfig, error) {
	if params.ChainName == "" {
		return nil, &MissingFieldError{Field: "chainName", Context: "bridge UI config"}
	}
	if params.RPCURL == "" {
		return nil, &MissingFieldError{Field: "rpcUrl", Context: "bridge UI config"}
	}
	if params.ChainID == 0 {
		return nil, &MissingFieldError{Field: "chainId", Context: "bridge UI config"}
	}
	if params.CoreContracts.Rollup == (common.Address{}) {
		return nil, &MissingFieldError{Field: "coreContracts.rollup", Context: "bridge UI config"}
	}
	registry := params.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	parentChainID := params.ParentChainID
	if parentChainID == 0 {
		id, err := chainID(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("get parent chain ID: %w", err)
		}
		parentChainID = id
	}

	confirmBlocks, err := ConfirmPeriodBlocks(ctx, client, params.CoreContracts.Rollup)
	if err != nil {
		return nil, err
	}
	tokenData, err := NativeTokenInfo(ctx, client, params.CoreContracts.NativeToken)
	if err != nil {
		return nil, err
	}

	core := params.CoreContracts
	cfg := &BridgeUIConfig{
		ChainID:                  params.ChainID,
		Name:                     params.ChainName,
		ParentChainID:            parentChainID,
		RPCURL:                   params.RPCURL,
		ExplorerURL:              params.ExplorerURL,
		IsArbitrum:               true,
		IsCustom:                 true,
		IsTestnet:                registry.IsTestnet(parentChainID),
		ConfirmPeriodSeconds:     confirmBlocks * parentBlockTimeSeconds,
		RetryableLifetimeSeconds: RetryableLifetimeSeconds,
		NativeToken:              core.NativeToken,
		NativeTokenData:          tokenData,
		EthBridge: BridgeUIEthBridge{
			Bridge:         core.Bridge,
			Inbox:          core.Inbox,
			Outbox:         core.Outbox,
			Rollup:         core.Rollup,
			SequencerInbox: core.SequencerInbox,
		},
	}

	if tb := params.TokenBridge; tb != nil {
		cfg.TokenBridge = &BridgeUITokenBridge{
			ParentCustomGateway: tb.ParentChain.CustomGateway,
			ParentErc20Gateway:  tb.ParentChain.StandardGateway,
			ParentGatewayRouter: tb.ParentChain.Router,
			ParentWeth:          tb.ParentChain.Weth,
			ParentWethGateway:   tb.ParentChain.WethGateway,
			ChildCustomGateway:  tb.OrbitChain.CustomGateway,
			ChildErc20Gateway:   tb.OrbitChain.StandardGateway,
			ChildGatewayRouter:  tb.OrbitChain.Router,
			ChildMultiCall:      tb.OrbitChain.Multicall,
			ChildProxyAdmin:     tb.OrbitChain.ProxyAdmin,
			ChildWeth:           tb.OrbitChain.Weth,
			ChildWethGateway:    tb.OrbitChain.WethGateway,
		}
	}
	return cfg, nil
}

// NativeTokenInfo reads name, symbol and decimals of a fee token. The zero
// address stands for ETH.
func NativeTokenInfo(ctx context.Context, client ethereum.ContractCaller, token common.Address) (NativeTokenData, error) {
	if token == (common.Address{}) {
		return NativeTokenData{Name: "Ether", Symbol: "ETH", Decimals: ethDecimals}, nil
	}
	name, err := callString(ctx, client, token, "name")
	if err != nil {
		return NativeTokenData{}, err
	}
	symbol, err := callString(ctx, client, token, "symbol")
	if err != nil {
		return NativeTokenData{}, err
	}
	decimals, err := NativeTokenDecimals(ctx, client, token)
	if err != nil {
		return NativeTokenData{}, err
	}
	return NativeTokenData{Name: name, Symbol: symbol, Decimals: decimals}, nil
}

func callString(ctx context.Context, client ethereum.ContractCaller, token common.Address, method string) (string, error) {
	data, err := erc20ABI.Pack(method)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", method, err)
	}
	out, err := call(ctx, client, token, data)
	if err != nil {
		return "", fmt.Errorf("call %s on %s: %w", method, token.Hex(), err)
	}
	vals, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", method, err)
	}
	return vals[0].(string), nil
}

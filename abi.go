package orbit

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ============================================================================
// Contract ABI fragments
// ============================================================================

// Only the functions and events this package touches are included.

const maxTimeVariationComponents = `[
	{"name": "delayBlocks", "type": "uint256"},
	{"name": "futureBlocks", "type": "uint256"},
	{"name": "delaySeconds", "type": "uint256"},
	{"name": "futureSeconds", "type": "uint256"}
]`

const assertionStateComponents = `[
	{"name": "globalState", "type": "tuple", "components": [
		{"name": "bytes32Vals", "type": "bytes32[2]"},
		{"name": "u64Vals", "type": "uint64[2]"}
	]},
	{"name": "machineStatus", "type": "uint8"},
	{"name": "endHistoryRoot", "type": "bytes32"}
]`

const bufferConfigComponents = `[
	{"name": "threshold", "type": "uint64"},
	{"name": "max", "type": "uint64"},
	{"name": "replenishRateInBasis", "type": "uint64"}
]`

const rollupCreatorABIJSON = `[
	{
		"name": "createRollup",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [{
			"name": "deployParams",
			"type": "tuple",
			"components": [
				{"name": "config", "type": "tuple", "components": [
					{"name": "confirmPeriodBlocks", "type": "uint64"},
					{"name": "stakeToken", "type": "address"},
					{"name": "baseStake", "type": "uint256"},
					{"name": "wasmModuleRoot", "type": "bytes32"},
					{"name": "owner", "type": "address"},
					{"name": "loserStakeEscrow", "type": "address"},
					{"name": "chainId", "type": "uint256"},
					{"name": "chainConfig", "type": "string"},
					{"name": "minimumAssertionPeriod", "type": "uint256"},
					{"name": "validatorAfkBlocks", "type": "uint64"},
					{"name": "miniStakeValues", "type": "uint256[]"},
					{"name": "sequencerInboxMaxTimeVariation", "type": "tuple", "components": ` + maxTimeVariationComponents + `},
					{"name": "layerZeroBlockEdgeHeight", "type": "uint256"},
					{"name": "layerZeroBigStepEdgeHeight", "type": "uint256"},
					{"name": "layerZeroSmallStepEdgeHeight", "type": "uint256"},
					{"name": "genesisAssertionState", "type": "tuple", "components": ` + assertionStateComponents + `},
					{"name": "genesisInboxCount", "type": "uint256"},
					{"name": "anyTrustFastConfirmer", "type": "address"},
					{"name": "numBigStepLevel", "type": "uint8"},
					{"name": "challengeGracePeriodBlocks", "type": "uint64"},
					{"name": "bufferConfig", "type": "tuple", "components": ` + bufferConfigComponents + `},
					{"name": "dataCostEstimate", "type": "uint256"}
				]},
				{"name": "validators", "type": "address[]"},
				{"name": "maxDataSize", "type": "uint256"},
				{"name": "nativeToken", "type": "address"},
				{"name": "deployFactoriesToL2", "type": "bool"},
				{"name": "maxFeePerGasForRetryables", "type": "uint256"},
				{"name": "batchPosters", "type": "address[]"},
				{"name": "batchPosterManager", "type": "address"},
				{"name": "feeTokenPricer", "type": "address"}
			]
		}],
		"outputs": [{"name": "", "type": "address"}]
	},
	{
		"name": "RollupCreated",
		"type": "event",
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "rollupAddress", "type": "address"},
			{"indexed": true, "name": "nativeToken", "type": "address"},
			{"indexed": false, "name": "inboxAddress", "type": "address"},
			{"indexed": false, "name": "outbox", "type": "address"},
			{"indexed": false, "name": "rollupEventInbox", "type": "address"},
			{"indexed": false, "name": "challengeManager", "type": "address"},
			{"indexed": false, "name": "adminProxy", "type": "address"},
			{"indexed": false, "name": "sequencerInbox", "type": "address"},
			{"indexed": false, "name": "bridge", "type": "address"},
			{"indexed": false, "name": "upgradeExecutor", "type": "address"},
			{"indexed": false, "name": "validatorWalletCreator", "type": "address"}
		]
	}
]`

// RollupCreated as emitted by v2.1 creators, which also deploy ValidatorUtils.
const rollupCreatorV21EventsJSON = `[
	{
		"name": "RollupCreated",
		"type": "event",
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "rollupAddress", "type": "address"},
			{"indexed": true, "name": "nativeToken", "type": "address"},
			{"indexed": false, "name": "inboxAddress", "type": "address"},
			{"indexed": false, "name": "outbox", "type": "address"},
			{"indexed": false, "name": "rollupEventInbox", "type": "address"},
			{"indexed": false, "name": "challengeManager", "type": "address"},
			{"indexed": false, "name": "adminProxy", "type": "address"},
			{"indexed": false, "name": "sequencerInbox", "type": "address"},
			{"indexed": false, "name": "bridge", "type": "address"},
			{"indexed": false, "name": "upgradeExecutor", "type": "address"},
			{"indexed": false, "name": "validatorUtils", "type": "address"},
			{"indexed": false, "name": "validatorWalletCreator", "type": "address"}
		]
	}
]`

const upgradeExecutorABIJSON = `[{
	"name": "executeCall",
	"type": "function",
	"stateMutability": "payable",
	"inputs": [
		{"name": "upgrade", "type": "address"},
		{"name": "upgradeCallData", "type": "bytes"}
	],
	"outputs": []
}]`

const rollupABIJSON = `[
	{"name": "setValidator", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [{"name": "_validator", "type": "address[]"}, {"name": "_val", "type": "bool[]"}], "outputs": []},
	{"name": "setAnyTrustFastConfirmer", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [{"name": "_anyTrustFastConfirmer", "type": "address"}], "outputs": []},
	{"name": "setMinimumAssertionPeriod", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [{"name": "newPeriod", "type": "uint256"}], "outputs": []},
	{"name": "inbox", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "confirmPeriodBlocks", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "uint64"}]}
]`

const sequencerInboxABIJSON = `[
	{"name": "setValidKeyset", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [{"name": "keysetBytes", "type": "bytes"}], "outputs": []},
	{"name": "setIsBatchPoster", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [{"name": "addr", "type": "address"}, {"name": "isBatchPoster_", "type": "bool"}], "outputs": []},
	{"name": "isBatchPoster", "type": "function", "stateMutability": "view",
	 "inputs": [{"name": "", "type": "address"}], "outputs": [{"name": "", "type": "bool"}]}
]`

const inboxABIJSON = `[
	{"name": "bridge", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "calculateRetryableSubmissionFee", "type": "function", "stateMutability": "view",
	 "inputs": [{"name": "dataLength", "type": "uint256"}, {"name": "baseFee", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "uint256"}]},
	{"name": "InboxMessageDelivered", "type": "event", "anonymous": false,
	 "inputs": [{"indexed": true, "name": "messageNum", "type": "uint256"}, {"indexed": false, "name": "data", "type": "bytes"}]}
]`

const bridgeABIJSON = `[
	{"name": "nativeToken", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "MessageDelivered", "type": "event", "anonymous": false,
	 "inputs": [
		{"indexed": true, "name": "messageIndex", "type": "uint256"},
		{"indexed": true, "name": "beforeInboxAcc", "type": "bytes32"},
		{"indexed": false, "name": "inbox", "type": "address"},
		{"indexed": false, "name": "kind", "type": "uint8"},
		{"indexed": false, "name": "sender", "type": "address"},
		{"indexed": false, "name": "messageDataHash", "type": "bytes32"},
		{"indexed": false, "name": "baseFeeL1", "type": "uint256"},
		{"indexed": false, "name": "timestamp", "type": "uint64"}
	 ]}
]`

const erc20ABIJSON = `[
	{"name": "allowance", "type": "function", "stateMutability": "view",
	 "inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}]},
	{"name": "approve", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "bool"}]},
	{"name": "decimals", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "uint8"}]},
	{"name": "symbol", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "string"}]},
	{"name": "name", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "string"}]}
]`

const tokenBridgeAddressesL1 = `[
	{"name": "router", "type": "address"},
	{"name": "standardGateway", "type": "address"},
	{"name": "customGateway", "type": "address"},
	{"name": "wethGateway", "type": "address"},
	{"name": "weth", "type": "address"}
]`

const tokenBridgeAddressesL2 = `[
	{"name": "router", "type": "address"},
	{"name": "standardGateway", "type": "address"},
	{"name": "customGateway", "type": "address"},
	{"name": "wethGateway", "type": "address"},
	{"name": "weth", "type": "address"},
	{"name": "proxyAdmin", "type": "address"},
	{"name": "beaconProxyFactory", "type": "address"},
	{"name": "upgradeExecutor", "type": "address"},
	{"name": "multicall", "type": "address"}
]`

const tokenBridgeCreatorABIJSON = `[
	{"name": "createTokenBridge", "type": "function", "stateMutability": "payable",
	 "inputs": [
		{"name": "inbox", "type": "address"},
		{"name": "rollupOwner", "type": "address"},
		{"name": "maxGasForContracts", "type": "uint256"},
		{"name": "gasPriceBid", "type": "uint256"}
	 ], "outputs": []},
	{"name": "gasLimitForL2FactoryDeployment", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
	{"name": "l2TokenBridgeFactoryTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l2RouterTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l2StandardGatewayTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l2CustomGatewayTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l2WethGatewayTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l2WethTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l2MulticallTemplate", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"name": "l1Templates", "type": "function", "stateMutability": "view",
	 "inputs": [], "outputs": [
		{"name": "routerTemplate", "type": "address"},
		{"name": "standardGatewayTemplate", "type": "address"},
		{"name": "customGatewayTemplate", "type": "address"},
		{"name": "wethGatewayTemplate", "type": "address"},
		{"name": "feeTokenBasedRouterTemplate", "type": "address"},
		{"name": "feeTokenBasedStandardGatewayTemplate", "type": "address"},
		{"name": "feeTokenBasedCustomGatewayTemplate", "type": "address"},
		{"name": "upgradeExecutor", "type": "address"}
	 ]},
	{"name": "inboxToL1Deployment", "type": "function", "stateMutability": "view",
	 "inputs": [{"name": "", "type": "address"}], "outputs": ` + tokenBridgeAddressesL1 + `},
	{"name": "inboxToL2Deployment", "type": "function", "stateMutability": "view",
	 "inputs": [{"name": "", "type": "address"}], "outputs": ` + tokenBridgeAddressesL2 + `},
	{"name": "OrbitTokenBridgeCreated", "type": "event", "anonymous": false,
	 "inputs": [
		{"indexed": true, "name": "inbox", "type": "address"},
		{"indexed": true, "name": "owner", "type": "address"},
		{"indexed": false, "name": "l1Deployment", "type": "tuple", "components": ` + tokenBridgeAddressesL1 + `},
		{"indexed": false, "name": "l2Deployment", "type": "tuple", "components": ` + tokenBridgeAddressesL2 + `},
		{"indexed": false, "name": "proxyAdmin", "type": "address"},
		{"indexed": false, "name": "upgradeExecutor", "type": "address"}
	 ]}
]`

// l2TokenBridgeFactoryABIJSON covers the call data of the second token bridge
// retryable.
const l2TokenBridgeFactoryABIJSON = `[
	{"name": "deployL2Contracts", "type": "function", "stateMutability": "nonpayable",
	 "inputs": [
		{"name": "l2Code", "type": "tuple", "components": [
			{"name": "router", "type": "bytes"},
			{"name": "standardGateway", "type": "bytes"},
			{"name": "customGateway", "type": "bytes"},
			{"name": "wethGateway", "type": "bytes"},
			{"name": "aeWeth", "type": "bytes"},
			{"name": "upgradeExecutor", "type": "bytes"},
			{"name": "multicall", "type": "bytes"}
		]},
		{"name": "l1Router", "type": "address"},
		{"name": "l1StandardGateway", "type": "address"},
		{"name": "l1CustomGateway", "type": "address"},
		{"name": "l1WethGateway", "type": "address"},
		{"name": "l1Weth", "type": "address"},
		{"name": "l2StandardGatewayCanonicalAddress", "type": "address"},
		{"name": "rollupOwner", "type": "address"},
		{"name": "aliasedL1UpgradeExecutor", "type": "address"}
	 ], "outputs": []}
]`

const arbRetryableTxABIJSON = `[
	{"name": "RedeemScheduled", "type": "event", "anonymous": false,
	 "inputs": [
		{"indexed": true, "name": "ticketId", "type": "bytes32"},
		{"indexed": true, "name": "retryTxHash", "type": "bytes32"},
		{"indexed": true, "name": "sequenceNum", "type": "uint64"},
		{"indexed": false, "name": "donatedGas", "type": "uint64"},
		{"indexed": false, "name": "gasDonor", "type": "address"},
		{"indexed": false, "name": "maxRefund", "type": "uint256"},
		{"indexed": false, "name": "submissionFeeRefund", "type": "uint256"}
	 ]}
]`

var (
	rollupCreatorABI        = mustParseABI("RollupCreator", rollupCreatorABIJSON)
	rollupCreatorV21ABI     = mustParseABI("RollupCreator v2.1", rollupCreatorV21EventsJSON)
	upgradeExecutorABI      = mustParseABI("UpgradeExecutor", upgradeExecutorABIJSON)
	rollupABI               = mustParseABI("RollupAdminLogic", rollupABIJSON)
	sequencerInboxABI       = mustParseABI("SequencerInbox", sequencerInboxABIJSON)
	inboxABI                = mustParseABI("Inbox", inboxABIJSON)
	bridgeABI               = mustParseABI("Bridge", bridgeABIJSON)
	erc20ABI                = mustParseABI("ERC20", erc20ABIJSON)
	tokenBridgeCreatorABI   = mustParseABI("TokenBridgeCreator", tokenBridgeCreatorABIJSON)
	l2TokenBridgeFactoryABI = mustParseABI("L2AtomicTokenBridgeFactory", l2TokenBridgeFactoryABIJSON)
	arbRetryableTxABI       = mustParseABI("ArbRetryableTx", arbRetryableTxABIJSON)
)

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse %s ABI: %v", name, err))
	}
	return parsed
}

// unpackAddress decodes a single address return value.
func unpackAddress(contract abi.ABI, method string, data []byte) (common.Address, error) {
	out, err := contract.Unpack(method, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("decode %s: expected 1 value, got %d", method, len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode %s: unexpected type %T", method, out[0])
	}
	return addr, nil
}

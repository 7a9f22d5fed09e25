package orbit

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBridgeUIParams() BridgeUIParams {
	return BridgeUIParams{
		ChainID:       testChainConfig().ChainID,
		ChainName:     "My Orbit Chain",
		RPCURL:        "http://localhost:8449",
		ExplorerURL:   "http://localhost:4000",
		CoreContracts: testCoreContracts(),
	}
}

func TestGetBridgeUIConfig(t *testing.T) {
	ctx := context.Background()
	core := testCoreContracts()

	t.Run("ETH chain", func(t *testing.T) {
		client := newFakeClient(421614)
		client.onCall(core.Rollup, rollupABI, "confirmPeriodBlocks", uint64(150))

		cfg, err := GetBridgeUIConfig(ctx, testBridgeUIParams(), client)
		require.NoError(t, err)

		assert.Equal(t, uint64(421614), cfg.ParentChainID)
		assert.True(t, cfg.IsArbitrum)
		assert.True(t, cfg.IsCustom)
		assert.True(t, cfg.IsTestnet)
		assert.Equal(t, uint64(150*12), cfg.ConfirmPeriodSeconds)
		assert.Equal(t, uint64(RetryableLifetimeSeconds), cfg.RetryableLifetimeSeconds)
		assert.Equal(t, NativeTokenData{Name: "Ether", Symbol: "ETH", Decimals: 18}, cfg.NativeTokenData)
		assert.Equal(t, core.SequencerInbox, cfg.EthBridge.SequencerInbox)
		assert.Nil(t, cfg.TokenBridge)
	})

	t.Run("custom fee token with token bridge", func(t *testing.T) {
		params := testBridgeUIParams()
		params.CoreContracts.NativeToken = testFeeToken
		params.ParentChainID = 42161
		tb := testTokenBridgeContracts()
		params.TokenBridge = &tb

		client := newFakeClient(1)
		client.onCall(core.Rollup, rollupABI, "confirmPeriodBlocks", uint64(DefaultConfirmPeriodBlocks))
		client.onCall(testFeeToken, erc20ABI, "name", "Fee Token")
		client.onCall(testFeeToken, erc20ABI, "symbol", "FEE")
		client.onCall(testFeeToken, erc20ABI, "decimals", uint8(6))

		cfg, err := GetBridgeUIConfig(ctx, params, client)
		require.NoError(t, err)
		assert.Equal(t, uint64(42161), cfg.ParentChainID)
		assert.False(t, cfg.IsTestnet)
		assert.Equal(t, testFeeToken, cfg.NativeToken)
		assert.Equal(t, NativeTokenData{Name: "Fee Token", Symbol: "FEE", Decimals: 6}, cfg.NativeTokenData)

		require.NotNil(t, cfg.TokenBridge)
		assert.Equal(t, tb.ParentChain.Router, cfg.TokenBridge.ParentGatewayRouter)
		assert.Equal(t, tb.ParentChain.StandardGateway, cfg.TokenBridge.ParentErc20Gateway)
		assert.Equal(t, tb.OrbitChain.Multicall, cfg.TokenBridge.ChildMultiCall)
		assert.Equal(t, tb.OrbitChain.ProxyAdmin, cfg.TokenBridge.ChildProxyAdmin)
	})

	t.Run("missing fields", func(t *testing.T) {
		client := newFakeClient(421614)
		mutations := map[string]func(*BridgeUIParams){
			"chainName":            func(p *BridgeUIParams) { p.ChainName = "" },
			"rpcUrl":               func(p *BridgeUIParams) { p.RPCURL = "" },
			"chainId":              func(p *BridgeUIParams) { p.ChainID = 0 },
			"coreContracts.rollup": func(p *BridgeUIParams) { p.CoreContracts.Rollup = common.Address{} },
		}
		for field, mutate := range mutations {
			params := testBridgeUIParams()
			mutate(&params)
			_, err := GetBridgeUIConfig(ctx, params, client)
			var mfe *MissingFieldError
			require.ErrorAs(t, err, &mfe, field)
			assert.Equal(t, field, mfe.Field)
		}
	})

	t.Run("rollup read fails", func(t *testing.T) {
		_, err := GetBridgeUIConfig(ctx, testBridgeUIParams(), newFakeClient(421614))
		assert.ErrorIs(t, err, errExecutionReverted)
	})
}

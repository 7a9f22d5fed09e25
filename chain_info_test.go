package orbit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChainInfo(t *testing.T) {
	core := testCoreContracts()
	info, err := NewChainInfo(DefaultRegistry(), "orbit", 42161, testChainConfig(), core, testStakeToken)
	require.NoError(t, err)

	assert.Equal(t, testChainConfig().ChainID, info.ChainID)
	assert.Equal(t, uint64(42161), info.ParentChainID)
	assert.True(t, info.ParentChainIsArbitrum)
	assert.Equal(t, core.Rollup, info.Rollup.Rollup)
	assert.Equal(t, core.Bridge, info.Rollup.Bridge)
	assert.Equal(t, testStakeToken, info.Rollup.StakeToken)
	assert.Equal(t, core.DeployedAtBlockNumber, info.Rollup.DeployedAt)

	info, err = NewChainInfo(DefaultRegistry(), "orbit", 1, testChainConfig(), core, testStakeToken)
	require.NoError(t, err)
	assert.False(t, info.ParentChainIsArbitrum)

	_, err = NewChainInfo(DefaultRegistry(), "", 1, testChainConfig(), core, testStakeToken)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = NewChainInfo(DefaultRegistry(), "orbit", 999_999, testChainConfig(), core, testStakeToken)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

func TestChainInfoJSON(t *testing.T) {
	info, err := NewChainInfo(DefaultRegistry(), "orbit", 421614, testChainConfig(), testCoreContracts(), testStakeToken)
	require.NoError(t, err)

	raw, err := ChainInfoJSON(info)
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))
	require.Len(t, entries, 1)
	for _, key := range []string{"chain-id", "parent-chain-id", "parent-chain-is-arbitrum", "chain-name", "chain-config", "rollup"} {
		assert.Contains(t, entries[0], key)
	}
	rollup := entries[0]["rollup"].(map[string]any)
	assert.Contains(t, rollup, "sequencer-inbox")
	assert.Contains(t, rollup, "deployed-at")

	parsed, err := ParseChainInfoJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, []ChainInfo{info}, parsed)

	empty, err := ChainInfoJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

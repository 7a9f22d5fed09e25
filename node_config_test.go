package orbit

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBatchPosterKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testValidatorKey   = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func testNodeConfigParams(parentChainID uint64) NodeConfigParams {
	return NodeConfigParams{
		ChainName:             "My Orbit Chain",
		ChainConfig:           testChainConfig(),
		CoreContracts:         testCoreContracts(),
		StakeToken:            testStakeToken,
		BatchPosterPrivateKey: testBatchPosterKey,
		ValidatorPrivateKey:   testValidatorKey,
		ParentChainID:         parentChainID,
		ParentChainRPCURL:     "https://parent.example",
		ParentChainBeaconURL:  "https://beacon.example",
	}
}

func TestPrepareNodeConfig(t *testing.T) {
	t.Run("rollup on an arbitrum parent", func(t *testing.T) {
		cfg, err := PrepareNodeConfig(testNodeConfigParams(421614))
		require.NoError(t, err)

		assert.Equal(t, "My Orbit Chain", cfg.Chain.Name)
		assert.Equal(t, "https://parent.example", cfg.ParentChain.Connection.URL)
		assert.Nil(t, cfg.ParentChain.BlobClient, "arbitrum parents have no blobs")
		assert.True(t, cfg.Node.Dangerous.DisableBlobReader)
		assert.Nil(t, cfg.Node.DataAvailability)

		assert.Equal(t, testBatchPosterKey[2:], cfg.Node.BatchPoster.ParentChainWallet.PrivateKey)
		assert.Equal(t, testValidatorKey, cfg.Node.Staker.ParentChainWallet.PrivateKey)
		assert.Equal(t, DefaultStakerStrategy, cfg.Node.Staker.Strategy)
		assert.Equal(t, DefaultHTTPPort, cfg.HTTP.Port)
		assert.True(t, cfg.Execution.Caching.Archive)

		infos, err := ParseChainInfoJSON(cfg.Chain.InfoJSON)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.True(t, infos[0].ParentChainIsArbitrum)
		assert.Equal(t, testCoreContracts().SequencerInbox, infos[0].Rollup.SequencerInbox)
	})

	t.Run("beacon client only for layer 1 parents", func(t *testing.T) {
		tests := []struct {
			parentChainID uint64
			wantBlobs     bool
		}{
			{1, true},
			{11155111, true},
			{42161, false},
			{421614, false},
		}
		for _, tt := range tests {
			cfg, err := PrepareNodeConfig(testNodeConfigParams(tt.parentChainID))
			require.NoError(t, err, "parent %d", tt.parentChainID)
			if tt.wantBlobs {
				require.NotNil(t, cfg.ParentChain.BlobClient, "parent %d", tt.parentChainID)
				assert.Equal(t, "https://beacon.example", cfg.ParentChain.BlobClient.BeaconURL)
				assert.False(t, cfg.Node.Dangerous.DisableBlobReader)
			} else {
				assert.Nil(t, cfg.ParentChain.BlobClient, "parent %d", tt.parentChainID)
			}
		}
	})

	t.Run("layer 1 parent requires a beacon url", func(t *testing.T) {
		params := testNodeConfigParams(11155111)
		params.ParentChainBeaconURL = ""
		_, err := PrepareNodeConfig(params)
		var mfe *MissingFieldError
		require.ErrorAs(t, err, &mfe)
		assert.Equal(t, "parentChainBeaconRpcUrl", mfe.Field)
	})

	t.Run("anytrust chain", func(t *testing.T) {
		params := testNodeConfigParams(421614)
		params.ChainConfig.Arbitrum.DataAvailabilityCommittee = true

		cfg, err := PrepareNodeConfig(params)
		require.NoError(t, err)
		da := cfg.Node.DataAvailability
		require.NotNil(t, da)
		assert.True(t, da.Enable)
		assert.Equal(t, params.CoreContracts.SequencerInbox, da.SequencerInboxAddress)
		assert.Equal(t, params.ParentChainRPCURL, da.ParentChainNodeURL)
		assert.Equal(t, []string{DefaultDASURL}, da.RestAggregator.URLs)

		var backends []DASBackend
		require.NoError(t, json.Unmarshal([]byte(da.RPCAggregator.Backends), &backends))
		assert.Equal(t, []DASBackend{{URL: DefaultDASURL, Pubkey: DefaultDASPubkey, SignerMask: 1}}, backends)

		params.CoreContracts.SequencerInbox = common.Address{}
		_, err = PrepareNodeConfig(params)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("custom committee", func(t *testing.T) {
		params := testNodeConfigParams(421614)
		params.ChainConfig.Arbitrum.DataAvailabilityCommittee = true
		params.DataAvailability = &DataAvailabilityParams{
			RestAggregatorURLs: []string{"https://das-a.example", "https://das-b.example"},
			Backends: []DASBackend{
				{URL: "https://das-a.example:9876", Pubkey: "a", SignerMask: 1},
				{URL: "https://das-b.example:9876", Pubkey: "b", SignerMask: 2},
			},
			AssumedHonest: 2,
		}

		cfg, err := PrepareNodeConfig(params)
		require.NoError(t, err)
		assert.Len(t, cfg.Node.DataAvailability.RestAggregator.URLs, 2)
		assert.Equal(t, 2, cfg.Node.DataAvailability.RPCAggregator.AssumedHonest)
	})

	t.Run("unknown parent chain", func(t *testing.T) {
		_, err := PrepareNodeConfig(testNodeConfigParams(999_999))
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})

	t.Run("missing input", func(t *testing.T) {
		params := testNodeConfigParams(421614)
		params.ParentChainRPCURL = ""
		_, err := PrepareNodeConfig(params)
		assert.ErrorIs(t, err, ErrMissingField)

		params = testNodeConfigParams(421614)
		params.ValidatorPrivateKey = ""
		_, err = PrepareNodeConfig(params)
		assert.ErrorIs(t, err, ErrMissingField)

		params = testNodeConfigParams(421614)
		params.ChainName = ""
		_, err = PrepareNodeConfig(params)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("invalid private key", func(t *testing.T) {
		params := testNodeConfigParams(421614)
		params.BatchPosterPrivateKey = "0x1234"
		_, err := PrepareNodeConfig(params)
		var ipe *InvalidParameterError
		require.ErrorAs(t, err, &ipe)
		assert.Equal(t, "batchPosterPrivateKey", ipe.Field)
	})

	t.Run("nitro versions", func(t *testing.T) {
		for _, v := range []string{"v2.3.0", "v2.3.4", "v3.0.0", "v3.2.1"} {
			params := testNodeConfigParams(421614)
			params.NitroVersion = v
			_, err := PrepareNodeConfig(params)
			assert.NoError(t, err, v)
		}
		for _, v := range []string{"v2.2.0", "v1.0.0", "v4.0.0", "latest"} {
			params := testNodeConfigParams(421614)
			params.NitroVersion = v
			_, err := PrepareNodeConfig(params)
			assert.ErrorIs(t, err, ErrInvalidParameter, v)
		}
	})
}

func TestNodeConfig_JSON(t *testing.T) {
	params := testNodeConfigParams(1)
	params.ChainConfig.Arbitrum.DataAvailabilityCommittee = true
	cfg, err := PrepareNodeConfig(params)
	require.NoError(t, err)

	raw, err := cfg.JSON()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	parent := m["parent-chain"].(map[string]any)
	assert.Contains(t, parent, "blob-client")
	node := m["node"].(map[string]any)
	assert.Contains(t, node, "data-availability")
	assert.Contains(t, node, "batch-poster")
}

func TestLookupNodeConfigSchema(t *testing.T) {
	s, err := LookupNodeConfigSchema("v3.2.1")
	require.NoError(t, err)
	assert.Equal(t, "v3.0.0", s.Version.Original())
	assert.True(t, s.Has("parent-chain.blob-client.beacon-url"))
	assert.False(t, s.Has("node.feed.output.enable"))

	s, err = LookupNodeConfigSchema("2.3.1")
	require.NoError(t, err)
	assert.Equal(t, "v2.3.0", s.Version.Original())

	_, err = LookupNodeConfigSchema("not-a-version")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNodeConfigSchema_Validate(t *testing.T) {
	cfg, err := PrepareNodeConfig(testNodeConfigParams(421614))
	require.NoError(t, err)

	schema := &NodeConfigSchema{Version: nodeConfigSchemas[0].Version, keys: map[string]struct{}{}}
	for _, k := range baseNodeConfigKeys {
		schema.keys[k] = struct{}{}
	}
	err = schema.Validate(cfg)
	var ipe *InvalidParameterError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "node.dangerous.disable-blob-reader", ipe.Field)
}

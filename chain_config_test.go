package orbit

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChainConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := BuildChainConfig(ChainConfigParams{ChainID: 123456, Owner: testOwner})
		require.NoError(t, err)

		assert.Equal(t, uint64(123456), cfg.ChainID)
		assert.True(t, cfg.DAOForkSupport)
		assert.Nil(t, cfg.DAOForkBlock)
		assert.True(t, cfg.Arbitrum.EnableArbOS)
		assert.False(t, cfg.Arbitrum.AllowDebugPrecompiles)
		assert.False(t, cfg.Arbitrum.DataAvailabilityCommittee)
		assert.Equal(t, uint64(DefaultInitialArbOSVersion), cfg.Arbitrum.InitialArbOSVersion)
		assert.Equal(t, testOwner, cfg.Arbitrum.InitialChainOwner)
		assert.Equal(t, uint64(DefaultMaxCodeSize), cfg.Arbitrum.MaxCodeSize)
		assert.Equal(t, uint64(DefaultMaxInitCodeSize), cfg.Arbitrum.MaxInitCodeSize)
	})

	t.Run("overrides are merged", func(t *testing.T) {
		version := uint64(20)
		debug := true
		codeSize := uint64(48000)
		cfg, err := BuildChainConfig(ChainConfigParams{
			ChainID:                   123456,
			Owner:                     testOwner,
			DataAvailabilityCommittee: true,
			Overrides: &ChainConfigOverrides{
				InitialArbOSVersion:   &version,
				AllowDebugPrecompiles: &debug,
				MaxCodeSize:           &codeSize,
			},
		})
		require.NoError(t, err)

		assert.Equal(t, uint64(20), cfg.Arbitrum.InitialArbOSVersion)
		assert.True(t, cfg.Arbitrum.AllowDebugPrecompiles)
		assert.True(t, cfg.Arbitrum.DataAvailabilityCommittee)
		assert.Equal(t, uint64(48000), cfg.Arbitrum.MaxCodeSize)
		assert.Equal(t, uint64(DefaultMaxInitCodeSize), cfg.Arbitrum.MaxInitCodeSize)
	})

	t.Run("invalid input", func(t *testing.T) {
		zero := uint64(0)
		tests := []struct {
			name   string
			params ChainConfigParams
			field  string
		}{
			{"zero chain id", ChainConfigParams{Owner: testOwner}, "chainId"},
			{"reserved chain id", ChainConfigParams{ChainID: 42161, Owner: testOwner}, "chainId"},
			{"zero owner", ChainConfigParams{ChainID: 123456}, "owner"},
			{"zero arbos version", ChainConfigParams{
				ChainID: 123456, Owner: testOwner,
				Overrides: &ChainConfigOverrides{InitialArbOSVersion: &zero},
			}, "overrides.InitialArbOSVersion"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := BuildChainConfig(tt.params)
				var ipe *InvalidParameterError
				require.ErrorAs(t, err, &ipe)
				assert.Equal(t, tt.field, ipe.Field)
			})
		}
	})

	t.Run("local chain ids are allowed", func(t *testing.T) {
		_, err := BuildChainConfig(ChainConfigParams{ChainID: 412346, Owner: testOwner})
		assert.NoError(t, err)
	})

	t.Run("custom registry reserves its chains", func(t *testing.T) {
		r := NewRegistry(Chain{ID: 777, Name: "private-l1", Layer: 1})
		_, err := BuildChainConfig(ChainConfigParams{ChainID: 777, Owner: testOwner, Registry: r})
		assert.ErrorIs(t, err, ErrInvalidParameter)

		_, err = BuildChainConfig(ChainConfigParams{ChainID: 42161, Owner: testOwner, Registry: r})
		assert.NoError(t, err)
	})
}

func TestChainConfig_JSON(t *testing.T) {
	cfg := testChainConfig()

	t.Run("deterministic", func(t *testing.T) {
		a, err := cfg.JSON()
		require.NoError(t, err)
		again, err := BuildChainConfig(ChainConfigParams{ChainID: cfg.ChainID, Owner: testOwner})
		require.NoError(t, err)
		b, err := again.JSON()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("keys", func(t *testing.T) {
		raw, err := cfg.JSON()
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		assert.Equal(t, float64(cfg.ChainID), m["chainId"])
		assert.Nil(t, m["daoForkBlock"])
		assert.Contains(t, m, "clique")

		arb, ok := m["arbitrum"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, arb["EnableArbOS"])
		assert.Equal(t, float64(DefaultInitialArbOSVersion), arb["InitialArbOSVersion"])
		assert.Equal(t, testOwner.Hex(), common.HexToAddress(arb["InitialChainOwner"].(string)).Hex())
	})

	t.Run("round trip", func(t *testing.T) {
		raw, err := cfg.JSON()
		require.NoError(t, err)
		parsed, err := ParseChainConfig(raw)
		require.NoError(t, err)
		assert.Equal(t, cfg, parsed)
	})
}

func TestParseChainConfig(t *testing.T) {
	_, err := ParseChainConfig("{")
	assert.Error(t, err)

	_, err = ParseChainConfig(`{"arbitrum":{"EnableArbOS":true}}`)
	assert.ErrorIs(t, err, ErrMissingField)
}

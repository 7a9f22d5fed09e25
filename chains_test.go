package orbit

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	t.Run("known chains", func(t *testing.T) {
		for _, id := range []uint64{1, 11155111, 17000, 42161, 42170, 421614, 8453, 84532, 1337, 412346} {
			_, ok := r.Get(id)
			assert.True(t, ok, "chain %d", id)
		}
	})

	t.Run("chains are sorted", func(t *testing.T) {
		chains := r.Chains()
		for i := 1; i < len(chains); i++ {
			assert.Less(t, chains[i-1].ID, chains[i].ID)
		}
	})

	t.Run("layers", func(t *testing.T) {
		layer, err := r.Layer(1)
		require.NoError(t, err)
		assert.Equal(t, 1, layer)

		layer, err = r.Layer(421614)
		require.NoError(t, err)
		assert.Equal(t, 2, layer)

		_, err = r.Layer(999)
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})

	t.Run("rollup creator", func(t *testing.T) {
		dep, err := r.RollupCreator(421614)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xd2Ec8376B1dF436fAb18120E416d3F2BeC61275b"), dep.Address)

		_, err = r.RollupCreator(8453)
		var uce *UnsupportedChainError
		require.ErrorAs(t, err, &uce)
		assert.Equal(t, uint64(8453), uce.ChainID)
		assert.Equal(t, "RollupCreator", uce.What)
	})

	t.Run("token bridge creator", func(t *testing.T) {
		dep, err := r.TokenBridgeCreator(8453)
		require.NoError(t, err)
		assert.False(t, dep.IsZero())

		_, err = r.TokenBridgeCreator(1337)
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})

	t.Run("reserved ids", func(t *testing.T) {
		assert.True(t, r.IsReserved(1))
		assert.True(t, r.IsReserved(42161))
		assert.False(t, r.IsReserved(1337), "local chains are not reserved")
		assert.False(t, r.IsReserved(123456))
	})

	t.Run("testnets", func(t *testing.T) {
		assert.False(t, r.IsTestnet(1))
		assert.False(t, r.IsTestnet(42161))
		assert.True(t, r.IsTestnet(11155111))
		assert.True(t, r.IsTestnet(421614))
		assert.True(t, r.IsTestnet(412346))
	})
}

func TestRegistry_With(t *testing.T) {
	base := DefaultRegistry()
	custom := Chain{
		ID:            333333,
		Name:          "my-l2",
		Layer:         2,
		ParentChainID: 1,
		RollupCreator: Deployment{Address: common.HexToAddress("0xabc"), Version: "v3.1.0"},
	}

	derived := base.With(custom)

	_, ok := base.Get(custom.ID)
	assert.False(t, ok, "receiver must stay untouched")

	got, ok := derived.Get(custom.ID)
	require.True(t, ok)
	assert.Equal(t, custom, got)

	_, ok = derived.Get(1)
	assert.True(t, ok, "existing chains are kept")
}

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		c, err := r.Resolve(ctx, ChainByID(42161))
		require.NoError(t, err)
		assert.Equal(t, "Arbitrum One", c.Name)
	})

	t.Run("from client", func(t *testing.T) {
		c, err := r.Resolve(ctx, ChainFromClient(newFakeClient(11155111)))
		require.NoError(t, err)
		assert.Equal(t, "Sepolia", c.Name)
	})

	t.Run("unknown chain", func(t *testing.T) {
		_, err := r.Resolve(ctx, ChainByID(5))
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})

	t.Run("invalid refs", func(t *testing.T) {
		_, err := ChainByID(0).Resolve(ctx)
		assert.ErrorIs(t, err, ErrInvalidParameter)

		_, err = ChainRef{Kind: ChainRefByClient}.Resolve(ctx)
		assert.ErrorIs(t, err, ErrInvalidParameter)

		_, err = ChainRef{}.Resolve(ctx)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestRequireVersion(t *testing.T) {
	dep := Deployment{Address: common.HexToAddress("0x01"), Version: "v3.1.0"}

	assert.NoError(t, RequireVersion(dep, ">= 3.0.0, < 4.0.0"))
	assert.Error(t, RequireVersion(dep, "< 3.0.0"))
	assert.Error(t, RequireVersion(dep, "not a constraint"))
	assert.Error(t, RequireVersion(Deployment{Version: "latest"}, ">= 1.0.0"))
}

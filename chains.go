package orbit

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
)

// ============================================================================
// Chain Registry
// ============================================================================

// Deployment is a factory contract deployed on a parent chain.
type Deployment struct {
	Address common.Address
	Version string // Semantic version (e.g., "v3.1.0")
}

// IsZero reports whether no deployment is recorded.
func (d Deployment) IsZero() bool {
	return d.Address == (common.Address{})
}

// Chain describes a chain that Orbit chains can settle to.
type Chain struct {
	ID            uint64
	Name          string
	Layer         int // 1 for base layers, 2 for chains that settle to another chain
	ParentChainID uint64
	Testnet       bool
	// Local marks development networks. Their chain ids are not reserved.
	Local bool

	RollupCreator      Deployment
	TokenBridgeCreator Deployment
}

// Registry is an immutable lookup table of known chains. Use With to derive a
// registry carrying custom chains or overrides.
type Registry struct {
	chains map[uint64]Chain
}

// NewRegistry creates a registry from the given chains. Later entries replace
// earlier ones with the same id.
func NewRegistry(chains ...Chain) *Registry {
	r := &Registry{chains: make(map[uint64]Chain, len(chains))}
	for _, c := range chains {
		r.chains[c.ID] = c
	}
	return r
}

// With returns a new registry with the given chains added or replaced. The
// receiver is left untouched.
func (r *Registry) With(chains ...Chain) *Registry {
	out := &Registry{chains: make(map[uint64]Chain, len(r.chains)+len(chains))}
	for id, c := range r.chains {
		out.chains[id] = c
	}
	for _, c := range chains {
		out.chains[c.ID] = c
	}
	return out
}

// Get returns the chain with the given id.
func (r *Registry) Get(id uint64) (Chain, bool) {
	c, ok := r.chains[id]
	return c, ok
}

// Chains returns all registered chains ordered by id.
func (r *Registry) Chains() []Chain {
	out := make([]Chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Layer returns the layer of a registered chain.
func (r *Registry) Layer(id uint64) (int, error) {
	c, ok := r.chains[id]
	if !ok || c.Layer == 0 {
		return 0, &UnsupportedChainError{ChainID: id, What: "layer"}
	}
	return c.Layer, nil
}

// RollupCreator returns the RollupCreator deployment for a parent chain.
func (r *Registry) RollupCreator(id uint64) (Deployment, error) {
	c, ok := r.chains[id]
	if !ok || c.RollupCreator.IsZero() {
		return Deployment{}, &UnsupportedChainError{ChainID: id, What: "RollupCreator"}
	}
	return c.RollupCreator, nil
}

// TokenBridgeCreator returns the TokenBridgeCreator deployment for a parent chain.
func (r *Registry) TokenBridgeCreator(id uint64) (Deployment, error) {
	c, ok := r.chains[id]
	if !ok || c.TokenBridgeCreator.IsZero() {
		return Deployment{}, &UnsupportedChainError{ChainID: id, What: "TokenBridgeCreator"}
	}
	return c.TokenBridgeCreator, nil
}

// IsReserved reports whether an Orbit chain may not use the given chain id.
func (r *Registry) IsReserved(id uint64) bool {
	c, ok := r.chains[id]
	return ok && !c.Local
}

// IsTestnet reports whether a chain is a public testnet or a local network.
// Unknown chains are treated as testnets.
func (r *Registry) IsTestnet(id uint64) bool {
	c, ok := r.chains[id]
	return !ok || c.Testnet || c.Local
}

// Resolve resolves a chain reference and looks the chain up.
func (r *Registry) Resolve(ctx context.Context, ref ChainRef) (Chain, error) {
	id, err := ref.Resolve(ctx)
	if err != nil {
		return Chain{}, err
	}
	c, ok := r.chains[id]
	if !ok {
		return Chain{}, &UnsupportedChainError{ChainID: id}
	}
	return c, nil
}

// RequireVersion checks a deployment's version against a semver constraint
// such as ">= 3.1.0".
func RequireVersion(d Deployment, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("parse version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(d.Version)
	if err != nil {
		return fmt.Errorf("parse deployment version %q: %w", d.Version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("deployment %s has version %s, need %s", d.Address.Hex(), d.Version, constraint)
	}
	return nil
}

// RollupCreatorVersion is the RollupCreator release the encoders in this
// package target.
const RollupCreatorVersion = "v3.1.0"

var defaultChains = []Chain{
	{
		ID:    1,
		Name:  "Ethereum",
		Layer: 1,
		RollupCreator: Deployment{
			Address: common.HexToAddress("0x90D68B056c411015eaE3EC0b98AD94E2C91419F1"),
			Version: "v3.1.0",
		},
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0x60D9A46F24D5a35b95A78Dd3E793e55D94EE0660"),
			Version: "v1.2.2",
		},
	},
	{
		ID:      11155111,
		Name:    "Sepolia",
		Layer:   1,
		Testnet: true,
		RollupCreator: Deployment{
			Address: common.HexToAddress("0xfb774ea8A92ae528A596c8D90CBCF1BdBc4Cee79"),
			Version: "v3.1.0",
		},
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0x7edb2dfBeEf9417e0454A80c51EE0C034e45a570"),
			Version: "v1.2.2",
		},
	},
	{
		ID:      17000,
		Name:    "Holesky",
		Layer:   1,
		Testnet: true,
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0xac890ED9bC2494C053cE701F138958df95966d94"),
			Version: "v1.2.2",
		},
	},
	{
		ID:            42161,
		Name:          "Arbitrum One",
		Layer:         2,
		ParentChainID: 1,
		RollupCreator: Deployment{
			Address: common.HexToAddress("0x79607f00e61E6d7C0E6330bd7451f73136042a5C"),
			Version: "v3.1.0",
		},
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0x2f5624dc8800dfA0A82AC03509Ef8bb8E7Ac000e"),
			Version: "v1.2.2",
		},
	},
	{
		ID:            42170,
		Name:          "Arbitrum Nova",
		Layer:         2,
		ParentChainID: 1,
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0x8B9D9490a68B1F16ac8A21DdAE5Fd7aB9d708c14"),
			Version: "v1.2.2",
		},
	},
	{
		ID:            421614,
		Name:          "Arbitrum Sepolia",
		Layer:         2,
		Testnet:       true,
		ParentChainID: 11155111,
		RollupCreator: Deployment{
			Address: common.HexToAddress("0xd2Ec8376B1dF436fAb18120E416d3F2BeC61275b"),
			Version: "v3.1.0",
		},
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0x56C486D3786fA26cc61473C499A36Eb9CC1FbD8E"),
			Version: "v1.2.2",
		},
	},
	{
		ID:            8453,
		Name:          "Base",
		Layer:         2,
		ParentChainID: 1,
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0x4C240987d6fE4fa8C7a0004986e3db563150CA55"),
			Version: "v1.2.2",
		},
	},
	{
		ID:            84532,
		Name:          "Base Sepolia",
		Layer:         2,
		Testnet:       true,
		ParentChainID: 11155111,
		TokenBridgeCreator: Deployment{
			Address: common.HexToAddress("0xFC71d21a4FE10Cc0d34745ba9c713836f82f8DE3"),
			Version: "v1.2.2",
		},
	},
	// nitro-testnode; factories are deployed per run and must be supplied.
	{ID: 1337, Name: "nitro-testnode L1", Layer: 1, Local: true},
	{ID: 412346, Name: "nitro-testnode L2", Layer: 2, ParentChainID: 1337, Local: true},
}

// DefaultRegistry returns a fresh registry of well-known chains.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultChains...)
}

// ============================================================================
// Chain References
// ============================================================================

// ChainIDReader reads the id of the chain a client is connected to.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// ChainRefKind discriminates how a ChainRef identifies its chain.
type ChainRefKind int

const (
	ChainRefByID ChainRefKind = iota + 1
	ChainRefByClient
)

// ChainRef identifies a chain either by id or by a connected client.
type ChainRef struct {
	Kind   ChainRefKind
	ID     uint64
	Client ChainIDReader
}

// ChainByID references a chain by its id.
func ChainByID(id uint64) ChainRef {
	return ChainRef{Kind: ChainRefByID, ID: id}
}

// ChainFromClient references the chain a client is connected to.
func ChainFromClient(c ChainIDReader) ChainRef {
	return ChainRef{Kind: ChainRefByClient, Client: c}
}

// Resolve returns the referenced chain id, querying the client if needed.
func (r ChainRef) Resolve(ctx context.Context) (uint64, error) {
	switch r.Kind {
	case ChainRefByID:
		if r.ID == 0 {
			return 0, NewInvalidParameterError("chainId", "must be positive")
		}
		return r.ID, nil
	case ChainRefByClient:
		if r.Client == nil {
			return 0, NewInvalidParameterError("client", "is nil")
		}
		id, err := chainID(ctx, r.Client)
		if err != nil {
			return 0, fmt.Errorf("get chain ID: %w", err)
		}
		return id, nil
	default:
		return 0, NewInvalidParameterError("chainRef", fmt.Sprintf("unknown kind %d", r.Kind))
	}
}

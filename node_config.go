package orbit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Node config defaults.
const (
	DefaultNitroVersion          = "v3.2.1"
	DefaultHTTPPort              = 8449
	DefaultBatchPosterMaxSize    = 90000
	DefaultSequencerMaxTxSize    = 85000
	DefaultSequencerMaxBlockTime = "250ms"
	DefaultStakerStrategy        = "MakeNodes"
	DefaultDASURL                = "http://localhost:9876"
	// DefaultDASPubkey is a placeholder keyset public key; replace it with
	// the committee's real key before going live.
	DefaultDASPubkey = "YAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

// ============================================================================
// Nitro node configuration
// ============================================================================

// NodeConfig is a Nitro node configuration file. Keys follow nitro's flags.
type NodeConfig struct {
	Chain       NodeChainConfig       `json:"chain"`
	ParentChain NodeParentChainConfig `json:"parent-chain"`
	HTTP        NodeHTTPConfig        `json:"http"`
	Node        NodeNodeConfig        `json:"node"`
	Execution   NodeExecutionConfig   `json:"execution"`
}

type NodeChainConfig struct {
	InfoJSON string `json:"info-json"`
	Name     string `json:"name"`
}

type NodeParentChainConfig struct {
	Connection NodeConnectionConfig  `json:"connection"`
	BlobClient *NodeBlobClientConfig `json:"blob-client,omitempty"`
}

type NodeConnectionConfig struct {
	URL string `json:"url"`
}

type NodeBlobClientConfig struct {
	BeaconURL string `json:"beacon-url"`
}

type NodeHTTPConfig struct {
	Addr       string   `json:"addr"`
	Port       int      `json:"port"`
	VHosts     []string `json:"vhosts"`
	CORSDomain []string `json:"corsdomain"`
	API        []string `json:"api"`
}

type NodeNodeConfig struct {
	Sequencer        bool                        `json:"sequencer"`
	DelayedSequencer NodeDelayedSequencerConfig  `json:"delayed-sequencer"`
	BatchPoster      NodeBatchPosterConfig       `json:"batch-poster"`
	Staker           NodeStakerConfig            `json:"staker"`
	Dangerous        NodeDangerousConfig         `json:"dangerous"`
	DataAvailability *NodeDataAvailabilityConfig `json:"data-availability,omitempty"`
}

type NodeDelayedSequencerConfig struct {
	Enable           bool `json:"enable"`
	UseMergeFinality bool `json:"use-merge-finality"`
	FinalizeDistance int  `json:"finalize-distance"`
}

type NodeBatchPosterConfig struct {
	MaxSize           int              `json:"max-size"`
	Enable            bool             `json:"enable"`
	ParentChainWallet NodeWalletConfig `json:"parent-chain-wallet"`
}

type NodeStakerConfig struct {
	Enable            bool             `json:"enable"`
	Strategy          string           `json:"strategy"`
	ParentChainWallet NodeWalletConfig `json:"parent-chain-wallet"`
}

type NodeWalletConfig struct {
	PrivateKey string `json:"private-key"`
}

type NodeDangerousConfig struct {
	NoSequencerCoordinator bool `json:"no-sequencer-coordinator"`
	DisableBlobReader      bool `json:"disable-blob-reader"`
}

type NodeDataAvailabilityConfig struct {
	Enable                bool                     `json:"enable"`
	SequencerInboxAddress common.Address           `json:"sequencer-inbox-address"`
	ParentChainNodeURL    string                   `json:"parent-chain-node-url"`
	RestAggregator        NodeRestAggregatorConfig `json:"rest-aggregator"`
	RPCAggregator         NodeRPCAggregatorConfig  `json:"rpc-aggregator"`
}

type NodeRestAggregatorConfig struct {
	Enable bool     `json:"enable"`
	URLs   []string `json:"urls"`
}

type NodeRPCAggregatorConfig struct {
	Enable        bool   `json:"enable"`
	AssumedHonest int    `json:"assumed-honest"`
	Backends      string `json:"backends"`
}

type NodeExecutionConfig struct {
	ForwardingTarget string                       `json:"forwarding-target"`
	Sequencer        NodeExecutionSequencerConfig `json:"sequencer"`
	Caching          NodeCachingConfig            `json:"caching"`
}

type NodeExecutionSequencerConfig struct {
	Enable        bool   `json:"enable"`
	MaxTxDataSize int    `json:"max-tx-data-size"`
	MaxBlockSpeed string `json:"max-block-speed"`
}

type NodeCachingConfig struct {
	Archive bool `json:"archive"`
}

// JSON returns the indented config file contents.
func (c *NodeConfig) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal node config: %w", err)
	}
	return out, nil
}

// DASBackend is one data availability server of the RPC aggregator.
type DASBackend struct {
	URL        string `json:"url"`
	Pubkey     string `json:"pubkey"`
	SignerMask uint64 `json:"signermask"`
}

// DataAvailabilityParams configures the AnyTrust committee endpoints. Nil
// fields fall back to a single local server.
type DataAvailabilityParams struct {
	RestAggregatorURLs []string
	Backends           []DASBackend
	AssumedHonest      int
}

// NodeConfigParams are the inputs of PrepareNodeConfig.
type NodeConfigParams struct {
	ChainName     string
	ChainConfig   ChainConfig
	CoreContracts CoreContracts
	StakeToken    common.Address

	BatchPosterPrivateKey string
	ValidatorPrivateKey   string

	ParentChainID        uint64
	ParentChainRPCURL    string
	ParentChainBeaconURL string
	DataAvailability     *DataAvailabilityParams
	NitroVersion         string
	Registry             *Registry
}

// PrepareNodeConfig builds the configuration of a sequencer node that also
// posts batches and validates. Every emitted key is checked against the
// schema of the requested nitro version.
func PrepareNodeConfig(params NodeConfigParams) (*NodeConfig, error) {
	registry := params.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	version := params.NitroVersion
	if version == "" {
		version = DefaultNitroVersion
	}
	schema, err := LookupNodeConfigSchema(version)
	if err != nil {
		return nil, err
	}

	if params.ParentChainRPCURL == "" {
		return nil, &MissingFieldError{Field: "parentChainRpcUrl", Context: "node config"}
	}
	batchPosterKey, err := sanitizePrivateKey("batchPosterPrivateKey", params.BatchPosterPrivateKey)
	if err != nil {
		return nil, err
	}
	validatorKey, err := sanitizePrivateKey("validatorPrivateKey", params.ValidatorPrivateKey)
	if err != nil {
		return nil, err
	}

	info, err := NewChainInfo(registry, params.ChainName, params.ParentChainID,
		params.ChainConfig, params.CoreContracts, params.StakeToken)
	if err != nil {
		return nil, err
	}
	infoJSON, err := ChainInfoJSON(info)
	if err != nil {
		return nil, err
	}
	parentIsL1 := !info.ParentChainIsArbitrum

	cfg := &NodeConfig{
		Chain: NodeChainConfig{
			InfoJSON: infoJSON,
			Name:     params.ChainName,
		},
		ParentChain: NodeParentChainConfig{
			Connection: NodeConnectionConfig{URL: params.ParentChainRPCURL},
		},
		HTTP: NodeHTTPConfig{
			Addr:       "0.0.0.0",
			Port:       DefaultHTTPPort,
			VHosts:     []string{"*"},
			CORSDomain: []string{"*"},
			API:        []string{"eth", "net", "web3", "arb", "debug"},
		},
		Node: NodeNodeConfig{
			Sequencer: true,
			DelayedSequencer: NodeDelayedSequencerConfig{
				Enable:           true,
				UseMergeFinality: false,
				FinalizeDistance: 1,
			},
			BatchPoster: NodeBatchPosterConfig{
				MaxSize:           DefaultBatchPosterMaxSize,
				Enable:            true,
				ParentChainWallet: NodeWalletConfig{PrivateKey: batchPosterKey},
			},
			Staker: NodeStakerConfig{
				Enable:            true,
				Strategy:          DefaultStakerStrategy,
				ParentChainWallet: NodeWalletConfig{PrivateKey: validatorKey},
			},
			Dangerous: NodeDangerousConfig{
				NoSequencerCoordinator: true,
				DisableBlobReader:      !parentIsL1,
			},
		},
		Execution: NodeExecutionConfig{
			ForwardingTarget: "",
			Sequencer: NodeExecutionSequencerConfig{
				Enable:        true,
				MaxTxDataSize: DefaultSequencerMaxTxSize,
				MaxBlockSpeed: DefaultSequencerMaxBlockTime,
			},
			Caching: NodeCachingConfig{Archive: true},
		},
	}

	// Blobs only exist on layer 1 parents.
	if parentIsL1 {
		if params.ParentChainBeaconURL == "" {
			return nil, &MissingFieldError{Field: "parentChainBeaconRpcUrl", Context: "node config for a layer 1 parent chain"}
		}
		cfg.ParentChain.BlobClient = &NodeBlobClientConfig{BeaconURL: params.ParentChainBeaconURL}
	}

	if params.ChainConfig.Arbitrum.DataAvailabilityCommittee {
		da, err := dataAvailabilityConfig(params)
		if err != nil {
			return nil, err
		}
		cfg.Node.DataAvailability = da
	}

	if err := schema.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func dataAvailabilityConfig(params NodeConfigParams) (*NodeDataAvailabilityConfig, error) {
	if params.CoreContracts.SequencerInbox == (common.Address{}) {
		return nil, &MissingFieldError{Field: "sequencerInbox", Context: "data availability config"}
	}
	das := DataAvailabilityParams{}
	if params.DataAvailability != nil {
		das = *params.DataAvailability
	}
	if len(das.RestAggregatorURLs) == 0 {
		das.RestAggregatorURLs = []string{DefaultDASURL}
	}
	if len(das.Backends) == 0 {
		das.Backends = []DASBackend{{URL: DefaultDASURL, Pubkey: DefaultDASPubkey, SignerMask: 1}}
	}
	if das.AssumedHonest <= 0 {
		das.AssumedHonest = 1
	}
	backends, err := json.Marshal(das.Backends)
	if err != nil {
		return nil, fmt.Errorf("marshal DAS backends: %w", err)
	}

	return &NodeDataAvailabilityConfig{
		Enable:                true,
		SequencerInboxAddress: params.CoreContracts.SequencerInbox,
		ParentChainNodeURL:    params.ParentChainRPCURL,
		RestAggregator: NodeRestAggregatorConfig{
			Enable: true,
			URLs:   das.RestAggregatorURLs,
		},
		RPCAggregator: NodeRPCAggregatorConfig{
			Enable:        true,
			AssumedHonest: das.AssumedHonest,
			Backends:      string(backends),
		},
	}, nil
}

// sanitizePrivateKey strips the 0x prefix nitro does not accept and checks
// the key parses.
func sanitizePrivateKey(field, key string) (string, error) {
	if key == "" {
		return "", &MissingFieldError{Field: field, Context: "node config"}
	}
	key = strings.TrimPrefix(key, "0x")
	if _, err := crypto.HexToECDSA(key); err != nil {
		return "", NewInvalidParameterError(field, "not a valid secp256k1 private key")
	}
	return key, nil
}

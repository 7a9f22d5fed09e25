package orbit

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChainInfo is one entry of the chain-info JSON array a Nitro node loads
// through chain.info-json.
type ChainInfo struct {
	ChainID               uint64          `json:"chain-id"`
	ParentChainID         uint64          `json:"parent-chain-id"`
	ParentChainIsArbitrum bool            `json:"parent-chain-is-arbitrum"`
	ChainName             string          `json:"chain-name"`
	ChainConfig           ChainConfig     `json:"chain-config"`
	Rollup                ChainInfoRollup `json:"rollup"`
}

// ChainInfoRollup lists the parent chain contracts a node talks to.
type ChainInfoRollup struct {
	Bridge                 common.Address `json:"bridge"`
	Inbox                  common.Address `json:"inbox"`
	SequencerInbox         common.Address `json:"sequencer-inbox"`
	Rollup                 common.Address `json:"rollup"`
	ValidatorUtils         common.Address `json:"validator-utils"`
	ValidatorWalletCreator common.Address `json:"validator-wallet-creator"`
	StakeToken             common.Address `json:"stake-token"`
	DeployedAt             uint64         `json:"deployed-at"`
}

// NewChainInfo assembles the chain info of a deployed chain. The parent chain
// must be in the registry so its layer is known.
func NewChainInfo(
	registry *Registry,
	name string,
	parentChainID uint64,
	chainConfig ChainConfig,
	core CoreContracts,
	stakeToken common.Address,
) (ChainInfo, error) {
	if name == "" {
		return ChainInfo{}, &MissingFieldError{Field: "chainName", Context: "chain info"}
	}
	layer, err := registry.Layer(parentChainID)
	if err != nil {
		return ChainInfo{}, err
	}
	return ChainInfo{
		ChainID:               chainConfig.ChainID,
		ParentChainID:         parentChainID,
		ParentChainIsArbitrum: layer == 2,
		ChainName:             name,
		ChainConfig:           chainConfig,
		Rollup: ChainInfoRollup{
			Bridge:                 core.Bridge,
			Inbox:                  core.Inbox,
			SequencerInbox:         core.SequencerInbox,
			Rollup:                 core.Rollup,
			ValidatorUtils:         core.ValidatorUtils,
			ValidatorWalletCreator: core.ValidatorWalletCreator,
			StakeToken:             stakeToken,
			DeployedAt:             core.DeployedAtBlockNumber,
		},
	}, nil
}

// ChainInfoJSON encodes chain infos as the JSON array string nitro expects.
func ChainInfoJSON(infos ...ChainInfo) (string, error) {
	if infos == nil {
		infos = []ChainInfo{}
	}
	out, err := json.Marshal(infos)
	if err != nil {
		return "", fmt.Errorf("marshal chain info: %w", err)
	}
	return string(out), nil
}

// ParseChainInfoJSON decodes a chain.info-json value.
func ParseChainInfoJSON(raw string) ([]ChainInfo, error) {
	var infos []ChainInfo
	if err := json.Unmarshal([]byte(raw), &infos); err != nil {
		return nil, fmt.Errorf("unmarshal chain info: %w", err)
	}
	return infos, nil
}

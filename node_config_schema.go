package orbit

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// NodeConfigSchema is the set of node config keys a nitro release accepts.
type NodeConfigSchema struct {
	Version *semver.Version
	keys    map[string]struct{}
}

// Has reports whether a dotted key is part of the schema.
func (s *NodeConfigSchema) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Validate rejects configs that emit keys the release does not know.
func (s *NodeConfigSchema) Validate(cfg *NodeConfig) error {
	keys, err := nodeConfigKeys(cfg)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !s.Has(k) {
			return NewInvalidParameterError(k, fmt.Sprintf("not supported by nitro %s", s.Version.Original()))
		}
	}
	return nil
}

var baseNodeConfigKeys = []string{
	"chain.info-json",
	"chain.name",
	"parent-chain.connection.url",
	"http.addr",
	"http.port",
	"http.vhosts",
	"http.corsdomain",
	"http.api",
	"node.sequencer",
	"node.delayed-sequencer.enable",
	"node.delayed-sequencer.use-merge-finality",
	"node.delayed-sequencer.finalize-distance",
	"node.batch-poster.max-size",
	"node.batch-poster.enable",
	"node.batch-poster.parent-chain-wallet.private-key",
	"node.staker.enable",
	"node.staker.strategy",
	"node.staker.parent-chain-wallet.private-key",
	"node.dangerous.no-sequencer-coordinator",
	"node.data-availability.enable",
	"node.data-availability.sequencer-inbox-address",
	"node.data-availability.parent-chain-node-url",
	"node.data-availability.rest-aggregator.enable",
	"node.data-availability.rest-aggregator.urls",
	"node.data-availability.rpc-aggregator.enable",
	"node.data-availability.rpc-aggregator.assumed-honest",
	"node.data-availability.rpc-aggregator.backends",
	"execution.forwarding-target",
	"execution.sequencer.enable",
	"execution.sequencer.max-tx-data-size",
	"execution.sequencer.max-block-speed",
	"execution.caching.archive",
}

// Blob support arrived with the Dencun-ready releases.
var blobNodeConfigKeys = []string{
	"parent-chain.blob-client.beacon-url",
	"node.dangerous.disable-blob-reader",
}

// nodeConfigSchemas is ordered by version.
var nodeConfigSchemas = mustParseSchemas(map[string][][]string{
	"v2.3.0": {baseNodeConfigKeys, blobNodeConfigKeys},
	"v3.0.0": {baseNodeConfigKeys, blobNodeConfigKeys},
})

func mustParseSchemas(defs map[string][][]string) []*NodeConfigSchema {
	out := make([]*NodeConfigSchema, 0, len(defs))
	for version, groups := range defs {
		v, err := semver.NewVersion(version)
		if err != nil {
			panic(fmt.Sprintf("parse node config schema version %q: %v", version, err))
		}
		s := &NodeConfigSchema{Version: v, keys: make(map[string]struct{})}
		for _, g := range groups {
			for _, k := range g {
				s.keys[k] = struct{}{}
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.LessThan(out[j].Version) })
	return out
}

// LookupNodeConfigSchema returns the newest schema not newer than version,
// within the same major release.
func LookupNodeConfigSchema(version string) (*NodeConfigSchema, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, NewInvalidParameterError("nitroVersion", fmt.Sprintf("%q is not a semantic version", version))
	}
	for i := len(nodeConfigSchemas) - 1; i >= 0; i-- {
		s := nodeConfigSchemas[i]
		if s.Version.Major() == v.Major() && !s.Version.GreaterThan(v) {
			return s, nil
		}
	}
	return nil, NewInvalidParameterError("nitroVersion", fmt.Sprintf("no node config schema for %s", version))
}

// nodeConfigKeys flattens a config into sorted dotted leaf keys.
func nodeConfigKeys(cfg *NodeConfig) ([]string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal node config: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal node config: %w", err)
	}
	var keys []string
	flattenKeys("", tree, &keys)
	sort.Strings(keys)
	return keys, nil
}

func flattenKeys(prefix string, tree map[string]any, out *[]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenKeys(key, sub, out)
			continue
		}
		*out = append(*out, key)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
)

var bridgeUICmd = &cobra.Command{
	Use:   "bridge-ui",
	Short: "Generate the bridge UI network entry",
	Long: `Generate bridge-ui.json, the custom network entry the Arbitrum bridge UI
accepts, from <output.dir>/deployment.json and, when present,
<output.dir>/token-bridge.json. The parent chain is queried for the confirm
period and the fee token metadata.

Examples:
  orbit-deployer bridge-ui
  orbit-deployer bridge-ui --json`,
	RunE: runBridgeUI,
}

func init() {
	rootCmd.AddCommand(bridgeUICmd)
}

func runBridgeUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var deployment deploymentArtifact
	if err := readArtifact(rt.cfg.Output.Dir, deploymentFile, &deployment); err != nil {
		return err
	}
	tokenBridge, err := loadTokenBridge(rt.cfg.Output.Dir)
	if err != nil {
		return err
	}

	parent, _, err := rt.dialParent(ctx)
	if err != nil {
		return err
	}
	defer parent.Close()

	name := deployment.ChainName
	if name == "" {
		name = rt.cfg.Chain.Name
	}
	uiConfig, err := orbit.GetBridgeUIConfig(ctx, orbit.BridgeUIParams{
		ChainID:       deployment.ChainConfig.ChainID,
		ChainName:     name,
		RPCURL:        rt.cfg.ChildChain.RPCURL,
		ExplorerURL:   rt.cfg.ChildChain.ExplorerURL,
		CoreContracts: deployment.CoreContracts,
		TokenBridge:   tokenBridge,
		ParentChainID: deployment.ParentChainID,
	}, parent)
	if err != nil {
		return err
	}

	path, err := writeArtifact(rt.cfg.Output.Dir, bridgeUIFile, uiConfig)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), uiConfig)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// loadTokenBridge reads token-bridge.json. A chain without a token bridge
// yields nil.
func loadTokenBridge(dir string) (*orbit.TokenBridgeContracts, error) {
	var artifact tokenBridgeArtifact
	err := readArtifact(dir, tokenBridgeFile, &artifact)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artifact.Contracts, nil
}

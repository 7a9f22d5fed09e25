package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
)

var nodeConfigCmd = &cobra.Command{
	Use:   "node-config",
	Short: "Generate the Nitro node configuration",
	Long: `Generate node-config.json for a sequencer that also posts batches and
validates, from the rollup recorded in <output.dir>/deployment.json.

The batch poster and validator keys are read from node.batch_poster_private_key
and node.validator_private_key (ORBIT_NODE_BATCH_POSTER_PRIVATE_KEY and
ORBIT_NODE_VALIDATOR_PRIVATE_KEY). Every emitted key is checked against the
configuration schema of node.nitro_version.

Examples:
  orbit-deployer node-config
  ORBIT_NODE_NITRO_VERSION=v3.0.0 orbit-deployer node-config`,
	RunE: runNodeConfig,
}

func init() {
	rootCmd.AddCommand(nodeConfigCmd)
}

func runNodeConfig(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var deployment deploymentArtifact
	if err := readArtifact(rt.cfg.Output.Dir, deploymentFile, &deployment); err != nil {
		return err
	}

	nodeConfig, err := buildNodeConfig(rt.cfg, deployment)
	if err != nil {
		return err
	}

	path, err := writeArtifact(rt.cfg.Output.Dir, nodeConfigFile, nodeConfig)
	if err != nil {
		return err
	}
	rt.logger.Info("node config written",
		slog.String("nitro_version", rt.cfg.Node.NitroVersion),
		slog.String("path", path),
	)

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), nodeConfig)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// buildNodeConfig combines a deployment record with the node section of the
// configuration.
func buildNodeConfig(cfg *config.Config, deployment deploymentArtifact) (*orbit.NodeConfig, error) {
	name := deployment.ChainName
	if name == "" {
		name = cfg.Chain.Name
	}
	return orbit.PrepareNodeConfig(orbit.NodeConfigParams{
		ChainName:             name,
		ChainConfig:           deployment.ChainConfig,
		CoreContracts:         deployment.CoreContracts,
		StakeToken:            config.Address(cfg.Rollup.StakeToken),
		BatchPosterPrivateKey: cfg.Node.BatchPosterPrivateKey,
		ValidatorPrivateKey:   cfg.Node.ValidatorPrivateKey,
		ParentChainID:         deployment.ParentChainID,
		ParentChainRPCURL:     cfg.ParentChain.RPCURL,
		ParentChainBeaconURL:  cfg.ParentChain.BeaconURL,
		NitroVersion:          cfg.Node.NitroVersion,
	})
}

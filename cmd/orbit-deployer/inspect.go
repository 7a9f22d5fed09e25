package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [create-rollup-tx-hash]",
	Short: "Show the on-chain state of a deployed chain",
	Long: `Without arguments, read the rollup recorded in <output.dir>/deployment.json
and report its proxies, confirm period and batch posters.

With a createRollup transaction hash, recover the core contracts and the chain
config from the parent chain instead. This works for any chain created through
a RollupCreator, not only ones deployed by this tool.

Examples:
  orbit-deployer inspect
  orbit-deployer inspect 0x5b0b... --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// rollupState is the on-chain summary of a rollup.
type rollupState struct {
	Rollup              common.Address          `json:"rollup"`
	RollupLogic         common.Address          `json:"rollupLogic"`
	RollupProxyAdmin    common.Address          `json:"rollupProxyAdmin"`
	SequencerInboxLogic common.Address          `json:"sequencerInboxLogic"`
	ConfirmPeriodBlocks uint64                  `json:"confirmPeriodBlocks"`
	BatchPosters        map[common.Address]bool `json:"batchPosters"`
}

// recoveredDeployment is what a createRollup transaction reveals.
type recoveredDeployment struct {
	TransactionHash common.Hash         `json:"transactionHash"`
	ChainConfig     orbit.ChainConfig   `json:"chainConfig"`
	CoreContracts   orbit.CoreContracts `json:"coreContracts"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	client, _, err := rt.dialParent(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if len(args) == 1 {
		hash := common.HexToHash(args[0])
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err != nil {
			return fmt.Errorf("get receipt of %s: %w", hash.Hex(), err)
		}
		core, err := orbit.ExtractCoreContracts(receipt)
		if err != nil {
			return err
		}
		chainConfig, err := orbit.FetchRollupChainConfig(ctx, client, hash)
		if err != nil {
			return err
		}
		out := recoveredDeployment{TransactionHash: hash, ChainConfig: chainConfig, CoreContracts: *core}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chain %d (owner %s, AnyTrust %t)\n",
			chainConfig.ChainID, chainConfig.Arbitrum.InitialChainOwner.Hex(), chainConfig.Arbitrum.DataAvailabilityCommittee)
		renderAddressTable(cmd.OutOrStdout(), "Core contracts", coreContractRows(*core))
		return nil
	}

	var deployment deploymentArtifact
	if err := readArtifact(rt.cfg.Output.Dir, deploymentFile, &deployment); err != nil {
		return err
	}
	core := deployment.CoreContracts

	state := rollupState{Rollup: core.Rollup, BatchPosters: map[common.Address]bool{}}
	if state.RollupLogic, err = orbit.GetLogicAddress(ctx, client, core.Rollup); err != nil {
		return err
	}
	if state.RollupProxyAdmin, err = orbit.GetProxyAdmin(ctx, client, core.Rollup); err != nil {
		return err
	}
	if state.SequencerInboxLogic, err = orbit.GetLogicAddress(ctx, client, core.SequencerInbox); err != nil {
		return err
	}
	if state.ConfirmPeriodBlocks, err = orbit.ConfirmPeriodBlocks(ctx, client, core.Rollup); err != nil {
		return err
	}
	for _, poster := range config.Addresses(rt.cfg.Rollup.BatchPosters) {
		ok, err := orbit.IsBatchPoster(ctx, client, core.SequencerInbox, poster)
		if err != nil {
			return err
		}
		state.BatchPosters[poster] = ok
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), state)
	}
	renderRollupState(cmd.OutOrStdout(), state)
	return nil
}

func renderRollupState(w io.Writer, s rollupState) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Property", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"Rollup", s.Rollup.Hex()})
	table.Append([]string{"Rollup logic", s.RollupLogic.Hex()})
	table.Append([]string{"Rollup proxy admin", s.RollupProxyAdmin.Hex()})
	table.Append([]string{"SequencerInbox logic", s.SequencerInboxLogic.Hex()})
	table.Append([]string{"Confirm period (blocks)", strconv.FormatUint(s.ConfirmPeriodBlocks, 10)})
	for poster, ok := range s.BatchPosters {
		table.Append([]string{"Batch poster " + poster.Hex(), strconv.FormatBool(ok)})
	}
	table.Render()
}

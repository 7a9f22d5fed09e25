package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/runstore"
)

// Rollup and sequencer inbox admin calls go through the chain's
// UpgradeExecutor, which the deployer key must hold the executor role on.

var setValidatorsCmd = &cobra.Command{
	Use:   "set-validators",
	Short: "Enable or disable rollup validators",
	Long: `Call rollup.setValidator through the UpgradeExecutor recorded in
<output.dir>/deployment.json.

Examples:
  orbit-deployer set-validators --address 0xA...,0xB...
  orbit-deployer set-validators --address 0xA... --disable`,
	RunE: runSetValidators,
}

var setKeysetCmd = &cobra.Command{
	Use:   "set-keyset",
	Short: "Register an AnyTrust committee keyset",
	Long: `Call sequencerInbox.setValidKeyset through the UpgradeExecutor. The keyset
is the hex encoded output of the nitro datool dumpkeyset command.

Examples:
  orbit-deployer set-keyset --keyset 0x0000000000000001...`,
	RunE: runSetKeyset,
}

var setBatchPosterCmd = &cobra.Command{
	Use:   "set-batch-poster",
	Short: "Add or remove a batch poster",
	Long: `Call sequencerInbox.setIsBatchPoster through the UpgradeExecutor.

Examples:
  orbit-deployer set-batch-poster --address 0xA...
  orbit-deployer set-batch-poster --address 0xA... --disable`,
	RunE: runSetBatchPoster,
}

func init() {
	setValidatorsCmd.Flags().StringSlice("address", nil, "validator addresses (comma separated)")
	setValidatorsCmd.Flags().Bool("disable", false, "disable instead of enable")
	_ = setValidatorsCmd.MarkFlagRequired("address")

	setKeysetCmd.Flags().String("keyset", "", "hex encoded keyset")
	_ = setKeysetCmd.MarkFlagRequired("keyset")

	setBatchPosterCmd.Flags().String("address", "", "batch poster address")
	setBatchPosterCmd.Flags().Bool("disable", false, "remove instead of add")
	_ = setBatchPosterCmd.MarkFlagRequired("address")

	for _, c := range []*cobra.Command{setValidatorsCmd, setKeysetCmd, setBatchPosterCmd} {
		c.Flags().Bool("dry-run", false, "prepare the transaction without sending it")
		rootCmd.AddCommand(c)
	}
}

func runSetValidators(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetStringSlice("address")
	disable, _ := cmd.Flags().GetBool("disable")

	validators, err := parseAddresses(raw)
	if err != nil {
		return err
	}
	enabled := make([]bool, len(validators))
	for i := range enabled {
		enabled[i] = !disable
	}

	return runAdminCall(cmd, "setValidator", func(core orbit.CoreContracts, from common.Address) (*orbit.TransactionRequest, error) {
		return orbit.PrepareSetValidatorTransaction(executorCall(core, core.Rollup, from), validators, enabled)
	})
}

func runSetKeyset(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("keyset")
	keyset, err := hexutil.Decode(raw)
	if err != nil {
		return fmt.Errorf("invalid --keyset: %w", err)
	}

	return runAdminCall(cmd, "setValidKeyset", func(core orbit.CoreContracts, from common.Address) (*orbit.TransactionRequest, error) {
		return orbit.PrepareSetKeysetTransaction(executorCall(core, core.SequencerInbox, from), keyset)
	})
}

func runSetBatchPoster(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("address")
	disable, _ := cmd.Flags().GetBool("disable")

	posters, err := parseAddresses([]string{raw})
	if err != nil {
		return err
	}

	return runAdminCall(cmd, "setIsBatchPoster", func(core orbit.CoreContracts, from common.Address) (*orbit.TransactionRequest, error) {
		return orbit.PrepareSetIsBatchPosterTransaction(executorCall(core, core.SequencerInbox, from), posters[0], !disable)
	})
}

// runAdminCall loads the deployment, prepares the call with the deployer as
// sender and sends it unless --dry-run is set.
func runAdminCall(
	cmd *cobra.Command,
	method string,
	prepare func(core orbit.CoreContracts, from common.Address) (*orbit.TransactionRequest, error),
) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
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

	client, parentChainID, err := rt.dialParent(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sender, err := rt.sender(client, parentChainID)
	if err != nil {
		return err
	}

	req, err := prepare(deployment.CoreContracts, sender.Address())
	if err != nil {
		return err
	}
	if dryRun {
		return printTransactionRequest(cmd.OutOrStdout(), req)
	}

	receipt, err := sender.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	run := runstore.Run{
		ID:              newRunID(),
		Command:         cmd.Name(),
		ChainID:         deployment.ChainConfig.ChainID,
		ParentChainID:   parentChainID,
		TransactionHash: receipt.TxHash.Hex(),
		CreatedAt:       time.Now().UTC(),
	}
	if err := recordRun(rt.cfg.Output.Dir, run); err != nil {
		return err
	}
	rt.logger.Info("admin call executed",
		slog.String("run_id", run.ID),
		slog.String("method", method),
		slog.String("tx_hash", receipt.TxHash.Hex()),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s executed in %s\n", method, receipt.TxHash.Hex())
	return nil
}

func executorCall(core orbit.CoreContracts, target, from common.Address) orbit.UpgradeExecutorCall {
	return orbit.UpgradeExecutorCall{
		UpgradeExecutor: core.UpgradeExecutor,
		Target:          target,
		From:            from,
	}
}

// parseAddresses rejects anything that is not a 20-byte hex address.
func parseAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/runstore"
)

var deployTokenBridgeCmd = &cobra.Command{
	Use:   "deploy-token-bridge",
	Short: "Deploy the token bridge of a created rollup",
	Long: `Send createTokenBridge for the rollup recorded in <output.dir>/deployment.json,
wait for the deployment retryables to execute on the Orbit chain and record the
token bridge contracts in <output.dir>/token-bridge.json.

The Orbit chain node must be running and child_chain.rpc_url must point at it.
The deployer key must be the chain owner.

Examples:
  orbit-deployer deploy-token-bridge
  orbit-deployer deploy-token-bridge --max-gas 25000000`,
	RunE: runDeployTokenBridge,
}

func init() {
	deployTokenBridgeCmd.Flags().Uint64("max-gas", orbit.DefaultTokenBridgeMaxGasForContracts, "child chain gas for the contract deployment retryable")
	deployTokenBridgeCmd.Flags().Bool("dry-run", false, "prepare the transaction without sending it")
	rootCmd.AddCommand(deployTokenBridgeCmd)
}

func runDeployTokenBridge(cmd *cobra.Command, _ []string) error {
	maxGas, _ := cmd.Flags().GetUint64("max-gas")
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
	core := deployment.CoreContracts

	parent, parentChainID, err := rt.dialParent(ctx)
	if err != nil {
		return err
	}
	defer parent.Close()
	if parentChainID != deployment.ParentChainID {
		return fmt.Errorf("parent chain RPC is chain %d but the rollup was deployed on %d", parentChainID, deployment.ParentChainID)
	}

	child, _, err := rt.dialChild(ctx)
	if err != nil {
		return err
	}
	defer child.Close()

	params := orbit.TokenBridgeDeploymentParams{
		Rollup:             core.Rollup,
		RollupOwner:        config.Address(rt.cfg.Chain.Owner),
		MaxGasForContracts: maxGas,
	}
	// Pin the gas price bid so the approved amount matches the call.
	fees, err := orbit.EstimateTokenBridgeFees(ctx, parent, child, core.Inbox, params, rt.options()...)
	if err != nil {
		return err
	}
	params.GasPriceBid = fees.GasPriceBid

	req, err := orbit.PrepareTokenBridgeDeploymentTransaction(ctx, params, parent, child, rt.options()...)
	if err != nil {
		return err
	}
	if dryRun {
		return printTransactionRequest(cmd.OutOrStdout(), req)
	}

	sender, err := rt.sender(parent, parentChainID)
	if err != nil {
		return err
	}

	if core.UsesCustomFeeToken() {
		amount, err := orbit.TokenBridgeFeeTokenAllowance(ctx, parent, core.NativeToken, fees)
		if err != nil {
			return err
		}
		approval, err := orbit.PrepareApprovalTransaction(ctx, parent, core.NativeToken, sender.Address(), req.To, amount)
		if err != nil {
			return err
		}
		if err := sendApproval(ctx, rt, sender, approval, core.NativeToken, req.To, amount); err != nil {
			return err
		}
	}

	rt.logger.Info("creating token bridge",
		slog.String("rollup", core.Rollup.Hex()),
		slog.String("token_bridge_creator", req.To.Hex()),
		slog.String("value", req.Value.String()),
	)
	receipt, err := sender.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("createTokenBridge: %w", err)
	}

	childReceipts, err := orbit.WaitForRetryables(ctx, receipt, child, orbit.WaitOptions{
		Timeout:      rt.cfg.Retryables.Timeout,
		PollInterval: rt.cfg.Retryables.PollInterval,
		Logger:       rt.logger,
	})
	if err != nil {
		return err
	}
	retryableHashes := make([]common.Hash, len(childReceipts))
	for i, r := range childReceipts {
		retryableHashes[i] = r.TxHash
	}

	contracts, err := orbit.ExtractTokenBridgeContracts(receipt)
	if err != nil {
		return err
	}

	artifact := tokenBridgeArtifact{
		RunID:             newRunID(),
		CreatedAt:         time.Now().UTC(),
		TransactionHash:   receipt.TxHash,
		Contracts:         *contracts,
		RetryableReceipts: retryableHashes,
	}
	path, err := writeArtifact(rt.cfg.Output.Dir, tokenBridgeFile, artifact)
	if err != nil {
		return err
	}
	if err := recordRun(rt.cfg.Output.Dir, runstore.Run{
		ID:              artifact.RunID,
		Command:         cmd.Name(),
		ChainID:         deployment.ChainConfig.ChainID,
		ParentChainID:   parentChainID,
		TransactionHash: receipt.TxHash.Hex(),
		Artifact:        tokenBridgeFile,
		CreatedAt:       artifact.CreatedAt,
	}); err != nil {
		return err
	}
	rt.logger.Info("token bridge created",
		slog.String("run_id", artifact.RunID),
		slog.Int("retryables", len(childReceipts)),
		slog.String("artifact", path),
	)

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), artifact)
	}
	renderAddressTable(cmd.OutOrStdout(), "Token bridge contracts", tokenBridgeRows(*contracts))
	fmt.Fprintf(cmd.OutOrStdout(), "\nSaved to %s\n", path)
	return nil
}

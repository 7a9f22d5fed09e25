package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/runstore"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/signer"
)

var deployRollupCmd = &cobra.Command{
	Use:   "deploy-rollup",
	Short: "Create the rollup contracts on the parent chain",
	Long: `Build the chain config and createRollup parameters from the configuration,
approve the fee token when the chain uses one, send createRollup and record
the deployed core contracts in <output.dir>/deployment.json.

Examples:
  ORBIT_DEPLOYER_PRIVATE_KEY=0x... orbit-deployer deploy-rollup

  # Print the prepared transaction without sending it
  orbit-deployer deploy-rollup --dry-run --json`,
	RunE: runDeployRollup,
}

func init() {
	deployRollupCmd.Flags().Bool("dry-run", false, "prepare the transaction without sending it")
	rootCmd.AddCommand(deployRollupCmd)
}

func runDeployRollup(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	client, parentChainID, err := rt.dialParent(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	deployment, err := buildRollupDeployment(rt.cfg, parentChainID)
	if err != nil {
		return err
	}

	sender, err := rt.sender(client, parentChainID)
	if err != nil {
		return err
	}
	from := sender.Address()

	req, err := orbit.PrepareCreateRollupTransaction(ctx, deployment, from, client, rt.options()...)
	if err != nil {
		return err
	}
	if dryRun {
		return printTransactionRequest(cmd.OutOrStdout(), req)
	}

	if needsRollupFeeTokenApproval(deployment) {
		if err := approveRollupFeeToken(ctx, rt, client, sender, deployment.Params.NativeToken, req.To); err != nil {
			return err
		}
	}

	rt.logger.Info("creating rollup",
		slog.Uint64("chain_id", deployment.ChainConfig.ChainID),
		slog.Uint64("parent_chain_id", parentChainID),
		slog.String("rollup_creator", req.To.Hex()),
	)
	receipt, err := sender.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("createRollup: %w", err)
	}

	core, err := orbit.ExtractCoreContracts(receipt)
	if err != nil {
		return err
	}

	artifact := deploymentArtifact{
		RunID:           newRunID(),
		CreatedAt:       time.Now().UTC(),
		ChainName:       rt.cfg.Chain.Name,
		ParentChainID:   parentChainID,
		TransactionHash: receipt.TxHash,
		ChainConfig:     deployment.ChainConfig,
		CoreContracts:   *core,
	}
	path, err := writeArtifact(rt.cfg.Output.Dir, deploymentFile, artifact)
	if err != nil {
		return err
	}
	if err := recordRun(rt.cfg.Output.Dir, runstore.Run{
		ID:              artifact.RunID,
		Command:         cmd.Name(),
		ChainID:         deployment.ChainConfig.ChainID,
		ParentChainID:   parentChainID,
		TransactionHash: receipt.TxHash.Hex(),
		Artifact:        deploymentFile,
		CreatedAt:       artifact.CreatedAt,
	}); err != nil {
		return err
	}
	rt.logger.Info("rollup created",
		slog.String("run_id", artifact.RunID),
		slog.String("rollup", core.Rollup.Hex()),
		slog.String("artifact", path),
	)

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), artifact)
	}
	renderAddressTable(cmd.OutOrStdout(), "Core contracts", coreContractRows(*core))
	fmt.Fprintf(cmd.OutOrStdout(), "\nSaved to %s\n", path)
	return nil
}

// buildRollupDeployment maps the configuration onto the SDK builders.
func buildRollupDeployment(cfg *config.Config, parentChainID uint64) (*orbit.RollupDeploymentConfig, error) {
	chainConfig, err := orbit.BuildChainConfig(orbit.ChainConfigParams{
		ChainID:                   cfg.Chain.ID,
		Owner:                     config.Address(cfg.Chain.Owner),
		DataAvailabilityCommittee: cfg.Chain.DataAvailabilityCommittee,
	})
	if err != nil {
		return nil, err
	}

	baseStake, err := cfg.Rollup.BaseStakeWei()
	if err != nil {
		return nil, err
	}

	return orbit.BuildRollupDeploymentConfig(chainConfig, orbit.RollupDeploymentParams{
		Owner:               config.Address(cfg.Chain.Owner),
		BatchPosters:        config.Addresses(cfg.Rollup.BatchPosters),
		Validators:          config.Addresses(cfg.Rollup.Validators),
		StakeToken:          config.Address(cfg.Rollup.StakeToken),
		NativeToken:         config.Address(cfg.Chain.NativeToken),
		DeployFactoriesToL2: cfg.Rollup.DeployFactoriesToL2,
		ParentChainID:       parentChainID,
		ConfirmPeriodBlocks: cfg.Rollup.ConfirmPeriodBlocks,
		BaseStake:           baseStake,
		MaxDataSize:         cfg.Rollup.MaxDataSize,
		BatchPosterManager:  config.Address(cfg.Rollup.BatchPosterManager),
	})
}

// needsRollupFeeTokenApproval reports whether createRollup pulls fee token
// from the deployer. The RollupCreator only does so to fund the factory
// deployment retryables.
func needsRollupFeeTokenApproval(deployment *orbit.RollupDeploymentConfig) bool {
	return deployment.UsesCustomFeeToken() && deployment.Params.DeployFactoriesToL2
}

// approveRollupFeeToken lets the RollupCreator pull the fee token that funds
// the factory deployment retryables. It is a no-op when the allowance is
// already in place.
func approveRollupFeeToken(
	ctx context.Context,
	rt *runtime,
	client orbit.ChainClient,
	sender *signer.Sender,
	token, creator common.Address,
) error {
	amount, err := orbit.CreateRollupFeeTokenAllowance(ctx, client, token)
	if err != nil {
		return err
	}
	req, err := orbit.PrepareApprovalTransaction(ctx, client, token, sender.Address(), creator, amount)
	if err != nil {
		return err
	}
	return sendApproval(ctx, rt, sender, req, token, creator, amount)
}

// sendApproval sends req unless it is nil, which means the allowance already
// covers amount.
func sendApproval(
	ctx context.Context,
	rt *runtime,
	sender *signer.Sender,
	req *orbit.TransactionRequest,
	token, spender common.Address,
	amount *big.Int,
) error {
	if req == nil {
		rt.logger.Info("fee token allowance already sufficient",
			slog.String("token", token.Hex()),
			slog.String("spender", spender.Hex()),
		)
		return nil
	}
	rt.logger.Info("approving fee token",
		slog.String("token", token.Hex()),
		slog.String("spender", spender.Hex()),
		slog.String("amount", amount.String()),
	)
	if _, err := sender.Send(ctx, req); err != nil {
		return fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	return nil
}

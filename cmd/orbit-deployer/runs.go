package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/runstore"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded deployment runs",
	Long: `List the commands that sent transactions from this output directory, oldest
first, as recorded in <output.dir>/runs.json.

Examples:
  orbit-deployer runs
  orbit-deployer runs --json`,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	// Listing needs only output.dir, so keys and chain settings may be unset.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	store, err := runstore.Open(filepath.Join(cfg.Output.Dir, runstore.FileName))
	if err != nil {
		return err
	}
	runs := store.List()

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	renderRuns(cmd.OutOrStdout(), runs)
	return nil
}

func renderRuns(w io.Writer, runs []*runstore.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Command", "Chain", "Parent", "Transaction", "Created"})
	table.SetAutoWrapText(false)
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.Command,
			strconv.FormatUint(r.ChainID, 10),
			strconv.FormatUint(r.ParentChainID, 10),
			r.TransactionHash,
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}

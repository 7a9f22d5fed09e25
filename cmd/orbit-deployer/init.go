package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample orbit.yaml",
	Long: `Write a configuration file populated with the defaults.

Fill in chain.id, chain.owner, the rollup validators, batch posters and stake
token before deploying. Keep private keys out of the file and set them through
ORBIT_DEPLOYER_PRIVATE_KEY, ORBIT_NODE_BATCH_POSTER_PRIVATE_KEY and
ORBIT_NODE_VALIDATOR_PRIVATE_KEY instead.

Examples:
  orbit-deployer init
  orbit-deployer init --out config/orbit.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("out", "orbit.yaml", "path of the file to write")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")

	if !force {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", out)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	if err := writeSampleConfig(f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}

// writeSampleConfig encodes the default configuration with empty placeholders
// for the fields a deployment must set.
func writeSampleConfig(w io.Writer) error {
	cfg := config.Default()
	cfg.Rollup.Validators = []string{}
	cfg.Rollup.BatchPosters = []string{}

	fmt.Fprintln(w, "# orbit-deployer configuration. Environment variables ORBIT_<SECTION>_<KEY> override any value.")
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

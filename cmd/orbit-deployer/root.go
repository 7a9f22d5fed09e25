package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/config"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/signer"
)

var (
	cfgFile string
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "orbit-deployer",
	Short: "Deploy and administer Arbitrum Orbit chains",
	Long: `orbit-deployer creates an Orbit rollup or AnyTrust chain on a parent chain,
deploys its token bridge and generates the node and bridge UI configuration.

Configuration is read from orbit.yaml (or --config) and ORBIT_* environment
variables. Secrets such as ORBIT_DEPLOYER_PRIVATE_KEY are best kept in the
environment.

Examples:
  # Write a sample configuration
  orbit-deployer init

  # Deploy the rollup, then the token bridge
  orbit-deployer deploy-rollup
  orbit-deployer deploy-token-bridge

  # Generate node-config.json and bridge-ui.json
  orbit-deployer node-config
  orbit-deployer bridge-ui`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./orbit.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
}

// ============================================================================
// Runtime
// ============================================================================

// runtime is the per-command state built from the configuration.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

// loadRuntime reads and validates the configuration and builds the logger.
func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	logger, closer, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, closer: closer}, nil
}

func (r *runtime) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// options returns the SDK options implied by the configuration.
func (r *runtime) options() []orbit.Option {
	opts := []orbit.Option{orbit.WithLogger(r.logger)}
	if a := config.OptionalAddress(r.cfg.Deployer.RollupCreator); a != nil {
		opts = append(opts, orbit.WithRollupCreator(*a))
	}
	if a := config.OptionalAddress(r.cfg.Deployer.TokenBridgeCreator); a != nil {
		opts = append(opts, orbit.WithTokenBridgeCreator(*a))
	}
	return opts
}

// dialParent connects to the parent chain and returns its chain id.
func (r *runtime) dialParent(ctx context.Context) (*ethclient.Client, uint64, error) {
	return dial(ctx, r.cfg.ParentChain.RPCURL, "parent chain")
}

// dialChild connects to the Orbit chain.
func (r *runtime) dialChild(ctx context.Context) (*ethclient.Client, uint64, error) {
	if r.cfg.ChildChain.RPCURL == "" {
		return nil, 0, fmt.Errorf("child_chain.rpc_url is not set")
	}
	return dial(ctx, r.cfg.ChildChain.RPCURL, "child chain")
}

func dial(ctx context.Context, url, name string) (*ethclient.Client, uint64, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect to %s RPC: %w", name, err)
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, 0, fmt.Errorf("get %s ID: %w", name, err)
	}
	return client, id.Uint64(), nil
}

// sender builds a Sender for the deployer key on the given chain.
func (r *runtime) sender(client *ethclient.Client, chainID uint64) (*signer.Sender, error) {
	s, err := signer.NewLocalSigner(r.cfg.Deployer.PrivateKey, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("deployer key: %w", err)
	}
	return signer.NewSender(client, s, r.logger), nil
}

// ============================================================================
// Logging
// ============================================================================

// newLogger builds a text or JSON slog logger writing to stderr, or to a
// rotated file when cfg.File is set.
func newLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var (
		w      = stderr
		closer io.Closer
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w, closer = lj, lj
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closer, nil
}

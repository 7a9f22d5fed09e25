package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
	"github.com/OffchainLabs/arbitrum-orbit-sdk-sub002/internal/runstore"
)

// Artifact file names inside output.dir.
const (
	deploymentFile  = "deployment.json"
	tokenBridgeFile = "token-bridge.json"
	nodeConfigFile  = "node-config.json"
	bridgeUIFile    = "bridge-ui.json"
)

// ============================================================================
// Artifacts
// ============================================================================

// deploymentArtifact records a createRollup run.
type deploymentArtifact struct {
	RunID           string              `json:"run_id"`
	CreatedAt       time.Time           `json:"created_at"`
	ChainName       string              `json:"chain_name"`
	ParentChainID   uint64              `json:"parent_chain_id"`
	TransactionHash common.Hash         `json:"transaction_hash"`
	ChainConfig     orbit.ChainConfig   `json:"chain_config"`
	CoreContracts   orbit.CoreContracts `json:"core_contracts"`
}

// tokenBridgeArtifact records a createTokenBridge run.
type tokenBridgeArtifact struct {
	RunID             string                     `json:"run_id"`
	CreatedAt         time.Time                  `json:"created_at"`
	TransactionHash   common.Hash                `json:"transaction_hash"`
	Contracts         orbit.TokenBridgeContracts `json:"contracts"`
	RetryableReceipts []common.Hash              `json:"retryable_receipts"`
}

func newRunID() string {
	return uuid.NewString()
}

// writeArtifact writes v as indented JSON to dir/name.
func writeArtifact(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := runstore.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// recordRun appends run to the history in dir.
func recordRun(dir string, run runstore.Run) error {
	store, err := runstore.Open(filepath.Join(dir, runstore.FileName))
	if err != nil {
		return err
	}
	return store.Save(&run)
}

// readArtifact loads dir/name into v.
func readArtifact(dir, name string, v any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s not found, run the previous deployment step first: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ============================================================================
// Printing
// ============================================================================

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// txRequestJSON is the hex encoded form of a prepared transaction.
type txRequestJSON struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value"`
}

func printTransactionRequest(w io.Writer, req *orbit.TransactionRequest) error {
	return printJSON(w, txRequestJSON{
		From:  req.From,
		To:    req.To,
		Data:  req.Data,
		Value: (*hexutil.Big)(req.Value),
	})
}

type addressRow struct {
	name    string
	address common.Address
}

// renderAddressTable prints a contract/address table. Zero addresses are
// skipped.
func renderAddressTable(w io.Writer, title string, rows []addressRow) {
	fmt.Fprintf(w, "\n%s\n", title)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Contract", "Address"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	for _, r := range rows {
		if r.address == (common.Address{}) {
			continue
		}
		table.Append([]string{r.name, r.address.Hex()})
	}
	table.Render()
}

func coreContractRows(c orbit.CoreContracts) []addressRow {
	return []addressRow{
		{"Rollup", c.Rollup},
		{"Inbox", c.Inbox},
		{"Outbox", c.Outbox},
		{"Bridge", c.Bridge},
		{"SequencerInbox", c.SequencerInbox},
		{"RollupEventInbox", c.RollupEventInbox},
		{"ChallengeManager", c.ChallengeManager},
		{"AdminProxy", c.AdminProxy},
		{"UpgradeExecutor", c.UpgradeExecutor},
		{"ValidatorUtils", c.ValidatorUtils},
		{"ValidatorWalletCreator", c.ValidatorWalletCreator},
		{"NativeToken", c.NativeToken},
	}
}

func tokenBridgeRows(c orbit.TokenBridgeContracts) []addressRow {
	p, o := c.ParentChain, c.OrbitChain
	return []addressRow{
		{"Parent Router", p.Router},
		{"Parent StandardGateway", p.StandardGateway},
		{"Parent CustomGateway", p.CustomGateway},
		{"Parent WethGateway", p.WethGateway},
		{"Parent Weth", p.Weth},
		{"Orbit Router", o.Router},
		{"Orbit StandardGateway", o.StandardGateway},
		{"Orbit CustomGateway", o.CustomGateway},
		{"Orbit WethGateway", o.WethGateway},
		{"Orbit Weth", o.Weth},
		{"Orbit ProxyAdmin", o.ProxyAdmin},
		{"Orbit BeaconProxyFactory", o.BeaconProxyFactory},
		{"Orbit UpgradeExecutor", o.UpgradeExecutor},
		{"Orbit Multicall", o.Multicall},
	}
}

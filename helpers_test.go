package orbit

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

// fakeClient is an in-memory ChainClient. Contract calls are mock
// expectations keyed by (address, selector); calls nobody registered revert.
// Receipts can be delayed by a number of polls.
type fakeClient struct {
	mock.Mock

	mu sync.Mutex

	chainID  uint64
	baseFee  *big.Int
	gasPrice *big.Int

	answered map[callKey]bool
	code     map[common.Address][]byte
	storage  map[common.Address]map[common.Hash][]byte
	txs      map[common.Hash]*types.Transaction
	receipts map[common.Hash]*types.Receipt
	// pending counts the polls a receipt stays "not found".
	pending map[common.Hash]int

	receiptPolls map[common.Hash]int
}

type callKey struct {
	to       common.Address
	selector [4]byte
}

var errExecutionReverted = errors.New("execution reverted")

func newFakeClient(chainID uint64) *fakeClient {
	return &fakeClient{
		chainID:      chainID,
		baseFee:      big.NewInt(1_000_000_000),
		gasPrice:     big.NewInt(100_000_000),
		answered:     make(map[callKey]bool),
		code:         make(map[common.Address][]byte),
		storage:      make(map[common.Address]map[common.Hash][]byte),
		txs:          make(map[common.Hash]*types.Transaction),
		receipts:     make(map[common.Hash]*types.Receipt),
		pending:      make(map[common.Hash]int),
		receiptPolls: make(map[common.Hash]int),
	}
}

func selectorOf(contract abi.ABI, method string) [4]byte {
	var sel [4]byte
	copy(sel[:], contract.Methods[method].ID)
	return sel
}

// expectCall registers a CallContract expectation for method on to. The
// third argument is the full call data.
func (f *fakeClient) expectCall(to common.Address, contract abi.ABI, method string) *mock.Call {
	sel := selectorOf(contract, method)
	f.mu.Lock()
	f.answered[callKey{to, sel}] = true
	f.mu.Unlock()
	return f.On("CallContract", to, sel, mock.Anything)
}

// onCall answers calls of method on to with the ABI-encoded outputs.
func (f *fakeClient) onCall(to common.Address, contract abi.ABI, method string, outputs ...any) *mock.Call {
	out, err := contract.Methods[method].Outputs.Pack(outputs...)
	if err != nil {
		panic(err)
	}
	return f.expectCall(to, contract, method).Return(out, nil)
}

// onCallError makes calls of method on to fail with err.
func (f *fakeClient) onCallError(to common.Address, contract abi.ABI, method string, err error) *mock.Call {
	return f.expectCall(to, contract, method).Return([]byte(nil), err)
}

// callInputs decodes the arguments of every recorded call of method on to.
func (f *fakeClient) callInputs(to common.Address, contract abi.ABI, method string) [][]any {
	sel := selectorOf(contract, method)
	var out [][]any
	for _, c := range f.Calls {
		if c.Method != "CallContract" || c.Arguments.Get(0) != to || c.Arguments.Get(1) != sel {
			continue
		}
		data := c.Arguments.Get(2).([]byte)
		args, err := contract.Methods[method].Inputs.Unpack(data[4:])
		if err != nil {
			panic(err)
		}
		out = append(out, args)
	}
	return out
}

func (f *fakeClient) addReceipt(r *types.Receipt, pendingPolls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[r.TxHash] = r
	f.pending[r.TxHash] = pendingPolls
}

func (f *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errExecutionReverted
	}
	var sel [4]byte
	copy(sel[:], msg.Data[:4])

	f.mu.Lock()
	ok := f.answered[callKey{*msg.To, sel}]
	f.mu.Unlock()
	if !ok {
		return nil, errExecutionReverted
	}

	args := f.MethodCalled("CallContract", *msg.To, sel, common.CopyBytes(msg.Data))
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (f *fakeClient) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[account], nil
}

func (f *fakeClient) setCode(account common.Address, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code[account] = make([]byte, size)
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.chainID), nil
}

func (f *fakeClient) StorageAt(_ context.Context, account common.Address, key common.Hash, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.storage[account][key]; ok {
		return v, nil
	}
	return make([]byte, 32), nil
}

func (f *fakeClient) setStorage(account common.Address, key common.Hash, value common.Hash) {
	if f.storage[account] == nil {
		f.storage[account] = make(map[common.Hash][]byte)
	}
	f.storage[account][key] = value.Bytes()
}

func (f *fakeClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: f.baseFee}, nil
}

func (f *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeClient) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (f *fakeClient) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptPolls[hash]++
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if f.pending[hash] > 0 {
		f.pending[hash]--
		return nil, ethereum.NotFound
	}
	return r, nil
}

var _ ChainClient = (*fakeClient)(nil)

// ============================================================================
// Fixtures
// ============================================================================

var (
	testOwner       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testBatchPoster = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testValidator   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testStakeToken  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testFeeToken    = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func testChainConfig() ChainConfig {
	cfg, err := BuildChainConfig(ChainConfigParams{ChainID: 97_400_766_948, Owner: testOwner})
	if err != nil {
		panic(err)
	}
	return cfg
}

func testRollupParams() RollupDeploymentParams {
	return RollupDeploymentParams{
		Owner:         testOwner,
		BatchPosters:  []common.Address{testBatchPoster},
		Validators:    []common.Address{testValidator},
		StakeToken:    testStakeToken,
		ParentChainID: 421614,
	}
}

func testCoreContracts() CoreContracts {
	return CoreContracts{
		Rollup:                 common.HexToAddress("0x1234567890123456789012345678901234567890"),
		Inbox:                  common.HexToAddress("0x2345678901234567890123456789012345678901"),
		Outbox:                 common.HexToAddress("0x3456789012345678901234567890123456789012"),
		Bridge:                 common.HexToAddress("0x4567890123456789012345678901234567890123"),
		SequencerInbox:         common.HexToAddress("0x5678901234567890123456789012345678901234"),
		RollupEventInbox:       common.HexToAddress("0x6789012345678901234567890123456789012345"),
		ChallengeManager:       common.HexToAddress("0x7890123456789012345678901234567890123456"),
		AdminProxy:             common.HexToAddress("0x8901234567890123456789012345678901234567"),
		UpgradeExecutor:        common.HexToAddress("0x9012345678901234567890123456789012345678"),
		ValidatorWalletCreator: common.HexToAddress("0x0123456789012345678901234567890123456789"),
		DeployedAtBlockNumber:  12345678,
	}
}

// eventLog builds a log for event with the given indexed topics and packed
// non-indexed values.
func eventLog(address common.Address, event abi.Event, topics []common.Hash, values ...any) *types.Log {
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: address,
		Topics:  append([]common.Hash{event.ID}, topics...),
		Data:    data,
	}
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

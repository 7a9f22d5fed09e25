package orbit

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChildChainID = 97_400_766_948

type testRetryable struct {
	to               common.Address
	l2CallValue      int64
	l1Value          int64
	maxSubmissionFee int64
	excessFeeRefund  common.Address
	callValueRefund  common.Address
	gasLimit         uint64
	maxFeePerGas     int64
	data             []byte
}

func (r testRetryable) pack() []byte {
	word := func(b []byte) []byte { return common.LeftPadBytes(b, 32) }
	num := func(v int64) []byte { return word(big.NewInt(v).Bytes()) }

	var out []byte
	out = append(out, word(r.to.Bytes())...)
	out = append(out, num(r.l2CallValue)...)
	out = append(out, num(r.l1Value)...)
	out = append(out, num(r.maxSubmissionFee)...)
	out = append(out, word(r.excessFeeRefund.Bytes())...)
	out = append(out, word(r.callValueRefund.Bytes())...)
	out = append(out, word(new(big.Int).SetUint64(r.gasLimit).Bytes())...)
	out = append(out, num(r.maxFeePerGas)...)
	out = append(out, num(int64(len(r.data)))...)
	return append(out, r.data...)
}

var (
	testBridge      = testCoreContracts().Bridge
	testInbox       = testCoreContracts().Inbox
	testParentFee   = big.NewInt(30_000_000_000)
	testTokenRouter = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

// deliveredLogs returns the bridge and inbox logs of one delayed message.
func deliveredLogs(num int64, kind uint8, data []byte) []*types.Log {
	index := common.BigToHash(big.NewInt(num))
	bridgeLog := eventLog(testBridge, bridgeABI.Events["MessageDelivered"],
		[]common.Hash{index, common.HexToHash("0xacc")},
		testInbox, kind, testOwner, crypto.Keccak256Hash(data), testParentFee, uint64(1_700_000_000),
	)
	inboxLog := eventLog(testInbox, inboxABI.Events["InboxMessageDelivered"], []common.Hash{index}, data)
	return []*types.Log{bridgeLog, inboxLog}
}

// expectedTicketID encodes the submit retryable transaction as a plain RLP list.
func expectedTicketID(t *testing.T, num int64, r testRetryable) common.Hash {
	t.Helper()
	var to any = r.to
	if r.to == (common.Address{}) {
		to = []byte{}
	}
	enc, err := rlp.EncodeToBytes([]any{
		big.NewInt(testChildChainID),
		common.BigToHash(big.NewInt(num)),
		testOwner,
		testParentFee,
		big.NewInt(r.l1Value),
		big.NewInt(r.maxFeePerGas),
		r.gasLimit,
		to,
		big.NewInt(r.l2CallValue),
		r.callValueRefund,
		big.NewInt(r.maxSubmissionFee),
		r.excessFeeRefund,
		r.data,
	})
	require.NoError(t, err)
	return crypto.Keccak256Hash(append([]byte{0x69}, enc...))
}

func testRetryables() (testRetryable, testRetryable) {
	first := testRetryable{
		to:               testTokenRouter,
		l2CallValue:      1_000,
		l1Value:          5_000_000,
		maxSubmissionFee: 400_000,
		excessFeeRefund:  testOwner,
		callValueRefund:  testValidator,
		gasLimit:         1_200_000,
		maxFeePerGas:     100_000_000,
		data:             []byte{0xde, 0xad, 0xbe, 0xef},
	}
	second := testRetryable{
		excessFeeRefund: testOwner,
		callValueRefund: testOwner,
		gasLimit:        21_000,
		maxFeePerGas:    100_000_000,
		l1Value:         1,
	}
	return first, second
}

func testParentReceipt() *types.Receipt {
	first, second := testRetryables()
	var logs []*types.Log
	logs = append(logs, deliveredLogs(7, 3, []byte{1, 2, 3})...)
	logs = append(logs, deliveredLogs(8, submitRetryableMessageKind, first.pack())...)
	logs = append(logs, deliveredLogs(9, submitRetryableMessageKind, second.pack())...)
	return &types.Receipt{TxHash: common.HexToHash("0xfeed"), Logs: logs}
}

func TestExtractRetryableTickets(t *testing.T) {
	first, second := testRetryables()

	tickets, err := ExtractRetryableTickets(testParentReceipt(), testChildChainID)
	require.NoError(t, err)
	require.Len(t, tickets, 2, "non-retryable messages are skipped")

	t.Run("fields", func(t *testing.T) {
		tk := tickets[0]
		assert.Equal(t, int64(8), tk.MessageNumber.Int64())
		assert.Equal(t, testOwner, tk.From)
		assert.Equal(t, testTokenRouter, tk.To)
		assert.Equal(t, int64(1_000), tk.L2CallValue.Int64())
		assert.Equal(t, int64(5_000_000), tk.L1Value.Int64())
		assert.Equal(t, int64(400_000), tk.MaxSubmissionFee.Int64())
		assert.Equal(t, testOwner, tk.ExcessFeeRefundAddress)
		assert.Equal(t, testValidator, tk.CallValueRefundAddress)
		assert.Equal(t, uint64(1_200_000), tk.GasLimit)
		assert.Equal(t, int64(100_000_000), tk.MaxFeePerGas.Int64())
		assert.Equal(t, first.data, tk.Data)
		assert.Equal(t, 0, testParentFee.Cmp(tk.ParentBaseFee))
	})

	t.Run("ticket ids", func(t *testing.T) {
		assert.Equal(t, expectedTicketID(t, 8, first), tickets[0].TicketID)
		assert.Equal(t, expectedTicketID(t, 9, second), tickets[1].TicketID)
		assert.NotEqual(t, tickets[0].TicketID, tickets[1].TicketID)
	})

	t.Run("ids depend on the child chain", func(t *testing.T) {
		other, err := ExtractRetryableTickets(testParentReceipt(), 412346)
		require.NoError(t, err)
		assert.NotEqual(t, tickets[0].TicketID, other[0].TicketID)
	})

	t.Run("no retryables", func(t *testing.T) {
		got, err := ExtractRetryableTickets(&types.Receipt{}, testChildChainID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("inbox log from another emitter is ignored", func(t *testing.T) {
		logs := deliveredLogs(8, submitRetryableMessageKind, first.pack())
		spoofed := eventLog(common.HexToAddress("0xbadbad"), inboxABI.Events["InboxMessageDelivered"],
			[]common.Hash{common.BigToHash(big.NewInt(8))}, second.pack())

		got, err := ExtractRetryableTickets(&types.Receipt{Logs: []*types.Log{spoofed, logs[0], logs[1]}}, testChildChainID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, tickets[0].TicketID, got[0].TicketID)

		_, err = ExtractRetryableTickets(&types.Receipt{Logs: []*types.Log{logs[0], spoofed}}, testChildChainID)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("missing inbox message", func(t *testing.T) {
		logs := deliveredLogs(8, submitRetryableMessageKind, first.pack())
		_, err := ExtractRetryableTickets(&types.Receipt{Logs: logs[:1]}, testChildChainID)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("truncated message", func(t *testing.T) {
		logs := deliveredLogs(8, submitRetryableMessageKind, first.pack()[:100])
		_, err := ExtractRetryableTickets(&types.Receipt{Logs: logs}, testChildChainID)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := ExtractRetryableTickets(nil, testChildChainID)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		_, err = ExtractRetryableTickets(&types.Receipt{}, 0)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestRetryableTicketEncoding(t *testing.T) {
	ticket := RetryableTicket{
		MessageNumber:          big.NewInt(1),
		From:                   testOwner,
		ParentBaseFee:          big.NewInt(1),
		L1Value:                big.NewInt(0),
		MaxFeePerGas:           big.NewInt(100_000_000),
		GasLimit:               21_000,
		L2CallValue:            big.NewInt(0),
		CallValueRefundAddress: testBatchPoster,
		MaxSubmissionFee:       big.NewInt(0),
		ExcessFeeRefundAddress: testOwner,
	}

	// chain id 412346, request id 1, a nil retry target and empty data.
	want := common.FromHex("0xf872" +
		"83064aba" +
		"a0" + strings.Repeat("00", 31) + "01" +
		"94" + strings.Repeat("11", 20) +
		"01" +
		"80" +
		"8405f5e100" +
		"825208" +
		"80" +
		"80" +
		"94" + strings.Repeat("22", 20) +
		"80" +
		"94" + strings.Repeat("11", 20) +
		"80")

	enc, err := ticket.encode(412346)
	require.NoError(t, err)
	assert.Equal(t, want, enc)

	id, err := ticket.calculateID(412346)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(append([]byte{0x69}, want...)), id)
}

func redeemScheduledLog(ticket, redeem common.Hash) *types.Log {
	return eventLog(arbRetryableTxAddress, arbRetryableTxABI.Events["RedeemScheduled"],
		[]common.Hash{ticket, redeem, common.BigToHash(big.NewInt(0))},
		uint64(0), testOwner, big.NewInt(0), big.NewInt(0),
	)
}

func TestWaitForRetryables(t *testing.T) {
	ctx := context.Background()
	parent := testParentReceipt()
	tickets, err := ExtractRetryableTickets(parent, testChildChainID)
	require.NoError(t, err)
	opts := WaitOptions{Timeout: 5 * time.Second, PollInterval: time.Millisecond}

	t.Run("follows auto-redeems", func(t *testing.T) {
		child := newFakeClient(testChildChainID)
		redeem := common.HexToHash("0x0bad")
		child.addReceipt(&types.Receipt{
			TxHash: tickets[0].TicketID,
			Status: types.ReceiptStatusSuccessful,
			Logs:   []*types.Log{redeemScheduledLog(tickets[0].TicketID, redeem)},
		}, 2)
		child.addReceipt(&types.Receipt{TxHash: redeem, Status: types.ReceiptStatusSuccessful}, 3)
		child.addReceipt(&types.Receipt{TxHash: tickets[1].TicketID, Status: types.ReceiptStatusSuccessful}, 0)

		receipts, err := WaitForRetryables(ctx, parent, child, opts)
		require.NoError(t, err)
		require.Len(t, receipts, 2)
		assert.Equal(t, redeem, receipts[0].TxHash)
		assert.Equal(t, tickets[1].TicketID, receipts[1].TxHash, "an unredeemed ticket resolves to its creation")
		assert.Equal(t, 3, child.receiptPolls[tickets[0].TicketID])
		assert.Equal(t, 4, child.receiptPolls[redeem])
	})

	t.Run("failed redeem is returned", func(t *testing.T) {
		child := newFakeClient(testChildChainID)
		redeem := common.HexToHash("0x0bad")
		child.addReceipt(&types.Receipt{
			TxHash: tickets[0].TicketID,
			Logs:   []*types.Log{redeemScheduledLog(tickets[0].TicketID, redeem)},
		}, 0)
		child.addReceipt(&types.Receipt{TxHash: redeem, Status: types.ReceiptStatusFailed}, 0)
		child.addReceipt(&types.Receipt{TxHash: tickets[1].TicketID}, 0)

		receipts, err := WaitForRetryables(ctx, parent, child, opts)
		require.NoError(t, err)
		assert.Equal(t, types.ReceiptStatusFailed, receipts[0].Status)
	})

	t.Run("redeem of another ticket is ignored", func(t *testing.T) {
		child := newFakeClient(testChildChainID)
		child.addReceipt(&types.Receipt{
			TxHash: tickets[0].TicketID,
			Logs:   []*types.Log{redeemScheduledLog(common.HexToHash("0x01"), common.HexToHash("0x02"))},
		}, 0)
		child.addReceipt(&types.Receipt{TxHash: tickets[1].TicketID}, 0)

		receipts, err := WaitForRetryables(ctx, parent, child, opts)
		require.NoError(t, err)
		assert.Equal(t, tickets[0].TicketID, receipts[0].TxHash)
	})

	t.Run("times out", func(t *testing.T) {
		child := newFakeClient(testChildChainID)
		_, err := WaitForRetryables(ctx, parent, child, WaitOptions{
			Timeout:      20 * time.Millisecond,
			PollInterval: time.Millisecond,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetryableTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		var rte *RetryableTimeoutError
		require.True(t, errors.As(err, &rte))
		assert.Equal(t, tickets[0].TicketID, rte.Ticket)
	})

	t.Run("times out on the second ticket", func(t *testing.T) {
		child := newFakeClient(testChildChainID)
		child.addReceipt(&types.Receipt{TxHash: tickets[0].TicketID, Status: types.ReceiptStatusSuccessful}, 0)

		_, err := WaitForRetryables(ctx, parent, child, WaitOptions{
			Timeout:      20 * time.Millisecond,
			PollInterval: time.Millisecond,
		})
		assert.ErrorIs(t, err, ErrRetryableTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		var rte *RetryableTimeoutError
		require.ErrorAs(t, err, &rte)
		assert.Equal(t, tickets[1].TicketID, rte.Ticket)
		assert.Equal(t, 20*time.Millisecond, rte.Timeout)
	})

	t.Run("results follow ticket order", func(t *testing.T) {
		child := newFakeClient(testChildChainID)
		child.addReceipt(&types.Receipt{TxHash: tickets[0].TicketID, Status: types.ReceiptStatusSuccessful}, 5)
		child.addReceipt(&types.Receipt{TxHash: tickets[1].TicketID, Status: types.ReceiptStatusSuccessful}, 0)

		receipts, err := WaitForRetryables(ctx, parent, child, opts)
		require.NoError(t, err)
		require.Len(t, receipts, 2)
		assert.Equal(t, tickets[0].TicketID, receipts[0].TxHash)
		assert.Equal(t, tickets[1].TicketID, receipts[1].TxHash)
	})

	t.Run("no retryables", func(t *testing.T) {
		receipts, err := WaitForRetryables(ctx, &types.Receipt{}, newFakeClient(testChildChainID), opts)
		require.NoError(t, err)
		assert.Empty(t, receipts)
	})
}

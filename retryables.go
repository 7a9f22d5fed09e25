package orbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Inbox message kind and transaction type of a submitted retryable.
const (
	submitRetryableMessageKind = 9
	arbitrumSubmitRetryableTx  = 0x69
)

// Retryable wait defaults.
const (
	DefaultRetryableTimeout      = 15 * time.Minute
	DefaultRetryablePollInterval = time.Second
)

// arbRetryableTxAddress is the ArbRetryableTx precompile.
var arbRetryableTxAddress = common.HexToAddress("0x000000000000000000000000000000000000006E")

// RetryableTicket is a retryable created on the child chain by a parent chain
// transaction.
type RetryableTicket struct {
	MessageNumber *big.Int
	// TicketID is the hash of the child chain transaction creating the ticket.
	TicketID common.Hash

	From                   common.Address
	To                     common.Address
	L2CallValue            *big.Int
	L1Value                *big.Int
	MaxSubmissionFee       *big.Int
	ExcessFeeRefundAddress common.Address
	CallValueRefundAddress common.Address
	GasLimit               uint64
	MaxFeePerGas           *big.Int
	Data                   []byte
	ParentBaseFee          *big.Int
}

// submitRetryableTx is the RLP layout of an ArbitrumSubmitRetryableTx.
type submitRetryableTx struct {
	ChainID          *big.Int
	RequestID        common.Hash
	From             common.Address
	L1BaseFee        *big.Int
	DepositValue     *big.Int
	GasFeeCap        *big.Int
	Gas              uint64
	RetryTo          *common.Address `rlp:"nil"`
	RetryValue       *big.Int
	Beneficiary      common.Address
	MaxSubmissionFee *big.Int
	FeeRefundAddr    common.Address
	RetryData        []byte
}

// deliveredMessage is the bridge side of a delayed inbox message.
type deliveredMessage struct {
	index     *big.Int
	inbox     common.Address
	kind      uint8
	sender    common.Address
	baseFeeL1 *big.Int
}

// inboxMessageKey names an InboxMessageDelivered log by its emitter.
type inboxMessageKey struct {
	inbox common.Address
	index string
}

// ExtractRetryableTickets returns the retryables submitted by a parent chain
// transaction, in log order. Each bridge MessageDelivered log is paired with
// the InboxMessageDelivered log emitted by the inbox it names.
func ExtractRetryableTickets(receipt *types.Receipt, childChainID uint64) ([]RetryableTicket, error) {
	if receipt == nil {
		return nil, NewInvalidParameterError("receipt", "is nil")
	}
	if childChainID == 0 {
		return nil, NewInvalidParameterError("childChainId", "must be positive")
	}

	messageDelivered := bridgeABI.Events["MessageDelivered"]
	inboxDelivered := inboxABI.Events["InboxMessageDelivered"]

	var messages []deliveredMessage
	inboxData := make(map[inboxMessageKey][]byte)

	for _, lg := range receipt.Logs {
		if len(lg.Topics) < 2 {
			continue
		}
		switch lg.Topics[0] {
		case messageDelivered.ID:
			vals, err := messageDelivered.Inputs.NonIndexed().Unpack(lg.Data)
			if err != nil {
				return nil, &MissingFieldError{Field: "MessageDelivered data", Context: err.Error()}
			}
			messages = append(messages, deliveredMessage{
				index:     lg.Topics[1].Big(),
				inbox:     vals[0].(common.Address),
				kind:      vals[1].(uint8),
				sender:    vals[2].(common.Address),
				baseFeeL1: vals[4].(*big.Int),
			})
		case inboxDelivered.ID:
			vals, err := inboxDelivered.Inputs.NonIndexed().Unpack(lg.Data)
			if err != nil {
				return nil, &MissingFieldError{Field: "InboxMessageDelivered data", Context: err.Error()}
			}
			key := inboxMessageKey{inbox: lg.Address, index: lg.Topics[1].Big().String()}
			if _, seen := inboxData[key]; !seen {
				inboxData[key] = vals[0].([]byte)
			}
		}
	}

	var tickets []RetryableTicket
	for _, m := range messages {
		if m.kind != submitRetryableMessageKind {
			continue
		}
		data, ok := inboxData[inboxMessageKey{inbox: m.inbox, index: m.index.String()}]
		if !ok {
			return nil, &MissingFieldError{
				Field:   "InboxMessageDelivered",
				Context: fmt.Sprintf("retryable message %s from inbox %s", m.index, m.inbox.Hex()),
			}
		}
		t, err := parseSubmitRetryable(data)
		if err != nil {
			return nil, err
		}
		t.MessageNumber = m.index
		t.From = m.sender
		t.ParentBaseFee = m.baseFeeL1
		t.TicketID, err = t.calculateID(childChainID)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// parseSubmitRetryable decodes the packed inbox message of a retryable:
// nine 32-byte words followed by the call data.
func parseSubmitRetryable(data []byte) (RetryableTicket, error) {
	const words = 9
	if len(data) < words*32 {
		return RetryableTicket{}, &MissingFieldError{Field: "retryable message", Context: fmt.Sprintf("%d bytes", len(data))}
	}
	word := func(i int) []byte { return data[i*32 : (i+1)*32] }
	num := func(i int) *big.Int { return new(big.Int).SetBytes(word(i)) }

	gasLimit := num(6)
	if !gasLimit.IsUint64() {
		return RetryableTicket{}, NewInvalidParameterError("gasLimit", "does not fit in uint64")
	}
	dataLength := num(8)
	rest := data[words*32:]
	if !dataLength.IsUint64() || dataLength.Uint64() > uint64(len(rest)) {
		return RetryableTicket{}, &MissingFieldError{Field: "retryable call data", Context: "length " + dataLength.String()}
	}

	return RetryableTicket{
		To:                     common.BytesToAddress(word(0)),
		L2CallValue:            num(1),
		L1Value:                num(2),
		MaxSubmissionFee:       num(3),
		ExcessFeeRefundAddress: common.BytesToAddress(word(4)),
		CallValueRefundAddress: common.BytesToAddress(word(5)),
		GasLimit:               gasLimit.Uint64(),
		MaxFeePerGas:           num(7),
		Data:                   common.CopyBytes(rest[:dataLength.Uint64()]),
	}, nil
}

// calculateID derives the child chain hash of the ticket creation transaction.
func (t RetryableTicket) calculateID(childChainID uint64) (common.Hash, error) {
	enc, err := t.encode(childChainID)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{arbitrumSubmitRetryableTx}, enc), nil
}

// encode returns the RLP payload of the ticket creation transaction, without
// the type byte.
func (t RetryableTicket) encode(childChainID uint64) ([]byte, error) {
	tx := submitRetryableTx{
		ChainID:          new(big.Int).SetUint64(childChainID),
		RequestID:        common.BigToHash(t.MessageNumber),
		From:             t.From,
		L1BaseFee:        t.ParentBaseFee,
		DepositValue:     t.L1Value,
		GasFeeCap:        t.MaxFeePerGas,
		Gas:              t.GasLimit,
		RetryValue:       t.L2CallValue,
		Beneficiary:      t.CallValueRefundAddress,
		MaxSubmissionFee: t.MaxSubmissionFee,
		FeeRefundAddr:    t.ExcessFeeRefundAddress,
		RetryData:        t.Data,
	}
	if t.To != (common.Address{}) {
		to := t.To
		tx.RetryTo = &to
	}

	enc, err := rlp.EncodeToBytes(&tx)
	if err != nil {
		return nil, fmt.Errorf("encode retryable: %w", err)
	}
	return enc, nil
}

// ============================================================================
// Waiting for retryables
// ============================================================================

// ChildChainReader is what WaitForRetryables needs from the child chain.
type ChildChainReader interface {
	ChainIDReader
	ReceiptReader
}

// WaitOptions bounds WaitForRetryables.
type WaitOptions struct {
	// Timeout caps the whole wait. Defaults to DefaultRetryableTimeout.
	Timeout time.Duration
	// PollInterval defaults to DefaultRetryablePollInterval.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// WaitForRetryables waits until every retryable submitted by parentReceipt is
// executed on the child chain. Tickets that were auto-redeemed resolve to the
// redeem receipt, others to the ticket creation receipt. Receipts are returned
// in ticket order.
func WaitForRetryables(
	ctx context.Context,
	parentReceipt *types.Receipt,
	childClient ChildChainReader,
	opts WaitOptions,
) ([]*types.Receipt, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRetryableTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultRetryablePollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	childChainID, err := chainID(ctx, childClient)
	if err != nil {
		return nil, fmt.Errorf("get child chain ID: %w", err)
	}
	tickets, err := ExtractRetryableTickets(parentReceipt, childChainID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	receipts := make([]*types.Receipt, 0, len(tickets))
	for _, t := range tickets {
		logger.Info("waiting for retryable",
			slog.String("ticket", t.TicketID.Hex()),
			slog.String("message_number", t.MessageNumber.String()),
		)

		creation, err := waitForReceipt(ctx, childClient, t.TicketID, opts.PollInterval)
		if err != nil {
			return nil, retryableWaitError(ctx, t, opts.Timeout, err)
		}

		redeemHash, ok := scheduledRedeem(creation, t.TicketID)
		if !ok {
			logger.Warn("retryable was not auto-redeemed", slog.String("ticket", t.TicketID.Hex()))
			receipts = append(receipts, creation)
			continue
		}

		redeem, err := waitForReceipt(ctx, childClient, redeemHash, opts.PollInterval)
		if err != nil {
			return nil, retryableWaitError(ctx, t, opts.Timeout, err)
		}
		if redeem.Status != types.ReceiptStatusSuccessful {
			logger.Warn("retryable redeem failed, manual redeem required",
				slog.String("ticket", t.TicketID.Hex()),
				slog.String("redeem_tx", redeemHash.Hex()),
			)
		}
		receipts = append(receipts, redeem)
	}
	return receipts, nil
}

func retryableWaitError(ctx context.Context, t RetryableTicket, timeout time.Duration, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &RetryableTimeoutError{Ticket: t.TicketID, Timeout: timeout, Err: ctxErr}
	}
	return fmt.Errorf("wait for retryable %s: %w", t.TicketID.Hex(), err)
}

// waitForReceipt polls at a constant interval until the receipt exists.
// Only "not found" is retried.
func waitForReceipt(ctx context.Context, client ReceiptReader, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	op := func() (*types.Receipt, error) {
		receipt, err := client.TransactionReceipt(ctx, hash)
		switch {
		case errors.Is(err, ethereum.NotFound):
			return nil, err
		case err != nil:
			return nil, backoff.Permanent(err)
		case receipt == nil:
			return nil, ethereum.NotFound
		}
		return receipt, nil
	}
	return backoff.RetryWithData(op, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
}

// scheduledRedeem finds the auto-redeem scheduled for a ticket in its
// creation receipt.
func scheduledRedeem(receipt *types.Receipt, ticket common.Hash) (common.Hash, bool) {
	event := arbRetryableTxABI.Events["RedeemScheduled"]
	for _, lg := range receipt.Logs {
		if lg.Address != arbRetryableTxAddress || len(lg.Topics) < 3 {
			continue
		}
		if lg.Topics[0] == event.ID && lg.Topics[1] == ticket {
			return lg.Topics[2], true
		}
	}
	return common.Hash{}, false
}

package signer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	orbit "github.com/OffchainLabs/arbitrum-orbit-sdk-sub002"
)

// Gas policy defaults.
const (
	// DefaultFallbackGasLimit is used when estimation fails.
	DefaultFallbackGasLimit = 15_000_000
	// DefaultMaxGasLimit keeps transactions under common block gas limits.
	DefaultMaxGasLimit = 15_000_000
	gasBufferPercent   = 120
	gasPriceBoost      = 150
)

// DefaultMinGasPrice is the floor of the boosted gas price (2 gwei).
var DefaultMinGasPrice = big.NewInt(2_000_000_000)

// ErrTransactionReverted is returned with the receipt of a mined but failed
// transaction.
var ErrTransactionReverted = errors.New("signer: transaction reverted")

// Backend is the chain access a Sender needs.
type Backend interface {
	bind.DeployBackend
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Sender signs, submits and waits for transaction requests.
type Sender struct {
	backend Backend
	signer  TransactionSigner
	logger  *slog.Logger

	MinGasPrice      *big.Int
	FallbackGasLimit uint64
	MaxGasLimit      uint64
}

// NewSender creates a Sender with the default gas policy. A nil logger
// discards output.
func NewSender(backend Backend, signer TransactionSigner, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sender{
		backend:          backend,
		signer:           signer,
		logger:           logger,
		MinGasPrice:      new(big.Int).Set(DefaultMinGasPrice),
		FallbackGasLimit: DefaultFallbackGasLimit,
		MaxGasLimit:      DefaultMaxGasLimit,
	}
}

// Address returns the sending address.
func (s *Sender) Address() common.Address {
	return s.signer.Address()
}

// Send signs req, broadcasts it and blocks until it is mined. A reverted
// transaction returns its receipt together with ErrTransactionReverted.
func (s *Sender) Send(ctx context.Context, req *orbit.TransactionRequest) (*types.Receipt, error) {
	if req == nil {
		return nil, fmt.Errorf("send transaction: request is nil")
	}
	from := s.signer.Address()
	if req.From != (common.Address{}) && req.From != from {
		return nil, fmt.Errorf("send transaction: request is from %s but signer is %s", req.From.Hex(), from.Hex())
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := s.gasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}
	gasLimit := s.gasLimit(ctx, from, req, value, gasPrice)

	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})

	signed, err := s.signer.SignTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	s.logger.Info("transaction submitted, waiting for confirmation",
		slog.String("tx_hash", signed.Hash().Hex()),
		slog.String("to", to.Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas_limit", gasLimit),
		slog.String("gas_price", gasPrice.String()),
	)

	receipt, err := bind.WaitMined(ctx, s.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt of %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, signed.Hash().Hex())
	}

	s.logger.Info("transaction confirmed",
		slog.String("tx_hash", signed.Hash().Hex()),
		slog.Any("block_number", receipt.BlockNumber),
	)
	return receipt, nil
}

// gasPrice returns the suggested price boosted by 50%, at least MinGasPrice.
func (s *Sender) gasPrice(ctx context.Context) (*big.Int, error) {
	price, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	boosted := new(big.Int).Mul(price, big.NewInt(gasPriceBoost))
	boosted.Div(boosted, big.NewInt(100))
	if s.MinGasPrice != nil && boosted.Cmp(s.MinGasPrice) < 0 {
		boosted.Set(s.MinGasPrice)
	}
	return boosted, nil
}

// gasLimit estimates with a 20% buffer, capped at MaxGasLimit.
func (s *Sender) gasLimit(ctx context.Context, from common.Address, req *orbit.TransactionRequest, value, gasPrice *big.Int) uint64 {
	msg := req.ToCallMsg()
	msg.From = from
	msg.Value = value
	msg.GasPrice = gasPrice

	gasLimit, err := s.backend.EstimateGas(ctx, msg)
	if err != nil {
		gasLimit = s.FallbackGasLimit
		s.logger.Warn("gas estimation failed, using default",
			slog.Uint64("gas_limit", gasLimit),
			slog.String("error", err.Error()),
		)
	}
	gasLimit = gasLimit * gasBufferPercent / 100

	if s.MaxGasLimit > 0 && gasLimit > s.MaxGasLimit {
		s.logger.Warn("gas limit capped to max",
			slog.Uint64("original", gasLimit),
			slog.Uint64("capped", s.MaxGasLimit),
		)
		gasLimit = s.MaxGasLimit
	}
	return gasLimit
}

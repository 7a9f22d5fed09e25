package orbit

import (
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Option configures a preparer or a read helper.
type Option func(*options)

type options struct {
	registry           *Registry
	rollupCreator      *common.Address
	tokenBridgeCreator *common.Address
	logger             *slog.Logger
	value              *big.Int
}

// WithRegistry sets the chain registry used to resolve factory addresses.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithRollupCreator overrides the RollupCreator address from the registry.
func WithRollupCreator(addr common.Address) Option {
	return func(o *options) {
		o.rollupCreator = &addr
	}
}

// WithTokenBridgeCreator overrides the TokenBridgeCreator address from the registry.
func WithTokenBridgeCreator(addr common.Address) Option {
	return func(o *options) {
		o.tokenBridgeCreator = &addr
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithValue overrides the computed transaction value.
func WithValue(v *big.Int) Option {
	return func(o *options) {
		o.value = copyBig(v)
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

package orbit

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ============================================================================
// Custom fee token allowances
// ============================================================================

// ethDecimals is the precision retryable fees are denominated in.
const ethDecimals = 18

// CheckAllowance reports whether owner has approved at least amount of token
// for spender. It only reads state and can be repeated safely.
func CheckAllowance(
	ctx context.Context,
	client ethereum.ContractCaller,
	token, owner, spender common.Address,
	amount *big.Int,
) (bool, error) {
	if token == (common.Address{}) {
		return false, NewInvalidParameterError("token", "must not be the zero address")
	}
	if amount == nil || amount.Sign() < 0 {
		return false, NewInvalidParameterError("amount", "must be non-negative")
	}
	current, err := Allowance(ctx, client, token, owner, spender)
	if err != nil {
		return false, err
	}
	return current.Cmp(amount) >= 0, nil
}

// Allowance reads the ERC-20 allowance of owner for spender.
func Allowance(ctx context.Context, client ethereum.ContractCaller, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("encode allowance: %w", err)
	}
	out, err := call(ctx, client, token, data)
	if err != nil {
		return nil, fmt.Errorf("call allowance on %s: %w", token.Hex(), err)
	}
	vals, err := erc20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("decode allowance: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// PrepareApprovalTransaction builds an approve(spender, amount) call from
// owner. It returns a nil request when the current allowance already covers
// amount, so an interrupted deployment can resume without approving twice.
func PrepareApprovalTransaction(
	ctx context.Context,
	client ethereum.ContractCaller,
	token, owner, spender common.Address,
	amount *big.Int,
) (*TransactionRequest, error) {
	if spender == (common.Address{}) {
		return nil, NewInvalidParameterError("spender", "must not be the zero address")
	}
	ok, err := CheckAllowance(ctx, client, token, owner, spender, amount)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("encode approve: %w", err)
	}
	return newTransactionRequest(owner, token, data, nil), nil
}

// NativeTokenDecimals reads the decimals of a fee token. The zero address
// stands for ETH.
func NativeTokenDecimals(ctx context.Context, client ethereum.ContractCaller, token common.Address) (uint8, error) {
	if token == (common.Address{}) {
		return ethDecimals, nil
	}
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("encode decimals: %w", err)
	}
	out, err := call(ctx, client, token, data)
	if err != nil {
		return 0, fmt.Errorf("call decimals on %s: %w", token.Hex(), err)
	}
	vals, err := erc20ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("decode decimals: %w", err)
	}
	return vals[0].(uint8), nil
}

// ScaleToNativeTokenDecimals converts an 18-decimal amount into the token's
// precision. Amounts that do not divide evenly are rounded up so the
// approval never falls short.
func ScaleToNativeTokenDecimals(amount *big.Int, decimals uint8) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	switch {
	case decimals == ethDecimals:
		return new(big.Int).Set(amount)
	case decimals < ethDecimals:
		divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(ethDecimals-decimals)), nil)
		q, r := new(big.Int).QuoRem(amount, divisor, new(big.Int))
		if r.Sign() > 0 {
			q.Add(q, big.NewInt(1))
		}
		return q
	default:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-ethDecimals)), nil)
		return new(big.Int).Mul(amount, factor)
	}
}

// CreateRollupFeeTokenAllowance returns the amount of fee token the
// RollupCreator pulls to fund the factory deployment retryables.
func CreateRollupFeeTokenAllowance(ctx context.Context, client ethereum.ContractCaller, token common.Address) (*big.Int, error) {
	if token == (common.Address{}) {
		return nil, NewInvalidParameterError("nativeToken", "chain uses ETH, no allowance needed")
	}
	decimals, err := NativeTokenDecimals(ctx, client, token)
	if err != nil {
		return nil, err
	}
	return ScaleToNativeTokenDecimals(CreateRollupDefaultRetryablesFees, decimals), nil
}

// TokenBridgeFeeTokenAllowance returns the amount of fee token the
// TokenBridgeCreator pulls to pay for the deployment retryables.
func TokenBridgeFeeTokenAllowance(ctx context.Context, client ethereum.ContractCaller, token common.Address, fees TokenBridgeFees) (*big.Int, error) {
	if token == (common.Address{}) {
		return nil, NewInvalidParameterError("nativeToken", "chain uses ETH, no allowance needed")
	}
	decimals, err := NativeTokenDecimals(ctx, client, token)
	if err != nil {
		return nil, err
	}
	return ScaleToNativeTokenDecimals(fees.Total(), decimals), nil
}

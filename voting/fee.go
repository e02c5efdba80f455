package voting

import (
	"math/big"

	"github.com/vocdoni/zkvote/types"
)

// opsPerOption is the number of encrypted operations the contract runs for
// every option when counting a ballot: equality check, selection and
// accumulation.
const opsPerOption = 3

// TotalFee returns the payment required to cast a ballot on a proposal with
// optionCount options: one new encrypted value plus three operations per
// option, each priced at baseFee.
func TotalFee(baseFee *big.Int, optionCount uint64) *big.Int {
	ops := new(big.Int).SetUint64(optionCount)
	ops.Mul(ops, big.NewInt(opsPerOption))
	ops.Add(ops, big.NewInt(1))
	return ops.Mul(ops, baseFee)
}

// Quote builds the fee quote for the given base fee and option count.
func Quote(baseFee *big.Int, optionCount uint64) *types.FeeQuote {
	return &types.FeeQuote{
		BaseFee:     types.NewBigInt(baseFee),
		OptionCount: optionCount,
		Total:       types.NewBigInt(TotalFee(baseFee, optionCount)),
	}
}

package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Metadata is the per-block context an inspector scores against: the block
// identity, the ETH/USD price at that block and the DEX quote surface built
// by the pricing subgraph. Immutable after construction and shared read-only.
type Metadata struct {
	BlockNumber uint64
	ETHPriceUSD decimal.Decimal
	DexQuotes   DexQuotes
}

// GasPriceUSD converts a wei amount into USD at the block's ETH price.
// Scaling by 10^-18 through the decimal exponent keeps the conversion exact.
func (m *Metadata) GasPriceUSD(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18).Mul(m.ETHPriceUSD)
}

package pricing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pair identifies a priced token pair: Token denominated in Quote.
type Pair struct {
	Token common.Address
	Quote common.Address
}

// DexQuotes is the per-block price surface: one partial price map per
// transaction position. Quotes only exist at positions where the pricing
// subgraph observed a state change, so lookups scan backwards.
type DexQuotes struct {
	quotes []map[Pair]decimal.Decimal
}

// NewDexQuotes wraps one map per tx position. Nil maps mark positions
// without any quote update.
func NewDexQuotes(quotes []map[Pair]decimal.Decimal) DexQuotes {
	return DexQuotes{quotes: quotes}
}

// Len returns the number of tx positions the quote surface covers.
func (d DexQuotes) Len() int { return len(d.quotes) }

// PriceAtOrBefore returns the spot price of pair.Token denominated in
// pair.Quote at the latest position <= idx carrying a quote. When no such
// quote exists it returns decimal zero and false; the caller decides whether
// that is a zero USD contribution or a fail-closed skip.
func (d DexQuotes) PriceAtOrBefore(pair Pair, idx int) (decimal.Decimal, bool) {
	if idx >= len(d.quotes) {
		idx = len(d.quotes) - 1
	}
	for i := idx; i >= 0; i-- {
		if d.quotes[i] == nil {
			continue
		}
		if p, ok := d.quotes[i][pair]; ok {
			return p, true
		}
	}
	return decimal.Zero, false
}

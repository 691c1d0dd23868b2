package inspect

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/rawblock/mev-inspect/internal/pricing"
	"github.com/rawblock/mev-inspect/pkg/models"
)

// TokenDeltas maps address → token → signed net flow. Credits are positive,
// debits negative. Aggregation is commutative, so action order never changes
// the final sums.
type TokenDeltas map[common.Address]map[common.Address]decimal.Decimal

func (d TokenDeltas) apply(addr, token common.Address, amount decimal.Decimal) {
	tokens, ok := d[addr]
	if !ok {
		tokens = make(map[common.Address]decimal.Decimal)
		d[addr] = tokens
	}
	tokens[token] = tokens[token].Add(amount)
}

// SharedUtils carries the pricing context shared by every inspector: the
// quote token all USD conversion is denominated in.
type SharedUtils struct {
	QuoteToken common.Address
}

func NewSharedUtils(quote common.Address) *SharedUtils {
	return &SharedUtils{QuoteToken: quote}
}

// CalculateTokenDeltas aggregates signed token flows across the given action
// groups (one inner slice per transaction). A swap credits its pool with the
// input token and debits it the output token; the counterparty side arrives
// through the transfer actions classified out of the same transaction.
func CalculateTokenDeltas(actionGroups [][]models.Action) TokenDeltas {
	deltas := make(TokenDeltas)
	for _, group := range actionGroups {
		for _, action := range group {
			switch {
			case action.IsSwap():
				s := action.ForceSwap()
				deltas.apply(s.Pool, s.TokenIn, s.AmountIn)
				deltas.apply(s.Pool, s.TokenOut, s.AmountOut.Neg())
			case action.IsTransfer():
				t, _ := action.AsTransfer()
				deltas.apply(t.From, t.Token, t.Amount.Neg())
				deltas.apply(t.To, t.Token, t.Amount)
			}
		}
	}
	return deltas
}

// USDDeltaByAddress converts per-token deltas into one net USD figure per
// address, pricing every token at the latest quote at or before idx. The
// quote token itself is worth exactly 1. Pricing is fail-closed: any token
// with a non-zero delta and no quote aborts the whole conversion, because a
// profit figure with silent holes is worse than no figure.
//
// pessimistic flips addresses whose net USD is negative; the sandwich scorer
// never uses it but other inspectors do.
func (u *SharedUtils) USDDeltaByAddress(
	idx int,
	deltas TokenDeltas,
	meta *pricing.Metadata,
	pessimistic bool,
) (map[common.Address]decimal.Decimal, bool) {
	usd := make(map[common.Address]decimal.Decimal, len(deltas))
	for addr, tokens := range deltas {
		total := decimal.Zero
		for token, amount := range tokens {
			if amount.IsZero() {
				continue
			}
			if token == u.QuoteToken {
				total = total.Add(amount)
				continue
			}
			price, ok := meta.DexQuotes.PriceAtOrBefore(pricing.Pair{Token: token, Quote: u.QuoteToken}, idx)
			if !ok {
				return nil, false
			}
			total = total.Add(amount.Mul(price))
		}
		if pessimistic && total.IsNegative() {
			total = total.Neg()
		}
		usd[addr] = total
	}
	return usd, true
}

// ProfitCollectors returns the addresses ending with strictly positive net
// USD, sorted byte-wise so emitted bundles are reproducible.
func ProfitCollectors(usdDeltas map[common.Address]decimal.Decimal) []common.Address {
	collectors := make([]common.Address, 0, len(usdDeltas))
	for addr, delta := range usdDeltas {
		if delta.IsPositive() {
			collectors = append(collectors, addr)
		}
	}
	sort.Slice(collectors, func(i, j int) bool {
		return bytes.Compare(collectors[i][:], collectors[j][:]) < 0
	})
	return collectors
}

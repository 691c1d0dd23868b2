package pricing

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	tokenA = common.BytesToAddress([]byte{0x01})
	quoteT = common.BytesToAddress([]byte{0x02})
)

func TestPriceAtOrBefore(t *testing.T) {
	pair := Pair{Token: tokenA, Quote: quoteT}
	quotes := NewDexQuotes([]map[Pair]decimal.Decimal{
		{pair: decimal.NewFromInt(100)},
		nil,
		{pair: decimal.NewFromInt(105)},
		nil,
		nil,
	})

	tests := []struct {
		name      string
		idx       int
		wantPrice int64
		wantFound bool
	}{
		{"exact position", 0, 100, true},
		{"gap falls back to earlier quote", 1, 100, true},
		{"later update wins at its position", 2, 105, true},
		{"trailing gap uses latest", 4, 105, true},
		{"index past the block is clamped", 99, 105, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, found := quotes.PriceAtOrBefore(pair, tt.idx)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if !price.Equal(decimal.NewFromInt(tt.wantPrice)) {
				t.Errorf("price = %s, want %d", price, tt.wantPrice)
			}
		})
	}
}

func TestPriceAtOrBeforeMissing(t *testing.T) {
	pair := Pair{Token: tokenA, Quote: quoteT}
	quotes := NewDexQuotes([]map[Pair]decimal.Decimal{
		nil,
		{pair: decimal.NewFromInt(100)},
	})

	// Quote only exists after idx; nothing at or before 0.
	price, found := quotes.PriceAtOrBefore(pair, 0)
	if found {
		t.Error("Expected no quote at or before position 0")
	}
	if !price.IsZero() {
		t.Errorf("Missing quote must price as zero, got %s", price)
	}

	// Unknown pair is never priced.
	other := Pair{Token: quoteT, Quote: tokenA}
	if _, found := quotes.PriceAtOrBefore(other, 1); found {
		t.Error("Expected unknown pair to be unpriced")
	}
}

func TestGasPriceUSD(t *testing.T) {
	meta := &Metadata{BlockNumber: 1, ETHPriceUSD: decimal.NewFromInt(2000)}

	tests := []struct {
		name string
		wei  *big.Int
		want float64
	}{
		{"one ether", big.NewInt(1_000_000_000_000_000_000), 2000},
		{"typical bundle gas", big.NewInt(17_168_400_000_000_000), 34.3368},
		{"zero", big.NewInt(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := meta.GasPriceUSD(tt.wei).InexactFloat64()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("GasPriceUSD(%s) = %f, want %f", tt.wei, got, tt.want)
			}
		})
	}
}

package metrics

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rawblock/mev-inspect/pkg/models"
)

// PoolActivity counts how often one pool shows up across bundle evidence.
type PoolActivity struct {
	Pool    string `json:"pool"`
	Bundles int    `json:"bundles"`
	Swaps   int    `json:"swaps"`
}

// Summary aggregates a set of emitted bundles into the dashboard figures:
// totals, per-strategy counts and the most-hit pools.
type Summary struct {
	BundleCount     int            `json:"bundleCount"`
	ProfitableUSD   float64        `json:"profitableUsd"`   // sum of positive profits
	UnprofitableUSD float64        `json:"unprofitableUsd"` // sum of negative profits
	NetProfitUSD    float64        `json:"netProfitUsd"`
	TotalBribeUSD   float64        `json:"totalBribeUsd"`
	CountByType     map[string]int `json:"countByType"`
	TopPools        []PoolActivity `json:"topPools"`
}

// Summarize folds bundles into a Summary. topN bounds the pool leaderboard.
func Summarize(bundles []models.Bundle, topN int) Summary {
	s := Summary{CountByType: make(map[string]int)}
	type poolStat struct {
		bundles int
		swaps   int
	}
	pools := make(map[common.Address]*poolStat)

	for _, b := range bundles {
		s.BundleCount++
		s.CountByType[string(b.Header.MevType)]++
		s.NetProfitUSD += b.Header.ProfitUSD
		s.TotalBribeUSD += b.Header.BribeUSD
		if b.Header.ProfitUSD >= 0 {
			s.ProfitableUSD += b.Header.ProfitUSD
		} else {
			s.UnprofitableUSD += b.Header.ProfitUSD
		}

		seen := make(map[common.Address]struct{})
		for _, swap := range bundleSwaps(b) {
			stat, ok := pools[swap.Pool]
			if !ok {
				stat = &poolStat{}
				pools[swap.Pool] = stat
			}
			stat.swaps++
			if _, dup := seen[swap.Pool]; !dup {
				stat.bundles++
				seen[swap.Pool] = struct{}{}
			}
		}
	}

	for pool, stat := range pools {
		s.TopPools = append(s.TopPools, PoolActivity{
			Pool:    pool.Hex(),
			Bundles: stat.bundles,
			Swaps:   stat.swaps,
		})
	}
	sort.Slice(s.TopPools, func(i, j int) bool {
		if s.TopPools[i].Bundles != s.TopPools[j].Bundles {
			return s.TopPools[i].Bundles > s.TopPools[j].Bundles
		}
		if s.TopPools[i].Swaps != s.TopPools[j].Swaps {
			return s.TopPools[i].Swaps > s.TopPools[j].Swaps
		}
		return s.TopPools[i].Pool < s.TopPools[j].Pool
	})
	if topN > 0 && len(s.TopPools) > topN {
		s.TopPools = s.TopPools[:topN]
	}
	return s
}

// bundleSwaps flattens every attacker and victim swap out of one bundle.
func bundleSwaps(b models.Bundle) []models.Swap {
	sandwich := b.Data.Sandwich
	if sandwich == nil {
		return nil
	}
	var swaps []models.Swap
	for _, leg := range sandwich.FrontrunSwaps {
		swaps = append(swaps, leg...)
	}
	for _, victim := range sandwich.VictimSwaps {
		swaps = append(swaps, victim...)
	}
	swaps = append(swaps, sandwich.BackrunSwaps...)
	return swaps
}

package inspect

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/mev-inspect/internal/pricing"
	"github.com/rawblock/mev-inspect/pkg/models"
)

// SandwichInspector detects frontrun/victim/backrun bundles, including
// multi-leg "Big Mac" shapes, in a classified block tree.
type SandwichInspector struct {
	utils *SharedUtils
}

func NewSandwichInspector(quote common.Address) *SandwichInspector {
	return &SandwichInspector{utils: NewSharedUtils(quote)}
}

func (s *SandwichInspector) Name() string { return "sandwich" }

// ProcessTree enumerates candidates over the shared tree, validates and
// scores each one concurrently, and emits the survivors in a deterministic
// order: ascending backrun position, then first-frontrun position.
func (s *SandwichInspector) ProcessTree(
	ctx context.Context,
	tree *models.BlockTree,
	meta *pricing.Metadata,
) ([]models.Bundle, error) {
	candidates := GetPossibleSandwiches(tree)
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]*models.Bundle, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bundle, err := s.processCandidate(tree, meta, cand)
			if err != nil {
				return err
			}
			results[i] = bundle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type ordered struct {
		bundle      models.Bundle
		backrunPos  int
		frontrunPos int
	}
	var out []ordered
	for _, b := range results {
		if b == nil {
			continue
		}
		backrun, err := tree.GetRoot(b.Data.Sandwich.BackrunTxHash)
		if err != nil {
			return nil, err
		}
		frontrun, err := tree.GetRoot(b.Data.Sandwich.FrontrunTxHashes[0])
		if err != nil {
			return nil, err
		}
		out = append(out, ordered{bundle: *b, backrunPos: backrun.Position, frontrunPos: frontrun.Position})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].backrunPos != out[j].backrunPos {
			return out[i].backrunPos < out[j].backrunPos
		}
		return out[i].frontrunPos < out[j].frontrunPos
	})

	bundles := make([]models.Bundle, len(out))
	for i, o := range out {
		bundles[i] = o.bundle
	}
	return bundles, nil
}

// processCandidate gathers gas and actions for one nomination, applies the
// victim rejection rules and hands off to the recursive scorer. A nil, nil
// return is a silent shape rejection.
func (s *SandwichInspector) processCandidate(
	tree *models.BlockTree,
	meta *pricing.Metadata,
	cand PossibleSandwich,
) (*models.Bundle, error) {
	if len(cand.PossibleFrontruns) != len(cand.Victims) {
		return nil, fmt.Errorf("malformed candidate for eoa %s: %d frontruns, %d victim groups",
			cand.EOA.Hex(), len(cand.PossibleFrontruns), len(cand.Victims))
	}

	victimGas := make([][]models.GasDetails, len(cand.Victims))
	victimActions := make([][][]models.Action, len(cand.Victims))
	for i, group := range cand.Victims {
		victimGas[i] = make([]models.GasDetails, 0, len(group))
		victimActions[i] = make([][]models.Action, 0, len(group))
		for _, v := range group {
			gas, err := tree.GetGasDetails(v)
			if err != nil {
				return nil, err
			}
			victimGas[i] = append(victimGas[i], gas)

			actions, err := tree.Collect(v, models.SwapOrTransfer)
			if err != nil {
				return nil, err
			}
			if len(actions) == 0 {
				return nil, nil
			}
			victimActions[i] = append(victimActions[i], actions)

			root, err := tree.GetRoot(v)
			if err != nil {
				return nil, err
			}
			// A reverted victim, or one calling the attacker's own
			// contract, is the attacker probing rather than a victim.
			if root.IsRevert || root.ToAddress == cand.MevExecutorContract {
				return nil, nil
			}
		}
	}

	backrunRoot, err := tree.GetRoot(cand.PossibleBackrun)
	if err != nil {
		return nil, err
	}
	idx := backrunRoot.Position

	frontrunGas := make([]models.GasDetails, 0, len(cand.PossibleFrontruns))
	for _, f := range cand.PossibleFrontruns {
		gas, err := tree.GetGasDetails(f)
		if err != nil {
			return nil, err
		}
		frontrunGas = append(frontrunGas, gas)
	}
	backrunGas, err := tree.GetGasDetails(cand.PossibleBackrun)
	if err != nil {
		return nil, err
	}

	var searcherActions [][]models.Action
	for _, h := range append(append([]common.Hash{}, cand.PossibleFrontruns...), cand.PossibleBackrun) {
		actions, err := tree.Collect(h, models.SwapOrTransfer)
		if err != nil {
			return nil, err
		}
		if len(actions) > 0 {
			searcherActions = append(searcherActions, actions)
		}
	}

	return s.calculateSandwich(
		idx, cand.EOA, cand.MevExecutorContract, meta,
		cand.PossibleFrontruns, cand.PossibleBackrun,
		frontrunGas, backrunGas,
		searcherActions,
		cand.Victims, victimActions, victimGas,
	)
}

// calculateSandwich runs the pool-overlap test and, on failure, peels the
// last frontrun off as the new backrun and retries. Recursion depth is
// bounded by the number of frontrun legs. idx stays pinned to the original
// backrun position so every retry prices against the same quote index.
func (s *SandwichInspector) calculateSandwich(
	idx int,
	eoa common.Address,
	mevContract common.Address,
	meta *pricing.Metadata,
	frontruns []common.Hash,
	backrun common.Hash,
	frontrunGas []models.GasDetails,
	backrunGas models.GasDetails,
	searcherActions [][]models.Action,
	victimTxes [][]common.Hash,
	victimActions [][][]models.Action,
	victimGas [][]models.GasDetails,
) (*models.Bundle, error) {
	if len(searcherActions) == 0 {
		return nil, nil
	}

	allActions := searcherActions
	backrunActions := searcherActions[len(searcherActions)-1]
	frontrunActionGroups := searcherActions[:len(searcherActions)-1]

	backrunSwaps := filterSwaps(backrunActions)
	frontrunSwaps := make([][]models.Swap, len(frontrunActionGroups))
	for i, group := range frontrunActionGroups {
		frontrunSwaps[i] = filterSwaps(group)
	}

	if !hasPoolOverlap(frontrunSwaps, backrunSwaps, victimActions) {
		// No sandwich as shaped. With several frontrun legs the last one
		// may be an unrelated tx that swallowed the real backrun: drop its
		// victims, promote it to backrun and retry.
		if len(frontruns) > 1 {
			last := len(frontruns) - 1
			return s.calculateSandwich(
				idx, eoa, mevContract, meta,
				frontruns[:last], frontruns[last],
				frontrunGas[:last], frontrunGas[last],
				frontrunActionGroups,
				victimTxes[:last], victimActions[:last], victimGas[:last],
			)
		}
		return nil, nil
	}

	var victimSwaps [][]models.Swap
	for _, group := range victimActions {
		for _, txActions := range group {
			victimSwaps = append(victimSwaps, filterSwaps(txActions))
		}
	}

	deltas := CalculateTokenDeltas(allActions)
	usdDeltas, ok := s.utils.USDDeltaByAddress(idx, deltas, meta, false)
	if !ok {
		return nil, nil
	}
	collectors := ProfitCollectors(usdDeltas)

	revenueUSD := decimal.Zero
	for _, delta := range usdDeltas {
		revenueUSD = revenueUSD.Add(delta)
	}

	gasWei := new(big.Int)
	for _, g := range frontrunGas {
		gasWei.Add(gasWei, g.GasPaid())
	}
	gasWei.Add(gasWei, backrunGas.GasPaid())
	gasUSD := meta.GasPriceUSD(gasWei)

	profitUSD := revenueUSD.Sub(gasUSD).InexactFloat64()
	bribeUSD := gasUSD.InexactFloat64()
	if math.IsInf(profitUSD, 0) || math.IsNaN(profitUSD) || math.IsInf(bribeUSD, 0) {
		return nil, fmt.Errorf("sandwich %s: usd settlement out of float64 range", frontruns[0].Hex())
	}

	log.Printf("[SandwichInspector] block %d: %d-leg sandwich by %s profit=%.2f bribe=%.2f",
		meta.BlockNumber, len(frontruns), eoa.Hex(), profitUSD, bribeUSD)

	header := models.BundleHeader{
		MevTxIndex:         uint64(idx),
		EOA:                eoa,
		MevProfitCollector: collectors,
		TxHash:             frontruns[0],
		MevContract:        mevContract,
		BlockNumber:        meta.BlockNumber,
		MevType:            models.MevSandwich,
		ProfitUSD:          profitUSD,
		BribeUSD:           bribeUSD,
	}

	var flatVictimGas []models.GasDetails
	for _, group := range victimGas {
		flatVictimGas = append(flatVictimGas, group...)
	}

	sandwich := &models.SandwichBundle{
		FrontrunTxHashes:   frontruns,
		FrontrunGasDetails: frontrunGas,
		FrontrunSwaps:      frontrunSwaps,
		VictimTxHashes:     victimTxes,
		VictimSwaps:        victimSwaps,
		VictimGasDetails:   flatVictimGas,
		BackrunTxHash:      backrun,
		BackrunSwaps:       backrunSwaps,
		BackrunGasDetails:  backrunGas,
	}

	return &models.Bundle{Header: header, Data: models.BundleData{Sandwich: sandwich}}, nil
}

// hasPoolOverlap accepts iff some backrun swap trades a pool that both a
// frontrun swap and a victim swap also traded.
func hasPoolOverlap(frontrunSwaps [][]models.Swap, backrunSwaps []models.Swap, victimActions [][][]models.Action) bool {
	frontPools := make(map[common.Address]struct{})
	for _, leg := range frontrunSwaps {
		for _, swap := range leg {
			frontPools[swap.Pool] = struct{}{}
		}
	}

	victimPools := make(map[common.Address]struct{})
	for _, group := range victimActions {
		for _, txActions := range group {
			for _, action := range txActions {
				if !action.IsSwap() {
					continue
				}
				pool := action.ForceSwap().Pool
				if _, ok := frontPools[pool]; ok {
					victimPools[pool] = struct{}{}
				}
			}
		}
	}

	for _, swap := range backrunSwaps {
		if _, inFront := frontPools[swap.Pool]; !inFront {
			continue
		}
		if _, inVictim := victimPools[swap.Pool]; inVictim {
			return true
		}
	}
	return false
}

func filterSwaps(actions []models.Action) []models.Swap {
	swaps := make([]models.Swap, 0, len(actions))
	for _, a := range actions {
		if a.IsSwap() {
			swaps = append(swaps, a.ForceSwap())
		}
	}
	return swaps
}

package inspect

import (
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rawblock/mev-inspect/pkg/models"
)

// PossibleSandwich nominates one candidate bundle: a run of same-actor
// transactions (the frontrun legs plus the closing backrun) and, per leg, the
// victims that landed between it and the next leg. Victims[i] always belongs
// to PossibleFrontruns[i]; the validator relies on that alignment.
type PossibleSandwich struct {
	EOA                 common.Address
	PossibleFrontruns   []common.Hash
	PossibleBackrun     common.Hash
	MevExecutorContract common.Address
	Victims             [][]common.Hash
}

// key renders every field, victim order included, into one string so that
// candidates found by both scans collapse to a single entry.
func (p *PossibleSandwich) key() string {
	var b strings.Builder
	b.Write(p.EOA[:])
	b.Write(p.MevExecutorContract[:])
	b.Write(p.PossibleBackrun[:])
	for _, h := range p.PossibleFrontruns {
		b.Write(h[:])
	}
	for _, group := range p.Victims {
		b.WriteByte('|')
		for _, h := range group {
			b.Write(h[:])
		}
	}
	return b.String()
}

// GetPossibleSandwiches runs the duplicate-sender and duplicate-contract
// scans concurrently over the shared tree, unions their nominations and
// deduplicates structurally. Blocks with fewer than three transactions can
// never hold a sandwich and return nothing.
func GetPossibleSandwiches(tree *models.BlockTree) []PossibleSandwich {
	if len(tree.TxRoots()) < 3 {
		return nil
	}

	var (
		bySender, byContract []PossibleSandwich
		wg                   sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		bySender = scanDuplicateSenders(tree)
	}()
	go func() {
		defer wg.Done()
		byContract = scanDuplicateContracts(tree)
	}()
	wg.Wait()

	unique := make(map[string]PossibleSandwich, len(bySender)+len(byContract))
	for _, c := range append(bySender, byContract...) {
		unique[c.key()] = c
	}

	out := make([]PossibleSandwich, 0, len(unique))
	for _, c := range unique {
		out = append(out, c)
	}
	// Map iteration order is random; re-impose one so enumeration is
	// idempotent across runs.
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// scanDuplicateSenders nominates candidates keyed by EOA: every time a sender
// reappears, the gap since their previous transaction becomes a frontrun leg
// and everything that landed inside it becomes that leg's victims.
func scanDuplicateSenders(tree *models.BlockTree) []PossibleSandwich {
	lastTxBySender := make(map[common.Address]common.Hash)
	possibleVictims := make(map[common.Hash][]common.Hash)
	candidates := make(map[common.Address]*PossibleSandwich)

	for _, root := range tree.TxRoots() {
		if root.IsRevert {
			continue
		}

		sender := root.EOAAddress
		if prev, seen := lastTxBySender[sender]; seen {
			if victims, open := possibleVictims[prev]; open {
				delete(possibleVictims, prev)
				if c, ok := candidates[sender]; ok {
					c.PossibleFrontruns = append(c.PossibleFrontruns, prev)
					c.PossibleBackrun = root.TxHash
					c.Victims = append(c.Victims, victims)
				} else {
					candidates[sender] = &PossibleSandwich{
						EOA:                 sender,
						PossibleFrontruns:   []common.Hash{prev},
						PossibleBackrun:     root.TxHash,
						MevExecutorContract: root.ToAddress,
						Victims:             [][]common.Hash{victims},
					}
				}
			}
		}
		lastTxBySender[sender] = root.TxHash
		possibleVictims[root.TxHash] = []common.Hash{}

		for k := range possibleVictims {
			if k != root.TxHash {
				possibleVictims[k] = append(possibleVictims[k], root.TxHash)
			}
		}
	}

	out := make([]PossibleSandwich, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, *c)
	}
	return out
}

// contractSighting remembers the first leg of a contract-keyed run: the
// candidate's EOA is the frontrun's signer even when later legs are signed by
// a different account.
type contractSighting struct {
	txHash common.Hash
	eoa    common.Address
}

// scanDuplicateContracts is the same walk keyed by the top-level callee
// contract. This is the scan that uncovers Big Mac shapes, where rotating
// EOAs funnel through one executor contract.
func scanDuplicateContracts(tree *models.BlockTree) []PossibleSandwich {
	lastTxByContract := make(map[common.Address]*contractSighting)
	possibleVictims := make(map[common.Hash][]common.Hash)
	candidates := make(map[common.Address]*PossibleSandwich)

	for _, root := range tree.TxRoots() {
		if root.IsRevert {
			continue
		}

		contract := root.ToAddress
		if sighting, seen := lastTxByContract[contract]; seen {
			prev := sighting.txHash
			if victims, open := possibleVictims[prev]; open {
				delete(possibleVictims, prev)
				if c, ok := candidates[contract]; ok {
					c.PossibleFrontruns = append(c.PossibleFrontruns, prev)
					c.PossibleBackrun = root.TxHash
					c.Victims = append(c.Victims, victims)
				} else {
					candidates[contract] = &PossibleSandwich{
						EOA:                 sighting.eoa,
						PossibleFrontruns:   []common.Hash{prev},
						PossibleBackrun:     root.TxHash,
						MevExecutorContract: contract,
						Victims:             [][]common.Hash{victims},
					}
				}
			}
			sighting.txHash = root.TxHash
		} else {
			lastTxByContract[contract] = &contractSighting{txHash: root.TxHash, eoa: root.EOAAddress}
		}
		possibleVictims[root.TxHash] = []common.Hash{}

		for k := range possibleVictims {
			if k != root.TxHash {
				possibleVictims[k] = append(possibleVictims[k], root.TxHash)
			}
		}
	}

	out := make([]PossibleSandwich, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, *c)
	}
	return out
}

package inspect

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rawblock/mev-inspect/pkg/models"
)

func hashOf(s string) common.Hash { return common.HexToHash(s) }

func TestEnumeratorSenderKeyed(t *testing.T) {
	g := gas(80_000, 40_000_000_000, 2_000_000_000)
	roots := []*models.TxRoot{
		txRoot("0x01", eoaA, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x02", eoaB, routerA, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x03", eoaC, routerB, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x04", eoaA, executor, g, false, swapAction(pool1, weth, usdc, "1", "11")),
	}
	tree := models.NewBlockTree(1, roots)

	candidates := GetPossibleSandwiches(tree)
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.EOA != eoaA {
		t.Errorf("EOA = %s, want %s", c.EOA.Hex(), eoaA.Hex())
	}
	if len(c.PossibleFrontruns) != 1 || c.PossibleFrontruns[0] != hashOf("0x01") {
		t.Errorf("Frontruns = %v", c.PossibleFrontruns)
	}
	if c.PossibleBackrun != hashOf("0x04") {
		t.Errorf("Backrun = %s", c.PossibleBackrun.Hex())
	}
	if len(c.Victims) != 1 || !reflect.DeepEqual(c.Victims[0], []common.Hash{hashOf("0x02"), hashOf("0x03")}) {
		t.Errorf("Victims = %v", c.Victims)
	}
}

func TestEnumeratorContractKeyedBigMac(t *testing.T) {
	g := gas(80_000, 40_000_000_000, 2_000_000_000)
	// Rotating EOAs through one executor: only the contract scan sees it.
	roots := []*models.TxRoot{
		txRoot("0x11", eoaA, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x12", eoaB, routerA, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x13", eoaC, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x14", eoaD, routerB, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x15", eoaE, executor, g, false, swapAction(pool1, weth, usdc, "2", "22")),
	}
	tree := models.NewBlockTree(1, roots)

	candidates := GetPossibleSandwiches(tree)
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.EOA != eoaA {
		t.Errorf("Candidate EOA must be the first leg's signer, got %s", c.EOA.Hex())
	}
	if c.MevExecutorContract != executor {
		t.Errorf("Executor = %s, want %s", c.MevExecutorContract.Hex(), executor.Hex())
	}
	wantFront := []common.Hash{hashOf("0x11"), hashOf("0x13")}
	if !reflect.DeepEqual(c.PossibleFrontruns, wantFront) {
		t.Errorf("Frontruns = %v, want %v", c.PossibleFrontruns, wantFront)
	}
	wantVictims := [][]common.Hash{{hashOf("0x12")}, {hashOf("0x14")}}
	if !reflect.DeepEqual(c.Victims, wantVictims) {
		t.Errorf("Victims = %v, want %v", c.Victims, wantVictims)
	}
	if len(c.PossibleFrontruns) != len(c.Victims) {
		t.Error("Victim groups must stay aligned with frontrun legs")
	}
}

func TestEnumeratorDedupAcrossScans(t *testing.T) {
	g := gas(80_000, 40_000_000_000, 2_000_000_000)
	// Same EOA and same executor contract: both scans nominate the identical
	// shape and the union must collapse it.
	roots := []*models.TxRoot{
		txRoot("0x21", eoaA, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x22", eoaB, routerA, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x23", eoaA, executor, g, false, swapAction(pool1, weth, usdc, "1", "11")),
	}
	tree := models.NewBlockTree(1, roots)

	candidates := GetPossibleSandwiches(tree)
	if len(candidates) != 1 {
		t.Errorf("Expected structural dedup to one candidate, got %d", len(candidates))
	}
}

func TestEnumeratorSkipsRevertedRoots(t *testing.T) {
	g := gas(80_000, 40_000_000_000, 2_000_000_000)
	roots := []*models.TxRoot{
		txRoot("0x31", eoaA, executor, g, true, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x32", eoaB, routerA, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x33", eoaA, executor, g, true, swapAction(pool1, weth, usdc, "1", "11")),
	}
	tree := models.NewBlockTree(1, roots)

	if candidates := GetPossibleSandwiches(tree); len(candidates) != 0 {
		t.Errorf("Reverted roots must not anchor candidates, got %d", len(candidates))
	}
}

func TestEnumeratorSubThreshold(t *testing.T) {
	g := gas(80_000, 40_000_000_000, 2_000_000_000)
	roots := []*models.TxRoot{
		txRoot("0x41", eoaA, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x42", eoaA, executor, g, false, swapAction(pool1, weth, usdc, "1", "11")),
	}
	tree := models.NewBlockTree(1, roots)

	if candidates := GetPossibleSandwiches(tree); len(candidates) != 0 {
		t.Errorf("Expected no candidates below 3 transactions, got %d", len(candidates))
	}
}

func TestEnumeratorIdempotent(t *testing.T) {
	g := gas(80_000, 40_000_000_000, 2_000_000_000)
	roots := []*models.TxRoot{
		txRoot("0x51", eoaA, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x52", eoaB, routerA, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x53", eoaC, executor, g, false, swapAction(pool1, usdc, weth, "10", "1")),
		txRoot("0x54", eoaD, routerB, g, false, swapAction(pool1, usdc, weth, "5", "0.5")),
		txRoot("0x55", eoaA, executor, g, false, swapAction(pool1, weth, usdc, "2", "22")),
		txRoot("0x56", eoaB, routerA, g, false, swapAction(pool2, usdc, weth, "5", "0.5")),
	}
	tree := models.NewBlockTree(1, roots)

	first := GetPossibleSandwiches(tree)
	second := GetPossibleSandwiches(tree)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Enumeration is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if len(first) == 0 {
		t.Error("Fixture should produce at least one candidate")
	}
}

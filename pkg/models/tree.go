package models

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownTx is returned when a tree lookup is asked for a hash the block
// does not contain. Candidates are derived from the tree itself, so hitting
// this during inspection is a programmer error and must surface to the caller.
var ErrUnknownTx = errors.New("unknown transaction hash")

// GasDetails captures everything a transaction paid for inclusion.
type GasDetails struct {
	GasUsed          uint64 `json:"gasUsed"`
	PriorityFee      uint64 `json:"priorityFee"` // wei per gas
	BaseFee          uint64 `json:"baseFee"`     // wei per gas
	CoinbaseTransfer uint64 `json:"coinbaseTransfer"`
}

// GasPaid returns (base_fee + priority_fee) * gas_used + coinbase_transfer in
// wei. big.Int keeps the per-bundle sums overflow-free.
func (g GasDetails) GasPaid() *big.Int {
	perGas := new(big.Int).Add(
		new(big.Int).SetUint64(g.BaseFee),
		new(big.Int).SetUint64(g.PriorityFee),
	)
	paid := perGas.Mul(perGas, new(big.Int).SetUint64(g.GasUsed))
	return paid.Add(paid, new(big.Int).SetUint64(g.CoinbaseTransfer))
}

// Node is one entry in a transaction's execution tree. SubActions holds the
// pre-order concatenation of all descendant Data fields; it is derived once
// at tree construction and read-only afterwards.
type Node struct {
	Data       Action
	SubActions []Action
	Children   []*Node
}

// populateSubActions fills SubActions bottom-up. A node's sub-actions are its
// children's data followed, pre-order, by their own sub-actions.
func (n *Node) populateSubActions() {
	n.SubActions = n.SubActions[:0]
	for _, c := range n.Children {
		c.populateSubActions()
		n.SubActions = append(n.SubActions, c.Data)
		n.SubActions = append(n.SubActions, c.SubActions...)
	}
}

// TxRoot is the per-transaction root of one execution tree.
type TxRoot struct {
	TxHash     common.Hash
	Position   int // 0-based index within the block
	Head       *Node
	GasDetails GasDetails
	IsRevert   bool
	EOAAddress common.Address // signer
	ToAddress  common.Address // top-level callee
}

// CollectPredicate is evaluated against every node during Collect. emit
// selects the node's own Data for the output; recurse controls descent into
// the node's children. A node with recurse=false is still considered for
// emit.
type CollectPredicate func(n *Node) (emit, recurse bool)

// SwapOrTransfer is the capture contract the sandwich inspector depends on:
// emit any swap-or-transfer node, descend wherever a sub-action is still a
// swap or transfer.
func SwapOrTransfer(n *Node) (bool, bool) {
	emit := n.Data.IsSwap() || n.Data.IsTransfer()
	recurse := false
	for _, sub := range n.SubActions {
		if sub.IsSwap() || sub.IsTransfer() {
			recurse = true
			break
		}
	}
	return emit, recurse
}

// BlockTree is the per-block forest of transaction roots, immutable once
// built and shared read-only across all inspector work for the block.
type BlockTree struct {
	BlockNumber uint64

	roots  []*TxRoot
	byHash map[common.Hash]*TxRoot
}

// NewBlockTree assembles the forest, derives every node's sub-action list and
// indexes roots by hash. Roots are kept in the order given, which must be
// block position order.
func NewBlockTree(blockNumber uint64, roots []*TxRoot) *BlockTree {
	byHash := make(map[common.Hash]*TxRoot, len(roots))
	for i, r := range roots {
		r.Position = i
		if r.Head != nil {
			r.Head.populateSubActions()
		}
		byHash[r.TxHash] = r
	}
	return &BlockTree{BlockNumber: blockNumber, roots: roots, byHash: byHash}
}

// TxRoots returns the roots in block position order.
func (t *BlockTree) TxRoots() []*TxRoot { return t.roots }

// GetRoot returns the root for h or ErrUnknownTx.
func (t *BlockTree) GetRoot(h common.Hash) (*TxRoot, error) {
	r, ok := t.byHash[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTx, h.Hex())
	}
	return r, nil
}

// GetGasDetails returns the gas details for h or ErrUnknownTx.
func (t *BlockTree) GetGasDetails(h common.Hash) (GasDetails, error) {
	r, err := t.GetRoot(h)
	if err != nil {
		return GasDetails{}, err
	}
	return r.GasDetails, nil
}

// Collect walks the transaction h pre-order and returns the Data of every
// node the predicate emits. Traversal order is deterministic: a node is
// considered before its children, children in declaration order.
func (t *BlockTree) Collect(h common.Hash, pred CollectPredicate) ([]Action, error) {
	r, err := t.GetRoot(h)
	if err != nil {
		return nil, err
	}
	var out []Action
	collectNode(r.Head, pred, &out)
	return out, nil
}

func collectNode(n *Node, pred CollectPredicate, out *[]Action) {
	if n == nil {
		return
	}
	emit, recurse := pred(n)
	if emit {
		*out = append(*out, n.Data)
	}
	if !recurse {
		return
	}
	for _, c := range n.Children {
		collectNode(c, pred, out)
	}
}

package models

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ActionKind discriminates the normalized action variants produced by the
// classifier. The inspector only reasons about swaps and transfers; every
// other classified call is carried as Unclassified so tree shape is preserved.
type ActionKind int

const (
	ActionUnclassified ActionKind = iota
	ActionSwap
	ActionTransfer
)

func (k ActionKind) String() string {
	switch k {
	case ActionSwap:
		return "swap"
	case ActionTransfer:
		return "transfer"
	default:
		return "unclassified"
	}
}

// Swap is a normalized DEX trade against a single pool. Amounts are
// token-normalized (decimals already applied). AmountIn and AmountOut are
// positive for any swap that did not revert, and TokenIn != TokenOut.
type Swap struct {
	Pool      common.Address  `json:"pool"`
	TokenIn   common.Address  `json:"tokenIn"`
	TokenOut  common.Address  `json:"tokenOut"`
	AmountIn  decimal.Decimal `json:"amountIn"`
	AmountOut decimal.Decimal `json:"amountOut"`
}

// Transfer is a normalized token movement between two accounts.
type Transfer struct {
	From   common.Address  `json:"from"`
	To     common.Address  `json:"to"`
	Token  common.Address  `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

// Action is the tagged variant held by every tree node. Exactly one of the
// payload pointers matching Kind is non-nil.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Swap     *Swap      `json:"swap,omitempty"`
	Transfer *Transfer  `json:"transfer,omitempty"`
}

func NewSwapAction(s Swap) Action {
	return Action{Kind: ActionSwap, Swap: &s}
}

func NewTransferAction(t Transfer) Action {
	return Action{Kind: ActionTransfer, Transfer: &t}
}

func NewUnclassifiedAction() Action {
	return Action{Kind: ActionUnclassified}
}

func (a Action) IsSwap() bool { return a.Kind == ActionSwap }

func (a Action) IsTransfer() bool { return a.Kind == ActionTransfer }

// AsSwap returns the swap payload when the action is a swap.
func (a Action) AsSwap() (Swap, bool) {
	if a.Kind == ActionSwap && a.Swap != nil {
		return *a.Swap, true
	}
	return Swap{}, false
}

// AsTransfer returns the transfer payload when the action is a transfer.
func (a Action) AsTransfer() (Transfer, bool) {
	if a.Kind == ActionTransfer && a.Transfer != nil {
		return *a.Transfer, true
	}
	return Transfer{}, false
}

// ForceSwap projects the swap payload and panics on any other variant.
// Callers must gate on IsSwap first; the panic marks a classifier or
// inspector logic error, never a data condition.
func (a Action) ForceSwap() Swap {
	s, ok := a.AsSwap()
	if !ok {
		panic(fmt.Sprintf("ForceSwap on %s action", a.Kind))
	}
	return s
}

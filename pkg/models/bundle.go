package models

import "github.com/ethereum/go-ethereum/common"

// MevType labels the strategy a bundle was classified as.
type MevType string

const (
	MevSandwich MevType = "sandwich"
	MevUnknown  MevType = "unknown"
)

// BundleHeader is the inspector-agnostic summary of one detected bundle.
// All USD figures are finite float64, converted from exact decimals as the
// final step of scoring.
type BundleHeader struct {
	MevTxIndex         uint64           `json:"mevTxIndex"`
	EOA                common.Address   `json:"eoa"`
	MevProfitCollector []common.Address `json:"mevProfitCollector"`
	TxHash             common.Hash      `json:"txHash"`
	MevContract        common.Address   `json:"mevContract"`
	BlockNumber        uint64           `json:"blockNumber"`
	MevType            MevType          `json:"mevType"`
	ProfitUSD          float64          `json:"profitUsd"`
	BribeUSD           float64          `json:"bribeUsd"`
}

// SandwichBundle carries the full evidence for one sandwich: every attacker
// leg, every victim grouped per frontrun, and the gas each side paid.
// Frontrun slices are index-aligned: FrontrunSwaps[i] and
// FrontrunGasDetails[i] belong to FrontrunTxHashes[i], and VictimTxHashes[i]
// are the transactions landed between frontrun i and the next attacker leg.
type SandwichBundle struct {
	FrontrunTxHashes   []common.Hash   `json:"frontrunTxHashes"`
	FrontrunGasDetails []GasDetails    `json:"frontrunGasDetails"`
	FrontrunSwaps      [][]Swap        `json:"frontrunSwaps"`
	VictimTxHashes     [][]common.Hash `json:"victimTxHashes"`
	VictimSwaps        [][]Swap        `json:"victimSwaps"`
	VictimGasDetails   []GasDetails    `json:"victimGasDetails"`
	BackrunTxHash      common.Hash     `json:"backrunTxHash"`
	BackrunSwaps       []Swap          `json:"backrunSwaps"`
	BackrunGasDetails  GasDetails      `json:"backrunGasDetails"`
}

// BundleData is the typed payload union. Exactly one field matching the
// header's MevType is non-nil.
type BundleData struct {
	Sandwich *SandwichBundle `json:"sandwich,omitempty"`
}

// Bundle pairs a header with its payload; this is the unit every inspector
// emits and the composer consumes.
type Bundle struct {
	Header BundleHeader `json:"header"`
	Data   BundleData   `json:"data"`
}

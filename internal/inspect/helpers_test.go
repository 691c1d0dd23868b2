package inspect

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/rawblock/mev-inspect/internal/pricing"
	"github.com/rawblock/mev-inspect/pkg/models"
)

// Shared fixture builders for the inspector tests. Trees are assembled the
// way the classifier emits them: one root per transaction, swap and transfer
// actions as children of an unclassified top-level call.

var (
	weth = models.WETHAddress
	usdc = models.USDCAddress

	eoaA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	eoaB = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	eoaC = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	eoaD = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	eoaE = common.HexToAddress("0x00000000000000000000000000000000000000a5")

	executor = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	routerA  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	routerB  = common.HexToAddress("0x00000000000000000000000000000000000000b2")

	pool1 = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	pool2 = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	pool3 = common.HexToAddress("0x00000000000000000000000000000000000000f3")
)

func swapAction(pool, tokenIn, tokenOut common.Address, amountIn, amountOut string) models.Action {
	return models.NewSwapAction(models.Swap{
		Pool:      pool,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  decimal.RequireFromString(amountIn),
		AmountOut: decimal.RequireFromString(amountOut),
	})
}

func transferAction(from, to, token common.Address, amount string) models.Action {
	return models.NewTransferAction(models.Transfer{
		From:   from,
		To:     to,
		Token:  token,
		Amount: decimal.RequireFromString(amount),
	})
}

func gas(gasUsed, baseFee, priorityFee uint64) models.GasDetails {
	return models.GasDetails{GasUsed: gasUsed, BaseFee: baseFee, PriorityFee: priorityFee}
}

func txRoot(hash string, eoa, to common.Address, gasDetails models.GasDetails, revert bool, actions ...models.Action) *models.TxRoot {
	head := &models.Node{Data: models.NewUnclassifiedAction()}
	for _, a := range actions {
		head.Children = append(head.Children, &models.Node{Data: a})
	}
	return &models.TxRoot{
		TxHash:     common.HexToHash(hash),
		Head:       head,
		GasDetails: gasDetails,
		IsRevert:   revert,
		EOAAddress: eoa,
		ToAddress:  to,
	}
}

// metadataWithWETHQuote prices WETH/USDC at tx position 0 and nothing else.
func metadataWithWETHQuote(blockNumber uint64, txCount int, wethPrice string) *pricing.Metadata {
	quotes := make([]map[pricing.Pair]decimal.Decimal, txCount)
	quotes[0] = map[pricing.Pair]decimal.Decimal{
		{Token: weth, Quote: usdc}: decimal.RequireFromString(wethPrice),
	}
	return &pricing.Metadata{
		BlockNumber: blockNumber,
		ETHPriceUSD: decimal.RequireFromString("2000"),
		DexQuotes:   pricing.NewDexQuotes(quotes),
	}
}

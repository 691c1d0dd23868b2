package chain

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps the Ethereum JSON-RPC connection the engine reads chain state
// through. Trace acquisition and classification live upstream; this client
// only answers the questions the scanner needs (tip height, block identity).
type Client struct {
	RPC    *ethclient.Client
	Config Config
}

type Config struct {
	URL string
}

func NewClient(cfg Config) (*Client, error) {
	log.Printf("Connecting to Ethereum RPC at %s...", cfg.URL)
	rpc, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Verify connection
	tip, err := rpc.BlockNumber(context.Background())
	if err != nil {
		rpc.Close()
		return nil, err
	}
	log.Printf("Connected to Ethereum node. Current chain tip: %d", tip)

	return &Client{RPC: rpc, Config: cfg}, nil
}

func (c *Client) Close() {
	c.RPC.Close()
}

// ChainTip returns the latest block number the node knows about.
func (c *Client) ChainTip(ctx context.Context) (uint64, error) {
	return c.RPC.BlockNumber(ctx)
}

// BlockTxCount returns how many transactions a block holds; the scanner uses
// it to skip blocks that cannot contain a sandwich before building a tree.
func (c *Client) BlockTxCount(ctx context.Context, blockNumber uint64) (uint, error) {
	block, err := c.RPC.BlockByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", blockNumber, err)
	}
	return uint(len(block.Transactions())), nil
}

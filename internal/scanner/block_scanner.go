package scanner

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/rawblock/mev-inspect/internal/chain"
	"github.com/rawblock/mev-inspect/internal/db"
	"github.com/rawblock/mev-inspect/internal/inspect"
	"github.com/rawblock/mev-inspect/internal/metrics"
	"github.com/rawblock/mev-inspect/internal/pricing"
	"github.com/rawblock/mev-inspect/pkg/models"
)

// TreeProvider supplies the classified per-block inputs the inspectors
// consume: the action tree and the block metadata with DEX quotes. The
// classifier and quote construction behind it are authoritative; the scanner
// never second-guesses them.
type TreeProvider interface {
	BlockData(ctx context.Context, blockNumber uint64) (*models.BlockTree, *pricing.Metadata, error)
}

// BlockScanner iterates confirmed blocks and runs every registered inspector
// over each one, persisting surviving bundles to the database. This provides
// the retroactive coverage a mempool listener can never give.
type BlockScanner struct {
	provider    TreeProvider
	chainClient *chain.Client // Optional; enables the cheap tx-count pre-filter
	dbStore     *db.PostgresStore
	inspectors  []inspect.Inspector
	alertFunc   func(alert BundleAlert) // Optional broadcast callback

	// Progress tracking (atomic for safe concurrent reads)
	currentBlock atomic.Uint64
	totalBlocks  atomic.Int64
	totalBundles atomic.Int64
	isRunning    atomic.Bool
}

// BundleAlert is the real-time notification emitted when a bundle is detected
type BundleAlert struct {
	BlockNumber uint64  `json:"blockNumber"`
	TxHash      string  `json:"txHash"`
	EOA         string  `json:"eoa"`
	MevContract string  `json:"mevContract"`
	MevType     string  `json:"mevType"`
	ProfitUSD   float64 `json:"profitUsd"`
	BribeUSD    float64 `json:"bribeUsd"`
	Timestamp   string  `json:"timestamp"`
}

// ScanProgress represents the scanner's current state for the API
type ScanProgress struct {
	IsRunning    bool   `json:"isRunning"`
	CurrentBlock uint64 `json:"currentBlock"`
	TotalBlocks  int64  `json:"totalBlocks"`
	TotalBundles int64  `json:"totalBundles"`
}

func NewBlockScanner(provider TreeProvider, chainClient *chain.Client, dbStore *db.PostgresStore, inspectors []inspect.Inspector, alertFunc func(BundleAlert)) *BlockScanner {
	return &BlockScanner{
		provider:    provider,
		chainClient: chainClient,
		dbStore:     dbStore,
		inspectors:  inspectors,
		alertFunc:   alertFunc,
	}
}

// GetProgress returns the current scanning progress (thread-safe)
func (s *BlockScanner) GetProgress() ScanProgress {
	return ScanProgress{
		IsRunning:    s.isRunning.Load(),
		CurrentBlock: s.currentBlock.Load(),
		TotalBlocks:  s.totalBlocks.Load(),
		TotalBundles: s.totalBundles.Load(),
	}
}

// ScanRange processes a block range asynchronously, running every inspector
// against each block and persisting detections.
func (s *BlockScanner) ScanRange(ctx context.Context, startBlock, endBlock uint64) {
	if s.isRunning.Load() {
		log.Println("[BlockScanner] Scan already in progress, ignoring duplicate request")
		return
	}

	s.isRunning.Store(true)
	s.totalBlocks.Store(0)
	s.totalBundles.Store(0)

	go func() {
		defer s.isRunning.Store(false)

		log.Printf("[BlockScanner] Starting historical scan: blocks %d → %d (%d blocks)",
			startBlock, endBlock, endBlock-startBlock+1)

		for block := startBlock; block <= endBlock; block++ {
			select {
			case <-ctx.Done():
				log.Printf("[BlockScanner] Scan cancelled at block %d", block)
				return
			default:
			}

			s.currentBlock.Store(block)
			s.scanBlock(ctx, block)
			s.totalBlocks.Add(1)

			// Log progress every 100 blocks
			scanned := s.totalBlocks.Load()
			if scanned%100 == 0 && scanned > 0 {
				log.Printf("[BlockScanner] Progress: block %d | scanned %d blocks | found %d bundles",
					block, scanned, s.totalBundles.Load())
			}
		}

		log.Printf("[BlockScanner] Scan complete: %d blocks analyzed, %d bundles detected",
			s.totalBlocks.Load(), s.totalBundles.Load())
	}()
}

// scanBlock builds one block's inputs and runs the inspector set over them
func (s *BlockScanner) scanBlock(ctx context.Context, blockNumber uint64) {
	// Fewer than 3 transactions can never hold a sandwich; a tx count from
	// the node is far cheaper than building a classified tree.
	if s.chainClient != nil {
		txCount, err := s.chainClient.BlockTxCount(ctx, blockNumber)
		if err != nil {
			log.Printf("[BlockScanner] Error counting txs in block %d: %v", blockNumber, err)
		} else if txCount < 3 {
			return
		}
	}

	tree, meta, err := s.provider.BlockData(ctx, blockNumber)
	if err != nil {
		log.Printf("[BlockScanner] Error loading block %d: %v", blockNumber, err)
		return
	}

	bundles, err := inspect.RunInspectors(ctx, s.inspectors, tree, meta)
	if err != nil {
		log.Printf("[BlockScanner] Inspector error at block %d: %v", blockNumber, err)
		return
	}
	if len(bundles) == 0 {
		return
	}

	for _, bundle := range bundles {
		if s.dbStore != nil {
			if err := s.dbStore.SaveBundle(ctx, bundle); err != nil {
				log.Printf("[BlockScanner] DB persist error at block %d tx %s: %v",
					blockNumber, bundle.Header.TxHash.Hex(), err)
			}
		}
		s.totalBundles.Add(1)

		if s.alertFunc != nil {
			s.alertFunc(BundleAlert{
				BlockNumber: bundle.Header.BlockNumber,
				TxHash:      bundle.Header.TxHash.Hex(),
				EOA:         bundle.Header.EOA.Hex(),
				MevContract: bundle.Header.MevContract.Hex(),
				MevType:     string(bundle.Header.MevType),
				ProfitUSD:   bundle.Header.ProfitUSD,
				BribeUSD:    bundle.Header.BribeUSD,
				Timestamp:   time.Now().Format(time.RFC3339),
			})
		}
	}

	if s.dbStore != nil {
		summary := metrics.Summarize(bundles, 0)
		if err := s.dbStore.SaveBlockSummary(ctx, blockNumber, summary.BundleCount, summary.NetProfitUSD, summary.TotalBribeUSD); err != nil {
			log.Printf("[BlockScanner] DB summary error at block %d: %v", blockNumber, err)
		}
	}
}

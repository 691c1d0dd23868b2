package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/mev-inspect/pkg/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for MEV bundle store")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("MEV bundle schema initialized")
	return nil
}

// SaveBundle persists one detected bundle: the header columns for querying
// plus the full typed payload as JSONB evidence.
func (s *PostgresStore) SaveBundle(ctx context.Context, bundle models.Bundle) error {
	payload, err := json.Marshal(bundle.Data)
	if err != nil {
		return fmt.Errorf("failed to encode bundle payload: %v", err)
	}

	sql := `
		INSERT INTO mev_bundles
		(id, block_number, mev_tx_index, tx_hash, eoa, mev_contract, mev_type, profit_usd, bribe_usd, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (block_number, tx_hash, mev_type) DO UPDATE
		SET profit_usd = EXCLUDED.profit_usd, bribe_usd = EXCLUDED.bribe_usd, payload = EXCLUDED.payload;
	`
	_, err = s.pool.Exec(ctx, sql,
		uuid.New().String(),
		bundle.Header.BlockNumber,
		bundle.Header.MevTxIndex,
		bundle.Header.TxHash.Hex(),
		bundle.Header.EOA.Hex(),
		bundle.Header.MevContract.Hex(),
		string(bundle.Header.MevType),
		bundle.Header.ProfitUSD,
		bundle.Header.BribeUSD,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert mev_bundles: %v", err)
	}
	return nil
}

// SaveBlockSummary upserts the per-block aggregate row the dashboard reads.
func (s *PostgresStore) SaveBlockSummary(ctx context.Context, blockNumber uint64, bundleCount int, profitUSD, bribeUSD float64) error {
	sql := `
		INSERT INTO block_summaries (block_number, bundle_count, profit_usd, bribe_usd)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (block_number) DO UPDATE
		SET bundle_count = EXCLUDED.bundle_count,
		    profit_usd = EXCLUDED.profit_usd,
		    bribe_usd = EXCLUDED.bribe_usd,
		    scanned_at = NOW();
	`
	_, err := s.pool.Exec(ctx, sql, blockNumber, bundleCount, profitUSD, bribeUSD)
	return err
}

// BundleRecord is the flattened row shape served by the API.
type BundleRecord struct {
	ID          string          `json:"id"`
	BlockNumber uint64          `json:"blockNumber"`
	MevTxIndex  uint64          `json:"mevTxIndex"`
	TxHash      string          `json:"txHash"`
	EOA         string          `json:"eoa"`
	MevContract string          `json:"mevContract"`
	MevType     string          `json:"mevType"`
	ProfitUSD   float64         `json:"profitUsd"`
	BribeUSD    float64         `json:"bribeUsd"`
	Payload     json.RawMessage `json:"payload"`
}

// ToBundle reconstructs the typed bundle from a stored row.
func (b BundleRecord) ToBundle() (models.Bundle, error) {
	var data models.BundleData
	if err := json.Unmarshal(b.Payload, &data); err != nil {
		return models.Bundle{}, fmt.Errorf("failed to decode bundle payload %s: %v", b.ID, err)
	}
	return models.Bundle{
		Header: models.BundleHeader{
			MevTxIndex:  b.MevTxIndex,
			EOA:         common.HexToAddress(b.EOA),
			TxHash:      common.HexToHash(b.TxHash),
			MevContract: common.HexToAddress(b.MevContract),
			BlockNumber: b.BlockNumber,
			MevType:     models.MevType(b.MevType),
			ProfitUSD:   b.ProfitUSD,
			BribeUSD:    b.BribeUSD,
		},
		Data: data,
	}, nil
}

// GetBundles returns bundles newest-block-first, optionally filtered by MEV
// type, with simple page/limit pagination.
func (s *PostgresStore) GetBundles(ctx context.Context, mevType string, page, limit int) ([]BundleRecord, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var totalCount int
	countSQL := `SELECT COUNT(*) FROM mev_bundles WHERE ($1 = '' OR mev_type = $1)`
	if err := s.pool.QueryRow(ctx, countSQL, mevType).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	dataSQL := `
		SELECT id, block_number, mev_tx_index, tx_hash, eoa, mev_contract, mev_type, profit_usd, bribe_usd, payload
		FROM mev_bundles
		WHERE ($1 = '' OR mev_type = $1)
		ORDER BY block_number DESC, mev_tx_index ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, dataSQL, mevType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bundles []BundleRecord
	for rows.Next() {
		var b BundleRecord
		if err := rows.Scan(&b.ID, &b.BlockNumber, &b.MevTxIndex, &b.TxHash, &b.EOA,
			&b.MevContract, &b.MevType, &b.ProfitUSD, &b.BribeUSD, &b.Payload); err != nil {
			return nil, 0, err
		}
		bundles = append(bundles, b)
	}
	if bundles == nil {
		bundles = []BundleRecord{}
	}
	return bundles, totalCount, nil
}

// GetBlockBundles returns every bundle detected in one block, in emission
// order.
func (s *PostgresStore) GetBlockBundles(ctx context.Context, blockNumber uint64) ([]BundleRecord, error) {
	sql := `
		SELECT id, block_number, mev_tx_index, tx_hash, eoa, mev_contract, mev_type, profit_usd, bribe_usd, payload
		FROM mev_bundles
		WHERE block_number = $1
		ORDER BY mev_tx_index ASC
	`
	rows, err := s.pool.Query(ctx, sql, blockNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bundles []BundleRecord
	for rows.Next() {
		var b BundleRecord
		if err := rows.Scan(&b.ID, &b.BlockNumber, &b.MevTxIndex, &b.TxHash, &b.EOA,
			&b.MevContract, &b.MevType, &b.ProfitUSD, &b.BribeUSD, &b.Payload); err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	if bundles == nil {
		bundles = []BundleRecord{}
	}
	return bundles, nil
}

// GetPool exposes the connection pool for other subsystems
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

package main

import (
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rawblock/mev-inspect/internal/api"
	"github.com/rawblock/mev-inspect/internal/chain"
	"github.com/rawblock/mev-inspect/internal/db"
	"github.com/rawblock/mev-inspect/internal/inspect"
	"github.com/rawblock/mev-inspect/internal/scanner"
	"github.com/rawblock/mev-inspect/pkg/models"
)

func main() {
	log.Println("Starting RawBlock MEV Inspection Engine (Microservice: eth-mev-bundle-analytics)...")
	log.Println("Initializing sandwich inspector and pricing oracle bindings...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────

	dbUrl := requireEnv("DATABASE_URL")

	dbConn, err := db.Connect(dbUrl)
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting bundles. Error: %v", err)
		dbConn = nil
	} else {
		defer dbConn.Close()
		if err := dbConn.InitSchema(); err != nil {
			log.Printf("Warning: DB schema init failed: %v", err)
		}
	}

	ethURL := getEnvOrDefault("ETH_RPC_URL", "http://localhost:8545")
	chainClient, err := chain.NewClient(chain.Config{URL: ethURL})
	if err != nil {
		log.Printf("Warning: Failed to connect to Ethereum RPC: %v", err)
		chainClient = nil
	} else {
		defer chainClient.Close()
	}

	// The quote token every USD figure is denominated in. USDC unless
	// overridden.
	quoteToken := models.USDCAddress
	if raw := os.Getenv("QUOTE_TOKEN"); raw != "" {
		if !common.IsHexAddress(raw) {
			log.Fatalf("FATAL: QUOTE_TOKEN %q is not a valid hex address", raw)
		}
		quoteToken = common.HexToAddress(raw)
	}
	inspectors := []inspect.Inspector{
		inspect.NewSandwichInspector(quoteToken),
	}
	log.Printf("Registered %d inspector(s), quote token %s", len(inspectors), quoteToken.Hex())

	// Setup WebSocket Hub
	wsHub := api.NewHub()
	go wsHub.Run()

	// The block scanner needs a classified trace source. That collaborator
	// registers itself as a TreeProvider; without one the engine serves the
	// API and websocket surfaces over already-persisted bundles.
	var blockScanner *scanner.BlockScanner
	if provider := treeProvider(); provider != nil {
		blockScanner = scanner.NewBlockScanner(provider, chainClient, dbConn, inspectors, api.BroadcastBundleAlert(wsHub))
	} else {
		log.Println("WARNING: classified trace source not configured — engine running in API-only mode (no scanner)")
	}

	// Setup the Gin Router
	r := api.SetupRouter(dbConn, chainClient, wsHub, blockScanner)

	port := getEnvOrDefault("PORT", "5340")

	// Start the server
	log.Printf("Engine running on :%s (API Node: eth-mev-bundle-analytics)\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// treeProvider resolves the classified trace source. The classifier ships as
// a separate service; until it is linked in, scans are unavailable.
func treeProvider() scanner.TreeProvider {
	return nil
}

// requireEnv reads a required environment variable and exits if it is not set.
// This prevents the binary from starting with missing critical configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

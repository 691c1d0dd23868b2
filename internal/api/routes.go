package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/mev-inspect/internal/chain"
	"github.com/rawblock/mev-inspect/internal/db"
	"github.com/rawblock/mev-inspect/internal/metrics"
	"github.com/rawblock/mev-inspect/internal/scanner"
	"github.com/rawblock/mev-inspect/pkg/models"
)

// maxScanBlocks caps the block range for a single scan job to prevent
// runaway resource exhaustion from unconstrained requests.
const maxScanBlocks uint64 = 50_000

type APIHandler struct {
	dbStore      *db.PostgresStore
	chainClient  *chain.Client
	wsHub        *Hub
	blockScanner *scanner.BlockScanner
}

func SetupRouter(dbStore *db.PostgresStore, chainClient *chain.Client, wsHub *Hub, blockScanner *scanner.BlockScanner) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://dash.example.com
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore:      dbStore,
		chainClient:  chainClient,
		wsHub:        wsHub,
		blockScanner: blockScanner,
	}

	limiter := NewRateLimiter(120, 30)

	v1 := r.Group("/api/v1", limiter.Middleware())
	{
		v1.GET("/health", handler.getHealth)
		v1.GET("/bundles", handler.getBundles)
		v1.GET("/blocks/:number/bundles", handler.getBlockBundles)
		v1.GET("/blocks/:number/summary", handler.getBlockSummary)
		v1.GET("/scan/progress", handler.getScanProgress)
		v1.POST("/scan", AuthMiddleware(), handler.startScan)
	}

	r.GET("/ws", wsHub.Subscribe)

	return r
}

func (h *APIHandler) getHealth(c *gin.Context) {
	status := gin.H{
		"status":   "ok",
		"database": h.dbStore != nil,
		"chainRPC": h.chainClient != nil,
	}
	if h.chainClient != nil {
		if tip, err := h.chainClient.ChainTip(c.Request.Context()); err == nil {
			status["chainTip"] = tip
		}
	}
	c.JSON(http.StatusOK, status)
}

func (h *APIHandler) getBundles(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}

	mevType := c.Query("type")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	bundles, total, err := h.dbStore.GetBundles(c.Request.Context(), mevType, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bundles": bundles,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *APIHandler) getBlockBundles(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}

	blockNumber, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block number"})
		return
	}

	bundles, err := h.dbStore.GetBlockBundles(c.Request.Context(), blockNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blockNumber": blockNumber, "bundles": bundles})
}

// maxTopPools bounds the pool leaderboard in block summaries.
const maxTopPools = 10

func (h *APIHandler) getBlockSummary(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}

	blockNumber, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block number"})
		return
	}

	records, err := h.dbStore.GetBlockBundles(c.Request.Context(), blockNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	bundles := make([]models.Bundle, 0, len(records))
	for _, record := range records {
		bundle, err := record.ToBundle()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		bundles = append(bundles, bundle)
	}

	c.JSON(http.StatusOK, gin.H{
		"blockNumber": blockNumber,
		"summary":     metrics.Summarize(bundles, maxTopPools),
	})
}

func (h *APIHandler) getScanProgress(c *gin.Context) {
	if h.blockScanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scanner unavailable (no tree provider configured)"})
		return
	}
	c.JSON(http.StatusOK, h.blockScanner.GetProgress())
}

type scanRequest struct {
	StartBlock uint64 `json:"startBlock" binding:"required"`
	EndBlock   uint64 `json:"endBlock" binding:"required"`
}

func (h *APIHandler) startScan(c *gin.Context) {
	if h.blockScanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scanner unavailable (no tree provider configured)"})
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EndBlock < req.StartBlock {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endBlock must be >= startBlock"})
		return
	}
	if req.EndBlock-req.StartBlock+1 > maxScanBlocks {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Block range too large",
			"maxBlocks": maxScanBlocks,
		})
		return
	}

	// The scan outlives the HTTP request; it is cancelled by process shutdown,
	// not by the client going away.
	h.blockScanner.ScanRange(context.Background(), req.StartBlock, req.EndBlock)
	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Scan started",
		"startBlock": req.StartBlock,
		"endBlock":   req.EndBlock,
	})
}

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"testimonials/internal/config"
	"testimonials/internal/generation"
	"testimonials/internal/models"

	"github.com/gin-gonic/gin"
)

// Index is the health check.
func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "Shopify AI Testimonial Generator is running!",
		"endpoints": gin.H{
			"generate":    "POST /api/generate?productId=YOUR_PRODUCT_ID",
			"generateAll": "POST /api/generate-all",
			"webhook":     "POST /api/webhook",
			"models":      "GET /api/models",
			"history":     "GET /api/history",
			"debug":       "GET /api/debug",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type ModelsHandler struct {
	catalog generation.Catalog
}

func NewModelsHandler(catalog generation.Catalog) *ModelsHandler {
	return &ModelsHandler{catalog: catalog}
}

// List reports the free models in the OpenRouter catalog, largest context
// window first.
func (h *ModelsHandler) List(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing OPENROUTER_API_KEY"})
		return
	}

	entries, err := h.catalog.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	free := generation.FreeEntries(entries)
	out := make([]gin.H, 0, len(free))
	for _, m := range free {
		out = append(out, gin.H{
			"id":             m.ID,
			"name":           m.Name,
			"context_length": m.ContextLength,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_models":      len(entries),
		"free_models_count": len(free),
		"free_models":       out,
	})
}

type DebugHandler struct {
	config *config.Config
}

func NewDebugHandler(cfg *config.Config) *DebugHandler {
	return &DebugHandler{config: cfg}
}

// Show reports which secrets are present without revealing them.
func (h *DebugHandler) Show(c *gin.Context) {
	cfg := h.config
	c.JSON(http.StatusOK, gin.H{
		"status": "Debug Info",
		"environment_variables": gin.H{
			"OPENROUTER_API_KEY":   maskedStatus(cfg.OpenRouterAPIKey, true),
			"GEMINI_API_KEY":       maskedStatus(cfg.GeminiAPIKey, true),
			"SHOPIFY_STORE":        maskedStatus(cfg.ShopifyStore, false),
			"SHOPIFY_ACCESS_TOKEN": maskedStatus(cfg.ShopifyAccessToken, true),
			"DATABASE_URL":         presence(cfg.DatabaseURL),
			"REDIS_URL":            presence(cfg.RedisURL),
		},
		"candidate_strategy": cfg.CandidateStrategy,
		"webhook_mode":       cfg.WebhookMode,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

func maskedStatus(value string, secret bool) string {
	if value == "" {
		return "❌ MISSING"
	}
	if secret {
		value = config.Mask(value)
	}
	return "✅ Set (" + value + ")"
}

func presence(value string) string {
	if value == "" {
		return "not set"
	}
	return "set"
}

// HistoryLister is implemented by database.Journal.
type HistoryLister interface {
	List(ctx context.Context, productID int64, limit int) ([]models.Generation, error)
}

type HistoryHandler struct {
	journal HistoryLister
}

func NewHistoryHandler(journal HistoryLister) *HistoryHandler {
	return &HistoryHandler{journal: journal}
}

func (h *HistoryHandler) List(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Generation history requires DATABASE_URL"})
		return
	}

	var productID int64
	if v := c.Query("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id must be a positive integer"})
			return
		}
		productID = id
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	entries, err := h.journal.List(c.Request.Context(), productID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  entries,
		"count": len(entries),
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"testimonials/internal/generation"
	"testimonials/internal/logger"
	"testimonials/internal/models"
	"testimonials/internal/services/shopify"
	"testimonials/internal/services/testimonial"

	"github.com/gin-gonic/gin"
)

const generateUsage = "/api/generate?productId=YOUR_PRODUCT_ID"

// TestimonialService is implemented by testimonial.Service.
type TestimonialService interface {
	GenerateForProduct(ctx context.Context, productID int64, source models.GenerationSource) (*testimonial.Outcome, error)
	GenerateForPayload(ctx context.Context, product shopify.Product, source models.GenerationSource) (*testimonial.Outcome, error)
	GenerateAll(ctx context.Context, limit int, pageInfo string) (*testimonial.BulkReport, error)
}

type TestimonialHandler struct {
	service TestimonialService
	logger  *logger.Logger
}

func NewTestimonialHandler(service TestimonialService, logger *logger.Logger) *TestimonialHandler {
	return &TestimonialHandler{
		service: service,
		logger:  logger,
	}
}

// Generate handles GET and POST /api/generate. The id comes from the
// productId query parameter, overridden by a JSON body field of that name.
func (h *TestimonialHandler) Generate(c *gin.Context) {
	raw := c.Query("productId")
	if fromBody := productIDFromBody(c); fromBody != "" {
		raw = fromBody
	}

	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "productId is required",
			"usage": generateUsage,
		})
		return
	}

	productID, err := testimonial.ParseProductID(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"usage": generateUsage,
		})
		return
	}

	h.logger.Info("Generating testimonial for product: %d", productID)

	outcome, err := h.service.GenerateForProduct(c.Request.Context(), productID, models.SourceSingle)
	if err != nil {
		respondGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"productId":    outcome.ProductID,
		"productTitle": outcome.Title,
		"testimonial":  outcome.Testimonial,
		"backend":      outcome.Backend,
		"model":        outcome.Model,
		"created":      outcome.Created,
	})
}

// GenerateAll handles POST /api/generate-all for one page of products.
func (h *TestimonialHandler) GenerateAll(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > testimonial.MaxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 250"})
			return
		}
		limit = n
	}

	report, err := h.service.GenerateAll(c.Request.Context(), limit, c.Query("page_info"))
	if err != nil {
		h.logger.Error("Bulk Error: %v", err)
		respondGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func productIDFromBody(c *gin.Context) string {
	if c.Request.Method != http.MethodPost || c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	var body struct {
		ProductID json.RawMessage `json:"productId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.ProductID) == 0 {
		return ""
	}
	s := strings.TrimSpace(string(body.ProductID))
	if s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

func respondGenerationError(c *gin.Context, err error) {
	var exhausted *generation.ExhaustedError
	if errors.As(err, &exhausted) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Failed to generate testimonial",
			"attempts": exhausted.Attempts,
		})
		return
	}

	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"details": apiErr.Body,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

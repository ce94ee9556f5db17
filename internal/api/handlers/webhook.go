package handlers

import (
	"context"
	"errors"
	"net/http"

	"testimonials/internal/events"
	"testimonials/internal/generation"
	"testimonials/internal/logger"
	"testimonials/internal/models"
	"testimonials/internal/services/shopify"

	"github.com/gin-gonic/gin"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// WebhookHandler answers Shopify product webhooks. Every response is 200 so
// Shopify does not retry; the body carries the real outcome.
type WebhookHandler struct {
	service   TestimonialService
	publisher EventPublisher
	logger    *logger.Logger
}

// NewWebhookHandler generates inline, or enqueues when publisher is non-nil.
func NewWebhookHandler(service TestimonialService, publisher EventPublisher, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:   service,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	var payload shopify.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "No product data received"})
		return
	}

	h.logger.Info("Webhook received for product: %s (ID: %d)", payload.Title, payload.ID)

	if h.publisher != nil {
		h.enqueue(c, payload)
		return
	}

	outcome, err := h.service.GenerateForPayload(c.Request.Context(), payload.Product(), models.SourceWebhook)
	if err != nil {
		var exhausted *generation.ExhaustedError
		if errors.As(err, &exhausted) {
			c.JSON(http.StatusOK, gin.H{
				"success":  false,
				"message":  "Could not generate testimonial",
				"attempts": exhausted.Attempts,
			})
			return
		}
		h.logger.Error("Webhook Error: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"productId":   outcome.ProductID,
		"testimonial": outcome.Testimonial,
	})
}

func (h *WebhookHandler) enqueue(c *gin.Context, payload shopify.WebhookPayload) {
	product := payload.Product()
	event := events.Event{
		Type:      events.TypeForTopic(c.GetHeader("X-Shopify-Topic")),
		ProductID: payload.ID,
		Product:   &product,
	}
	if err := h.publisher.Publish(c.Request.Context(), event); err != nil {
		h.logger.Error("Webhook Error: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"queued":    true,
		"productId": payload.ID,
	})
}

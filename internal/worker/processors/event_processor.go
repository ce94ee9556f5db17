package processors

import (
	"context"
	"fmt"

	"testimonials/internal/events"
	"testimonials/internal/logger"
	"testimonials/internal/models"
	"testimonials/internal/services/shopify"
	"testimonials/internal/services/testimonial"
)

// Generator is implemented by testimonial.Service.
type Generator interface {
	GenerateForProduct(ctx context.Context, productID int64, source models.GenerationSource) (*testimonial.Outcome, error)
	GenerateForPayload(ctx context.Context, product shopify.Product, source models.GenerationSource) (*testimonial.Outcome, error)
}

type EventProcessor struct {
	generator Generator
	logger    *logger.Logger
}

func NewEventProcessor(generator Generator, log *logger.Logger) *EventProcessor {
	if log == nil {
		log = logger.Nop()
	}
	return &EventProcessor{
		generator: generator,
		logger:    log,
	}
}

// Process handles product.created and product.updated. Events carrying a
// product body are generated from it; bare ids are fetched from the store.
func (ep *EventProcessor) Process(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.ProductCreated, events.ProductUpdated:
	default:
		ep.logger.Debug("Ignoring event type %q", event.Type)
		return nil
	}

	var (
		outcome *testimonial.Outcome
		err     error
	)
	if event.Product != nil && event.Product.Title != "" {
		product := *event.Product
		if product.ID == 0 {
			product.ID = event.ProductID
		}
		outcome, err = ep.generator.GenerateForPayload(ctx, product, models.SourceWorker)
	} else {
		if event.ProductID <= 0 {
			return fmt.Errorf("event %s has no product id", event.Type)
		}
		outcome, err = ep.generator.GenerateForProduct(ctx, event.ProductID, models.SourceWorker)
		if shopify.IsNotFound(err) {
			ep.logger.Warn("Product %d no longer exists, dropping %s", event.ProductID, event.Type)
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to process %s for product %d: %w", event.Type, event.ProductID, err)
	}

	ep.logger.Info("Event processed: product %d via %s:%s", outcome.ProductID, outcome.Backend, outcome.Model)
	return nil
}

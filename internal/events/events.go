package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"testimonials/internal/logger"
	"testimonials/internal/services/shopify"
)

// Event types carried on the product-events topic.
const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
)

// Event is a queued request to (re)generate a product's testimonial.
type Event struct {
	Type      string           `json:"type"`
	ProductID int64            `json:"product_id"`
	Product   *shopify.Product `json:"product,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// TypeForTopic maps a Shopify webhook topic header to an event type.
func TypeForTopic(topic string) string {
	if topic == "products/create" {
		return ProductCreated
	}
	return ProductUpdated
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to Kafka, keyed by product id.
type Publisher struct {
	writer messageWriter
	logger *logger.Logger
}

func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer, log)
}

func newPublisher(w messageWriter, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{writer: w, logger: log}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published %s for product %d", event.Type, event.ProductID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

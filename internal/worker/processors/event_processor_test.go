package processors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"testimonials/internal/events"
	"testimonials/internal/models"
	"testimonials/internal/services/shopify"
	"testimonials/internal/services/testimonial"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateForProduct(ctx context.Context, productID int64, source models.GenerationSource) (*testimonial.Outcome, error) {
	args := m.Called(ctx, productID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*testimonial.Outcome), args.Error(1)
}

func (m *MockGenerator) GenerateForPayload(ctx context.Context, product shopify.Product, source models.GenerationSource) (*testimonial.Outcome, error) {
	args := m.Called(ctx, product, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*testimonial.Outcome), args.Error(1)
}

func TestProcessUsesPayload(t *testing.T) {
	gen := new(MockGenerator)
	ep := NewEventProcessor(gen, nil)

	gen.On("GenerateForPayload", mock.Anything, shopify.Product{ID: 42, Title: "Cotton Kurta"}, models.SourceWorker).
		Return(&testimonial.Outcome{ProductID: 42, Success: true}, nil)

	err := ep.Process(context.Background(), events.Event{
		Type:      events.ProductCreated,
		ProductID: 42,
		Product:   &shopify.Product{Title: "Cotton Kurta"},
	})
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestProcessFetchesBareID(t *testing.T) {
	gen := new(MockGenerator)
	ep := NewEventProcessor(gen, nil)

	gen.On("GenerateForProduct", mock.Anything, int64(7), models.SourceWorker).
		Return(&testimonial.Outcome{ProductID: 7, Success: true}, nil)

	require.NoError(t, ep.Process(context.Background(), events.Event{Type: events.ProductUpdated, ProductID: 7}))
	gen.AssertExpectations(t)
}

func TestProcessErrors(t *testing.T) {
	gen := new(MockGenerator)
	ep := NewEventProcessor(gen, nil)

	gen.On("GenerateForProduct", mock.Anything, int64(8), models.SourceWorker).
		Return(&testimonial.Outcome{ProductID: 8}, errors.New("all candidates failed"))

	err := ep.Process(context.Background(), events.Event{Type: events.ProductUpdated, ProductID: 8})
	assert.ErrorContains(t, err, "all candidates failed")

	err = ep.Process(context.Background(), events.Event{Type: events.ProductCreated})
	assert.Error(t, err)
}

func TestProcessIgnoresUnknownTypes(t *testing.T) {
	gen := new(MockGenerator)
	ep := NewEventProcessor(gen, nil)

	require.NoError(t, ep.Process(context.Background(), events.Event{Type: "product.deleted", ProductID: 1}))
	gen.AssertNotCalled(t, "GenerateForProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessDropsDeletedProduct(t *testing.T) {
	gen := new(MockGenerator)
	ep := NewEventProcessor(gen, nil)

	notFound := fmt.Errorf("failed to fetch product 9: %w", &shopify.APIError{StatusCode: http.StatusNotFound, Body: `{"errors":"Not Found"}`})
	gen.On("GenerateForProduct", mock.Anything, int64(9), models.SourceWorker).Return(nil, notFound)

	require.NoError(t, ep.Process(context.Background(), events.Event{Type: events.ProductUpdated, ProductID: 9}))
	gen.AssertExpectations(t)
}

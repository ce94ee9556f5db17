package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"testimonials/internal/config"
	"testimonials/internal/events"
	"testimonials/internal/generation"
	"testimonials/internal/logger"
	"testimonials/internal/models"
	"testimonials/internal/services/shopify"
	"testimonials/internal/services/testimonial"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GenerateForProduct(ctx context.Context, productID int64, source models.GenerationSource) (*testimonial.Outcome, error) {
	args := m.Called(ctx, productID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*testimonial.Outcome), args.Error(1)
}

func (m *MockService) GenerateForPayload(ctx context.Context, product shopify.Product, source models.GenerationSource) (*testimonial.Outcome, error) {
	args := m.Called(ctx, product, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*testimonial.Outcome), args.Error(1)
}

func (m *MockService) GenerateAll(ctx context.Context, limit int, pageInfo string) (*testimonial.BulkReport, error) {
	args := m.Called(ctx, limit, pageInfo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*testimonial.BulkReport), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	return m.Called(ctx, event).Error(0)
}

type stubCatalog struct {
	entries []generation.CatalogEntry
	err     error
}

func (s stubCatalog) ListModels(context.Context) ([]generation.CatalogEntry, error) {
	return s.entries, s.err
}

type stubJournal struct {
	rows      []models.Generation
	productID int64
	limit     int
}

func (s *stubJournal) List(_ context.Context, productID int64, limit int) ([]models.Generation, error) {
	s.productID = productID
	s.limit = limit
	return s.rows, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, method, path, body string, register func(r *gin.Engine)) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := gin.New()
	register(r)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestGenerateFromQuery(t *testing.T) {
	svc := new(MockService)
	svc.On("GenerateForProduct", mock.Anything, int64(42), models.SourceSingle).Return(&testimonial.Outcome{
		ProductID:   42,
		Title:       "Cotton Kurta",
		Success:     true,
		Testimonial: "Yaar ye kurta bahut comfortable hai, daily wear ke liye perfect.",
		Backend:     "openrouter",
		Model:       "m1",
		Created:     true,
	}, nil)
	h := NewTestimonialHandler(svc, logger.Nop())

	w, body := serve(t, http.MethodGet, "/api/generate?productId=42", "", func(r *gin.Engine) {
		r.GET("/api/generate", h.Generate)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(42), body["productId"])
	assert.Equal(t, "Cotton Kurta", body["productTitle"])
	assert.Contains(t, body["testimonial"], "kurta")
	assert.Equal(t, true, body["created"])
	svc.AssertExpectations(t)
}

func TestGenerateFromBodyAcceptsGID(t *testing.T) {
	svc := new(MockService)
	svc.On("GenerateForProduct", mock.Anything, int64(7), models.SourceSingle).Return(&testimonial.Outcome{
		ProductID: 7, Title: "Mug", Success: true, Testimonial: "Mast mug hai, chai ka maza double.",
	}, nil)
	h := NewTestimonialHandler(svc, logger.Nop())

	w, _ := serve(t, http.MethodPost, "/api/generate", `{"productId":"gid://shopify/Product/7"}`, func(r *gin.Engine) {
		r.POST("/api/generate", h.Generate)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGenerateRequiresProductID(t *testing.T) {
	svc := new(MockService)
	h := NewTestimonialHandler(svc, logger.Nop())

	tests := []struct {
		name string
		path string
	}{
		{"missing", "/api/generate"},
		{"not a number", "/api/generate?productId=abc"},
		{"zero", "/api/generate?productId=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(t, http.MethodGet, tt.path, "", func(r *gin.Engine) {
				r.GET("/api/generate", h.Generate)
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, generateUsage, body["usage"])
		})
	}
	svc.AssertNotCalled(t, "GenerateForProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateExhausted(t *testing.T) {
	svc := new(MockService)
	exhausted := &generation.ExhaustedError{Attempts: []generation.Attempt{
		{Candidate: generation.Candidate{Backend: "openrouter", Model: "m1"}, Kind: generation.KindRateLimited, StatusCode: 429, Tries: 2},
		{Candidate: generation.Candidate{Backend: "gemini", Model: "m2"}, Kind: generation.KindNotFound, StatusCode: 404, Tries: 1},
	}}
	svc.On("GenerateForProduct", mock.Anything, int64(42), models.SourceSingle).Return(nil, exhausted)
	h := NewTestimonialHandler(svc, logger.Nop())

	w, body := serve(t, http.MethodGet, "/api/generate?productId=42", "", func(r *gin.Engine) {
		r.GET("/api/generate", h.Generate)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate testimonial", body["error"])
	attempts, ok := body["attempts"].([]interface{})
	require.True(t, ok)
	require.Len(t, attempts, 2)
	assert.Equal(t, "rate_limited", attempts[0].(map[string]interface{})["outcome"])
}

func TestGenerateStoreError(t *testing.T) {
	svc := new(MockService)
	apiErr := &shopify.APIError{StatusCode: http.StatusNotFound, Body: `{"errors":"Not Found"}`}
	svc.On("GenerateForProduct", mock.Anything, int64(9), models.SourceSingle).
		Return(nil, errors.Join(errors.New("fetch product 9"), apiErr))
	h := NewTestimonialHandler(svc, logger.Nop())

	w, body := serve(t, http.MethodGet, "/api/generate?productId=9", "", func(r *gin.Engine) {
		r.GET("/api/generate", h.Generate)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, `{"errors":"Not Found"}`, body["details"])
}

func TestGenerateAll(t *testing.T) {
	svc := new(MockService)
	svc.On("GenerateAll", mock.Anything, 10, "cursor").Return(&testimonial.BulkReport{
		Message: "Generated 1/2 testimonials",
		Total:   2,
		Success: 1,
		Failed:  1,
		Results: []testimonial.Outcome{
			{ProductID: 1, Title: "A", Success: true, Testimonial: "Bahut badhiya product hai yaar."},
			{ProductID: 2, Title: "B", Error: "all candidates failed"},
		},
	}, nil)
	h := NewTestimonialHandler(svc, logger.Nop())

	w, body := serve(t, http.MethodPost, "/api/generate-all?limit=10&page_info=cursor", "", func(r *gin.Engine) {
		r.POST("/api/generate-all", h.GenerateAll)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Generated 1/2 testimonials", body["message"])
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["results"], 2)
	svc.AssertExpectations(t)
}

func TestGenerateAllRejectsBadLimit(t *testing.T) {
	h := NewTestimonialHandler(new(MockService), logger.Nop())

	for _, limit := range []string{"0", "251", "x"} {
		w, _ := serve(t, http.MethodPost, "/api/generate-all?limit="+limit, "", func(r *gin.Engine) {
			r.POST("/api/generate-all", h.GenerateAll)
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}

func TestWebhookInline(t *testing.T) {
	svc := new(MockService)
	svc.On("GenerateForPayload", mock.Anything, mock.MatchedBy(func(p shopify.Product) bool {
		return p.ID == 5 && p.Title == "Saree"
	}), models.SourceWebhook).Return(&testimonial.Outcome{
		ProductID: 5, Title: "Saree", Success: true, Testimonial: "Saree ka color ekdum perfect hai.",
	}, nil)
	h := NewWebhookHandler(svc, nil, logger.Nop())

	w, body := serve(t, http.MethodPost, "/api/webhook", `{"id":5,"title":"Saree","body_html":"<p>Silk</p>"}`, func(r *gin.Engine) {
		r.POST("/api/webhook", h.Handle)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(5), body["productId"])
	svc.AssertExpectations(t)
}

func TestWebhookAlwaysOK(t *testing.T) {
	svc := new(MockService)
	svc.On("GenerateForPayload", mock.Anything, mock.Anything, models.SourceWebhook).
		Return(nil, &generation.ExhaustedError{})
	h := NewWebhookHandler(svc, nil, logger.Nop())
	register := func(r *gin.Engine) { r.POST("/api/webhook", h.Handle) }

	w, body := serve(t, http.MethodPost, "/api/webhook", `{"title":"no id"}`, register)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No product data received", body["error"])

	w, body = serve(t, http.MethodPost, "/api/webhook", `{"id":5,"title":"Saree"}`, register)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Could not generate testimonial", body["message"])
}

func TestWebhookQueueMode(t *testing.T) {
	svc := new(MockService)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.Type == events.ProductUpdated && e.ProductID == 5 && e.Product != nil && e.Product.Title == "Saree"
	})).Return(nil)
	h := NewWebhookHandler(svc, pub, logger.Nop())

	r := gin.New()
	r.POST("/api/webhook", h.Handle)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"id":5,"title":"Saree"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Topic", "products/update")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":true`)
	pub.AssertExpectations(t)
	svc.AssertNotCalled(t, "GenerateForPayload", mock.Anything, mock.Anything, mock.Anything)
}

func TestModelsList(t *testing.T) {
	catalog := stubCatalog{entries: []generation.CatalogEntry{
		{ID: "paid/model", ContextLength: 200000, PromptPrice: "0.001", CompletionPrice: "0.002"},
		{ID: "small/model:free", Name: "Small", ContextLength: 8000},
		{ID: "big/model", Name: "Big", ContextLength: 128000, PromptPrice: "0", CompletionPrice: "0"},
	}}
	h := NewModelsHandler(catalog)

	w, body := serve(t, http.MethodGet, "/api/models", "", func(r *gin.Engine) {
		r.GET("/api/models", h.List)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["total_models"])
	assert.Equal(t, float64(2), body["free_models_count"])
	free := body["free_models"].([]interface{})
	assert.Equal(t, "big/model", free[0].(map[string]interface{})["id"])
}

func TestModelsWithoutKey(t *testing.T) {
	h := NewModelsHandler(nil)

	w, body := serve(t, http.MethodGet, "/api/models", "", func(r *gin.Engine) {
		r.GET("/api/models", h.List)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Missing OPENROUTER_API_KEY", body["error"])
}

func TestDebugMasksSecrets(t *testing.T) {
	h := NewDebugHandler(&config.Config{
		ShopifyStore:       "demo.myshopify.com",
		ShopifyAccessToken: "shpat_abcdefghijklmnop",
	})

	w, body := serve(t, http.MethodGet, "/api/debug", "", func(r *gin.Engine) {
		r.GET("/api/debug", h.Show)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	vars := body["environment_variables"].(map[string]interface{})
	assert.Equal(t, "✅ Set (demo.myshopify.com)", vars["SHOPIFY_STORE"])
	assert.Equal(t, "✅ Set (shpat_abcd...)", vars["SHOPIFY_ACCESS_TOKEN"])
	assert.Equal(t, "❌ MISSING", vars["OPENROUTER_API_KEY"])
	assert.NotContains(t, w.Body.String(), "ijklmnop")
}

func TestHistory(t *testing.T) {
	journal := &stubJournal{rows: []models.Generation{{ID: "g1", ProductID: 3, Status: models.GenerationSucceeded}}}
	h := NewHistoryHandler(journal)

	w, body := serve(t, http.MethodGet, "/api/history?product_id=3&limit=5", "", func(r *gin.Engine) {
		r.GET("/api/history", h.List)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, int64(3), journal.productID)
	assert.Equal(t, 5, journal.limit)
}

func TestHistoryDisabled(t *testing.T) {
	h := NewHistoryHandler(nil)

	w, _ := serve(t, http.MethodGet, "/api/history", "", func(r *gin.Engine) {
		r.GET("/api/history", h.List)
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	journal := &stubJournal{}
	h := NewHistoryHandler(journal)

	for _, limit := range []string{"abc", "0", "-3"} {
		w, body := serve(t, http.MethodGet, "/api/history?limit="+limit, "", func(r *gin.Engine) {
			r.GET("/api/history", h.List)
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
		assert.Equal(t, "limit must be a positive integer", body["error"])
	}
	assert.Zero(t, journal.limit)
}

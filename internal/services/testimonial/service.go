package testimonial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"testimonials/internal/generation"
	"testimonials/internal/logger"
	"testimonials/internal/metrics"
	"testimonials/internal/models"
	"testimonials/internal/services/shopify"
)

// MaxPageSize is the largest page the products endpoint serves.
const MaxPageSize = 250

var ErrInvalidProductID = errors.New("invalid product id")

const productGIDPrefix = "gid://shopify/Product/"

// ParseProductID accepts a numeric id or a gid://shopify/Product/<id> string.
func ParseProductID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, productGIDPrefix)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProductID, raw)
	}
	return id, nil
}

// Store is the part of the Shopify client the service needs.
type Store interface {
	GetProduct(ctx context.Context, productID int64) (*shopify.Product, error)
	GetProducts(ctx context.Context, limit int, pageInfo string) (*shopify.ProductsResponse, error)
	UpsertTestimonial(ctx context.Context, productID int64, value string) (*shopify.Metafield, bool, error)
}

type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Generation, error)
}

// Recorder persists outcomes. Optional.
type Recorder interface {
	Record(ctx context.Context, g *models.Generation) error
}

// Outcome is the per-product result reported to callers.
type Outcome struct {
	ProductID   int64                `json:"id"`
	Title       string               `json:"title"`
	Success     bool                 `json:"success"`
	Testimonial string               `json:"testimonial,omitempty"`
	Backend     string               `json:"backend,omitempty"`
	Model       string               `json:"model,omitempty"`
	Error       string               `json:"error,omitempty"`
	Attempts    []generation.Attempt `json:"attempts,omitempty"`
	MetafieldID int64                `json:"metafield_id,omitempty"`
	Created     bool                 `json:"created,omitempty"`
}

// BulkReport summarizes one GenerateAll run.
type BulkReport struct {
	RunID        string    `json:"run_id"`
	Message      string    `json:"message"`
	Total        int       `json:"total"`
	Success      int       `json:"success"`
	Failed       int       `json:"failed"`
	Results      []Outcome `json:"results"`
	NextPageInfo string    `json:"next_page_info,omitempty"`
}

type Options struct {
	// BulkDelay is the minimum spacing between products in GenerateAll.
	// Zero disables pacing.
	BulkDelay time.Duration
	PageSize  int
	Journal   Recorder
}

type Service struct {
	store     Store
	generator Generator
	journal   Recorder
	limiter   *rate.Limiter
	pageSize  int
	logger    *logger.Logger
}

func NewService(store Store, generator Generator, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	limit := rate.Inf
	if opts.BulkDelay > 0 {
		limit = rate.Every(opts.BulkDelay)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Service{
		store:     store,
		generator: generator,
		journal:   opts.Journal,
		limiter:   rate.NewLimiter(limit, 1),
		pageSize:  pageSize,
		logger:    log,
	}
}

// GenerateForProduct fetches the product and writes a fresh testimonial.
// The returned Outcome is non-nil whenever the product could be read.
func (s *Service) GenerateForProduct(ctx context.Context, productID int64, source models.GenerationSource) (*Outcome, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		metrics.ObserveTestimonial(string(source), false)
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return s.process(ctx, *product, source)
}

// GenerateForPayload writes a testimonial for product data that is already
// in hand, such as a webhook body.
func (s *Service) GenerateForPayload(ctx context.Context, product shopify.Product, source models.GenerationSource) (*Outcome, error) {
	return s.process(ctx, product, source)
}

// GenerateAll processes one page of products sequentially. Per-product
// failures are reported in the results; only a failed page fetch is
// returned as an error.
func (s *Service) GenerateAll(ctx context.Context, limit int, pageInfo string) (*BulkReport, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = s.pageSize
	}

	runID := uuid.New().String()
	log := s.logger.With("run_id", runID)

	page, err := s.store.GetProducts(ctx, limit, pageInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	products := page.Products
	log.Info("Found %d products", len(products))

	report := &BulkReport{
		RunID:        runID,
		Total:        len(products),
		Results:      make([]Outcome, 0, len(products)),
		NextPageInfo: page.NextPageInfo,
	}

	for i, product := range products {
		if err := s.limiter.Wait(ctx); err != nil {
			for _, rest := range products[i:] {
				report.Results = append(report.Results, Outcome{
					ProductID: rest.ID,
					Title:     rest.Title,
					Error:     fmt.Sprintf("skipped: %v", err),
				})
			}
			break
		}

		log.Info("[%d/%d] Processing: %s", i+1, len(products), product.Title)
		outcome, err := s.process(ctx, product, models.SourceBulk)
		if err != nil {
			log.Warn("Error for %s: %v", product.Title, err)
		}
		report.Results = append(report.Results, *outcome)
	}

	for _, r := range report.Results {
		if r.Success {
			report.Success++
		}
	}
	report.Failed = report.Total - report.Success
	report.Message = fmt.Sprintf("Generated %d/%d testimonials", report.Success, report.Total)
	log.Info("%s", report.Message)

	return report, nil
}

// process always returns a non-nil Outcome.
func (s *Service) process(ctx context.Context, product shopify.Product, source models.GenerationSource) (*Outcome, error) {
	outcome := &Outcome{ProductID: product.ID, Title: product.Title}

	gen, err := s.generate(ctx, product)
	if err != nil {
		outcome.Error = err.Error()
		var exhausted *generation.ExhaustedError
		if errors.As(err, &exhausted) {
			outcome.Attempts = exhausted.Attempts
		}
		s.finish(ctx, outcome, source)
		return outcome, err
	}

	outcome.Testimonial = gen.Text
	outcome.Backend = gen.Candidate.Backend
	outcome.Model = gen.Candidate.Model

	mf, created, err := s.store.UpsertTestimonial(ctx, product.ID, gen.Text)
	if err != nil {
		err = fmt.Errorf("failed to save testimonial for product %d: %w", product.ID, err)
		outcome.Error = err.Error()
		s.finish(ctx, outcome, source)
		return outcome, err
	}

	outcome.Success = true
	outcome.MetafieldID = mf.ID
	outcome.Created = created
	s.finish(ctx, outcome, source)
	return outcome, nil
}

func (s *Service) generate(ctx context.Context, product shopify.Product) (*generation.Generation, error) {
	req, err := generation.NewRequest(product.Title, product.Description())
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", product.ID, err)
	}
	return s.generator.Generate(ctx, req)
}

func (s *Service) finish(ctx context.Context, outcome *Outcome, source models.GenerationSource) {
	metrics.ObserveTestimonial(string(source), outcome.Success)

	if outcome.Success {
		s.logger.Info("Saved testimonial for %s (product %d) via %s:%s", outcome.Title, outcome.ProductID, outcome.Backend, outcome.Model)
	} else {
		s.logger.Warn("No testimonial for %s (product %d): %s", outcome.Title, outcome.ProductID, outcome.Error)
	}

	if s.journal == nil {
		return
	}

	entry := &models.Generation{
		ProductID:    outcome.ProductID,
		ProductTitle: outcome.Title,
		Source:       source,
		Status:       models.GenerationFailed,
		Testimonial:  outcome.Testimonial,
		Backend:      outcome.Backend,
		Model:        outcome.Model,
		Error:        outcome.Error,
		MetafieldID:  outcome.MetafieldID,
	}
	if outcome.Success {
		entry.Status = models.GenerationSucceeded
	}
	if len(outcome.Attempts) > 0 {
		if raw, err := json.Marshal(outcome.Attempts); err == nil {
			entry.Attempts = string(raw)
		}
	}

	// Journal failures are only logged. The write outlives a cancelled request.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(recordCtx, entry); err != nil {
		s.logger.Error("Failed to record generation for product %d: %v", outcome.ProductID, err)
	}
}

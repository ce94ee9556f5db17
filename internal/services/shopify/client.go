package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"testimonials/internal/logger"
)

// DefaultAPIVersion is the Admin REST version used when none is configured.
const DefaultAPIVersion = "2024-01"

// APIError is a non-2xx answer from the Admin API. Body is the raw upstream
// response so callers can surface it unchanged.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

type Option func(*Client)

// WithBaseURL points the client at a different Admin API root, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for store, a full *.myshopify.com domain.
func NewClient(store, accessToken, apiVersion string, log *logger.Logger, opts ...Option) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		baseURL:     fmt.Sprintf("https://%s/admin/api/%s", store, apiVersion),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProducts fetches one page of products. pageInfo is the cursor returned
// in a previous response's NextPageInfo.
func (c *Client) GetProducts(ctx context.Context, limit int, pageInfo string) (*ProductsResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	}

	var productsResp ProductsResponse
	header, err := c.do(ctx, http.MethodGet, "/products.json", q, nil, &productsResp)
	if err != nil {
		return nil, err
	}
	productsResp.NextPageInfo = nextPageInfo(header.Get("Link"))

	return &productsResp, nil
}

// GetProduct fetches a single product by ID
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var productResp struct {
		Product Product `json:"product"`
	}
	path := fmt.Sprintf("/products/%d.json", productID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &productResp); err != nil {
		return nil, err
	}

	return &productResp.Product, nil
}

// ListMetafields returns the product's metafields, optionally filtered by
// namespace and key.
func (c *Client) ListMetafields(ctx context.Context, productID int64, namespace, key string) ([]Metafield, error) {
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	if key != "" {
		q.Set("key", key)
	}

	var resp struct {
		Metafields []Metafield `json:"metafields"`
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if _, err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Metafields, nil
}

func (c *Client) CreateMetafield(ctx context.Context, productID int64, mf Metafield) (*Metafield, error) {
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{Metafield: mf}

	var resp struct {
		Metafield Metafield `json:"metafield"`
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if _, err := c.do(ctx, http.MethodPost, path, nil, payload, &resp); err != nil {
		return nil, err
	}

	return &resp.Metafield, nil
}

// UpdateMetafield replaces the value of an existing metafield by ID.
func (c *Client) UpdateMetafield(ctx context.Context, mf Metafield) (*Metafield, error) {
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{Metafield: Metafield{ID: mf.ID, Value: mf.Value, Type: mf.Type}}

	var resp struct {
		Metafield Metafield `json:"metafield"`
	}
	path := fmt.Sprintf("/metafields/%d.json", mf.ID)
	if _, err := c.do(ctx, http.MethodPut, path, nil, payload, &resp); err != nil {
		return nil, err
	}

	return &resp.Metafield, nil
}

// UpsertTestimonial writes value to the product's custom.ai_testimonial
// metafield, updating in place when it already exists. The lookup and the
// write are two requests, so concurrent upserts for one product may race.
func (c *Client) UpsertTestimonial(ctx context.Context, productID int64, value string) (*Metafield, bool, error) {
	existing, err := c.ListMetafields(ctx, productID, TestimonialNamespace, TestimonialKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up metafield: %w", err)
	}

	for _, mf := range existing {
		if mf.Namespace != TestimonialNamespace || mf.Key != TestimonialKey {
			continue
		}
		mf.Value = value
		mf.Type = MultiLineTextType
		updated, err := c.UpdateMetafield(ctx, mf)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update metafield: %w", err)
		}
		c.logger.Debug("Updated metafield %d on product %d", mf.ID, productID)
		return updated, false, nil
	}

	created, err := c.CreateMetafield(ctx, productID, Metafield{
		Namespace: TestimonialNamespace,
		Key:       TestimonialKey,
		Value:     value,
		Type:      MultiLineTextType,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create metafield: %w", err)
	}
	c.logger.Debug("Created metafield on product %d", productID)
	return created, true, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (http.Header, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Warn("Shopify %s %s returned %d", method, path, resp.StatusCode)
		return resp.Header, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.Header, nil
}

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageInfo extracts the page_info cursor of the rel="next" link.
func nextPageInfo(link string) string {
	m := nextLinkPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return u.Query().Get("page_info")
}

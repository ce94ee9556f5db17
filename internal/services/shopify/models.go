package shopify

import (
	"time"
)

// Metafield coordinates for the generated testimonial.
const (
	TestimonialNamespace = "custom"
	TestimonialKey       = "ai_testimonial"
	MultiLineTextType    = "multi_line_text_field"
)

// Product represents a Shopify product. Only the fields this service reads
// are decoded.
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html"`
	Vendor      string     `json:"vendor,omitempty"`
	ProductType string     `json:"product_type,omitempty"`
	Handle      string     `json:"handle,omitempty"`
	Status      string     `json:"status,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Description returns the product body as plain text.
func (p *Product) Description() string {
	return PlainText(p.BodyHTML)
}

// ProductsResponse represents the response from products API
type ProductsResponse struct {
	Products []Product `json:"products"`
	// NextPageInfo is the cursor from the Link header, empty on the last page.
	NextPageInfo string `json:"-"`
}

// Metafield is a namespaced key/value annotation on a product.
type Metafield struct {
	ID            int64  `json:"id,omitempty"`
	Namespace     string `json:"namespace,omitempty"`
	Key           string `json:"key,omitempty"`
	Value         string `json:"value"`
	Type          string `json:"type,omitempty"`
	OwnerID       int64  `json:"owner_id,omitempty"`
	OwnerResource string `json:"owner_resource,omitempty"`
}

// WebhookPayload represents a Shopify products/create or products/update body.
type WebhookPayload struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
	Handle   string `json:"handle,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (w WebhookPayload) Product() Product {
	return Product{
		ID:       w.ID,
		Title:    w.Title,
		BodyHTML: w.BodyHTML,
		Handle:   w.Handle,
		Status:   w.Status,
	}
}

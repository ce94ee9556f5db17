package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generation is one journal row: a single attempt to write a testimonial
// for a product, successful or not.
type Generation struct {
	ID           string           `json:"id" gorm:"type:uuid;primary_key"`
	ProductID    int64            `json:"product_id" gorm:"index;not null"`
	ProductTitle string           `json:"product_title"`
	Source       GenerationSource `json:"source" gorm:"not null"`
	Status       GenerationStatus `json:"status" gorm:"not null"`
	Testimonial  string           `json:"testimonial,omitempty" gorm:"type:text"`
	Backend      string           `json:"backend,omitempty"`
	Model        string           `json:"model,omitempty"`
	Attempts     string           `json:"attempts,omitempty" gorm:"type:text"`
	Error        string           `json:"error,omitempty" gorm:"type:text"`
	MetafieldID  int64            `json:"metafield_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at" gorm:"index"`
}

type GenerationSource string

const (
	SourceSingle  GenerationSource = "single"
	SourceBulk    GenerationSource = "bulk"
	SourceWebhook GenerationSource = "webhook"
	SourceWorker  GenerationSource = "worker"
	SourceCLI     GenerationSource = "cli"
)

type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "success"
	GenerationFailed    GenerationStatus = "failed"
)

func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

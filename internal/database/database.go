package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"testimonials/internal/models"
)

type Database struct {
	DB *gorm.DB
}

// New opens sqlite:// URLs with SQLite and anything else with PostgreSQL,
// then migrates the journal table.
func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Generation{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Journal stores generation outcomes.
type Journal struct {
	db *gorm.DB
}

func NewJournal(d *Database) *Journal {
	return &Journal{db: d.DB}
}

func (j *Journal) Record(ctx context.Context, g *models.Generation) error {
	if err := j.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}

// List returns the newest entries first. productID 0 lists every product.
func (j *Journal) List(ctx context.Context, productID int64, limit int) ([]models.Generation, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := j.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if productID != 0 {
		query = query.Where("product_id = ?", productID)
	}

	var out []models.Generation
	if err := query.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return out, nil
}

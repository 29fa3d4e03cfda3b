package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-marketplace/internal/fulfillment/domain"
	apperrors "go-marketplace/pkg/errors"
)

// ProductModel is the GORM model for menu items
type ProductModel struct {
	ID           string          `gorm:"primaryKey;size:36"`
	RestaurantID string          `gorm:"index;size:36;not null"`
	Name         string          `gorm:"size:255;not null"`
	Description  string          `gorm:"size:2000"`
	Category     string          `gorm:"size:100"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency     string          `gorm:"size:3;not null"`
	Available    bool            `gorm:"not null;default:true"`
	Rating       float64         `gorm:"not null;default:0"`
	TotalReviews int             `gorm:"not null;default:0"`
	Version      int64           `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// PostgresProductRepository implements ports.Catalog using PostgreSQL
type PostgresProductRepository struct {
	db *gorm.DB
}

// NewPostgresProductRepository creates a new PostgreSQL product repository
func NewPostgresProductRepository(db *gorm.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

// Migrate runs auto-migration for the product model
func (r *PostgresProductRepository) Migrate() error {
	return r.db.AutoMigrate(&ProductModel{})
}

// SaveProduct inserts a new product or rewrites the catalog fields of an
// existing one at expectedVersion
func (r *PostgresProductRepository) SaveProduct(ctx context.Context, product *domain.Product, expectedVersion int64) error {
	db := r.db.WithContext(ctx)
	model := toProductModel(product)

	if expectedVersion == 0 {
		if err := db.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"id": product.ID})
			}
			return apperrors.NewInternal("failed to create product", err)
		}
		return nil
	}

	cols := productCatalogColumns(model)
	cols["version"] = expectedVersion + 1
	result := db.Model(&ProductModel{}).
		Where("id = ? AND version = ?", product.ID, expectedVersion).
		Updates(cols)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update product", result.Error)
	}
	if result.RowsAffected == 0 {
		return versionMiss(db, &ProductModel{}, product.ID, expectedVersion, domain.NewProductNotFound)
	}
	return nil
}

// productCatalogColumns lists the columns a catalog sync owns
func productCatalogColumns(m *ProductModel) map[string]interface{} {
	return map[string]interface{}{
		"restaurant_id": m.RestaurantID,
		"name":          m.Name,
		"description":   m.Description,
		"category":      m.Category,
		"price":         m.Price,
		"currency":      m.Currency,
		"available":     m.Available,
		"updated_at":    m.UpdatedAt,
	}
}

// GetProduct retrieves a product by ID
func (r *PostgresProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get product", result.Error)
	}

	return toProductDomain(&model)
}

// UpdateProductRating writes the rating aggregate if the version still matches
func (r *PostgresProductRepository) UpdateProductRating(ctx context.Context, id string, expectedVersion int64, rating float64, totalReviews int) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&ProductModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"rating":        rating,
			"total_reviews": totalReviews,
			"version":       expectedVersion + 1,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return apperrors.NewInternal("failed to update product rating", result.Error)
	}
	if result.RowsAffected == 0 {
		return versionMiss(db, &ProductModel{}, id, expectedVersion, domain.NewProductNotFound)
	}
	return nil
}

func toProductModel(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:           p.ID,
		RestaurantID: p.RestaurantID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Price:        p.UnitPrice.Amount(),
		Currency:     string(p.UnitPrice.Currency()),
		Available:    p.Available,
		Rating:       p.Rating,
		TotalReviews: p.TotalReviews,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProductDomain(m *ProductModel) (*domain.Product, error) {
	price, err := domain.NewMoney(m.Price, domain.Currency(m.Currency))
	if err != nil {
		return nil, apperrors.Wrap(err, "stored product has an invalid price")
	}

	return &domain.Product{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		Category:     m.Category,
		UnitPrice:    price,
		Available:    m.Available,
		Rating:       m.Rating,
		TotalReviews: m.TotalReviews,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

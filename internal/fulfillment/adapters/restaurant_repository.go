package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	apperrors "go-marketplace/pkg/errors"
)

// RestaurantModel is the GORM model for restaurants
type RestaurantModel struct {
	ID           string          `gorm:"primaryKey;size:36"`
	MerchantID   string          `gorm:"index;size:36"`
	Name         string          `gorm:"size:255;not null"`
	Description  string          `gorm:"size:2000"`
	Categories   pq.StringArray  `gorm:"type:text[]"`
	Latitude     float64         `gorm:"index:idx_restaurants_location,priority:1;not null"`
	Longitude    float64         `gorm:"index:idx_restaurants_location,priority:2;not null"`
	Address      AddressColumns  `gorm:"embedded;embeddedPrefix:address_"`
	Hours        domain.Schedule `gorm:"serializer:json;type:jsonb"`
	IsActive     bool            `gorm:"not null;default:true"`
	Rating       float64         `gorm:"not null;default:0"`
	TotalReviews int             `gorm:"not null;default:0"`
	Version      int64           `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (RestaurantModel) TableName() string {
	return "restaurants"
}

// PostgresRestaurantRepository implements ports.RestaurantLookup and
// ports.RestaurantQuery using PostgreSQL
type PostgresRestaurantRepository struct {
	db *gorm.DB
}

// NewPostgresRestaurantRepository creates a new PostgreSQL restaurant repository
func NewPostgresRestaurantRepository(db *gorm.DB) *PostgresRestaurantRepository {
	return &PostgresRestaurantRepository{db: db}
}

// Migrate runs auto-migration for the restaurant model
func (r *PostgresRestaurantRepository) Migrate() error {
	return r.db.AutoMigrate(&RestaurantModel{})
}

// SaveRestaurant inserts a new restaurant or rewrites the catalog fields of
// an existing one at expectedVersion
func (r *PostgresRestaurantRepository) SaveRestaurant(ctx context.Context, restaurant *domain.Restaurant, expectedVersion int64) error {
	db := r.db.WithContext(ctx)
	model := toRestaurantModel(restaurant)

	if expectedVersion == 0 {
		if err := db.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"id": restaurant.ID})
			}
			return apperrors.NewInternal("failed to create restaurant", err)
		}
		return nil
	}

	cols, err := restaurantCatalogColumns(model)
	if err != nil {
		return err
	}
	cols["version"] = expectedVersion + 1
	result := db.Model(&RestaurantModel{}).
		Where("id = ? AND version = ?", restaurant.ID, expectedVersion).
		Updates(cols)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update restaurant", result.Error)
	}
	if result.RowsAffected == 0 {
		return versionMiss(db, &RestaurantModel{}, restaurant.ID, expectedVersion, domain.NewRestaurantNotFound)
	}
	return nil
}

// restaurantCatalogColumns lists the columns a catalog sync owns. Rating,
// total_reviews and created_at are left alone.
func restaurantCatalogColumns(m *RestaurantModel) (map[string]interface{}, error) {
	hours, err := json.Marshal(m.Hours)
	if err != nil {
		return nil, apperrors.NewInternal("failed to encode opening hours", err)
	}
	return map[string]interface{}{
		"merchant_id":      m.MerchantID,
		"name":             m.Name,
		"description":      m.Description,
		"categories":       m.Categories,
		"latitude":         m.Latitude,
		"longitude":        m.Longitude,
		"address_street":   m.Address.Street,
		"address_city":     m.Address.City,
		"address_state":    m.Address.State,
		"address_country":  m.Address.Country,
		"address_zip_code": m.Address.ZipCode,
		"address_details":  m.Address.Details,
		"hours":            string(hours),
		"is_active":        m.IsActive,
		"updated_at":       m.UpdatedAt,
	}, nil
}

// GetRestaurant retrieves a restaurant by ID
func (r *PostgresRestaurantRepository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	var model RestaurantModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get restaurant", result.Error)
	}

	return toRestaurantDomain(&model)
}

// UpdateRating writes the rating aggregate if the version still matches
func (r *PostgresRestaurantRepository) UpdateRating(ctx context.Context, id string, expectedVersion int64, rating float64, totalReviews int) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&RestaurantModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"rating":        rating,
			"total_reviews": totalReviews,
			"version":       expectedVersion + 1,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return apperrors.NewInternal("failed to update restaurant rating", result.Error)
	}
	if result.RowsAffected == 0 {
		return versionMiss(db, &RestaurantModel{}, id, expectedVersion, domain.NewRestaurantNotFound)
	}
	return nil
}

// ListCandidates applies the bounding box and attribute filters in SQL
func (r *PostgresRestaurantRepository) ListCandidates(ctx context.Context, filter ports.CandidateFilter) ([]*domain.Restaurant, error) {
	q := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", filter.Box.MinLat, filter.Box.MaxLat).
		Where("longitude BETWEEN ? AND ?", filter.Box.MinLng, filter.Box.MaxLng)
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.MinRating > 0 {
		q = q.Where("rating >= ?", filter.MinRating)
	}
	if len(filter.Categories) > 0 {
		q = q.Where("categories && ?", pq.StringArray(filter.Categories))
	}

	var models []RestaurantModel
	if err := q.Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list restaurants", err)
	}

	restaurants := make([]*domain.Restaurant, 0, len(models))
	for i := range models {
		restaurant, err := toRestaurantDomain(&models[i])
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, restaurant)
	}
	return restaurants, nil
}

// versionMiss tells a lost compare-and-swap apart from a missing row
func versionMiss(db *gorm.DB, model interface{}, id string, expectedVersion int64, notFound func(string) error) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.NewInternal("failed to check version", err)
	}
	if count == 0 {
		return notFound(id)
	}
	return domain.ErrVersionConflict.WithDetails(map[string]interface{}{
		"id":               id,
		"expected_version": expectedVersion,
	})
}

func toRestaurantModel(r *domain.Restaurant) *RestaurantModel {
	return &RestaurantModel{
		ID:          r.ID,
		MerchantID:  r.MerchantID,
		Name:        r.Name,
		Description: r.Description,
		Categories:  pq.StringArray(r.Categories),
		Latitude:    r.Location.Latitude(),
		Longitude:   r.Location.Longitude(),
		Address: AddressColumns{
			Street:  r.Address.Street,
			City:    r.Address.City,
			State:   r.Address.State,
			Country: r.Address.Country,
			ZipCode: r.Address.ZipCode,
			Details: r.Address.Details,
		},
		Hours:        r.Hours,
		IsActive:     r.IsActive,
		Rating:       r.Rating,
		TotalReviews: r.TotalReviews,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toRestaurantDomain(m *RestaurantModel) (*domain.Restaurant, error) {
	location, err := domain.NewGeoPoint(m.Latitude, m.Longitude)
	if err != nil {
		return nil, apperrors.Wrap(err, "stored restaurant has an invalid location")
	}

	return &domain.Restaurant{
		ID:          m.ID,
		MerchantID:  m.MerchantID,
		Name:        m.Name,
		Description: m.Description,
		Categories:  []string(m.Categories),
		Location:    location,
		Address: domain.Address{
			Street:  m.Address.Street,
			City:    m.Address.City,
			State:   m.Address.State,
			Country: m.Address.Country,
			ZipCode: m.Address.ZipCode,
			Details: m.Address.Details,
		},
		Hours:        m.Hours,
		IsActive:     m.IsActive,
		Rating:       m.Rating,
		TotalReviews: m.TotalReviews,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"go-marketplace/internal/fulfillment/domain"
	apperrors "go-marketplace/pkg/errors"
)

// ReviewModel is the GORM model for reviews. OrderID is unique so a second
// review of the same order is rejected by the database.
type ReviewModel struct {
	ID           string         `gorm:"primaryKey;size:36"`
	CustomerID   string         `gorm:"index;size:36;not null"`
	RestaurantID string         `gorm:"index;size:36;not null"`
	OrderID      string         `gorm:"uniqueIndex;size:36;not null"`
	Rating       int            `gorm:"not null"`
	Comment      string         `gorm:"size:2000"`
	Images       pq.StringArray `gorm:"type:text[]"`
	CreatedAt    time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReviewModel) TableName() string {
	return "reviews"
}

// PostgresReviewRepository implements ports.ReviewStore using PostgreSQL
type PostgresReviewRepository struct {
	db *gorm.DB
}

// NewPostgresReviewRepository creates a new PostgreSQL review repository
func NewPostgresReviewRepository(db *gorm.DB) *PostgresReviewRepository {
	return &PostgresReviewRepository{db: db}
}

// Migrate runs auto-migration for the review model
func (r *PostgresReviewRepository) Migrate() error {
	return r.db.AutoMigrate(&ReviewModel{})
}

// Create inserts a review
func (r *PostgresReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	result := r.db.WithContext(ctx).Create(toReviewModel(review))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateReview.WithDetails(map[string]interface{}{"order_id": review.OrderID})
		}
		return apperrors.NewInternal("failed to create review", result.Error)
	}
	return nil
}

// FindByID retrieves a review by ID
func (r *PostgresReviewRepository) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderID retrieves the review of an order
func (r *PostgresReviewRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Review, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *PostgresReviewRepository) findOne(ctx context.Context, where string, arg string) (*domain.Review, error) {
	var model ReviewModel

	result := r.db.WithContext(ctx).Where(where, arg).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get review", result.Error)
	}
	return toReviewDomain(&model), nil
}

// Delete deletes a review by ID
func (r *PostgresReviewRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ReviewModel{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.NewInternal("failed to delete review", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewReviewNotFound(id)
	}
	return nil
}

// RatingsByRestaurant returns every stored rating of a restaurant
func (r *PostgresReviewRepository) RatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).Model(&ReviewModel{}).
		Where("restaurant_id = ?", restaurantID).
		Pluck("rating", &ratings).Error
	if err != nil {
		return nil, apperrors.NewInternal("failed to load ratings", err)
	}
	return ratings, nil
}

func toReviewModel(r *domain.Review) *ReviewModel {
	return &ReviewModel{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		RestaurantID: r.RestaurantID,
		OrderID:      r.OrderID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		Images:       pq.StringArray(r.Images),
		CreatedAt:    r.CreatedAt,
	}
}

func toReviewDomain(m *ReviewModel) *domain.Review {
	return &domain.Review{
		ID:           m.ID,
		CustomerID:   m.CustomerID,
		RestaurantID: m.RestaurantID,
		OrderID:      m.OrderID,
		Rating:       m.Rating,
		Comment:      m.Comment,
		Images:       []string(m.Images),
		CreatedAt:    m.CreatedAt,
	}
}

package application

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/logger"
)

// RestaurantCatalog reads and upserts restaurants
type RestaurantCatalog interface {
	ports.RestaurantLookup
	ports.RestaurantWriter
}

// ProductCatalog reads and upserts products
type ProductCatalog interface {
	ports.Catalog
	ports.ProductWriter
}

// CatalogService syncs restaurants and menu items into the engine's read
// model. Rating aggregates are owned by RatingService and survive upserts;
// an upsert that races a rating update re-reads and retries.
type CatalogService struct {
	restaurants RestaurantCatalog
	products    ProductCatalog
	log         *logger.Logger
	opts        Options
}

// NewCatalogService creates a new catalog service
func NewCatalogService(restaurants RestaurantCatalog, products ProductCatalog, log *logger.Logger, opts Options) *CatalogService {
	return &CatalogService{
		restaurants: restaurants,
		products:    products,
		log:         log,
		opts:        opts.withDefaults(),
	}
}

// UpsertRestaurantInput is the input for UpsertRestaurant. An empty ID
// creates a new restaurant.
type UpsertRestaurantInput struct {
	ID          string
	MerchantID  string
	Name        string
	Description string
	Categories  []string
	Latitude    float64
	Longitude   float64
	Address     domain.Address
	Hours       domain.Schedule
	IsActive    bool
}

// UpsertRestaurant validates and stores a restaurant
func (s *CatalogService) UpsertRestaurant(ctx context.Context, input UpsertRestaurantInput) (*domain.Restaurant, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.NewValidation("name is required", nil)
	}
	location, err := domain.NewGeoPoint(input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}
	if err := input.Address.Validate(); err != nil {
		return nil, err
	}
	for _, h := range input.Hours {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}

	id := input.ID
	if id == "" {
		id = s.opts.NewID()
	}

	restaurant, err := retryOnConflict(ctx, s.opts.Retry, func() (*domain.Restaurant, error) {
		now := s.opts.Now()
		restaurant := &domain.Restaurant{
			ID:          id,
			MerchantID:  input.MerchantID,
			Name:        strings.TrimSpace(input.Name),
			Description: input.Description,
			Categories:  normalizeCategories(input.Categories),
			Location:    location,
			Address:     input.Address,
			Hours:       input.Hours,
			IsActive:    input.IsActive,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		var expected int64
		if input.ID != "" {
			existing, err := s.restaurants.GetRestaurant(ctx, id)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				expected = existing.Version
				restaurant.Rating = existing.Rating
				restaurant.TotalReviews = existing.TotalReviews
				restaurant.Version = existing.Version + 1
				restaurant.CreatedAt = existing.CreatedAt
			}
		}

		if err := s.restaurants.SaveRestaurant(ctx, restaurant, expected); err != nil {
			return nil, err
		}
		return restaurant, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("restaurant upserted",
		zap.String("restaurant_id", restaurant.ID),
		zap.Bool("active", restaurant.IsActive),
	)
	return restaurant, nil
}

// UpsertProductInput is the input for UpsertProduct. Price is a decimal
// string such as "12.50".
type UpsertProductInput struct {
	ID           string
	RestaurantID string
	Name         string
	Description  string
	Category     string
	Price        string
	Currency     string
	Available    bool
}

// UpsertProduct validates and stores a menu item of an existing restaurant
func (s *CatalogService) UpsertProduct(ctx context.Context, input UpsertProductInput) (*domain.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.NewValidation("name is required", nil)
	}
	price, err := domain.ParseMoney(input.Price, input.Currency)
	if err != nil {
		return nil, err
	}
	restaurant, err := s.restaurants.GetRestaurant(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, domain.NewRestaurantNotFound(input.RestaurantID)
	}

	id := input.ID
	if id == "" {
		id = s.opts.NewID()
	}

	product, err := retryOnConflict(ctx, s.opts.Retry, func() (*domain.Product, error) {
		now := s.opts.Now()
		product := &domain.Product{
			ID:           id,
			RestaurantID: input.RestaurantID,
			Name:         strings.TrimSpace(input.Name),
			Description:  input.Description,
			Category:     strings.ToLower(strings.TrimSpace(input.Category)),
			UnitPrice:    price,
			Available:    input.Available,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		var expected int64
		if input.ID != "" {
			existing, err := s.products.GetProduct(ctx, id)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				if existing.RestaurantID != input.RestaurantID {
					return nil, domain.NewProductNotInRestaurant(id, input.RestaurantID)
				}
				expected = existing.Version
				product.Rating = existing.Rating
				product.TotalReviews = existing.TotalReviews
				product.Version = existing.Version + 1
				product.CreatedAt = existing.CreatedAt
			}
		}

		if err := s.products.SaveProduct(ctx, product, expected); err != nil {
			return nil, err
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("product upserted",
		zap.String("product_id", product.ID),
		zap.String("restaurant_id", product.RestaurantID),
		zap.String("price", price.String()),
	)
	return product, nil
}

// GetRestaurant returns a restaurant by ID
func (s *CatalogService) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	restaurant, err := s.restaurants.GetRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, domain.NewRestaurantNotFound(id)
	}
	return restaurant, nil
}

func normalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

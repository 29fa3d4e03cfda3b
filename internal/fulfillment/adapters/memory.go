package adapters

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	apperrors "go-marketplace/pkg/errors"
)

// MemoryOrderStore implements ports.OrderStore in process memory. It backs
// the "memory" storage driver and local development.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewMemoryOrderStore creates an empty order store
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]domain.Order)}
}

// Create stores a new order
func (s *MemoryOrderStore) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return apperrors.NewConflict("order already exists").WithDetails(map[string]interface{}{"order_id": order.ID})
	}
	s.orders[order.ID] = copyOrder(*order)
	return nil
}

// FindByID returns a copy of the stored order
func (s *MemoryOrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	out := copyOrder(order)
	return &out, nil
}

// CompareAndSwap replaces the order if its version still equals expectedVersion
func (s *MemoryOrderStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutated domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFound(id)
	}
	if current.Version != expectedVersion {
		return nil, domain.ErrVersionConflict.WithDetails(map[string]interface{}{
			"order_id":         id,
			"expected_version": expectedVersion,
			"current_version":  current.Version,
		})
	}

	mutated.ID = id
	mutated.Version = expectedVersion + 1
	s.orders[id] = copyOrder(mutated)

	out := copyOrder(mutated)
	return &out, nil
}

// ListByCustomer returns a newest-first page of a customer's orders
func (s *MemoryOrderStore) ListByCustomer(ctx context.Context, customerID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	return s.page(func(o domain.Order) bool { return o.CustomerID == customerID }, status, offset, limit), nil
}

// ListByRestaurant returns a newest-first page of a restaurant's orders
func (s *MemoryOrderStore) ListByRestaurant(ctx context.Context, restaurantID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	return s.page(func(o domain.Order) bool { return o.RestaurantID == restaurantID }, status, offset, limit), nil
}

// DeliveredSince returns the restaurant's delivered orders created at or after since
func (s *MemoryOrderStore) DeliveredSince(ctx context.Context, restaurantID string, since time.Time) ([]*domain.Order, error) {
	delivered := domain.OrderStatusDelivered
	matched := s.match(func(o domain.Order) bool {
		return o.RestaurantID == restaurantID && !o.CreatedAt.Before(since)
	}, &delivered)

	out := make([]*domain.Order, len(matched))
	for i := range matched {
		out[i] = &matched[i]
	}
	return out, nil
}

func (s *MemoryOrderStore) match(keep func(domain.Order) bool, status *domain.OrderStatus) []domain.Order {
	s.mu.RLock()
	var matched []domain.Order
	for _, o := range s.orders {
		if !keep(o) {
			continue
		}
		if status != nil && o.Status != *status {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func (s *MemoryOrderStore) page(keep func(domain.Order) bool, status *domain.OrderStatus, offset, limit int) *ports.OrderPage {
	matched := s.match(keep, status)

	page := &ports.OrderPage{Total: int64(len(matched)), Orders: []*domain.Order{}}
	if offset < 0 || offset >= len(matched) {
		return page
	}
	end := len(matched)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	for i := offset; i < end; i++ {
		page.Orders = append(page.Orders, &matched[i])
	}
	return page
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderLineItem(nil), o.Items...)
	if o.EstimatedDeliveryTime != nil {
		t := *o.EstimatedDeliveryTime
		o.EstimatedDeliveryTime = &t
	}
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		o.ActualDeliveryTime = &t
	}
	return o
}

// MemoryCatalog implements ports.Catalog in process memory
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewMemoryCatalog creates a catalog holding products
func NewMemoryCatalog(products ...*domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]domain.Product)}
	for _, p := range products {
		c.products[p.ID] = *p
	}
	return c
}

// SaveProduct inserts a product at expectedVersion 0 or rewrites its catalog
// fields, keeping the stored rating
func (c *MemoryCatalog) SaveProduct(ctx context.Context, product *domain.Product, expectedVersion int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.products[product.ID]
	next := *product
	switch {
	case expectedVersion == 0:
		if ok {
			return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"product_id": product.ID})
		}
	case !ok:
		return domain.NewProductNotFound(product.ID)
	case current.Version != expectedVersion:
		return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"product_id": product.ID})
	default:
		next.Rating = current.Rating
		next.TotalReviews = current.TotalReviews
		next.CreatedAt = current.CreatedAt
		next.Version = expectedVersion + 1
	}
	c.products[product.ID] = next
	return nil
}

// GetProduct returns a copy of the product
func (c *MemoryCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpdateProductRating writes the rating aggregate if the version still matches
func (c *MemoryCatalog) UpdateProductRating(ctx context.Context, id string, expectedVersion int64, rating float64, totalReviews int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return domain.NewProductNotFound(id)
	}
	if p.Version != expectedVersion {
		return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"product_id": id})
	}
	p.Rating = rating
	p.TotalReviews = totalReviews
	p.Version++
	c.products[id] = p
	return nil
}

// MemoryRestaurants implements ports.RestaurantLookup and
// ports.RestaurantQuery in process memory
type MemoryRestaurants struct {
	mu          sync.RWMutex
	restaurants map[string]domain.Restaurant
}

// NewMemoryRestaurants creates a store holding restaurants
func NewMemoryRestaurants(restaurants ...*domain.Restaurant) *MemoryRestaurants {
	m := &MemoryRestaurants{restaurants: make(map[string]domain.Restaurant)}
	for _, r := range restaurants {
		m.restaurants[r.ID] = copyRestaurant(*r)
	}
	return m
}

// SaveRestaurant inserts a restaurant at expectedVersion 0 or rewrites its
// catalog fields, keeping the stored rating
func (m *MemoryRestaurants) SaveRestaurant(ctx context.Context, restaurant *domain.Restaurant, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.restaurants[restaurant.ID]
	next := copyRestaurant(*restaurant)
	switch {
	case expectedVersion == 0:
		if ok {
			return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"restaurant_id": restaurant.ID})
		}
	case !ok:
		return domain.NewRestaurantNotFound(restaurant.ID)
	case current.Version != expectedVersion:
		return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"restaurant_id": restaurant.ID})
	default:
		next.Rating = current.Rating
		next.TotalReviews = current.TotalReviews
		next.CreatedAt = current.CreatedAt
		next.Version = expectedVersion + 1
	}
	m.restaurants[restaurant.ID] = next
	return nil
}

// GetRestaurant returns a copy of the restaurant
func (m *MemoryRestaurants) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.restaurants[id]
	if !ok {
		return nil, nil
	}
	out := copyRestaurant(r)
	return &out, nil
}

// UpdateRating writes the rating aggregate if the version still matches
func (m *MemoryRestaurants) UpdateRating(ctx context.Context, id string, expectedVersion int64, rating float64, totalReviews int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.restaurants[id]
	if !ok {
		return domain.NewRestaurantNotFound(id)
	}
	if r.Version != expectedVersion {
		return domain.ErrVersionConflict.WithDetails(map[string]interface{}{"restaurant_id": id})
	}
	r.Rating = rating
	r.TotalReviews = totalReviews
	r.Version++
	m.restaurants[id] = r
	return nil
}

// ListCandidates returns restaurants inside the filter's bounding box
func (m *MemoryRestaurants) ListCandidates(ctx context.Context, filter ports.CandidateFilter) ([]*domain.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Restaurant
	for _, r := range m.restaurants {
		if !filter.Box.Contains(r.Location) {
			continue
		}
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		if r.Rating < filter.MinRating || !r.HasAnyCategory(filter.Categories) {
			continue
		}
		c := copyRestaurant(r)
		out = append(out, &c)
	}
	return out, nil
}

func copyRestaurant(r domain.Restaurant) domain.Restaurant {
	r.Categories = append([]string(nil), r.Categories...)
	r.Hours = append(domain.Schedule(nil), r.Hours...)
	return r
}

// MemoryReviewStore implements ports.ReviewStore in process memory
type MemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	byOrder map[string]string
}

// NewMemoryReviewStore creates an empty review store
func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{
		reviews: make(map[string]domain.Review),
		byOrder: make(map[string]string),
	}
}

// Create stores a review; an order can only be reviewed once
func (s *MemoryReviewStore) Create(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrder[review.OrderID]; ok {
		return domain.ErrDuplicateReview.WithDetails(map[string]interface{}{"order_id": review.OrderID})
	}
	r := *review
	r.Images = append([]string(nil), review.Images...)
	s.reviews[r.ID] = r
	s.byOrder[r.OrderID] = r.ID
	return nil
}

// FindByID returns the review
func (s *MemoryReviewStore) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// FindByOrderID returns the review of an order
func (s *MemoryReviewStore) FindByOrderID(ctx context.Context, orderID string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	r := s.reviews[id]
	return &r, nil
}

// Delete removes a review
func (s *MemoryReviewStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return domain.NewReviewNotFound(id)
	}
	delete(s.reviews, id)
	delete(s.byOrder, r.OrderID)
	return nil
}

// RatingsByRestaurant returns every stored rating of a restaurant
func (s *MemoryReviewStore) RatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ratings []int
	for _, r := range s.reviews {
		if r.RestaurantID == restaurantID {
			ratings = append(ratings, r.Rating)
		}
	}
	return ratings, nil
}

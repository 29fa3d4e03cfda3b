package ports

import (
	"context"
	"time"

	"go-marketplace/internal/fulfillment/domain"
)

// Catalog resolves products for pricing and carries product ratings
type Catalog interface {
	// GetProduct returns nil, nil when the product does not exist
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// UpdateProductRating writes a new aggregate if the product is still at
	// expectedVersion; otherwise it returns a CONFLICT error
	UpdateProductRating(ctx context.Context, id string, expectedVersion int64, rating float64, totalReviews int) error
}

// RestaurantLookup resolves restaurants and carries restaurant ratings
type RestaurantLookup interface {
	// GetRestaurant returns nil, nil when the restaurant does not exist
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)

	// UpdateRating writes a new aggregate if the restaurant is still at
	// expectedVersion; otherwise it returns a CONFLICT error
	UpdateRating(ctx context.Context, id string, expectedVersion int64, rating float64, totalReviews int) error
}

// CandidateFilter narrows the restaurants a RestaurantQuery returns.
// Stores may use Box as a coarse prefilter; exact radius checks happen in
// the discovery service.
type CandidateFilter struct {
	Box        domain.BoundingBox
	ActiveOnly bool
	Categories []string
	MinRating  float64
}

// RestaurantQuery is the read source for discovery
type RestaurantQuery interface {
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]*domain.Restaurant, error)
}

// OrderPage is one page of a customer's orders
type OrderPage struct {
	Orders []*domain.Order
	Total  int64
}

// OrderStore persists order snapshots with optimistic concurrency
type OrderStore interface {
	// Create stores a new order
	Create(ctx context.Context, order *domain.Order) error

	// FindByID returns nil, nil when the order does not exist
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// CompareAndSwap replaces the order if its stored version still equals
	// expectedVersion. The returned snapshot carries the new version.
	// A stale expectedVersion yields a CONFLICT error.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutated domain.Order) (*domain.Order, error)

	// ListByCustomer returns newest-first orders for a customer
	ListByCustomer(ctx context.Context, customerID string, status *domain.OrderStatus, offset, limit int) (*OrderPage, error)

	// ListByRestaurant returns newest-first orders placed with a restaurant
	ListByRestaurant(ctx context.Context, restaurantID string, status *domain.OrderStatus, offset, limit int) (*OrderPage, error)

	// DeliveredSince returns the restaurant's DELIVERED orders created at or
	// after since
	DeliveredSince(ctx context.Context, restaurantID string, since time.Time) ([]*domain.Order, error)
}

// ReviewStore persists reviews
type ReviewStore interface {
	// Create fails with DUPLICATE_REVIEW when the order already has a review
	Create(ctx context.Context, review *domain.Review) error

	// FindByID returns nil, nil when the review does not exist
	FindByID(ctx context.Context, id string) (*domain.Review, error)

	// FindByOrderID returns nil, nil when the order has no review
	FindByOrderID(ctx context.Context, orderID string) (*domain.Review, error)

	Delete(ctx context.Context, id string) error

	// RatingsByRestaurant returns every stored rating for the restaurant
	RatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error)
}

// TemplateKind selects the message a Notifier renders
type TemplateKind string

const (
	TemplateNewOrder          TemplateKind = "NEW_ORDER"
	TemplateOrderCreated      TemplateKind = "ORDER_CREATED"
	TemplateOrderConfirmed    TemplateKind = "ORDER_CONFIRMED"
	TemplateOrderPreparing    TemplateKind = "ORDER_PREPARING"
	TemplateOrderReady        TemplateKind = "ORDER_READY"
	TemplateOrderOnDelivery   TemplateKind = "ORDER_ON_DELIVERY"
	TemplateOrderDelivered    TemplateKind = "ORDER_DELIVERED"
	TemplateOrderCancelled    TemplateKind = "ORDER_CANCELLED"
	TemplateNewReview         TemplateKind = "NEW_REVIEW"
	TemplatePaymentConfirmed  TemplateKind = "PAYMENT_CONFIRMED"
	TemplatePaymentFailed     TemplateKind = "PAYMENT_FAILED"
	TemplateDeliveryEstimated TemplateKind = "DELIVERY_ESTIMATED"
)

// StatusTemplates maps each reachable non-initial status to its customer template
var StatusTemplates = map[domain.OrderStatus]TemplateKind{
	domain.OrderStatusConfirmed:  TemplateOrderConfirmed,
	domain.OrderStatusPreparing:  TemplateOrderPreparing,
	domain.OrderStatusReady:      TemplateOrderReady,
	domain.OrderStatusOnDelivery: TemplateOrderOnDelivery,
	domain.OrderStatusDelivered:  TemplateOrderDelivered,
	domain.OrderStatusCancelled:  TemplateOrderCancelled,
}

// Notification is the payload handed to a Notifier
type Notification struct {
	OrderID      string                 `json:"order_id,omitempty"`
	RestaurantID string                 `json:"restaurant_id,omitempty"`
	CustomerID   string                 `json:"customer_id,omitempty"`
	Status       string                 `json:"status,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// Notifier dispatches notifications. Callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, kind TemplateKind, payload Notification) error
}

// StatusChange is one entry of an order's status history
type StatusChange struct {
	OrderID   string
	From      domain.OrderStatus
	To        domain.OrderStatus
	Version   int64
	ChangedAt time.Time
}

// StatusHistory is an append-only log of order status transitions
type StatusHistory interface {
	Append(ctx context.Context, change StatusChange) error
	ListByOrder(ctx context.Context, orderID string) ([]StatusChange, error)
}

// SearchCache stores serialized discovery pages
type SearchCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RestaurantWriter upserts restaurants synced from the merchant catalog
type RestaurantWriter interface {
	// SaveRestaurant inserts the restaurant when expectedVersion is 0. Otherwise
	// it rewrites the catalog fields and bumps the version if the stored
	// version still equals expectedVersion. Rating columns are only written on
	// insert. A lost race yields a CONFLICT error.
	SaveRestaurant(ctx context.Context, restaurant *domain.Restaurant, expectedVersion int64) error
}

// ProductWriter upserts products synced from the merchant catalog
type ProductWriter interface {
	// SaveProduct follows the same contract as RestaurantWriter.SaveRestaurant
	SaveProduct(ctx context.Context, product *domain.Product, expectedVersion int64) error
}

package application

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/logger"
)

// maxCatalogFanout caps concurrent product lookups per order
const maxCatalogFanout = 8

// Options tunes the engine services
type Options struct {
	Retry               RetryConfig
	EnforceOpeningHours bool
	DefaultPageLimit    int
	MaxPageLimit        int

	// Now and NewID default to time.Now and uuid strings
	Now   func() time.Time
	NewID func() string
}

// DefaultOptions returns production defaults
func DefaultOptions() Options {
	return Options{
		Retry:               DefaultRetryConfig(),
		EnforceOpeningHours: true,
		DefaultPageLimit:    20,
		MaxPageLimit:        100,
	}
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	if o.DefaultPageLimit < 1 {
		o.DefaultPageLimit = 20
	}
	if o.MaxPageLimit < o.DefaultPageLimit {
		o.MaxPageLimit = o.DefaultPageLimit
	}
	if o.Retry.MaxAttempts < 1 {
		o.Retry = DefaultRetryConfig()
	}
	return o
}

// FulfillmentService creates orders and drives them through their lifecycle
type FulfillmentService struct {
	orders      ports.OrderStore
	catalog     ports.Catalog
	restaurants ports.RestaurantLookup
	notifier    ports.Notifier
	history     ports.StatusHistory
	log         *logger.Logger
	opts        Options
}

// NewFulfillmentService creates a new fulfillment service.
// notifier and history may be nil.
func NewFulfillmentService(
	orders ports.OrderStore,
	catalog ports.Catalog,
	restaurants ports.RestaurantLookup,
	notifier ports.Notifier,
	history ports.StatusHistory,
	log *logger.Logger,
	opts Options,
) *FulfillmentService {
	return &FulfillmentService{
		orders:      orders,
		catalog:     catalog,
		restaurants: restaurants,
		notifier:    notifier,
		history:     history,
		log:         log,
		opts:        opts.withDefaults(),
	}
}

// CreateOrderItem is one requested cart line
type CreateOrderItem struct {
	ProductID string
	Quantity  int
	Notes     string
}

// CreateOrderInput represents the input for creating an order
type CreateOrderInput struct {
	CustomerID      string
	RestaurantID    string
	Items           []CreateOrderItem
	DeliveryAddress domain.Address
	PaymentMethod   string
	Notes           string
}

// CreateOrderOutput represents the output of creating an order
type CreateOrderOutput struct {
	Order *domain.Order
}

// CreateOrder prices a cart against the catalog and stores it as a PENDING order
func (s *FulfillmentService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderOutput, error) {
	if input.CustomerID == "" {
		return nil, domain.ErrCustomerIDRequired
	}
	if input.RestaurantID == "" {
		return nil, domain.ErrRestaurantIDNeeded
	}

	restaurant, err := s.restaurants.GetRestaurant(ctx, input.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load restaurant")
	}
	if restaurant == nil {
		return nil, domain.NewRestaurantNotFound(input.RestaurantID)
	}
	now := s.opts.Now()
	if !restaurant.IsActive || (s.opts.EnforceOpeningHours && !restaurant.AcceptsOrdersAt(now)) {
		return nil, domain.NewRestaurantInactive(restaurant.ID)
	}

	for _, line := range input.Items {
		if line.ProductID == "" {
			return nil, errors.NewValidation("product_id is required", nil)
		}
		if line.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity.WithDetails(map[string]interface{}{
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			})
		}
	}
	requested := mergeCartLines(input.Items)
	if len(requested) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	products, err := s.fetchProducts(ctx, requested)
	if err != nil {
		return nil, err
	}

	// Evaluate in cart order so the reported failure is deterministic.
	items := make([]domain.OrderLineItem, 0, len(requested))
	for i, line := range requested {
		product := products[i]
		if product == nil {
			return nil, domain.NewProductNotFound(line.ProductID)
		}
		if err := product.CheckOrderable(restaurant.ID); err != nil {
			return nil, err
		}
		item, err := domain.NewOrderLineItem(product, line.Quantity, line.Notes)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	order, err := domain.NewOrder(
		s.opts.NewID(),
		input.CustomerID,
		restaurant.ID,
		items,
		input.DeliveryAddress,
		input.PaymentMethod,
		input.Notes,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	s.recordTransition(ctx, order.ID, "", order.Status, order.Version, now)

	payload := ports.Notification{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		Status:       string(order.Status),
		Data: map[string]interface{}{
			"total":      order.TotalPrice.String(),
			"item_count": len(order.Items),
		},
	}
	s.notify(ctx, restaurant.ID, ports.TemplateNewOrder, payload)
	s.notify(ctx, order.CustomerID, ports.TemplateOrderCreated, payload)

	s.log.WithContext(ctx).Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.String("total", order.TotalPrice.String()),
	)

	return &CreateOrderOutput{Order: order}, nil
}

// mergeCartLines folds repeated products into one line, keeping first-seen order
func mergeCartLines(lines []CreateOrderItem) []CreateOrderItem {
	merged := make([]CreateOrderItem, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// fetchProducts resolves every cart line concurrently. A missing product
// leaves a nil slot; lookup failures abort the whole batch.
func (s *FulfillmentService) fetchProducts(ctx context.Context, lines []CreateOrderItem) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCatalogFanout)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			p, err := s.catalog.GetProduct(gctx, line.ProductID)
			if err != nil {
				return errors.Wrap(err, "failed to load product "+line.ProductID)
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateOrderStatusInput represents the input for a status transition
type UpdateOrderStatusInput struct {
	OrderID string
	Status  domain.OrderStatus
}

// OrderOutput wraps a single order result
type OrderOutput struct {
	Order *domain.Order
}

// UpdateOrderStatus applies a lifecycle transition and notifies the customer
func (s *FulfillmentService) UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*OrderOutput, error) {
	if _, err := domain.ParseOrderStatus(string(input.Status)); err != nil {
		return nil, err
	}

	var from domain.OrderStatus
	updated, err := s.mutate(ctx, input.OrderID, func(o domain.Order, at time.Time) (domain.Order, error) {
		from = o.Status
		return o.TransitionTo(input.Status, at)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, updated.ID, from, updated.Status, updated.Version, updated.UpdatedAt)

	if kind, ok := ports.StatusTemplates[updated.Status]; ok {
		s.notify(ctx, updated.CustomerID, kind, ports.Notification{
			OrderID:      updated.ID,
			RestaurantID: updated.RestaurantID,
			CustomerID:   updated.CustomerID,
			Status:       string(updated.Status),
		})
	}

	s.log.WithContext(ctx).Info("order status updated",
		zap.String("order_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.Int64("version", updated.Version),
	)

	return &OrderOutput{Order: updated}, nil
}

// AddItemInput represents a line added to a pending order
type AddItemInput struct {
	OrderID   string
	ProductID string
	Quantity  int
	Notes     string
}

// AddItem snapshots the product's current price onto a pending order
func (s *FulfillmentService) AddItem(ctx context.Context, input AddItemInput) (*OrderOutput, error) {
	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load product")
	}
	if product == nil {
		return nil, domain.NewProductNotFound(input.ProductID)
	}
	item, err := domain.NewOrderLineItem(product, input.Quantity, input.Notes)
	if err != nil {
		return nil, err
	}

	updated, err := s.mutate(ctx, input.OrderID, func(o domain.Order, at time.Time) (domain.Order, error) {
		if err := product.CheckOrderable(o.RestaurantID); err != nil {
			return domain.Order{}, err
		}
		return o.AddItem(item, at)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("order item added",
		zap.String("order_id", updated.ID),
		zap.String("product_id", input.ProductID),
		zap.String("total", updated.TotalPrice.String()),
	)
	return &OrderOutput{Order: updated}, nil
}

// RemoveItem drops a line from a pending order
func (s *FulfillmentService) RemoveItem(ctx context.Context, orderID, productID string) (*OrderOutput, error) {
	updated, err := s.mutate(ctx, orderID, func(o domain.Order, at time.Time) (domain.Order, error) {
		return o.RemoveItem(productID, at)
	})
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: updated}, nil
}

// UpdateItemQuantity changes a line's quantity on a pending order
func (s *FulfillmentService) UpdateItemQuantity(ctx context.Context, orderID, productID string, quantity int) (*OrderOutput, error) {
	updated, err := s.mutate(ctx, orderID, func(o domain.Order, at time.Time) (domain.Order, error) {
		return o.UpdateItemQuantity(productID, quantity, at)
	})
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: updated}, nil
}

// UpdatePaymentStatus records a payment outcome reported by the payment provider
func (s *FulfillmentService) UpdatePaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (*OrderOutput, error) {
	if _, err := domain.ParsePaymentStatus(string(status)); err != nil {
		return nil, err
	}

	var previous domain.PaymentStatus
	updated, err := s.mutate(ctx, orderID, func(o domain.Order, at time.Time) (domain.Order, error) {
		previous = o.PaymentStatus
		return o.WithPaymentStatus(status, at)
	})
	if err != nil {
		return nil, err
	}

	if previous != updated.PaymentStatus {
		kind := ports.TemplatePaymentFailed
		if updated.PaymentStatus == domain.PaymentStatusPaid {
			kind = ports.TemplatePaymentConfirmed
		}
		if updated.PaymentStatus != domain.PaymentStatusPending {
			s.notify(ctx, updated.CustomerID, kind, ports.Notification{
				OrderID:    updated.ID,
				CustomerID: updated.CustomerID,
				Status:     string(updated.PaymentStatus),
			})
		}
	}

	s.log.WithContext(ctx).Info("payment status updated",
		zap.String("order_id", updated.ID),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)
	return &OrderOutput{Order: updated}, nil
}

// SetEstimatedDeliveryTime records the promised delivery time
func (s *FulfillmentService) SetEstimatedDeliveryTime(ctx context.Context, orderID string, eta time.Time) (*OrderOutput, error) {
	updated, err := s.mutate(ctx, orderID, func(o domain.Order, at time.Time) (domain.Order, error) {
		return o.WithEstimatedDeliveryTime(eta, at)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated.CustomerID, ports.TemplateDeliveryEstimated, ports.Notification{
		OrderID:    updated.ID,
		CustomerID: updated.CustomerID,
		Status:     string(updated.Status),
		Data:       map[string]interface{}{"estimated_delivery_time": eta.Format(time.RFC3339)},
	})
	return &OrderOutput{Order: updated}, nil
}

// GetOrder retrieves an order by ID
func (s *FulfillmentService) GetOrder(ctx context.Context, orderID string) (*OrderOutput, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: order}, nil
}

// ListCustomerOrdersInput selects one page of a customer's orders
type ListCustomerOrdersInput struct {
	CustomerID string
	Status     *domain.OrderStatus
	Page       int
	Limit      int
}

// ListCustomerOrdersOutput is one page of orders
type ListCustomerOrdersOutput struct {
	Orders     []*domain.Order
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// ListCustomerOrders pages through a customer's orders, newest first
func (s *FulfillmentService) ListCustomerOrders(ctx context.Context, input ListCustomerOrdersInput) (*ListCustomerOrdersOutput, error) {
	if input.CustomerID == "" {
		return nil, domain.ErrCustomerIDRequired
	}
	if input.Status != nil {
		if _, err := domain.ParseOrderStatus(string(*input.Status)); err != nil {
			return nil, err
		}
	}
	page, limit := normalizePage(input.Page, input.Limit, s.opts.DefaultPageLimit, s.opts.MaxPageLimit)

	result, err := s.orders.ListByCustomer(ctx, input.CustomerID, input.Status, (page-1)*limit, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return &ListCustomerOrdersOutput{
		Orders:     result.Orders,
		Page:       page,
		Limit:      limit,
		Total:      result.Total,
		TotalPages: totalPages(int(result.Total), limit),
	}, nil
}

// RevenueWindow is how far back ListRestaurantOrders sums delivered revenue
const RevenueWindow = 30 * 24 * time.Hour

// ListRestaurantOrdersInput selects one page of a restaurant's orders
type ListRestaurantOrdersInput struct {
	RestaurantID string
	Status       *domain.OrderStatus
	Page         int
	Limit        int
}

// RestaurantOrderStats summarises a restaurant's order book. Revenue and
// AverageOrderValue cover DELIVERED orders created within RevenueWindow and
// are nil when there are none.
type RestaurantOrderStats struct {
	Revenue           *domain.Money
	AverageOrderValue *domain.Money
	DeliveredInWindow int
	PendingOrders     int64
	CompletedOrders   int64
}

// ListRestaurantOrdersOutput is one page of a restaurant's orders plus stats
type ListRestaurantOrdersOutput struct {
	Orders     []*domain.Order
	Page       int
	Limit      int
	Total      int64
	TotalPages int
	Stats      RestaurantOrderStats
}

// ListRestaurantOrders pages through the orders placed with a restaurant,
// newest first, and computes its order stats
func (s *FulfillmentService) ListRestaurantOrders(ctx context.Context, input ListRestaurantOrdersInput) (*ListRestaurantOrdersOutput, error) {
	if input.Status != nil {
		if _, err := domain.ParseOrderStatus(string(*input.Status)); err != nil {
			return nil, err
		}
	}
	restaurant, err := s.restaurants.GetRestaurant(ctx, input.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load restaurant")
	}
	if restaurant == nil {
		return nil, domain.NewRestaurantNotFound(input.RestaurantID)
	}
	page, limit := normalizePage(input.Page, input.Limit, s.opts.DefaultPageLimit, s.opts.MaxPageLimit)

	var (
		result    *ports.OrderPage
		delivered []*domain.Order
		pending   *ports.OrderPage
		completed *ports.OrderPage
	)
	pendingStatus := domain.OrderStatusPending
	deliveredStatus := domain.OrderStatusDelivered
	since := s.opts.Now().Add(-RevenueWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		result, err = s.orders.ListByRestaurant(gctx, restaurant.ID, input.Status, (page-1)*limit, limit)
		return err
	})
	g.Go(func() (err error) {
		delivered, err = s.orders.DeliveredSince(gctx, restaurant.ID, since)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.orders.ListByRestaurant(gctx, restaurant.ID, &pendingStatus, 0, 1)
		return err
	})
	g.Go(func() (err error) {
		completed, err = s.orders.ListByRestaurant(gctx, restaurant.ID, &deliveredStatus, 0, 1)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to list restaurant orders")
	}

	stats, err := revenueStats(delivered)
	if err != nil {
		return nil, err
	}
	stats.PendingOrders = pending.Total
	stats.CompletedOrders = completed.Total

	return &ListRestaurantOrdersOutput{
		Orders:     result.Orders,
		Page:       page,
		Limit:      limit,
		Total:      result.Total,
		TotalPages: totalPages(int(result.Total), limit),
		Stats:      stats,
	}, nil
}

// revenueStats sums order totals. Orders in different currencies are a
// CURRENCY_MISMATCH error.
func revenueStats(orders []*domain.Order) (RestaurantOrderStats, error) {
	stats := RestaurantOrderStats{DeliveredInWindow: len(orders)}
	if len(orders) == 0 {
		return stats, nil
	}

	revenue := orders[0].TotalPrice
	for _, o := range orders[1:] {
		var err error
		if revenue, err = revenue.Add(o.TotalPrice); err != nil {
			return stats, err
		}
	}
	avg, err := domain.NewMoney(
		revenue.Amount().DivRound(decimal.NewFromInt(int64(len(orders))), 2),
		revenue.Currency(),
	)
	if err != nil {
		return stats, err
	}

	stats.Revenue = &revenue
	stats.AverageOrderValue = &avg
	return stats, nil
}

// OrderHistory returns the recorded status transitions of an order
func (s *FulfillmentService) OrderHistory(ctx context.Context, orderID string) ([]ports.StatusChange, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []ports.StatusChange{}, nil
	}
	changes, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read status history")
	}
	return changes, nil
}

func (s *FulfillmentService) load(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load order")
	}
	if order == nil {
		return nil, domain.NewOrderNotFound(orderID)
	}
	return order, nil
}

// mutate runs one guarded read-modify-write on an order, re-reading and
// retrying when another writer got there first.
func (s *FulfillmentService) mutate(ctx context.Context, orderID string, fn func(domain.Order, time.Time) (domain.Order, error)) (*domain.Order, error) {
	return retryOnConflict(ctx, s.opts.Retry, func() (*domain.Order, error) {
		current, err := s.load(ctx, orderID)
		if err != nil {
			return nil, err
		}
		next, err := fn(*current, s.opts.Now())
		if err != nil {
			return nil, err
		}
		saved, err := s.orders.CompareAndSwap(ctx, orderID, current.Version, next)
		if err != nil {
			if errors.Is(err, errors.CodeConflict) {
				s.log.WithContext(ctx).Debug("order version conflict, retrying",
					zap.String("order_id", orderID),
					zap.Int64("expected_version", current.Version),
				)
				return nil, err
			}
			return nil, errors.Wrap(err, "failed to save order")
		}
		return saved, nil
	})
}

func (s *FulfillmentService) notify(ctx context.Context, recipientID string, kind ports.TemplateKind, payload ports.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, kind, payload); err != nil {
		s.log.WithContext(ctx).Warn("failed to send notification",
			zap.Error(err),
			zap.String("recipient_id", recipientID),
			zap.String("template", string(kind)),
			zap.String("order_id", payload.OrderID),
		)
	}
}

func (s *FulfillmentService) recordTransition(ctx context.Context, orderID string, from, to domain.OrderStatus, version int64, at time.Time) {
	if s.history == nil {
		return
	}
	change := ports.StatusChange{OrderID: orderID, From: from, To: to, Version: version, ChangedAt: at}
	if err := s.history.Append(ctx, change); err != nil {
		s.log.WithContext(ctx).Warn("failed to record status change",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("to", string(to)),
		)
	}
}

func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// keep (page-1)*limit from overflowing
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if total == 0 || limit == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

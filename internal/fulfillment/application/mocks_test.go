package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/errors"
)

// MockOrderStore is an in-memory OrderStore with version checks
type MockOrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	// beforeSwap runs once per CompareAndSwap call, outside the lock
	beforeSwap func(id string)
	swapCalls  int
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[string]domain.Order)}
}

func (m *MockOrderStore) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return errors.NewConflict("order already exists")
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *MockOrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *MockOrderStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutated domain.Order) (*domain.Order, error) {
	if m.beforeSwap != nil {
		m.beforeSwap(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapCalls++
	current, ok := m.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFound(id)
	}
	if current.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	mutated.Version = expectedVersion + 1
	m.orders[id] = mutated
	return &mutated, nil
}

func (m *MockOrderStore) ListByCustomer(ctx context.Context, customerID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	return m.list(func(o domain.Order) bool { return o.CustomerID == customerID }, status, offset, limit), nil
}

func (m *MockOrderStore) ListByRestaurant(ctx context.Context, restaurantID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	return m.list(func(o domain.Order) bool { return o.RestaurantID == restaurantID }, status, offset, limit), nil
}

func (m *MockOrderStore) DeliveredSince(ctx context.Context, restaurantID string, since time.Time) ([]*domain.Order, error) {
	delivered := domain.OrderStatusDelivered
	page := m.list(func(o domain.Order) bool {
		return o.RestaurantID == restaurantID && !o.CreatedAt.Before(since)
	}, &delivered, 0, 0)
	return page.Orders, nil
}

// list pages the matching orders newest first; limit 0 returns them all
func (m *MockOrderStore) list(keep func(domain.Order) bool, status *domain.OrderStatus, offset, limit int) *ports.OrderPage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Order
	for _, o := range m.orders {
		if !keep(o) {
			continue
		}
		if status != nil && o.Status != *status {
			continue
		}
		cp := o
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return &ports.OrderPage{Orders: matched[offset:end], Total: total}
}

// bump simulates another writer committing a change
func (m *MockOrderStore) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Version++
	m.orders[id] = o
}

// MockCatalog is a mock Catalog
type MockCatalog struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	err      error

	// beforeSave runs once per SaveProduct call, outside the lock
	beforeSave func()
}

func NewMockCatalog(products ...*domain.Product) *MockCatalog {
	m := &MockCatalog{products: make(map[string]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MockCatalog) UpdateProductRating(ctx context.Context, id string, expectedVersion int64, rating float64, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.NewProductNotFound(id)
	}
	if p.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	p.Rating, p.TotalReviews, p.Version = rating, total, p.Version+1
	return nil
}

func (m *MockCatalog) SaveProduct(ctx context.Context, product *domain.Product, expectedVersion int64) error {
	if m.beforeSave != nil {
		m.beforeSave()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.products[product.ID]
	if (expectedVersion == 0 && ok) || (ok && current.Version != expectedVersion) {
		return domain.ErrVersionConflict
	}
	if expectedVersion != 0 && !ok {
		return domain.NewProductNotFound(product.ID)
	}
	cp := *product
	if ok {
		cp.Rating, cp.TotalReviews, cp.Version = current.Rating, current.TotalReviews, expectedVersion+1
	}
	m.products[product.ID] = &cp
	return nil
}

func (m *MockCatalog) setPrice(id, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].UnitPrice = domain.MustMoney(price, string(m.products[id].UnitPrice.Currency()))
}

// MockRestaurants is a mock RestaurantLookup and RestaurantQuery
type MockRestaurants struct {
	mu          sync.Mutex
	restaurants map[string]*domain.Restaurant
	updateErr   error
	listCalls   int

	// beforeSave runs once per SaveRestaurant call, outside the lock
	beforeSave func()
	// beforeUpdate runs once per UpdateRating call, outside the lock
	beforeUpdate func()
}

func NewMockRestaurants(rs ...*domain.Restaurant) *MockRestaurants {
	m := &MockRestaurants{restaurants: make(map[string]*domain.Restaurant)}
	for _, r := range rs {
		m.restaurants[r.ID] = r
	}
	return m
}

func (m *MockRestaurants) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.restaurants[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockRestaurants) SaveRestaurant(ctx context.Context, restaurant *domain.Restaurant, expectedVersion int64) error {
	if m.beforeSave != nil {
		m.beforeSave()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.restaurants[restaurant.ID]
	if (expectedVersion == 0 && ok) || (ok && current.Version != expectedVersion) {
		return domain.ErrVersionConflict
	}
	if expectedVersion != 0 && !ok {
		return domain.NewRestaurantNotFound(restaurant.ID)
	}
	cp := *restaurant
	if ok {
		cp.Rating, cp.TotalReviews, cp.Version = current.Rating, current.TotalReviews, expectedVersion+1
	}
	m.restaurants[restaurant.ID] = &cp
	return nil
}

func (m *MockRestaurants) UpdateRating(ctx context.Context, id string, expectedVersion int64, rating float64, total int) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.restaurants[id]
	if !ok {
		return domain.NewRestaurantNotFound(id)
	}
	if r.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	r.Rating, r.TotalReviews, r.Version = rating, total, r.Version+1
	return nil
}

func (m *MockRestaurants) ListCandidates(ctx context.Context, filter ports.CandidateFilter) ([]*domain.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := make([]*domain.Restaurant, 0, len(m.restaurants))
	for _, r := range m.restaurants {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// MockReviewStore is a mock ReviewStore
type MockReviewStore struct {
	mu      sync.Mutex
	reviews map[string]*domain.Review

	// afterCreate runs after a successful Create, outside the lock
	afterCreate func(*domain.Review)
}

func NewMockReviewStore() *MockReviewStore {
	return &MockReviewStore{reviews: make(map[string]*domain.Review)}
}

func (m *MockReviewStore) Create(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	for _, r := range m.reviews {
		if r.OrderID == review.OrderID {
			m.mu.Unlock()
			return domain.ErrDuplicateReview
		}
	}
	m.reviews[review.ID] = review
	m.mu.Unlock()

	if m.afterCreate != nil {
		m.afterCreate(review)
	}
	return nil
}

func (m *MockReviewStore) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviews[id], nil
}

func (m *MockReviewStore) FindByOrderID(ctx context.Context, orderID string) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.OrderID == orderID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *MockReviewStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reviews, id)
	return nil
}

func (m *MockReviewStore) RatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, r := range m.reviews {
		if r.RestaurantID == restaurantID {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

type sentNotification struct {
	Recipient string
	Kind      ports.TemplateKind
	Payload   ports.Notification
}

// MockNotifier records notifications and can be told to fail
type MockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (m *MockNotifier) Notify(ctx context.Context, recipientID string, kind ports.TemplateKind, payload ports.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{Recipient: recipientID, Kind: kind, Payload: payload})
	return m.err
}

func (m *MockNotifier) kinds() []ports.TemplateKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.TemplateKind, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Kind
	}
	return out
}

// MockHistory is a mock StatusHistory
type MockHistory struct {
	mu      sync.Mutex
	changes []ports.StatusChange
}

func (m *MockHistory) Append(ctx context.Context, c ports.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, c)
	return nil
}

func (m *MockHistory) ListByOrder(ctx context.Context, orderID string) ([]ports.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.StatusChange
	for _, c := range m.changes {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

// MockSearchCache is a map-backed SearchCache
type MockSearchCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func NewMockSearchCache() *MockSearchCache {
	return &MockSearchCache{entries: make(map[string][]byte)}
}

func (m *MockSearchCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *MockSearchCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// fixedClock returns a clock frozen at t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// sequentialIDs returns prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

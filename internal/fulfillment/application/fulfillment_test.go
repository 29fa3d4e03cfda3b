package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/logger"
)

var testNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) // a Monday

type fulfillmentFixture struct {
	orders      *MockOrderStore
	catalog     *MockCatalog
	restaurants *MockRestaurants
	notifier    *MockNotifier
	history     *MockHistory
	service     *FulfillmentService
}

func newFulfillmentFixture() *fulfillmentFixture {
	f := &fulfillmentFixture{
		orders: NewMockOrderStore(),
		catalog: NewMockCatalog(
			&domain.Product{ID: "p1", RestaurantID: "r1", Name: "Tagine", UnitPrice: domain.MustMoney("10.00", "USD"), Available: true},
			&domain.Product{ID: "p2", RestaurantID: "r1", Name: "Mint tea", UnitPrice: domain.MustMoney("5.50", "USD"), Available: true},
			&domain.Product{ID: "p3", RestaurantID: "r1", Name: "Imported", UnitPrice: domain.MustMoney("3.00", "EUR"), Available: true},
			&domain.Product{ID: "p4", RestaurantID: "r1", Name: "Sold out", UnitPrice: domain.MustMoney("1.00", "USD"), Available: false},
			&domain.Product{ID: "p5", RestaurantID: "r2", Name: "Elsewhere", UnitPrice: domain.MustMoney("1.00", "USD"), Available: true},
		),
		restaurants: NewMockRestaurants(
			&domain.Restaurant{ID: "r1", Name: "Dar Atlas", IsActive: true},
			&domain.Restaurant{ID: "r2", Name: "Closed Kitchen", IsActive: false},
			&domain.Restaurant{ID: "r3", Name: "Weekend Only", IsActive: true, Hours: domain.Schedule{
				{Day: time.Saturday, Open: "10:00", Close: "22:00"},
			}},
		),
		notifier: &MockNotifier{},
		history:  &MockHistory{},
	}
	opts := DefaultOptions()
	opts.Now = fixedClock(testNow)
	opts.NewID = sequentialIDs("order")
	opts.Retry.BaseDelay = 0
	f.service = NewFulfillmentService(f.orders, f.catalog, f.restaurants, f.notifier, f.history, logger.New("test", "debug"), opts)
	return f
}

func validCreateInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerID:   "c1",
		RestaurantID: "r1",
		Items: []CreateOrderItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1, Notes: "no sugar"},
		},
		DeliveryAddress: domain.Address{Street: "1 Main St", City: "Rabat", Country: "MA"},
		PaymentMethod:   "card",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()

	// Act
	output, err := f.service.CreateOrder(context.Background(), validCreateInput())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	order := output.Order
	if order.ID != "order-1" {
		t.Errorf("expected ID order-1, got %s", order.ID)
	}
	if order.TotalPrice.String() != "25.50 USD" {
		t.Errorf("expected total 25.50 USD, got %s", order.TotalPrice)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected status PENDING, got %s", order.Status)
	}
	if order.Items[1].Notes != "no sugar" {
		t.Errorf("expected item notes to be kept, got %q", order.Items[1].Notes)
	}

	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	if stored == nil {
		t.Fatal("expected order to be persisted")
	}

	kinds := f.notifier.kinds()
	if len(kinds) != 2 || kinds[0] != ports.TemplateNewOrder || kinds[1] != ports.TemplateOrderCreated {
		t.Errorf("expected restaurant then customer notification, got %v", kinds)
	}
	if f.notifier.sent[0].Recipient != "r1" || f.notifier.sent[1].Recipient != "c1" {
		t.Errorf("unexpected recipients: %+v", f.notifier.sent)
	}

	if len(f.history.changes) != 1 || f.history.changes[0].To != domain.OrderStatusPending {
		t.Errorf("expected initial PENDING history entry, got %+v", f.history.changes)
	}
}

func TestCreateOrder_TotalEqualsSumOfLines(t *testing.T) {
	quantities := [][2]int{{1, 1}, {3, 7}, {10, 2}, {1, 99}}
	for _, q := range quantities {
		t.Run(fmt.Sprintf("%dx%d", q[0], q[1]), func(t *testing.T) {
			// Arrange
			f := newFulfillmentFixture()
			input := validCreateInput()
			input.Items = []CreateOrderItem{{ProductID: "p1", Quantity: q[0]}, {ProductID: "p2", Quantity: q[1]}}

			// Act
			output, err := f.service.CreateOrder(context.Background(), input)

			// Assert
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			want := domain.MustMoney("10.00", "USD")
			want, _ = want.Multiply(q[0])
			second, _ := domain.MustMoney("5.50", "USD").Multiply(q[1])
			want, _ = want.Add(second)
			if eq, _ := output.Order.TotalPrice.Equals(want); !eq {
				t.Errorf("expected %s, got %s", want, output.Order.TotalPrice)
			}
		})
	}
}

func TestCreateOrder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
		code   string
		reason string
	}{
		{
			name:   "restaurant not found",
			mutate: func(in *CreateOrderInput) { in.RestaurantID = "missing" },
			code:   errors.CodeNotFound,
			reason: domain.ReasonRestaurantNotFound,
		},
		{
			name:   "restaurant inactive",
			mutate: func(in *CreateOrderInput) { in.RestaurantID = "r2" },
			code:   errors.CodeBusinessRule,
			reason: domain.ReasonRestaurantInactive,
		},
		{
			name:   "restaurant closed now",
			mutate: func(in *CreateOrderInput) { in.RestaurantID = "r3" },
			code:   errors.CodeBusinessRule,
			reason: domain.ReasonRestaurantInactive,
		},
		{
			name:   "product not found",
			mutate: func(in *CreateOrderInput) { in.Items = append(in.Items, CreateOrderItem{ProductID: "nope", Quantity: 1}) },
			code:   errors.CodeNotFound,
			reason: domain.ReasonProductNotFound,
		},
		{
			name:   "product unavailable",
			mutate: func(in *CreateOrderInput) { in.Items = append(in.Items, CreateOrderItem{ProductID: "p4", Quantity: 1}) },
			code:   errors.CodeBusinessRule,
			reason: domain.ReasonProductUnavailable,
		},
		{
			name:   "product from another restaurant",
			mutate: func(in *CreateOrderInput) { in.Items = []CreateOrderItem{{ProductID: "p5", Quantity: 1}} },
			code:   errors.CodeBusinessRule,
			reason: domain.ReasonProductNotInRestaurant,
		},
		{
			name:   "empty cart",
			mutate: func(in *CreateOrderInput) { in.Items = nil },
			code:   errors.CodeBusinessRule,
			reason: domain.ReasonEmptyOrder,
		},
		{
			name:   "currency mismatch",
			mutate: func(in *CreateOrderInput) { in.Items = append(in.Items, CreateOrderItem{ProductID: "p3", Quantity: 1}) },
			code:   errors.CodeCurrencyMismatch,
		},
		{
			name:   "zero quantity",
			mutate: func(in *CreateOrderInput) { in.Items[0].Quantity = 0 },
			code:   errors.CodeValidation,
			reason: domain.ReasonInvalidQuantity,
		},
		{
			name:   "missing address",
			mutate: func(in *CreateOrderInput) { in.DeliveryAddress = domain.Address{} },
			code:   errors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFulfillmentFixture()
			input := validCreateInput()
			tt.mutate(&input)

			// Act
			_, err := f.service.CreateOrder(context.Background(), input)

			// Assert
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("expected code %s, got %v", tt.code, err)
			}
			if tt.reason != "" && !errors.HasReason(err, tt.reason) {
				t.Errorf("expected reason %s, got %v", tt.reason, err)
			}
			if len(f.orders.orders) != 0 {
				t.Errorf("expected nothing persisted, got %d orders", len(f.orders.orders))
			}
			if len(f.notifier.sent) != 0 {
				t.Errorf("expected no notifications, got %d", len(f.notifier.sent))
			}
		})
	}
}

func TestCreateOrder_CatalogFailureIsInternal(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	f.catalog.err = fmt.Errorf("catalog down")

	// Act
	_, err := f.service.CreateOrder(context.Background(), validCreateInput())

	// Assert
	if !errors.Is(err, errors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestCreateOrder_PriceIsSnapshotted(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	output, err := f.service.CreateOrder(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	f.catalog.setPrice("p1", "99.00")
	reloaded, err := f.service.GetOrder(context.Background(), output.Order.ID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reloaded.Order.TotalPrice.String() != "25.50 USD" {
		t.Errorf("expected total to stay 25.50 USD, got %s", reloaded.Order.TotalPrice)
	}
}

func TestCreateOrder_MergesRepeatedProducts(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	input := validCreateInput()
	input.Items = []CreateOrderItem{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 1}, {ProductID: "p1", Quantity: 2}}

	// Act
	output, err := f.service.CreateOrder(context.Background(), input)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(output.Order.Items) != 2 || output.Order.Items[0].Quantity != 3 {
		t.Errorf("expected p1 merged to quantity 3, got %+v", output.Order.Items)
	}
	if output.Order.TotalPrice.String() != "35.50 USD" {
		t.Errorf("expected total 35.50 USD, got %s", output.Order.TotalPrice)
	}
}

func TestCreateOrder_NotificationFailureDoesNotRollBack(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	f.notifier.err = fmt.Errorf("smtp unreachable")

	// Act
	output, err := f.service.CreateOrder(context.Background(), validCreateInput())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stored, _ := f.orders.FindByID(context.Background(), output.Order.ID); stored == nil {
		t.Error("expected order to be persisted despite notification failure")
	}
	if len(f.notifier.sent) != 2 {
		t.Errorf("expected both notifications attempted, got %d", len(f.notifier.sent))
	}
}

func TestUpdateOrderStatus_FullLifecycle(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	id := created.Order.ID
	f.notifier.sent = nil

	steps := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusReady,
		domain.OrderStatusOnDelivery,
		domain.OrderStatusDelivered,
	}

	// Act
	var last *domain.Order
	for _, s := range steps {
		out, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: id, Status: s})
		if err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
		last = out.Order
	}

	// Assert
	if last.ActualDeliveryTime == nil || !last.ActualDeliveryTime.Equal(testNow) {
		t.Errorf("expected actual delivery time %v, got %v", testNow, last.ActualDeliveryTime)
	}
	if last.Version != 6 {
		t.Errorf("expected version 6, got %d", last.Version)
	}

	kinds := f.notifier.kinds()
	want := []ports.TemplateKind{
		ports.TemplateOrderConfirmed, ports.TemplateOrderPreparing, ports.TemplateOrderReady,
		ports.TemplateOrderOnDelivery, ports.TemplateOrderDelivered,
	}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("expected notifications %v, got %v", want, kinds)
	}
	for _, n := range f.notifier.sent {
		if n.Recipient != "c1" {
			t.Errorf("expected customer recipient, got %s", n.Recipient)
		}
	}

	_, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: id, Status: domain.OrderStatusCancelled})
	if !errors.Is(err, errors.CodeInvalidState) {
		t.Errorf("expected invalid state cancelling a delivered order, got %v", err)
	}
	if len(f.history.changes) != 6 {
		t.Errorf("expected 6 history entries, got %d", len(f.history.changes))
	}
}

func TestUpdateOrderStatus_IllegalTransition(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	f.notifier.sent = nil

	// Act
	_, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{
		OrderID: created.Order.ID,
		Status:  domain.OrderStatusDelivered,
	})

	// Assert
	if !errors.HasReason(err, domain.ReasonInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("expected no notification on failure, got %d", len(f.notifier.sent))
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()

	// Act
	_, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: "ghost", Status: domain.OrderStatusConfirmed})

	// Assert
	if !errors.HasReason(err, domain.ReasonOrderNotFound) {
		t.Errorf("expected order not found, got %v", err)
	}
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())

	// Act
	_, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: created.Order.ID, Status: "LOST"})

	// Assert
	if !errors.Is(err, errors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateOrderStatus_RetriesOnConflict(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	id := created.Order.ID
	conflicts := 1
	f.orders.beforeSwap = func(id string) {
		if conflicts > 0 {
			conflicts--
			f.orders.bump(id)
		}
	}

	// Act
	out, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: id, Status: domain.OrderStatusConfirmed})

	// Assert
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if f.orders.swapCalls != 2 {
		t.Errorf("expected 2 swap attempts, got %d", f.orders.swapCalls)
	}
	if out.Order.Version != 3 {
		t.Errorf("expected version 3 after one foreign write, got %d", out.Order.Version)
	}
}

func TestUpdateOrderStatus_GivesUpAfterMaxRetries(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	f.orders.beforeSwap = f.orders.bump

	// Act
	_, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: created.Order.ID, Status: domain.OrderStatusConfirmed})

	// Assert
	if !errors.HasReason(err, domain.ReasonConflictRetriesExceeded) {
		t.Errorf("expected retries exceeded, got %v", err)
	}
	if f.orders.swapCalls != 3 {
		t.Errorf("expected 3 swap attempts, got %d", f.orders.swapCalls)
	}
}

func TestUpdateOrderStatus_ConcurrentWritersCannotUnterminalize(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	id := created.Order.ID
	for _, s := range []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.OrderStatusReady, domain.OrderStatusOnDelivery} {
		if _, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: id, Status: s}); err != nil {
			t.Fatalf("setup transition %s: %v", s, err)
		}
	}

	// Act
	var wg sync.WaitGroup
	results := make([]error, 2)
	targets := []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled}
	for i, target := range targets {
		i, target := i, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: id, Status: target})
		}()
	}
	wg.Wait()

	// Assert
	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, errors.CodeInvalidState) {
			t.Errorf("expected loser to see invalid state, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one terminal transition to win, got %d", succeeded)
	}
	final, _ := f.orders.FindByID(context.Background(), id)
	if !final.Status.IsTerminal() {
		t.Errorf("expected terminal status, got %s", final.Status)
	}
	if (final.Status == domain.OrderStatusDelivered) != (final.ActualDeliveryTime != nil) {
		t.Errorf("actual delivery time must be set iff delivered, status %s", final.Status)
	}
}

func TestItemEdits(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	id := created.Order.ID
	ctx := context.Background()

	// Act & Assert
	out, err := f.service.AddItem(ctx, AddItemInput{OrderID: id, ProductID: "p2", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if out.Order.TotalPrice.String() != "36.50 USD" {
		t.Errorf("expected 36.50 USD after add, got %s", out.Order.TotalPrice)
	}

	out, err = f.service.UpdateItemQuantity(ctx, id, "p1", 1)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if out.Order.TotalPrice.String() != "26.50 USD" {
		t.Errorf("expected 26.50 USD after quantity change, got %s", out.Order.TotalPrice)
	}

	out, err = f.service.RemoveItem(ctx, id, "p2")
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if out.Order.TotalPrice.String() != "10.00 USD" {
		t.Errorf("expected 10.00 USD after remove, got %s", out.Order.TotalPrice)
	}

	if _, err := f.service.AddItem(ctx, AddItemInput{OrderID: id, ProductID: "p4", Quantity: 1}); !errors.HasReason(err, domain.ReasonProductUnavailable) {
		t.Errorf("expected unavailable product rejected, got %v", err)
	}
	if _, err := f.service.AddItem(ctx, AddItemInput{OrderID: id, ProductID: "p5", Quantity: 1}); !errors.HasReason(err, domain.ReasonProductNotInRestaurant) {
		t.Errorf("expected foreign product rejected, got %v", err)
	}
	if _, err := f.service.RemoveItem(ctx, id, "p1"); !errors.HasReason(err, domain.ReasonEmptyOrder) {
		t.Errorf("expected last item removal rejected, got %v", err)
	}

	if _, err := f.service.UpdateOrderStatus(ctx, UpdateOrderStatusInput{OrderID: id, Status: domain.OrderStatusConfirmed}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.service.AddItem(ctx, AddItemInput{OrderID: id, ProductID: "p2", Quantity: 1}); !errors.Is(err, errors.CodeInvalidState) {
		t.Errorf("expected edit of confirmed order rejected, got %v", err)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	id := created.Order.ID
	f.notifier.sent = nil

	// Act
	out, err := f.service.UpdatePaymentStatus(context.Background(), id, domain.PaymentStatusPaid)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Order.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected PAID, got %s", out.Order.PaymentStatus)
	}
	if kinds := f.notifier.kinds(); len(kinds) != 1 || kinds[0] != ports.TemplatePaymentConfirmed {
		t.Errorf("expected payment confirmed notification, got %v", kinds)
	}

	_, err = f.service.UpdatePaymentStatus(context.Background(), id, domain.PaymentStatusFailed)
	if !errors.HasReason(err, domain.ReasonPaymentFinal) {
		t.Errorf("expected PAID to be final, got %v", err)
	}
}

func TestSetEstimatedDeliveryTime(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	eta := testNow.Add(45 * time.Minute)

	// Act
	out, err := f.service.SetEstimatedDeliveryTime(context.Background(), created.Order.ID, eta)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Order.EstimatedDeliveryTime == nil || !out.Order.EstimatedDeliveryTime.Equal(eta) {
		t.Errorf("expected ETA %v, got %v", eta, out.Order.EstimatedDeliveryTime)
	}
}

func TestListCustomerOrders(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	for i := 0; i < 5; i++ {
		if _, err := f.service.CreateOrder(context.Background(), validCreateInput()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := validCreateInput()
	other.CustomerID = "c2"
	f.service.CreateOrder(context.Background(), other)
	if _, err := f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: "order-1", Status: domain.OrderStatusCancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Act
	page, err := f.service.ListCustomerOrders(context.Background(), ListCustomerOrdersInput{CustomerID: "c1", Page: 2, Limit: 2})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || len(page.Orders) != 2 {
		t.Errorf("unexpected page: total=%d pages=%d len=%d", page.Total, page.TotalPages, len(page.Orders))
	}

	cancelled := domain.OrderStatusCancelled
	filtered, err := f.service.ListCustomerOrders(context.Background(), ListCustomerOrdersInput{CustomerID: "c1", Status: &cancelled})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filtered.Total != 1 || filtered.Limit != 20 {
		t.Errorf("expected 1 cancelled order with default limit, got total=%d limit=%d", filtered.Total, filtered.Limit)
	}
}

func (f *fulfillmentFixture) seedRestaurantOrder(id, restaurantID string, status domain.OrderStatus, total string, currency string, age time.Duration) {
	f.orders.orders[id] = domain.Order{
		ID:           id,
		CustomerID:   "c1",
		RestaurantID: restaurantID,
		Status:       status,
		TotalPrice:   domain.MustMoney(total, currency),
		Version:      1,
		CreatedAt:    testNow.Add(-age),
	}
}

func TestListRestaurantOrders(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	f.seedRestaurantOrder("d1", "r1", domain.OrderStatusDelivered, "25.50", "USD", time.Hour)
	f.seedRestaurantOrder("d2", "r1", domain.OrderStatusDelivered, "10.00", "USD", 48*time.Hour)
	f.seedRestaurantOrder("d3", "r1", domain.OrderStatusDelivered, "99.00", "USD", 40*24*time.Hour)
	f.seedRestaurantOrder("p1", "r1", domain.OrderStatusPending, "5.50", "USD", 10*time.Minute)
	f.seedRestaurantOrder("x1", "r3", domain.OrderStatusPending, "7.00", "USD", time.Minute)

	// Act
	out, err := f.service.ListRestaurantOrders(context.Background(), ListRestaurantOrdersInput{RestaurantID: "r1", Limit: 2})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Total != 4 || out.TotalPages != 2 || len(out.Orders) != 2 {
		t.Errorf("unexpected page: total=%d pages=%d len=%d", out.Total, out.TotalPages, len(out.Orders))
	}
	if out.Orders[0].ID != "p1" || out.Orders[1].ID != "d1" {
		t.Errorf("expected newest first [p1 d1], got [%s %s]", out.Orders[0].ID, out.Orders[1].ID)
	}
	stats := out.Stats
	if stats.Revenue == nil || stats.Revenue.String() != "35.50 USD" {
		t.Errorf("expected 30-day revenue 35.50 USD, got %v", stats.Revenue)
	}
	if stats.AverageOrderValue == nil || stats.AverageOrderValue.String() != "17.75 USD" {
		t.Errorf("expected average 17.75 USD, got %v", stats.AverageOrderValue)
	}
	if stats.DeliveredInWindow != 2 || stats.PendingOrders != 1 || stats.CompletedOrders != 3 {
		t.Errorf("unexpected counts: window=%d pending=%d completed=%d", stats.DeliveredInWindow, stats.PendingOrders, stats.CompletedOrders)
	}

	delivered := domain.OrderStatusDelivered
	filtered, err := f.service.ListRestaurantOrders(context.Background(), ListRestaurantOrdersInput{RestaurantID: "r1", Status: &delivered})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filtered.Total != 3 {
		t.Errorf("expected 3 delivered orders, got %d", filtered.Total)
	}
}

func TestListRestaurantOrders_NoRevenue(t *testing.T) {
	f := newFulfillmentFixture()
	f.seedRestaurantOrder("p1", "r1", domain.OrderStatusPending, "5.50", "USD", time.Minute)

	out, err := f.service.ListRestaurantOrders(context.Background(), ListRestaurantOrdersInput{RestaurantID: "r1"})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Stats.Revenue != nil || out.Stats.AverageOrderValue != nil {
		t.Errorf("expected no revenue, got %v / %v", out.Stats.Revenue, out.Stats.AverageOrderValue)
	}
}

func TestListRestaurantOrders_Errors(t *testing.T) {
	f := newFulfillmentFixture()
	f.seedRestaurantOrder("d1", "r1", domain.OrderStatusDelivered, "25.50", "USD", time.Hour)
	f.seedRestaurantOrder("d2", "r1", domain.OrderStatusDelivered, "3.00", "EUR", time.Hour)
	ctx := context.Background()

	_, err := f.service.ListRestaurantOrders(ctx, ListRestaurantOrdersInput{RestaurantID: "r1"})
	if !errors.Is(err, errors.CodeCurrencyMismatch) {
		t.Errorf("expected currency mismatch, got %v", err)
	}

	_, err = f.service.ListRestaurantOrders(ctx, ListRestaurantOrdersInput{RestaurantID: "ghost"})
	if !errors.HasReason(err, domain.ReasonRestaurantNotFound) {
		t.Errorf("expected restaurant not found, got %v", err)
	}

	bogus := domain.OrderStatus("LOST")
	_, err = f.service.ListRestaurantOrders(ctx, ListRestaurantOrdersInput{RestaurantID: "r1", Status: &bogus})
	if !errors.Is(err, errors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListCustomerOrders_HugePage(t *testing.T) {
	f := newFulfillmentFixture()
	f.seedRestaurantOrder("d1", "r1", domain.OrderStatusDelivered, "25.50", "USD", time.Hour)

	out, err := f.service.ListCustomerOrders(context.Background(), ListCustomerOrdersInput{CustomerID: "c1", Page: 1 << 62, Limit: 20})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out.Orders) != 0 || out.Total != 1 {
		t.Errorf("expected empty page with total 1, got %d orders total %d", len(out.Orders), out.Total)
	}
}

func TestOrderHistory(t *testing.T) {
	// Arrange
	f := newFulfillmentFixture()
	created, _ := f.service.CreateOrder(context.Background(), validCreateInput())
	f.service.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderID: created.Order.ID, Status: domain.OrderStatusConfirmed})

	// Act
	changes, err := f.service.OrderHistory(context.Background(), created.Order.ID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(changes) != 2 || changes[1].From != domain.OrderStatusPending || changes[1].To != domain.OrderStatusConfirmed {
		t.Errorf("unexpected history: %+v", changes)
	}

	if _, err := f.service.OrderHistory(context.Background(), "ghost"); !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("expected not found for unknown order, got %v", err)
	}
}

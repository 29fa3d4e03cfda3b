package domain

import (
	"strings"
	"time"
)

// OrderLineItem is one priced product on an order. UnitPrice is the catalog
// price at the moment the item was added and never follows later changes.
type OrderLineItem struct {
	ProductID   string
	ProductName string
	UnitPrice   Money
	Quantity    int
	Notes       string
}

// NewOrderLineItem validates the quantity
func NewOrderLineItem(product *Product, quantity int, notes string) (OrderLineItem, error) {
	if quantity < 1 {
		return OrderLineItem{}, ErrInvalidQuantity.WithDetails(map[string]interface{}{
			"product_id": product.ID,
			"quantity":   quantity,
		})
	}
	return OrderLineItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.UnitPrice,
		Quantity:    quantity,
		Notes:       notes,
	}, nil
}

// Total returns UnitPrice x Quantity
func (li OrderLineItem) Total() (Money, error) {
	return li.UnitPrice.Multiply(li.Quantity)
}

// Order is an immutable snapshot of a customer order. Mutations return a new
// snapshot; Version is bumped by the store on every successful write.
type Order struct {
	ID                    string
	CustomerID            string
	RestaurantID          string
	Items                 []OrderLineItem
	TotalPrice            Money
	DeliveryAddress       Address
	Status                OrderStatus
	PaymentMethod         string
	PaymentStatus         PaymentStatus
	EstimatedDeliveryTime *time.Time
	ActualDeliveryTime    *time.Time
	Notes                 string
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewOrder creates a PENDING order with a total computed from items
func NewOrder(id, customerID, restaurantID string, items []OrderLineItem, address Address, paymentMethod, notes string, at time.Time) (*Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrCustomerIDRequired
	}
	if strings.TrimSpace(restaurantID) == "" {
		return nil, ErrRestaurantIDNeeded
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return nil, ErrPaymentMethodEmpty
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	owned := copyItems(items)
	total, err := computeTotal(owned)
	if err != nil {
		return nil, err
	}

	return &Order{
		ID:              id,
		CustomerID:      customerID,
		RestaurantID:    restaurantID,
		Items:           owned,
		TotalPrice:      total,
		DeliveryAddress: address,
		Status:          OrderStatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   PaymentStatusPending,
		Notes:           notes,
		Version:         1,
		CreatedAt:       at,
		UpdatedAt:       at,
	}, nil
}

// Currency returns the currency every line item is priced in
func (o Order) Currency() Currency {
	return o.TotalPrice.Currency()
}

// TransitionTo moves the order to next. Reaching DELIVERED stamps
// ActualDeliveryTime with at.
func (o Order) TransitionTo(next OrderStatus, at time.Time) (Order, error) {
	if o.Status == OrderStatusDelivered && next == OrderStatusCancelled {
		return Order{}, NewInvalidStatusTransition(o.Status, next)
	}
	if !CanTransition(o.Status, next) {
		return Order{}, NewInvalidStatusTransition(o.Status, next)
	}

	out := o.clone()
	out.Status = next
	if next == OrderStatusDelivered {
		delivered := at
		out.ActualDeliveryTime = &delivered
	}
	out.UpdatedAt = at
	return out, nil
}

// AddItem adds a line. A product already on the order keeps its original
// snapshot price and has its quantity increased.
func (o Order) AddItem(item OrderLineItem, at time.Time) (Order, error) {
	if err := o.ensureEditable(); err != nil {
		return Order{}, err
	}
	if item.Quantity < 1 {
		return Order{}, ErrInvalidQuantity.WithDetails(map[string]interface{}{"quantity": item.Quantity})
	}

	out := o.clone()
	merged := false
	for i := range out.Items {
		if out.Items[i].ProductID == item.ProductID {
			out.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		out.Items = append(out.Items, item)
	}
	return out.retotal(at)
}

// RemoveItem drops the line for productID. The last line cannot be removed.
func (o Order) RemoveItem(productID string, at time.Time) (Order, error) {
	if err := o.ensureEditable(); err != nil {
		return Order{}, err
	}
	idx := o.itemIndex(productID)
	if idx < 0 {
		return Order{}, NewItemNotFound(productID)
	}
	if len(o.Items) == 1 {
		return Order{}, ErrEmptyOrder
	}

	out := o.clone()
	out.Items = append(out.Items[:idx], out.Items[idx+1:]...)
	return out.retotal(at)
}

// UpdateItemQuantity sets the quantity of an existing line
func (o Order) UpdateItemQuantity(productID string, quantity int, at time.Time) (Order, error) {
	if err := o.ensureEditable(); err != nil {
		return Order{}, err
	}
	if quantity < 1 {
		return Order{}, ErrInvalidQuantity.WithDetails(map[string]interface{}{
			"product_id": productID,
			"quantity":   quantity,
		})
	}
	idx := o.itemIndex(productID)
	if idx < 0 {
		return Order{}, NewItemNotFound(productID)
	}

	out := o.clone()
	out.Items[idx].Quantity = quantity
	return out.retotal(at)
}

// WithPaymentStatus records a payment outcome
func (o Order) WithPaymentStatus(status PaymentStatus, at time.Time) (Order, error) {
	if !CanChangePayment(o.PaymentStatus, status) {
		return Order{}, NewPaymentStatusFinal(o.PaymentStatus, status)
	}
	out := o.clone()
	out.PaymentStatus = status
	out.UpdatedAt = at
	return out, nil
}

// WithEstimatedDeliveryTime sets the promised delivery time
func (o Order) WithEstimatedDeliveryTime(eta, at time.Time) (Order, error) {
	if o.Status.IsTerminal() {
		return Order{}, ErrOrderNotEditable.WithDetails(map[string]interface{}{
			"order_id": o.ID,
			"status":   string(o.Status),
		})
	}
	out := o.clone()
	e := eta
	out.EstimatedDeliveryTime = &e
	out.UpdatedAt = at
	return out, nil
}

func (o Order) ensureEditable() error {
	if o.Status != OrderStatusPending {
		return ErrOrderNotEditable.WithDetails(map[string]interface{}{
			"order_id": o.ID,
			"status":   string(o.Status),
		})
	}
	return nil
}

func (o Order) itemIndex(productID string) int {
	for i, it := range o.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (o Order) retotal(at time.Time) (Order, error) {
	total, err := computeTotal(o.Items)
	if err != nil {
		return Order{}, err
	}
	o.TotalPrice = total
	o.UpdatedAt = at
	return o, nil
}

func (o Order) clone() Order {
	out := o
	out.Items = copyItems(o.Items)
	if o.EstimatedDeliveryTime != nil {
		t := *o.EstimatedDeliveryTime
		out.EstimatedDeliveryTime = &t
	}
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		out.ActualDeliveryTime = &t
	}
	return out
}

func copyItems(items []OrderLineItem) []OrderLineItem {
	out := make([]OrderLineItem, len(items))
	copy(out, items)
	return out
}

// computeTotal sums line totals in the currency of the first line
func computeTotal(items []OrderLineItem) (Money, error) {
	if len(items) == 0 {
		return Money{}, ErrEmptyOrder
	}
	total, err := Zero(items[0].UnitPrice.Currency())
	if err != nil {
		return Money{}, err
	}
	for _, it := range items {
		line, err := it.Total()
		if err != nil {
			return Money{}, err
		}
		total, err = total.Add(line)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
